// Package shapehint parses the shape-hint mini language used in pipeline
// configuration:
//
//	node1:{1,2;3,4}.node2:{1;2}
//
// Segments are separated by '.', each segment is `name:{hints}`, hints are
// separated by ';' and each hint is a comma separated list of non-negative
// dimensions.
package shapehint

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/specialistvlad/clusterpass/internal/passerr"
)

// Set maps a node name to its candidate shapes. Each node's shapes are
// unique and sorted lexicographically.
type Set map[string][][]int

// Parse parses a raw shape-hint string. An empty string yields an empty set.
func Parse(raw string) (Set, error) {
	const op = "shapehint.Parse"
	set := make(Set)
	if strings.TrimSpace(raw) == "" {
		return set, nil
	}

	for _, segment := range strings.Split(raw, ".") {
		parts := strings.Split(segment, ":")
		if len(parts) != 2 {
			return nil, passerr.Format(op, "expected name:{hints}, got %d parts after splitting %q", len(parts), segment)
		}
		name, body := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if name == "" {
			return nil, passerr.Format(op, "segment %q has an empty node name", segment)
		}
		if len(body) < 2 || body[0] != '{' || body[len(body)-1] != '}' {
			return nil, passerr.Format(op, "hint %q for node %q must be enclosed in {}", body, name)
		}

		for _, hint := range strings.Split(body[1:len(body)-1], ";") {
			shape, err := parseShape(hint)
			if err != nil {
				return nil, passerr.Format(op, "node %q: %v", name, err)
			}
			set.add(name, shape)
		}
	}
	return set, nil
}

func parseShape(hint string) ([]int, error) {
	tokens := strings.Split(hint, ",")
	shape := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		dim, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("dimension %q is not an integer", tok)
		}
		if dim < 0 {
			return nil, fmt.Errorf("dimension %d is negative", dim)
		}
		shape = append(shape, dim)
	}
	return shape, nil
}

func (s Set) add(name string, shape []int) {
	shapes := s[name]
	idx, found := slices.BinarySearchFunc(shapes, shape, slices.Compare[[]int])
	if found {
		return
	}
	s[name] = slices.Insert(shapes, idx, shape)
}

// For returns the candidate shapes of a node, or nil.
func (s Set) For(name string) [][]int {
	return s[name]
}

// Names returns the hinted node names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the set back into the mini language, nodes sorted by name.
func (s Set) String() string {
	segments := make([]string, 0, len(s))
	for _, name := range s.Names() {
		hints := make([]string, 0, len(s[name]))
		for _, shape := range s[name] {
			dims := make([]string, len(shape))
			for i, d := range shape {
				dims[i] = strconv.Itoa(d)
			}
			hints = append(hints, strings.Join(dims, ","))
		}
		segments = append(segments, fmt.Sprintf("%s:{%s}", name, strings.Join(hints, ";")))
	}
	return strings.Join(segments, ".")
}
