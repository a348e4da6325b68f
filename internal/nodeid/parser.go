// internal/nodeid/parser.go
package nodeid

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/specialistvlad/clusterpass/internal/passerr"
)

// refRegex matches `name`, `name:3` and `^name`.
var refRegex = regexp.MustCompile(`^(\^)?([A-Za-z0-9_.\-/]+)(?::(\d+))?$`)

// isValidName rejects names that are technically matched but meaningless.
func isValidName(name string) bool {
	if name == "." || name == ".." || name == "-" || strings.HasPrefix(name, "/") {
		return false
	}
	return true
}

// Parse converts an endpoint reference string into a Ref.
func Parse(raw string) (Ref, error) {
	const op = "nodeid.Parse"
	if raw == "" {
		return Ref{}, passerr.GraphConstruction(op, "reference cannot be empty")
	}

	matches := refRegex.FindStringSubmatch(raw)
	if matches == nil {
		return Ref{}, passerr.GraphConstruction(op, "invalid reference %q", raw)
	}

	name := matches[2]
	if !isValidName(name) {
		return Ref{}, passerr.GraphConstruction(op, "invalid node name %q", name)
	}

	control := matches[1] != ""
	if control {
		if matches[3] != "" {
			return Ref{}, passerr.GraphConstruction(op, "control reference %q cannot name an output", raw)
		}
		return NewControlRef(name), nil
	}

	output := 0
	if matches[3] != "" {
		idx, err := strconv.Atoi(matches[3])
		if err != nil {
			return Ref{}, passerr.GraphConstruction(op, "invalid output index in %q", raw)
		}
		output = idx
	}
	return NewRef(name, output), nil
}

// NodeName strips an optional `:port` suffix and control marker, returning
// just the node name. It does not validate the name.
func NodeName(raw string) string {
	raw = strings.TrimPrefix(raw, "^")
	if i := strings.LastIndexByte(raw, ':'); i >= 0 {
		if _, err := strconv.Atoi(raw[i+1:]); err == nil {
			return raw[:i]
		}
	}
	return raw
}
