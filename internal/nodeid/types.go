// internal/nodeid/types.go
package nodeid

import "fmt"

// Ref is the structured form of an endpoint reference.
type Ref struct {
	Node    string
	Output  int
	Control bool
}

// NewRef creates a data reference to the given output of a node.
func NewRef(node string, output int) Ref {
	return Ref{Node: node, Output: output}
}

// NewControlRef creates a control dependency reference.
func NewControlRef(node string) Ref {
	return Ref{Node: node, Output: -1, Control: true}
}

// String serializes the reference into its canonical form. Output 0 is
// written without a port suffix.
func (r Ref) String() string {
	switch {
	case r.Control:
		return "^" + r.Node
	case r.Output == 0:
		return r.Node
	default:
		return fmt.Sprintf("%s:%d", r.Node, r.Output)
	}
}
