// internal/nodeid/doc.go

/*
Package nodeid provides a structured representation of the endpoint
references used in graph files to name the producer of an input.

Three forms are accepted:

	name      output 0 of node `name`
	name:3    output 3 of node `name`
	^name     a control dependency on node `name`

The same `name:port` form appears in feed and fetch lists, where only the
node name matters. This package centralizes parsing and formatting so that
the HCL and JSON loaders agree on the syntax.
*/
package nodeid
