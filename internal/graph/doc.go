// Package graph provides the dataflow graph model the clustering pipeline
// operates on.
//
// # Arena Model
//
// Nodes live in an arena indexed by NodeID. An id is assigned once when the
// node is inserted and is never reused within the same Graph, even after the
// node is removed. Removed slots stay empty so that ids held by other
// structures (marks, cluster tables) never silently point at a different
// node. Clone preserves ids, which lets a phase work on a copy and still
// share per-node bookkeeping with the original.
//
// # Edges
//
// A data edge carries the value produced on output slot SrcOutput of Src into
// input slot DstInput of Dst. Each input slot accepts exactly one data edge.
// A control edge has both slots set to ControlSlot and only orders execution.
//
// # Determinism
//
// Every accessor that returns a collection (Nodes, Edges, InEdges, OutEdges,
// AttrNames) returns it in a fixed order so that downstream numbering
// depends only on the graph's structure, never on map iteration.
//
// A Graph is not safe for concurrent mutation. Pipeline phases own the graph
// they mutate.
package graph
