// Package passerr defines the error kinds shared by every phase of the
// clustering pipeline. Callers match on the kind with errors.Is.
package passerr

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks a malformed shape hint string.
	ErrFormat = errors.New("format error")

	// ErrGraphConstruction marks a graph that cannot be built or fails validation.
	ErrGraphConstruction = errors.New("graph construction error")

	// ErrClustering marks an inconsistent cluster assignment.
	ErrClustering = errors.New("clustering error")

	// ErrEncapsulation marks a failure to replace a cluster with its call node.
	ErrEncapsulation = errors.New("encapsulation error")
)

// Error carries a kind, the operation that failed, and a message.
type Error struct {
	Kind error
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Format returns an ErrFormat error.
func Format(op, format string, args ...any) error {
	return newf(ErrFormat, op, format, args...)
}

// GraphConstruction returns an ErrGraphConstruction error.
func GraphConstruction(op, format string, args ...any) error {
	return newf(ErrGraphConstruction, op, format, args...)
}

// Clustering returns an ErrClustering error.
func Clustering(op, format string, args ...any) error {
	return newf(ErrClustering, op, format, args...)
}

// Encapsulation returns an ErrEncapsulation error.
func Encapsulation(op, format string, args ...any) error {
	return newf(ErrEncapsulation, op, format, args...)
}
