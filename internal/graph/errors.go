package graph

import (
	"errors"
	"fmt"
)

// ErrAssociationNotFound is returned for lookups of edges that do not exist.
// Typed errors below carry ids for entity/path lookups; edge-by-id misses are
// frequent enough on hot paths (ContainsParent on roots) that a plain
// sentinel avoids an allocation per call.
var ErrAssociationNotFound = errors.New("association not found")

// ErrOrdinalConflict signals a (parent, ordinal) collision on insert. The
// manager retries ordinal allocation when a store surfaces it.
var ErrOrdinalConflict = errors.New("ordinal already taken for parent")

// EntityNotFoundError reports a reference to a missing entity. Non-retriable.
type EntityNotFoundError struct {
	ID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.ID)
}

// IntegrityError reports a rejected mutation that would corrupt the graph:
// a Contains cycle, a duplicate Contains parent, or deleting a node that
// still has dependents. Fatal, never retried.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("graph integrity violation: %s", e.Reason)
}

// InvalidPathError reports a malformed association path.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid association path: %q", e.Path)
}

// IsNotFound reports whether err is any not-found variant.
func IsNotFound(err error) bool {
	var enf *EntityNotFoundError
	return errors.As(err, &enf) || errors.Is(err, ErrAssociationNotFound)
}
