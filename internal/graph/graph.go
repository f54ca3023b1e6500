package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RootPath is the literal path of a parent that has no Contains parent of
// its own. Every generated association path descends from it.
const RootPath = "content"

// Kind classifies an association. The three built-in kinds carry semantics
// the manager enforces (Contains is the acyclic single-parent hierarchy);
// any other non-empty string is treated as a custom kind.
type Kind string

const (
	KindContains   Kind = "contains"
	KindReferences Kind = "references"
	KindExtends    Kind = "extends"
)

// IsBuiltin returns true for the three kinds with reserved semantics.
func (k Kind) IsBuiltin() bool {
	return k == KindContains || k == KindReferences || k == KindExtends
}

// Entity is an addressable content or structural node. Identity is the ID;
// SemanticName is an optional unique handle for human-facing lookups.
type Entity struct {
	ID           string
	Kind         string
	SemanticName string
	Data         map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Association is a typed, weighted edge between two entities. Path is a
// dot-separated address (e.g. "content.1.2") assigned at creation time from
// the parent's own path plus a per-parent ordinal. Ordinals are monotonically
// increasing per parent and never reused, so paths stay unique after removals
// even though they are not contiguous.
type Association struct {
	ID        string
	ParentID  string
	ChildID   string
	Kind      Kind
	Weight    int
	Ord       int
	Path      string
	CreatedAt time.Time
}

var pathPattern = regexp.MustCompile(`^[a-z]+(\.\d+)*$`)

// ValidatePath reports whether p is a well-formed association path.
func ValidatePath(p string) error {
	if !pathPattern.MatchString(p) {
		return &InvalidPathError{Path: p}
	}
	return nil
}

// ChildPath derives the path for the n-th child under parentPath.
func ChildPath(parentPath string, n int) string {
	return fmt.Sprintf("%s.%d", parentPath, n)
}

// PathOrdinal returns the trailing ordinal of a path, or 0 for the root
// literal. Used as the deterministic tie-break when weights are equal.
func PathOrdinal(p string) int {
	idx := strings.LastIndexByte(p, '.')
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(p[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

// Store is the minimal persistence contract the graph is built on: existence
// checks, sets keyed by id/path, and ordered retrieval of a parent's edges.
// Implementations must return typed not-found errors for missing rows, and
// must make PutAssociation fail on a (parent, ordinal) collision so the
// manager can retry ordinal allocation under contention.
type Store interface {
	// Entities.
	PutEntity(ctx context.Context, e *Entity) error
	Entity(ctx context.Context, id string) (*Entity, error)
	EntityBySemanticName(ctx context.Context, name string) (*Entity, error)
	EntityExists(ctx context.Context, id string) (bool, error)
	DeleteEntity(ctx context.Context, id string) error

	// Associations.
	PutAssociation(ctx context.Context, a *Association) error
	Association(ctx context.Context, id string) (*Association, error)
	AssociationByPath(ctx context.Context, path string) (*Association, error)
	// ContainsParent returns the single Contains edge targeting childID,
	// or ErrAssociationNotFound if the child is a root.
	ContainsParent(ctx context.Context, childID string) (*Association, error)
	// AssociationsByParent returns all edges under parentID sorted ascending
	// by (weight, ordinal).
	AssociationsByParent(ctx context.Context, parentID string) ([]*Association, error)
	// AssociationsByChild returns every edge targeting childID, any kind.
	AssociationsByChild(ctx context.Context, childID string) ([]*Association, error)
	// NextOrdinal returns the next never-used ordinal under parentID,
	// starting at 1. Ordinals freed by deletion are never handed out again.
	NextOrdinal(ctx context.Context, parentID string) (int, error)
	UpdateAssociationWeight(ctx context.Context, id string, weight int) error
	DeleteAssociation(ctx context.Context, id string) error

	Close() error
}

// sortAssociations orders edges ascending by weight, then path ordinal, then
// path string. Shared by store implementations so ordering is identical
// regardless of backend.
func sortAssociations(list []*Association) {
	sort.Slice(list, func(i, j int) bool {
		return lessAssociation(list[i], list[j])
	})
}

func lessAssociation(a, b *Association) bool {
	if a.Weight != b.Weight {
		return a.Weight < b.Weight
	}
	if a.Ord != b.Ord {
		return a.Ord < b.Ord
	}
	return a.Path < b.Path
}
