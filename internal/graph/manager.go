package graph

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// lockShards bounds the per-parent mutex table. 64 shards keeps contention
// negligible for authoring workloads without an unbounded map of mutexes.
const lockShards = 64

// ordinalRetries is how many times Create re-reads the next ordinal when the
// store reports a (parent, ordinal) collision. Collisions only happen when a
// second process mutates the same parent concurrently.
const ordinalRetries = 3

// Manager owns all association mutations. Reads go straight to the store;
// writes for a given parent are serialized through a sharded mutex so sibling
// ordinals are allocated exactly once.
type Manager struct {
	store    Store
	log      *slog.Logger
	observer Observer
	shards   [lockShards]sync.Mutex
}

func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, log: logger}
}

// SetObserver installs a side-effect-only hook invoked after successful
// mutations. A nil observer is a no-op.
func (m *Manager) SetObserver(o Observer) {
	m.observer = o
}

func (m *Manager) parentLock(parentID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(parentID))
	return &m.shards[h.Sum32()%lockShards]
}

// Create attaches child under parent with the given kind and weight. The
// association path is derived from the parent's own Contains path plus the
// next per-parent ordinal. For Contains edges the hierarchy invariants are
// enforced: no cycles, at most one Contains parent per child.
func (m *Manager) Create(ctx context.Context, parentID, childID string, kind Kind, weight int) (*Association, error) {
	if kind == "" {
		return nil, &IntegrityError{Reason: "association kind must not be empty"}
	}
	for _, id := range []string{parentID, childID} {
		ok, err := m.store.EntityExists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("check entity %s: %w", id, err)
		}
		if !ok {
			return nil, &EntityNotFoundError{ID: id}
		}
	}
	if kind == KindContains {
		if parentID == childID {
			return nil, &IntegrityError{Reason: "entity " + parentID + " cannot contain itself"}
		}
		cyclic, err := m.wouldCreateCycle(ctx, parentID, childID)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, &IntegrityError{
				Reason: fmt.Sprintf("attaching %s under %s would create a cycle", childID, parentID),
			}
		}
		if _, err := m.store.ContainsParent(ctx, childID); err == nil {
			return nil, &IntegrityError{Reason: "child " + childID + " already has a contains parent"}
		} else if !errors.Is(err, ErrAssociationNotFound) {
			return nil, err
		}
	}

	lock := m.parentLock(parentID)
	lock.Lock()
	defer lock.Unlock()

	parentPath, err := m.parentPath(ctx, parentID)
	if err != nil {
		return nil, err
	}

	var a *Association
	for attempt := 0; ; attempt++ {
		ord, err := m.store.NextOrdinal(ctx, parentID)
		if err != nil {
			return nil, err
		}
		a = &Association{
			ID:        uuid.NewString(),
			ParentID:  parentID,
			ChildID:   childID,
			Kind:      kind,
			Weight:    weight,
			Ord:       ord,
			Path:      ChildPath(parentPath, ord),
			CreatedAt: time.Now().UTC(),
		}
		err = m.store.PutAssociation(ctx, a)
		if err == nil {
			break
		}
		if errors.Is(err, ErrOrdinalConflict) && attempt < ordinalRetries {
			m.log.Debug("ordinal conflict, retrying",
				"parent", parentID, "ordinal", ord, "attempt", attempt+1)
			continue
		}
		return nil, err
	}

	m.log.Debug("association created",
		"id", a.ID, "parent", parentID, "child", childID, "kind", string(kind), "path", a.Path)
	if m.observer != nil {
		m.observer.AssociationCreated(ctx, a)
	}
	return a, nil
}

// parentPath resolves the path prefix for children of parentID: the parent's
// own Contains path, or the root literal when the parent is unattached.
func (m *Manager) parentPath(ctx context.Context, parentID string) (string, error) {
	in, err := m.store.ContainsParent(ctx, parentID)
	if errors.Is(err, ErrAssociationNotFound) {
		return RootPath, nil
	}
	if err != nil {
		return "", err
	}
	return in.Path, nil
}

// wouldCreateCycle walks Contains parents upward from parentID with a
// visited-set guard. True the moment childID is reached; false at a root.
// Iterative on purpose: corrupt data must not blow the stack or hang.
func (m *Manager) wouldCreateCycle(ctx context.Context, parentID, childID string) (bool, error) {
	visited := map[string]struct{}{}
	cur := parentID
	for {
		if cur == childID {
			return true, nil
		}
		if _, seen := visited[cur]; seen {
			// Pre-existing corruption. Refuse the edge rather than extend it.
			return true, nil
		}
		visited[cur] = struct{}{}
		in, err := m.store.ContainsParent(ctx, cur)
		if errors.Is(err, ErrAssociationNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		cur = in.ParentID
	}
}

// Get returns an association by id.
func (m *Manager) Get(ctx context.Context, id string) (*Association, error) {
	return m.store.Association(ctx, id)
}

// GetByPath returns the association addressed by a dot path.
func (m *Manager) GetByPath(ctx context.Context, path string) (*Association, error) {
	return m.store.AssociationByPath(ctx, path)
}

// Children returns all edges under parentID ascending by (weight, path).
func (m *Manager) Children(ctx context.Context, parentID string) ([]*Association, error) {
	return m.store.AssociationsByParent(ctx, parentID)
}

// UpdateWeight changes an edge's weight. Paths are untouched; only retrieval
// order shifts.
func (m *Manager) UpdateWeight(ctx context.Context, id string, weight int) error {
	if err := m.store.UpdateAssociationWeight(ctx, id, weight); err != nil {
		return err
	}
	if m.observer != nil {
		if a, err := m.store.Association(ctx, id); err == nil {
			m.observer.AssociationUpdated(ctx, a)
		}
	}
	return nil
}

// Remove detaches an edge and clears the store's child/parent indexes.
func (m *Manager) Remove(ctx context.Context, id string) error {
	a, err := m.store.Association(ctx, id)
	if err != nil {
		return err
	}
	if err := m.store.DeleteAssociation(ctx, id); err != nil {
		return err
	}
	m.log.Debug("association removed", "id", id, "path", a.Path)
	if m.observer != nil {
		m.observer.AssociationRemoved(ctx, a)
	}
	return nil
}

// Move reattaches a child under a new parent as remove-then-create,
// preserving the original kind and weight unless weight is non-nil.
//
// Not atomic. If the create fails after the remove, the child is left
// detached and the returned error says so; callers that need stronger
// guarantees must run against a transactional store. The original edge is
// the child's Contains attachment if it has one, otherwise its single edge
// of any kind; multiple non-Contains edges are ambiguous and rejected.
func (m *Manager) Move(ctx context.Context, childID, newParentID string, weight *int) (*Association, error) {
	old, err := m.store.ContainsParent(ctx, childID)
	if errors.Is(err, ErrAssociationNotFound) {
		all, lerr := m.store.AssociationsByChild(ctx, childID)
		if lerr != nil {
			return nil, lerr
		}
		switch len(all) {
		case 0:
			return nil, ErrAssociationNotFound
		case 1:
			old = all[0]
		default:
			return nil, &IntegrityError{
				Reason: fmt.Sprintf("child %s has %d associations, move target is ambiguous", childID, len(all)),
			}
		}
	} else if err != nil {
		return nil, err
	}

	w := old.Weight
	if weight != nil {
		w = *weight
	}

	if err := m.Remove(ctx, old.ID); err != nil {
		return nil, err
	}
	a, err := m.Create(ctx, newParentID, childID, old.Kind, w)
	if err != nil {
		m.log.Warn("move failed after detach, child left unattached",
			"child", childID, "old_parent", old.ParentID, "new_parent", newParentID, "error", err)
		return nil, fmt.Errorf("move %s to %s left child detached: %w", childID, newParentID, err)
	}
	return a, nil
}

// CreateEntity registers a new entity and returns it. The semantic name is
// optional; the store rejects duplicates.
func (m *Manager) CreateEntity(ctx context.Context, kind, semanticName string, data map[string]any) (*Entity, error) {
	now := time.Now().UTC()
	e := &Entity{
		ID:           uuid.NewString(),
		Kind:         kind,
		SemanticName: semanticName,
		Data:         data,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.PutEntity(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Entity returns an entity by id.
func (m *Manager) Entity(ctx context.Context, id string) (*Entity, error) {
	return m.store.Entity(ctx, id)
}

// UpdateEntityData replaces an entity's data payload.
func (m *Manager) UpdateEntityData(ctx context.Context, id string, data map[string]any) (*Entity, error) {
	e, err := m.store.Entity(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Data = data
	e.UpdatedAt = time.Now().UTC()
	if err := m.store.PutEntity(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntity removes an entity that is no longer part of the graph.
// An entity still targeted by any association, or still holding children of
// its own, is protected.
func (m *Manager) DeleteEntity(ctx context.Context, id string) error {
	children, err := m.store.AssociationsByParent(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return &IntegrityError{
			Reason: fmt.Sprintf("entity %s still has %d children", id, len(children)),
		}
	}
	incoming, err := m.store.AssociationsByChild(ctx, id)
	if err != nil {
		return err
	}
	if len(incoming) > 0 {
		return &IntegrityError{
			Reason: fmt.Sprintf("entity %s is still referenced by %d associations", id, len(incoming)),
		}
	}
	return m.store.DeleteEntity(ctx, id)
}
