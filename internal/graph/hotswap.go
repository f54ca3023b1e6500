package graph

import (
	"context"
	"sync"
)

// HotSwapStore is a thread-safe wrapper that allows replacing the underlying
// store instance while readers are active. Used by bulk import: a rebuilt
// store is prepared offline and swapped in atomically, then the old one is
// closed by the caller once in-flight reads drain.
type HotSwapStore struct {
	mu      sync.RWMutex
	current Store
}

func NewHotSwapStore(initial Store) *HotSwapStore {
	return &HotSwapStore{current: initial}
}

// Swap replaces the current store and returns the previous one so the caller
// can close it.
func (h *HotSwapStore) Swap(next Store) Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.current
	h.current = next
	return prev
}

func (h *HotSwapStore) get() Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

func (h *HotSwapStore) PutEntity(ctx context.Context, e *Entity) error {
	return h.get().PutEntity(ctx, e)
}

func (h *HotSwapStore) Entity(ctx context.Context, id string) (*Entity, error) {
	return h.get().Entity(ctx, id)
}

func (h *HotSwapStore) EntityBySemanticName(ctx context.Context, name string) (*Entity, error) {
	return h.get().EntityBySemanticName(ctx, name)
}

func (h *HotSwapStore) EntityExists(ctx context.Context, id string) (bool, error) {
	return h.get().EntityExists(ctx, id)
}

func (h *HotSwapStore) DeleteEntity(ctx context.Context, id string) error {
	return h.get().DeleteEntity(ctx, id)
}

func (h *HotSwapStore) PutAssociation(ctx context.Context, a *Association) error {
	return h.get().PutAssociation(ctx, a)
}

func (h *HotSwapStore) Association(ctx context.Context, id string) (*Association, error) {
	return h.get().Association(ctx, id)
}

func (h *HotSwapStore) AssociationByPath(ctx context.Context, path string) (*Association, error) {
	return h.get().AssociationByPath(ctx, path)
}

func (h *HotSwapStore) ContainsParent(ctx context.Context, childID string) (*Association, error) {
	return h.get().ContainsParent(ctx, childID)
}

func (h *HotSwapStore) AssociationsByParent(ctx context.Context, parentID string) ([]*Association, error) {
	return h.get().AssociationsByParent(ctx, parentID)
}

func (h *HotSwapStore) AssociationsByChild(ctx context.Context, childID string) ([]*Association, error) {
	return h.get().AssociationsByChild(ctx, childID)
}

func (h *HotSwapStore) NextOrdinal(ctx context.Context, parentID string) (int, error) {
	return h.get().NextOrdinal(ctx, parentID)
}

func (h *HotSwapStore) UpdateAssociationWeight(ctx context.Context, id string, weight int) error {
	return h.get().UpdateAssociationWeight(ctx, id, weight)
}

func (h *HotSwapStore) DeleteAssociation(ctx context.Context, id string) error {
	return h.get().DeleteAssociation(ctx, id)
}

func (h *HotSwapStore) Close() error {
	return h.get().Close()
}

var _ Store = (*HotSwapStore)(nil)
