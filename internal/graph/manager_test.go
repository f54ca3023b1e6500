package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewManager(store, nil), store
}

func mustEntity(t *testing.T, m *Manager, kind, name string) *Entity {
	t.Helper()
	e, err := m.CreateEntity(context.Background(), kind, name, nil)
	require.NoError(t, err)
	return e
}

func TestManager_CreatePathsAreSequential(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "page-a")
	secB := mustEntity(t, m, "section", "section-b")
	secC := mustEntity(t, m, "section", "section-c")

	a1, err := m.Create(ctx, page.ID, secB.ID, KindContains, 0)
	require.NoError(t, err)
	assert.Equal(t, "content.1", a1.Path)

	a2, err := m.Create(ctx, page.ID, secC.ID, KindContains, 0)
	require.NoError(t, err)
	assert.Equal(t, "content.2", a2.Path)

	children, err := m.Children(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, secB.ID, children[0].ChildID)
	assert.Equal(t, secC.ID, children[1].ChildID)
}

func TestManager_NestedPaths(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "")
	sec := mustEntity(t, m, "section", "")
	block := mustEntity(t, m, "block", "")

	_, err := m.Create(ctx, page.ID, sec.ID, KindContains, 0)
	require.NoError(t, err)
	a, err := m.Create(ctx, sec.ID, block.ID, KindContains, 0)
	require.NoError(t, err)
	assert.Equal(t, "content.1.1", a.Path)

	got, err := m.GetByPath(ctx, "content.1.1")
	require.NoError(t, err)
	assert.Equal(t, block.ID, got.ChildID)
}

func TestManager_CreateMissingEntity(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	page := mustEntity(t, m, "page", "")

	_, err := m.Create(ctx, page.ID, "nope", KindContains, 0)
	var enf *EntityNotFoundError
	require.ErrorAs(t, err, &enf)
	assert.Equal(t, "nope", enf.ID)
}

func TestManager_CycleRejected(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	a := mustEntity(t, m, "page", "")
	b := mustEntity(t, m, "section", "")
	c := mustEntity(t, m, "block", "")

	_, err := m.Create(ctx, a.ID, b.ID, KindContains, 0)
	require.NoError(t, err)
	_, err = m.Create(ctx, b.ID, c.ID, KindContains, 0)
	require.NoError(t, err)

	// c is a transitive descendant of a; attaching a under c closes a cycle.
	_, err = m.Create(ctx, c.ID, a.ID, KindContains, 0)
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)

	// The failed attach must leave the graph unchanged.
	children, err := m.Children(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestManager_SelfContainmentRejected(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	a := mustEntity(t, m, "page", "")

	_, err := m.Create(ctx, a.ID, a.ID, KindContains, 0)
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
}

func TestManager_ReferencesDoNotFormHierarchy(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	a := mustEntity(t, m, "page", "")
	b := mustEntity(t, m, "page", "")

	// Mutual references are legal; only Contains is acyclic.
	_, err := m.Create(ctx, a.ID, b.ID, KindReferences, 0)
	require.NoError(t, err)
	_, err = m.Create(ctx, b.ID, a.ID, KindReferences, 0)
	require.NoError(t, err)
}

func TestManager_WeightOrdering(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "")
	weights := []int{5, 1, 3}
	ids := make([]string, len(weights))
	for i, w := range weights {
		child := mustEntity(t, m, "section", "")
		_, err := m.Create(ctx, page.ID, child.ID, KindContains, w)
		require.NoError(t, err)
		ids[i] = child.ID
	}

	children, err := m.Children(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, []int{1, 3, 5}, []int{children[0].Weight, children[1].Weight, children[2].Weight})
	// Equal creation order, weights decide: inserted [5,1,3] comes back [1,3,5].
	assert.Equal(t, ids[1], children[0].ChildID)
	assert.Equal(t, ids[2], children[1].ChildID)
	assert.Equal(t, ids[0], children[2].ChildID)
}

func TestManager_EqualWeightsTieBreakByPath(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "")
	var ids []string
	for i := 0; i < 12; i++ {
		child := mustEntity(t, m, "section", "")
		_, err := m.Create(ctx, page.ID, child.ID, KindContains, 0)
		require.NoError(t, err)
		ids = append(ids, child.ID)
	}

	children, err := m.Children(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, children, 12)
	// Ordinal 10+ must not sort lexicographically before 2.
	for i, c := range children {
		assert.Equal(t, ids[i], c.ChildID, "position %d", i)
	}
}

func TestManager_MovePreservesKind(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	p1 := mustEntity(t, m, "page", "")
	p2 := mustEntity(t, m, "page", "")
	c := mustEntity(t, m, "asset", "")

	_, err := m.Create(ctx, p1.ID, c.ID, KindReferences, 7)
	require.NoError(t, err)

	moved, err := m.Move(ctx, c.ID, p2.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, KindReferences, moved.Kind)
	assert.Equal(t, 7, moved.Weight)
	assert.Equal(t, p2.ID, moved.ParentID)

	old, err := m.Children(ctx, p1.ID)
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestManager_MoveWithWeightOverride(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	p1 := mustEntity(t, m, "page", "")
	p2 := mustEntity(t, m, "page", "")
	c := mustEntity(t, m, "section", "")

	_, err := m.Create(ctx, p1.ID, c.ID, KindContains, 3)
	require.NoError(t, err)

	w := 9
	moved, err := m.Move(ctx, c.ID, p2.ID, &w)
	require.NoError(t, err)
	assert.Equal(t, 9, moved.Weight)
	assert.Equal(t, KindContains, moved.Kind)
}

func TestManager_MoveToMissingParentLeavesChildDetached(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	p1 := mustEntity(t, m, "page", "")
	c := mustEntity(t, m, "section", "")
	_, err := m.Create(ctx, p1.ID, c.ID, KindContains, 0)
	require.NoError(t, err)

	_, err = m.Move(ctx, c.ID, "ghost", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detached")

	// Documented non-atomicity: the old edge is gone.
	_, err = m.store.ContainsParent(ctx, c.ID)
	assert.True(t, errors.Is(err, ErrAssociationNotFound))
}

func TestManager_UpdateWeightReorders(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "")
	c1 := mustEntity(t, m, "section", "")
	c2 := mustEntity(t, m, "section", "")

	a1, err := m.Create(ctx, page.ID, c1.ID, KindContains, 1)
	require.NoError(t, err)
	_, err = m.Create(ctx, page.ID, c2.ID, KindContains, 2)
	require.NoError(t, err)

	require.NoError(t, m.UpdateWeight(ctx, a1.ID, 10))

	children, err := m.Children(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, c2.ID, children[0].ChildID)
	assert.Equal(t, c1.ID, children[1].ChildID)
}

func TestManager_DeleteEntityProtected(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "")
	sec := mustEntity(t, m, "section", "")
	_, err := m.Create(ctx, page.ID, sec.ID, KindContains, 0)
	require.NoError(t, err)

	var ie *IntegrityError
	require.ErrorAs(t, m.DeleteEntity(ctx, page.ID), &ie) // still a parent
	require.ErrorAs(t, m.DeleteEntity(ctx, sec.ID), &ie)  // still a child

	// Detach, then both become deletable.
	children, err := m.Children(ctx, page.ID)
	require.NoError(t, err)
	require.NoError(t, m.Remove(ctx, children[0].ID))
	require.NoError(t, m.DeleteEntity(ctx, sec.ID))
	require.NoError(t, m.DeleteEntity(ctx, page.ID))
}

func TestManager_RemoveClearsPathIndex(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "")
	sec := mustEntity(t, m, "section", "")
	a, err := m.Create(ctx, page.ID, sec.ID, KindContains, 0)
	require.NoError(t, err)

	require.NoError(t, m.Remove(ctx, a.ID))
	_, err = m.GetByPath(ctx, "content.1")
	assert.True(t, errors.Is(err, ErrAssociationNotFound))
}

func TestManager_PathsSkipAfterRemoval(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	page := mustEntity(t, m, "page", "")
	for i := 0; i < 3; i++ {
		sec := mustEntity(t, m, "section", "")
		_, err := m.Create(ctx, page.ID, sec.ID, KindContains, 0)
		require.NoError(t, err)
	}
	children, err := m.Children(ctx, page.ID)
	require.NoError(t, err)
	require.NoError(t, m.Remove(ctx, children[1].ID))

	// New sibling gets ordinal 4, not a reuse of the freed 2.
	late := mustEntity(t, m, "section", "")
	a, err := m.Create(ctx, page.ID, late.ID, KindContains, 0)
	require.NoError(t, err)
	assert.Equal(t, "content.4", a.Path)
}

type observerRecorder struct {
	created []string
	removed []string
	updated []string
}

func (r *observerRecorder) AssociationCreated(_ context.Context, a *Association) {
	r.created = append(r.created, a.Path)
}

func (r *observerRecorder) AssociationUpdated(_ context.Context, a *Association) {
	r.updated = append(r.updated, a.ID)
}

func (r *observerRecorder) AssociationRemoved(_ context.Context, a *Association) {
	r.removed = append(r.removed, a.Path)
}

func TestManager_ObserverSeesMutations(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	rec := &observerRecorder{}
	m.SetObserver(rec)

	page := mustEntity(t, m, "page", "")
	sec := mustEntity(t, m, "section", "")
	a, err := m.Create(ctx, page.ID, sec.ID, KindContains, 0)
	require.NoError(t, err)
	require.NoError(t, m.UpdateWeight(ctx, a.ID, 5))
	require.NoError(t, m.Remove(ctx, a.ID))

	assert.Equal(t, []string{"content.1"}, rec.created)
	assert.Equal(t, []string{a.ID}, rec.updated)
	assert.Equal(t, []string{"content.1"}, rec.removed)
}

func TestManager_ObserverFailedMutationSilent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	rec := &observerRecorder{}
	m.SetObserver(rec)

	page := mustEntity(t, m, "page", "")
	_, err := m.Create(ctx, page.ID, "missing", KindContains, 0)
	require.Error(t, err)
	assert.Empty(t, rec.created)
}
