package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcms/loom/internal/graph"
	"github.com/loomcms/loom/internal/slogutil"
)

func TestBuildTree_NestedChildren(t *testing.T) {
	ctx := context.Background()
	m := graph.NewManager(graph.NewMemoryStore(), slogutil.NewDiscard())

	site, err := m.CreateEntity(ctx, "site", "site", nil)
	require.NoError(t, err)
	page, err := m.CreateEntity(ctx, "page", "home", nil)
	require.NoError(t, err)
	block, err := m.CreateEntity(ctx, "block", "", nil)
	require.NoError(t, err)

	_, err = m.Create(ctx, site.ID, page.ID, graph.KindContains, 0)
	require.NoError(t, err)
	_, err = m.Create(ctx, page.ID, block.ID, graph.KindContains, 0)
	require.NoError(t, err)

	root, err := buildTree(ctx, m, site.ID, nil, map[string]struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "site", root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "home", root.Children[0].Name)
	require.Len(t, root.Children[0].Children, 1)
	// Nameless entities fall back to their id.
	assert.Equal(t, block.ID, root.Children[0].Children[0].Name)
}

func TestBuildTree_CorruptCycleSurfaced(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()

	// Plant a Contains cycle directly in the store, bypassing the manager's
	// checks, the way a hand-edited database would.
	for _, id := range []string{"a", "b"} {
		require.NoError(t, store.PutEntity(ctx, &graph.Entity{ID: id, Kind: "page"}))
	}
	require.NoError(t, store.PutAssociation(ctx, &graph.Association{
		ID: "e1", ParentID: "a", ChildID: "b", Kind: graph.KindContains,
		Ord: 1, Path: "content.1", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.PutAssociation(ctx, &graph.Association{
		ID: "e2", ParentID: "b", ChildID: "a", Kind: graph.KindContains,
		Ord: 1, Path: "content.1.1", CreatedAt: time.Now(),
	}))

	m := graph.NewManager(store, slogutil.NewDiscard())
	_, err := buildTree(ctx, m, "a", nil, map[string]struct{}{})
	var ie *graph.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Reason, "cycle")
}
