package graph

import (
	"context"
	"testing"
)

func TestValidatePath(t *testing.T) {
	valid := []string{"content", "content.1", "content.1.2", "content.10.304"}
	for _, p := range valid {
		if err := ValidatePath(p); err != nil {
			t.Errorf("ValidatePath(%q) = %v, want nil", p, err)
		}
	}
	invalid := []string{"", "Content", "content.", "content..1", "1.content", "content.1.x", "content-1"}
	for _, p := range invalid {
		if err := ValidatePath(p); err == nil {
			t.Errorf("ValidatePath(%q) = nil, want error", p)
		}
	}
}

func TestChildPath(t *testing.T) {
	if got := ChildPath(RootPath, 1); got != "content.1" {
		t.Errorf("ChildPath = %q, want content.1", got)
	}
	if got := ChildPath("content.1", 3); got != "content.1.3" {
		t.Errorf("ChildPath = %q, want content.1.3", got)
	}
}

func TestPathOrdinal(t *testing.T) {
	if got := PathOrdinal("content"); got != 0 {
		t.Errorf("PathOrdinal(content) = %d, want 0", got)
	}
	if got := PathOrdinal("content.1.12"); got != 12 {
		t.Errorf("PathOrdinal(content.1.12) = %d, want 12", got)
	}
}

func TestMemoryStore_EntityRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	e := &Entity{ID: "e1", Kind: "page", SemanticName: "home", Data: map[string]any{"title": "Home"}}
	if err := store.PutEntity(ctx, e); err != nil {
		t.Fatalf("PutEntity returned error: %v", err)
	}

	got, err := store.Entity(ctx, "e1")
	if err != nil {
		t.Fatalf("Entity returned error: %v", err)
	}
	if got.SemanticName != "home" {
		t.Errorf("SemanticName = %q, want home", got.SemanticName)
	}

	byName, err := store.EntityBySemanticName(ctx, "home")
	if err != nil {
		t.Fatalf("EntityBySemanticName returned error: %v", err)
	}
	if byName.ID != "e1" {
		t.Errorf("ID = %q, want e1", byName.ID)
	}
}

func TestMemoryStore_EntityNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Entity(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("err = %v, want entity-not-found", err)
	}
}

func TestMemoryStore_NextOrdinalMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a1 := &Association{ID: "a1", ParentID: "p", ChildID: "c1", Kind: KindContains, Ord: 1, Path: "content.1"}
	a2 := &Association{ID: "a2", ParentID: "p", ChildID: "c2", Kind: KindContains, Ord: 2, Path: "content.2"}
	for _, a := range []*Association{a1, a2} {
		if err := store.PutAssociation(ctx, a); err != nil {
			t.Fatalf("PutAssociation(%s) returned error: %v", a.ID, err)
		}
	}

	// Removing the newest child must not make its ordinal reusable.
	if err := store.DeleteAssociation(ctx, "a2"); err != nil {
		t.Fatalf("DeleteAssociation returned error: %v", err)
	}
	n, err := store.NextOrdinal(ctx, "p")
	if err != nil {
		t.Fatalf("NextOrdinal returned error: %v", err)
	}
	if n != 3 {
		t.Errorf("NextOrdinal = %d, want 3", n)
	}
}

func TestMemoryStore_OrdinalConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a1 := &Association{ID: "a1", ParentID: "p", ChildID: "c1", Kind: KindReferences, Ord: 1, Path: "content.1"}
	if err := store.PutAssociation(ctx, a1); err != nil {
		t.Fatalf("PutAssociation returned error: %v", err)
	}
	dup := &Association{ID: "a2", ParentID: "p", ChildID: "c2", Kind: KindReferences, Ord: 1, Path: "content.1"}
	if err := store.PutAssociation(ctx, dup); err != ErrOrdinalConflict {
		t.Errorf("err = %v, want ErrOrdinalConflict", err)
	}
}

func TestMemoryStore_SingleContainsParent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a1 := &Association{ID: "a1", ParentID: "p1", ChildID: "c", Kind: KindContains, Ord: 1, Path: "content.1"}
	if err := store.PutAssociation(ctx, a1); err != nil {
		t.Fatalf("PutAssociation returned error: %v", err)
	}
	a2 := &Association{ID: "a2", ParentID: "p2", ChildID: "c", Kind: KindContains, Ord: 1, Path: "content.2.1"}
	if _, ok := store.PutAssociation(ctx, a2).(*IntegrityError); !ok {
		t.Error("second contains parent should be rejected with IntegrityError")
	}

	// References edges targeting the same child stay legal.
	a3 := &Association{ID: "a3", ParentID: "p2", ChildID: "c", Kind: KindReferences, Ord: 1, Path: "content.2.1"}
	if err := store.PutAssociation(ctx, a3); err != nil {
		t.Errorf("references edge rejected: %v", err)
	}
}
