package graph

import (
	"context"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// MemoryStore is the in-memory Store used by tests, tooling, and small
// single-process deployments. All maps sit behind one RWMutex; readers
// proceed concurrently and writers hold the exclusive section only for the
// map mutation itself.
//
// Per-parent edge sets are kept as roaring bitmaps over an interned uint32
// association ID space. This keeps AssociationsByParent O(k) in the number
// of edges under the parent instead of O(N) over the whole graph.
type MemoryStore struct {
	mu           sync.RWMutex
	entities     map[string]*Entity
	bySemantic   map[string]string // semantic name → entity ID
	associations map[string]*Association
	byPath       map[string]string // path → association ID
	byChild      map[string][]string
	containsIn   map[string]string // child ID → Contains association ID

	// parentEdges: parent entity ID → bitmap of interned association IDs.
	parentEdges map[string]*roaring.Bitmap
	assocIntID  map[string]uint32
	intToAssoc  []string
	nextIntID   uint32

	// nextOrd: parent ID → next ordinal. Monotonic, never reset on delete.
	nextOrd map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:     make(map[string]*Entity),
		bySemantic:   make(map[string]string),
		associations: make(map[string]*Association),
		byPath:       make(map[string]string),
		byChild:      make(map[string][]string),
		containsIn:   make(map[string]string),
		parentEdges:  make(map[string]*roaring.Bitmap),
		assocIntID:   make(map[string]uint32),
		nextOrd:      make(map[string]int),
	}
}

func (s *MemoryStore) PutEntity(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entities[e.ID]; ok && old.SemanticName != "" {
		delete(s.bySemantic, old.SemanticName)
	}
	cp := *e
	s.entities[e.ID] = &cp
	if e.SemanticName != "" {
		s.bySemantic[e.SemanticName] = e.ID
	}
	return nil
}

func (s *MemoryStore) Entity(_ context.Context, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, &EntityNotFoundError{ID: id}
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) EntityBySemanticName(ctx context.Context, name string) (*Entity, error) {
	s.mu.RLock()
	id, ok := s.bySemantic[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &EntityNotFoundError{ID: name}
	}
	return s.Entity(ctx, id)
}

func (s *MemoryStore) EntityExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[id]
	return ok, nil
}

func (s *MemoryStore) DeleteEntity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return &EntityNotFoundError{ID: id}
	}
	if e.SemanticName != "" {
		delete(s.bySemantic, e.SemanticName)
	}
	delete(s.entities, id)
	return nil
}

// indexAssociation assigns an interned ID and registers the edge in the
// per-parent bitmap. Must be called with s.mu held.
func (s *MemoryStore) indexAssociation(a *Association) {
	intID, ok := s.assocIntID[a.ID]
	if !ok {
		intID = s.nextIntID
		s.nextIntID++
		s.assocIntID[a.ID] = intID
		for uint32(len(s.intToAssoc)) <= intID {
			s.intToAssoc = append(s.intToAssoc, "")
		}
		s.intToAssoc[intID] = a.ID
	}
	bm, ok := s.parentEdges[a.ParentID]
	if !ok {
		bm = roaring.New()
		s.parentEdges[a.ParentID] = bm
	}
	bm.Add(intID)
}

func (s *MemoryStore) PutAssociation(_ context.Context, a *Association) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicate-ordinal protection: the manager serializes per parent, but
	// the store still refuses collisions so misuse cannot corrupt paths.
	if bm, ok := s.parentEdges[a.ParentID]; ok {
		it := bm.Iterator()
		for it.HasNext() {
			if sib := s.associations[s.intToAssoc[it.Next()]]; sib != nil && sib.Ord == a.Ord && sib.ID != a.ID {
				return ErrOrdinalConflict
			}
		}
	}
	if a.Kind == KindContains {
		if existing, ok := s.containsIn[a.ChildID]; ok && existing != a.ID {
			return &IntegrityError{Reason: "child " + a.ChildID + " already has a contains parent"}
		}
	}

	cp := *a
	s.associations[a.ID] = &cp
	s.byPath[a.Path] = a.ID
	s.byChild[a.ChildID] = append(s.byChild[a.ChildID], a.ID)
	if a.Kind == KindContains {
		s.containsIn[a.ChildID] = a.ID
	}
	s.indexAssociation(a)
	if a.Ord >= s.nextOrd[a.ParentID] {
		s.nextOrd[a.ParentID] = a.Ord + 1
	}
	return nil
}

func (s *MemoryStore) Association(_ context.Context, id string) (*Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.associations[id]
	if !ok {
		return nil, ErrAssociationNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) AssociationByPath(ctx context.Context, path string) (*Association, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	id, ok := s.byPath[path]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrAssociationNotFound
	}
	return s.Association(ctx, id)
}

func (s *MemoryStore) ContainsParent(_ context.Context, childID string) (*Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.containsIn[childID]
	if !ok {
		return nil, ErrAssociationNotFound
	}
	cp := *s.associations[id]
	return &cp, nil
}

func (s *MemoryStore) AssociationsByParent(_ context.Context, parentID string) ([]*Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.parentEdges[parentID]
	if !ok {
		return nil, nil
	}
	out := make([]*Association, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if a, ok := s.associations[s.intToAssoc[it.Next()]]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAssociations(out)
	return out, nil
}

func (s *MemoryStore) AssociationsByChild(_ context.Context, childID string) ([]*Association, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byChild[childID]
	out := make([]*Association, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.associations[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortAssociations(out)
	return out, nil
}

func (s *MemoryStore) NextOrdinal(_ context.Context, parentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nextOrd[parentID]
	if !ok || n < 1 {
		return 1, nil
	}
	return n, nil
}

func (s *MemoryStore) UpdateAssociationWeight(_ context.Context, id string, weight int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.associations[id]
	if !ok {
		return ErrAssociationNotFound
	}
	a.Weight = weight
	return nil
}

func (s *MemoryStore) DeleteAssociation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.associations[id]
	if !ok {
		return ErrAssociationNotFound
	}
	delete(s.associations, id)
	delete(s.byPath, a.Path)
	if s.containsIn[a.ChildID] == id {
		delete(s.containsIn, a.ChildID)
	}
	ids := s.byChild[a.ChildID]
	kept := ids[:0]
	for _, aid := range ids {
		if aid != id {
			kept = append(kept, aid)
		}
	}
	if len(kept) == 0 {
		delete(s.byChild, a.ChildID)
	} else {
		s.byChild[a.ChildID] = kept
	}
	if intID, ok := s.assocIntID[id]; ok {
		if bm, ok := s.parentEdges[a.ParentID]; ok {
			bm.Remove(intID)
			if bm.IsEmpty() {
				delete(s.parentEdges, a.ParentID)
			}
		}
		delete(s.assocIntID, id)
		s.intToAssoc[intID] = ""
	}
	// nextOrd intentionally untouched: ordinals are never reused.
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
