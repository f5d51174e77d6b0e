package model

import (
	"sync"

	"github.com/magnusoverli/ember-plus-sub000/ecos"
)

// Store is the path-keyed device tree behind a narrow API:
// get/put/children/delete/iter_roots, insertion order preserved, atomic
// per-path reads/writes. One Store belongs exclusively to one engine
// (consumer session or provider device); the host only ever observes it
// through a snapshot view, never mutates it directly.
type Store struct {
	mu        sync.RWMutex
	elems     map[string]Element
	rootPaths []Path // insertion order of top-level elements
	rootSet   map[string]bool
	streamIDs map[int64]string // streamIdentifier -> owning path, invariant 6
}

func NewStore() *Store {
	return &Store{
		elems:     make(map[string]Element),
		rootSet:   make(map[string]bool),
		streamIDs: make(map[int64]string),
	}
}

// Get returns a defensive clone of the element at path, or nil.
func (s *Store) Get(p Path) Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elems[p.String()]
	if !ok {
		return nil
	}
	return cloneElement(e)
}

// Kind reports the kind stored at path without cloning, or false if absent.
func (s *Store) Kind(p Path) (Kind, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elems[p.String()]
	if !ok {
		return 0, false
	}
	return e.Kind(), true
}

// Put inserts or replaces the element at its own Path, enforcing that the
// element kind is stable, a parameter's value type is stable once
// observed non-None, and streamIdentifier stays unique. Children/parent
// linkage (invariant 1) is the caller's responsibility: Put only stores
// the element; the caller must also append the child to the parent Node's
// Children slice (see Store.Link).
func (s *Store) Put(e Element) error {
	key := e.path().String()
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.elems[key]; ok {
		if existing.Kind() != e.Kind() {
			return ecos.NewErrSemantic("path %s: kind changed from %v to %v", key, existing.Kind(), e.Kind())
		}
		if ep, ok2 := existing.(*Parameter); ok2 {
			np := e.(*Parameter)
			if ep.Value.Type != TypeNone && np.Value.Type != TypeNone && ep.Value.Type != np.Value.Type {
				return ecos.NewErrSemantic("parameter %s: type changed from %v to %v", key, ep.Value.Type, np.Value.Type)
			}
		}
	}

	if pm, ok := e.(*Parameter); ok && pm.StreamID != 0 {
		if owner, exists := s.streamIDs[pm.StreamID]; exists && owner != key {
			return ecos.NewErrSemantic("streamIdentifier %d already used by %s", pm.StreamID, owner)
		}
		s.streamIDs[pm.StreamID] = key
	}

	if _, existed := s.elems[key]; !existed && len(e.path()) == 1 {
		s.rootPaths = append(s.rootPaths, e.path().Clone())
		s.rootSet[key] = true
	}
	s.elems[key] = e
	return nil
}

// Link appends child to parent's ordered Children list if not already
// present. parent must already exist and be a Node.
func (s *Store) Link(parent Path, child Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elems[parent.String()]
	if !ok {
		return ecos.NewErrNotFound("node %s", parent)
	}
	n, ok := e.(*Node)
	if !ok {
		return ecos.NewErrSemantic("path %s is not a node, cannot parent children", parent)
	}
	for _, c := range n.Children {
		if c.Equal(child) {
			return nil
		}
	}
	n.Children = append(n.Children, child.Clone())
	return nil
}

// Children returns the ordered child paths of a Node, or nil if p is a
// leaf or absent. A matrix's synthetic label sub-paths are not stored, so
// they also yield nil.
func (s *Store) Children(p Path) []Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elems[p.String()]
	if !ok {
		return nil
	}
	if n, ok := e.(*Node); ok {
		out := make([]Path, len(n.Children))
		for i, c := range n.Children {
			out[i] = c.Clone()
		}
		return out
	}
	return nil
}

// Delete removes the element and unregisters any streamIdentifier it held.
// Children are not recursively removed; callers tear down a whole tree via
// session/snapshot replacement, not ad hoc deletes.
func (s *Store) Delete(p Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.String()
	if e, ok := s.elems[key]; ok {
		if pm, ok := e.(*Parameter); ok && pm.StreamID != 0 {
			delete(s.streamIDs, pm.StreamID)
		}
		delete(s.elems, key)
	}
	if s.rootSet[key] {
		delete(s.rootSet, key)
		for i, rp := range s.rootPaths {
			if rp.Equal(p) {
				s.rootPaths = append(s.rootPaths[:i], s.rootPaths[i+1:]...)
				break
			}
		}
	}
}

// IterRoots returns the top-level element paths in insertion order.
func (s *Store) IterRoots() []Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Path, len(s.rootPaths))
	for i, p := range s.rootPaths {
		out[i] = p.Clone()
	}
	return out
}

// StreamOwner resolves a streamIdentifier to its owning path.
func (s *Store) StreamOwner(id int64) (Path, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.streamIDs[id]
	if !ok {
		return nil, false
	}
	return ParsePath(key)
}

// MutateMatrix applies fn to the matrix at p under the store's single lock,
// so the connection-map mutation is atomic with respect to readers of the
// element's connection map.
func (s *Store) MutateMatrix(p Path, fn func(*Matrix) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elems[p.String()]
	if !ok {
		return ecos.NewErrNotFound("matrix %s", p)
	}
	m, ok := e.(*Matrix)
	if !ok {
		return ecos.NewErrSemantic("path %s is not a matrix", p)
	}
	return fn(m)
}

func cloneElement(e Element) Element {
	switch v := e.(type) {
	case *Node:
		return v.clone()
	case *Parameter:
		return v.clone()
	case *Matrix:
		return v.clone()
	case *Function:
		return v.clone()
	default:
		return e
	}
}
