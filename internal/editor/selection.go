package editor

import (
	"fmt"
	"slices"
)

// SelectVertex toggles id when multi is set, otherwise makes it the only
// selected vertex.
func (s *Store) SelectVertex(id string, multi bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[id]; !ok {
		return fmt.Errorf("select vertex %s: %w", id, ErrVertexNotFound)
	}
	if multi {
		s.selVertices.Toggle(id)
	} else {
		s.selVertices.Clear()
		s.selShapes.Clear()
		s.selVertices.Add(id)
	}
	s.selectionChangedLocked()
	return nil
}

// SelectMultipleVertices applies SelectVertex semantics to a deduplicated
// batch. Unknown ids are ignored.
func (s *Store) SelectMultipleVertices(ids []string, multi bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(ids))
	batch := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := s.vertices[id]; ok {
			batch = append(batch, id)
		}
	}

	if multi {
		s.selVertices.ToggleAll(batch)
	} else {
		s.selVertices.Clear()
		s.selShapes.Clear()
		for _, id := range batch {
			s.selVertices.Add(id)
		}
	}
	s.selectionChangedLocked()
}

// SelectShape selects a shape together with its vertices. With multi the shape
// and its vertices are toggled as a unit; without it they replace the selection.
func (s *Store) SelectShape(id string, multi bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settleSelectionLocked()
	i := s.shapeIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("select shape %s: %w", id, ErrShapeNotFound)
	}
	sh := s.shapes[i]

	switch {
	case !multi:
		s.selectShapesOnlyLocked([]string{id})
		return nil
	case s.selShapes.Has(id):
		s.selShapes.Remove(id)
		drop := make(map[string]struct{}, len(sh.Vertices))
		for _, vid := range sh.Vertices {
			drop[vid] = struct{}{}
		}
		s.selVertices.RemoveAll(drop)
	default:
		s.selShapes.Add(id)
		for _, vid := range sh.Vertices {
			s.selVertices.Add(vid)
		}
	}
	s.selectionChangedLocked()
	return nil
}

func (s *Store) ClearAllSelections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

func (s *Store) SelectAllObjects() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.vertexListLocked() {
		s.selVertices.Add(v.ID)
	}
	for _, sh := range s.shapes {
		s.selShapes.Add(sh.ID)
	}
	s.derivePending = false
}

// SelectedVertices returns the selected vertex ids in selection order.
func (s *Store) SelectedVertices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selVertices.Slice()
}

// SelectedShapes returns the selected shape ids, settling any pending
// re-derivation first.
func (s *Store) SelectedShapes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleSelectionLocked()
	return s.selShapes.Slice()
}

func (s *Store) IsVertexSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selVertices.Has(id)
}

func (s *Store) IsShapeSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleSelectionLocked()
	return s.selShapes.Has(id)
}

// SelectionPending reports whether a shape re-derivation is waiting on the
// scheduler.
func (s *Store) SelectionPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.derivePending
}

// selectShapesOnlyLocked replaces the selection with the given shapes and
// every vertex they own.
func (s *Store) selectShapesOnlyLocked(ids []string) {
	s.selVertices.Clear()
	s.selShapes.Clear()
	for _, id := range ids {
		i := s.shapeIndexLocked(id)
		if i < 0 {
			continue
		}
		s.selShapes.Add(id)
		for _, vid := range s.shapes[i].Vertices {
			s.selVertices.Add(vid)
		}
	}
	s.selectionChangedLocked()
}

func (s *Store) clearSelectionLocked() {
	s.selVertices.Clear()
	s.selShapes.Clear()
	s.derivePending = false
}

// selectionChangedLocked re-derives shape selection after a vertex-level
// change. Large scenes post the scan to the scheduler instead of running it
// inline; reads of shape selection settle it on demand.
func (s *Store) selectionChangedLocked() {
	if len(s.vertices) <= s.opts.DeferSelectionThreshold {
		s.derivePending = false
		s.deriveLocked()
		return
	}
	if s.derivePending {
		return
	}
	s.derivePending = true
	s.sched.Post(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.settleSelectionLocked()
	})
}

func (s *Store) settleSelectionLocked() {
	if !s.derivePending {
		return
	}
	s.derivePending = false
	s.deriveLocked()
}

// deriveLocked selects exactly the shapes whose vertices are all selected.
// Shapes without vertices keep their current state.
func (s *Store) deriveLocked() {
	drop := make(map[string]struct{})
	for _, sh := range s.shapes {
		if len(sh.Vertices) == 0 {
			continue
		}
		if slices.ContainsFunc(sh.Vertices, func(id string) bool { return !s.selVertices.Has(id) }) {
			drop[sh.ID] = struct{}{}
		} else {
			s.selShapes.Add(sh.ID)
		}
	}
	if len(drop) > 0 {
		s.selShapes.RemoveAll(drop)
	}
}
