package editor

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// Snapshot is an independent copy of the scene content at one point in time.
type Snapshot struct {
	Vertices  []scene.Vertex
	Shapes    []scene.Shape
	Layers    []scene.Layer
	Timestamp time.Time
}

// History is a linear undo stack of snapshots with a cursor.
type History struct {
	entries []Snapshot
	index   int
	limit   int
}

func newHistory(limit int) *History {
	return &History{index: -1, limit: limit}
}

// push truncates everything after the cursor, appends snap and drops the
// oldest entries beyond the limit.
func (h *History) push(snap Snapshot) {
	h.entries = append(h.entries[:h.index+1], snap)
	if over := len(h.entries) - h.limit; h.limit > 0 && over > 0 {
		clear(h.entries[:over])
		h.entries = h.entries[over:]
	}
	h.index = len(h.entries) - 1
}

func (h *History) reset() {
	h.entries = nil
	h.index = -1
}

// SaveToHistory records the current state. Unforced saves are skipped while a
// transform is in progress.
func (s *Store) SaveToHistory(force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(force)
}

// Undo restores the previous snapshot and clears the selection. It reports
// false at the start of history.
func (s *Store) Undo() bool {
	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committing || s.history.index <= 0 {
		return false
	}
	return s.jumpLocked(s.history.index - 1)
}

// Redo re-applies the next snapshot. It reports false at the end of history.
func (s *Store) Redo() bool {
	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committing || s.history.index >= len(s.history.entries)-1 {
		return false
	}
	return s.jumpLocked(s.history.index + 1)
}

func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.reset()
}

func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.index > 0
}

func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.index < len(s.history.entries)-1
}

func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history.entries)
}

func (s *Store) HistoryIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.index
}

func (s *Store) saveLocked(force bool) {
	if !force && s.session != nil {
		return
	}
	snap, err := s.snapshotLocked()
	if err != nil {
		s.log.Error("history snapshot failed", "error", err)
		return
	}
	s.history.push(snap)
}

func (s *Store) snapshotLocked() (Snapshot, error) {
	shapes, err := deepCopy(s.shapes)
	if err != nil {
		return Snapshot{}, fmt.Errorf("copy shapes: %w", err)
	}
	layers, err := deepCopy(s.layers)
	if err != nil {
		return Snapshot{}, fmt.Errorf("copy layers: %w", err)
	}
	return Snapshot{
		Vertices:  s.vertexListLocked(),
		Shapes:    shapes,
		Layers:    layers,
		Timestamp: time.Now(),
	}, nil
}

func (s *Store) jumpLocked(index int) bool {
	if err := s.restoreLocked(s.history.entries[index]); err != nil {
		s.log.Error("history restore failed", "index", index, "error", err)
		return false
	}
	s.history.index = index
	s.emitLocked(Event{Type: EventHistoryRestored, Data: index})
	return true
}

// restoreLocked replaces the scene content with a copy of snap. Any active
// drag is dropped and the selection cleared.
func (s *Store) restoreLocked(snap Snapshot) error {
	shapes, err := deepCopy(snap.Shapes)
	if err != nil {
		return fmt.Errorf("copy shapes: %w", err)
	}
	layers, err := deepCopy(snap.Layers)
	if err != nil {
		return fmt.Errorf("copy layers: %w", err)
	}

	s.cancelSessionLocked()
	s.vertices = make(map[string]scene.Vertex, len(snap.Vertices))
	for _, v := range snap.Vertices {
		s.vertices[v.ID] = v
	}
	s.shapes = normalizeShapes(shapes)
	s.layers = normalizeLayers(layers)
	s.clearSelectionLocked()
	return nil
}

func deepCopy[T any](src T) (T, error) {
	var dst T
	err := copier.CopyWithOption(&dst, &src, copier.Option{DeepCopy: true})
	return dst, err
}

// normalizeShapes gives every shape a non-nil vertex list.
func normalizeShapes(shapes []scene.Shape) []scene.Shape {
	if shapes == nil {
		return []scene.Shape{}
	}
	for i := range shapes {
		if shapes[i].Vertices == nil {
			shapes[i].Vertices = []string{}
		}
		shapes[i].Selected = false
	}
	return shapes
}

// normalizeLayers guarantees at least one layer, each with a non-nil element list.
func normalizeLayers(layers []scene.Layer) []scene.Layer {
	if len(layers) == 0 {
		return []scene.Layer{scene.NewDefaultLayer()}
	}
	for i := range layers {
		if layers[i].Elements == nil {
			layers[i].Elements = []scene.LayerElement{}
		}
	}
	return layers
}
