package editor

import (
	"fmt"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// VertexSpec describes a vertex to create. Empty fields take the layer defaults.
type VertexSpec struct {
	Position   scene.Vec3 `json:"position"`
	EffectType string     `json:"effectType,omitempty"`
	Layer      string     `json:"layer,omitempty"`
	Color      string     `json:"color,omitempty"`
	Hidden     bool       `json:"hidden,omitempty"`
	GroupID    string     `json:"groupId,omitempty"`
}

// VertexPatch is a partial vertex update; nil fields are left alone.
type VertexPatch struct {
	Position   *scene.Vec3 `json:"position,omitempty"`
	EffectType *string     `json:"effectType,omitempty"`
	Layer      *string     `json:"layer,omitempty"`
	Color      *string     `json:"color,omitempty"`
	Visible    *bool       `json:"visible,omitempty"`
}

type VertexUpdate struct {
	ID    string      `json:"id"`
	Patch VertexPatch `json:"patch"`
}

// AddVertex creates one vertex and records a history entry.
func (s *Store) AddVertex(spec VertexSpec) (string, error) {
	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.insertVertexLocked(spec)
	s.checkLargeSceneLocked()
	s.saveLocked(false)
	return id, nil
}

// AddVerticesBatch creates all vertices before a single history entry.
func (s *Store) AddVerticesBatch(specs []VertexSpec) ([]string, error) {
	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(specs))
	for i, spec := range specs {
		ids[i] = s.insertVertexLocked(spec)
	}
	if len(ids) > 0 {
		s.checkLargeSceneLocked()
		s.saveLocked(false)
	}
	return ids, nil
}

// UpdateVertex merges a patch into a vertex. It does not record history;
// callers completing a batch of edits do that.
func (s *Store) UpdateVertex(id string, patch VertexPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.applyVertexPatchLocked(id, patch) {
		return fmt.Errorf("update vertex %s: %w", id, ErrVertexNotFound)
	}
	return nil
}

// UpdateMultipleVertices merges every patch in one pass, skipping ids that no
// longer exist.
func (s *Store) UpdateMultipleVertices(updates []VertexUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		s.applyVertexPatchLocked(u.ID, u.Patch)
	}
}

// DeleteVertex removes a vertex from the map, the selection, every shape and
// every layer, then records history.
func (s *Store) DeleteVertex(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vertices[id]; !ok {
		return fmt.Errorf("delete vertex %s: %w", id, ErrVertexNotFound)
	}
	s.deleteVerticesLocked(map[string]struct{}{id: {}})
	s.selectionChangedLocked()
	s.saveLocked(false)
	return nil
}

func (s *Store) applyVertexPatchLocked(id string, p VertexPatch) bool {
	v, ok := s.vertices[id]
	if !ok {
		return false
	}

	if p.Layer != nil && *p.Layer != v.Layer {
		if li := s.layerIndexLocked(*p.Layer); li >= 0 {
			s.moveVertexLayerLocked(&v, li)
		}
	}
	if p.Position != nil {
		v.Position = *p.Position
	}
	if p.EffectType != nil {
		v.EffectType = *p.EffectType
	}
	if p.Color != nil {
		v.Color = *p.Color
	}
	if p.Visible != nil {
		v.Visible = *p.Visible
	}

	s.vertices[id] = v
	if p.Position != nil {
		s.patchLayerElementLocked(v)
	}
	return true
}

// moveVertexLayerLocked moves the mirrored layer element of v to layer li.
func (s *Store) moveVertexLayerLocked(v *scene.Vertex, li int) {
	if old := s.layerIndexLocked(v.Layer); old >= 0 {
		elems := s.layers[old].Elements
		for j := range elems {
			if elems[j].ID == v.ID {
				s.layers[old].Elements = append(elems[:j], elems[j+1:]...)
				break
			}
		}
	}
	v.Layer = s.layers[li].ID
	s.layers[li].Elements = append(s.layers[li].Elements, scene.LayerElement{ID: v.ID, Position: v.Position})
}
