package editor

import (
	"math"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// RenderPoint is one vertex as the renderer should draw it this frame.
type RenderPoint struct {
	ID         string     `json:"id"`
	Position   scene.Vec3 `json:"position"`
	Color      string     `json:"color"`
	EffectType string     `json:"effectType"`
	Layer      string     `json:"layer"`
	Visible    bool       `json:"visible"`
	Selected   bool       `json:"selected"`
}

// RenderShape is one shape's gizmo state for this frame.
type RenderShape struct {
	ID       string          `json:"id"`
	Type     scene.ShapeType `json:"type"`
	Name     string          `json:"name,omitempty"`
	Position scene.Vec3      `json:"position"`
	Rotation scene.Vec3      `json:"rotation"`
	Scale    scene.Vec3      `json:"scale"`
	Visible  bool            `json:"visible"`
	Selected bool            `json:"selected"`
}

// Frame is everything a renderer reads per frame. Positions, rotations and
// scales are the drag preview values while a transform is active.
type Frame struct {
	Points       []RenderPoint `json:"points"`
	Shapes       []RenderShape `json:"shapes"`
	Transforming bool          `json:"transforming"`
}

// Box3 is an axis-aligned bounding box.
type Box3 struct {
	Min scene.Vec3 `json:"min"`
	Max scene.Vec3 `json:"max"`
}

// EmptyBox contains nothing; extending it with a point yields that point.
func EmptyBox() Box3 {
	inf := math.Inf(1)
	return Box3{
		Min: scene.Vec3{X: inf, Y: inf, Z: inf},
		Max: scene.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

func (b Box3) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows b to contain p.
func (b Box3) Extend(p scene.Vec3) Box3 {
	b.Min = scene.Vec3{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = scene.Vec3{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	return b
}

func (b Box3) Center() scene.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Frame snapshots the render state.
func (s *Store) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleSelectionLocked()

	f := Frame{
		Points:       make([]RenderPoint, 0, len(s.vertices)),
		Shapes:       make([]RenderShape, 0, len(s.shapes)),
		Transforming: s.session != nil,
	}
	for _, v := range s.vertexListLocked() {
		f.Points = append(f.Points, RenderPoint{
			ID:         v.ID,
			Position:   s.effectivePositionLocked(v.ID, v.Position),
			Color:      v.Color,
			EffectType: v.EffectType,
			Layer:      v.Layer,
			Visible:    v.Visible,
			Selected:   s.selVertices.Has(v.ID),
		})
	}
	for _, sh := range s.shapes {
		rs := RenderShape{
			ID:       sh.ID,
			Type:     sh.Type,
			Name:     sh.Name,
			Position: s.effectivePositionLocked(sh.ID, sh.Position),
			Rotation: sh.Rotation,
			Scale:    sh.Scale,
			Visible:  sh.Visible,
			Selected: s.selShapes.Has(sh.ID),
		}
		if r, ok := s.tempRotations[sh.ID]; ok {
			rs.Rotation = r
		}
		if sc, ok := s.tempScales[sh.ID]; ok {
			rs.Scale = sc
		}
		f.Shapes = append(f.Shapes, rs)
	}
	return f
}

// SelectionBounds returns the bounds of the selected vertices and shape
// origins at their effective positions. It is empty when nothing is selected.
func (s *Store) SelectionBounds() Box3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleSelectionLocked()

	b := EmptyBox()
	for _, id := range s.selVertices.order {
		if v, ok := s.vertices[id]; ok {
			b = b.Extend(s.effectivePositionLocked(id, v.Position))
		}
	}
	for _, id := range s.selShapes.order {
		if i := s.shapeIndexLocked(id); i >= 0 {
			b = b.Extend(s.effectivePositionLocked(id, s.shapes[i].Position))
		}
	}
	return b
}

func (s *Store) effectivePositionLocked(id string, committed scene.Vec3) scene.Vec3 {
	if s.session != nil {
		if p, ok := s.tempPositions[id]; ok {
			return p
		}
	}
	return committed
}
