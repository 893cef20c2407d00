package editor

import (
	"cmp"
	"fmt"

	"github.com/fxlayout/fxlayout/internal/geometry"
	"github.com/fxlayout/fxlayout/internal/scene"
	"github.com/fxlayout/fxlayout/internal/typeid"
)

// ShapeSpec describes a parametric shape to create.
type ShapeSpec struct {
	Type         scene.ShapeType `json:"type"`
	Position     scene.Vec3      `json:"position"`
	Rotation     scene.Vec3      `json:"rotation"`
	Scale        scene.Vec3      `json:"scale"`
	ElementCount int             `json:"elementCount,omitempty"`
	Radius       float64         `json:"radius,omitempty"`
	LineLength   float64         `json:"lineLength,omitempty"`
	Name         string          `json:"name,omitempty"`
	Color        string          `json:"color,omitempty"`
	Particle     string          `json:"particle,omitempty"`
	Layer        string          `json:"layer,omitempty"`
	Hidden       bool            `json:"hidden,omitempty"`
}

// ShapePatch is a partial shape update; nil fields are left alone.
type ShapePatch struct {
	Position     *scene.Vec3 `json:"position,omitempty"`
	Rotation     *scene.Vec3 `json:"rotation,omitempty"`
	Scale        *scene.Vec3 `json:"scale,omitempty"`
	ElementCount *int        `json:"elementCount,omitempty"`
	Radius       *float64    `json:"radius,omitempty"`
	LineLength   *float64    `json:"lineLength,omitempty"`
	Visible      *bool       `json:"visible,omitempty"`
	Name         *string     `json:"name,omitempty"`
	Color        *string     `json:"color,omitempty"`
	Particle     *string     `json:"particle,omitempty"`
}

type ShapeUpdate struct {
	ID    string     `json:"id"`
	Patch ShapePatch `json:"patch"`
}

// AddShape generates the shape's vertices, attaches them and records a forced
// history entry.
func (s *Store) AddShape(spec ShapeSpec) (string, error) {
	if !spec.Type.Parametric() {
		return "", fmt.Errorf("add shape %q: %w", spec.Type, ErrInvalidShapeType)
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := scene.Shape{
		ID:           typeid.NewShapeID(),
		Type:         spec.Type,
		Position:     spec.Position,
		Rotation:     spec.Rotation,
		Scale:        normalizeScale(spec.Scale),
		ElementCount: s.opts.clampCount(cmp.Or(spec.ElementCount, scene.DefaultElementCount)),
		Radius:       spec.Radius,
		LineLength:   spec.LineLength,
		Visible:      !spec.Hidden,
		Name:         spec.Name,
		Color:        spec.Color,
		Particle:     spec.Particle,
	}
	sh.Vertices = s.generateVerticesLocked(sh, VertexSpec{Layer: spec.Layer})
	s.shapes = append(s.shapes, sh)

	s.checkLargeSceneLocked()
	s.saveLocked(true)
	return sh.ID, nil
}

// ImportShape creates one imported shape plus one vertex per position, all
// sharing the shape id as groupId. An empty import changes nothing.
func (s *Store) ImportShape(positions []scene.Vec3, layerID string) (string, error) {
	if len(positions) == 0 {
		s.log.Warn("import rejected", "error", ErrEmptyImport)
		return "", ErrEmptyImport
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if layerID != "" && s.layerIndexLocked(layerID) < 0 {
		return "", fmt.Errorf("import into layer %s: %w", layerID, ErrLayerNotFound)
	}

	sh := scene.Shape{
		ID:       typeid.NewShapeID(),
		Type:     scene.ShapeImported,
		Scale:    scene.One,
		Vertices: make([]string, 0, len(positions)),
		Visible:  true,
		Name:     "Imported model",
	}
	for _, p := range positions {
		id := s.insertVertexLocked(VertexSpec{Position: p, Layer: layerID, GroupID: sh.ID})
		sh.Vertices = append(sh.Vertices, id)
	}
	s.shapes = append(s.shapes, sh)

	s.checkLargeSceneLocked()
	s.saveLocked(true)
	return sh.ID, nil
}

// UpdateShape edits a shape. Parametric shapes are regenerated from scratch
// when a geometry field changes; imported shapes move their fixed vertices.
// Afterwards the selection is exactly this shape and its vertices.
func (s *Store) UpdateShape(id string, patch ShapePatch) error {
	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateShapeLocked(id, patch); err != nil {
		return err
	}
	s.selectShapesOnlyLocked([]string{id})
	s.checkLargeSceneLocked()
	s.saveLocked(false)
	return nil
}

// UpdateMultipleShapes applies UpdateShape semantics to several shapes with a
// single history entry. Missing ids are skipped. The updated shapes end up
// selected.
func (s *Store) UpdateMultipleShapes(updates []ShapeUpdate) {
	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]string, 0, len(updates))
	for _, u := range updates {
		if err := s.updateShapeLocked(u.ID, u.Patch); err == nil {
			updated = append(updated, u.ID)
		}
	}
	if len(updated) == 0 {
		return
	}
	s.selectShapesOnlyLocked(updated)
	s.checkLargeSceneLocked()
	s.saveLocked(false)
}

// DeleteShape removes the shape and every vertex it owns.
func (s *Store) DeleteShape(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.shapeIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("delete shape %s: %w", id, ErrShapeNotFound)
	}
	s.deleteVerticesLocked(s.ownedVertexIDsLocked(s.shapes[i]))
	s.shapes = append(s.shapes[:i], s.shapes[i+1:]...)
	s.selShapes.Remove(id)
	delete(s.tempPositions, id)
	delete(s.tempRotations, id)
	delete(s.tempScales, id)

	s.selectionChangedLocked()
	s.saveLocked(false)
	return nil
}

// ClearShapeVertices deletes the shape's vertices but keeps the shape, with an
// empty vertex list and an element count of zero.
func (s *Store) ClearShapeVertices(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.shapeIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("clear shape %s: %w", id, ErrShapeNotFound)
	}
	s.deleteVerticesLocked(s.ownedVertexIDsLocked(s.shapes[i]))
	s.shapes[i].Vertices = []string{}
	s.shapes[i].ElementCount = 0
	s.selShapes.Remove(id)

	s.selectionChangedLocked()
	s.saveLocked(false)
	return nil
}

func (s *Store) updateShapeLocked(id string, p ShapePatch) error {
	i := s.shapeIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("update shape %s: %w", id, ErrShapeNotFound)
	}
	sh := s.shapes[i]

	switch {
	case sh.Type == scene.ShapeImported:
		s.updateImportedLocked(&sh, p)
	case geometryChanged(sh, p):
		owned := s.ownedVertexIDsLocked(sh)
		tmpl := s.vertexTemplateLocked(sh)
		s.deleteVerticesLocked(owned)
		mergeShapePatch(&sh, p, s.opts, true)
		sh.Vertices = s.generateVerticesLocked(sh, tmpl)
	default:
		mergeShapePatch(&sh, p, s.opts, true)
	}

	s.shapes[i] = sh
	return nil
}

// updateImportedLocked rescales owned vertices about the shape origin
// (new = local / oldScale * newScale) and carries them along a position change.
func (s *Store) updateImportedLocked(sh *scene.Shape, p ShapePatch) {
	oldPos, oldScale := sh.Position, sh.Scale
	mergeShapePatch(sh, p, s.opts, false)

	rescale := sh.Scale != oldScale
	delta := sh.Position.Sub(oldPos)
	if !rescale && delta.IsZero() {
		return
	}

	for id := range s.ownedVertexIDsLocked(*sh) {
		v := s.vertices[id]
		if rescale {
			local := v.Position.Sub(oldPos)
			v.Position = oldPos.Add(local.Div(oldScale).Mul(sh.Scale))
		}
		v.Position = v.Position.Add(delta)
		s.vertices[id] = v
		s.patchLayerElementLocked(v)
	}
}

// generateVerticesLocked runs the generator for sh and materializes the points.
func (s *Store) generateVerticesLocked(sh scene.Shape, tmpl VertexSpec) []string {
	pts := geometry.Generate(geometry.ParamsFromShape(sh))
	ids := make([]string, len(pts))
	for i, p := range pts {
		spec := tmpl
		spec.Position = p
		spec.GroupID = sh.ID
		ids[i] = s.insertVertexLocked(spec)
	}
	return ids
}

// vertexTemplateLocked carries the visual attributes of an existing owned
// vertex over to its regenerated replacements.
func (s *Store) vertexTemplateLocked(sh scene.Shape) VertexSpec {
	for _, id := range sh.Vertices {
		if v, ok := s.vertices[id]; ok {
			return VertexSpec{EffectType: v.EffectType, Layer: v.Layer, Color: v.Color, Hidden: !v.Visible}
		}
	}
	return VertexSpec{Hidden: !sh.Visible}
}

func geometryChanged(sh scene.Shape, p ShapePatch) bool {
	return (p.Position != nil && *p.Position != sh.Position) ||
		(p.Rotation != nil && *p.Rotation != sh.Rotation) ||
		(p.Scale != nil && *p.Scale != sh.Scale) ||
		(p.ElementCount != nil && *p.ElementCount != sh.ElementCount) ||
		(p.Radius != nil && *p.Radius != sh.Radius) ||
		(p.LineLength != nil && *p.LineLength != sh.LineLength)
}

// mergeShapePatch copies set fields into sh. Scales are floored and element
// counts clamped; parametric-only fields are ignored when parametric is false.
func mergeShapePatch(sh *scene.Shape, p ShapePatch, o Options, parametric bool) {
	mergeShapeTransform(sh, p)
	if p.Visible != nil {
		sh.Visible = *p.Visible
	}
	if p.Name != nil {
		sh.Name = *p.Name
	}
	if p.Color != nil {
		sh.Color = *p.Color
	}
	if p.Particle != nil {
		sh.Particle = *p.Particle
	}
	if !parametric {
		return
	}
	if p.ElementCount != nil {
		sh.ElementCount = o.clampCount(*p.ElementCount)
	}
	if p.Radius != nil {
		sh.Radius = *p.Radius
	}
	if p.LineLength != nil {
		sh.LineLength = *p.LineLength
	}
}

func mergeShapeTransform(sh *scene.Shape, p ShapePatch) {
	if p.Position != nil {
		sh.Position = *p.Position
	}
	if p.Rotation != nil {
		sh.Rotation = *p.Rotation
	}
	if p.Scale != nil {
		sh.Scale = p.Scale.Max(MinScale)
	}
}

// normalizeScale treats an unset scale as identity and floors the rest.
func normalizeScale(v scene.Vec3) scene.Vec3 {
	if v.IsZero() {
		return scene.One
	}
	return v.Max(MinScale)
}
