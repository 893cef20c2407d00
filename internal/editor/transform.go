package editor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fxlayout/fxlayout/internal/geometry"
	"github.com/fxlayout/fxlayout/internal/scene"
)

// Mode selects what a drag gesture does to the selection.
type Mode int

const (
	ModeTranslate Mode = iota
	ModeRotate
	ModeScale
)

func (m Mode) String() string {
	switch m {
	case ModeTranslate:
		return "translate"
	case ModeRotate:
		return "rotate"
	case ModeScale:
		return "scale"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(name string) (Mode, error) {
	for _, m := range []Mode{ModeTranslate, ModeRotate, ModeScale} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("transform mode %q: %w", name, ErrInvalidMode)
}

// Delta is the gizmo offset relative to the start of the drag. Only the field
// matching the session mode is used. A zero Scale component leaves that axis
// unscaled.
type Delta struct {
	Translate scene.Vec3 `json:"translate"`
	Rotate    scene.Vec3 `json:"rotate"`
	Scale     scene.Vec3 `json:"scale"`
}

type shapeStart struct {
	id       string
	position scene.Vec3
	rotation scene.Vec3
	scale    scene.Vec3
}

// session is immutable once started; the live values go to the temp maps.
type session struct {
	mode        Mode
	pivot       scene.Vec3
	vertexIDs   []string
	vertexStart []scene.Vec3
	shapes      []shapeStart
}

func (ss *session) pointFunc(d Delta) geometry.PointFunc {
	switch ss.mode {
	case ModeRotate:
		return func(p scene.Vec3) scene.Vec3 { return geometry.RotateAbout(p, ss.pivot, d.Rotate) }
	case ModeScale:
		f := scaleFactor(d)
		return func(p scene.Vec3) scene.Vec3 { return geometry.ScaleAbout(p, ss.pivot, f) }
	default:
		return func(p scene.Vec3) scene.Vec3 { return p.Add(d.Translate) }
	}
}

// scaleFactor treats each zero component as an unscaled axis.
func scaleFactor(d Delta) scene.Vec3 {
	f := d.Scale
	for _, c := range []*float64{&f.X, &f.Y, &f.Z} {
		if *c == 0 {
			*c = 1
		}
	}
	return f
}

// BeginTransform starts a drag over the current selection. Selected shapes
// bring their owned vertices along. Starting while another drag is active
// cancels that drag.
func (s *Store) BeginTransform(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committing {
		return ErrCommitInProgress
	}
	s.cancelSessionLocked()
	s.settleSelectionLocked()

	ss := &session{mode: mode}
	seen := make(map[string]struct{})
	var anchors []scene.Vec3

	addVertex := func(id string, anchor bool) {
		v, ok := s.vertices[id]
		if !ok {
			return
		}
		if anchor {
			anchors = append(anchors, v.Position)
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ss.vertexIDs = append(ss.vertexIDs, id)
		ss.vertexStart = append(ss.vertexStart, v.Position)
	}

	for _, id := range s.selVertices.order {
		addVertex(id, true)
	}
	for _, id := range s.selShapes.order {
		i := s.shapeIndexLocked(id)
		if i < 0 {
			continue
		}
		sh := s.shapes[i]
		ss.shapes = append(ss.shapes, shapeStart{id: sh.ID, position: sh.Position, rotation: sh.Rotation, scale: sh.Scale})
		anchors = append(anchors, sh.Position)

		owned := s.ownedVertexIDsLocked(sh)
		ids := make([]string, 0, len(owned))
		for vid := range owned {
			ids = append(ids, vid)
		}
		slices.SortFunc(ids, cmp.Compare)
		for _, vid := range ids {
			addVertex(vid, false)
		}
	}

	if len(ss.vertexIDs) == 0 && len(ss.shapes) == 0 {
		return ErrNothingToTransform
	}
	ss.pivot = geometry.Centroid(anchors)
	s.session = ss
	return nil
}

// UpdateTransform recomputes the preview for d. The committed scene is not
// touched; results land in the temp buffers.
func (s *Store) UpdateTransform(ctx context.Context, d Delta) error {
	s.mu.RLock()
	ss, committing := s.session, s.committing
	s.mu.RUnlock()

	switch {
	case ss == nil:
		return ErrNotTransforming
	case committing:
		return ErrCommitInProgress
	}

	fn := ss.pointFunc(d)
	pts, err := geometry.TransformPoints(ctx, ss.vertexStart, fn, s.opts.ParallelThreshold)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != ss || s.committing {
		return ErrNotTransforming
	}

	for i, id := range ss.vertexIDs {
		if _, ok := s.vertices[id]; ok {
			s.tempPositions[id] = pts[i]
		}
	}
	for _, st := range ss.shapes {
		s.tempPositions[st.id] = fn(st.position)
		switch ss.mode {
		case ModeRotate:
			s.tempRotations[st.id] = st.rotation.Add(d.Rotate)
		case ModeScale:
			s.tempScales[st.id] = st.scale.Mul(scaleFactor(d)).Max(MinScale)
		}
	}
	return nil
}

// EndTransform commits the preview through the batch update path and records
// one history entry for the whole gesture. The session ends on every path,
// including cancellation of ctx mid-commit.
func (s *Store) EndTransform(ctx context.Context) error {
	s.mu.Lock()
	ss := s.session
	if ss == nil {
		s.mu.Unlock()
		return ErrNotTransforming
	}
	if s.committing {
		s.mu.Unlock()
		return ErrCommitInProgress
	}
	if len(s.tempPositions) == 0 {
		s.cancelSessionLocked()
		s.mu.Unlock()
		return nil
	}

	vertexUpdates := make([]VertexUpdate, 0, len(ss.vertexIDs))
	for _, id := range ss.vertexIDs {
		if p, ok := s.tempPositions[id]; ok {
			vertexUpdates = append(vertexUpdates, VertexUpdate{ID: id, Patch: VertexPatch{Position: &p}})
		}
	}
	shapeUpdates := make([]ShapeUpdate, 0, len(ss.shapes))
	for _, st := range ss.shapes {
		var patch ShapePatch
		if p, ok := s.tempPositions[st.id]; ok {
			patch.Position = &p
		}
		if r, ok := s.tempRotations[st.id]; ok {
			patch.Rotation = &r
		}
		if sc, ok := s.tempScales[st.id]; ok {
			patch.Scale = &sc
		}
		shapeUpdates = append(shapeUpdates, ShapeUpdate{ID: st.id, Patch: patch})
	}
	s.committing = true
	s.mu.Unlock()

	err := errors.Join(
		s.UpdateVerticesBatch(ctx, vertexUpdates),
		s.UpdateShapesBatch(ctx, shapeUpdates),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committing = false
	s.cancelSessionLocked()
	s.saveLocked(true)
	return err
}

// CancelTransform drops the preview without touching the scene. It is safe to
// call at any time; during a commit it does nothing.
func (s *Store) CancelTransform() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committing {
		return
	}
	s.cancelSessionLocked()
}

func (s *Store) IsTransforming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

func (s *Store) TempPosition(id string) (scene.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.tempPositions[id]
	return p, ok
}

func (s *Store) TempRotation(id string) (scene.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.tempRotations[id]
	return r, ok
}

func (s *Store) TempScale(id string) (scene.Vec3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.tempScales[id]
	return sc, ok
}

// TempBufferSizes reports the number of entries in the position, rotation and
// scale buffers.
func (s *Store) TempBufferSizes() (positions, rotations, scales int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tempPositions), len(s.tempRotations), len(s.tempScales)
}

func (s *Store) cancelSessionLocked() {
	s.session = nil
	clear(s.tempPositions)
	clear(s.tempRotations)
	clear(s.tempScales)
}
