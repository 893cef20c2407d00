// Package editor holds the authoritative state of a particle scene: vertices,
// shapes and layers, the selection, the live transform session and the
// snapshot history. A Store is the only mutation surface; every command it
// exposes is safe to call from multiple goroutines.
package editor

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fxlayout/fxlayout/internal/scene"
	"github.com/fxlayout/fxlayout/internal/typeid"
)

// Store owns the scene state.
type Store struct {
	mu     sync.RWMutex
	opts   Options
	log    *slog.Logger
	events *Dispatcher
	sched  *Scheduler

	vertices map[string]scene.Vertex
	shapes   []scene.Shape
	layers   []scene.Layer
	camera   scene.Camera
	settings scene.Settings

	// Selection. These sets are the single source of truth; the Selected
	// flags on returned values are computed from them.
	selVertices   *idSet
	selShapes     *idSet
	derivePending bool

	// Transform session
	session       *session
	committing    bool
	tempPositions map[string]scene.Vec3
	tempRotations map[string]scene.Vec3
	tempScales    map[string]scene.Vec3

	history *History

	// events raised under the lock, delivered after it is released
	queued []Event
}

// NewStore creates an empty scene with the default layer and records the
// initial history baseline.
func NewStore(opts Options) *Store {
	opts = opts.withDefaults()
	s := &Store{
		opts:          opts,
		log:           opts.Logger,
		events:        NewDispatcher(),
		sched:         NewScheduler(),
		vertices:      make(map[string]scene.Vertex),
		shapes:        []scene.Shape{},
		layers:        []scene.Layer{scene.NewDefaultLayer()},
		camera:        scene.DefaultCamera(),
		settings:      scene.DefaultSettings(),
		selVertices:   newIDSet(),
		selShapes:     newIDSet(),
		tempPositions: make(map[string]scene.Vec3),
		tempRotations: make(map[string]scene.Vec3),
		tempScales:    make(map[string]scene.Vec3),
		history:       newHistory(opts.HistoryLimit),
	}
	s.saveLocked(true)
	return s
}

// Events returns the dispatcher store notifications are published on.
func (s *Store) Events() *Dispatcher { return s.events }

// Scheduler returns the idle-time task queue used for deferred work.
func (s *Store) Scheduler() *Scheduler { return s.sched }

// RunIdle runs deferred work for at most the given budget. Hosts call it from
// their idle hook.
func (s *Store) RunIdle(budget time.Duration) int { return s.sched.RunIdle(budget) }

// --- Queries ---

// Vertex returns a copy of the vertex with its computed selection flag.
func (s *Store) Vertex(id string) (scene.Vertex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vertices[id]
	if !ok {
		return scene.Vertex{}, false
	}
	v.Selected = s.selVertices.Has(id)
	return v, true
}

// Vertices returns every vertex ordered by id.
func (s *Store) Vertices() []scene.Vertex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.vertexListLocked()
	for i := range out {
		out[i].Selected = s.selVertices.Has(out[i].ID)
	}
	return out
}

func (s *Store) VertexCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vertices)
}

// Shape returns a copy of the shape with its computed selection flag.
func (s *Store) Shape(id string) (scene.Shape, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleSelectionLocked()
	i := s.shapeIndexLocked(id)
	if i < 0 {
		return scene.Shape{}, false
	}
	sh := cloneShape(s.shapes[i])
	sh.Selected = s.selShapes.Has(id)
	return sh, true
}

// Shapes returns the shapes in insertion order.
func (s *Store) Shapes() []scene.Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleSelectionLocked()
	out := make([]scene.Shape, len(s.shapes))
	for i, sh := range s.shapes {
		out[i] = cloneShape(sh)
		out[i].Selected = s.selShapes.Has(sh.ID)
	}
	return out
}

func (s *Store) Layers() []scene.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scene.Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = cloneLayer(l)
	}
	return out
}

func (s *Store) Layer(id string) (scene.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.layerIndexLocked(id)
	if i < 0 {
		return scene.Layer{}, false
	}
	return cloneLayer(s.layers[i]), true
}

func (s *Store) Camera() scene.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.camera
}

// SetCamera records the viewer camera. Camera moves are not history entries.
func (s *Store) SetCamera(c scene.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = c
}

func (s *Store) Settings() scene.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) SetSettings(st scene.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
}

// --- internal helpers (caller holds s.mu) ---

func (s *Store) vertexListLocked() []scene.Vertex {
	out := make([]scene.Vertex, 0, len(s.vertices))
	for _, v := range s.vertices {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b scene.Vertex) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) shapeIndexLocked(id string) int {
	return slices.IndexFunc(s.shapes, func(sh scene.Shape) bool { return sh.ID == id })
}

func (s *Store) layerIndexLocked(id string) int {
	return slices.IndexFunc(s.layers, func(l scene.Layer) bool { return l.ID == id })
}

// resolveLayerLocked returns the index of the named layer, falling back to the
// first layer for empty or unknown ids.
func (s *Store) resolveLayerLocked(id string) int {
	if i := s.layerIndexLocked(id); i >= 0 {
		return i
	}
	return 0
}

// insertVertexLocked materializes a vertex from a spec and mirrors it into its layer.
func (s *Store) insertVertexLocked(spec VertexSpec) string {
	li := s.resolveLayerLocked(spec.Layer)
	layer := &s.layers[li]

	v := scene.Vertex{
		ID:         typeid.NewVertexID(),
		Position:   spec.Position,
		EffectType: cmp.Or(spec.EffectType, layer.Particle, scene.DefaultEffectType),
		Layer:      layer.ID,
		Color:      cmp.Or(spec.Color, layer.Color, scene.DefaultColor),
		Visible:    !spec.Hidden,
		GroupID:    spec.GroupID,
	}
	s.vertices[v.ID] = v
	layer.Elements = append(layer.Elements, scene.LayerElement{ID: v.ID, Position: v.Position})
	return v.ID
}

// deleteVerticesLocked removes vertices and every reference to them: selection,
// shape membership and layer elements.
func (s *Store) deleteVerticesLocked(ids map[string]struct{}) {
	if len(ids) == 0 {
		return
	}
	for id := range ids {
		delete(s.vertices, id)
		delete(s.tempPositions, id)
	}
	s.selVertices.RemoveAll(ids)

	for i := range s.shapes {
		s.shapes[i].Vertices = slices.DeleteFunc(s.shapes[i].Vertices, func(id string) bool {
			_, gone := ids[id]
			return gone
		})
	}
	for i := range s.layers {
		s.layers[i].Elements = slices.DeleteFunc(s.layers[i].Elements, func(e scene.LayerElement) bool {
			_, gone := ids[e.ID]
			return gone
		})
	}
}

// ownedVertexIDsLocked matches vertices by groupId and by shape membership;
// legacy content may only match one of the two.
func (s *Store) ownedVertexIDsLocked(sh scene.Shape) map[string]struct{} {
	ids := make(map[string]struct{}, len(sh.Vertices))
	for _, id := range sh.Vertices {
		if _, ok := s.vertices[id]; ok {
			ids[id] = struct{}{}
		}
	}
	for id, v := range s.vertices {
		if v.GroupID == sh.ID {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// patchLayerElementLocked keeps the mirrored layer element in step with a vertex move.
func (s *Store) patchLayerElementLocked(v scene.Vertex) {
	i := s.layerIndexLocked(v.Layer)
	if i < 0 {
		return
	}
	elems := s.layers[i].Elements
	for j := range elems {
		if elems[j].ID == v.ID {
			elems[j].Position = v.Position
			return
		}
	}
}

func (s *Store) emitLocked(e Event) {
	s.queued = append(s.queued, e)
}

// flushEvents delivers queued events. It must be called without s.mu held.
func (s *Store) flushEvents() {
	s.mu.Lock()
	queued := s.queued
	s.queued = nil
	s.mu.Unlock()

	for _, e := range queued {
		s.events.Dispatch(e)
	}
}

// checkLargeSceneLocked switches performance mode on once the scene grows past
// the threshold.
func (s *Store) checkLargeSceneLocked() {
	n := len(s.vertices)
	if n <= s.opts.LargeSceneThreshold || s.settings.PerformanceMode {
		return
	}
	s.settings.PerformanceMode = true
	s.log.Info("large scene, performance mode enabled", "vertices", n)
	s.emitLocked(Event{Type: EventLargeScene, Data: n})
}

func cloneShape(sh scene.Shape) scene.Shape {
	sh.Vertices = append([]string{}, sh.Vertices...)
	return sh
}

func cloneLayer(l scene.Layer) scene.Layer {
	l.Elements = append([]scene.LayerElement{}, l.Elements...)
	return l
}
