package editor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// requiredKeys must be present at the top level of an imported scene document.
var requiredKeys = []string{"vertices", "shapes", "layers"}

// ExportScene returns the full scene as a versioned, timestamped document.
func (s *Store) ExportScene() scene.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleSelectionLocked()

	vertices := s.vertexListLocked()
	for i := range vertices {
		vertices[i].Selected = s.selVertices.Has(vertices[i].ID)
	}
	shapes := make([]scene.Shape, len(s.shapes))
	for i, sh := range s.shapes {
		shapes[i] = cloneShape(sh)
		shapes[i].Selected = s.selShapes.Has(sh.ID)
	}
	layers := make([]scene.Layer, len(s.layers))
	for i, l := range s.layers {
		layers[i] = cloneLayer(l)
	}

	return scene.Document{
		Version:    scene.DocumentVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Vertices:   vertices,
		Shapes:     shapes,
		Layers:     layers,
		Camera:     s.camera,
		Scene:      s.settings,
	}
}

// MarshalScene encodes ExportScene as indented JSON.
func (s *Store) MarshalScene() ([]byte, error) {
	doc := s.ExportScene()
	return json.MarshalIndent(doc, "", "  ")
}

// ImportScene replaces the scene with a JSON document. Documents that fail to
// parse or lack vertices, shapes or layers are rejected and leave the store
// unchanged.
func (s *Store) ImportScene(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return s.rejectDocument(fmt.Errorf("%w: %v", ErrInvalidDocument, err))
	}
	for _, key := range requiredKeys {
		if _, ok := top[key]; !ok {
			return s.rejectDocument(fmt.Errorf("%w: missing %q", ErrInvalidDocument, key))
		}
	}

	var doc scene.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return s.rejectDocument(fmt.Errorf("%w: %v", ErrInvalidDocument, err))
	}
	return s.LoadDocument(doc)
}

// LoadDocument replaces the scene with doc, resets the selection and starts a
// fresh history from the loaded state.
func (s *Store) LoadDocument(doc scene.Document) error {
	if err := validateDocument(doc); err != nil {
		return s.rejectDocument(err)
	}

	defer s.flushEvents()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committing {
		return ErrCommitInProgress
	}

	s.cancelSessionLocked()
	s.vertices = make(map[string]scene.Vertex, len(doc.Vertices))
	for _, v := range doc.Vertices {
		v.Selected = false
		s.vertices[v.ID] = v
	}
	shapes := make([]scene.Shape, len(doc.Shapes))
	for i, sh := range doc.Shapes {
		shapes[i] = cloneShape(sh)
	}
	s.shapes = normalizeShapes(shapes)
	layers := make([]scene.Layer, len(doc.Layers))
	for i, l := range doc.Layers {
		layers[i] = cloneLayer(l)
	}
	s.layers = normalizeLayers(layers)

	if doc.Camera != (scene.Camera{}) {
		s.camera = doc.Camera
	}
	s.settings = scene.DefaultSettings()
	if doc.Scene != (scene.Settings{}) {
		s.settings = doc.Scene
	}

	s.clearSelectionLocked()
	s.history.reset()
	s.saveLocked(true)
	s.checkLargeSceneLocked()
	s.emitLocked(Event{Type: EventSceneImported, Data: len(s.vertices)})
	return nil
}

func (s *Store) rejectDocument(err error) error {
	s.log.Warn("scene import rejected", "error", err)
	return err
}

// validateDocument checks everything LoadDocument relies on before any state
// is touched.
func validateDocument(doc scene.Document) error {
	seen := make(map[string]struct{}, len(doc.Vertices))
	for i, v := range doc.Vertices {
		if v.ID == "" {
			return fmt.Errorf("%w: vertex %d has no id", ErrInvalidDocument, i)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("%w: duplicate vertex id %s", ErrInvalidDocument, v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	for i, sh := range doc.Shapes {
		if sh.ID == "" {
			return fmt.Errorf("%w: shape %d has no id", ErrInvalidDocument, i)
		}
		if !sh.Type.Valid() {
			return fmt.Errorf("%w: shape %s: %w", ErrInvalidDocument, sh.ID, ErrInvalidShapeType)
		}
	}
	for i, l := range doc.Layers {
		if l.ID == "" {
			return fmt.Errorf("%w: layer %d has no id", ErrInvalidDocument, i)
		}
	}
	return nil
}
