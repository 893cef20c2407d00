package editor

import (
	"fmt"

	"github.com/fxlayout/fxlayout/internal/scene"
)

// LoadSample replaces the scene with a small demo: one shape of each
// parametric type and a few loose vertices. History restarts from the result.
func (s *Store) LoadSample() error {
	if err := s.LoadDocument(*scene.NewEmptyDocument()); err != nil {
		return err
	}

	specs := []ShapeSpec{
		{Type: scene.ShapeCube, Name: "Cube", Position: scene.V3(-3, 0, 0), ElementCount: 24},
		{Type: scene.ShapeSphere, Name: "Sphere", Position: scene.V3(0, 0, 0), ElementCount: 64, Radius: 1.2},
		{Type: scene.ShapeCircle, Name: "Ring", Position: scene.V3(3, 0, 0), ElementCount: 16},
		{Type: scene.ShapeLine, Name: "Line", Position: scene.V3(0, -2, 0), ElementCount: 10, LineLength: 6},
	}
	for _, spec := range specs {
		if _, err := s.AddShape(spec); err != nil {
			return fmt.Errorf("sample %s: %w", spec.Name, err)
		}
	}
	if _, err := s.AddVerticesBatch([]VertexSpec{
		{Position: scene.V3(-2, 2, 0)},
		{Position: scene.V3(0, 2.5, 0)},
		{Position: scene.V3(2, 2, 0)},
	}); err != nil {
		return fmt.Errorf("sample vertices: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.reset()
	s.saveLocked(true)
	return nil
}
