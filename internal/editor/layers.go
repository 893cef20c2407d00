package editor

import (
	"cmp"
	"fmt"

	"github.com/fxlayout/fxlayout/internal/scene"
	"github.com/fxlayout/fxlayout/internal/typeid"
)

// LayerPatch is a partial layer update; nil fields are left alone.
type LayerPatch struct {
	Name      *string  `json:"name,omitempty"`
	Color     *string  `json:"color,omitempty"`
	Particle  *string  `json:"particle,omitempty"`
	StartTime *float64 `json:"startTime,omitempty"`
	EndTime   *float64 `json:"endTime,omitempty"`
	Repeat    *int     `json:"repeat,omitempty"`
	Alpha     *float64 `json:"alpha,omitempty"`
	Target    *string  `json:"target,omitempty"`
	Visible   *bool    `json:"visible,omitempty"`
}

// AddLayer appends a visible layer under a fresh id. Unset display fields take
// the defaults of the initial layer; elements always start empty.
func (s *Store) AddLayer(l scene.Layer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := scene.NewDefaultLayer()
	l.ID = typeid.NewLayerID()
	l.Name = cmp.Or(l.Name, fmt.Sprintf("Layer %d", len(s.layers)+1))
	l.Color = cmp.Or(l.Color, def.Color)
	l.Particle = cmp.Or(l.Particle, def.Particle)
	l.Repeat = cmp.Or(l.Repeat, def.Repeat)
	l.Alpha = cmp.Or(l.Alpha, def.Alpha)
	l.EndTime = cmp.Or(l.EndTime, def.EndTime)
	l.Visible = true
	l.Elements = []scene.LayerElement{}

	s.layers = append(s.layers, l)
	s.saveLocked(false)
	return l.ID, nil
}

func (s *Store) UpdateLayer(id string, p LayerPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.layerIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("update layer %s: %w", id, ErrLayerNotFound)
	}
	l := &s.layers[i]
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Color != nil {
		l.Color = *p.Color
	}
	if p.Particle != nil {
		l.Particle = *p.Particle
	}
	if p.StartTime != nil {
		l.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		l.EndTime = *p.EndTime
	}
	if p.Repeat != nil {
		l.Repeat = *p.Repeat
	}
	if p.Alpha != nil {
		l.Alpha = *p.Alpha
	}
	if p.Target != nil {
		l.Target = *p.Target
	}
	if p.Visible != nil {
		l.Visible = *p.Visible
	}

	s.saveLocked(false)
	return nil
}

// DeleteLayer removes a layer and reassigns its vertices to the first
// remaining layer. The last layer cannot be deleted.
func (s *Store) DeleteLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.layerIndexLocked(id)
	if i < 0 {
		return fmt.Errorf("delete layer %s: %w", id, ErrLayerNotFound)
	}
	if len(s.layers) == 1 {
		return ErrLastLayer
	}

	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	dest := &s.layers[0]
	for _, v := range s.vertexListLocked() {
		if v.Layer != id {
			continue
		}
		v.Layer = dest.ID
		s.vertices[v.ID] = v
		dest.Elements = append(dest.Elements, scene.LayerElement{ID: v.ID, Position: v.Position})
	}

	s.saveLocked(false)
	return nil
}
