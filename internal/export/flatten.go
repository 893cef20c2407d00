// Package export turns a scene into the flat element list the effect script
// generator consumes, and serves it over HTTP.
package export

import (
	"cmp"

	"github.com/fxlayout/fxlayout/internal/scene"
)

const (
	TypePoint  = "point"
	TypeSquare = "square"
	TypeCircle = "circle"
	TypeRing   = "ring"
	TypeLine   = "line"
	TypeCustom = "custom"
)

// Element is one exported entity.
type Element struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Position scene.Vec3  `json:"position"`
	Color    string      `json:"color"`
	Particle string      `json:"particle"`
	Scale    *scene.Vec3 `json:"scale,omitempty"`
}

// LayerGroup is a layer's timing parameters with the elements assigned to it.
type LayerGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Particle  string    `json:"particle"`
	StartTime float64   `json:"startTime"`
	EndTime   float64   `json:"endTime"`
	Repeat    int       `json:"repeat"`
	Alpha     float64   `json:"alpha"`
	Target    string    `json:"target"`
	Elements  []Element `json:"elements"`
}

var shapeTypes = map[scene.ShapeType]string{
	scene.ShapeCube:     TypeSquare,
	scene.ShapeSphere:   TypeCircle,
	scene.ShapeCircle:   TypeRing,
	scene.ShapeLine:     TypeLine,
	scene.ShapeImported: TypeCustom,
}

// ShapeType maps a shape type to its export name.
func ShapeType(t scene.ShapeType) string {
	return cmp.Or(shapeTypes[t], TypeCustom)
}

// ExportToMainSystem flattens the visible vertices and shapes of doc, vertices
// first. Colors and particles fall back to the owning layer, then to the
// scene defaults.
func ExportToMainSystem(doc *scene.Document) []Element {
	layers := layerIndex(doc.Layers)
	fallback := scene.NewDefaultLayer()
	if len(doc.Layers) > 0 {
		fallback = doc.Layers[0]
	}

	out := make([]Element, 0, len(doc.Vertices)+len(doc.Shapes))
	for _, v := range doc.Vertices {
		if !v.Visible {
			continue
		}
		l, ok := layers[v.Layer]
		if !ok {
			l = fallback
		}
		out = append(out, vertexElement(v, l))
	}
	for _, sh := range doc.Shapes {
		if !sh.Visible {
			continue
		}
		scale := sh.Scale
		out = append(out, Element{
			ID:       sh.ID,
			Type:     ShapeType(sh.Type),
			Position: sh.Position,
			Color:    cmp.Or(sh.Color, fallback.Color, scene.DefaultColor),
			Particle: cmp.Or(sh.Particle, fallback.Particle, scene.DefaultEffectType),
			Scale:    &scale,
		})
	}
	return out
}

// GroupByLayer returns one group per visible layer, in layer order, holding
// the visible vertices assigned to it. Vertices pointing at a missing layer
// land in the first layer.
func GroupByLayer(doc *scene.Document) []LayerGroup {
	if len(doc.Layers) == 0 {
		return []LayerGroup{}
	}
	layers := layerIndex(doc.Layers)

	members := make(map[string][]Element, len(doc.Layers))
	for _, v := range doc.Vertices {
		if !v.Visible {
			continue
		}
		l, ok := layers[v.Layer]
		if !ok {
			l = doc.Layers[0]
		}
		members[l.ID] = append(members[l.ID], vertexElement(v, l))
	}

	groups := make([]LayerGroup, 0, len(doc.Layers))
	for _, l := range doc.Layers {
		if !l.Visible {
			continue
		}
		elems := members[l.ID]
		if elems == nil {
			elems = []Element{}
		}
		groups = append(groups, LayerGroup{
			ID:        l.ID,
			Name:      l.Name,
			Color:     l.Color,
			Particle:  l.Particle,
			StartTime: l.StartTime,
			EndTime:   l.EndTime,
			Repeat:    l.Repeat,
			Alpha:     l.Alpha,
			Target:    l.Target,
			Elements:  elems,
		})
	}
	return groups
}

func vertexElement(v scene.Vertex, l scene.Layer) Element {
	return Element{
		ID:       v.ID,
		Type:     TypePoint,
		Position: v.Position,
		Color:    cmp.Or(v.Color, l.Color, scene.DefaultColor),
		Particle: cmp.Or(v.EffectType, l.Particle, scene.DefaultEffectType),
	}
}

func layerIndex(layers []scene.Layer) map[string]scene.Layer {
	idx := make(map[string]scene.Layer, len(layers))
	for _, l := range layers {
		idx[l.ID] = l
	}
	return idx
}
