package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxlayout/fxlayout/internal/scene"
)

func TestAddLayerDefaults(t *testing.T) {
	s := newTestStore(t, Options{})

	id, err := s.AddLayer(scene.Layer{ID: "ignored", Color: "#ff0000", Elements: []scene.LayerElement{{ID: "stale"}}})
	require.NoError(t, err)

	l, ok := s.Layer(id)
	require.True(t, ok)
	assert.NotEqual(t, "ignored", l.ID)
	assert.Equal(t, "Layer 2", l.Name)
	assert.Equal(t, "#ff0000", l.Color)
	assert.Equal(t, scene.DefaultEffectType, l.Particle)
	assert.Equal(t, 1.0, l.Alpha)
	assert.True(t, l.Visible)
	assert.Empty(t, l.Elements)
	assert.Equal(t, 2, s.HistoryLen())
}

func TestUpdateLayer(t *testing.T) {
	s := newTestStore(t, Options{})

	require.NoError(t, s.UpdateLayer(scene.DefaultLayerID, LayerPatch{
		Name:      ptr("Base"),
		StartTime: ptr(1.5),
		Repeat:    ptr(3),
		Target:    ptr("#stage"),
	}))

	l, _ := s.Layer(scene.DefaultLayerID)
	assert.Equal(t, "Base", l.Name)
	assert.Equal(t, 1.5, l.StartTime)
	assert.Equal(t, 3, l.Repeat)
	assert.Equal(t, "#stage", l.Target)
	assert.Equal(t, scene.DefaultColor, l.Color)

	assert.ErrorIs(t, s.UpdateLayer("layer_missing", LayerPatch{}), ErrLayerNotFound)
}

func TestDeleteLayerReassignsVertices(t *testing.T) {
	s := newTestStore(t, Options{})
	extra, err := s.AddLayer(scene.Layer{Name: "Extra"})
	require.NoError(t, err)
	id, err := s.AddVertex(VertexSpec{Layer: extra, Position: scene.V3(1, 1, 1)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteLayer(extra))

	_, ok := s.Layer(extra)
	assert.False(t, ok)
	v, _ := s.Vertex(id)
	assert.Equal(t, scene.DefaultLayerID, v.Layer)
	def, _ := s.Layer(scene.DefaultLayerID)
	assert.Equal(t, []scene.LayerElement{{ID: id, Position: scene.V3(1, 1, 1)}}, def.Elements)

	assert.ErrorIs(t, s.DeleteLayer(scene.DefaultLayerID), ErrLastLayer)
	assert.ErrorIs(t, s.DeleteLayer(extra), ErrLayerNotFound)
}
