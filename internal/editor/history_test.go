package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxlayout/fxlayout/internal/scene"
)

type state struct {
	Vertices []scene.Vertex
	Shapes   []scene.Shape
	Layers   []scene.Layer
}

func captureState(s *Store) state {
	return state{Vertices: s.Vertices(), Shapes: s.Shapes(), Layers: s.Layers()}
}

func TestNewStoreWritesBaseline(t *testing.T) {
	s := newTestStore(t, Options{})

	assert.Equal(t, 1, s.HistoryLen())
	assert.Equal(t, 0, s.HistoryIndex())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
}

func TestUndoRedoSymmetry(t *testing.T) {
	s := newTestStore(t, Options{})
	empty := captureState(s)

	cube := addCube(t, s, 8)
	_, err := s.AddVertex(VertexSpec{Position: scene.V3(1, 2, 3)})
	require.NoError(t, err)
	require.NoError(t, s.UpdateShape(cube.ID, ShapePatch{ElementCount: ptr(12)}))
	_, err = s.AddLayer(scene.Layer{Name: "Trail", Color: "#ff8800"})
	require.NoError(t, err)
	const mutations = 4

	s.ClearAllSelections()
	final := captureState(s)
	require.Equal(t, mutations+1, s.HistoryLen())

	for range mutations {
		require.True(t, s.Undo())
	}
	assert.False(t, s.Undo())
	assert.Equal(t, empty, captureState(s))

	for range mutations {
		require.True(t, s.Redo())
	}
	assert.False(t, s.Redo())
	assert.Equal(t, final, captureState(s))
}

func TestUndoRestoresIndependentCopies(t *testing.T) {
	s := newTestStore(t, Options{})
	sh := addCube(t, s, 8)
	require.NoError(t, s.UpdateShape(sh.ID, ShapePatch{Name: ptr("renamed")}))

	require.True(t, s.Undo())
	got, _ := s.Shape(sh.ID)
	assert.Empty(t, got.Name)

	// Mutating the live shape must not reach the snapshot it came from.
	require.NoError(t, s.DeleteVertex(got.Vertices[0]))
	require.True(t, s.Undo())
	got, _ = s.Shape(sh.ID)
	assert.Len(t, got.Vertices, 8)
}

func TestUndoClearsSelection(t *testing.T) {
	s := newTestStore(t, Options{})
	sh := addCube(t, s, 8)
	addCube(t, s, 8)
	require.NoError(t, s.SelectShape(sh.ID, false))

	require.True(t, s.Undo())

	assert.Empty(t, s.SelectedVertices())
	assert.Empty(t, s.SelectedShapes())
}

func TestSaveAfterUndoTruncates(t *testing.T) {
	s := newTestStore(t, Options{})
	for range 2 {
		_, err := s.AddVertex(VertexSpec{})
		require.NoError(t, err)
	}
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	_, err := s.AddVertex(VertexSpec{})
	require.NoError(t, err)

	assert.Equal(t, 3, s.HistoryLen())
	assert.Equal(t, 2, s.HistoryIndex())
	assert.False(t, s.CanRedo())
}

func TestHistoryLimitDropsOldest(t *testing.T) {
	s := newTestStore(t, Options{HistoryLimit: 3})
	for range 5 {
		_, err := s.AddVertex(VertexSpec{})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, s.HistoryLen())
	assert.Equal(t, 2, s.HistoryIndex())

	require.True(t, s.Undo())
	require.True(t, s.Undo())
	assert.False(t, s.Undo())
	assert.Equal(t, 3, s.VertexCount())
}

func TestUndoDispatchesEvent(t *testing.T) {
	s := newTestStore(t, Options{})
	_, err := s.AddVertex(VertexSpec{})
	require.NoError(t, err)

	var indexes []any
	s.Events().Subscribe(EventHistoryRestored, ListenerFunc(func(e Event) { indexes = append(indexes, e.Data) }))

	require.True(t, s.Undo())
	require.True(t, s.Redo())
	assert.Equal(t, []any{0, 1}, indexes)
}

func TestClearHistory(t *testing.T) {
	s := newTestStore(t, Options{})
	_, err := s.AddVertex(VertexSpec{})
	require.NoError(t, err)

	s.ClearHistory()
	assert.Zero(t, s.HistoryLen())
	assert.Equal(t, -1, s.HistoryIndex())
	assert.False(t, s.Undo())

	s.SaveToHistory(true)
	assert.Equal(t, 1, s.HistoryLen())
	assert.Equal(t, 0, s.HistoryIndex())
}
