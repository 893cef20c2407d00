package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxlayout/fxlayout/internal/scene"
)

func apply(t *testing.T, s *Store, raw string) Result {
	t.Helper()
	cmd, err := DecodeCommand([]byte(raw))
	require.NoError(t, err)
	res, err := s.Apply(context.Background(), cmd)
	require.NoError(t, err)
	return res
}

func TestEncodeDecodeCommand(t *testing.T) {
	in := UpdateShapeCommand{ID: "shape_1", Patch: ShapePatch{ElementCount: ptr(12), Name: ptr("Orb")}}

	data, err := EncodeCommand(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"updateShape","payload":{"id":"shape_1","patch":{"elementCount":12,"name":"Orb"}}}`, string(data))

	out, err := DecodeCommand(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeCommandErrors(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"kind":"explode"}`))
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = DecodeCommand([]byte(`{"kind":"addShape","payload":{"shape":{"elementCount":"many"}}}`))
	assert.Error(t, err)

	cmd, err := DecodeCommand([]byte(`{"kind":"undo"}`))
	require.NoError(t, err)
	assert.Equal(t, UndoCommand{}, cmd)
}

func TestApplyCommandSequence(t *testing.T) {
	s := newTestStore(t, Options{})

	res := apply(t, s, `{"kind":"addShape","payload":{"shape":{"type":"circle","elementCount":6,"radius":2}}}`)
	require.Len(t, res.IDs, 1)
	shapeID := res.IDs[0]
	assert.Equal(t, 6, s.VertexCount())

	res = apply(t, s, `{"kind":"addVertices","payload":{"vertices":[{"position":{"x":1,"y":0,"z":0}},{"position":{"x":2,"y":0,"z":0}}]}}`)
	assert.Len(t, res.IDs, 2)
	assert.Equal(t, 8, s.VertexCount())

	res = apply(t, s, `{"kind":"updateShape","payload":{"id":"`+shapeID+`","patch":{"elementCount":10}}}`)
	assert.True(t, res.Applied)
	assert.Equal(t, 12, s.VertexCount())

	res = apply(t, s, `{"kind":"undo"}`)
	assert.True(t, res.Applied)
	assert.Equal(t, 8, s.VertexCount())

	res = apply(t, s, `{"kind":"redo"}`)
	assert.True(t, res.Applied)
	assert.Equal(t, 12, s.VertexCount())

	res = apply(t, s, `{"kind":"deleteShape","payload":{"id":"`+shapeID+`"}}`)
	assert.True(t, res.Applied)
	assert.Equal(t, 2, s.VertexCount())

	res = apply(t, s, `{"kind":"redo"}`)
	assert.False(t, res.Applied)
}

func TestApplyBatchUpdatesSaveOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, Options{ChunkThreshold: 2, ChunkSize: 1})
	ids, err := s.AddVerticesBatch([]VertexSpec{{}, {}, {}})
	require.NoError(t, err)
	before := s.HistoryLen()

	updates := make([]VertexUpdate, len(ids))
	for i, id := range ids {
		updates[i] = VertexUpdate{ID: id, Patch: VertexPatch{Color: ptr("#123456")}}
	}
	_, err = s.Apply(ctx, UpdateVerticesCommand{Updates: updates})
	require.NoError(t, err)

	assert.Equal(t, before+1, s.HistoryLen())
	for _, v := range s.Vertices() {
		assert.Equal(t, "#123456", v.Color)
	}
}

func TestApplyShapeBatchKeepsVertices(t *testing.T) {
	s := newTestStore(t, Options{})
	sh := addCube(t, s, 8)

	_, err := s.Apply(context.Background(), UpdateShapesCommand{
		Batch:   true,
		Updates: []ShapeUpdate{{ID: sh.ID, Patch: ShapePatch{Position: ptr(scene.V3(4, 0, 0)), ElementCount: ptr(30)}}},
	})
	require.NoError(t, err)

	got, _ := s.Shape(sh.ID)
	assert.Equal(t, scene.V3(4, 0, 0), got.Position)
	assert.Equal(t, sh.Vertices, got.Vertices)
	assert.Equal(t, 8, got.ElementCount)
}

func TestApplyPropagatesErrors(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	_, err := s.Apply(ctx, DeleteVertexCommand{ID: "vtx_missing"})
	assert.ErrorIs(t, err, ErrVertexNotFound)

	_, err = s.Apply(ctx, ImportShapeCommand{})
	assert.ErrorIs(t, err, ErrEmptyImport)

	_, err = s.Apply(ctx, DeleteLayerCommand{ID: scene.DefaultLayerID})
	assert.ErrorIs(t, err, ErrLastLayer)
}
