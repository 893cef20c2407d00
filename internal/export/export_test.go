package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxlayout/fxlayout/internal/editor"
	"github.com/fxlayout/fxlayout/internal/project"
	"github.com/fxlayout/fxlayout/internal/scene"
)

func testDocument() *scene.Document {
	doc := scene.NewEmptyDocument()
	doc.Layers = append(doc.Layers, scene.Layer{ID: "layer_fx", Name: "FX", Color: "#00ff00", Particle: "flame", Visible: true})
	doc.Vertices = []scene.Vertex{
		{ID: "v1", Position: scene.V3(1, 2, 3), Layer: scene.DefaultLayerID, Visible: true},
		{ID: "v2", Position: scene.V3(0, 1, 0), Layer: "layer_fx", Color: "#ff0000", Visible: true},
		{ID: "v3", Layer: "layer_gone", Visible: true},
		{ID: "hidden", Layer: scene.DefaultLayerID},
	}
	doc.Shapes = []scene.Shape{
		{ID: "s1", Type: scene.ShapeCube, Scale: scene.V3(2, 2, 2), Visible: true},
		{ID: "s2", Type: scene.ShapeSphere, Visible: true, Color: "#abcdef", Particle: "spark"},
		{ID: "s3", Type: scene.ShapeCircle, Visible: true},
		{ID: "s4", Type: scene.ShapeLine, Visible: true},
		{ID: "s5", Type: scene.ShapeImported, Visible: true},
		{ID: "s6", Type: scene.ShapeCube},
	}
	return doc
}

func TestExportToMainSystem(t *testing.T) {
	elems := ExportToMainSystem(testDocument())

	var types []string
	for _, e := range elems {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"point", "point", "point", "square", "circle", "ring", "line", "custom"}, types)

	byID := make(map[string]Element, len(elems))
	for _, e := range elems {
		byID[e.ID] = e
	}
	assert.NotContains(t, byID, "hidden")
	assert.NotContains(t, byID, "s6")

	assert.Equal(t, scene.DefaultColor, byID["v1"].Color)
	assert.Equal(t, scene.DefaultEffectType, byID["v1"].Particle)
	assert.Nil(t, byID["v1"].Scale)
	assert.Equal(t, "#ff0000", byID["v2"].Color)
	assert.Equal(t, "flame", byID["v2"].Particle)

	require.NotNil(t, byID["s1"].Scale)
	assert.Equal(t, scene.V3(2, 2, 2), *byID["s1"].Scale)
	assert.Equal(t, "#abcdef", byID["s2"].Color)
	assert.Equal(t, "spark", byID["s2"].Particle)
}

func TestGroupByLayer(t *testing.T) {
	groups := GroupByLayer(testDocument())

	require.Len(t, groups, 2)
	assert.Equal(t, scene.DefaultLayerID, groups[0].ID)
	var ids []string
	for _, e := range groups[0].Elements {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"v1", "v3"}, ids)
	require.Len(t, groups[1].Elements, 1)
	assert.Equal(t, "v2", groups[1].Elements[0].ID)

	assert.Empty(t, GroupByLayer(&scene.Document{}))
}

type fakeScenes struct {
	store *editor.Store
	err   error
}

func (f fakeScenes) WithStore(_ context.Context, _ string, _ bool, fn func(*editor.Store) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(f.store)
}

type fakeAccess struct{ err error }

func (f fakeAccess) CheckAccess(context.Context, string, string) error { return f.err }

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc("/projects/{projectId}/export", h.Elements).Methods("GET")
	r.HandleFunc("/projects/{projectId}/scene", h.Scene).Methods("GET")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler(t *testing.T) {
	store := editor.NewStore(editor.Options{})
	_, err := store.AddShape(editor.ShapeSpec{Type: scene.ShapeCircle, ElementCount: 4})
	require.NoError(t, err)
	h := NewHandler(fakeScenes{store: store}, fakeAccess{})

	rec := serve(h, "/projects/proj_1/export")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Elements, 5)
	assert.Equal(t, "ring", resp.Elements[4].Type)
	require.Len(t, resp.Layers, 1)
	assert.Len(t, resp.Layers[0].Elements, 4)

	rec = serve(h, "/projects/proj_1/scene?download=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "proj_1.json")
	var doc scene.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.Len(t, doc.Vertices, 4)
}

func TestHandlerErrors(t *testing.T) {
	rec := serve(NewHandler(fakeScenes{}, fakeAccess{err: project.ErrNotMember}), "/projects/proj_1/export")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(NewHandler(fakeScenes{err: project.ErrNotFound}, fakeAccess{}), "/projects/proj_1/scene")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(NewHandler(fakeScenes{err: errors.New("boom")}, fakeAccess{}), "/projects/proj_1/scene")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
