package importer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fxlayout/fxlayout/internal/auth"
	"github.com/fxlayout/fxlayout/internal/editor"
	"github.com/fxlayout/fxlayout/internal/project"
)

const (
	maxUploadSize = 10 << 20 // 10MB
	maxVertices   = 200_000
)

// Scenes gives access to a project's live scene.
type Scenes interface {
	WithStore(ctx context.Context, projectID string, mutate bool, fn func(*editor.Store) error) error
}

type AccessChecker interface {
	CheckAccess(ctx context.Context, projectID, userID string) error
}

type Handler struct {
	scenes Scenes
	access AccessChecker
}

func NewHandler(scenes Scenes, access AccessChecker) *Handler {
	return &Handler{scenes: scenes, access: access}
}

type ImportResponse struct {
	ShapeID     string `json:"shapeId"`
	VertexCount int    `json:"vertexCount"`
}

// ImportOBJ handles POST /api/projects/{projectId}/import/obj. The multipart
// form carries the model in "file"; "layer" picks the target layer and "fit"
// rescales the model so its largest extent matches the given size.
func (h *Handler) ImportOBJ(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	if !strings.EqualFold(extension(header.Filename), ".obj") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only .obj files are supported"})
		return
	}

	points, err := ParseOBJ(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not read file"})
		return
	}
	if len(points) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no vertices found in OBJ file"})
		return
	}
	if len(points) > maxVertices {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "model has too many vertices"})
		return
	}
	if fit := r.FormValue("fit"); fit != "" {
		size, err := strconv.ParseFloat(fit, 64)
		if err != nil || size <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "fit must be a positive number"})
			return
		}
		points = Fit(points, size)
	}

	var shapeID string
	err = h.scenes.WithStore(r.Context(), projectID, true, func(s *editor.Store) error {
		var err error
		shapeID, err = s.ImportShape(points, r.FormValue("layer"))
		return err
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("obj imported", "project", projectID, "file", header.Filename, "vertices", len(points))
	writeJSON(w, http.StatusCreated, ImportResponse{ShapeID: shapeID, VertexCount: len(points)})
}

// ReplaceScene handles PUT /api/projects/{projectId}/scene with a scene
// document body. An invalid document leaves the scene untouched.
func (h *Handler) ReplaceScene(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request too large"})
		return
	}

	err = h.scenes.WithStore(r.Context(), projectID, true, func(s *editor.Store) error {
		return s.ImportScene(data)
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	projectID := mux.Vars(r)["projectId"]
	if err := h.access.CheckAccess(r.Context(), projectID, auth.UserIDFromContext(r.Context())); err != nil {
		handleServiceError(w, err)
		return "", false
	}
	return projectID, true
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, project.ErrNotMember):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a project member"})
	case errors.Is(err, editor.ErrInvalidDocument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, editor.ErrLayerNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "layer not found"})
	case errors.Is(err, editor.ErrEmptyImport):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no vertices found in OBJ file"})
	case errors.Is(err, editor.ErrCommitInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "scene is being edited, retry"})
	default:
		slog.Error("import failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
