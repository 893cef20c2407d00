package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fxlayout/fxlayout/internal/auth"
	"github.com/fxlayout/fxlayout/internal/editor"
	"github.com/fxlayout/fxlayout/internal/project"
	"github.com/fxlayout/fxlayout/internal/scene"
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

// Response is the body of the elements export.
type Response struct {
	Version    string       `json:"version"`
	ExportedAt string       `json:"exportedAt"`
	Elements   []Element    `json:"elements"`
	Layers     []LayerGroup `json:"layers"`
}

// Elements handles GET /api/projects/{projectId}/export.
func (h *Handler) Elements(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Version:    doc.Version,
		ExportedAt: doc.ExportedAt,
		Elements:   ExportToMainSystem(&doc),
		Layers:     GroupByLayer(&doc),
	})
}

// Scene handles GET /api/projects/{projectId}/scene. With ?download=1 the
// document is sent as a file attachment.
func (h *Handler) Scene(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		slog.Error("marshal scene", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if r.URL.Query().Get("download") == "1" {
		name := fmt.Sprintf("%s.json", mux.Vars(r)["projectId"])
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (scene.Document, bool) {
	ctx := r.Context()
	projectID := mux.Vars(r)["projectId"]

	if err := h.access.CheckAccess(ctx, projectID, auth.UserIDFromContext(ctx)); err != nil {
		handleServiceError(w, err)
		return scene.Document{}, false
	}

	var doc scene.Document
	err := h.scenes.WithStore(ctx, projectID, false, func(s *editor.Store) error {
		doc = s.ExportScene()
		return nil
	})
	if err != nil {
		handleServiceError(w, err)
		return scene.Document{}, false
	}
	return doc, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, project.ErrNotMember):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a project member"})
	default:
		slog.Error("export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
