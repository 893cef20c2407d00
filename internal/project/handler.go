package project

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fxlayout/fxlayout/internal/auth"
	"github.com/fxlayout/fxlayout/internal/editor"
)

// Scenes applies changes to the scene a project's editors are working on.
type Scenes interface {
	WithStore(ctx context.Context, projectID string, mutate bool, fn func(*editor.Store) error) error
}

type Handler struct {
	service *Service
	scenes  Scenes
}

func NewHandler(service *Service, scenes Scenes) *Handler {
	return &Handler{service: service, scenes: scenes}
}

const maxNameLen = 120

type createRequest struct {
	Name     string   `json:"name"`
	Template Template `json:"template"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

// Create handles POST /api/projects. The optional template picks the
// starting scene ("empty" or "sample").
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		writeError(w, http.StatusBadRequest, "name is required")
		return
	case len(name) > maxNameLen:
		writeError(w, http.StatusBadRequest, "name is too long")
		return
	}

	p, err := h.service.Create(r.Context(), name, auth.UserIDFromContext(r.Context()), req.Template)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/projects/{projectId}, including a summary of the
// stored scene.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, projectID := scope(r)

	detail, err := h.service.Get(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, projectID := scope(r)

	if err := h.service.Delete(r.Context(), projectID, userID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, projectID := scope(r)

	var req inviteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.InviteByEmail(r.Context(), projectID, userID, email); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "invited"})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, projectID := scope(r)

	members, err := h.service.ListMembers(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, projectID := scope(r)

	if err := h.service.RemoveMember(r.Context(), projectID, userID, mux.Vars(r)["userId"]); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSnapshots handles GET /api/projects/{projectId}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	userID, projectID := scope(r)

	snaps, err := h.service.ListSnapshots(r.Context(), projectID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// GetSnapshot handles GET /api/projects/{projectId}/snapshots/{version}, where
// version is a number or "latest".
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, projectID := scope(r)
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	doc, err := h.service.SnapshotDocument(r.Context(), projectID, userID, version)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// RestoreSnapshot handles POST /api/projects/{projectId}/snapshots/{version}/restore.
// The stored scene replaces the live one; editors in the room get a fresh
// sync and the restored scene is saved as a new version.
func (h *Handler) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, projectID := scope(r)
	version, ok := versionParam(w, r)
	if !ok {
		return
	}

	doc, err := h.service.SnapshotDocument(ctx, projectID, userID, version)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var counts SceneSummary
	err = h.scenes.WithStore(ctx, projectID, true, func(s *editor.Store) error {
		if err := s.LoadDocument(*doc); err != nil {
			return err
		}
		counts = SceneSummary{
			Version:  version,
			Vertices: s.VertexCount(),
			Shapes:   len(s.Shapes()),
			Layers:   len(s.Layers()),
		}
		return nil
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("scene restored", "project", projectID, "version", version, "user", userID)
	writeJSON(w, http.StatusOK, counts)
}

// scope returns the caller and the project addressed by the route.
func scope(r *http.Request) (userID, projectID string) {
	return auth.UserIDFromContext(r.Context()), mux.Vars(r)["projectId"]
}

func versionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := mux.Vars(r)["version"]
	if raw == "latest" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		writeError(w, http.StatusBadRequest, "version must be a positive number or \"latest\"")
		return 0, false
	}
	return v, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrSnapshotNotFound):
		writeError(w, http.StatusNotFound, "snapshot not found")
	case errors.Is(err, ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrNotMember):
		writeError(w, http.StatusForbidden, "not a project member")
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrAlreadyMember):
		writeError(w, http.StatusConflict, "already a project member")
	case errors.Is(err, ErrCannotRemoveOwner):
		writeError(w, http.StatusBadRequest, "cannot remove project owner")
	case errors.Is(err, ErrUnknownTemplate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, editor.ErrInvalidDocument):
		writeError(w, http.StatusUnprocessableEntity, "snapshot is not a valid scene")
	case errors.Is(err, editor.ErrCommitInProgress):
		writeError(w, http.StatusConflict, "scene is being edited, try again")
	default:
		slog.Error("project request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
