package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fxlayout/fxlayout/internal/db"
	"github.com/fxlayout/fxlayout/internal/editor"
	"github.com/fxlayout/fxlayout/internal/scene"
	"github.com/fxlayout/fxlayout/internal/typeid"
)

// PlaygroundID is the shared scratch project. It is open to anonymous users
// and never persisted.
const PlaygroundID = "proj_playground"

var (
	ErrNotFound          = errors.New("project not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNotMember         = errors.New("not a project member")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyMember     = errors.New("already a project member")
	ErrCannotRemoveOwner = errors.New("cannot remove project owner")
	ErrUnknownTemplate   = errors.New("unknown scene template")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
)

// Template names the scene a new project starts from.
type Template string

const (
	TemplateEmpty  Template = "empty"
	TemplateSample Template = "sample"
)

// maxSnapshotList bounds the version history returned by ListSnapshots.
const maxSnapshotList = 50

type Service struct {
	repo db.Repository
}

func NewService(repo db.Repository) *Service {
	return &Service{repo: repo}
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// SceneSummary describes the stored scene of a project.
type SceneSummary struct {
	Version  int    `json:"version"`
	SavedAt  string `json:"savedAt"`
	Vertices int    `json:"vertices"`
	Shapes   int    `json:"shapes"`
	Layers   int    `json:"layers"`
}

// Detail is a project together with a summary of its latest scene.
type Detail struct {
	Project
	Scene SceneSummary `json:"scene"`
}

type SnapshotInfo struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	Size      int    `json:"size"`
	CreatedAt string `json:"createdAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Create makes a project owned by ownerID and stores the template scene as
// version 1.
func (s *Service) Create(ctx context.Context, name, ownerID string, tmpl Template) (*Project, error) {
	doc, err := templateDocument(tmpl)
	if err != nil {
		return nil, err
	}
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s scene: %w", tmpl, err)
	}

	dbProj, err := s.repo.CreateProject(ctx, db.Project{
		ID:      typeid.NewProjectID(),
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if err := s.repo.AddProjectMember(ctx, dbProj.ID, ownerID, db.RoleOwner); err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	_, err = s.repo.CreateSnapshot(ctx, db.Snapshot{
		ID:        typeid.NewSnapshotID(),
		ProjectID: dbProj.ID,
		Version:   1,
		Document:  docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return toProject(dbProj), nil
}

// Get returns the project with a summary of its latest stored scene.
func (s *Service) Get(ctx context.Context, projectID, userID string) (*Detail, error) {
	if err := s.CheckAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	dbProj, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	detail := &Detail{Project: *toProject(dbProj)}

	snap, err := s.repo.GetLatestSnapshot(ctx, projectID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return detail, nil
	case err != nil:
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	doc, err := decodeSnapshot(snap)
	if err != nil {
		return nil, err
	}
	detail.Scene = summarize(snap, doc)
	return detail, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	dbProjects, err := s.repo.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(dbProjects))
	for i, p := range dbProjects {
		projects[i] = *toProject(p)
	}
	return projects, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if _, err := s.requireOwner(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *Service) InviteByEmail(ctx context.Context, projectID, ownerID, inviteeEmail string) error {
	if _, err := s.requireOwner(ctx, projectID, ownerID); err != nil {
		return err
	}

	invitee, err := s.repo.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	err = s.repo.AddProjectMember(ctx, projectID, invitee.ID, db.RoleEditor)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, projectID, userID string) ([]Member, error) {
	if err := s.CheckAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.repo.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, projectID, ownerID, targetUserID string) error {
	if _, err := s.requireOwner(ctx, projectID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return ErrCannotRemoveOwner
	}

	if err := s.repo.RemoveProjectMember(ctx, projectID, targetUserID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// ListSnapshots returns the newest stored scene versions.
func (s *Service) ListSnapshots(ctx context.Context, projectID, userID string) ([]SnapshotInfo, error) {
	if err := s.CheckAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	infos, err := s.repo.ListSnapshots(ctx, projectID, maxSnapshotList)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]SnapshotInfo, len(infos))
	for i, si := range infos {
		out[i] = SnapshotInfo{
			ID:        si.ID,
			Version:   si.Version,
			Size:      si.Size,
			CreatedAt: formatTime(si.CreatedAt),
		}
	}
	return out, nil
}

// SnapshotDocument returns the scene stored as version. Version 0 selects the
// latest one.
func (s *Service) SnapshotDocument(ctx context.Context, projectID, userID string, version int) (*scene.Document, error) {
	if err := s.CheckAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	var (
		snap db.Snapshot
		err  error
	)
	if version == 0 {
		snap, err = s.repo.GetLatestSnapshot(ctx, projectID)
	} else {
		snap, err = s.repo.GetSnapshot(ctx, projectID, version)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return decodeSnapshot(snap)
}

// CheckAccess reports whether userID may read and edit the project's scene.
func (s *Service) CheckAccess(ctx context.Context, projectID, userID string) error {
	if projectID == PlaygroundID {
		return nil
	}
	_, err := s.repo.GetProjectMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

// LoadDocument returns the scene of the latest snapshot. The playground starts
// from an empty scene.
func (s *Service) LoadDocument(ctx context.Context, projectID string) (*scene.Document, error) {
	if projectID == PlaygroundID {
		return scene.NewEmptyDocument(), nil
	}

	snap, err := s.repo.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return decodeSnapshot(snap)
}

// SaveDocument stores doc as the next snapshot version. A concurrent writer
// claiming the same version causes one retry.
func (s *Service) SaveDocument(ctx context.Context, projectID string, doc *scene.Document) error {
	if projectID == PlaygroundID {
		return nil
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	for attempt := 0; ; attempt++ {
		nextVersion := 1
		current, err := s.repo.GetLatestSnapshot(ctx, projectID)
		switch {
		case err == nil:
			nextVersion = current.Version + 1
		case !errors.Is(err, db.ErrNotFound):
			return fmt.Errorf("get snapshot: %w", err)
		}

		_, err = s.repo.CreateSnapshot(ctx, db.Snapshot{
			ID:        typeid.NewSnapshotID(),
			ProjectID: projectID,
			Version:   nextVersion,
			Document:  docJSON,
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, db.ErrDuplicate) || attempt > 0 {
			return fmt.Errorf("create snapshot: %w", err)
		}
	}
}

func (s *Service) getProject(ctx context.Context, projectID string) (db.Project, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Project{}, ErrNotFound
		}
		return db.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *Service) requireOwner(ctx context.Context, projectID, userID string) (db.Project, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return db.Project{}, err
	}
	if p.OwnerID != userID {
		return db.Project{}, ErrForbidden
	}
	return p, nil
}

func toProject(p db.Project) *Project {
	return &Project{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeSnapshot(snap db.Snapshot) (*scene.Document, error) {
	var doc scene.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	return &doc, nil
}

func summarize(snap db.Snapshot, doc *scene.Document) SceneSummary {
	return SceneSummary{
		Version:  snap.Version,
		SavedAt:  formatTime(snap.CreatedAt),
		Vertices: len(doc.Vertices),
		Shapes:   len(doc.Shapes),
		Layers:   len(doc.Layers),
	}
}

// templateDocument builds the first scene of a new project.
func templateDocument(tmpl Template) (*scene.Document, error) {
	switch tmpl {
	case TemplateEmpty, "":
		return scene.NewEmptyDocument(), nil
	case TemplateSample:
		store := editor.NewStore(editor.DefaultOptions())
		if err := store.LoadSample(); err != nil {
			return nil, fmt.Errorf("build sample scene: %w", err)
		}
		doc := store.ExportScene()
		doc.ClearSelection()
		return &doc, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownTemplate, tmpl)
	}
}
