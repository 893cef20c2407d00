// Package db persists users, projects, memberships and scene snapshots. Two
// backends implement Repository: PostgreSQL through pgx and an embedded
// SQLite database for single-node deployments.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

//go:embed schema/*.sql
var schemaFS embed.FS

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

type Project struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member is a project membership joined with the member's user record.
type Member struct {
	ProjectID   string
	UserID      string
	Role        Role
	DisplayName string
	Email       string
}

type Snapshot struct {
	ID        string
	ProjectID string
	Version   int
	Document  []byte
	CreatedAt time.Time
}

// SnapshotInfo describes a stored version without its document.
type SnapshotInfo struct {
	ID        string
	Version   int
	Size      int
	CreatedAt time.Time
}

type Repository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateProject(ctx context.Context, p Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]Project, error)
	DeleteProject(ctx context.Context, id string) error

	AddProjectMember(ctx context.Context, projectID, userID string, role Role) error
	GetProjectMember(ctx context.Context, projectID, userID string) (Member, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]Member, error)
	RemoveProjectMember(ctx context.Context, projectID, userID string) error

	// CreateSnapshot stores a new scene version and bumps the project's
	// updated_at. A repeated (project, version) pair is ErrDuplicate.
	CreateSnapshot(ctx context.Context, s Snapshot) (Snapshot, error)
	GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error)
	GetSnapshot(ctx context.Context, projectID string, version int) (Snapshot, error)
	// ListSnapshots returns at most limit versions, newest first.
	ListSnapshots(ctx context.Context, projectID string, limit int) ([]SnapshotInfo, error)

	Close()
}

// Options selects and configures a backend.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// Open connects to the configured backend and applies its schema.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case "postgres":
		return OpenPostgres(ctx, opts.DatabaseURL)
	case "sqlite", "":
		return OpenSQLite(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func schema(name string) (string, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return "", fmt.Errorf("read schema %s: %w", name, err)
	}
	return string(data), nil
}
