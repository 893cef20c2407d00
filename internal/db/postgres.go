package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenPostgres connects a pool and creates missing tables.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	ddl, err := schema("postgres.sql")
	if err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName,
	).Scan(&u.CreatedAt)
	if err != nil {
		return User{}, pgError("create user", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (User, error) {
	return p.getUser(ctx, `WHERE id = $1`, id)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return p.getUser(ctx, `WHERE email = $1`, email)
}

func (p *Postgres) getUser(ctx context.Context, where string, arg string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return User{}, pgError("get user", err)
	}
	return u, nil
}

func (p *Postgres) CreateProject(ctx context.Context, pr Project) (Project, error) {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO projects (id, name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		pr.ID, pr.Name, pr.OwnerID,
	).Scan(&pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return Project{}, pgError("create project", err)
	}
	return pr, nil
}

func (p *Postgres) GetProject(ctx context.Context, id string) (Project, error) {
	var pr Project
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM projects WHERE id = $1`, id,
	).Scan(&pr.ID, &pr.Name, &pr.OwnerID, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return Project{}, pgError("get project", err)
	}
	return pr, nil
}

func (p *Postgres) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT p.id, p.name, p.owner_id, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.updated_at DESC`, userID)
	if err != nil {
		return nil, pgError("list projects", err)
	}
	projects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Project, error) {
		var pr Project
		err := row.Scan(&pr.ID, &pr.Name, &pr.OwnerID, &pr.CreatedAt, &pr.UpdatedAt)
		return pr, err
	})
	if err != nil {
		return nil, pgError("list projects", err)
	}
	return projects, nil
}

func (p *Postgres) DeleteProject(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return pgError("delete project", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AddProjectMember(ctx context.Context, projectID, userID string, role Role) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)`, projectID, userID, string(role))
	if err != nil {
		return pgError("add member", err)
	}
	return nil
}

func (p *Postgres) GetProjectMember(ctx context.Context, projectID, userID string) (Member, error) {
	var m Member
	err := p.pool.QueryRow(ctx, `
		SELECT m.project_id, m.user_id, m.role, u.display_name, u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1 AND m.user_id = $2`, projectID, userID,
	).Scan(&m.ProjectID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
	if err != nil {
		return Member{}, pgError("get member", err)
	}
	return m, nil
}

func (p *Postgres) ListProjectMembers(ctx context.Context, projectID string) ([]Member, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT m.project_id, m.user_id, m.role, u.display_name, u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY u.display_name`, projectID)
	if err != nil {
		return nil, pgError("list members", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Member, error) {
		var m Member
		err := row.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
		return m, err
	})
	if err != nil {
		return nil, pgError("list members", err)
	}
	return members, nil
}

func (p *Postgres) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return pgError("remove member", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateSnapshot(ctx context.Context, s Snapshot) (Snapshot, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO snapshots (id, project_id, version, document)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		s.ID, s.ProjectID, s.Version, s.Document,
	).Scan(&s.CreatedAt)
	if err != nil {
		return Snapshot{}, pgError("create snapshot", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, s.ProjectID); err != nil {
		return Snapshot{}, pgError("touch project", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	return s, nil
}

func (p *Postgres) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	var s Snapshot
	err := p.pool.QueryRow(ctx, `
		SELECT id, project_id, version, document, created_at
		FROM snapshots
		WHERE project_id = $1
		ORDER BY version DESC
		LIMIT 1`, projectID,
	).Scan(&s.ID, &s.ProjectID, &s.Version, &s.Document, &s.CreatedAt)
	if err != nil {
		return Snapshot{}, pgError("get snapshot", err)
	}
	return s, nil
}

func (p *Postgres) GetSnapshot(ctx context.Context, projectID string, version int) (Snapshot, error) {
	var s Snapshot
	err := p.pool.QueryRow(ctx, `
		SELECT id, project_id, version, document, created_at
		FROM snapshots
		WHERE project_id = $1 AND version = $2`, projectID, version,
	).Scan(&s.ID, &s.ProjectID, &s.Version, &s.Document, &s.CreatedAt)
	if err != nil {
		return Snapshot{}, pgError("get snapshot version", err)
	}
	return s, nil
}

func (p *Postgres) ListSnapshots(ctx context.Context, projectID string, limit int) ([]SnapshotInfo, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, version, octet_length(document::text), created_at
		FROM snapshots
		WHERE project_id = $1
		ORDER BY version DESC
		LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, pgError("list snapshots", err)
	}
	infos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SnapshotInfo, error) {
		var si SnapshotInfo
		err := row.Scan(&si.ID, &si.Version, &si.Size, &si.CreatedAt)
		return si, err
	})
	if err != nil {
		return nil, pgError("list snapshots", err)
	}
	return infos, nil
}

func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
