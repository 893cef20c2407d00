package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLite stores everything in a single database file. Timestamps are unix
// milliseconds.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	ddl, err := schema("sqlite.sql")
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: conn, now: time.Now}, nil
}

func (s *SQLite) Close() { s.db.Close() }

func (s *SQLite) CreateUser(ctx context.Context, u User) (User, error) {
	u.CreatedAt = s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt.UnixMilli())
	if err != nil {
		return User{}, sqliteError("create user", err)
	}
	return u, nil
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *SQLite) getUser(ctx context.Context, where, arg string) (User, error) {
	var (
		u       User
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, created_at
		FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &created)
	if err != nil {
		return User{}, sqliteError("get user", err)
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, nil
}

func (s *SQLite) CreateProject(ctx context.Context, p Project) (Project, error) {
	p.CreatedAt = s.stamp()
	p.UpdatedAt = p.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.OwnerID, p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return Project{}, sqliteError("create project", err)
	}
	return p, nil
}

func (s *SQLite) GetProject(ctx context.Context, id string) (Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		return Project{}, sqliteError("get project", err)
	}
	return p, nil
}

func (s *SQLite) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.owner_id, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.updated_at DESC`, userID)
	if err != nil {
		return nil, sqliteError("list projects", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, sqliteError("list projects", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("list projects", err)
	}
	return projects, nil
}

func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return sqliteError("delete project", err)
	}
	return expectAffected(res)
}

func (s *SQLite) AddProjectMember(ctx context.Context, projectID, userID string, role Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES (?, ?, ?)`, projectID, userID, string(role))
	if err != nil {
		return sqliteError("add member", err)
	}
	return nil
}

func (s *SQLite) GetProjectMember(ctx context.Context, projectID, userID string) (Member, error) {
	var m Member
	err := s.db.QueryRowContext(ctx, `
		SELECT m.project_id, m.user_id, m.role, u.display_name, u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ? AND m.user_id = ?`, projectID, userID,
	).Scan(&m.ProjectID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
	if err != nil {
		return Member{}, sqliteError("get member", err)
	}
	return m, nil
}

func (s *SQLite) ListProjectMembers(ctx context.Context, projectID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.project_id, m.user_id, m.role, u.display_name, u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ?
		ORDER BY u.display_name`, projectID)
	if err != nil {
		return nil, sqliteError("list members", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.DisplayName, &m.Email); err != nil {
			return nil, sqliteError("list members", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("list members", err)
	}
	return members, nil
}

func (s *SQLite) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return sqliteError("remove member", err)
	}
	return expectAffected(res)
}

func (s *SQLite) CreateSnapshot(ctx context.Context, snap Snapshot) (Snapshot, error) {
	snap.CreatedAt = s.stamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, project_id, version, document, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.ProjectID, snap.Version, snap.Document, snap.CreatedAt.UnixMilli())
	if err != nil {
		return Snapshot{}, sqliteError("create snapshot", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`,
		snap.CreatedAt.UnixMilli(), snap.ProjectID)
	if err != nil {
		return Snapshot{}, sqliteError("touch project", err)
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	return snap, nil
}

func (s *SQLite) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	var (
		snap    Snapshot
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, document, created_at
		FROM snapshots
		WHERE project_id = ?
		ORDER BY version DESC
		LIMIT 1`, projectID,
	).Scan(&snap.ID, &snap.ProjectID, &snap.Version, &snap.Document, &created)
	if err != nil {
		return Snapshot{}, sqliteError("get snapshot", err)
	}
	snap.CreatedAt = time.UnixMilli(created).UTC()
	return snap, nil
}

func (s *SQLite) GetSnapshot(ctx context.Context, projectID string, version int) (Snapshot, error) {
	var (
		snap    Snapshot
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, document, created_at
		FROM snapshots
		WHERE project_id = ? AND version = ?`, projectID, version,
	).Scan(&snap.ID, &snap.ProjectID, &snap.Version, &snap.Document, &created)
	if err != nil {
		return Snapshot{}, sqliteError("get snapshot version", err)
	}
	snap.CreatedAt = time.UnixMilli(created).UTC()
	return snap, nil
}

func (s *SQLite) ListSnapshots(ctx context.Context, projectID string, limit int) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, length(document), created_at
		FROM snapshots
		WHERE project_id = ?
		ORDER BY version DESC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, sqliteError("list snapshots", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var (
			si      SnapshotInfo
			created int64
		)
		if err := rows.Scan(&si.ID, &si.Version, &si.Size, &created); err != nil {
			return nil, sqliteError("list snapshots", err)
		}
		si.CreatedAt = time.UnixMilli(created).UTC()
		infos = append(infos, si)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("list snapshots", err)
	}
	return infos, nil
}

func (s *SQLite) stamp() time.Time {
	return time.UnixMilli(s.now().UnixMilli()).UTC()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p                Project
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &created, &updated); err != nil {
		return Project{}, err
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	return p, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
