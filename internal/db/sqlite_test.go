package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func seedUser(t *testing.T, repo Repository, id, email string) User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), User{ID: id, Email: email, PasswordHash: "hash", DisplayName: id})
	require.NoError(t, err)
	return u
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	repo := openTestSQLite(t)

	u := seedUser(t, repo, "user_a", "a@example.com")
	assert.False(t, u.CreatedAt.IsZero())

	got, err := repo.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	got, err = repo.GetUserByID(ctx, "user_a")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = repo.CreateUser(ctx, User{ID: "user_b", Email: "a@example.com", PasswordHash: "x", DisplayName: "b"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.GetUserByID(ctx, "user_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteProjectsAndMembers(t *testing.T) {
	ctx := context.Background()
	repo := openTestSQLite(t)
	seedUser(t, repo, "user_owner", "owner@example.com")
	seedUser(t, repo, "user_guest", "guest@example.com")

	p, err := repo.CreateProject(ctx, Project{ID: "proj_1", Name: "Fireworks", OwnerID: "user_owner"})
	require.NoError(t, err)
	require.NoError(t, repo.AddProjectMember(ctx, p.ID, "user_owner", RoleOwner))
	require.NoError(t, repo.AddProjectMember(ctx, p.ID, "user_guest", RoleEditor))
	assert.ErrorIs(t, repo.AddProjectMember(ctx, p.ID, "user_guest", RoleEditor), ErrDuplicate)

	got, err := repo.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	list, err := repo.ListProjectsForUser(ctx, "user_guest")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Fireworks", list[0].Name)

	m, err := repo.GetProjectMember(ctx, p.ID, "user_guest")
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, m.Role)
	assert.Equal(t, "guest@example.com", m.Email)

	members, err := repo.ListProjectMembers(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, repo.RemoveProjectMember(ctx, p.ID, "user_guest"))
	assert.ErrorIs(t, repo.RemoveProjectMember(ctx, p.ID, "user_guest"), ErrNotFound)
	_, err = repo.GetProjectMember(ctx, p.ID, "user_guest")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.DeleteProject(ctx, p.ID))
	_, err = repo.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	members, err = repo.ListProjectMembers(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestSQLiteSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := openTestSQLite(t)
	seedUser(t, repo, "user_owner", "owner@example.com")
	_, err := repo.CreateProject(ctx, Project{ID: "proj_1", Name: "Snow", OwnerID: "user_owner"})
	require.NoError(t, err)

	_, err = repo.GetLatestSnapshot(ctx, "proj_1")
	assert.ErrorIs(t, err, ErrNotFound)

	later := time.Now().Add(time.Hour)
	for v := 1; v <= 3; v++ {
		if v == 3 {
			repo.now = func() time.Time { return later }
		}
		_, err := repo.CreateSnapshot(ctx, Snapshot{
			ID:        "snap_" + string(rune('0'+v)),
			ProjectID: "proj_1",
			Version:   v,
			Document:  []byte(`{"version":"1.0"}`),
		})
		require.NoError(t, err)
	}

	latest, err := repo.GetLatestSnapshot(ctx, "proj_1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)
	assert.JSONEq(t, `{"version":"1.0"}`, string(latest.Document))

	_, err = repo.CreateSnapshot(ctx, Snapshot{ID: "snap_x", ProjectID: "proj_1", Version: 3, Document: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrDuplicate)

	p, err := repo.GetProject(ctx, "proj_1")
	require.NoError(t, err)
	assert.Equal(t, later.UnixMilli(), p.UpdatedAt.UnixMilli())

	second, err := repo.GetSnapshot(ctx, "proj_1", 2)
	require.NoError(t, err)
	assert.Equal(t, "snap_2", second.ID)
	_, err = repo.GetSnapshot(ctx, "proj_1", 9)
	assert.ErrorIs(t, err, ErrNotFound)

	infos, err := repo.ListSnapshots(ctx, "proj_1", 2)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, []int{3, 2}, []int{infos[0].Version, infos[1].Version})
	assert.Equal(t, len(`{"version":"1.0"}`), infos[0].Size)
	assert.Equal(t, later.UnixMilli(), infos[0].CreatedAt.UnixMilli())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql"})
	assert.Error(t, err)
}
