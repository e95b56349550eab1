package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*FileUserRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "users.json")
	repo, err := NewFileUserRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.EnsureIndices(context.Background()))
	return repo, path
}

func TestAddAndGetUser(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.NewUser("alice", "hash"), got)

	// callers cannot mutate the stored record through the returned copy
	got.Streak = 42
	again, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Streak)
}

func TestAddUserDuplicate(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))
	err := repo.AddUser(ctx, *models.NewUser("alice", "other"))

	assert.True(t, errors.Is(err, apperrors.ErrDuplicateUser))
}

func TestGetAndUpdateUnknownUser(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.GetUserByUsername(ctx, "ghost")
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))

	err = repo.UpdateUser(ctx, models.User{Username: "ghost"})
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
}

func TestStoreSurvivesReopen(t *testing.T) {
	repo, path := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))
	require.NoError(t, repo.AddUser(ctx, *models.NewUser("bob", "hash2")))
	require.NoError(t, repo.UpdateUser(ctx, models.User{
		Username:     "alice",
		PasswordHash: "hash",
		Streak:       7,
		Progress:     []float64{10, 20, 30, 40, 50},
	}))

	reopened, err := NewFileUserRepository(path)
	require.NoError(t, err)

	alice, err := reopened.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 7, alice.Streak)
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, alice.Progress)

	bob, err := reopened.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []float64{}, bob.Progress)
}

func TestFileLayout(t *testing.T) {
	repo, path := newRepo(t)
	require.NoError(t, repo.AddUser(context.Background(), *models.NewUser("alice", "hash")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "alice", raw[0]["username"])
	assert.Equal(t, "hash", raw[0]["passwordHash"])
	assert.Equal(t, 0.0, raw[0]["streak"])
	assert.Equal(t, []interface{}{}, raw[0]["progress"])
}

func TestWriteFailureIsNotAcknowledged(t *testing.T) {
	repo, path := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))

	// removing the directory makes the next write fail
	require.NoError(t, os.RemoveAll(filepath.Dir(path)))

	err := repo.UpdateUser(ctx, models.User{Username: "alice", PasswordHash: "hash", Streak: 9, Progress: []float64{}})
	assert.True(t, errors.Is(err, apperrors.ErrPersistenceFailure))

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Streak, "memory must not run ahead of the file")

	err = repo.AddUser(ctx, *models.NewUser("bob", "hash"))
	assert.True(t, errors.Is(err, apperrors.ErrPersistenceFailure))
	_, err = repo.GetUserByUsername(ctx, "bob")
	assert.True(t, errors.Is(err, apperrors.ErrUserNotFound))
}

func TestCorruptStoreFailsToOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileUserRepository(path)
	assert.Error(t, err)

	_, err = NewFileUserRepository("")
	assert.Error(t, err)
}

func TestCommitLeavesOnlyTheStoreFile(t *testing.T) {
	repo, path := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))
	require.NoError(t, repo.UpdateUser(ctx, models.User{Username: "alice", PasswordHash: "hash", Streak: 3, Progress: []float64{}}))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "users.json", entries[0].Name())
}
