package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/internal/userrepo/constants"
	"github.com/haguru/eduquest/pkg/helper"
)

var _ interfaces.UserRepository = (*FileUserRepository)(nil)

// FileUserRepository keeps every user record in memory and rewrites the whole
// JSON file on each mutation. Memory only advances after the file write succeeded.
type FileUserRepository struct {
	path  string
	mu    sync.RWMutex
	users map[string]models.User
}

// NewFileUserRepository loads the store at path. A missing file is an empty store.
func NewFileUserRepository(path string) (*FileUserRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	repo := &FileUserRepository{
		path:  path,
		users: make(map[string]models.User),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return repo, nil
		}
		return nil, fmt.Errorf("%s: %w", constants.ErrFailedToReadStore, err)
	}
	if len(data) == 0 {
		return repo, nil
	}

	var records []models.User
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %w", constants.ErrFailedToReadStore, err)
	}
	for _, u := range records {
		if u.Progress == nil {
			u.Progress = []float64{}
		}
		repo.users[u.Username] = u
	}
	return repo, nil
}

// AddUser stores a new record and persists the store.
func (r *FileUserRepository) AddUser(ctx context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return fmt.Errorf("username '%s': %w", user.Username, apperrors.ErrDuplicateUser)
	}
	return r.commit(user)
}

// GetUserByUsername returns a copy of the stored record.
func (r *FileUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return user.Clone(), nil
}

// UpdateUser replaces an existing record and persists the store.
func (r *FileUserRepository) UpdateUser(ctx context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; !exists {
		return apperrors.ErrUserNotFound
	}
	return r.commit(user)
}

// EnsureIndices makes sure the directory holding the store exists.
func (r *FileUserRepository) EnsureIndices(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Close flushes nothing; every acknowledged write is already on disk.
func (r *FileUserRepository) Close(ctx context.Context) error {
	return nil
}

// commit writes the store including user and only then publishes it in memory.
// Callers hold r.mu.
func (r *FileUserRepository) commit(user models.User) error {
	next := make([]models.User, 0, len(r.users)+1)
	for name, u := range r.users {
		if name == user.Username {
			continue
		}
		next = append(next, u)
	}
	stored := *user.Clone()
	next = append(next, stored)
	sort.Slice(next, func(i, j int) bool { return next[i].Username < next[j].Username })

	if err := r.write(next); err != nil {
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToWriteStore, apperrors.ErrPersistenceFailure, err)
	}
	r.users[user.Username] = stored
	return nil
}

// write replaces the file atomically through a temp file in the same directory.
func (r *FileUserRepository) write(records []models.User) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return helper.SyncDir(filepath.Dir(r.path))
}
