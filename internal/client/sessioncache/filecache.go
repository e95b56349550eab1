package sessioncache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/pkg/helper"
	"github.com/haguru/eduquest/pkg/zerolog"
)

var (
	_ interfaces.SessionCache       = (*FileCache)(nil)
	_ interfaces.MutationQueueStore = (*FileCache)(nil)
)

// FileCache keeps one JSON file per key inside dir. Writes go through a temp
// file and a rename, so a crash leaves either the old or the new entry.
type FileCache struct {
	dir    string
	mu     sync.Mutex
	logger interfaces.Logger
}

// NewFileCache creates dir if needed.
func NewFileCache(dir string, logger interfaces.Logger) (*FileCache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if logger == nil {
		logger = zerolog.NewNopLogger()
	}
	return &FileCache{dir: dir, logger: logger}, nil
}

// Save overwrites the current snapshot.
func (c *FileCache) Save(snapshot *models.SessionSnapshot) error {
	if !snapshot.Valid() {
		return errors.New(ErrInvalidSnapshot)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeKey(CurrentUserKey, snapshot)
}

// Load returns the current snapshot, purging it when it cannot be used.
func (c *FileCache) Load() (*models.SessionSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var snapshot models.SessionSnapshot
	if !c.readKey(CurrentUserKey, &snapshot) {
		return nil, false
	}
	if !snapshot.Valid() {
		c.purge(CurrentUserKey, errors.New("structurally invalid snapshot"))
		return nil, false
	}
	if snapshot.Progress == nil {
		snapshot.Progress = []float64{}
	}
	return &snapshot, true
}

// Clear removes the current snapshot. Clearing an empty cache is not an error.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeKey(CurrentUserKey)
}

// SaveQueue overwrites the persisted outbox. An empty queue removes the entry.
func (c *FileCache) SaveQueue(queue []models.Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(queue) == 0 {
		return c.removeKey(PendingMutationsKey)
	}
	return c.writeKey(PendingMutationsKey, queue)
}

// LoadQueue returns the persisted outbox. Unparsable files are purged and
// individually invalid entries are dropped.
func (c *FileCache) LoadQueue() []models.Mutation {
	c.mu.Lock()
	defer c.mu.Unlock()

	var queue []models.Mutation
	if !c.readKey(PendingMutationsKey, &queue) {
		return nil
	}
	valid := queue[:0]
	for _, m := range queue {
		if m.Valid() {
			valid = append(valid, m)
		}
	}
	if len(valid) != len(queue) {
		c.logger.Warn(MsgPurgedCorruptEntry, "key", PendingMutationsKey, "dropped", len(queue)-len(valid))
		if err := c.writeKey(PendingMutationsKey, valid); err != nil {
			c.logger.Error(ErrFailedToWriteCache, "key", PendingMutationsKey, "error", err)
		}
	}
	return valid
}

// ClearQueue removes the persisted outbox.
func (c *FileCache) ClearQueue() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeKey(PendingMutationsKey)
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+fileExt)
}

// readKey decodes the entry into out. Missing entries and decode failures
// both report false; the latter also purge the file.
func (c *FileCache) readKey(key string, out interface{}) bool {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to read cache entry", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.purge(key, err)
		return false
	}
	return true
}

func (c *FileCache) purge(key string, cause error) {
	c.logger.Warn(MsgPurgedCorruptEntry, "key", key, "error", cause)
	if err := c.removeKey(key); err != nil {
		c.logger.Error(ErrFailedToClearCache, "key", key, "error", err)
	}
}

func (c *FileCache) removeKey(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", ErrFailedToClearCache, err)
	}
	return nil
}

func (c *FileCache) writeKey(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrFailedToWriteCache, err)
	}

	target := c.path(key)
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", ErrFailedToWriteCache, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, target)
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", ErrFailedToWriteCache, err)
	}
	if err := helper.SyncDir(c.dir); err != nil {
		return fmt.Errorf("%s: %w", ErrFailedToWriteCache, err)
	}
	return nil
}
