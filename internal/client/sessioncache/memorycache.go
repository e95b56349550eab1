package sessioncache

import (
	"errors"
	"sync"

	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
)

var (
	_ interfaces.SessionCache       = (*MemoryCache)(nil)
	_ interfaces.MutationQueueStore = (*MemoryCache)(nil)
)

// MemoryCache is the in-process cache used by tests and ephemeral clients.
// It hands out copies so callers never alias the stored values.
type MemoryCache struct {
	mu       sync.Mutex
	snapshot *models.SessionSnapshot
	queue    []models.Mutation

	// SaveErr, when set, is returned by Save to simulate a full disk.
	SaveErr error
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Save(snapshot *models.SessionSnapshot) error {
	if !snapshot.Valid() {
		return errors.New(ErrInvalidSnapshot)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SaveErr != nil {
		return c.SaveErr
	}
	c.snapshot = snapshot.Clone()
	return nil
}

func (c *MemoryCache) Load() (*models.SessionSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return nil, false
	}
	return c.snapshot.Clone(), true
}

func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	return nil
}

func (c *MemoryCache) SaveQueue(queue []models.Mutation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = cloneQueue(queue)
	return nil
}

func (c *MemoryCache) LoadQueue() []models.Mutation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneQueue(c.queue)
}

func (c *MemoryCache) ClearQueue() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = nil
	return nil
}

func cloneQueue(queue []models.Mutation) []models.Mutation {
	if len(queue) == 0 {
		return nil
	}
	out := make([]models.Mutation, len(queue))
	for i, m := range queue {
		out[i] = m
		if m.Progress != nil {
			out[i].Progress = models.CopyProgress(m.Progress)
		}
	}
	return out
}
