package interfaces

import "github.com/haguru/eduquest/internal/models"

// SessionCache holds at most one snapshot and never depends on the network.
type SessionCache interface {
	Save(snapshot *models.SessionSnapshot) error
	// Load returns false when nothing usable is stored. Corrupt entries are purged.
	Load() (*models.SessionSnapshot, bool)
	Clear() error
}

// MutationQueueStore persists the pending-mutation outbox.
type MutationQueueStore interface {
	SaveQueue(queue []models.Mutation) error
	LoadQueue() []models.Mutation
	ClearQueue() error
}
