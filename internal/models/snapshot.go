package models

import "time"

// SessionSnapshot is the client-held copy of one user record.
// It never carries the password hash.
type SessionSnapshot struct {
	Username string    `json:"username"`
	Streak   int       `json:"streak"`
	Progress []float64 `json:"progress"`
	// Cached is true while the snapshot has not been confirmed by the server in this session.
	Cached bool `json:"cached"`
	// ProgressConfirmed is false while a local progress update awaits acknowledgement.
	ProgressConfirmed bool `json:"progressConfirmed"`
}

// NewSnapshotFromView builds a server-confirmed snapshot.
func NewSnapshotFromView(v UserView) *SessionSnapshot {
	return &SessionSnapshot{
		Username:          v.Username,
		Streak:            v.Streak,
		Progress:          CopyProgress(v.Progress),
		Cached:            false,
		ProgressConfirmed: true,
	}
}

// Clone returns a deep copy of the snapshot.
func (s *SessionSnapshot) Clone() *SessionSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Progress = CopyProgress(s.Progress)
	return &c
}

// Valid reports whether the snapshot is structurally usable.
func (s *SessionSnapshot) Valid() bool {
	if s == nil || s.Username == "" || s.Streak < 0 {
		return false
	}
	if len(s.Progress) == 0 {
		return true
	}
	return ValidateProgress(s.Progress) == nil
}

type MutationKind string

const (
	MutationStreak   MutationKind = "streak"
	MutationProgress MutationKind = "progress"
)

// Mutation is a proposal waiting in the client outbox.
type Mutation struct {
	ID         string       `json:"id"`
	Kind       MutationKind `json:"kind"`
	Username   string       `json:"username"`
	Streak     int          `json:"streak,omitempty"`
	Progress   []float64    `json:"progress,omitempty"`
	EnqueuedAt time.Time    `json:"enqueuedAt"`
	Attempts   int          `json:"attempts"`
}

// Valid reports whether the mutation can be replayed.
func (m Mutation) Valid() bool {
	if m.Username == "" {
		return false
	}
	switch m.Kind {
	case MutationStreak:
		return m.Streak >= 0
	case MutationProgress:
		return ValidateProgress(m.Progress) == nil
	default:
		return false
	}
}
