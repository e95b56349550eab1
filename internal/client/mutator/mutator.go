// Package mutator applies streak and progress changes locally first and
// delivers them to the server through a persisted outbox.
package mutator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/pkg/helper"
)

// Mutator owns the session snapshot's read-modify-write cycle and the outbox.
// Every change to either happens under mu, including acknowledgements coming
// back from a flush, so a Discard always wins over a late response.
type Mutator struct {
	transport interfaces.Transport
	cache     interfaces.SessionCache
	store     interfaces.MutationQueueStore
	logger    interfaces.Logger
	metrics   interfaces.Metrics

	mu         sync.Mutex
	queue      []models.Mutation
	generation uint64

	group singleflight.Group
	wg    sync.WaitGroup
	now   func() time.Time
}

// Option customises a Mutator.
type Option func(*Mutator)

// WithMetrics reports outbox depth and delivery results. See RegisterMetrics.
func WithMetrics(m interfaces.Metrics) Option {
	return func(mu *Mutator) {
		mu.metrics = m
	}
}

// WithClock replaces time.Now for enqueue timestamps.
func WithClock(now func() time.Time) Option {
	return func(mu *Mutator) {
		mu.now = now
	}
}

// RegisterMetrics registers the collectors a Mutator reports to.
func RegisterMetrics(m interfaces.Metrics) {
	m.RegisterGauge(OutboxDepth, OutboxDepthHelp)
	m.RegisterCounterVec(OutboxSendsTotal, OutboxSendsTotalHelp, []string{LabelResult})
}

// NewMutator restores the persisted outbox from store.
func NewMutator(transport interfaces.Transport, cache interfaces.SessionCache,
	store interfaces.MutationQueueStore, logger interfaces.Logger, opts ...Option,
) *Mutator {
	m := &Mutator{
		transport: transport,
		cache:     cache,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = store.LoadQueue()
	m.reportDepth()
	return m
}

// IncrementStreak adds one to the cached streak, persists it and queues the
// new value for the server. Delivery failures never roll the local value back.
func (m *Mutator) IncrementStreak(ctx context.Context) (*models.SessionSnapshot, error) {
	m.mu.Lock()
	snapshot, ok := m.cache.Load()
	if !ok {
		m.mu.Unlock()
		return nil, apperrors.ErrNoSession
	}
	snapshot.Streak++
	if err := m.cache.Save(snapshot); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", ErrFailedToSaveSession, err)
	}
	m.enqueueLocked(models.Mutation{Kind: models.MutationStreak, Username: snapshot.Username, Streak: snapshot.Streak})
	m.mu.Unlock()

	m.logger.Info("Streak incremented", "func", helper.GetFuncName(), "user", snapshot.Username, "streak", snapshot.Streak)
	m.flushAsync()
	return snapshot, nil
}

// UpdateProgress applies progress locally as unconfirmed and queues it.
func (m *Mutator) UpdateProgress(ctx context.Context, progress []float64) (*models.SessionSnapshot, error) {
	if err := models.ValidateProgress(progress); err != nil {
		return nil, fmt.Errorf("%v: %w", err, apperrors.ErrInvalidShape)
	}

	m.mu.Lock()
	snapshot, ok := m.cache.Load()
	if !ok {
		m.mu.Unlock()
		return nil, apperrors.ErrNoSession
	}
	snapshot.Progress = models.CopyProgress(progress)
	snapshot.ProgressConfirmed = false
	if err := m.cache.Save(snapshot); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", ErrFailedToSaveSession, err)
	}
	m.enqueueLocked(models.Mutation{Kind: models.MutationProgress, Username: snapshot.Username, Progress: models.CopyProgress(progress)})
	m.mu.Unlock()

	m.flushAsync()
	return snapshot, nil
}

// ProposeStreak queues a streak proposal without touching the snapshot.
func (m *Mutator) ProposeStreak(ctx context.Context, username string, streak int) error {
	if username == "" || streak < 0 {
		return apperrors.ErrInvalidInput
	}
	m.mu.Lock()
	m.enqueueLocked(models.Mutation{Kind: models.MutationStreak, Username: username, Streak: streak})
	m.mu.Unlock()

	m.flushAsync()
	return nil
}

// Flush delivers queued mutations in order. Concurrent calls share one drain.
// It stops at the first delivery that cannot reach the server and returns that error.
func (m *Mutator) Flush(ctx context.Context) error {
	_, err, _ := m.group.Do(flushKey, func() (interface{}, error) {
		return nil, m.drain(ctx)
	})
	return err
}

// RefreshProgress pulls the server's progress vector. It is adopted only when
// no progress proposal for the user is still queued; adopted reports which.
func (m *Mutator) RefreshProgress(ctx context.Context) (progress []float64, adopted bool, err error) {
	m.mu.Lock()
	snapshot, ok := m.cache.Load()
	gen := m.generation
	m.mu.Unlock()
	if !ok {
		return nil, false, apperrors.ErrNoSession
	}

	remote, err := m.transport.ReadProgress(ctx, snapshot.Username)
	if err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.cache.Load()
	if gen != m.generation || !ok || current.Username != snapshot.Username {
		return remote, false, nil
	}
	if m.hasPendingLocked(snapshot.Username, models.MutationProgress) {
		return current.Progress, false, nil
	}
	current.Progress = models.CopyProgress(remote)
	current.ProgressConfirmed = true
	if err := m.cache.Save(current); err != nil {
		return nil, false, fmt.Errorf("%s: %w", ErrFailedToSaveSession, err)
	}
	return current.Progress, true, nil
}

// Discard drops the outbox and invalidates every flush in flight.
func (m *Mutator) Discard() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.queue = nil
	m.reportDepth()
	return m.store.ClearQueue()
}

// Exclusive runs fn under the snapshot lock so login and restore never
// interleave with an acknowledgement. fn must not call back into m.
func (m *Mutator) Exclusive(fn func(pending func(username string, kind models.MutationKind) bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.hasPendingLocked)
}

// Wait blocks until background flushes started so far have finished.
func (m *Mutator) Wait() {
	m.wg.Wait()
}

// Pending returns a copy of the outbox.
func (m *Mutator) Pending() []models.Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Mutation, len(m.queue))
	copy(out, m.queue)
	return out
}

// FlushAsync starts a background flush; Wait observes it.
func (m *Mutator) FlushAsync() {
	m.flushAsync()
}

func (m *Mutator) flushAsync() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		// a caller that joins a drain which already saw an empty queue
		// leaves its entry behind, so go again until the queue is empty
		for {
			if err := m.Flush(context.Background()); err != nil {
				m.logger.Warn("Outbox flush deferred", "error", err)
				return
			}
			if m.depth() == 0 {
				return
			}
		}
	}()
}

func (m *Mutator) depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// enqueueLocked coalesces mut into the queue: one streak entry per user keeps
// the highest proposal, one progress entry per user keeps the latest vector.
func (m *Mutator) enqueueLocked(mut models.Mutation) {
	for i := range m.queue {
		q := &m.queue[i]
		if q.Username != mut.Username || q.Kind != mut.Kind {
			continue
		}
		switch mut.Kind {
		case models.MutationStreak:
			q.Streak = max(q.Streak, mut.Streak)
		case models.MutationProgress:
			q.Progress = models.CopyProgress(mut.Progress)
		}
		q.EnqueuedAt = m.now()
		m.persistLocked()
		return
	}

	mut.ID = uuid.NewString()
	mut.EnqueuedAt = m.now()
	m.queue = append(m.queue, mut)
	m.persistLocked()
}

func (m *Mutator) persistLocked() {
	if err := m.store.SaveQueue(m.queue); err != nil {
		m.logger.Error(ErrFailedToPersistQueue, "error", err)
	}
	m.reportDepth()
}

func (m *Mutator) hasPendingLocked(username string, kind models.MutationKind) bool {
	for _, q := range m.queue {
		if q.Username == username && q.Kind == kind {
			return true
		}
	}
	return false
}

func (m *Mutator) drain(ctx context.Context) error {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if gen != m.generation || len(m.queue) == 0 {
			m.mu.Unlock()
			return nil
		}
		head := m.queue[0]
		head.Progress = models.CopyProgress(head.Progress)
		m.mu.Unlock()

		kept, err := m.send(ctx, head)

		m.mu.Lock()
		if gen != m.generation {
			m.mu.Unlock()
			return nil
		}
		switch {
		case err == nil:
			m.countSend(ResultAcknowledged)
			m.removeIfUnchangedLocked(head)
			m.acknowledgeLocked(head, kept)
			m.mu.Unlock()

		case isPermanent(err):
			m.countSend(ResultDropped)
			m.logger.Warn("Dropping rejected mutation", "user", head.Username, "kind", head.Kind, "error", err)
			m.removeLocked(head.ID)
			m.mu.Unlock()

		default:
			m.countSend(ResultDeferred)
			m.bumpAttemptsLocked(head.ID)
			m.mu.Unlock()
			return err
		}
	}
}

func (m *Mutator) send(ctx context.Context, mut models.Mutation) (int, error) {
	switch mut.Kind {
	case models.MutationStreak:
		return m.transport.ApplyStreak(ctx, mut.Username, mut.Streak)
	case models.MutationProgress:
		return 0, m.transport.ApplyProgress(ctx, mut.Username, mut.Progress)
	default:
		return 0, fmt.Errorf("unknown mutation kind %q: %w", mut.Kind, apperrors.ErrInvalidInput)
	}
}

// acknowledgeLocked folds a server acknowledgement into the snapshot of the same user.
func (m *Mutator) acknowledgeLocked(sent models.Mutation, keptStreak int) {
	snapshot, ok := m.cache.Load()
	if !ok || snapshot.Username != sent.Username {
		return
	}
	changed := false
	switch sent.Kind {
	case models.MutationStreak:
		if keptStreak > snapshot.Streak {
			snapshot.Streak = keptStreak
			changed = true
		}
	case models.MutationProgress:
		if !snapshot.ProgressConfirmed && slices.Equal(snapshot.Progress, sent.Progress) &&
			!m.hasPendingLocked(sent.Username, models.MutationProgress) {
			snapshot.ProgressConfirmed = true
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := m.cache.Save(snapshot); err != nil {
		m.logger.Error(ErrFailedToSaveSession, "user", snapshot.Username, "error", err)
	}
}

// removeIfUnchangedLocked removes the delivered entry unless it was coalesced
// with a newer value while the request was in flight.
func (m *Mutator) removeIfUnchangedLocked(sent models.Mutation) {
	for i, q := range m.queue {
		if q.ID != sent.ID {
			continue
		}
		if q.Streak == sent.Streak && slices.Equal(q.Progress, sent.Progress) {
			m.queue = slices.Delete(m.queue, i, i+1)
			m.persistLocked()
		}
		return
	}
}

func (m *Mutator) removeLocked(id string) {
	for i, q := range m.queue {
		if q.ID == id {
			m.queue = slices.Delete(m.queue, i, i+1)
			m.persistLocked()
			return
		}
	}
}

func (m *Mutator) bumpAttemptsLocked(id string) {
	for i := range m.queue {
		if m.queue[i].ID == id {
			m.queue[i].Attempts++
			m.persistLocked()
			return
		}
	}
}

func (m *Mutator) reportDepth() {
	if m.metrics != nil {
		m.metrics.SetGauge(OutboxDepth, float64(len(m.queue)))
	}
}

func (m *Mutator) countSend(result string) {
	if m.metrics != nil {
		m.metrics.IncCounterVec(OutboxSendsTotal, result)
	}
}

// isPermanent reports rejections that replaying can never fix.
func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrUserNotFound) ||
		errors.Is(err, apperrors.ErrInvalidShape) ||
		errors.Is(err, apperrors.ErrInvalidInput)
}
