// Package client is the offline-tolerant EduQuest client: a session cache,
// the login reconciliation policy and the mutation outbox behind one API.
package client

import (
	"context"
	"errors"
	"fmt"

	structValidator "github.com/go-playground/validator/v10"

	"github.com/haguru/eduquest/config"
	"github.com/haguru/eduquest/internal/client/mutator"
	"github.com/haguru/eduquest/internal/client/reconcile"
	"github.com/haguru/eduquest/internal/client/sessioncache"
	"github.com/haguru/eduquest/internal/client/transport"
	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/internal/models/dto"
	"github.com/haguru/eduquest/pkg/metrics"
)

var _ reconcile.Outbox = (*mutator.Mutator)(nil)

// Store keeps the session snapshot and the outbox across restarts.
type Store interface {
	interfaces.SessionCache
	interfaces.MutationQueueStore
}

type Client struct {
	transport interfaces.Transport
	store     Store
	policy    *reconcile.Policy
	mutator   *mutator.Mutator
	validator *structValidator.Validate
	logger    interfaces.Logger
}

// New wires an HTTP transport and an on-disk cache from cfg.
func New(cfg *config.ClientConfig, logger interfaces.Logger) (*Client, error) {
	t, err := transport.NewHTTPTransport(cfg.BaseURL, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedToCreateTransport, err)
	}
	cache, err := sessioncache.NewFileCache(cfg.CacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedToOpenCache, err)
	}
	return NewClient(t, cache, logger, metrics.NewMetrics(cfg.ServiceName)), nil
}

// NewClient assembles a client from its parts. m may be nil.
func NewClient(t interfaces.Transport, store Store, logger interfaces.Logger, m interfaces.Metrics) *Client {
	var opts []mutator.Option
	if m != nil {
		mutator.RegisterMetrics(m)
		opts = append(opts, mutator.WithMetrics(m))
	}
	outbox := mutator.NewMutator(t, store, store, logger, opts...)
	return &Client{
		transport: t,
		store:     store,
		policy:    reconcile.NewPolicy(t, store, outbox, logger),
		mutator:   outbox,
		validator: structValidator.New(),
		logger:    logger,
	}
}

// Register creates an account. Input that fails local validation is never sent.
func (c *Client) Register(ctx context.Context, username, password string) error {
	req := dto.UserSignupRequestDTO{Username: username, Password: password}
	if err := c.validator.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
	}
	return c.transport.Register(ctx, username, password)
}

// Login runs the reconciliation policy and, when the cached streak beat the
// server's, proposes it back.
func (c *Client) Login(ctx context.Context, username, password string) (*reconcile.Result, error) {
	res, err := c.policy.Login(ctx, username, password)
	if err != nil {
		return res, err
	}
	if res.LocalStreakAhead {
		if err := c.mutator.ProposeStreak(ctx, res.Snapshot.Username, res.Snapshot.Streak); err != nil {
			c.logger.Warn("Failed to propose local streak", "user", username, "error", err)
		}
	}
	c.resumeOutbox()
	return res, nil
}

// Restore brings back the cached session, as on a page load.
func (c *Client) Restore(ctx context.Context) (*reconcile.Result, error) {
	res, err := c.policy.Restore(ctx)
	if err != nil {
		return res, err
	}
	if res.State == reconcile.StateCachedOK {
		c.resumeOutbox()
	}
	return res, nil
}

// Logout drops the outbox and the snapshot. Flushes still in flight are ignored.
func (c *Client) Logout() error {
	discardErr := c.mutator.Discard()
	clearErr := c.store.Clear()
	if err := errors.Join(discardErr, clearErr); err != nil {
		return fmt.Errorf("%s: %w", ErrFailedToClearSession, err)
	}
	return nil
}

// CompleteGame records a finished game: the streak grows by one.
func (c *Client) CompleteGame(ctx context.Context) (*models.SessionSnapshot, error) {
	return c.mutator.IncrementStreak(ctx)
}

func (c *Client) UpdateProgress(ctx context.Context, progress []float64) (*models.SessionSnapshot, error) {
	return c.mutator.UpdateProgress(ctx, progress)
}

// Sync flushes the outbox and then refreshes progress from the server.
func (c *Client) Sync(ctx context.Context) (*models.SessionSnapshot, error) {
	if _, ok := c.store.Load(); !ok {
		return nil, apperrors.ErrNoSession
	}
	if err := c.mutator.Flush(ctx); err != nil {
		return nil, err
	}
	if _, _, err := c.mutator.RefreshProgress(ctx); err != nil {
		return nil, err
	}
	snapshot, ok := c.store.Load()
	if !ok {
		return nil, apperrors.ErrNoSession
	}
	return snapshot, nil
}

// Current returns the session snapshot, if any.
func (c *Client) Current() (*models.SessionSnapshot, bool) {
	return c.store.Load()
}

// Badges reports the badges earned by the current streak.
func (c *Client) Badges() []bool {
	snapshot, ok := c.store.Load()
	if !ok {
		return models.Badges(0)
	}
	return models.Badges(snapshot.Streak)
}

// Pending returns the mutations not yet acknowledged by the server.
func (c *Client) Pending() []models.Mutation {
	return c.mutator.Pending()
}

// Close waits for background flushes.
func (c *Client) Close() {
	c.mutator.Wait()
}

func (c *Client) resumeOutbox() {
	if len(c.mutator.Pending()) > 0 {
		c.mutator.FlushAsync()
	}
}
