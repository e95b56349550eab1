// Package reconcile decides which user state a login ends up with when the
// server may or may not be reachable.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/pkg/helper"
)

type State string

const (
	StateAttemptingOnline State = "ATTEMPTING_ONLINE"
	StateOnlineOK         State = "ONLINE_OK"
	StateFallingBack      State = "FALLING_BACK"
	StateCachedOK         State = "CACHED_OK"
	StateCachedRejected   State = "CACHED_REJECTED"
	StateNoCache          State = "NO_CACHE"
	StateRejected         State = "REJECTED"
)

// Result describes how a login or restore ended.
type Result struct {
	State State
	// Trace lists every state entered, in order.
	Trace    []State
	Snapshot *models.SessionSnapshot
	// Stale is true when Snapshot comes from the cache without server confirmation.
	Stale bool
	// LocalStreakAhead is true when the cached streak beat the server's and was kept.
	// The caller should propose it to the server.
	LocalStreakAhead bool
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// PendingFunc reports whether a mutation of kind is still queued for username.
type PendingFunc = func(username string, kind models.MutationKind) bool

// Outbox owns the snapshot lock shared with outbox acknowledgements.
type Outbox interface {
	// Exclusive runs fn while nothing else can read-modify-write the snapshot.
	Exclusive(fn func(pending PendingFunc))
}

// Policy runs the login state machine over a transport and a session cache.
type Policy struct {
	transport interfaces.Transport
	cache     interfaces.SessionCache
	outbox    Outbox
	logger    interfaces.Logger
}

// NewPolicy builds a policy. A nil outbox means nothing is ever pending.
func NewPolicy(transport interfaces.Transport, cache interfaces.SessionCache, outbox Outbox, logger interfaces.Logger) *Policy {
	if outbox == nil {
		outbox = &emptyOutbox{}
	}
	return &Policy{transport: transport, cache: cache, outbox: outbox, logger: logger}
}

type emptyOutbox struct {
	mu sync.Mutex
}

func (o *emptyOutbox) Exclusive(fn func(pending PendingFunc)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(func(string, models.MutationKind) bool { return false })
}

// Login tries the server first and falls back to the cached snapshot only
// when the server cannot be reached. Credentials are never checked offline.
func (p *Policy) Login(ctx context.Context, username, password string) (*Result, error) {
	funcName := helper.GetFuncName()
	res := &Result{}
	res.enter(StateAttemptingOnline)

	view, err := p.transport.Authenticate(ctx, username, password)
	switch {
	case err == nil:
		p.outbox.Exclusive(func(pending PendingFunc) {
			p.adoptServerRecord(res, view, pending)
		})
		p.logger.Info("Logged in online", "func", funcName, "user", username, "trace", res.Trace)
		return res, nil

	case errors.Is(err, apperrors.ErrInvalidCredentials):
		res.enter(StateRejected)
		p.logger.Warn("Login rejected", "func", funcName, "user", username)
		return res, err

	case !errors.Is(err, apperrors.ErrTransportUnavailable):
		p.logger.Error("Login failed", "func", funcName, "user", username, "error", err)
		return res, err
	}

	p.logger.Warn("Server unreachable, falling back to cache", "func", funcName, "user", username, "error", err)
	res.enter(StateFallingBack)

	var fallbackErr error
	p.outbox.Exclusive(func(PendingFunc) {
		cached, ok := p.cache.Load()
		if !ok {
			res.enter(StateNoCache)
			fallbackErr = apperrors.ErrNoCache
			return
		}
		if cached.Username != username {
			if clearErr := p.cache.Clear(); clearErr != nil {
				p.logger.Error("Failed to clear mismatched cache", "func", funcName, "error", clearErr)
			}
			res.enter(StateCachedRejected)
			fallbackErr = apperrors.ErrCacheIdentityMismatch
			return
		}
		p.useCached(res, cached)
	})
	if fallbackErr != nil {
		p.logger.Warn("Cached login refused", "func", funcName, "user", username, "state", res.State)
		return res, fallbackErr
	}

	p.logger.Info("Logged in from cache", "func", funcName, "user", username, "trace", res.Trace)
	return res, nil
}

// Restore loads the cached session without contacting the server.
// An empty cache is not an error.
func (p *Policy) Restore(ctx context.Context) (*Result, error) {
	res := &Result{}
	p.outbox.Exclusive(func(PendingFunc) {
		cached, ok := p.cache.Load()
		if !ok {
			res.enter(StateNoCache)
			return
		}
		p.useCached(res, cached)
	})
	return res, nil
}

func (p *Policy) useCached(res *Result, cached *models.SessionSnapshot) {
	cached.Cached = true
	if err := p.cache.Save(cached); err != nil {
		p.logger.Warn("Failed to mark cached snapshot", "error", err)
	}
	res.Snapshot = cached
	res.Stale = true
	res.enter(StateCachedOK)
}

// adoptServerRecord makes the server record the session snapshot. A higher
// cached streak for the same user survives and is proposed back. An unconfirmed
// local progress update survives only while its outbox entry is still queued.
func (p *Policy) adoptServerRecord(res *Result, view *models.UserView, pending PendingFunc) {
	snapshot := models.NewSnapshotFromView(*view)

	if prev, ok := p.cache.Load(); ok && prev.Username == snapshot.Username {
		if prev.Streak > snapshot.Streak {
			snapshot.Streak = prev.Streak
			res.LocalStreakAhead = true
		}
		if !prev.ProgressConfirmed && len(prev.Progress) == models.ProgressLen &&
			pending(prev.Username, models.MutationProgress) {
			snapshot.Progress = models.CopyProgress(prev.Progress)
			snapshot.ProgressConfirmed = false
		}
	}

	if err := p.cache.Save(snapshot); err != nil {
		p.logger.Warn("Failed to cache session snapshot", "user", snapshot.Username, "error", err)
	}
	res.Snapshot = snapshot
	res.enter(StateOnlineOK)
}

// String renders the trace for logs and CLI output.
func (r *Result) String() string {
	return fmt.Sprintf("%s %v", r.State, r.Trace)
}
