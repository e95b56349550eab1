package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haguru/eduquest/internal/client/reconcile"
	"github.com/haguru/eduquest/internal/client/sessioncache"
	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/pkg/zerolog"
)

// stallingStore holds up the next Load once armed, until released or until
// holdFor elapses, and reports every saved username.
type stallingStore struct {
	*sessioncache.MemoryCache

	mu      sync.Mutex
	armed   bool
	stalled chan struct{}
	release chan struct{}
	holdFor time.Duration
	saved   chan string
}

func (s *stallingStore) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
}

func (s *stallingStore) Load() (*models.SessionSnapshot, bool) {
	s.mu.Lock()
	armed := s.armed
	s.armed = false
	s.mu.Unlock()

	snapshot, ok := s.MemoryCache.Load()
	if armed {
		close(s.stalled)
		select {
		case <-s.release:
		case <-time.After(s.holdFor):
		}
	}
	return snapshot, ok
}

func (s *stallingStore) Save(snapshot *models.SessionSnapshot) error {
	err := s.MemoryCache.Save(snapshot)
	if err == nil {
		select {
		case s.saved <- snapshot.Username:
		default:
		}
	}
	return err
}

// ackingTransport acknowledges streaks with serverStreak when that is higher
// and arms the store right before the acknowledgement reaches the snapshot.
type ackingTransport struct {
	store        *stallingStore
	users        map[string]*models.UserView
	serverStreak int
}

func (a *ackingTransport) Register(ctx context.Context, username, password string) error {
	return nil
}

func (a *ackingTransport) Authenticate(ctx context.Context, username, password string) (*models.UserView, error) {
	view, ok := a.users[username]
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}
	return view, nil
}

func (a *ackingTransport) ApplyStreak(ctx context.Context, username string, streak int) (int, error) {
	a.store.arm()
	return max(streak, a.serverStreak), nil
}

func (a *ackingTransport) ApplyProgress(ctx context.Context, username string, progress []float64) error {
	return nil
}

func (a *ackingTransport) ReadProgress(ctx context.Context, username string) ([]float64, error) {
	return []float64{}, nil
}

func TestClient_AckDoesNotOverwriteNewLogin(t *testing.T) {
	store := &stallingStore{
		MemoryCache: sessioncache.NewMemoryCache(),
		stalled:     make(chan struct{}),
		release:     make(chan struct{}),
		holdFor:     300 * time.Millisecond,
		saved:       make(chan string, 16),
	}
	require.NoError(t, store.MemoryCache.Save(&models.SessionSnapshot{Username: "alice", Streak: 6, ProgressConfirmed: true}))

	tr := &ackingTransport{
		store:        store,
		serverStreak: 10,
		users: map[string]*models.UserView{
			"bob": {Username: "bob", Streak: 2, Progress: []float64{}},
		},
	}
	c := NewClient(tr, store, zerolog.NewNopLogger(), nil)
	t.Cleanup(c.Close)
	ctx := context.Background()

	_, err := c.CompleteGame(ctx)
	require.NoError(t, err)

	select {
	case <-store.stalled:
	case <-time.After(2 * time.Second):
		t.Fatal("acknowledgement never reached the snapshot")
	}
	// drain saves made before the acknowledgement stalled
	for len(store.saved) > 0 {
		<-store.saved
	}

	type loginOutcome struct {
		res *reconcile.Result
		err error
	}
	done := make(chan loginOutcome, 1)
	go func() {
		res, err := c.Login(ctx, "bob", "secret1")
		done <- loginOutcome{res: res, err: err}
	}()

	// let the stalled acknowledgement go as soon as bob's snapshot lands
	select {
	case <-waitFor(store.saved, "bob"):
	case <-time.After(2 * time.Second):
	}
	close(store.release)

	outcome := <-done
	require.NoError(t, outcome.err)
	assert.Equal(t, reconcile.StateOnlineOK, outcome.res.State)
	c.Close()

	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "bob", current.Username)
	assert.Equal(t, 2, current.Streak)
}

func waitFor(saved <-chan string, username string) <-chan struct{} {
	found := make(chan struct{})
	go func() {
		for name := range saved {
			if name == username {
				close(found)
				return
			}
		}
	}()
	return found
}
