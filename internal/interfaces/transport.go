package interfaces

import (
	"context"

	"github.com/haguru/eduquest/internal/models"
)

// Transport is the client's view of the credential store.
// Unreachability of any kind is reported as apperrors.ErrTransportUnavailable.
type Transport interface {
	Register(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (*models.UserView, error)
	ApplyStreak(ctx context.Context, username string, streak int) (int, error)
	ApplyProgress(ctx context.Context, username string, progress []float64) error
	ReadProgress(ctx context.Context, username string) ([]float64, error)
}
