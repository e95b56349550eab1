package interfaces

import (
	"context"

	"github.com/haguru/eduquest/internal/models"
)

// UserService is the credential store contract served over HTTP.
type UserService interface {
	RegisterUser(ctx context.Context, username, password string) error
	AuthenticateUser(ctx context.Context, username, password string) (*models.User, error)
	ApplyStreak(ctx context.Context, username string, proposed int) (int, error)
	ApplyProgress(ctx context.Context, username string, progress []float64) error
	ReadProgress(ctx context.Context, username string) ([]float64, error)
}
