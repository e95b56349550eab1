package interfaces

import (
	"context"

	"github.com/haguru/eduquest/internal/models"
)

// UserRepository is the persistence port behind the credential store.
// Implementations return apperrors.ErrDuplicateUser, apperrors.ErrUserNotFound
// and wrap write failures in apperrors.ErrPersistenceFailure.
type UserRepository interface {
	AddUser(ctx context.Context, user models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	EnsureIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
