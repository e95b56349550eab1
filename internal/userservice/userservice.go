// userservice.go
package userservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/pkg/helper"
)

var _ interfaces.UserService = (*UserService)(nil)

// credentials carries the registration rules enforced before anything is stored.
type credentials struct {
	Username string `validate:"required,min=3,max=20"`
	Password string `validate:"required,min=6"`
}

// UserService is the credential store. Every read-modify-persist cycle for a
// username runs under that username's lock, and nothing is acknowledged before
// the repository has accepted the write.
type UserService struct {
	UserRepo  interfaces.UserRepository
	Logger    interfaces.Logger
	validator *validator.Validate
	locks     *userLocks
	hashCost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// Option customises a UserService.
type Option func(*UserService)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *UserService) {
		s.hashCost = cost
	}
}

// NewUserService creates a new UserService instance.
func NewUserService(repo interfaces.UserRepository, logger interfaces.Logger, opts ...Option) *UserService {
	s := &UserService{
		UserRepo:  repo,
		Logger:    logger,
		validator: validator.New(),
		locks:     newUserLocks(),
		hashCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser validates the credentials, hashes the password and stores a zero record.
func (s *UserService) RegisterUser(ctx context.Context, username, password string) error {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "user", username)
	defer s.Logger.Debug("Exiting function", "func", funcName, "user", username)

	if err := s.validator.Struct(credentials{Username: username, Password: password}); err != nil {
		s.Logger.Warn("Rejected registration", "func", funcName, "user", username, "error", err)
		return fmt.Errorf("%s: %w", ErrFailedToRegisterUser, apperrors.ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return fmt.Errorf("%s: %w", ErrFailedToRegisterUser, apperrors.ErrInvalidInput)
		}
		s.Logger.Error(ErrFailedToHashPassword, "func", funcName, "user", username, "error", err)
		return fmt.Errorf("%s: %w", ErrFailedToHashPassword, err)
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	if err := s.UserRepo.AddUser(ctx, *models.NewUser(username, string(hashedPassword))); err != nil {
		s.Logger.Error(ErrFailedToRegisterUser, "func", funcName, "user", username, "error", err)
		return fmt.Errorf("%s: %w", ErrFailedToRegisterUser, err)
	}
	s.Logger.Info("User registered successfully", "func", funcName, "user", username)
	return nil
}

// AuthenticateUser verifies a user's credentials and returns the stored record.
// Unknown users and wrong passwords produce the same ErrInvalidCredentials.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (*models.User, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "user", username)
	defer s.Logger.Debug("Exiting function", "func", funcName, "user", username)

	user, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// keep response time independent of whether the user exists
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			s.Logger.Warn(ErrUserNotFound, "func", funcName, "user", username)
			return nil, apperrors.ErrInvalidCredentials
		}
		s.Logger.Error(ErrRetrievingUser, "func", funcName, "user", username, "error", err)
		return nil, fmt.Errorf("%s: %w", ErrRetrievingUser, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.Logger.Warn(ErrInvalidPassword, "func", funcName, "user", username)
		return nil, apperrors.ErrInvalidCredentials
	}

	s.Logger.Info("User authenticated successfully", "func", funcName, "user", username)
	return user, nil
}

// ApplyStreak merges proposed into the stored streak with max and returns the result.
// A proposal at or below the stored value changes nothing and writes nothing.
func (s *UserService) ApplyStreak(ctx context.Context, username string, proposed int) (int, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "user", username, "proposed", proposed)
	defer s.Logger.Debug("Exiting function", "func", funcName, "user", username)

	if proposed < 0 {
		return 0, fmt.Errorf("%s: negative streak %d: %w", ErrFailedToApplyStreak, proposed, apperrors.ErrInvalidInput)
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	user, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrFailedToApplyStreak, err)
	}
	if proposed <= user.Streak {
		return user.Streak, nil
	}

	next := user.Clone()
	next.Streak = proposed
	if err := s.UserRepo.UpdateUser(ctx, *next); err != nil {
		s.Logger.Error(ErrFailedToApplyStreak, "func", funcName, "user", username, "error", err)
		return 0, fmt.Errorf("%s: %w", ErrFailedToApplyStreak, err)
	}
	s.Logger.Info("Streak updated", "func", funcName, "user", username, "from", user.Streak, "to", proposed)
	return proposed, nil
}

// ApplyProgress replaces the stored progress vector. Last write wins.
func (s *UserService) ApplyProgress(ctx context.Context, username string, progress []float64) error {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "user", username)
	defer s.Logger.Debug("Exiting function", "func", funcName, "user", username)

	if err := models.ValidateProgress(progress); err != nil {
		return fmt.Errorf("%s: %v: %w", ErrFailedToSetProgress, err, apperrors.ErrInvalidShape)
	}

	unlock := s.locks.Lock(username)
	defer unlock()

	user, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrFailedToSetProgress, err)
	}

	next := user.Clone()
	next.Progress = models.CopyProgress(progress)
	if err := s.UserRepo.UpdateUser(ctx, *next); err != nil {
		s.Logger.Error(ErrFailedToSetProgress, "func", funcName, "user", username, "error", err)
		return fmt.Errorf("%s: %w", ErrFailedToSetProgress, err)
	}
	s.Logger.Info("Progress updated", "func", funcName, "user", username)
	return nil
}

// ReadProgress returns a copy of the stored progress vector.
func (s *UserService) ReadProgress(ctx context.Context, username string) ([]float64, error) {
	user, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrRetrievingUser, err)
	}
	return models.CopyProgress(user.Progress), nil
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), s.hashCost)
		if err != nil {
			s.Logger.Error(ErrFailedToHashPassword, "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
