package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/internal/userrepo/constants"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	uniqueViolation = "23505"

	insertUserQuery = `INSERT INTO users (username, password_hash, streak, progress) VALUES ($1, $2, $3, $4)`
	selectUserQuery = `SELECT username, password_hash, streak, progress FROM users WHERE username = $1`
	updateUserQuery = `UPDATE users SET streak = $2, progress = $3 WHERE username = $1`
)

var _ interfaces.UserRepository = (*PostgresUserRepository)(nil)

// PostgresUserRepository implements UserRepository for PostgreSQL databases.
type PostgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository creates a new PostgreSQL repository instance on an open pool.
func NewPostgresUserRepository(db *sql.DB) (*PostgresUserRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	return &PostgresUserRepository{db: db}, nil
}

// AddUser inserts a new row; a unique violation on username becomes ErrDuplicateUser.
func (r *PostgresUserRepository) AddUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx, insertUserQuery,
		user.Username, user.PasswordHash, user.Streak, pq.Float64Array(models.CopyProgress(user.Progress)))
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("username '%s': %w", user.Username, apperrors.ErrDuplicateUser)
		}
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToAddUser, apperrors.ErrPersistenceFailure, err)
	}
	return nil
}

// GetUserByUsername retrieves a user row by username.
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var (
		user     models.User
		progress pq.Float64Array
	)
	err := r.db.QueryRowContext(ctx, selectUserQuery, username).
		Scan(&user.Username, &user.PasswordHash, &user.Streak, &progress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", constants.ErrFailedToGetUser, err)
	}
	user.Progress = models.CopyProgress(progress)
	return &user, nil
}

// UpdateUser writes the streak and progress of an existing row.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user models.User) error {
	res, err := r.db.ExecContext(ctx, updateUserQuery,
		user.Username, user.Streak, pq.Float64Array(models.CopyProgress(user.Progress)))
	if err != nil {
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToUpdateUser, apperrors.ErrPersistenceFailure, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToUpdateUser, apperrors.ErrPersistenceFailure, err)
	}
	if rows == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// EnsureIndices applies the embedded schema migrations.
func (r *PostgresUserRepository) EnsureIndices(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, r.db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *PostgresUserRepository) Close(ctx context.Context) error {
	return r.db.Close()
}
