package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/haguru/eduquest/internal/interfaces"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections to the database.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 30 * time.Second
)

var _ interfaces.DBClient = (*PostgresDatabaseClient)(nil)

// PostgresDatabaseClient implements the DBClient interface for PostgreSQL databases.
type PostgresDatabaseClient struct {
	db              *sql.DB
	MaxOpenConns    int           // MaxOpenConns is the maximum number of open connections to the database
	MaxIdleConns    int           // MaxIdleConns is the maximum number of idle connections to the database
	ConnMaxLifetime time.Duration // ConnMaxLifetime is the maximum amount of time a connection may be reused
}

// NewPostgresDatabaseClient returns an unconnected client. Non-positive values fall back to the defaults.
func NewPostgresDatabaseClient(maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) *PostgresDatabaseClient {
	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	if maxIdleConns <= 0 {
		maxIdleConns = DefaultMaxIdleConns
	}
	if connMaxLifetime <= 0 {
		connMaxLifetime = DefaultConnMaxLifetime
	}
	return &PostgresDatabaseClient{
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
	}
}

// Connect establishes a connection to a PostgreSQL database.
func (p *PostgresDatabaseClient) Connect(ctx context.Context, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("PostgresDatabaseClient: DSN is empty")
	}
	var err error
	p.db, err = sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	p.db.SetMaxOpenConns(p.MaxOpenConns)
	p.db.SetMaxIdleConns(p.MaxIdleConns)
	p.db.SetConnMaxLifetime(p.ConnMaxLifetime)

	return p.Ping(ctx)
}

// Disconnect closes the PostgreSQL database connection.
func (p *PostgresDatabaseClient) Disconnect(ctx context.Context) error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Ping checks the health of the PostgreSQL connection.
func (p *PostgresDatabaseClient) Ping(ctx context.Context) error {
	if p.db == nil {
		return fmt.Errorf("PostgresDatabaseClient is not connected to a database")
	}
	return p.db.PingContext(ctx)
}

// DB exposes the pooled handle for repositories and migrations.
func (p *PostgresDatabaseClient) DB() *sql.DB {
	return p.db
}
