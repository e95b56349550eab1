package interfaces

import "context"

// DBClient defines the lifecycle shared by the database clients backing a UserRepository.
type DBClient interface {
	// Connect establishes a connection using a DSN (Data Source Name).
	Connect(ctx context.Context, dsn string) error

	// Disconnect closes the connection.
	Disconnect(ctx context.Context) error

	// Ping checks the health of the connection.
	Ping(ctx context.Context) error
}
