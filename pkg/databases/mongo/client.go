package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/haguru/eduquest/config"
	"github.com/haguru/eduquest/internal/interfaces"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	MAXPOOLSIZE = 20
)

var _ interfaces.DBClient = (*MongoDBClient)(nil)

// MongoDBClient owns the driver connection and the selected database.
type MongoDBClient struct {
	ServerOpts *options.ServerAPIOptions
	client     *mongo.Client
	db         *mongo.Database
	timeout    time.Duration
	logger     interfaces.Logger
}

// NewMongoDB returns an unconnected client configured from dbConfig.
func NewMongoDB(dbConfig *config.MongoDBConfig, logger interfaces.Logger) *MongoDBClient {
	client := &MongoDBClient{
		timeout: dbConfig.Timeout,
		logger:  logger,
	}
	if dbConfig.Options.APIVersion != "" {
		client.ServerOpts = config.BuildServerAPIOptions(dbConfig.Options)
	}
	return client
}

// Connect establishes a connection to the MongoDB database using the provided DSN (Data Source Name).
// The DSN should be in the format "mongodb://<host>:<port>/<database>"; the path selects the database.
func (m *MongoDBClient) Connect(ctx context.Context, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("MongoDBClient: DSN is empty")
	}
	if !strings.HasPrefix(dsn, "mongodb://") && !strings.HasPrefix(dsn, "mongodb+srv://") {
		return fmt.Errorf("MongoDBClient: Invalid DSN format, expected 'mongodb://' or 'mongodb+srv://'")
	}
	databaseName, err := getDBNameFromMongoDSN(dsn)
	if err != nil {
		return fmt.Errorf("MongoDBClient: Failed to extract database name from datasource name(dsn): %v", err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	clientOptions := options.Client().ApplyURI(dsn)
	if m.ServerOpts != nil {
		clientOptions.SetServerAPIOptions(m.ServerOpts)
	}
	clientOptions.SetMaxPoolSize(MAXPOOLSIZE)
	clientOptions.SetReadPreference(readpref.PrimaryPreferred())

	m.logger.Info("Connecting to MongoDB", "database", databaseName)
	m.client, err = mongo.Connect(ctx, clientOptions)
	if err != nil {
		return err
	}

	if err = m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("MongoDBClient: Failed to connect to MongoDB server: %v", err)
	}
	m.logger.Info("Connected to MongoDB", "database", databaseName)

	m.db = m.client.Database(databaseName)
	return nil
}

// Disconnect closes the connection to the MongoDB database.
func (m *MongoDBClient) Disconnect(ctx context.Context) error {
	if m.client != nil {
		m.logger.Info("Disconnecting from MongoDB")
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Ping verifies the MongoDB connection health using a ping command.
func (m *MongoDBClient) Ping(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("MongoDBClient is not connected")
	}
	return m.client.Ping(ctx, nil)
}

// Collection returns a handle on the named collection of the connected database.
func (m *MongoDBClient) Collection(name string) (*mongo.Collection, error) {
	if m.db == nil {
		return nil, fmt.Errorf("MongoDBClient is not connected to a database")
	}
	if name == "" {
		return nil, fmt.Errorf("MongoDBClient: Collection name cannot be empty")
	}
	return m.db.Collection(name), nil
}

// getDBNameFromMongoDSN extracts the database name from a MongoDB DSN.
func getDBNameFromMongoDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse MongoDB DSN: %w", err)
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("no database name found in MongoDB DSN path: %s", dsn)
	}

	// If the path contains additional segments (e.g., /db/collection), use only the first as the database name.
	if idx := strings.Index(dbName, "/"); idx != -1 {
		dbName = dbName[:idx]
	}

	return dbName, nil
}
