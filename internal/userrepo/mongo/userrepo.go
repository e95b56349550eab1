package mongo

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/internal/userrepo/constants"

	"go.mongodb.org/mongo-driver/bson"

	mongoClient "github.com/haguru/eduquest/pkg/databases/mongo"
	mongosdk "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ interfaces.UserRepository = (*MongoUserRepository)(nil)

// MongoUserRepository implements UserRepository on a MongoDB collection.
// Each update is a single-document write, acknowledged by the server before returning.
type MongoUserRepository struct {
	dbClient   *mongoClient.MongoDBClient
	collection *mongosdk.Collection
}

// NewMongoUserRepository creates a repository on a connected client.
func NewMongoUserRepository(dbClient *mongoClient.MongoDBClient, collectionName string) (*MongoUserRepository, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("dbClient cannot be nil")
	}
	if collectionName == "" {
		collectionName = constants.UsersCollection
	}
	collection, err := dbClient.Collection(collectionName)
	if err != nil {
		return nil, err
	}
	return &MongoUserRepository{dbClient: dbClient, collection: collection}, nil
}

// AddUser inserts a new user document.
func (r *MongoUserRepository) AddUser(ctx context.Context, user models.User) error {
	_, err := r.collection.InsertOne(ctx, userDocument(user))
	if err != nil {
		if mongosdk.IsDuplicateKeyError(err) {
			return fmt.Errorf("username '%s': %w", user.Username, apperrors.ErrDuplicateUser)
		}
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToAddUser, apperrors.ErrPersistenceFailure, err)
	}
	return nil
}

// GetUserByUsername retrieves a user document by its unique username.
func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongosdk.ErrNoDocuments) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", constants.ErrFailedToGetUser, err)
	}
	if user.Progress == nil {
		user.Progress = []float64{}
	}
	return &user, nil
}

// UpdateUser overwrites the mutable fields of an existing user document.
func (r *MongoUserRepository) UpdateUser(ctx context.Context, user models.User) error {
	update := bson.M{"$set": bson.M{
		"streak":   user.Streak,
		"progress": models.CopyProgress(user.Progress),
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"username": user.Username}, update)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToUpdateUser, apperrors.ErrPersistenceFailure, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// EnsureIndices creates the unique index on username.
func (r *MongoUserRepository) EnsureIndices(ctx context.Context) error {
	indexModel := mongosdk.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := r.collection.Indexes().CreateOne(ctx, indexModel)
	return err
}

// Close disconnects the MongoDB client.
func (r *MongoUserRepository) Close(ctx context.Context) error {
	return r.dbClient.Disconnect(ctx)
}

func userDocument(user models.User) bson.M {
	return bson.M{
		"username":      user.Username,
		"password_hash": user.PasswordHash,
		"streak":        user.Streak,
		"progress":      models.CopyProgress(user.Progress),
	}
}
