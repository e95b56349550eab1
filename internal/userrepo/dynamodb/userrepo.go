package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/internal/userrepo/constants"
	dynamoClient "github.com/haguru/eduquest/pkg/databases/dynamodb"
)

const tableActiveTimeout = 2 * time.Minute

var _ interfaces.UserRepository = (*DynamoUserRepository)(nil)

// DynamoUserRepository stores one item per user, keyed by username.
type DynamoUserRepository struct {
	logger    interfaces.Logger
	dynamodb  dynamoClient.DynamoDbAPI
	tableName string
}

func NewDynamoUserRepository(logger interfaces.Logger, dynamodb dynamoClient.DynamoDbAPI, tableName string) (*DynamoUserRepository, error) {
	if dynamodb == nil {
		return nil, fmt.Errorf("dynamodb client cannot be nil")
	}
	if tableName == "" {
		tableName = constants.UsersCollection
	}
	return &DynamoUserRepository{logger: logger, dynamodb: dynamodb, tableName: tableName}, nil
}

// AddUser puts the item only if no item with the same username exists.
func (r *DynamoUserRepository) AddUser(ctx context.Context, user models.User) error {
	user.Progress = models.CopyProgress(user.Progress)
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("%s: %w", constants.ErrFailedToAddUser, err)
	}

	_, err = r.dynamodb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(username)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("username '%s': %w", user.Username, apperrors.ErrDuplicateUser)
		}
		r.logger.Error("Failed to put user item", "error", err, "username", user.Username)
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToAddUser, apperrors.ErrPersistenceFailure, err)
	}
	return nil
}

// GetUserByUsername performs a strongly consistent read of the user item.
func (r *DynamoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	result, err := r.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            usernameKey(username),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.ErrFailedToGetUser, err)
	}
	if result.Item == nil {
		return nil, apperrors.ErrUserNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", constants.ErrFailedToGetUser, err)
	}
	user.Progress = models.CopyProgress(user.Progress)
	return &user, nil
}

// UpdateUser sets streak and progress on an existing item.
func (r *DynamoUserRepository) UpdateUser(ctx context.Context, user models.User) error {
	progress, err := attributevalue.Marshal(models.CopyProgress(user.Progress))
	if err != nil {
		return fmt.Errorf("%s: %w", constants.ErrFailedToUpdateUser, err)
	}
	streak, err := attributevalue.Marshal(user.Streak)
	if err != nil {
		return fmt.Errorf("%s: %w", constants.ErrFailedToUpdateUser, err)
	}

	_, err = r.dynamodb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 usernameKey(user.Username),
		UpdateExpression:    aws.String("SET streak = :streak, progress = :progress"),
		ConditionExpression: aws.String("attribute_exists(username)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":streak":   streak,
			":progress": progress,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperrors.ErrUserNotFound
		}
		r.logger.Error("Failed to update user item", "error", err, "username", user.Username)
		return fmt.Errorf("%s: %w: %v", constants.ErrFailedToUpdateUser, apperrors.ErrPersistenceFailure, err)
	}
	return nil
}

// EnsureIndices creates the table when it does not exist and waits until it is active.
func (r *DynamoUserRepository) EnsureIndices(ctx context.Context) error {
	_, err := r.dynamodb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", r.tableName, err)
	}

	r.logger.Info("Creating DynamoDB table", "table", r.tableName)
	_, err = r.dynamodb.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(r.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("username"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("username"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", r.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(r.dynamodb)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)}, tableActiveTimeout)
}

// Close is a no-op; the SDK client holds no connection to release.
func (r *DynamoUserRepository) Close(ctx context.Context) error {
	return nil
}

func usernameKey(username string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"username": &types.AttributeValueMemberS{Value: username},
	}
}
