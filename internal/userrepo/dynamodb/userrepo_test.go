package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/pkg/zerolog"
)

// fakeDynamo keeps items in memory and honours the two condition expressions the repository uses.
type fakeDynamo struct {
	mu          sync.Mutex
	items       map[string]map[string]types.AttributeValue
	tableExists bool
	createCalls int
	failWrites  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}, tableExists: true}
}

func keyOf(item map[string]types.AttributeValue) string {
	if s, ok := item["username"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(params.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites != nil {
		return nil, f.failWrites
	}
	key := keyOf(params.Item)
	if _, exists := f.items[key]; exists && aws.ToString(params.ConditionExpression) == "attribute_not_exists(username)" {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
	}
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites != nil {
		return nil, f.failWrites
	}
	item, exists := f.items[keyOf(params.Key)]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}
	item["streak"] = params.ExpressionAttributeValues[":streak"]
	item["progress"] = params.ExpressionAttributeValues[":progress"]
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tableExists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no table")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName:   params.TableName,
		TableStatus: types.TableStatusActive,
	}}, nil
}

func (f *fakeDynamo) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.tableExists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func newTestRepo(t *testing.T, fake *fakeDynamo) *DynamoUserRepository {
	t.Helper()
	repo, err := NewDynamoUserRepository(zerolog.NewNopLogger(), fake, "users")
	require.NoError(t, err)
	return repo
}

func TestAddAndGetUser(t *testing.T) {
	repo := newTestRepo(t, newFakeDynamo())
	ctx := context.Background()

	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, 0, got.Streak)
	assert.NotNil(t, got.Progress)
	assert.Empty(t, got.Progress)
}

func TestAddUserDuplicate(t *testing.T) {
	repo := newTestRepo(t, newFakeDynamo())
	ctx := context.Background()

	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))
	err := repo.AddUser(ctx, *models.NewUser("alice", "other"))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateUser)
}

func TestGetUserNotFound(t *testing.T) {
	repo := newTestRepo(t, newFakeDynamo())
	_, err := repo.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	repo := newTestRepo(t, newFakeDynamo())
	ctx := context.Background()
	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))

	update := models.User{Username: "alice", Streak: 4, Progress: []float64{10, 20, 30, 40, 50}}
	require.NoError(t, repo.UpdateUser(ctx, update))

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Streak)
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, got.Progress)
	assert.Equal(t, "hash", got.PasswordHash)
}

func TestUpdateUserErrors(t *testing.T) {
	fake := newFakeDynamo()
	repo := newTestRepo(t, fake)
	ctx := context.Background()

	err := repo.UpdateUser(ctx, models.User{Username: "ghost"})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	require.NoError(t, repo.AddUser(ctx, *models.NewUser("alice", "hash")))
	fake.failWrites = errors.New("throttled")
	err = repo.UpdateUser(ctx, models.User{Username: "alice", Streak: 1})
	assert.ErrorIs(t, err, apperrors.ErrPersistenceFailure)
}

func TestEnsureIndicesCreatesMissingTable(t *testing.T) {
	fake := newFakeDynamo()
	fake.tableExists = false
	repo := newTestRepo(t, fake)

	require.NoError(t, repo.EnsureIndices(context.Background()))
	assert.Equal(t, 1, fake.createCalls)

	require.NoError(t, repo.EnsureIndices(context.Background()))
	assert.Equal(t, 1, fake.createCalls)
}
