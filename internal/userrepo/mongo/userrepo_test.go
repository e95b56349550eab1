package mongo

import (
	"testing"

	"github.com/haguru/eduquest/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestUserDocumentRoundTrip(t *testing.T) {
	user := models.User{
		Username:     "alice",
		PasswordHash: "hash",
		Streak:       3,
		Progress:     []float64{1, 2, 3, 4, 5},
	}

	raw, err := bson.Marshal(userDocument(user))
	assert.NoError(t, err)

	var decoded models.User
	assert.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, user, decoded)
}

func TestUserDocumentNeverStoresNilProgress(t *testing.T) {
	doc := userDocument(models.User{Username: "alice"})
	assert.Equal(t, []float64{}, doc["progress"])
}

func TestNewMongoUserRepositoryRequiresClient(t *testing.T) {
	_, err := NewMongoUserRepository(nil, "users")
	assert.Error(t, err)
}
