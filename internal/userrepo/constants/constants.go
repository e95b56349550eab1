package constants

const (
	// UsersCollection is the collection/table holding user records.
	UsersCollection = "users"

	// MinUsernameLength and MaxUsernameLength bound the stored username.
	MinUsernameLength = 3
	MaxUsernameLength = 20

	// Error messages shared by the repositories
	ErrFailedToReadStore  = "failed to read user store"
	ErrFailedToWriteStore = "failed to write user store"
	ErrFailedToAddUser    = "failed to add user"
	ErrFailedToGetUser    = "failed to get user"
	ErrFailedToUpdateUser = "failed to update user"
)
