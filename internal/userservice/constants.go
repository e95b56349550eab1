package userservice

const (
	// Error messages for user service operations
	ErrFailedToHashPassword = "failed to hash password" // #nosec G101
	ErrFailedToRegisterUser = "failed to register user"
	ErrRetrievingUser       = "error retrieving user"
	ErrUserNotFound         = "user not found"
	ErrInvalidPassword      = "invalid password"
	ErrFailedToApplyStreak  = "failed to apply streak"
	ErrFailedToSetProgress  = "failed to apply progress"

	// dummyPassword is hashed once and compared against for unknown users
	dummyPassword = "eduquest-timing-equalizer" // #nosec G101
)
