package sessioncache

const (
	// Fixed well-known keys of the local store
	CurrentUserKey      = "currentUser"
	PendingMutationsKey = "pendingMutations"

	fileExt = ".json"

	ErrFailedToWriteCache = "failed to write session cache"
	ErrFailedToClearCache = "failed to clear session cache"
	ErrInvalidSnapshot    = "refusing to cache an invalid snapshot"
	MsgPurgedCorruptEntry = "Purged corrupt cache entry"
)
