package client

const (
	ErrFailedToCreateTransport = "failed to create transport"
	ErrFailedToOpenCache       = "failed to open session cache"
	ErrFailedToClearSession    = "failed to clear session"
)
