package mutator

const flushKey = "flush"

// metrics constants
const (
	OutboxDepth          = "outbox_depth"
	OutboxDepthHelp      = "Number of mutations waiting to reach the server"
	OutboxSendsTotal     = "outbox_sends_total"
	OutboxSendsTotalHelp = "Outbox deliveries by result"
	LabelResult          = "result"
	ResultAcknowledged   = "acknowledged"
	ResultDropped        = "dropped"
	ResultDeferred       = "deferred"
)

const (
	ErrFailedToPersistQueue = "failed to persist outbox"
	ErrFailedToSaveSession  = "failed to save session snapshot"
)
