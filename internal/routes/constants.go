package routes

var (
	RequestDurationSecondsBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

const (
	// API route constants
	RegisterRouteAPI     = "/register"
	LoginRouteAPI        = "/login"
	StreakRouteAPI       = "/streak"
	ProgressRouteAPI     = "/progress"
	ReadProgressRouteAPI = "GET /progress/{username}"
	MetricsRouteAPI      = "/metrics"

	// PathUsername is the wildcard name in ReadProgressRouteAPI
	PathUsername = "username"

	// Content-Type constants
	ContentType     = "Content-Type"
	ContentTypeJson = "application/json"

	// maxBodyBytes bounds every JSON request body
	maxBodyBytes = 1 << 20

	// message constants
	MsgLoginSuccessful   = "Login successful"
	MsgUserCreated       = "User created successfully"
	MsgStreakUpdated     = "Streak updated"
	MsgProgressUpdated   = "Progress updated"
	MsgInternalError     = "Internal server error"
	MsgUserNotFound      = "User not found"
	MsgUsernameTaken     = "Username already exists"
	MsgInvalidCredential = "Invalid username or password"

	// Error messages
	ErrMethodNotAllowed         = "method not allowed"
	ErrInvalidContentType       = "content-Type must be application/json"
	ErrInvalidRequestBody       = "invalid request body"
	ErrValidationFailed         = "data validation failed"
	ErrFailedToEncodeResponse   = "failed to encode response"
	ErrInvalidContentTypeFormat = "invalid content-type: %s"
	ErrInvalidProgress          = "progress must hold 5 scores between 0 and 100"

	// metrics constants
	HTTPRequestsTotal             = "http_requests_total"
	HTTPRequestsTotalHelp         = "Total number of requests received per route"
	HTTPRequestErrorsTotal        = "http_request_errors_total"
	HTTPRequestErrorsTotalHelp    = "Total number of failed requests per route and status code"
	HTTPRequestDurationSeconds    = "http_request_duration_seconds"
	HTTPRequestDurationSecondHelp = "Duration of requests per route in seconds"
	LoginFailedTotal              = "login_failed_total"
	LoginFailedTotalHelp          = "Total number of rejected login attempts"
	RateLimitedTotal              = "rate_limited_total"
	RateLimitedTotalHelp          = "Total number of requests rejected by the rate limiter"

	// metric labels
	LabelRoute  = "route"
	LabelStatus = "status"
)
