package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	structValidator "github.com/go-playground/validator/v10"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models/dto"
)

type Route struct {
	Metrics     interfaces.Metrics
	UserService interfaces.UserService
	Logger      interfaces.Logger
	validator   *structValidator.Validate
}

// NewRoute creates a new Route instance.
func NewRoute(metrics interfaces.Metrics, userService interfaces.UserService,
	logger interfaces.Logger, validator *structValidator.Validate,
) *Route {
	if validator == nil {
		validator = structValidator.New()
	}
	return &Route{
		Metrics:     metrics,
		UserService: userService,
		Logger:      logger,
		validator:   validator,
	}
}

// RegisterMetrics registers every collector the handlers report to.
func RegisterMetrics(m interfaces.Metrics) {
	m.RegisterCounterVec(HTTPRequestsTotal, HTTPRequestsTotalHelp, []string{LabelRoute})
	m.RegisterCounterVec(HTTPRequestErrorsTotal, HTTPRequestErrorsTotalHelp, []string{LabelRoute, LabelStatus})
	m.RegisterHistogramVec(HTTPRequestDurationSeconds, HTTPRequestDurationSecondHelp,
		RequestDurationSecondsBuckets, []string{LabelRoute})
	m.RegisterCounter(LoginFailedTotal, LoginFailedTotalHelp)
	m.RegisterCounter(RateLimitedTotal, RateLimitedTotalHelp)
}

// Register handles account creation. 201 on success, 400 invalid input, 409 duplicate.
func (r *Route) Register(w http.ResponseWriter, req *http.Request) {
	const route = RegisterRouteAPI
	start := r.begin(route)
	defer r.observe(route, start)

	if !r.requirePostJSON(w, req, route) {
		return
	}

	signupRequest := &dto.UserSignupRequestDTO{}
	if !r.decode(w, req, route, signupRequest) {
		return
	}

	if err := r.UserService.RegisterUser(req.Context(), signupRequest.Username, signupRequest.Password); err != nil {
		r.serviceError(w, route, err)
		return
	}

	r.writeJSON(w, route, http.StatusCreated, &dto.MessageResponseDTO{Message: MsgUserCreated})
}

// Login verifies credentials and returns the server-side record.
func (r *Route) Login(w http.ResponseWriter, req *http.Request) {
	const route = LoginRouteAPI
	start := r.begin(route)
	defer r.observe(route, start)

	if !r.requirePostJSON(w, req, route) {
		return
	}

	loginRequest := &dto.LoginRequestDTO{}
	if !r.decode(w, req, route, loginRequest) {
		return
	}

	user, err := r.UserService.AuthenticateUser(req.Context(), loginRequest.Username, loginRequest.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) && r.Metrics != nil {
			r.Metrics.IncCounter(LoginFailedTotal)
		}
		r.serviceError(w, route, err)
		return
	}

	view := user.View()
	r.writeJSON(w, route, http.StatusOK, &dto.LoginResponseDTO{
		Message: MsgLoginSuccessful,
		User:    &view,
	})
}

// Streak merges a proposed streak and returns the resulting value.
func (r *Route) Streak(w http.ResponseWriter, req *http.Request) {
	const route = StreakRouteAPI
	start := r.begin(route)
	defer r.observe(route, start)

	if !r.requirePostJSON(w, req, route) {
		return
	}

	streakRequest := &dto.StreakRequestDTO{}
	if !r.decode(w, req, route, streakRequest) {
		return
	}

	streak, err := r.UserService.ApplyStreak(req.Context(), streakRequest.Username, *streakRequest.Streak)
	if err != nil {
		r.serviceError(w, route, err)
		return
	}

	r.writeJSON(w, route, http.StatusOK, &dto.StreakResponseDTO{Message: MsgStreakUpdated, Streak: streak})
}

// Progress replaces the stored progress vector.
func (r *Route) Progress(w http.ResponseWriter, req *http.Request) {
	const route = ProgressRouteAPI
	start := r.begin(route)
	defer r.observe(route, start)

	if !r.requirePostJSON(w, req, route) {
		return
	}

	progressRequest := &dto.ProgressRequestDTO{}
	if !r.decode(w, req, route, progressRequest) {
		return
	}

	if err := r.UserService.ApplyProgress(req.Context(), progressRequest.Username, progressRequest.Progress); err != nil {
		r.serviceError(w, route, err)
		return
	}

	r.writeJSON(w, route, http.StatusOK, &dto.MessageResponseDTO{Message: MsgProgressUpdated})
}

// ReadProgress returns the stored progress vector of the user named in the path.
func (r *Route) ReadProgress(w http.ResponseWriter, req *http.Request) {
	const route = ReadProgressRouteAPI
	start := r.begin(route)
	defer r.observe(route, start)

	username := req.PathValue(PathUsername)
	if username == "" {
		r.fail(w, route, http.StatusBadRequest, fmt.Errorf("missing username"), ErrValidationFailed)
		return
	}

	progress, err := r.UserService.ReadProgress(req.Context(), username)
	if err != nil {
		r.serviceError(w, route, err)
		return
	}

	r.writeJSON(w, route, http.StatusOK, &dto.ProgressResponseDTO{Progress: progress})
}

func (r *Route) begin(route string) time.Time {
	if r.Metrics != nil {
		r.Metrics.IncCounterVec(HTTPRequestsTotal, route)
	}
	return time.Now()
}

func (r *Route) observe(route string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.ObserveHistogramVec(HTTPRequestDurationSeconds, time.Since(start).Seconds(), route)
	}
}

func (r *Route) requirePostJSON(w http.ResponseWriter, req *http.Request, route string) bool {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		r.fail(w, route, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", req.Method), ErrMethodNotAllowed)
		return false
	}
	mediaType, _, err := mime.ParseMediaType(req.Header.Get(ContentType))
	if err != nil || mediaType != ContentTypeJson {
		r.fail(w, route, http.StatusBadRequest,
			fmt.Errorf(ErrInvalidContentTypeFormat, req.Header.Get(ContentType)), ErrInvalidContentType)
		return false
	}
	return true
}

// decode reads the JSON body into dst and validates it.
func (r *Route) decode(w http.ResponseWriter, req *http.Request, route string, dst interface{}) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		r.fail(w, route, http.StatusBadRequest, err, ErrInvalidRequestBody)
		return false
	}
	if err := r.validator.Struct(dst); err != nil {
		message := ErrValidationFailed
		if _, ok := dst.(*dto.ProgressRequestDTO); ok {
			message = ErrInvalidProgress
		}
		r.fail(w, route, http.StatusBadRequest, err, message)
		return false
	}
	return true
}

// serviceError maps a credential store error to its status code.
func (r *Route) serviceError(w http.ResponseWriter, route string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		r.fail(w, route, http.StatusBadRequest, err, ErrValidationFailed)
	case errors.Is(err, apperrors.ErrInvalidShape):
		r.fail(w, route, http.StatusBadRequest, err, ErrInvalidProgress)
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		r.fail(w, route, http.StatusUnauthorized, err, MsgInvalidCredential)
	case errors.Is(err, apperrors.ErrUserNotFound):
		r.fail(w, route, http.StatusNotFound, err, MsgUserNotFound)
	case errors.Is(err, apperrors.ErrDuplicateUser):
		r.fail(w, route, http.StatusConflict, err, MsgUsernameTaken)
	default:
		r.fail(w, route, http.StatusInternalServerError, err, MsgInternalError)
	}
}

// fail logs the cause and answers with a bare {message} body.
func (r *Route) fail(w http.ResponseWriter, route string, status int, err error, message string) {
	if r.Logger != nil {
		if status >= http.StatusInternalServerError {
			r.Logger.Error(message, "route", route, "status", status, "error", err)
		} else {
			r.Logger.Warn(message, "route", route, "status", status, "error", err)
		}
	}
	if r.Metrics != nil {
		r.Metrics.IncCounterVec(HTTPRequestErrorsTotal, route, strconv.Itoa(status))
	}
	r.writeJSON(w, route, status, &dto.MessageResponseDTO{Message: message})
}

func (r *Route) writeJSON(w http.ResponseWriter, route string, status int, body interface{}) {
	w.Header().Set(ContentType, ContentTypeJson)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil && r.Logger != nil {
		r.Logger.Error(ErrFailedToEncodeResponse, "route", route, "error", err)
	}
}
