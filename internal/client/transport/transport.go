// Package transport is the HTTP client of the credential store API.
// It is the only place where status codes are turned back into sentinel errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/internal/models/dto"
)

const (
	registerPath = "/register"
	loginPath    = "/login"
	streakPath   = "/streak"
	progressPath = "/progress"

	contentType     = "Content-Type"
	contentTypeJSON = "application/json"

	// maxErrorBody caps how much of an error response is read for its message
	maxErrorBody = 4 << 10
)

var _ interfaces.Transport = (*HTTPTransport)(nil)

// HTTPTransport talks JSON to the server. Every request is bounded by the
// client timeout; hitting it counts as the server being unreachable.
type HTTPTransport struct {
	baseURL *url.URL
	client  *http.Client
}

// NewHTTPTransport validates baseURL and builds a client with the given timeout.
func NewHTTPTransport(baseURL string, timeout time.Duration) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	return &HTTPTransport{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Register creates an account.
func (t *HTTPTransport) Register(ctx context.Context, username, password string) error {
	body := dto.UserSignupRequestDTO{Username: username, Password: password}
	return t.do(ctx, http.MethodPost, registerPath, body, nil, apperrors.ErrInvalidInput)
}

// Authenticate returns the server record on valid credentials.
func (t *HTTPTransport) Authenticate(ctx context.Context, username, password string) (*models.UserView, error) {
	var resp dto.LoginResponseDTO
	body := dto.LoginRequestDTO{Username: username, Password: password}
	if err := t.do(ctx, http.MethodPost, loginPath, body, &resp, apperrors.ErrInvalidInput); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.Username == "" {
		return nil, fmt.Errorf("%w: login response carries no user", apperrors.ErrServer)
	}
	if resp.User.Progress == nil {
		resp.User.Progress = []float64{}
	}
	return resp.User, nil
}

// ApplyStreak proposes a streak and returns the value the server kept.
func (t *HTTPTransport) ApplyStreak(ctx context.Context, username string, streak int) (int, error) {
	var resp dto.StreakResponseDTO
	body := dto.StreakRequestDTO{Username: username, Streak: &streak}
	if err := t.do(ctx, http.MethodPost, streakPath, body, &resp, apperrors.ErrInvalidInput); err != nil {
		return 0, err
	}
	return resp.Streak, nil
}

// ApplyProgress replaces the stored progress vector.
func (t *HTTPTransport) ApplyProgress(ctx context.Context, username string, progress []float64) error {
	body := dto.ProgressRequestDTO{Username: username, Progress: progress}
	return t.do(ctx, http.MethodPost, progressPath, body, nil, apperrors.ErrInvalidShape)
}

// ReadProgress fetches the stored progress vector.
func (t *HTTPTransport) ReadProgress(ctx context.Context, username string) ([]float64, error) {
	var resp dto.ProgressResponseDTO
	path := progressPath + "/" + url.PathEscape(username)
	if err := t.do(ctx, http.MethodGet, path, nil, &resp, apperrors.ErrInvalidInput); err != nil {
		return nil, err
	}
	return models.CopyProgress(resp.Progress), nil
}

// do sends one request. badRequest is the sentinel a 400 maps to for this route.
func (t *HTTPTransport) do(ctx context.Context, method, path string, in, out interface{}, badRequest error) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := t.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set(contentType, contentTypeJSON)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		// connection refused, DNS, TLS, timeouts and cancellation all land here
		return fmt.Errorf("%w: %v", apperrors.ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: malformed response: %v", apperrors.ErrServer, err)
		}
		return nil
	}

	return statusError(resp, badRequest)
}

// statusError maps a non-2xx response onto the shared sentinels.
func statusError(resp *http.Response, badRequest error) error {
	message := readMessage(resp.Body)
	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = badRequest
	case http.StatusUnauthorized:
		sentinel = apperrors.ErrInvalidCredentials
	case http.StatusNotFound:
		sentinel = apperrors.ErrUserNotFound
	case http.StatusConflict:
		sentinel = apperrors.ErrDuplicateUser
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		sentinel = apperrors.ErrTransportUnavailable
	default:
		sentinel = apperrors.ErrServer
	}
	if message == "" {
		return fmt.Errorf("%w: %s", sentinel, resp.Status)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

func readMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var msg dto.MessageResponseDTO
	if err := json.Unmarshal(data, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(data))
}
