package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/haguru/eduquest/internal/errors"
	"github.com/haguru/eduquest/internal/interfaces/mocks"
	"github.com/haguru/eduquest/internal/models"
	"github.com/haguru/eduquest/internal/models/dto"
	"github.com/haguru/eduquest/internal/userrepo/file"
	"github.com/haguru/eduquest/internal/userservice"
	"github.com/haguru/eduquest/pkg/metrics"
	"github.com/haguru/eduquest/pkg/zerolog"
)

func newTestMux(t *testing.T) (*http.ServeMux, *Route) {
	t.Helper()
	repo, err := file.NewFileUserRepository(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	svc := userservice.NewUserService(repo, zerolog.NewNopLogger(), userservice.WithHashCost(bcrypt.MinCost))
	return muxFor(svc)
}

func muxFor(svc *userservice.UserService) (*http.ServeMux, *Route) {
	m := metrics.NewMetrics("eduquest")
	RegisterMetrics(m)
	r := NewRoute(m, svc, zerolog.NewNopLogger(), nil)

	mux := http.NewServeMux()
	mux.HandleFunc(RegisterRouteAPI, r.Register)
	mux.HandleFunc(LoginRouteAPI, r.Login)
	mux.HandleFunc(StreakRouteAPI, r.Streak)
	mux.HandleFunc(ProgressRouteAPI, r.Progress)
	mux.HandleFunc(ReadProgressRouteAPI, r.ReadProgress)
	return mux, r
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set(ContentType, contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoute_Register(t *testing.T) {
	mux, _ := newTestMux(t)

	tests := []struct {
		name           string
		method         string
		contentType    string
		body           string
		wantStatusCode int
	}{
		{
			name:           "Valid registration",
			method:         http.MethodPost,
			contentType:    ContentTypeJson,
			body:           `{"username":"alice","password":"secret1"}`,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "Duplicate username",
			method:         http.MethodPost,
			contentType:    ContentTypeJson,
			body:           `{"username":"alice","password":"secret2"}`,
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "Username too short",
			method:         http.MethodPost,
			contentType:    ContentTypeJson,
			body:           `{"username":"al","password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "Password too short",
			method:         http.MethodPost,
			contentType:    "application/json; charset=utf-8",
			body:           `{"username":"bob","password":"123"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "Invalid method",
			method:         http.MethodGet,
			contentType:    ContentTypeJson,
			wantStatusCode: http.StatusMethodNotAllowed,
		},
		{
			name:           "Missing Content-Type",
			method:         http.MethodPost,
			body:           `{"username":"carol","password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "Invalid JSON body",
			method:         http.MethodPost,
			contentType:    ContentTypeJson,
			body:           `{"username":"carol""password":"secret1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, mux, tt.method, RegisterRouteAPI, tt.contentType, tt.body)
			assert.Equal(t, tt.wantStatusCode, rr.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Contains(t, resp, "message")
			assert.Len(t, resp, 1)
		})
	}
}

func TestRoute_Login(t *testing.T) {
	mux, r := newTestMux(t)
	require.Equal(t, http.StatusCreated,
		do(t, mux, http.MethodPost, RegisterRouteAPI, ContentTypeJson, `{"username":"alice","password":"secret1"}`).Code)

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{name: "Valid login", body: `{"username":"alice","password":"secret1"}`, wantStatusCode: http.StatusOK},
		{name: "Wrong password", body: `{"username":"alice","password":"nope123"}`, wantStatusCode: http.StatusUnauthorized},
		{name: "Unknown user", body: `{"username":"mallory","password":"secret1"}`, wantStatusCode: http.StatusUnauthorized},
		{name: "Missing password", body: `{"username":"alice"}`, wantStatusCode: http.StatusBadRequest},
	}
	var unauthorizedBodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, mux, http.MethodPost, LoginRouteAPI, ContentTypeJson, tt.body)
			assert.Equal(t, tt.wantStatusCode, rr.Code)
			if rr.Code == http.StatusUnauthorized {
				unauthorizedBodies = append(unauthorizedBodies, rr.Body.String())
			}
		})
	}
	require.Len(t, unauthorizedBodies, 2)
	assert.Equal(t, unauthorizedBodies[0], unauthorizedBodies[1])
	expected := `
# HELP eduquest_login_failed_total Total number of rejected login attempts
# TYPE eduquest_login_failed_total counter
eduquest_login_failed_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(r.Metrics.GetRegistry(), strings.NewReader(expected), "eduquest_login_failed_total"))
}

func TestRoute_LoginReturnsRecord(t *testing.T) {
	mux, _ := newTestMux(t)
	do(t, mux, http.MethodPost, RegisterRouteAPI, ContentTypeJson, `{"username":"alice","password":"secret1"}`)

	rr := do(t, mux, http.MethodPost, LoginRouteAPI, ContentTypeJson, `{"username":"alice","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Login successful","user":{"username":"alice","streak":0,"progress":[]}}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "passwordHash")
}

func TestRoute_Streak(t *testing.T) {
	mux, _ := newTestMux(t)
	do(t, mux, http.MethodPost, RegisterRouteAPI, ContentTypeJson, `{"username":"alice","password":"secret1"}`)

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantStreak     int
	}{
		{name: "Raise", body: `{"username":"alice","streak":3}`, wantStatusCode: http.StatusOK, wantStreak: 3},
		{name: "Lower is ignored", body: `{"username":"alice","streak":1}`, wantStatusCode: http.StatusOK, wantStreak: 3},
		{name: "Replay is idempotent", body: `{"username":"alice","streak":3}`, wantStatusCode: http.StatusOK, wantStreak: 3},
		{name: "Zero is accepted", body: `{"username":"alice","streak":0}`, wantStatusCode: http.StatusOK, wantStreak: 3},
		{name: "Missing streak", body: `{"username":"alice"}`, wantStatusCode: http.StatusBadRequest},
		{name: "Negative streak", body: `{"username":"alice","streak":-2}`, wantStatusCode: http.StatusBadRequest},
		{name: "Unknown user", body: `{"username":"ghost","streak":2}`, wantStatusCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, mux, http.MethodPost, StreakRouteAPI, ContentTypeJson, tt.body)
			assert.Equal(t, tt.wantStatusCode, rr.Code)
			if tt.wantStatusCode == http.StatusOK {
				var resp dto.StreakResponseDTO
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantStreak, resp.Streak)
			}
		})
	}
}

func TestRoute_Progress(t *testing.T) {
	mux, _ := newTestMux(t)
	do(t, mux, http.MethodPost, RegisterRouteAPI, ContentTypeJson, `{"username":"alice","password":"secret1"}`)

	rr := do(t, mux, http.MethodGet, "/progress/alice", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"progress":[]}`, rr.Body.String())

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{name: "Valid vector", body: `{"username":"alice","progress":[10,20,30,40,50]}`, wantStatusCode: http.StatusOK},
		{name: "Too few scores", body: `{"username":"alice","progress":[10,20]}`, wantStatusCode: http.StatusBadRequest},
		{name: "Score above range", body: `{"username":"alice","progress":[10,20,30,40,500]}`, wantStatusCode: http.StatusBadRequest},
		{name: "Missing progress", body: `{"username":"alice"}`, wantStatusCode: http.StatusBadRequest},
		{name: "Unknown user", body: `{"username":"ghost","progress":[1,2,3,4,5]}`, wantStatusCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, mux, http.MethodPost, ProgressRouteAPI, ContentTypeJson, tt.body)
			assert.Equal(t, tt.wantStatusCode, rr.Code)
		})
	}

	rr = do(t, mux, http.MethodGet, "/progress/alice", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"progress":[10,20,30,40,50]}`, rr.Body.String())

	rr = do(t, mux, http.MethodGet, "/progress/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"message":%q}`, MsgUserNotFound), rr.Body.String())
}

func TestRoute_PersistenceFailureIs500(t *testing.T) {
	repo := mocks.NewMockUserRepository(t)
	repo.On("GetUserByUsername", mock.Anything, "alice").
		Return(&models.User{Username: "alice", Streak: 1, Progress: []float64{}}, nil)
	repo.On("UpdateUser", mock.Anything, mock.Anything).
		Return(fmt.Errorf("write: %w", apperrors.ErrPersistenceFailure))

	mux, r := muxFor(userservice.NewUserService(repo, zerolog.NewNopLogger()))

	rr := do(t, mux, http.MethodPost, StreakRouteAPI, ContentTypeJson, `{"username":"alice","streak":4}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"message":%q}`, MsgInternalError), rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "write")

	count, err := testutil.GatherAndCount(r.Metrics.GetRegistry(), "eduquest_http_request_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
