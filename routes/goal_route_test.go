package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goally/handlers"
	"goally/metrics"
	"goally/middlewares"
	repository "goally/repositories"
	service "goally/services"
)

const secret = "route-secret"

func newMux(t *testing.T) (*http.ServeMux, *service.SessionManager) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m, err := metrics.NewGoalMetrics(registry)
	require.NoError(t, err)

	sessions := service.NewSessionManager(repository.NewMemoryFactory(), nil, m)
	return SetupGoalRoutes(handlers.NewGoalHandler(sessions, nil, nil), secret, registry), sessions
}

func request(t *testing.T, mux http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		token, err := middlewares.IssueToken(secret, user, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_SessionsFollowToken(t *testing.T) {
	mux, sessions := newMux(t)

	rec := request(t, mux, http.MethodPost, "/api/goals", `{"title":"Ship v1"}`, "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = request(t, mux, http.MethodPost, "/api/goals", `{"title":"Read more"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	alice, err := sessions.Session(context.Background(), "alice")
	require.NoError(t, err)
	anon, err := sessions.Session(context.Background(), service.AnonymousPrincipal)
	require.NoError(t, err)
	require.Len(t, alice.Snapshot().Goals, 1)
	assert.Equal(t, "Ship v1", alice.Snapshot().Goals[0].Title)
	require.Len(t, anon.Snapshot().Goals, 1)
	assert.Equal(t, "Read more", anon.Snapshot().Goals[0].Title)
}

func TestRoutes_RejectsBadToken(t *testing.T) {
	mux, _ := newMux(t)
	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutes_MethodAndPathMatching(t *testing.T) {
	mux, _ := newMux(t)

	assert.Equal(t, http.StatusMethodNotAllowed, request(t, mux, http.MethodPatch, "/api/goals", "", "").Code)
	assert.Equal(t, http.StatusNotFound, request(t, mux, http.MethodGet, "/api/unknown", "", "").Code)
	assert.Equal(t, http.StatusOK, request(t, mux, http.MethodGet, "/api/analytics/tiers", "", "").Code)
}

func TestRoutes_Metrics(t *testing.T) {
	mux, _ := newMux(t)
	require.Equal(t, http.StatusCreated, request(t, mux, http.MethodPost, "/api/goals", `{"title":"Ship v1"}`, "alice").Code)

	rec := request(t, mux, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "goally_mutations_total")
	assert.Contains(t, body, "goally_sessions")
}
