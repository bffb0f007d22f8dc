package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubVerifier(t *testing.T, subjects map[string]string) {
	t.Helper()
	original := verifyToken
	verifyToken = func(ctx context.Context, token string) (string, error) {
		if sub, ok := subjects[token]; ok {
			return sub, nil
		}
		return "", errors.New("bad token")
	}
	t.Cleanup(func() { verifyToken = original })
}

func TestClerkAuthMiddleware(t *testing.T) {
	stubVerifier(t, map[string]string{"owner-token": "user_owner", "other-token": "user_other"})

	var seen string
	handler := ClerkAuthMiddleware("user_owner")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClerkID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Token owner-token", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"other user", "Bearer other-token", http.StatusForbidden},
		{"owner", "Bearer owner-token", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/today", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
		})
	}
	assert.Equal(t, "user_owner", seen)
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.2, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.getLimiter("10.0.0.1")
	require.Len(t, rl.visitors, 1)

	rl.evictIdle(time.Now().Add(time.Minute))
	assert.Len(t, rl.visitors, 1)

	rl.evictIdle(time.Now().Add(visitorTTL + time.Second))
	assert.Empty(t, rl.visitors)
}

func TestBasicAuthMiddleware(t *testing.T) {
	handler := BasicAuthMiddleware("prom", "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.SetBasicAuth("prom", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.SetBasicAuth("prom", "secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMonitorMiddleware_LabelsByRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MonitorMiddleware)
	r.HandleFunc("/prayers/{prayer}/done", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prayers/{prayer}/done", routePath(r))
		w.WriteHeader(http.StatusConflict)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/prayers/fajr/done", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "unmatched", routePath(httptest.NewRequest(http.MethodGet, "/", nil)))
}
