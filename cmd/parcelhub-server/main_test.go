package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coregx/parcelhub"
)

func TestAllowOrigins(t *testing.T) {
	check := allowOrigins([]string{"https://app.example"})

	ok := httptest.NewRequest(http.MethodGet, "/ws", nil)
	ok.Header.Set("Origin", "https://app.example")
	assert.True(t, check(ok))

	bad := httptest.NewRequest(http.MethodGet, "/ws", nil)
	bad.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(bad))

	assert.False(t, check(httptest.NewRequest(http.MethodGet, "/ws", nil)))
}

func TestLoggingMiddleware(t *testing.T) {
	called := false
	h := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}), &parcelhub.NoopLogger{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
