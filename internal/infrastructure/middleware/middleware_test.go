// internal/infrastructure/middleware/middleware_test.go
package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	echo := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetRequestID(r.Context())))
	}))

	t.Run("Generates an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		echo.ServeHTTP(w, httptest.NewRequest("GET", "/conversion", nil))

		requestID := w.Header().Get(RequestIDHeader)
		assert.Len(t, requestID, 36)
		assert.Equal(t, requestID, w.Body.String())
	})

	t.Run("Keeps the caller's id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/conversion", nil)
		req.Header.Set(RequestIDHeader, "test-id-123")
		w := httptest.NewRecorder()

		echo.ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "test-id-123", w.Body.String())
	})
}

func TestGetRequestID(t *testing.T) {
	assert.Equal(t, "test-id-123", GetRequestID(WithRequestID(context.Background(), "test-id-123")))
	assert.Equal(t, "unknown", GetRequestID(context.Background()))
}

// accessLog runs one request through the chain and returns the "Response sent" entry
func accessLog(t *testing.T, status int) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	log := logger.NewJSONLogger(&buf, logger.InfoLevel)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte("body"))
	})
	chain := RequestIDMiddleware(LoggingMiddleware(log)(final))

	req := httptest.NewRequest("PUT", "/conversion/amount?x=1", nil)
	req.Header.Set(RequestIDHeader, "test-id-123")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if line["message"] == "Response sent" {
			entry = line
		}
	}
	require.NotNil(t, entry, "access log entry missing")
	return entry
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectedLevel string
	}{
		{"Success", http.StatusOK, "INFO"},
		{"Client error", http.StatusUnprocessableEntity, "WARN"},
		{"Server error", http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := accessLog(t, tt.status)

			assert.Equal(t, tt.expectedLevel, entry["level"])
			assert.Equal(t, "test-id-123", entry["request_id"])
			assert.Equal(t, "PUT", entry["method"])
			assert.Equal(t, "/conversion/amount", entry["path"])
			assert.Equal(t, "x=1", entry["query"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, float64(4), entry["content_length"])
		})
	}
}

func TestLoggingMiddlewareSupportsHijack(t *testing.T) {
	var hijackable bool
	handler := LoggingMiddleware(logger.NewNopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hijackable = w.(http.Hijacker)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/conversion/stream", nil))
	assert.True(t, hijackable)

	// httptest.ResponseRecorder cannot be hijacked
	wrapper := newResponseWrapper(httptest.NewRecorder())
	_, _, err := wrapper.Hijack()
	assert.Error(t, err)
}
