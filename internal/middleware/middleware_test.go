package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"land-review/internal/auth"
	"land-review/internal/config"
	"land-review/internal/logger"
	"land-review/internal/testutil"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logger.New(&buf, logger.Config{Level: level}))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func newAuth() *AuthMiddleware {
	return NewAuthMiddleware(auth.NewService(&config.AuthConfig{JWTSecret: testutil.TestJWTSecret}))
}

func TestAuthenticate(t *testing.T) {
	var seen string
	handler := newAuth().Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r)
		if !ok {
			t.Fatal("Expected actor in context")
		}
		seen = actor.ID
	}))

	req := testutil.NewAuthHelper().CreateAuthenticatedRequest(t, http.MethodGet, "/api/v1/assignments/1", testutil.SalesRev)
	rr := testutil.NewTestResponse()
	handler.ServeHTTP(rr, req)

	rr.AssertStatus(t, http.StatusOK)
	if seen != testutil.SalesRev.ID {
		t.Errorf("Expected actor %s, got %q", testutil.SalesRev.ID, seen)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	handler := newAuth().Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler must not run")
	}))

	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/assignments/1", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := testutil.NewTestResponse()
		handler.ServeHTTP(rr, req)
		rr.AssertStatus(t, http.StatusUnauthorized)

		var body map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
			t.Errorf("Expected JSON error body, got %q", rr.Body.String())
		}
	}
}

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r) == "" {
			t.Error("Expected request id in context")
		}
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if _, err := uuid.Parse(rr.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("Expected generated uuid, got %q", rr.Header().Get(RequestIDHeader))
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, incoming)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) != incoming {
		t.Error("Well-formed incoming request id should be kept")
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) == "<script>" {
		t.Error("Malformed request id should be replaced")
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusConflict, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		buf := captureLogs(t, "info")
		handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}), RequestID, LoggingMiddleware)

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/assignments/1/approve", nil))

		var entry map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
			t.Fatalf("Expected a single JSON log line, got %q", buf.String())
		}
		if entry["level"] != tt.level || entry["status"] != float64(tt.status) {
			t.Errorf("Status %d logged as %v", tt.status, entry)
		}
		if entry["request_id"] == "" {
			t.Error("Expected request id in log")
		}
	}
}

func TestLoggingRecordsActor(t *testing.T) {
	buf := captureLogs(t, "info")
	handler := Chain(
		newAuth().Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})),
		RequestID, LoggingMiddleware,
	)

	req := testutil.NewAuthHelper().CreateAuthenticatedRequest(t, http.MethodGet, "/api/v1/assignments/1", testutil.Admin)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"actor_id":"`+testutil.Admin.ID+`"`) {
		t.Errorf("Expected actor id in log, got %q", buf.String())
	}
}

func TestLoggingDebugKeepsBody(t *testing.T) {
	buf := captureLogs(t, "debug")
	var got string
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := new(bytes.Buffer)
		_, _ = b.ReadFrom(r.Body)
		got = b.String()
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments/1/reject", strings.NewReader(`{"justification":"gaps"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != `{"justification":"gaps"}` {
		t.Errorf("Handler should still see the body, got %q", got)
	}
	if !strings.Contains(buf.String(), "request_body") {
		t.Error("Expected request body at DEBUG")
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/assignments/1", nil))
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Missing API headers: %v", rr.Header())
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if rr.Header().Get("Content-Security-Policy") != swaggerCSP {
		t.Error("Swagger UI needs its own policy")
	}
}
