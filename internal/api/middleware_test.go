package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name  string
		panic any
	}{
		{"error", http.ErrAbortHandler},
		{"string", "something went wrong"},
		{"int", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.panic)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("expected status 500, got %d", w.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if resp.Code != ErrCodeServerError {
				t.Errorf("expected code %q, got %q", ErrCodeServerError, resp.Code)
			}
		})
	}
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", w.Code)
	}
}

func TestRecovery_LogsAndEchoesRequestID(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	handler := middleware.RequestID(Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/timeseries", nil))

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.RequestID == "" {
		t.Error("expected the request ID in the error body")
	}
	if !strings.Contains(logs.String(), "kaboom") || !strings.Contains(logs.String(), resp.RequestID) {
		t.Errorf("expected panic and request ID in logs, got %s", logs.String())
	}
}

func TestContentTypeJSON(t *testing.T) {
	handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chart" {
			w.Header().Set("Content-Type", "text/html")
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chart", nil))
	if ct := w.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("expected handler override, got %q", ct)
	}
}

func TestMaxBodySize(t *testing.T) {
	handler := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	if w.Code != http.StatusOK {
		t.Errorf("expected small body to pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"latitude": 40}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected large body to be rejected, got %d", w.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))

			handler := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("body"))
			})))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/granules?lat=40&lon=-100", nil))

			var entry map[string]any
			if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log line %q: %v", logs.String(), err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("expected level %s, got %v", tt.wantLevel, entry["level"])
			}
			if entry["path"] != "/granules" || entry["query"] != "lat=40&lon=-100" {
				t.Errorf("unexpected path/query: %v %v", entry["path"], entry["query"])
			}
			if entry["status"] != float64(tt.status) || entry["bytes"] != float64(4) {
				t.Errorf("unexpected status/bytes: %v %v", entry["status"], entry["bytes"])
			}
			if id, _ := entry["request_id"].(string); id == "" {
				t.Error("expected a request ID in the log entry")
			}
			if _, ok := entry["duration"]; !ok {
				t.Error("expected a duration in the log entry")
			}
		})
	}
}

func TestRequestIDResponse(t *testing.T) {
	handler := middleware.RequestID(RequestIDResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "client-supplied-id")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("expected the incoming request ID to be echoed, got %q", got)
	}
}

func TestGetRequestID(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx := context.WithValue(context.Background(), requestIDKey{}, "own-id")
	if got := GetRequestID(ctx); got != "own-id" {
		t.Errorf("expected fallback request ID, got %q", got)
	}

	ctx = context.WithValue(ctx, middleware.RequestIDKey, "chi-id")
	if got := GetRequestID(ctx); got != "chi-id" {
		t.Errorf("expected chi request ID to win, got %q", got)
	}
}
