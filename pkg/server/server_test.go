package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	srv, err := New(Options{
		BaseURL:        "http://localhost:8080",
		DisableWeather: true,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/surprise", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected weather endpoints to be disabled, got %d", w.Code)
	}
}

func TestNew_UnknownProduct(t *testing.T) {
	if _, err := New(Options{Product: "nope"}); err == nil {
		t.Error("expected an error for an undefined default product")
	}
}
