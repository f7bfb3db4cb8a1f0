package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fmartins/orderhub/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_GetUser(t *testing.T) {
	t.Run("returns the user record", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/users/7" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 7, "name": "Ada", "email": "ada@example.com"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())
		user, err := client.GetUser(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != 7 || user.Name != "Ada" {
			t.Errorf("unexpected user: %+v", user)
		}
	})

	t.Run("404 maps to UserNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, server.Client(), testLogger())
		_, err := client.GetUser(context.Background(), 42)

		var notFound *domain.UserNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected UserNotFoundError, got %v", err)
		}
		if notFound.UserID != 42 {
			t.Errorf("expected user id 42, got %d", notFound.UserID)
		}
	})

	t.Run("transport failure is not UserNotFound", func(t *testing.T) {
		client := NewClient("http://localhost:1", &http.Client{}, testLogger())

		err := client.EnsureExists(context.Background(), 7)
		if err == nil {
			t.Fatal("expected error")
		}

		var notFound *domain.UserNotFoundError
		if errors.As(err, &notFound) {
			t.Fatal("transport failure must not map to UserNotFound")
		}
	})
}
