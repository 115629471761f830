package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testResolver(t *testing.T, handler http.HandlerFunc) Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPResolver(srv.URL, 2*time.Second)
}

func TestResolve(t *testing.T) {
	userId := uuid.New()
	resolver := testResolver(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me" {
			t.Errorf("path = %q, want /v1/me", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"user_id":"` + userId.String() + `"}`))
	})

	got, err := resolver.Resolve(context.Background(), "tok-123")
	if err != nil {
		t.Fatal(err)
	}
	if got != userId {
		t.Errorf("user id = %s, want %s", got, userId)
	}
}

func TestResolveRejectedToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		resolver := testResolver(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		_, err := resolver.Resolve(context.Background(), "tok-123")
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("status %d: got %v, want ErrUnauthenticated", status, err)
		}
	}
}

func TestResolveUpstreamFailure(t *testing.T) {
	resolver := testResolver(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := resolver.Resolve(context.Background(), "tok-123")
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		t.Errorf("upstream failure must not read as an auth rejection, got %v", err)
	}
}

func TestResolveNilUserId(t *testing.T) {
	resolver := testResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := resolver.Resolve(context.Background(), "tok-123")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("got %v, want ErrUnauthenticated", err)
	}
}
