package cloudcode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tokligence/relaymux/internal/relayerr"
)

func TestClientCallReturnsBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer header, got %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("data: {}\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	body, err := c.Call(context.Background(), "tok", Request{Model: "gemini-2.5-pro"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	body.Close()
}

func TestClientCallClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "20")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	_, err := c.Call(context.Background(), "tok", Request{})
	relErr, ok := relayerr.As(err)
	if !ok || relErr.Kind != relayerr.RateLimited || relErr.RetryAfter != 20*time.Second {
		t.Fatalf("expected RateLimited with 20s retry-after, got %v", err)
	}
}

func TestClientCallClassifiesUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"forbidden"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	_, err := c.Call(context.Background(), "tok", Request{})
	relErr, ok := relayerr.As(err)
	if !ok || relErr.Kind != relayerr.Unauthorized {
		t.Fatalf("expected Unauthorized relayerr, got %v", err)
	}
}
