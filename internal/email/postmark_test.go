package email

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	hc := srv.Client()
	hc.Transport = rewriteTransport{base: hc.Transport, target: srv.URL}
	return NewClient("test-token", "plants@verdant.app", WithHTTPClient(hc))
}

// rewriteTransport redirects requests at the Postmark API to the test server.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}

func TestSendLoginCode(t *testing.T) {
	var gotToken atomic.Value
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.Header.Get("X-Postmark-Server-Token"))
		w.WriteHeader(http.StatusOK)
	})

	if err := c.SendLoginCode(context.Background(), "ada@example.com", "123456", "login"); err != nil {
		t.Fatalf("SendLoginCode: %v", err)
	}
	if gotToken.Load() != "test-token" {
		t.Errorf("server token header = %v, want test-token", gotToken.Load())
	}
}

func TestSendRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.SendLoginCode(context.Background(), "ada@example.com", "123456", "login"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSendPermanentFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	if err := c.SendLoginCode(context.Background(), "bad@", "123456", "login"); err == nil {
		t.Fatal("expected error for 4xx response")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestUnconfiguredClient(t *testing.T) {
	c := NewClient("", "plants@verdant.app")
	if c.Configured() {
		t.Error("client without token should report unconfigured")
	}
	if err := c.SendLoginCode(context.Background(), "ada@example.com", "123456", "login"); err == nil {
		t.Error("expected error from unconfigured client")
	}
}
