package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// rewriteTransport redirects all requests to a test server URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}

func testClient(serverURL string) *Client {
	return NewClient("test-token", "noreply@example.com", WithHTTPClient(&http.Client{
		Transport: &rewriteTransport{base: http.DefaultTransport, target: serverURL},
	}))
}

func TestSendMagicLink(t *testing.T) {
	var received postmarkEmail
	var gotToken string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Postmark-Server-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.SendMagicLink(context.Background(), "alice@example.com", "http://localhost:8080/auth/magic-link?token=abc")
	if err != nil {
		t.Fatalf("send magic link: %v", err)
	}

	if gotToken != "test-token" {
		t.Errorf("server token = %q, want %q", gotToken, "test-token")
	}
	if received.To != "alice@example.com" {
		t.Errorf("To = %q", received.To)
	}
	if received.From != "noreply@example.com" {
		t.Errorf("From = %q", received.From)
	}
	if !strings.Contains(received.TextBody, "token=abc") {
		t.Errorf("TextBody missing link: %q", received.TextBody)
	}
	if !strings.Contains(received.HtmlBody, `href="http://localhost:8080/auth/magic-link?token=abc"`) {
		t.Errorf("HtmlBody missing link: %q", received.HtmlBody)
	}
}

func TestSendMagicLinkNotConfigured(t *testing.T) {
	client := NewClient("", "noreply@example.com")

	err := client.SendMagicLink(context.Background(), "alice@example.com", "http://example.com")
	if err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

func TestSendMagicLinkClientErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.SendMagicLink(context.Background(), "alice@example.com", "http://example.com")
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	if calls != 1 {
		t.Errorf("calls = %d; 4xx responses must not be retried", calls)
	}
}

func TestSendMagicLinkServerErrorRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"MessageID": "test-id"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.SendMagicLink(context.Background(), "alice@example.com", "http://example.com")
	if err != nil {
		t.Fatalf("send after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("token", "from@example.com").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("", "from@example.com").Configured() {
		t.Error("expected Configured() = false")
	}
}
