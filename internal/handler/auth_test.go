package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/centsibleapp/centsible/internal/database"
	"github.com/centsibleapp/centsible/internal/middleware"
	"github.com/centsibleapp/centsible/internal/store"
	"github.com/centsibleapp/centsible/internal/token"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newAuthHandler(t *testing.T, db *sql.DB) (*AuthHandler, *token.Service) {
	t.Helper()
	tokens := token.NewService("test-secret-key-that-is-long-enough")
	return NewAuthHandler(
		tokens,
		store.NewCustomerStore(db),
		store.NewUsedTokenStore(db),
		nil,
		"http://localhost:8080", "/app",
		testLogger(),
	), tokens
}

func requestMagicLink(t *testing.T, h *AuthHandler, email string) magicLinkResponse {
	t.Helper()
	body := strings.NewReader(`{"email": "` + email + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", body)
	rec := httptest.NewRecorder()
	h.RequestMagicLink(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("request magic link: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp magicLinkResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestRequestMagicLink(t *testing.T) {
	h, _ := newAuthHandler(t, setupTestDB(t))

	resp := requestMagicLink(t, h, "Alice@Example.com")
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", resp.Email)
	}
	if resp.ExpiresIn != 15*60 {
		t.Errorf("expiresIn = %d, want 900", resp.ExpiresIn)
	}
	if !strings.HasPrefix(resp.MagicLink, "http://localhost:8080/auth/magic-link?token=") {
		t.Errorf("magicLink = %q", resp.MagicLink)
	}
}

func TestRequestMagicLinkBadInput(t *testing.T) {
	h, _ := newAuthHandler(t, setupTestDB(t))

	cases := []string{
		`{"email": ""}`,
		`{"email": "not-an-email"}`,
		`{broken`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.RequestMagicLink(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status %d, want 400", body, rec.Code)
		}
	}
}

func verifyToken(h *AuthHandler, rawToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/magic-link?token="+url.QueryEscape(rawToken), nil)
	rec := httptest.NewRecorder()
	h.VerifyMagicLink(rec, req)
	return rec
}

func TestVerifyMagicLinkFlow(t *testing.T) {
	db := setupTestDB(t)
	h, _ := newAuthHandler(t, db)

	resp := requestMagicLink(t, h, "alice@example.com")
	linkURL, err := url.Parse(resp.MagicLink)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	rawToken := linkURL.Query().Get("token")
	if rawToken == "" {
		t.Fatal("link has no token")
	}

	rec := verifyToken(h, rawToken)
	if rec.Code != http.StatusFound {
		t.Fatalf("verify: status %d, body %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/app" {
		t.Errorf("redirect to %q, want /app", loc)
	}

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("no session cookie set")
	}
	if !session.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if session.SameSite != http.SameSiteLaxMode {
		t.Errorf("sameSite = %v, want Lax", session.SameSite)
	}
	if session.MaxAge != int(token.SessionTTL.Seconds()) {
		t.Errorf("maxAge = %d, want %d", session.MaxAge, int(token.SessionTTL.Seconds()))
	}

	// First login creates a stub customer row.
	customer, err := store.NewCustomerStore(db).GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if customer == nil {
		t.Error("expected a customer row after first login")
	}
}

func TestVerifyMagicLinkSingleUse(t *testing.T) {
	h, _ := newAuthHandler(t, setupTestDB(t))

	resp := requestMagicLink(t, h, "alice@example.com")
	linkURL, _ := url.Parse(resp.MagicLink)
	rawToken := linkURL.Query().Get("token")

	if rec := verifyToken(h, rawToken); rec.Code != http.StatusFound {
		t.Fatalf("first verify: status %d", rec.Code)
	}

	rec := verifyToken(h, rawToken)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay: status %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid or expired token") {
		t.Errorf("replay body = %s", rec.Body.String())
	}
}

func TestVerifyMagicLinkRejectsSessionToken(t *testing.T) {
	h, tokens := newAuthHandler(t, setupTestDB(t))

	sessionToken, err := tokens.IssueSession("alice@example.com")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	rec := verifyToken(h, sessionToken)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid token type") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestVerifyMagicLinkBadToken(t *testing.T) {
	h, _ := newAuthHandler(t, setupTestDB(t))

	for _, raw := range []string{"", "garbage"} {
		rec := verifyToken(h, raw)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status %d, want 401", raw, rec.Code)
		}
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h, _ := newAuthHandler(t, setupTestDB(t))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected the session cookie to be expired")
	}
}
