package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"net/url"

	"github.com/centsibleapp/centsible/internal/email"
	"github.com/centsibleapp/centsible/internal/middleware"
	"github.com/centsibleapp/centsible/internal/store"
	"github.com/centsibleapp/centsible/internal/token"
)

// AuthHandler drives the magic-link flow: issue a short-lived link for an
// email, then exchange a valid link for a session cookie.
type AuthHandler struct {
	tokens        *token.Service
	customerStore *store.CustomerStore
	usedTokens    *store.UsedTokenStore
	emailClient   *email.Client
	baseURL       string
	landingPath   string
	logger        *slog.Logger
}

func NewAuthHandler(
	tokens *token.Service,
	cs *store.CustomerStore,
	uts *store.UsedTokenStore,
	ec *email.Client,
	baseURL, landingPath string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		tokens:        tokens,
		customerStore: cs,
		usedTokens:    uts,
		emailClient:   ec,
		baseURL:       baseURL,
		landingPath:   landingPath,
		logger:        logger,
	}
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

type magicLinkResponse struct {
	Success   bool   `json:"success"`
	MagicLink string `json:"magicLink"`
	Email     string `json:"email"`
	ExpiresIn int    `json:"expiresIn"`
}

// RequestMagicLink mints a magic-link token and returns the callback URL.
// The link is also emailed when Postmark is configured; returning it in the
// response is a deliberate dev/test shortcut.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	addr := store.NormalizeEmail(req.Email)
	if addr == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	t, err := h.tokens.IssueMagicLink(addr)
	if err != nil {
		h.logger.Error("issue magic link", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create magic link")
		return
	}

	link := h.baseURL + "/auth/magic-link?token=" + url.QueryEscape(t)

	if h.emailClient != nil && h.emailClient.Configured() {
		if err := h.emailClient.SendMagicLink(r.Context(), addr, link); err != nil {
			h.logger.Error("send magic link", "error", err, "email", addr)
		}
	} else {
		h.logger.Info("magic link generated", "email", addr, "link", link)
	}

	writeJSON(w, http.StatusOK, magicLinkResponse{
		Success:   true,
		MagicLink: link,
		Email:     addr,
		ExpiresIn: int(token.MagicLinkTTL.Seconds()),
	})
}

// VerifyMagicLink exchanges a valid, unused magic-link token for a session
// cookie and redirects to the landing page. Every failure collapses into a
// generic 401 so nothing leaks about which check rejected the token.
func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	claims, err := h.tokens.Verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	if claims.Type != token.TypeMagicLink {
		writeError(w, http.StatusUnauthorized, "Invalid token type")
		return
	}

	// Single use: first claim of the jti wins, replays get the generic 401.
	fresh, err := h.usedTokens.Claim(claims.JTI, claims.Email, claims.ExpiresAt)
	if err != nil {
		h.logger.Error("claim token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !fresh {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	addr := store.NormalizeEmail(claims.Email)
	if err := h.ensureCustomer(addr); err != nil {
		h.logger.Error("ensure customer", "error", err, "email", addr)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sessionToken, err := h.tokens.IssueSession(addr)
	if err != nil {
		h.logger.Error("issue session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(token.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	http.Redirect(w, r, h.landingPath, http.StatusFound)
}

// Logout clears the session cookie. Session tokens stay valid until expiry
// (stateless verification), so this only removes the browser's copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ensureCustomer creates a stub row for first-time logins so downstream
// features always have a customer to hang data on.
func (h *AuthHandler) ensureCustomer(addr string) error {
	existing, err := h.customerStore.GetByEmail(addr)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = h.customerStore.Create(store.NewCustomer{Email: addr})
	return err
}
