package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/centsibleapp/centsible/internal/auth"
	"github.com/centsibleapp/centsible/internal/store"
	"github.com/centsibleapp/centsible/internal/token"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "passwordless-session"

// AdminChecker reports whether a normalized email may use admin routes.
type AdminChecker func(email string) bool

// RequireSession validates the session cookie and places the visitor's
// identity in the request context. Verification failures all surface as a
// generic 401.
func RequireSession(tokens *token.Service, isAdmin AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			claims, err := tokens.Verify(cookie.Value)
			if err != nil || claims.Type != token.TypeSession {
				unauthorized(w)
				return
			}

			email := store.NormalizeEmail(claims.Email)
			sess := auth.Session{
				Email: email,
				Admin: isAdmin(email),
			}

			ctx := auth.WithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects authenticated visitors who are not admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
