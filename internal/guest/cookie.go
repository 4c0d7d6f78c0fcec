// Package guest manages the client-side convenience cookie that remembers
// whether a visitor already shared their email. It is deliberately readable
// by frontend scripts and carries no security weight: server code must never
// treat it as proof of identity.
package guest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

const (
	// CookieName is the browser cookie key.
	CookieName = "centsible_guest"
	// Version lets the frontend invalidate stale payload shapes.
	Version = 1

	maxAge = 365 * 24 * 60 * 60 // 1 year
)

// State is the URL-encoded JSON payload stored in the cookie.
type State struct {
	Allowed  bool      `json:"allowed"`
	Email    string    `json:"email"`
	FirstSet time.Time `json:"firstSet"`
	Version  int       `json:"version"`
}

// Set writes the guest cookie for the given email. Errors are impossible for
// this payload shape, so marshaling failures are ignored.
func Set(w http.ResponseWriter, r *http.Request, email string) {
	st := State{
		Allowed:  true,
		Email:    email,
		FirstSet: time.Now().UTC(),
		Version:  Version,
	}
	b, err := json.Marshal(st)
	if err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    url.QueryEscape(string(b)),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false, // the frontend reads this to skip the email form
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

// Read decodes the guest cookie, if present and well-formed.
func Read(r *http.Request) (*State, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil, false
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, false
	}
	if st.Version != Version {
		return nil, false
	}
	return &st, true
}

// Clear expires the guest cookie.
func Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
