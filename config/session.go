package config

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName - cookie holding the browser session.
const SessionName = "stackit-session"

// NewSessionStore returns the cookie store used for browser sessions and the
// Google OAuth state.
func NewSessionStore(cfg AuthConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
