package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	orgSessionName = "meetslots_org"

	// DefaultSessionTTL is how long an organization session stays valid.
	DefaultSessionTTL = 8 * time.Hour
)

// SessionManager issues signed, optionally encrypted cookies marking an
// authenticated organization session.
type SessionManager struct {
	sc     *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
}

// NewSessionManager creates a SessionManager. When hashKey is empty a random
// key is generated, which invalidates sessions on restart.
func NewSessionManager(hashKey, blockKey []byte, ttl time.Duration, secure bool) (*SessionManager, error) {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, fmt.Errorf("failed to generate session keys")
		}
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(ttl.Seconds()))
	return &SessionManager{sc: sc, ttl: ttl, secure: secure}, nil
}

// Issue sets the organization session cookie.
func (s *SessionManager) Issue(w http.ResponseWriter) error {
	value := map[string]string{"role": "org"}
	encoded, err := s.sc.Encode(orgSessionName, value)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     orgSessionName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the organization session cookie.
func (s *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     orgSessionName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Valid reports whether r carries an unexpired organization session.
func (s *SessionManager) Valid(r *http.Request) bool {
	c, err := r.Cookie(orgSessionName)
	if err != nil {
		return false
	}
	value := map[string]string{}
	if err := s.sc.Decode(orgSessionName, c.Value, &value); err != nil {
		return false
	}
	return value["role"] == "org"
}

// RequireOrg rejects requests without an organization session with 401.
func (s *SessionManager) RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Valid(r) {
			writeJSONError(w, http.StatusUnauthorized, "organization login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
