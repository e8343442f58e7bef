// Package auth guards the dashboard's team endpoints with an access key.
// The key travels in the share link once and is exchanged for a session
// cookie.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	CookieName    = "hackportal_session"
	KeyParam      = "key"
	SessionExpiry = 12 * time.Hour
)

// keyWords are joined into a readable access key
var keyWords = []string{
	"commit", "merge", "deploy", "stage", "sprint",
	"branch", "rebase", "pixel", "lambda", "kernel",
	"socket", "cache", "query", "vector", "tensor",
	"router", "buffer", "pointer", "cursor",
}

// Auth holds the dashboard access key and the sessions it granted
type Auth struct {
	key      string
	sessions map[string]time.Time
	mu       sync.RWMutex
	now      func() time.Time
}

// New creates an Auth that accepts key
func New(key string) *Auth {
	return &Auth{
		key:      key,
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

// GenerateKey creates a random 3-word access key
func GenerateKey() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = keyWords[randomInt(len(keyWords))]
	}
	return strings.Join(words, "-")
}

// Key returns the access key, for building share links
func (a *Auth) Key() string {
	return a.key
}

// Login checks the key and returns a session token if it matches
func (a *Auth) Login(key string) (string, bool) {
	if key == "" || key != a.key {
		return "", false
	}

	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = a.now().Add(SessionExpiry)
	a.mu.Unlock()

	return token, true
}

// ValidateSession checks if a session token is valid
func (a *Auth) ValidateSession(token string) bool {
	a.mu.RLock()
	expiry, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return false
	}

	if a.now().After(expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return false
	}

	return true
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.ValidateSession(cookie.Value)
}

// AcceptKey exchanges a ?key= query parameter for a session cookie and
// redirects to the same URL without it. Requests without the parameter
// pass through.
func (a *Auth) AcceptKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		key := q.Get(KeyParam)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if token, ok := a.Login(key); ok {
			SetSessionCookie(w, token)
		}
		q.Del(KeyParam)
		target := *r.URL
		target.RawQuery = q.Encode()
		http.Redirect(w, r, target.RequestURI(), http.StatusFound)
	})
}

// RequireAuthAPI middleware for API endpoints (returns 401)
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.GetSessionFromRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - open the dashboard link that includes the access key"}`))
	})
}

// Allowed reports whether r carries a valid session
func (a *Auth) Allowed(r *http.Request) bool {
	return a.GetSessionFromRequest(r)
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// randomInt returns a random int in [0, max)
func randomInt(max int) int {
	bytes := make([]byte, 1)
	rand.Read(bytes)
	return int(bytes[0]) % max
}
