package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/session"
)

const sessionCookieName = "fieldreport_session"

// SessionManager binds editing sessions to HTTP clients with a signed
// cookie. Clients without cookies may send the session ID as a bearer token.
type SessionManager struct {
	secret   []byte
	sessions *session.Manager
}

// NewSessionManager creates a new session manager
func NewSessionManager(secret string, sessions *session.Manager) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "fieldreport-dev-secret-change-in-production"
	}
	return &SessionManager{
		secret:   []byte(secret),
		sessions: sessions,
	}
}

// CreateSession starts a new editing session
func (sm *SessionManager) CreateSession() (*session.Session, error) {
	return sm.sessions.Create()
}

// GetSession retrieves a live session by ID
func (sm *SessionManager) GetSession(sessionID string) *session.Session {
	return sm.sessions.Get(sessionID)
}

// DeleteSession discards a session and its unsaved state
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.sessions.Delete(sessionID)
}

// Stop ends the expiry sweep of the underlying manager
func (sm *SessionManager) Stop() {
	sm.sessions.Stop()
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, s *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID + "." + sm.signData(s.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(constants.SessionDuration.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from a request
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *session.Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		sessionID, signature, ok := strings.Cut(cookie.Value, ".")
		if ok && sm.verifySignature(sessionID, signature) {
			if s := sm.GetSession(sessionID); s != nil {
				return s
			}
		}
	}

	authHeader := r.Header.Get("Authorization")
	if sessionID, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		if s := sm.GetSession(sessionID); s != nil {
			return s
		}
	}
	return nil
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SessionData is the JSON view of a session handed to clients
type SessionData struct {
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

// NewSessionData returns the client view of s
func NewSessionData(s *session.Session) SessionData {
	return SessionData{
		SessionID: s.ID,
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
}
