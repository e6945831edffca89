package auth

import (
	"crypto/sha256"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/securecookie"

	"gitea.jw6.us/james/shalendar/internal/config"
)

const sessionTTL = 24 * time.Hour

// SessionManager issues and reads the signed, encrypted session cookie.
type SessionManager struct {
	cookieName string
	codec      *securecookie.SecureCookie
	secure     bool
	now        func() time.Time
}

func NewSessionManager(cfg *config.Config) *SessionManager {
	hash := sha256.Sum256([]byte(cfg.Session.Secret))
	hashKey := hash[:]

	// Derive an AES-256 sized block key to avoid invalid key length errors.
	blockKey := hash[:]
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})

	secure := cfg.Session.Secure
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme == "https" {
		secure = true
	}

	return &SessionManager{
		cookieName: "shalendar_session",
		codec:      sc,
		secure:     secure,
		now:        time.Now,
	}
}

type sessionValue struct {
	UserID  int64 `json:"user_id"`
	Expires int64 `json:"exp"`
}

// Issue sets a session cookie for userID.
func (m *SessionManager) Issue(w http.ResponseWriter, userID int64) error {
	expires := m.now().Add(sessionTTL)
	encoded, err := m.codec.Encode(m.cookieName, sessionValue{UserID: userID, Expires: expires.Unix()})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}

// CurrentUserID extracts the user ID from the request session if present.
func (m *SessionManager) CurrentUserID(r *http.Request) (int64, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return 0, false
	}

	var value sessionValue
	if err := m.codec.Decode(m.cookieName, c.Value, &value); err != nil {
		return 0, false
	}
	if value.UserID <= 0 || time.Unix(value.Expires, 0).Before(m.now()) {
		return 0, false
	}
	return value.UserID, true
}
