package main

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const sessionCookieName = "stackcost_session"

// authService guards the cost module with one shared password. The password
// is hashed once at startup; sessions are HMAC signed expiry timestamps.
type authService struct {
	passwordHash  []byte
	sessionSecret []byte
	ttl           time.Duration
	now           func() time.Time
}

func newAuthService(password, sessionSecret string, ttl time.Duration) (*authService, error) {
	a := &authService{ttl: ttl, now: time.Now}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash cost password: %w", err)
		}
		a.passwordHash = hash
	}

	if sessionSecret != "" {
		a.sessionSecret = []byte(sessionSecret)
	} else {
		a.sessionSecret = make([]byte, 32)
		if _, err := rand.Read(a.sessionSecret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}

	return a, nil
}

// enabled reports whether a password was configured at all.
func (a *authService) enabled() bool {
	return len(a.passwordHash) > 0
}

func (a *authService) validatePassword(password string) bool {
	if !a.enabled() {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

func (a *authService) sign(payload string) string {
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *authService) createSessionValue() string {
	expires := a.now().Add(a.ttl).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(expires, 10)))
	return payload + "." + a.sign(payload)
}

func (a *authService) verifySessionValue(value string) bool {
	payload, signature, ok := strings.Cut(value, ".")
	if !ok {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	expected, _ := hex.DecodeString(a.sign(payload))
	if !hmac.Equal(provided, expected) {
		return false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return false
	}
	expires, err := strconv.ParseInt(string(decoded), 10, 64)
	if err != nil {
		return false
	}

	return a.now().Unix() < expires
}

func (a *authService) isAuthenticated(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return false
	}
	return a.verifySessionValue(cookie.Value)
}

func (a *authService) setSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(),
		Path:     "/",
		MaxAge:   int(a.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireAuth redirects browsers without a session to the login page.
func (a *authService) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.isAuthenticated(r) {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuthAPI answers 401 instead of redirecting.
func (a *authService) requireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.isAuthenticated(r) {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
