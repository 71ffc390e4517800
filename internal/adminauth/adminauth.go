// Package adminauth authenticates the moderation console. There are no
// server-side sessions: a successful password check issues a signed,
// expiring token held only in an http-only cookie, and verification is
// recomputing the HMAC and checking the expiry. Logout clears the
// cookie; that is the only revocation mechanism, so a token captured
// before logout stays verifiable until it naturally expires.
package adminauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CookieName is the session cookie holding the signed token.
const CookieName = "admin_session"

// SessionTTL is how long an issued session stays valid.
const SessionTTL = 8 * time.Hour

// Authenticator verifies the admin password and issues/verifies the
// signed session token. It holds configuration only, never state.
type Authenticator struct {
	password      string
	secret        string
	secureCookies bool

	// now is swapped out in tests.
	now func() time.Time
}

// New creates an Authenticator. When sessionSecret is empty the admin
// password doubles as the signing secret. secureCookies should be true
// behind HTTPS.
func New(password, sessionSecret string, secureCookies bool) *Authenticator {
	if sessionSecret == "" {
		sessionSecret = password
	}
	return &Authenticator{
		password:      password,
		secret:        sessionSecret,
		secureCookies: secureCookies,
		now:           time.Now,
	}
}

// Configured reports whether both a password and a signing secret are
// present. Login must fail with a distinct misconfiguration error when
// this is false.
func (a *Authenticator) Configured() bool {
	return a.password != "" && a.secret != ""
}

// VerifyPassword compares the supplied password against the configured
// one in constant time. Always false when no password is configured.
func (a *Authenticator) VerifyPassword(input string) bool {
	if a.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(input), []byte(a.password)) == 1
}

// sign returns the hex HMAC-SHA256 of payload under the session secret.
func (a *Authenticator) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(a.secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// IssueToken creates a fresh "<exp>.<signature>" token expiring
// SessionTTL from now.
func (a *Authenticator) IssueToken() string {
	exp := strconv.FormatInt(a.now().Add(SessionTTL).Unix(), 10)
	return exp + "." + a.sign(exp)
}

// VerifyToken reports whether a token is structurally valid, correctly
// signed, and unexpired. Every failure mode looks the same to the
// caller so nothing leaks about which part of the token was wrong.
func (a *Authenticator) VerifyToken(token string) bool {
	if token == "" {
		return false
	}

	expRaw, signature, found := strings.Cut(token, ".")
	if !found || expRaw == "" || signature == "" {
		return false
	}

	expected := a.sign(expRaw)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return false
	}

	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil {
		return false
	}

	return exp > a.now().Unix()
}

// SetSessionCookie issues a token and writes it as the session cookie.
func (a *Authenticator) SetSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    a.IssueToken(),
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie overwrites the session cookie with an empty,
// immediately-expiring value.
func (a *Authenticator) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// IsRequestAuthenticated reports whether the request carries a valid
// session cookie.
func (a *Authenticator) IsRequestAuthenticated(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.VerifyToken(cookie.Value)
}
