package auth

import (
	"net/http"
	"time"
)

// Cookie names for the two bearer tokens.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieConfig holds cookie transport settings.
type CookieConfig struct {
	Secure bool // HTTPS only; enabled in production
}

// SetTokenCookie sets a token in an httpOnly, SameSite=Lax cookie scoped to
// the whole path.
func SetTokenCookie(w http.ResponseWriter, name, value string, maxAge time.Duration, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// ClearTokenCookie clears a token cookie.
func ClearTokenCookie(w http.ResponseWriter, name string, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}

// GetTokenCookie retrieves a token from cookies, returning "" when absent.
func GetTokenCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
