package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the admin session token
const SessionCookieName = "lulus_spp_admin_token"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
}

// NewCookieConfig returns the session cookie settings for the environment
func NewCookieConfig(production bool) CookieConfig {
	return CookieConfig{
		Secure:   production,
		SameSite: "lax",
	}
}

// SetSessionCookie stores the admin session token in an httpOnly cookie
func SetSessionCookie(w http.ResponseWriter, token string, lifetime time.Duration, config CookieConfig) {
	maxAge := int(lifetime / time.Second)
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(lifetime),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// ClearSessionCookie expires the admin session cookie
func ClearSessionCookie(w http.ResponseWriter, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// GetSessionCookie retrieves the session token from cookies
func GetSessionCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// HasSessionCookie reports whether a non-empty session cookie was sent.
// It does not verify the token.
func HasSessionCookie(r *http.Request) bool {
	token, err := GetSessionCookie(r)
	return err == nil && token != ""
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
