package auth

import (
	"net/http"
	"strings"
	"time"
)

// Session is a validated token together with its claims. The raw token is
// what gets forwarded upstream.
type Session struct {
	Token  string
	Claims *Claims
}

func (s *Session) Subject() string {
	if s == nil || s.Claims == nil {
		return ""
	}
	return s.Claims.Subject
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Claims != nil && s.Claims.AccountType == "admin"
}

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the named session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

type CookieOptions struct {
	Name   string
	Secure bool
}

// SetSessionCookie stores the token in an HttpOnly cookie that expires with it.
func SetSessionCookie(w http.ResponseWriter, opts CookieOptions, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
