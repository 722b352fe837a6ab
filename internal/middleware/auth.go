package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/sort-storage/admin/internal/auth"
)

type contextKey string

const sessionKey contextKey = "session"

// TokenValidator is satisfied by *auth.Validator.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Authenticate guards API routes: the token comes from the Authorization
// header or the session cookie, and any failure answers 401 JSON.
func Authenticate(v TokenValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := resolveSession(r, v, cookieName)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireSession guards page routes. Unauthenticated browsers are sent to the
// login URL with the original location as return_to.
func RequireSession(v TokenValidator, cookieName, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := resolveSession(r, v, cookieName)
			if !ok {
				target := loginURL + "?return_to=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func RequireAccountType(types ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
				return
			}

			if !hasAccountType(session, types) {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePageAccountType is RequireAccountType for page routes: sessions of
// another account type are handed to denied, which renders the page.
func RequirePageAccountType(denied http.Handler, types ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil || !hasAccountType(session, types) {
				denied.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasAccountType(session *auth.Session, types []string) bool {
	if session.Claims == nil {
		return false
	}
	for _, t := range types {
		if session.Claims.AccountType == t {
			return true
		}
	}
	return false
}

func resolveSession(r *http.Request, v TokenValidator, cookieName string) (*auth.Session, bool) {
	token := auth.TokenFromRequest(r, cookieName)
	if token == "" {
		return nil, false
	}
	claims, err := v.Validate(token)
	if err != nil {
		return nil, false
	}
	return &auth.Session{Token: token, Claims: claims}, true
}

func WithSession(ctx context.Context, s *auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey).(*auth.Session)
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
