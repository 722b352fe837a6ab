package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/auth"
	"github.com/sort-storage/admin/internal/middleware"
)

// SessionHandler takes custody of tokens issued by the identity provider.
// It never sees credentials.
type SessionHandler struct {
	validator middleware.TokenValidator
	cookie    auth.CookieOptions
	logger    *zap.Logger
}

func NewSessionHandler(v middleware.TokenValidator, cookie auth.CookieOptions, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{validator: v, cookie: cookie, logger: logger}
}

// RegisterRoutes mounts under /auth.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.Create)
	r.Post("/logout", h.Logout)
}

type sessionRequest struct {
	AccessToken string `json:"access_token"`
}

// Create stores a validated token in the session cookie. JSON callers get
// 204; form posts from the login page are redirected to return_to.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	isForm := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")

	var req sessionRequest
	if isForm {
		req.AccessToken = strings.TrimSpace(r.PostFormValue("access_token"))
	} else if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	claims, err := h.validator.Validate(req.AccessToken)
	if err != nil {
		h.logger.Info("rejected session token", zap.Error(err))
		if isForm {
			http.Redirect(w, r, "/login?error="+"Invalid+access+token", http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	expires := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	auth.SetSessionCookie(w, h.cookie, req.AccessToken, expires)

	if isForm {
		http.Redirect(w, r, safeReturnTo(r.PostFormValue("return_to")), http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// safeReturnTo only allows local absolute paths.
func safeReturnTo(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/dashboard"
	}
	return target
}
