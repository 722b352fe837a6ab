package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/backend"
)

// UserHandler proxies read access to the user service.
type UserHandler struct {
	proxy
}

func NewUserHandler(users Forwarder, logger *zap.Logger) *UserHandler {
	return &UserHandler{proxy: newProxy(users, nil, logger)}
}

// RegisterRoutes mounts under /api/users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/by-email", h.ByEmail)
	r.Get("/{id}", h.Get)
}

// List handles GET /api/users?page&limit, defaulting to page 1 of 20.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}
	limit := r.URL.Query().Get("limit")
	if limit == "" {
		limit = "20"
	}
	q := url.Values{}
	q.Set("page", page)
	q.Set("limit", limit)

	h.forward(w, r, backend.Request{
		Method:   http.MethodGet,
		Path:     "/admin/users",
		RawQuery: q.Encode(),
	})
}

func (h *UserHandler) ByEmail(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	h.forward(w, r, backend.Request{Method: http.MethodPost, Path: "/admin/users/by-email", Body: body})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{
		Method: http.MethodGet,
		Path:   backend.Path("/admin/users", chi.URLParam(r, "id")),
	})
}
