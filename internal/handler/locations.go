package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/query"
)

// LocationHandler proxies storage location management.
type LocationHandler struct {
	proxy
}

func NewLocationHandler(storage Forwarder, inv Invalidator, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{proxy: newProxy(storage, inv, logger)}
}

// RegisterRoutes mounts under /api/storage/locations.
func (h *LocationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/available", h.Available)
	r.Post("/transfer", h.Transfer)
	r.Route("/{id}", func(r chi.Router) {
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/stats", h.Stats)
	})
}

func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{Method: http.MethodGet, Path: "/admin/locations"})
}

func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	h.forward(w, r, backend.Request{
		Method: http.MethodPost,
		Path:   "/admin/locations",
		Body:   body,
	}, query.LocationCreated()...)
}

// Available forwards the optional capacity filter.
func (h *LocationHandler) Available(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{
		Method:   http.MethodGet,
		Path:     "/admin/locations/available",
		RawQuery: r.URL.RawQuery,
	})
}

func (h *LocationHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	h.forward(w, r, backend.Request{
		Method: http.MethodPost,
		Path:   "/admin/locations/transfer",
		Body:   body,
	}, query.BoxesTransferred()...)
}

func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.forward(w, r, backend.Request{
		Method: http.MethodPatch,
		Path:   backend.Path("/admin/locations", id),
		Body:   body,
	}, query.LocationUpdated(id)...)
}

func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.forward(w, r, backend.Request{
		Method: http.MethodDelete,
		Path:   backend.Path("/admin/locations", id),
	}, query.LocationDeleted(id)...)
}

func (h *LocationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{
		Method: http.MethodGet,
		Path:   backend.Path("/admin/locations", chi.URLParam(r, "id"), "stats"),
	})
}
