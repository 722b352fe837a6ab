package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/cache"
	"github.com/sort-storage/admin/internal/query"
)

// SlotHandler proxies slot queries and management. Slot range queries are
// POSTs upstream because they carry a JSON body.
type SlotHandler struct {
	proxy
}

func NewSlotHandler(storage Forwarder, inv Invalidator, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{proxy: newProxy(storage, inv, logger)}
}

// RegisterRoutes mounts under /api/storage/slots.
func (h *SlotHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.All)
	r.Post("/available", h.Available)
	r.Post("/create", h.Create)
	r.Post("/batch", h.CreateBatch)
	r.Route("/{id}", func(r chi.Router) {
		r.Patch("/", h.Update)
		r.Delete("/", h.Delete)
	})
}

func (h *SlotHandler) All(w http.ResponseWriter, r *http.Request) {
	h.relayBody(w, r, "/admin/slots/all")
}

func (h *SlotHandler) Available(w http.ResponseWriter, r *http.Request) {
	h.relayBody(w, r, "/admin/slots/available")
}

func (h *SlotHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.relayBody(w, r, "/admin/slots", query.SlotsCreated()...)
}

func (h *SlotHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	h.relayBody(w, r, "/admin/slots/batch", query.SlotsCreated()...)
}

func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	h.forward(w, r, backend.Request{
		Method: http.MethodPatch,
		Path:   backend.Path("/admin/slots", id),
		Body:   body,
	}, query.SlotChanged(id)...)
}

// Delete answers 200 with an empty body when the upstream answers 200 or
// 204; any other answer is relayed.
func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp := h.call(w, r, backend.Request{
		Method: http.MethodDelete,
		Path:   backend.Path("/admin/slots", id),
	})
	if resp == nil {
		return
	}
	if resp.Status == http.StatusOK || resp.Status == http.StatusNoContent {
		h.invalidate(r.Context(), query.SlotChanged(id))
		w.WriteHeader(http.StatusOK)
		return
	}
	relay(w, resp)
}

func (h *SlotHandler) relayBody(w http.ResponseWriter, r *http.Request, path string, invalidate ...cache.Key) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	h.forward(w, r, backend.Request{Method: http.MethodPost, Path: path, Body: body}, invalidate...)
}
