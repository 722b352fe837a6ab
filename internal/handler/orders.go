package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/query"
)

// OrderHandler proxies order review and intake to the storage service.
type OrderHandler struct {
	proxy
}

func NewOrderHandler(storage Forwarder, inv Invalidator, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{proxy: newProxy(storage, inv, logger)}
}

// RegisterRoutes mounts under /api/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListByStatus)
	r.Get("/pending", h.ListPending)
	r.Get("/user/{userId}", h.ListByUser)
	r.Route("/{orderId}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Post("/approve", h.Approve)
		r.Post("/reject", h.Reject)
		r.Post("/intake", h.Intake)
	})
}

// ListByStatus handles GET /api/orders?status=S.
func (h *OrderHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing status"})
		return
	}
	h.forward(w, r, backend.Request{
		Method: http.MethodGet,
		Path:   backend.Path("/admin/orders/status", status),
	})
}

func (h *OrderHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{Method: http.MethodGet, Path: "/admin/orders/pending"})
}

// ListByUser forwards the caller's filter query string verbatim.
func (h *OrderHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{
		Method:   http.MethodGet,
		Path:     backend.Path("/admin/orders/user", chi.URLParam(r, "userId")),
		RawQuery: r.URL.RawQuery,
	})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, backend.Request{
		Method: http.MethodGet,
		Path:   backend.Path("/admin/orders", chi.URLParam(r, "orderId")),
	})
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "orderId")
	h.forward(w, r, backend.Request{
		Method: http.MethodPatch,
		Path:   backend.Path("/admin/orders", id),
		Body:   body,
	}, query.OrderUpdated(id)...)
}

func (h *OrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approve")
}

func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reject")
}

func (h *OrderHandler) review(w http.ResponseWriter, r *http.Request, action string) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "orderId")
	h.forward(w, r, backend.Request{
		Method: http.MethodPost,
		Path:   backend.Path("/admin/orders", id, action),
		Body:   body,
	}, query.OrderReviewed(id)...)
}

// Intake records verified boxes for an order.
func (h *OrderHandler) Intake(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "orderId")
	h.forward(w, r, backend.Request{
		Method: http.MethodPost,
		Path:   backend.Path("/admin/orders", id, "intake"),
		Body:   body,
	}, query.IntakeRecorded(id)...)
}
