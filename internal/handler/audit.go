package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/audit"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditStore is satisfied by audit.Recorder implementations.
type AuditStore interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

type AuditHandler struct {
	store  AuditStore
	logger *zap.Logger
}

func NewAuditHandler(store AuditStore, logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{store: store, logger: logger}
}

// RegisterRoutes mounts under /api/audit.
func (h *AuditHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(n, maxAuditLimit)
	}

	entries, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list audit entries", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load audit log"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
