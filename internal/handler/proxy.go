package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/cache"
	"github.com/sort-storage/admin/internal/middleware"
)

// maxRequestBody caps what a dashboard may post to a proxied route.
const maxRequestBody = 1 << 20

// Forwarder is satisfied by *backend.Client; narrow interface for testability.
type Forwarder interface {
	Forward(ctx context.Context, req backend.Request) (*backend.Response, error)
}

// Invalidator is satisfied by *query.Service.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...cache.Key)
}

// proxy holds what every resource handler needs to relay a call.
type proxy struct {
	upstream Forwarder
	inv      Invalidator
	logger   *zap.Logger
}

func newProxy(upstream Forwarder, inv Invalidator, logger *zap.Logger) proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return proxy{upstream: upstream, inv: inv, logger: logger}
}

// call forwards req with the caller's token. On a transport failure it
// answers 502 and returns nil.
func (p proxy) call(w http.ResponseWriter, r *http.Request, req backend.Request) *backend.Response {
	if session := middleware.SessionFromContext(r.Context()); session != nil {
		req.Token = session.Token
	}

	resp, err := p.upstream.Forward(r.Context(), req)
	if err != nil {
		p.logger.Error("upstream call failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		return nil
	}
	return resp
}

// forward relays the upstream answer verbatim and, for a 2xx answer,
// invalidates the given keys.
func (p proxy) forward(w http.ResponseWriter, r *http.Request, req backend.Request, invalidate ...cache.Key) {
	resp := p.call(w, r, req)
	if resp == nil {
		return
	}
	if isSuccess(resp.Status) {
		p.invalidate(r.Context(), invalidate)
	}
	relay(w, resp)
}

func (p proxy) invalidate(ctx context.Context, keys []cache.Key) {
	if p.inv == nil || len(keys) == 0 {
		return
	}
	p.inv.Invalidate(context.WithoutCancel(ctx), keys...)
}

func relay(w http.ResponseWriter, resp *backend.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// readJSONBody returns the raw request body after checking it is JSON. It
// answers 400 itself and returns false otherwise.
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil || !json.Valid(data) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	return data, true
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
