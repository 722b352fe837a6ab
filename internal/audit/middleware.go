package audit

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/middleware"
)

const recordTimeout = 2 * time.Second

// Middleware records every POST, PATCH and DELETE that reaches the wrapped
// handler. Recording failures are logged and never change the response.
func Middleware(rec Recorder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			e := Entry{
				Method:    r.Method,
				Path:      r.URL.Path,
				Status:    status,
				RequestID: chimw.GetReqID(r.Context()),
			}
			if s := middleware.SessionFromContext(r.Context()); s != nil {
				e.Subject = s.Subject()
				e.Email = s.Claims.Email
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
			defer cancel()
			if err := rec.Record(ctx, e); err != nil {
				logger.Error("audit record failed",
					zap.String("method", e.Method),
					zap.String("path", e.Path),
					zap.Error(err),
				)
			}
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
