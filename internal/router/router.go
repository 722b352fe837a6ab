package router

import (
	"crypto/rand"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/audit"
	"github.com/sort-storage/admin/internal/auth"
	"github.com/sort-storage/admin/internal/config"
	"github.com/sort-storage/admin/internal/enum"
	"github.com/sort-storage/admin/internal/handler"
	"github.com/sort-storage/admin/internal/metrics"
	mw "github.com/sort-storage/admin/internal/middleware"
	"github.com/sort-storage/admin/internal/query"
	"github.com/sort-storage/admin/internal/web"
	"github.com/sort-storage/admin/internal/ws"
)

const contentSecurityPolicy = "default-src 'self'; img-src 'self' https: data:; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'"

// Deps is everything the route tree needs. Storage and Users are the two
// upstream clients; Pages may be nil to serve the JSON API only.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Storage handler.Forwarder
	Users   handler.Forwarder
	Queries *query.Service
	Hub     *ws.Hub
	Audit   audit.Recorder
	Limiter *mw.RateLimiter
	Pages   *web.Server
}

// New creates a Chi router with all application routes wired up.
// API routes answer JSON and require an admin bearer token or session
// cookie; page routes redirect to the login page instead.
func New(d Deps) chi.Router {
	cfg := d.Config
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := d.Audit
	if rec == nil {
		rec = audit.NopRecorder{}
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}

	validator := auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	cookie := auth.CookieOptions{Name: cfg.SessionCookieName, Secure: cfg.SessionCookieSecure}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(mw.SecurityHeaders(mw.SecurityHeadersConfig{ContentSecurityPolicy: contentSecurityPolicy}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Session custody (token validated, never credentials)
	sessionHandler := handler.NewSessionHandler(validator, cookie, logger)
	r.Route("/auth", sessionHandler.RegisterRoutes)

	// WebSocket route (handles auth internally via query param or cookie)
	if d.Hub != nil {
		r.Method(http.MethodGet, "/ws", ws.NewHandler(d.Hub, validator, cfg.SessionCookieName, query.Topics, cfg.AllowedOrigins))
	}

	// JSON proxy routes
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
		r.Use(mw.Authenticate(validator, cfg.SessionCookieName))
		r.Use(mw.RequireAccountType(enum.AccountTypeAdmin))
		r.Use(limiter.Handler)
		r.Use(audit.Middleware(rec, logger))

		var inv handler.Invalidator
		if d.Queries != nil {
			inv = d.Queries
		}

		orderHandler := handler.NewOrderHandler(d.Storage, inv, logger)
		r.Route("/orders", orderHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(d.Users, logger)
		r.Route("/users", userHandler.RegisterRoutes)

		locationHandler := handler.NewLocationHandler(d.Storage, inv, logger)
		r.Route("/storage/locations", locationHandler.RegisterRoutes)

		slotHandler := handler.NewSlotHandler(d.Storage, inv, logger)
		r.Route("/storage/slots", slotHandler.RegisterRoutes)

		auditHandler := handler.NewAuditHandler(rec, logger)
		r.Route("/audit", auditHandler.RegisterRoutes)
	})

	// Server-rendered pages
	if d.Pages != nil {
		r.Group(func(r chi.Router) {
			if !cfg.SessionCookieSecure {
				r.Use(plaintext)
			}
			r.Use(csrf.Protect(csrfKey(cfg, logger),
				csrf.Secure(cfg.SessionCookieSecure),
				csrf.Path("/"),
				csrf.SameSite(csrf.SameSiteLaxMode),
				csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
			))

			d.Pages.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireSession(validator, cfg.SessionCookieName, cfg.LoginURL))
				r.Use(mw.RequirePageAccountType(http.HandlerFunc(d.Pages.Forbidden), enum.AccountTypeAdmin))
				d.Pages.RegisterRoutes(r)
			})
		})
	}

	logger.Info("router initialized", zap.Bool("pages", d.Pages != nil), zap.Bool("live", d.Hub != nil))
	return r
}

// plaintext marks requests as plain HTTP so csrf skips the TLS referer check.
func plaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func csrfKey(cfg *config.Config, logger *zap.Logger) []byte {
	if cfg.CSRFKey != "" {
		return []byte(cfg.CSRFKey)
	}
	key := make([]byte, 32)
	rand.Read(key)
	logger.Warn("CSRF_KEY not set, using a random key; forms break across restarts and replicas")
	return key
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	msg := "Forbidden"
	if err := csrf.FailureReason(r); err != nil {
		msg += " - " + err.Error()
	}
	http.Error(w, msg, http.StatusForbidden)
}
