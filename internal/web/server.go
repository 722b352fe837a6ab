// Package web serves the server-rendered admin pages. Every page reads
// through the query layer with the caller's session, so the pages and the
// JSON API share one cache.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/auth"
	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/enum"
	"github.com/sort-storage/admin/internal/location"
	"github.com/sort-storage/admin/internal/middleware"
	"github.com/sort-storage/admin/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Queries is satisfied by *query.Service.
type Queries interface {
	OrdersByStatus(ctx context.Context, sess *auth.Session, status string) (*model.OrdersResponse, error)
	UserOrders(ctx context.Context, sess *auth.Session, userID string, f model.OrderFilter) (*model.OrdersResponse, error)
	Order(ctx context.Context, sess *auth.Session, id string) (*model.OrderDetail, error)
	ApproveOrder(ctx context.Context, sess *auth.Session, id string, req model.ApproveOrderRequest) (*model.SuccessResponse, error)
	RejectOrder(ctx context.Context, sess *auth.Session, id string, req model.RejectOrderRequest) (*model.SuccessResponse, error)
	BatchIntake(ctx context.Context, sess *auth.Session, orderID string, req model.BatchIntakeRequest) (*model.SuccessResponse, error)

	Users(ctx context.Context, sess *auth.Session, page, limit int) (*model.PaginatedUsers, error)
	User(ctx context.Context, sess *auth.Session, id string) (*model.User, error)

	StorageLocations(ctx context.Context, sess *auth.Session) (*model.StorageLocationList, error)
	CreateLocation(ctx context.Context, sess *auth.Session, req model.CreateStorageLocationRequest) (*model.StorageLocation, error)
	UpdateLocation(ctx context.Context, sess *auth.Session, id string, req model.UpdateStorageLocationRequest) (*model.StorageLocation, error)
	DeleteLocation(ctx context.Context, sess *auth.Session, id string) error

	Slots(ctx context.Context, sess *auth.Session, start, end string) (*model.SlotsResponse, error)
	CreateBatchSlots(ctx context.Context, sess *auth.Session, req model.CreateBatchSlotsRequest) (*model.BatchSlotsResponse, error)
	UpdateSlot(ctx context.Context, sess *auth.Session, id string, req model.UpdateSlotRequest) error
	DeleteSlot(ctx context.Context, sess *auth.Session, id string) error
}

type Options struct {
	// Location is the time zone for "today" and the calendar. Defaults to UTC.
	Location *time.Location
	LoginURL string
	Logger   *zap.Logger
	Now      func() time.Time
}

type Server struct {
	q        Queries
	loc      *time.Location
	loginURL string
	logger   *zap.Logger
	now      func() time.Time
	pages    map[string]*template.Template
}

var pageFiles = []string{
	"login.html",
	"dashboard.html",
	"order.html",
	"users.html",
	"user.html",
	"locations.html",
	"slots.html",
	"error.html",
}

func New(q Queries, opts Options) (*Server, error) {
	s := &Server{
		q:        q,
		loc:      opts.Location,
		loginURL: opts.LoginURL,
		logger:   opts.Logger,
		now:      opts.Now,
		pages:    make(map[string]*template.Template, len(pageFiles)),
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.loginURL == "" {
		s.loginURL = "/login"
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	for _, name := range pageFiles {
		t, err := template.New(name).Funcs(s.funcs()).ParseFS(templatesFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		s.pages[name] = t
	}
	return s, nil
}

// RegisterPublicRoutes mounts the pages reachable without a session.
func (s *Server) RegisterPublicRoutes(r chi.Router) {
	r.Get("/login", s.Login)
}

// RegisterRoutes mounts the pages that need a session.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	r.Get("/dashboard", s.Dashboard)
	r.Get("/dashboard/export.xlsx", s.ExportOrders)

	r.Get("/orders/{id}", s.OrderDetail)
	r.Post("/orders/{id}/approve", s.ApproveOrder)
	r.Post("/orders/{id}/reject", s.RejectOrder)
	r.Post("/orders/{id}/intake", s.Intake)

	r.Get("/users", s.Users)
	r.Get("/users/export.xlsx", s.ExportUsers)
	r.Get("/users/{id}", s.UserDetail)

	r.Get("/locations", s.Locations)
	r.Post("/locations", s.CreateLocation)
	r.Post("/locations/{id}", s.UpdateLocation)
	r.Post("/locations/{id}/delete", s.DeleteLocation)

	r.Get("/slots", s.Slots)
	r.Post("/slots/batch", s.CreateBatchSlots)
	r.Post("/slots/{id}", s.UpdateSlot)
	r.Post("/slots/{id}/delete", s.DeleteSlot)
}

// --- Rendering ---

type pageData struct {
	Title     string
	Nav       string
	Email     string
	CSRFField template.HTML
	Success   string
	Error     string
	Data      any
}

func (s *Server) page(r *http.Request, title, nav string, data any) pageData {
	pd := pageData{
		Title:     title,
		Nav:       nav,
		CSRFField: csrf.TemplateField(r),
		Success:   r.URL.Query().Get("success"),
		Error:     r.URL.Query().Get("error"),
		Data:      data,
	}
	if sess := middleware.SessionFromContext(r.Context()); sess != nil && sess.Claims != nil {
		pd.Email = sess.Claims.Email
	}
	return pd
}

func (s *Server) render(w http.ResponseWriter, status int, name string, pd pageData) {
	t, ok := s.pages[name]
	if !ok {
		s.logger.Error("unknown template", zap.String("template", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pd); err != nil {
		s.logger.Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail renders an upstream error. An upstream 401 means the token expired
// there, so the user is sent back to sign in.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var se *backend.StatusError
	switch {
	case errors.As(err, &se) && se.Status == http.StatusUnauthorized:
		http.Redirect(w, r, s.loginURL+"?return_to="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	case errors.As(err, &se) && se.Status == http.StatusNotFound:
		s.render(w, http.StatusNotFound, "error.html", s.page(r, "Not found", "", "The requested record does not exist."))
		return
	}
	s.logger.Error("page load failed", zap.String("path", r.URL.Path), zap.Error(err))
	s.render(w, http.StatusBadGateway, "error.html", s.page(r, "Unavailable", "", "The storage service is unavailable. Try again shortly."))
}

// Forbidden renders the error page for sessions that may not use the
// dashboard.
func (s *Server) Forbidden(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusForbidden, "error.html", s.page(r, "Access denied", "", "Your account cannot use the admin dashboard."))
}

// redirect sends the browser to path with a flash message.
func redirect(w http.ResponseWriter, r *http.Request, path, kind, message string) {
	target := path
	if message != "" {
		u, err := url.Parse(path)
		if err == nil {
			q := u.Query()
			q.Set(kind, message)
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// errorMessage picks the upstream message when there is one.
func errorMessage(err error, fallback string) string {
	var se *backend.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}

func session(r *http.Request) *auth.Session {
	return middleware.SessionFromContext(r.Context())
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"orderType":   enum.OrderTypeLabel,
		"slotType":    enum.SlotTypeLabel,
		"slotAbbr":    enum.SlotTypeAbbreviation,
		"opType":      enum.OperationTypeLabel,
		"opStatus":    enum.OperationStatusLabel,
		"tone":        enum.StatusTone,
		"utilization": location.FormatUtilization,
		"utilWidth":   location.UtilizationWidth,
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(s.loc).Format("Jan 2, 2006 15:04")
		},
		"date": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return "-"
			}
			return t.In(s.loc).Format("Jan 2, 2006")
		},
		"clock": func(t time.Time) string {
			return t.In(s.loc).Format("15:04")
		},
		"num": func(d decimal.Decimal) string {
			if d.IsZero() {
				return ""
			}
			return d.String()
		},
		"add": func(a, b int) int { return a + b },
	}
}
