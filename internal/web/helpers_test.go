package web_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sort-storage/admin/internal/auth"
	"github.com/sort-storage/admin/internal/middleware"
	"github.com/sort-storage/admin/internal/model"
	"github.com/sort-storage/admin/internal/web"
)

// --- Fake query layer ---

type mockQueries struct {
	pending    []model.OrderSummary
	processing []model.OrderSummary
	order      *model.OrderDetail
	userOrders []model.OrderSummary
	users      *model.PaginatedUsers
	user       *model.User
	locations  []model.StorageLocation
	slots      []model.Slot
	err        error
	mutateErr  error

	calls      []string
	approved   *model.ApproveOrderRequest
	rejected   *model.RejectOrderRequest
	intake     *model.BatchIntakeRequest
	created    *model.CreateStorageLocationRequest
	updated    *model.UpdateStorageLocationRequest
	batch      *model.CreateBatchSlotsRequest
	slotUpdate *model.UpdateSlotRequest
	slotRange  [2]string
	usersPages []int
	tokens     []string
}

func (m *mockQueries) record(sess *auth.Session, call string) {
	m.calls = append(m.calls, call)
	if sess != nil {
		m.tokens = append(m.tokens, sess.Token)
	}
}

func (m *mockQueries) OrdersByStatus(_ context.Context, sess *auth.Session, status string) (*model.OrdersResponse, error) {
	m.record(sess, "OrdersByStatus:"+status)
	if m.err != nil {
		return nil, m.err
	}
	if status == "pending" {
		return &model.OrdersResponse{Orders: m.pending}, nil
	}
	return &model.OrdersResponse{Orders: m.processing}, nil
}

func (m *mockQueries) UserOrders(_ context.Context, sess *auth.Session, userID string, _ model.OrderFilter) (*model.OrdersResponse, error) {
	m.record(sess, "UserOrders:"+userID)
	return &model.OrdersResponse{Orders: m.userOrders}, m.err
}

func (m *mockQueries) Order(_ context.Context, sess *auth.Session, id string) (*model.OrderDetail, error) {
	m.record(sess, "Order:"+id)
	if m.err != nil {
		return nil, m.err
	}
	return m.order, nil
}

func (m *mockQueries) ApproveOrder(_ context.Context, sess *auth.Session, id string, req model.ApproveOrderRequest) (*model.SuccessResponse, error) {
	m.record(sess, "ApproveOrder:"+id)
	m.approved = &req
	return &model.SuccessResponse{}, m.mutateErr
}

func (m *mockQueries) RejectOrder(_ context.Context, sess *auth.Session, id string, req model.RejectOrderRequest) (*model.SuccessResponse, error) {
	m.record(sess, "RejectOrder:"+id)
	m.rejected = &req
	return &model.SuccessResponse{}, m.mutateErr
}

func (m *mockQueries) BatchIntake(_ context.Context, sess *auth.Session, orderID string, req model.BatchIntakeRequest) (*model.SuccessResponse, error) {
	m.record(sess, "BatchIntake:"+orderID)
	m.intake = &req
	return &model.SuccessResponse{}, m.mutateErr
}

func (m *mockQueries) Users(_ context.Context, sess *auth.Session, page, limit int) (*model.PaginatedUsers, error) {
	m.record(sess, "Users")
	m.usersPages = append(m.usersPages, page)
	if m.err != nil {
		return nil, m.err
	}
	resp := *m.users
	resp.Page = page
	resp.Limit = limit
	return &resp, nil
}

func (m *mockQueries) User(_ context.Context, sess *auth.Session, id string) (*model.User, error) {
	m.record(sess, "User:"+id)
	return m.user, m.err
}

func (m *mockQueries) StorageLocations(_ context.Context, sess *auth.Session) (*model.StorageLocationList, error) {
	m.record(sess, "StorageLocations")
	if m.err != nil {
		return nil, m.err
	}
	return &model.StorageLocationList{Locations: m.locations, Total: len(m.locations)}, nil
}

func (m *mockQueries) CreateLocation(_ context.Context, sess *auth.Session, req model.CreateStorageLocationRequest) (*model.StorageLocation, error) {
	m.record(sess, "CreateLocation")
	m.created = &req
	return &model.StorageLocation{}, m.mutateErr
}

func (m *mockQueries) UpdateLocation(_ context.Context, sess *auth.Session, id string, req model.UpdateStorageLocationRequest) (*model.StorageLocation, error) {
	m.record(sess, "UpdateLocation:"+id)
	m.updated = &req
	return &model.StorageLocation{}, m.mutateErr
}

func (m *mockQueries) DeleteLocation(_ context.Context, sess *auth.Session, id string) error {
	m.record(sess, "DeleteLocation:"+id)
	return m.mutateErr
}

func (m *mockQueries) Slots(_ context.Context, sess *auth.Session, start, end string) (*model.SlotsResponse, error) {
	m.record(sess, "Slots")
	m.slotRange = [2]string{start, end}
	if m.err != nil {
		return nil, m.err
	}
	return &model.SlotsResponse{Slots: m.slots}, nil
}

func (m *mockQueries) CreateBatchSlots(_ context.Context, sess *auth.Session, req model.CreateBatchSlotsRequest) (*model.BatchSlotsResponse, error) {
	m.record(sess, "CreateBatchSlots")
	m.batch = &req
	return &model.BatchSlotsResponse{SlotIDs: []string{"s1", "s2"}}, m.mutateErr
}

func (m *mockQueries) UpdateSlot(_ context.Context, sess *auth.Session, id string, req model.UpdateSlotRequest) error {
	m.record(sess, "UpdateSlot:"+id)
	m.slotUpdate = &req
	return m.mutateErr
}

func (m *mockQueries) DeleteSlot(_ context.Context, sess *auth.Session, id string) error {
	m.record(sess, "DeleteSlot:"+id)
	return m.mutateErr
}

func (m *mockQueries) called(name string) bool {
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

// --- Helpers ---

// fixedNow is Friday, October 16 2026 at 10:00 UTC.
var fixedNow = time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)

func newServer(t *testing.T, q *mockQueries) http.Handler {
	t.Helper()
	srv, err := web.New(q, web.Options{Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	sess := &auth.Session{Token: "page-token", Claims: &auth.Claims{Email: "ops@example.com", AccountType: "admin"}}
	r := chi.NewRouter()
	srv.RegisterPublicRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(middleware.WithSession(req.Context(), sess)))
			})
		})
		srv.RegisterRoutes(r)
	})
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", target, nil))
	return rr
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// flash decodes the message a redirect carries.
func flash(t *testing.T, rr *httptest.ResponseRecorder, kind string) string {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	u, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	return u.Query().Get(kind)
}

func ptrTime(t time.Time) *time.Time { return &t }
