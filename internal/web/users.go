package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/enum"
	"github.com/sort-storage/admin/internal/export"
	"github.com/sort-storage/admin/internal/model"
	"github.com/sort-storage/admin/internal/pagination"
)

const (
	defaultUsersLimit = 20
	exportPageSize    = 100
	maxExportPages    = 200
)

type usersView struct {
	Users []model.User
	Page  pagination.Page
	Sizes []int
}

func (v usersView) PageURL(p int) string {
	return "/users?page=" + strconv.Itoa(p) + "&limit=" + strconv.Itoa(v.Page.Size)
}

func (s *Server) Users(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := pagination.ParsePage(q.Get("page"))
	limit := pagination.ParseSize(q.Get("limit"), defaultUsersLimit)

	resp, err := s.q.Users(r.Context(), session(r), page, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p := pagination.New(page, limit, resp.Total)
	if resp.TotalPages > 0 {
		p.TotalPages = resp.TotalPages
		p.Numbers = pagination.Window(p.Current, p.TotalPages)
	}
	view := usersView{Users: resp.Users, Page: p, Sizes: pagination.PageSizes}
	s.render(w, http.StatusOK, "users.html", s.page(r, "Users", "users", view))
}

type userView struct {
	User           *model.User
	Orders         []model.OrderSummary
	PendingCount   int
	CompletedCount int
	TotalBoxes     int
}

func (s *Server) UserDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := s.q.User(r.Context(), session(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if user == nil {
		s.fail(w, r, &backend.StatusError{Status: http.StatusNotFound})
		return
	}

	orders, err := s.q.UserOrders(r.Context(), session(r), user.ID, model.OrderFilter{})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	view := userView{User: user, Orders: orders.Orders}
	for _, o := range orders.Orders {
		switch o.Status {
		case enum.OrderStatusPending:
			view.PendingCount++
		case enum.OrderStatusCompleted:
			view.CompletedCount++
		}
		view.TotalBoxes += o.BoxCount
	}
	s.render(w, http.StatusOK, "user.html", s.page(r, user.FullName(), "users", view))
}

// ExportUsers pages through every user and downloads them as a workbook.
func (s *Server) ExportUsers(w http.ResponseWriter, r *http.Request) {
	var users []model.User
	for page := 1; page <= maxExportPages; page++ {
		resp, err := s.q.Users(r.Context(), session(r), page, exportPageSize)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		users = append(users, resp.Users...)
		if page >= resp.TotalPages || len(resp.Users) == 0 {
			break
		}
	}

	f, err := export.UsersWorkbook(users, s.loc)
	if err != nil {
		s.logger.Error("build users workbook", zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	writeWorkbook(w, "users.xlsx")
	if err := export.Write(w, f); err != nil {
		s.logger.Error("write users workbook", zap.Error(err))
	}
}
