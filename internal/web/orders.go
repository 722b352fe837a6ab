package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/enum"
	"github.com/sort-storage/admin/internal/intake"
	"github.com/sort-storage/admin/internal/model"
)

const (
	approvalNote  = "Order approved by admin"
	defaultReason = "Reject"
)

type orderView struct {
	Order     *model.OrderDetail
	Pending   bool
	Intake    *intake.Form
	Locations []model.StorageLocation
}

func (s *Server) OrderDetail(w http.ResponseWriter, r *http.Request) {
	s.renderOrder(w, r, http.StatusOK, intake.NewForm())
}

func (s *Server) renderOrder(w http.ResponseWriter, r *http.Request, status int, form *intake.Form) {
	id := chi.URLParam(r, "id")
	order, err := s.q.Order(r.Context(), session(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if order == nil {
		s.fail(w, r, &backend.StatusError{Status: http.StatusNotFound})
		return
	}

	var locations []model.StorageLocation
	if list, err := s.q.StorageLocations(r.Context(), session(r)); err == nil {
		locations = list.Locations
	}

	view := orderView{
		Order:     order,
		Pending:   order.Status == enum.OrderStatusPending,
		Intake:    form,
		Locations: locations,
	}
	pd := s.page(r, "Order "+order.ID, "dashboard", view)
	if status != http.StatusOK && pd.Error == "" {
		pd.Error = "Please fix the highlighted box fields."
	}
	s.render(w, status, "order.html", pd)
}

func (s *Server) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/orders/" + id
	req := model.ApproveOrderRequest{Notes: approvalNote}
	if _, err := s.q.ApproveOrder(r.Context(), session(r), id, req); err != nil {
		redirect(w, r, back, "error", errorMessage(err, "Failed to approve order"))
		return
	}
	redirect(w, r, back, "success", "Order approved")
}

func (s *Server) RejectOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/orders/" + id
	if err := r.ParseForm(); err != nil {
		redirect(w, r, back, "error", "Invalid form")
		return
	}
	reason := strings.TrimSpace(r.PostForm.Get("reason"))
	if reason == "" {
		reason = defaultReason
	}
	if _, err := s.q.RejectOrder(r.Context(), session(r), id, model.RejectOrderRequest{Reason: reason}); err != nil {
		redirect(w, r, back, "error", errorMessage(err, "Failed to reject order"))
		return
	}
	redirect(w, r, back, "success", "Order rejected")
}

// Intake handles the box intake form. The add and remove buttons re-render
// the form without submitting it.
func (s *Server) Intake(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/orders/"+id, "error", "Invalid form")
		return
	}
	form := intake.ParseForm(r.PostForm)

	switch action := r.PostForm.Get("action"); {
	case action == "add":
		form.Add()
		s.renderOrder(w, r, http.StatusOK, form)
		return
	case strings.HasPrefix(action, "remove:"):
		if i, err := strconv.Atoi(strings.TrimPrefix(action, "remove:")); err == nil {
			form.Remove(i)
		}
		s.renderOrder(w, r, http.StatusOK, form)
		return
	}

	if !form.Validate() {
		s.renderOrder(w, r, http.StatusUnprocessableEntity, form)
		return
	}
	if _, err := s.q.BatchIntake(r.Context(), session(r), id, form.Request()); err != nil {
		redirect(w, r, "/orders/"+id, "error", errorMessage(err, "Failed to record intake"))
		return
	}
	n := len(form.Boxes)
	msg := "1 box recorded"
	if n != 1 {
		msg = strconv.Itoa(n) + " boxes recorded"
	}
	redirect(w, r, "/orders/"+id, "success", msg)
}
