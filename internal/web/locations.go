package web

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sort-storage/admin/internal/location"
	"github.com/sort-storage/admin/internal/model"
)

type locationsView struct {
	Locations []model.StorageLocation
	Total     int
	Form      location.Form
	Errors    map[string]string
	// EditID is the location whose edit form failed validation.
	EditID string
}

func (s *Server) Locations(w http.ResponseWriter, r *http.Request) {
	s.renderLocations(w, r, http.StatusOK, locationsView{Form: location.Form{Capacity: 1}})
}

func (s *Server) renderLocations(w http.ResponseWriter, r *http.Request, status int, view locationsView) {
	list, err := s.q.StorageLocations(r.Context(), session(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view.Locations = append([]model.StorageLocation(nil), list.Locations...)
	sort.SliceStable(view.Locations, func(i, j int) bool {
		return strings.ToLower(view.Locations[i].Name) < strings.ToLower(view.Locations[j].Name)
	})
	view.Total = list.Total
	if view.Total == 0 {
		view.Total = len(list.Locations)
	}

	pd := s.page(r, "Storage Locations", "locations", view)
	if len(view.Errors) > 0 && pd.Error == "" {
		pd.Error = "Please fix the highlighted fields."
	}
	s.render(w, status, "locations.html", pd)
}

func (s *Server) CreateLocation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/locations", "error", "Invalid form")
		return
	}
	form := location.ParseForm(r.PostForm)
	if errs := form.Validate(); errs != nil {
		s.renderLocations(w, r, http.StatusUnprocessableEntity, locationsView{Form: form, Errors: errs})
		return
	}
	if _, err := s.q.CreateLocation(r.Context(), session(r), form.CreateRequest()); err != nil {
		redirect(w, r, "/locations", "error", errorMessage(err, "Failed to create location"))
		return
	}
	redirect(w, r, "/locations", "success", "Location created")
}

func (s *Server) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/locations", "error", "Invalid form")
		return
	}
	form := location.ParseForm(r.PostForm)
	if errs := form.Validate(); errs != nil {
		s.renderLocations(w, r, http.StatusUnprocessableEntity, locationsView{
			Form:   location.Form{Capacity: 1},
			Errors: errs,
			EditID: id,
		})
		return
	}

	list, err := s.q.StorageLocations(r.Context(), session(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var current *model.StorageLocation
	for i := range list.Locations {
		if list.Locations[i].ID == id {
			current = &list.Locations[i]
			break
		}
	}
	if current == nil {
		redirect(w, r, "/locations", "error", "Location not found")
		return
	}

	req := form.UpdateRequest(*current)
	if req.Name == nil && req.Address == nil && req.Capacity == nil {
		redirect(w, r, "/locations", "success", "No changes")
		return
	}
	if _, err := s.q.UpdateLocation(r.Context(), session(r), id, req); err != nil {
		redirect(w, r, "/locations", "error", errorMessage(err, "Failed to update location"))
		return
	}
	redirect(w, r, "/locations", "success", "Location updated")
}

func (s *Server) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.q.DeleteLocation(r.Context(), session(r), id); err != nil {
		redirect(w, r, "/locations", "error", errorMessage(err, "Failed to delete location"))
		return
	}
	redirect(w, r, "/locations", "success", "Location deleted")
}
