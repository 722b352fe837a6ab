package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sort-storage/admin/internal/calendar"
	"github.com/sort-storage/admin/internal/enum"
	"github.com/sort-storage/admin/internal/model"
)

type dayCell struct {
	calendar.Cell
	Href      string
	RangeHref string
}

type slotForm struct {
	SlotType    string
	MaxCapacity int
	Windows     *calendar.WindowSet
}

type slotsView struct {
	Month     time.Time
	PrevURL   string
	NextURL   string
	TodayURL  string
	ClearURL  string
	Weeks     [][]dayCell
	Selected  []time.Time
	Start     string
	End       string
	Preview   *model.CreateBatchSlotsRequest
	Form      slotForm
	Windows   []string
	SlotTypes []string

	Day      *time.Time
	DaySlots []model.Slot
	Slot     *model.Slot
	state    url.Values
}

// SlotURL opens the edit panel for one slot, keeping the calendar state.
func (v slotsView) SlotURL(id string) string {
	q := cloneValues(v.state)
	q.Del("day")
	q.Set("slot", id)
	return "/slots?" + q.Encode()
}

// State is carried as hidden fields so posts return to the same view.
func (v slotsView) State() url.Values {
	q := cloneValues(v.state)
	q.Del("day")
	q.Del("slot")
	return q
}

func (s *Server) Slots(w http.ResponseWriter, r *http.Request) {
	s.renderSlots(w, r, r.URL.Query(), http.StatusOK, slotForm{
		SlotType:    enum.SlotTypeDropoff,
		MaxCapacity: 1,
		Windows:     calendar.NewWindowSet(),
	})
}

func (s *Server) renderSlots(w http.ResponseWriter, r *http.Request, q url.Values, status int, form slotForm) {
	now := s.now().In(s.loc)
	month := calendar.ParseMonth(q.Get("month"), now)
	sel := selectionFrom(month, q.Get("start"), q.Get("end"), s.loc)

	first, last := calendar.VisibleRange(month)
	resp, err := s.q.Slots(r.Context(), session(r), calendar.FormatQueryDate(first), calendar.FormatQueryDate(last))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cells := calendar.MonthGrid(month, now, sel)
	calendar.AttachSlots(cells, resp.Slots)

	state := url.Values{"month": {month.Format("2006-01")}}
	dates := sel.Dates()
	view := slotsView{
		Month:     month,
		PrevURL:   "/slots?" + withMonth(q, calendar.Navigate(month, -1)).Encode(),
		NextURL:   "/slots?" + withMonth(q, calendar.Navigate(month, 1)).Encode(),
		ClearURL:  "/slots?" + state.Encode(),
		Selected:  dates,
		Form:      form,
		Windows:   calendar.TimeWindows,
		SlotTypes: []string{enum.SlotTypeDropoff, enum.SlotTypePickup, enum.SlotTypeReturn},
	}
	if len(dates) > 0 {
		view.Start = calendar.DateKey(dates[0])
		view.End = calendar.DateKey(dates[len(dates)-1])
		state.Set("start", view.Start)
		state.Set("end", view.End)
		view.Preview = calendar.BatchRequest(dates, form.SlotType, form.Windows.Selected(), form.MaxCapacity)
	}
	view.state = state

	todaySel := sel.Clone()
	todaySel.Today(now)
	view.TodayURL = "/slots?" + selectionQuery(todaySel).Encode()

	for i := 0; i < len(cells); i += 7 {
		week := make([]dayCell, 0, 7)
		for _, c := range cells[i : i+7] {
			week = append(week, dayCell{Cell: c, Href: clickURL(sel, c, state), RangeHref: rangeURL(sel, c, dates)})
		}
		view.Weeks = append(view.Weeks, week)
	}

	if raw := q.Get("day"); raw != "" {
		if d, err := time.ParseInLocation(calendar.DateFormat, raw, s.loc); err == nil {
			view.Day = &d
			view.DaySlots = calendar.SlotsForDate(resp.Slots, d, s.loc)
		}
	}
	if id := q.Get("slot"); id != "" {
		for i := range resp.Slots {
			if resp.Slots[i].ID == id {
				view.Slot = &resp.Slots[i]
				break
			}
		}
	}

	s.render(w, status, "slots.html", s.page(r, "Slots", "slots", view))
}

// clickURL is where a click on c leads: the outcome of pressing and
// releasing the mouse on that day.
func clickURL(sel *calendar.Selection, c calendar.Cell, state url.Values) string {
	if !c.InMonth {
		return ""
	}
	next := sel.Clone()
	action := next.MouseDown(c.Date, len(c.Slots))
	next.MouseUp(c.Date)

	switch action {
	case calendar.ActionOpenDay:
		q := cloneValues(state)
		q.Set("day", c.Key)
		return "/slots?" + q.Encode()
	case calendar.ActionNone:
		return ""
	}
	return "/slots?" + selectionQuery(next).Encode()
}

// rangeURL is the outcome of dragging from the first selected day to c.
func rangeURL(sel *calendar.Selection, c calendar.Cell, selected []time.Time) string {
	if !c.InMonth || len(selected) == 0 || sel.IsSelected(c.Date) {
		return ""
	}
	next := calendar.NewSelection(sel.Month())
	next.MouseDown(selected[0], 0)
	next.MouseEnter(c.Date)
	next.MouseUp(c.Date)
	return "/slots?" + selectionQuery(next).Encode()
}

func selectionQuery(sel *calendar.Selection) url.Values {
	q := url.Values{"month": {sel.Month().Format("2006-01")}}
	if dates := sel.Dates(); len(dates) > 0 {
		q.Set("start", calendar.DateKey(dates[0]))
		q.Set("end", calendar.DateKey(dates[len(dates)-1]))
	}
	return q
}

func selectionFrom(month time.Time, start, end string, loc *time.Location) *calendar.Selection {
	sel := calendar.NewSelection(month)
	a, errA := time.ParseInLocation(calendar.DateFormat, start, loc)
	b, errB := time.ParseInLocation(calendar.DateFormat, end, loc)
	switch {
	case errA != nil:
		return sel
	case errB != nil:
		b = a
	}
	// Only days the grid shows can be selected.
	if first, last, ok := calendar.ClampToGrid(sel.Month(), a, b); ok {
		sel.SelectRange(first, last)
	}
	return sel
}

func withMonth(q url.Values, month time.Time) url.Values {
	out := url.Values{"month": {month.Format("2006-01")}}
	for _, k := range []string{"start", "end"} {
		if v := q.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	return out
}

// slotsReturn rebuilds the calendar URL from the posted state fields.
func slotsReturn(form url.Values) string {
	q := url.Values{}
	for _, k := range []string{"month", "start", "end"} {
		if v := form.Get(k); v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return "/slots"
	}
	return "/slots?" + q.Encode()
}

// CreateBatchSlots handles the batch form. The select all and clear buttons
// re-render the form instead of submitting it.
func (s *Server) CreateBatchSlots(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/slots", "error", "Invalid form")
		return
	}
	back := slotsReturn(r.PostForm)

	capacity, _ := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("max_capacity")))
	form := slotForm{
		SlotType:    r.PostForm.Get("slot_type"),
		MaxCapacity: max(capacity, 1),
		Windows:     calendar.NewWindowSet(r.PostForm["windows"]...),
	}
	if !enum.IsValidSlotType(form.SlotType) {
		form.SlotType = enum.SlotTypeDropoff
	}

	switch r.PostForm.Get("action") {
	case "select_all":
		form.Windows.SelectAll()
		s.renderSlots(w, r, r.PostForm, http.StatusOK, form)
		return
	case "clear":
		form.Windows.Clear()
		s.renderSlots(w, r, r.PostForm, http.StatusOK, form)
		return
	}

	month := calendar.ParseMonth(r.PostForm.Get("month"), s.now().In(s.loc))
	dates := selectionFrom(month, r.PostForm.Get("start"), r.PostForm.Get("end"), s.loc).Dates()
	req := calendar.BatchRequest(dates, form.SlotType, form.Windows.Selected(), form.MaxCapacity)
	if req == nil {
		redirect(w, r, back, "error", "Select at least one date and one time slot")
		return
	}

	resp, err := s.q.CreateBatchSlots(r.Context(), session(r), *req)
	if err != nil {
		redirect(w, r, back, "error", errorMessage(err, "Failed to create slots"))
		return
	}
	redirect(w, r, back, "success", strconv.Itoa(len(resp.SlotIDs))+" slots created")
}

func (s *Server) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/slots", "error", "Invalid form")
		return
	}
	back := slotsReturn(r.PostForm)

	maxCapacity, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("max_capacity")))
	if err != nil {
		redirect(w, r, back, "error", "Max capacity must be a number")
		return
	}
	current, _ := strconv.Atoi(r.PostForm.Get("current_max"))
	booked, _ := strconv.Atoi(r.PostForm.Get("booked"))

	req, err := calendar.SlotUpdate(model.Slot{ID: id, MaxCapacity: current, CurrentCapacity: booked}, maxCapacity)
	if err != nil {
		redirect(w, r, back, "error", err.Error())
		return
	}
	if req.IsEmpty() {
		redirect(w, r, back, "success", "No changes")
		return
	}
	if err := s.q.UpdateSlot(r.Context(), session(r), id, req); err != nil {
		redirect(w, r, back, "error", errorMessage(err, "Failed to update slot"))
		return
	}
	redirect(w, r, back, "success", "Slot updated")
}

func (s *Server) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/slots", "error", "Invalid form")
		return
	}
	back := slotsReturn(r.PostForm)
	if err := s.q.DeleteSlot(r.Context(), session(r), id); err != nil {
		redirect(w, r, back, "error", errorMessage(err, "Failed to delete slot"))
		return
	}
	redirect(w, r, back, "success", "Slot deleted")
}
