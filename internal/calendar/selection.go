package calendar

import (
	"slices"
	"time"
)

// Action tells the page what a mouse down did.
type Action int

const (
	ActionNone Action = iota
	ActionSelect
	ActionClear
	ActionOpenDay
)

// Selection tracks the selected days of the visible month and an ongoing
// drag. It is not safe for concurrent use.
type Selection struct {
	month     time.Time
	selected  map[string]time.Time
	dragging  bool
	dragStart time.Time
}

func NewSelection(month time.Time) *Selection {
	return &Selection{month: MonthOf(month), selected: make(map[string]time.Time)}
}

func (s *Selection) Month() time.Time { return s.month }

// Clone copies the selection so a hypothetical interaction can be played
// against it.
func (s *Selection) Clone() *Selection {
	c := *s
	c.selected = make(map[string]time.Time, len(s.selected))
	for k, v := range s.selected {
		c.selected[k] = v
	}
	return &c
}

// SetMonth changes the visible month. The selection is kept.
func (s *Selection) SetMonth(month time.Time) {
	s.month = MonthOf(month)
}

func (s *Selection) Dragging() bool { return s.dragging }

func (s *Selection) IsSelected(date time.Time) bool {
	_, ok := s.selected[DateKey(date)]
	return ok
}

// Dates returns the selected days in ascending order.
func (s *Selection) Dates() []time.Time {
	out := make([]time.Time, 0, len(s.selected))
	for _, d := range s.selected {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// MouseDown handles a press on a grid day carrying daySlots slots.
func (s *Selection) MouseDown(date time.Time, daySlots int) Action {
	if !s.inMonth(date) {
		return ActionNone
	}
	if daySlots > OverflowThreshold {
		return ActionOpenDay
	}
	if s.IsSelected(date) {
		s.Clear()
		return ActionClear
	}
	s.selected = map[string]time.Time{DateKey(date): day(date)}
	s.dragging = true
	s.dragStart = day(date)
	return ActionSelect
}

func (s *Selection) MouseEnter(date time.Time) {
	if !s.dragging || !s.inMonth(date) {
		return
	}
	s.SelectRange(s.dragStart, date)
}

func (s *Selection) MouseUp(date time.Time) {
	if s.dragging && s.inMonth(date) && DateKey(s.dragStart) != DateKey(date) {
		s.SelectRange(s.dragStart, date)
	}
	s.stopDrag()
}

// MouseLeave cancels a drag when the pointer leaves the grid.
func (s *Selection) MouseLeave() {
	s.stopDrag()
}

// Today jumps to the month of now and selects only today.
func (s *Selection) Today(now time.Time) {
	s.month = MonthOf(now)
	s.selected = map[string]time.Time{DateKey(now): day(now)}
	s.stopDrag()
}

func (s *Selection) Clear() {
	s.selected = make(map[string]time.Time)
	s.stopDrag()
}

// SelectRange adds every day between a and b inclusive, in either order.
func (s *Selection) SelectRange(a, b time.Time) {
	start, end := day(a), day(b)
	if end.Before(start) {
		start, end = end, start
	}
	for d := start; !d.After(end); d = addDays(d, 1) {
		s.selected[DateKey(d)] = d
	}
}

func (s *Selection) inMonth(date time.Time) bool {
	return date.Year() == s.month.Year() && date.Month() == s.month.Month()
}

func (s *Selection) stopDrag() {
	s.dragging = false
	s.dragStart = time.Time{}
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
