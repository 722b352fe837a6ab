// Package calendar holds the state behind the slot scheduling page: the six
// week month grid, drag selection of days, the time window picker and the
// requests built from them.
package calendar

import (
	"slices"
	"time"

	"github.com/sort-storage/admin/internal/model"
)

const (
	// GridCells is six rows of seven days.
	GridCells = 42

	// OverflowThreshold is the number of slots a day can show inline. A day
	// with more opens the day list instead of being selected.
	OverflowThreshold = 3

	DateFormat = "2006-01-02"

	// QueryFormat is the midnight timestamp the storage service expects for
	// slot range queries. The date is the calendar's local date.
	QueryFormat = "2006-01-02T00:00:00.000Z"
)

// Cell is one day of the month grid.
type Cell struct {
	Date     time.Time
	Key      string
	InMonth  bool
	Today    bool
	Selected bool
	Slots    []model.Slot
	Overflow bool
}

// MonthOf returns midnight of the first day of t's month, in t's location.
func MonthOf(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// Navigate moves month by delta months.
func Navigate(month time.Time, delta int) time.Time {
	y, m, _ := month.Date()
	return time.Date(y, m+time.Month(delta), 1, 0, 0, 0, 0, month.Location())
}

// ParseMonth reads a YYYY-MM value. An empty or malformed value yields the
// month containing now.
func ParseMonth(raw string, now time.Time) time.Time {
	if t, err := time.ParseInLocation("2006-01", raw, now.Location()); err == nil {
		return t
	}
	return MonthOf(now)
}

// VisibleRange returns the first and last dates shown by the grid of month.
func VisibleRange(month time.Time) (time.Time, time.Time) {
	first := gridStart(month)
	return first, addDays(first, GridCells-1)
}

// ClampToGrid limits the day range a..b (either order) to the visible grid
// of month. ok is false when the range lies entirely outside it.
func ClampToGrid(month, a, b time.Time) (start, end time.Time, ok bool) {
	start, end = day(a), day(b)
	if end.Before(start) {
		start, end = end, start
	}
	first, last := VisibleRange(month)
	if end.Before(first) || start.After(last) {
		return time.Time{}, time.Time{}, false
	}
	if start.Before(first) {
		start = first
	}
	if end.After(last) {
		end = last
	}
	return start, end, true
}

// FormatQueryDate renders a date the way slot queries and batch requests
// send it.
func FormatQueryDate(t time.Time) string {
	return t.Format(QueryFormat)
}

// MonthGrid lays out the 42 cells of month. sel may be nil.
func MonthGrid(month, now time.Time, sel *Selection) []Cell {
	month = MonthOf(month)
	today := DateKey(now.In(month.Location()))
	first := gridStart(month)

	cells := make([]Cell, GridCells)
	for i := range cells {
		d := addDays(first, i)
		key := DateKey(d)
		cells[i] = Cell{
			Date:     d,
			Key:      key,
			InMonth:  d.Month() == month.Month(),
			Today:    key == today,
			Selected: sel != nil && sel.IsSelected(d),
		}
	}
	return cells
}

// AttachSlots fills every cell with the slots starting on that day.
func AttachSlots(cells []Cell, slots []model.Slot) {
	for i := range cells {
		cells[i].Slots = SlotsForDate(slots, cells[i].Date, cells[i].Date.Location())
		cells[i].Overflow = len(cells[i].Slots) > OverflowThreshold
	}
}

// SlotsForDate returns the slots whose start time falls on date in loc,
// ordered by start time.
func SlotsForDate(slots []model.Slot, date time.Time, loc *time.Location) []model.Slot {
	key := DateKey(date.In(loc))
	var out []model.Slot
	for _, s := range slots {
		if DateKey(s.StartTime.In(loc)) == key {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Slot) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out
}

func DateKey(t time.Time) string {
	return t.Format(DateFormat)
}

func gridStart(month time.Time) time.Time {
	first := MonthOf(month)
	return addDays(first, -int(first.Weekday()))
}

// addDays steps by calendar days so DST transitions never shift the date.
func addDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}
