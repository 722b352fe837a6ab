package calendar

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sort-storage/admin/internal/model"
)

// TimeWindows are the bookable windows offered by the batch slot form.
var TimeWindows = []string{
	"07:00-09:00",
	"09:00-11:00",
	"11:00-13:00",
	"13:00-15:00",
	"15:00-17:00",
	"17:00-19:00",
	"19:00-21:00",
	"21:00-23:00",
}

// AllWeekdays is sent with every batch request, Sunday first.
var AllWeekdays = []int{0, 1, 2, 3, 4, 5, 6}

var ErrBelowBookings = errors.New("max capacity cannot be lower than current bookings")

// WindowSet is the selection of the time window picker. Windows are kept
// sorted.
type WindowSet struct {
	selected []string
}

func NewWindowSet(windows ...string) *WindowSet {
	w := &WindowSet{}
	for _, win := range windows {
		if !w.Has(win) {
			w.Toggle(win)
		}
	}
	return w
}

// Toggle adds or removes win. Unknown windows are ignored.
func (w *WindowSet) Toggle(win string) {
	if !slices.Contains(TimeWindows, win) {
		return
	}
	if i := slices.Index(w.selected, win); i >= 0 {
		w.selected = slices.Delete(w.selected, i, i+1)
		return
	}
	w.selected = append(w.selected, win)
	slices.Sort(w.selected)
}

func (w *WindowSet) SelectAll() {
	w.selected = slices.Clone(TimeWindows)
}

func (w *WindowSet) Clear() {
	w.selected = nil
}

func (w *WindowSet) Has(win string) bool {
	return slices.Contains(w.selected, win)
}

func (w *WindowSet) Selected() []string {
	return slices.Clone(w.selected)
}

// BatchRequest builds the batch creation request for the selected days and
// windows. It returns nil when either is empty. A single day spans to the
// next midnight; otherwise the range ends on the last selected day.
func BatchRequest(dates []time.Time, slotType string, windows []string, maxCapacity int) *model.CreateBatchSlotsRequest {
	if len(dates) == 0 || len(windows) == 0 {
		return nil
	}
	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	start := day(sorted[0])
	end := day(sorted[len(sorted)-1])
	if len(sorted) == 1 {
		end = addDays(start, 1)
	}

	return &model.CreateBatchSlotsRequest{
		SlotType:    slotType,
		StartDate:   FormatQueryDate(start),
		EndDate:     FormatQueryDate(end),
		TimeSlots:   slices.Clone(windows),
		MaxCapacity: max(maxCapacity, 1),
		Weekdays:    slices.Clone(AllWeekdays),
	}
}

// SlotUpdate diffs the edit form against slot. An unchanged form yields an
// empty request, which callers must not send.
func SlotUpdate(slot model.Slot, maxCapacity int) (model.UpdateSlotRequest, error) {
	if maxCapacity < 1 {
		return model.UpdateSlotRequest{}, errors.New("max capacity must be at least 1")
	}
	if maxCapacity < slot.CurrentCapacity {
		return model.UpdateSlotRequest{}, fmt.Errorf("%w (%d booked)", ErrBelowBookings, slot.CurrentCapacity)
	}
	if maxCapacity == slot.MaxCapacity {
		return model.UpdateSlotRequest{}, nil
	}
	return model.UpdateSlotRequest{MaxCapacity: &maxCapacity}, nil
}
