package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sort-storage/admin/internal/model"
)

func TestWindowSet_ToggleKeepsSorted(t *testing.T) {
	w := NewWindowSet()
	w.Toggle("13:00-15:00")
	w.Toggle("07:00-09:00")
	w.Toggle("21:00-23:00")
	w.Toggle("bogus")

	assert.Equal(t, []string{"07:00-09:00", "13:00-15:00", "21:00-23:00"}, w.Selected())

	w.Toggle("13:00-15:00")
	assert.Equal(t, []string{"07:00-09:00", "21:00-23:00"}, w.Selected())
}

func TestWindowSet_SelectAllAndClear(t *testing.T) {
	w := NewWindowSet("09:00-11:00")

	w.SelectAll()
	assert.Len(t, w.Selected(), 8)
	assert.True(t, w.Has("21:00-23:00"))

	w.Clear()
	assert.Empty(t, w.Selected())
}

func TestBatchRequest_EmptyInputs(t *testing.T) {
	assert.Nil(t, BatchRequest(nil, "dropoff", TimeWindows, 3))
	assert.Nil(t, BatchRequest([]time.Time{date(2026, 10, 1)}, "dropoff", nil, 3))
}

func TestBatchRequest_SingleDaySpansToNextMidnight(t *testing.T) {
	req := BatchRequest([]time.Time{date(2026, 10, 31)}, "pickup", []string{"07:00-09:00"}, 4)

	require.NotNil(t, req)
	assert.Equal(t, "pickup", req.SlotType)
	assert.Equal(t, "2026-10-31T00:00:00.000Z", req.StartDate)
	assert.Equal(t, "2026-11-01T00:00:00.000Z", req.EndDate)
	assert.Equal(t, []string{"07:00-09:00"}, req.TimeSlots)
	assert.Equal(t, 4, req.MaxCapacity)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, req.Weekdays)
}

func TestBatchRequest_RangeUsesEarliestAndLatest(t *testing.T) {
	dates := []time.Time{date(2026, 10, 14), date(2026, 10, 12), date(2026, 10, 13)}

	req := BatchRequest(dates, "dropoff", TimeWindows[:2], 0)

	require.NotNil(t, req)
	assert.Equal(t, "2026-10-12T00:00:00.000Z", req.StartDate)
	assert.Equal(t, "2026-10-14T00:00:00.000Z", req.EndDate)
	assert.Equal(t, 1, req.MaxCapacity, "capacity is at least 1")
}

func TestSlotUpdate(t *testing.T) {
	slot := model.Slot{ID: "s1", MaxCapacity: 5, CurrentCapacity: 3}

	req, err := SlotUpdate(slot, 5)
	require.NoError(t, err)
	assert.True(t, req.IsEmpty())

	req, err = SlotUpdate(slot, 8)
	require.NoError(t, err)
	require.NotNil(t, req.MaxCapacity)
	assert.Equal(t, 8, *req.MaxCapacity)

	_, err = SlotUpdate(slot, 2)
	assert.True(t, errors.Is(err, ErrBelowBookings))

	_, err = SlotUpdate(slot, 0)
	assert.Error(t, err)
}
