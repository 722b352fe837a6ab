// Package location validates the storage location form and formats location
// figures for display.
package location

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/sort-storage/admin/internal/model"
)

const MaxNameLength = 100

type Form struct {
	Name     string
	Address  string
	Capacity int
}

// ParseForm reads name, address and capacity. A capacity that does not parse
// is treated as zero and fails validation.
func ParseForm(values url.Values) Form {
	capacity, _ := strconv.Atoi(strings.TrimSpace(values.Get("capacity")))
	return Form{
		Name:     strings.TrimSpace(values.Get("name")),
		Address:  strings.TrimSpace(values.Get("address")),
		Capacity: capacity,
	}
}

// FormFrom prefills the edit form.
func FormFrom(l model.StorageLocation) Form {
	return Form{Name: l.Name, Address: l.Address, Capacity: l.Capacity}
}

// Validate returns a message per invalid field, or nil.
func (f Form) Validate() map[string]string {
	errs := make(map[string]string)
	switch {
	case f.Name == "":
		errs["name"] = "Name is required"
	case utf8.RuneCountInString(f.Name) > MaxNameLength:
		errs["name"] = "Name must be less than 100 characters"
	}
	if f.Address == "" {
		errs["address"] = "Address is required"
	}
	if f.Capacity < 1 {
		errs["capacity"] = "Capacity must be at least 1"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (f Form) CreateRequest() model.CreateStorageLocationRequest {
	return model.CreateStorageLocationRequest{Name: f.Name, Address: f.Address, Capacity: f.Capacity}
}

// UpdateRequest carries only the fields that differ from current.
func (f Form) UpdateRequest(current model.StorageLocation) model.UpdateStorageLocationRequest {
	var req model.UpdateStorageLocationRequest
	if f.Name != current.Name {
		req.Name = &f.Name
	}
	if f.Address != current.Address {
		req.Address = &f.Address
	}
	if f.Capacity != current.Capacity {
		req.Capacity = &f.Capacity
	}
	return req
}

// FormatUtilization renders a percentage with one decimal, e.g. "42.5%".
func FormatUtilization(rate float64) string {
	return decimal.NewFromFloat(rate).StringFixed(1) + "%"
}

// UtilizationWidth clamps a rate to [0, 100] for progress bars.
func UtilizationWidth(rate float64) string {
	d := decimal.NewFromFloat(rate)
	d = decimal.Max(decimal.Zero, decimal.Min(d, decimal.NewFromInt(100)))
	return d.StringFixed(1)
}
