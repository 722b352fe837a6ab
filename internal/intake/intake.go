// Package intake validates the box intake form submitted from the order page
// and turns it into a batch intake request.
package intake

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sort-storage/admin/internal/model"
)

const (
	FieldHeight     = "height"
	FieldWidth      = "width"
	FieldLength     = "length"
	FieldWeight     = "weight"
	FieldLocationID = "location_id"
	FieldNotes      = "notes"
)

// Box is one row of the form. Measurements keep the submitted precision
// until the request is built.
type Box struct {
	Height     decimal.Decimal
	Width      decimal.Decimal
	Length     decimal.Decimal
	Weight     decimal.Decimal
	LocationID string
	Notes      string
}

// FieldError ties a message to one input of one box.
type FieldError struct {
	BoxIndex int
	Field    string
	Message  string
}

type Form struct {
	Boxes  []Box
	Errors []FieldError
}

// NewForm starts with a single empty box.
func NewForm() *Form {
	return &Form{Boxes: []Box{{}}}
}

// ParseForm reads repeated box fields. The i-th value of every field belongs
// to box i; missing or unparsable numbers read as zero.
func ParseForm(values url.Values) *Form {
	n := 0
	for _, field := range []string{FieldHeight, FieldWidth, FieldLength, FieldWeight, FieldLocationID, FieldNotes} {
		n = max(n, len(values[field]))
	}
	if n == 0 {
		return NewForm()
	}

	f := &Form{Boxes: make([]Box, n)}
	for i := range f.Boxes {
		f.Boxes[i] = Box{
			Height:     number(values[FieldHeight], i),
			Width:      number(values[FieldWidth], i),
			Length:     number(values[FieldLength], i),
			Weight:     number(values[FieldWeight], i),
			LocationID: text(values[FieldLocationID], i),
			Notes:      text(values[FieldNotes], i),
		}
	}
	return f
}

func (f *Form) Add() {
	f.Boxes = append(f.Boxes, Box{})
}

// Remove deletes box i together with its errors. The last remaining box
// cannot be removed.
func (f *Form) Remove(i int) bool {
	if len(f.Boxes) <= 1 || i < 0 || i >= len(f.Boxes) {
		return false
	}
	f.Boxes = append(f.Boxes[:i], f.Boxes[i+1:]...)

	kept := f.Errors[:0]
	for _, e := range f.Errors {
		switch {
		case e.BoxIndex == i:
			continue
		case e.BoxIndex > i:
			e.BoxIndex--
		}
		kept = append(kept, e)
	}
	f.Errors = kept
	return true
}

// Validate replaces Errors with the problems found and reports whether the
// form can be submitted.
func (f *Form) Validate() bool {
	f.Errors = Validate(f.Boxes)
	return len(f.Errors) == 0
}

// ErrorFor returns the message for one input, or "".
func (f *Form) ErrorFor(box int, field string) string {
	for _, e := range f.Errors {
		if e.BoxIndex == box && e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Request builds the upstream payload. Call it only after Validate.
func (f *Form) Request() model.BatchIntakeRequest {
	req := model.BatchIntakeRequest{Boxes: make([]model.IntakeBox, len(f.Boxes))}
	for i, b := range f.Boxes {
		req.Boxes[i] = model.IntakeBox{
			VerifiedDimensions: model.Dimensions{
				Height: b.Height.InexactFloat64(),
				Width:  b.Width.InexactFloat64(),
				Length: b.Length.InexactFloat64(),
			},
			Weight:     b.Weight.InexactFloat64(),
			LocationID: strings.TrimSpace(b.LocationID),
			Notes:      b.Notes,
		}
	}
	return req
}

func Validate(boxes []Box) []FieldError {
	var errs []FieldError
	for i, b := range boxes {
		for _, check := range []struct {
			field string
			value decimal.Decimal
			label string
		}{
			{FieldHeight, b.Height, "Height"},
			{FieldWidth, b.Width, "Width"},
			{FieldLength, b.Length, "Length"},
			{FieldWeight, b.Weight, "Weight"},
		} {
			if !check.value.IsPositive() {
				errs = append(errs, FieldError{BoxIndex: i, Field: check.field, Message: check.label + " must be greater than 0"})
			}
		}
		if strings.TrimSpace(b.LocationID) == "" {
			errs = append(errs, FieldError{BoxIndex: i, Field: FieldLocationID, Message: "Please select a location"})
		}
	}
	return errs
}

func number(values []string, i int) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(text(values, i)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func text(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
