// Package export renders user and order listings as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sort-storage/admin/internal/enum"
	"github.com/sort-storage/admin/internal/model"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04"

var userHeader = []any{"ID", "Email", "Name", "Account Type", "Phone", "City", "Country", "Email Verified", "Created At"}

var orderHeader = []any{"ID", "User ID", "Type", "Status", "Boxes", "Scheduled", "Created At"}

// UsersWorkbook writes one row per user to a "Users" sheet.
func UsersWorkbook(users []model.User, loc *time.Location) (*excelize.File, error) {
	rows := make([][]any, len(users))
	for i, u := range users {
		rows[i] = []any{
			u.ID, u.Email, u.FullName(), u.AccountType, u.PhoneNumber,
			u.City, u.Country, u.EmailVerified, formatTime(u.CreatedAt, loc),
		}
	}
	return workbook("Users", userHeader, rows)
}

// OrdersWorkbook writes one row per order to a sheet named after status.
func OrdersWorkbook(status string, orders []model.OrderSummary, loc *time.Location) (*excelize.File, error) {
	rows := make([][]any, len(orders))
	for i, o := range orders {
		scheduled := ""
		if o.ScheduledDate != nil {
			scheduled = formatTime(*o.ScheduledDate, loc)
		}
		rows[i] = []any{
			o.ID, o.UserID, enum.OrderTypeLabel(o.OrderType), o.Status,
			o.BoxCount, scheduled, formatTime(o.CreatedAt, loc),
		}
	}
	name := "Orders"
	if status != "" {
		name = "Orders " + status
	}
	return workbook(name, orderHeader, rows)
}

// Write streams f to w and closes it.
func Write(w io.Writer, f *excelize.File) error {
	defer func() { _ = f.Close() }()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func workbook(sheet string, header []any, rows [][]any) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("apply header style: %w", err)
	}
	return f, nil
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timeLayout)
}
