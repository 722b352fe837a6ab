package web

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/enum"
	"github.com/sort-storage/admin/internal/export"
	"github.com/sort-storage/admin/internal/model"
	"github.com/sort-storage/admin/internal/pagination"
)

type orderTable struct {
	Key     string
	Title   string
	Empty   string
	Orders  []model.OrderSummary
	Page    pagination.Page
	Sizes   []int
	baseURL url.Values
}

// PageURL links to page p of this table, keeping the other table's state.
func (t orderTable) PageURL(p int) string {
	q := cloneValues(t.baseURL)
	q.Set(t.Key+"_page", strconv.Itoa(p))
	q.Set(t.Key+"_size", strconv.Itoa(t.Page.Size))
	return "/dashboard?" + q.Encode()
}

// Hidden are the query values a page size form must carry besides its own.
func (t orderTable) Hidden() url.Values {
	q := cloneValues(t.baseURL)
	q.Del(t.Key + "_page")
	q.Del(t.Key + "_size")
	return q
}

type dashboardView struct {
	Pending    orderTable
	Processing orderTable
	ShowAll    bool
	TodayCount int
	AllCount   int
	ToggleURL  string
	Today      time.Time
}

func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	pending, err := s.q.OrdersByStatus(r.Context(), sess, enum.OrderStatusPending)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	processing, err := s.q.OrdersByStatus(r.Context(), sess, enum.OrderStatusProcessing)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	showAll := q.Get("all") == "1"
	now := s.now().In(s.loc)
	today := ScheduledOn(processing.Orders, now)

	shown := today
	if showAll {
		shown = processing.Orders
	}

	base := url.Values{}
	for _, k := range []string{"all", "pending_page", "pending_size", "processing_page", "processing_size"} {
		if v := q.Get(k); v != "" {
			base.Set(k, v)
		}
	}

	toggle := cloneValues(base)
	toggle.Del("processing_page")
	if showAll {
		toggle.Del("all")
	} else {
		toggle.Set("all", "1")
	}

	view := dashboardView{
		Pending: newOrderTable("pending", "Pending Orders", "No pending orders", pending.Orders, q, base),
		Processing: newOrderTable("processing", "Processing Orders",
			"No processing orders scheduled for today", shown, q, base),
		ShowAll:    showAll,
		TodayCount: len(today),
		AllCount:   len(processing.Orders),
		ToggleURL:  "/dashboard?" + toggle.Encode(),
		Today:      now,
	}
	if showAll {
		view.Processing.Empty = "No processing orders"
	}
	s.render(w, http.StatusOK, "dashboard.html", s.page(r, "Dashboard", "dashboard", view))
}

func newOrderTable(key, title, empty string, orders []model.OrderSummary, q, base url.Values) orderTable {
	size := pagination.ParseSize(q.Get(key+"_size"), pagination.DefaultPageSize)
	page := pagination.New(pagination.ParsePage(q.Get(key+"_page")), size, len(orders))
	return orderTable{
		Key:     key,
		Title:   title,
		Empty:   empty,
		Orders:  pagination.Slice(orders, page),
		Page:    page,
		Sizes:   pagination.PageSizes,
		baseURL: base,
	}
}

// ScheduledOn keeps the orders scheduled within the local day of now.
func ScheduledOn(orders []model.OrderSummary, now time.Time) []model.OrderSummary {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())

	var out []model.OrderSummary
	for _, o := range orders {
		if o.ScheduledDate == nil {
			continue
		}
		if !o.ScheduledDate.Before(start) && o.ScheduledDate.Before(end) {
			out = append(out, o)
		}
	}
	return out
}

// ExportOrders downloads the orders of one status as a workbook.
func (s *Server) ExportOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = enum.OrderStatusPending
	}

	resp, err := s.q.OrdersByStatus(r.Context(), session(r), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	f, err := export.OrdersWorkbook(status, resp.Orders, s.loc)
	if err != nil {
		s.logger.Error("build orders workbook", zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	writeWorkbook(w, "orders-"+url.PathEscape(status)+".xlsx")
	if err := export.Write(w, f); err != nil {
		s.logger.Error("write orders workbook", zap.Error(err))
	}
}

func writeWorkbook(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
