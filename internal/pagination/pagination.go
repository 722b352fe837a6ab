// Package pagination computes page windows for the paginated tables.
package pagination

import (
	"fmt"
	"slices"
	"strconv"
)

// WindowSize is the number of page links shown at once.
const WindowSize = 5

const DefaultPageSize = 10

// MaxPage caps page numbers read from requests.
const MaxPage = 1_000_000

// PageSizes are the sizes offered by the page size selector.
var PageSizes = []int{10, 20, 50, 100}

type Page struct {
	Current    int
	Size       int
	Total      int
	TotalPages int
	Numbers    []int
}

// New clamps current into the available pages and computes the link window.
func New(current, size, total int) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	totalPages := TotalPages(total, size)
	current = min(max(current, 1), max(totalPages, 1))
	return Page{
		Current:    current,
		Size:       size,
		Total:      total,
		TotalPages: totalPages,
		Numbers:    Window(current, totalPages),
	}
}

func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Window returns up to WindowSize page numbers around current: the first
// pages near the start, the last pages near the end, centered otherwise.
func Window(current, totalPages int) []int {
	n := min(WindowSize, totalPages)
	out := make([]int, 0, n)
	for i := range n {
		var p int
		switch {
		case totalPages <= WindowSize, current <= 3:
			p = i + 1
		case current >= totalPages-2:
			p = totalPages - WindowSize + 1 + i
		default:
			p = current - 2 + i
		}
		out = append(out, p)
	}
	return out
}

// Bounds returns the slice bounds of the current page within Total items.
func (p Page) Bounds() (int, int) {
	if p.Total <= 0 || p.Size < 1 {
		return 0, 0
	}
	current := min(max(p.Current, 1), TotalPages(p.Total, p.Size))
	start := (current - 1) * p.Size
	return start, min(start+p.Size, p.Total)
}

// Range renders "start-end of total". An empty list renders "0-0 of 0".
func (p Page) Range() string {
	start, end := p.Bounds()
	if p.Total == 0 {
		return "0-0 of 0"
	}
	return fmt.Sprintf("%d-%d of %d", start+1, end, p.Total)
}

func (p Page) HasPrev() bool { return p.Current > 1 }
func (p Page) HasNext() bool { return p.Current < p.TotalPages }
func (p Page) Prev() int     { return max(p.Current-1, 1) }
func (p Page) Next() int     { return min(p.Current+1, max(p.TotalPages, 1)) }

// Slice returns the items of the current page.
func Slice[T any](items []T, p Page) []T {
	start, end := p.Bounds()
	if start >= len(items) {
		return nil
	}
	return items[start:min(end, len(items))]
}

// ParsePage reads a 1-based page number, defaulting to 1 and capped at
// MaxPage.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return min(n, MaxPage)
}

// ParseSize accepts only the offered page sizes.
func ParseSize(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || !slices.Contains(PageSizes, n) {
		return def
	}
	return n
}
