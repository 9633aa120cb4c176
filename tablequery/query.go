// Package tablequery implements search, sort and pagination over in-memory rows
package tablequery

import (
	"sort"
	"strings"

	"github.com/amirphl/Lovelify-Dash/utils"
)

// Direction is the sort direction of a Query
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps anything other than "desc" (case-insensitive) to Asc
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Query describes one table request
type Query struct {
	Search    string    `json:"search"`
	SortBy    string    `json:"sort_by"`
	Direction Direction `json:"direction"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
}

// Less reports whether a sorts before b
type Less[T any] func(a, b T) bool

// Schema tells Apply how to search and sort rows of type T
type Schema[T any] struct {
	// SearchFields returns the texts matched against Query.Search
	SearchFields func(item T) []string
	// Sorters maps a sort key to its ascending comparator
	Sorters map[string]Less[T]
	// Filters are extra predicates; an item is kept only if every filter returns true
	Filters []func(item T) bool
}

// Page is one page of results
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// Normalize clamps paging values and direction to their accepted ranges
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = utils.DefaultPageSize
	}
	if q.PageSize > utils.MaxPageSize {
		q.PageSize = utils.MaxPageSize
	}
	if q.Direction != Desc {
		q.Direction = Asc
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Offset returns the number of rows skipped before the current page
func (q Query) Offset() int {
	n := q.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Apply filters, then sorts, then paginates items. The input slice is not modified.
func Apply[T any](items []T, q Query, schema Schema[T]) Page[T] {
	q = q.Normalize()

	filtered := Filter(items, q.Search, schema)
	sorted := Sort(filtered, q.SortBy, q.Direction, schema)

	return Paginate(sorted, q.Page, q.PageSize)
}

// Filter keeps items matching search (case-insensitive substring over SearchFields)
// and every extra predicate. It always returns a new slice.
func Filter[T any](items []T, search string, schema Schema[T]) []T {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle != "" && !matches(item, needle, schema.SearchFields) {
			continue
		}
		if !passes(item, schema.Filters) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matches[T any](item T, needle string, fields func(T) []string) bool {
	if fields == nil {
		return false
	}
	for _, f := range fields(item) {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func passes[T any](item T, filters []func(T) bool) bool {
	for _, f := range filters {
		if f != nil && !f(item) {
			return false
		}
	}
	return true
}

// Sort returns a sorted copy of items. Ascending order is stable; descending order
// is the exact reverse of ascending. An unknown key returns the items in their original order.
func Sort[T any](items []T, key string, dir Direction, schema Schema[T]) []T {
	out := make([]T, len(items))
	copy(out, items)

	less, ok := schema.Sorters[key]
	if !ok || less == nil {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if dir == Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Paginate slices items into the requested page, clamping page and size first
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	q := Query{Page: page, PageSize: pageSize}.Normalize()

	total := len(items)
	totalPages := (total + q.PageSize - 1) / q.PageSize

	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	pageItems := make([]T, end-start)
	copy(pageItems, items[start:end])

	return Page[T]{
		Items:      pageItems,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalCount: int64(total),
		TotalPages: totalPages,
	}
}

// TotalPages computes the page count for a total row count
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
