package listctl

import (
	"net/url"
	"slices"
	"strconv"
)

// SortDirection is the direction of the active sort column.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// String returns the external spelling of the direction.
func (d SortDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Query is the canonical, serialisable shape of a list request.
type Query struct {
	Search        string
	Filters       []string
	SortField     string
	SortDirection SortDirection
	Page          int
	PageSize      int
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	q.Filters = slices.Clone(q.Filters)
	return q
}

// Equal reports whether two queries describe the same request.
func (q Query) Equal(other Query) bool {
	return q.Search == other.Search &&
		slices.Equal(q.Filters, other.Filters) &&
		q.SortField == other.SortField &&
		q.SortDirection == other.SortDirection &&
		q.Page == other.Page &&
		q.PageSize == other.PageSize
}

// Filter returns the selection of level i, AllValue when out of range.
func (q Query) Filter(i int) string {
	if i < 0 || i >= len(q.Filters) || q.Filters[i] == "" {
		return AllValue
	}
	return q.Filters[i]
}

// Request is the list call derived from a Query.
type Request struct {
	Page      int
	PerPage   int
	SortBy    string
	SortOrder int
	Search    string
	// Filters maps endpoint parameters to concrete ids; "all" levels are absent.
	Filters map[string]string
}

// Values encodes the request using the list endpoint parameter names.
func (r Request) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(r.Page))
	v.Set("per_page", strconv.Itoa(r.PerPage))
	v.Set("sort_by", r.SortBy)
	v.Set("sort_order", strconv.Itoa(r.SortOrder))
	if r.Search != "" {
		v.Set("search", r.Search)
	}
	for param, id := range r.Filters {
		v.Set(param, id)
	}
	return v
}

// RequestFor maps q onto the list endpoint contract of screen.
func RequestFor(screen Screen, q Query) Request {
	order := 1
	if q.SortDirection == Descending {
		order = 0
	}
	filters := make(map[string]string)
	for i, level := range screen.Levels {
		if id := q.Filter(i); id != AllValue {
			filters[level.Param] = id
		}
	}
	return Request{
		Page:      q.Page,
		PerPage:   q.PageSize,
		SortBy:    q.SortField,
		SortOrder: order,
		Search:    q.Search,
		Filters:   filters,
	}
}

// PageResult is one page of records returned by a list endpoint.
type PageResult[T any] struct {
	Items      []T
	Total      int
	TotalPages int
}

// Option is one entry of a dependent filter dropdown.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// OptionQuery selects the choices of one filter level: every record of
// Resource whose ParentParam equals ParentID. The root level has no parent.
type OptionQuery struct {
	Resource    string
	ParentParam string
	ParentID    string
}

// Values encodes the option request. Option lists fill a dropdown, so they
// are capped at OptionsPageSize and sorted by name.
func (q OptionQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", "1")
	v.Set("per_page", strconv.Itoa(OptionsPageSize))
	v.Set("sort_by", "name")
	v.Set("sort_order", "1")
	if q.ParentParam != "" && q.ParentID != "" {
		v.Set(q.ParentParam, q.ParentID)
	}
	return v
}

// Key identifies the option list for caching.
func (q OptionQuery) Key() string {
	if q.ParentParam == "" {
		return q.Resource
	}
	return q.Resource + ":" + q.ParentParam + "=" + q.ParentID
}
