package listctl

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	paramSearch = "q"
	paramSort   = "sort"
	paramDir    = "dir"
	paramPage   = "page"
	paramSize   = "size"
)

// Location is the externally visible key-value state of a screen, usually
// the address bar. Replace must overwrite it in place without adding a
// history entry.
type Location interface {
	Replace(values url.Values)
}

// LocationFunc adapts a function to Location.
type LocationFunc func(url.Values)

// Replace calls f(values).
func (f LocationFunc) Replace(values url.Values) { f(values) }

// Codec maps a Query to and from its external representation, omitting every
// field that holds its default value.
type Codec struct {
	screen Screen
}

// NewCodec returns the codec of screen.
func NewCodec(screen Screen) Codec {
	return Codec{screen: screen}
}

// Encode returns the minimal representation of q.
func (c Codec) Encode(q Query) url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set(paramSearch, q.Search)
	}
	for i, level := range c.screen.Levels {
		if f := q.Filter(i); f != AllValue {
			v.Set(level.Key, f)
		}
	}
	if q.SortField != "" && q.SortField != c.screen.DefaultSort {
		v.Set(paramSort, q.SortField)
	}
	if q.SortDirection == Descending {
		v.Set(paramDir, Descending.String())
	}
	if q.Page > 1 {
		v.Set(paramPage, strconv.Itoa(q.Page))
	}
	if q.PageSize != 0 && q.PageSize != c.screen.DefaultPageSize {
		v.Set(paramSize, strconv.Itoa(q.PageSize))
	}
	return v
}

// Decode rebuilds a Query from values. Unknown or malformed values fall back
// to the field default; filters are normalised to the cascading invariant.
func (c Codec) Decode(values url.Values) Query {
	q := c.screen.DefaultQuery()
	q.Search = values.Get(paramSearch)

	raw := make([]string, len(c.screen.Levels))
	for i, level := range c.screen.Levels {
		raw[i] = strings.TrimSpace(values.Get(level.Key))
	}
	q.Filters = normalizeFilters(len(c.screen.Levels), raw)

	if field := values.Get(paramSort); slices.Contains(c.screen.SortFields, field) {
		q.SortField = field
	}
	if values.Get(paramDir) == Descending.String() {
		q.SortDirection = Descending
	}
	if page, err := strconv.Atoi(values.Get(paramPage)); err == nil && page > 1 {
		q.Page = page
	}
	if size, err := strconv.Atoi(values.Get(paramSize)); err == nil && allowedPageSize(c.screen, size) {
		q.PageSize = size
	}
	return q
}

// Href renders the representation of q as a relative URL on path.
func (c Codec) Href(path string, q Query) string {
	encoded := c.Encode(q).Encode()
	if encoded == "" {
		return path
	}
	return path + "?" + encoded
}
