package listctl

import "slices"

// SortIndicator is what a column header shows for the active sort.
type SortIndicator int

const (
	SortNeutral SortIndicator = iota
	SortAscending
	SortDescending
)

// String returns a short label used by templates.
func (s SortIndicator) String() string {
	switch s {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return "none"
	}
}

// ToggleSort flips the direction when field is already active, otherwise it
// activates field ascending. Fields not sortable on screen are ignored.
func ToggleSort(screen Screen, q Query, field string) Query {
	if !slices.Contains(screen.SortFields, field) {
		return q
	}
	next := q.Clone()
	if next.SortField == field {
		next.SortDirection = next.SortDirection.Flip()
	} else {
		next.SortField = field
		next.SortDirection = Ascending
	}
	next.Page = 1
	return next
}

// Indicator derives the header state of candidate from the active sort.
func Indicator(q Query, candidate string) SortIndicator {
	if q.SortField != candidate {
		return SortNeutral
	}
	if q.SortDirection == Descending {
		return SortDescending
	}
	return SortAscending
}
