package listctl

// SetFilter selects value for level i and resets every level below it to
// AllValue. Any filter change returns to the first page. A concrete value
// for a level whose parent is "all" is ignored.
func SetFilter(q Query, i int, value string) Query {
	if i < 0 || i >= len(q.Filters) {
		return q
	}
	if value == "" {
		value = AllValue
	}
	if value != AllValue && !ParentSelected(q, i) {
		return q
	}
	next := q.Clone()
	next.Filters[i] = value
	for j := i + 1; j < len(next.Filters); j++ {
		next.Filters[j] = AllValue
	}
	next.Page = 1
	return next
}

// Consistent reports whether filters satisfy the cascading invariant: once a
// level is "all", every level after it is "all" as well.
func Consistent(filters []string) bool {
	open := false
	for _, f := range filters {
		if open && f != AllValue {
			return false
		}
		if f == AllValue {
			open = true
		}
	}
	return true
}

// ParentSelected reports whether level i can offer options, that is whether
// its parent holds a concrete selection. The root level always can.
func ParentSelected(q Query, i int) bool {
	if i == 0 {
		return true
	}
	return q.Filter(i-1) != AllValue
}

func normalizeFilters(n int, filters []string) []string {
	out := make([]string, n)
	open := false
	for i := range out {
		v := AllValue
		if i < len(filters) && filters[i] != "" {
			v = filters[i]
		}
		if open {
			v = AllValue
		}
		if v == AllValue {
			open = true
		}
		out[i] = v
	}
	return out
}
