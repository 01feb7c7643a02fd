package listctl

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetFilterResetsLowerLevels(t *testing.T) {
	q := villageScreen.DefaultQuery()
	q.Filters = []string{"KA", "KA-01", "T-9", "GP-3"}
	q.Page = 4

	next := SetFilter(q, 1, "KA-02")
	assert.Equal(t, []string{"KA", "KA-02", AllValue, AllValue}, next.Filters)
	assert.Equal(t, 1, next.Page)
	assert.Equal(t, []string{"KA", "KA-01", "T-9", "GP-3"}, q.Filters, "input must not be mutated")

	next = SetFilter(q, 0, AllValue)
	assert.Equal(t, []string{AllValue, AllValue, AllValue, AllValue}, next.Filters)
}

func TestCascadingInvariantHoldsForRandomTransitions(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []string{AllValue, "1", "2", "3"}
	q := villageScreen.DefaultQuery()
	for i := 0; i < 2000; i++ {
		level := rng.Intn(len(q.Filters))
		value := values[rng.Intn(len(values))]
		if !ParentSelected(q, level) {
			// A level whose parent is "all" is disabled; selecting it is not reachable.
			continue
		}
		q = SetFilter(q, level, value)
		if !Consistent(q.Filters) {
			t.Fatalf("invariant broken after setting level %d to %q: %v", level, value, q.Filters)
		}
	}
}

func TestSetFilterIgnoresUnreachableLevel(t *testing.T) {
	q := villageScreen.DefaultQuery()
	q.Page = 4
	next := SetFilter(q, 2, "T-9")
	assert.True(t, next.Equal(q))
	assert.Equal(t, AllValue, next.Filter(2))
}

func TestConsistent(t *testing.T) {
	assert.True(t, Consistent([]string{"KA", AllValue, AllValue}))
	assert.True(t, Consistent(nil))
	assert.False(t, Consistent([]string{AllValue, "KA-01"}))
}

func TestToggleSort(t *testing.T) {
	q := villageScreen.DefaultQuery()
	q.Page = 5

	desc := ToggleSort(villageScreen, q, "name")
	assert.Equal(t, "name", desc.SortField)
	assert.Equal(t, Descending, desc.SortDirection)
	assert.Equal(t, 1, desc.Page)

	pop := ToggleSort(villageScreen, desc, "population")
	assert.Equal(t, "population", pop.SortField)
	assert.Equal(t, Ascending, pop.SortDirection)

	same := ToggleSort(villageScreen, pop, "area")
	assert.True(t, same.Equal(pop))
}

func TestIndicator(t *testing.T) {
	q := villageScreen.DefaultQuery()
	assert.Equal(t, SortAscending, Indicator(q, "name"))
	assert.Equal(t, SortNeutral, Indicator(q, "population"))
	q.SortDirection = Descending
	assert.Equal(t, SortDescending, Indicator(q, "name"))
	assert.Equal(t, "desc", Indicator(q, "name").String())
}

func TestPaginationHelpers(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 12))
	assert.Equal(t, 1, TotalPages(12, 12))
	assert.Equal(t, 2, TotalPages(13, 12))

	assert.Equal(t, 3, ClampPage(999, 3))
	assert.Equal(t, 1, ClampPage(0, 3))
	assert.Equal(t, 1, ClampPage(2, 0))

	p := NewPagination(5, 10, 95)
	assert.Equal(t, 10, p.TotalPages)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, p.Window(5))
	assert.Equal(t, 41, p.First())
	assert.Equal(t, 50, p.Last())
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = NewPagination(10, 10, 95)
	assert.Equal(t, []int{6, 7, 8, 9, 10}, p.Window(5))
	assert.Equal(t, 95, p.Last())
	assert.False(t, p.HasNext())

	empty := NewPagination(3, 10, 0)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, []int{1}, empty.Window(5))
	assert.Equal(t, 0, empty.First())
}

func TestParsePageInput(t *testing.T) {
	assert.Equal(t, 2, ParsePageInput(" 2 ", 1, 3))
	assert.Equal(t, 1, ParsePageInput("abc", 1, 3))
	assert.Equal(t, 2, ParsePageInput("", 2, 3))
	assert.Equal(t, 3, ParsePageInput("9", 1, 3))
	assert.Equal(t, 3, ParsePageInput("40", 2, 3))
	assert.Equal(t, 1, ParsePageInput("0", 2, 3))
	assert.Equal(t, 1, ParsePageInput("-4", 3, 3))
	assert.Equal(t, 1, ParsePageInput("1", 1, 0))
	assert.Equal(t, 1, ParsePageInput("2", 1, 0))
}

func TestSearchBufferSkipsUnchangedCommit(t *testing.T) {
	b := NewSearchBuffer("pune")
	v := b.Type("pun")
	v2 := b.Type("pune")
	_, ok := b.Settle(v)
	assert.False(t, ok, "stale version must not commit")
	_, ok = b.Settle(v2)
	assert.False(t, ok, "reverting to the committed term must not commit")

	b.Type("nashik")
	term, ok := b.Commit()
	assert.True(t, ok)
	assert.Equal(t, "nashik", term)
	assert.False(t, b.Pending())
}

func TestRequestValues(t *testing.T) {
	q := districtScreen.DefaultQuery()
	q.Filters[0] = "KA"
	values := RequestFor(districtScreen, q).Values()
	assert.Equal(t, "KA", values.Get("state_id"))
	assert.Equal(t, "1", values.Get("sort_order"))
	_, hasSearch := values["search"]
	assert.False(t, hasSearch)

	q.SortDirection = Descending
	q.Search = "bel"
	values = RequestFor(districtScreen, q).Values()
	assert.Equal(t, "0", values.Get("sort_order"))
	assert.Equal(t, "bel", values.Get("search"))
}
