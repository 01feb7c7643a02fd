package listctl

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"
)

type village struct {
	ID   string
	Name string
}

var villageScreen = Screen{
	Name:     "villages",
	Title:    "Villages",
	Resource: "villages",
	Levels: []Level{
		{Key: "state", Param: "state_id", Resource: "states"},
		{Key: "district", ParentKey: "state", Param: "district_id", Resource: "districts"},
		{Key: "taluk", ParentKey: "district", Param: "taluk_id", Resource: "taluks"},
		{Key: "gp", ParentKey: "taluk", Param: "gram_panchayat_id", Resource: "gram-panchayats"},
	},
	SortFields:      []string{"name", "population", "pincode"},
	DefaultSort:     "name",
	PageSizes:       []int{12, 24, 48},
	DefaultPageSize: 12,
	Debounce:        20 * time.Millisecond,
}

var districtScreen = Screen{
	Name:     "districts",
	Resource: "districts",
	Levels: []Level{
		{Key: "state", Param: "state_id", Resource: "states"},
	},
	SortFields:      []string{"name", "population"},
	DefaultSort:     "name",
	PageSizes:       []int{12, 24},
	DefaultPageSize: 12,
}

type fakeSource struct {
	mu        sync.Mutex
	requests  []Request
	respond   func(Request) (PageResult[village], error)
	deleteErr error
	deleted   []string
}

func (f *fakeSource) List(ctx context.Context, req Request) (PageResult[village], error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	if respond == nil {
		return PageResult[village]{}, nil
	}
	return respond(req)
}

func (f *fakeSource) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSource) calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func (f *fakeSource) reset() {
	f.mu.Lock()
	f.requests = nil
	f.mu.Unlock()
}

// pagedVillages serves total records split into pages of the requested size.
func pagedVillages(total int) func(Request) (PageResult[village], error) {
	return func(req Request) (PageResult[village], error) {
		pages := TotalPages(total, req.PerPage)
		var items []village
		for i := (req.Page - 1) * req.PerPage; i < min(total, req.Page*req.PerPage); i++ {
			items = append(items, village{ID: strconv.Itoa(i + 1), Name: "Village " + strconv.Itoa(i+1)})
		}
		return PageResult[village]{Items: items, Total: total, TotalPages: pages}, nil
	}
}

type fakeOptions struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeOptions) Options(ctx context.Context, q OptionQuery) ([]Option, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.Resource+":"+q.ParentID)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []Option{{ID: q.Resource + "-1", Label: "First"}, {ID: q.Resource + "-2", Label: "Second"}}, nil
}

type recordingLocation struct {
	writes []url.Values
}

func (l *recordingLocation) Replace(values url.Values) {
	l.writes = append(l.writes, values)
}

func (l *recordingLocation) last() url.Values {
	if len(l.writes) == 0 {
		return nil
	}
	return l.writes[len(l.writes)-1]
}

type userError struct{ msg string }

func (e userError) Error() string       { return "api: " + e.msg }
func (e userError) UserMessage() string { return e.msg }

var errBoom = errors.New("boom")
