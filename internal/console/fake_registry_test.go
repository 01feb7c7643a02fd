package console_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeRegistry is an in-memory registry API speaking the envelope format.
type fakeRegistry struct {
	mu        sync.Mutex
	data      map[string][]map[string]any
	nextID    int
	failList  map[string]int
	failWrite map[string]string
	lists     []string
	writes    []map[string]any
}

func newFakeRegistry() *fakeRegistry {
	f := &fakeRegistry{
		data:      map[string][]map[string]any{},
		nextID:    100,
		failList:  map[string]int{},
		failWrite: map[string]string{},
	}
	f.data["states"] = []map[string]any{{"id": 29, "name": "Karnataka"}, {"id": 32, "name": "Kerala"}}
	f.data["districts"] = []map[string]any{{"id": 4, "name": "Bengaluru Urban", "state_id": 29}}
	f.data["gram-panchayats"] = []map[string]any{{"id": 11, "name": "Hoskote GP"}}
	f.seedVillages(13)
	return f
}

func (f *fakeRegistry) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	resource := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		f.list(w, r, resource)
	case len(parts) == 1 && r.Method == http.MethodPost:
		if msg, ok := f.failWrite[resource]; ok {
			reply(w, http.StatusUnprocessableEntity, map[string]any{"success": false, "message": msg})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.nextID++
		body["id"] = f.nextID
		f.data[resource] = append(f.data[resource], body)
		f.writes = append(f.writes, body)
		reply(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"id": f.nextID}})
	case len(parts) == 2:
		f.record(w, r, resource, parts[1])
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeRegistry) list(w http.ResponseWriter, r *http.Request, resource string) {
	f.lists = append(f.lists, resource+"?"+r.URL.RawQuery)
	if status, ok := f.failList[resource]; ok {
		reply(w, status, map[string]any{"success": false, "message": "list exploded"})
		return
	}
	q := r.URL.Query()
	var matched []map[string]any
	for _, rec := range f.data[resource] {
		if s := q.Get("search"); s != "" && !strings.Contains(strings.ToLower(fmt.Sprint(rec["name"])), strings.ToLower(s)) {
			continue
		}
		if sid := q.Get("state_id"); sid != "" && fmt.Sprint(rec["state_id"]) != sid {
			continue
		}
		matched = append(matched, rec)
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page = max(page, 1)
	if perPage <= 0 {
		perPage = 100
	}
	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))
	totalPages := (len(matched) + perPage - 1) / perPage
	reply(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    matched[start:end],
		"meta":    map[string]any{"total": len(matched), "total_pages": totalPages},
	})
}

func (f *fakeRegistry) record(w http.ResponseWriter, r *http.Request, resource, id string) {
	for i, rec := range f.data[resource] {
		if fmt.Sprint(rec["id"]) != id {
			continue
		}
		switch r.Method {
		case http.MethodGet:
			reply(w, http.StatusOK, map[string]any{"success": true, "data": rec})
		case http.MethodPut:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			for k, v := range body {
				rec[k] = v
			}
			f.writes = append(f.writes, body)
			reply(w, http.StatusOK, map[string]any{"success": true, "data": rec})
		case http.MethodDelete:
			if msg, ok := f.failWrite[resource]; ok {
				reply(w, http.StatusConflict, map[string]any{"success": false, "message": msg})
				return
			}
			f.data[resource] = append(f.data[resource][:i], f.data[resource][i+1:]...)
			w.WriteHeader(http.StatusNoContent)
		}
		return
	}
	reply(w, http.StatusNotFound, map[string]any{"success": false, "message": "Village not found"})
}

// seedVillages replaces the villages with n generated records.
func (f *fakeRegistry) seedVillages(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data["villages"] = nil
	for i := 1; i <= n; i++ {
		f.data["villages"] = append(f.data["villages"], map[string]any{
			"id": i, "name": fmt.Sprintf("Village %02d", i), "population": i * 1000, "state_id": 29,
		})
	}
}

// listCalls returns the recorded list requests of resource.
func (f *fakeRegistry) listCalls(resource string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []url.Values
	for _, call := range f.lists {
		name, query, _ := strings.Cut(call, "?")
		if name != resource {
			continue
		}
		values, _ := url.ParseQuery(query)
		out = append(out, values)
	}
	return out
}

func (f *fakeRegistry) count(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data[resource])
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
