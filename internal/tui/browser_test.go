package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
)

type memorySource struct {
	mu       sync.Mutex
	records  []registry.Record
	requests []listctl.Request
	deleted  []string
}

func newMemorySource(n int) *memorySource {
	s := &memorySource{}
	for i := 1; i <= n; i++ {
		s.records = append(s.records, registry.Record{"id": fmt.Sprint(i), "name": fmt.Sprintf("Village %02d", i), "population": float64(i * 100)})
	}
	return s
}

func (s *memorySource) List(_ context.Context, req listctl.Request) (listctl.PageResult[registry.Record], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	var matched []registry.Record
	for _, rec := range s.records {
		if req.Search == "" || strings.Contains(strings.ToLower(rec.Text("name")), strings.ToLower(req.Search)) {
			matched = append(matched, rec)
		}
	}
	start := min((req.Page-1)*req.PerPage, len(matched))
	end := min(start+req.PerPage, len(matched))
	return listctl.PageResult[registry.Record]{
		Items:      matched[start:end],
		Total:      len(matched),
		TotalPages: listctl.TotalPages(len(matched), req.PerPage),
	}, nil
}

func (s *memorySource) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	for i, rec := range s.records {
		if rec.ID() == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memorySource) lastRequest() listctl.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type stateOptions struct{}

func (stateOptions) Options(_ context.Context, q listctl.OptionQuery) ([]listctl.Option, error) {
	if q.Resource == "states" {
		return []listctl.Option{{ID: "29", Label: "Karnataka"}, {ID: "32", Label: "Kerala"}}, nil
	}
	return []listctl.Option{{ID: "1", Label: "Bengaluru Urban"}}, nil
}

func villagesScreen(t *testing.T) *screens.Definition {
	t.Helper()
	def, ok := screens.Default().Get("villages")
	require.True(t, ok)
	clone := *def
	clone.Debounce = time.Millisecond
	return &clone
}

// drain runs cmd and feeds every controller message back into m until no
// controller work remains. Other messages (cursor blinks) are dropped.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 500, "controller did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case controllerMsg:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
		}
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := m.Update(key(k))
		drain(t, m, cmd)
	}
}

func newBrowser(t *testing.T, src *memorySource, initial url.Values) *Model {
	t.Helper()
	m, err := New(context.Background(), Config{Screen: villagesScreen(t), Source: src, Options: stateOptions{}, Initial: initial})
	require.NoError(t, err)
	drain(t, m, m.Init())
	return m
}

func TestBrowserLoadsFirstPage(t *testing.T) {
	src := newMemorySource(30)
	m := newBrowser(t, src, nil)

	assert.Len(t, m.Controller().Items(), 12)
	assert.Equal(t, listctl.RenderPopulated, m.Controller().RenderState())
	out := m.View()
	assert.Contains(t, out, "Village 01")
	assert.Contains(t, out, "page 1/3")
	assert.Empty(t, m.Canonical().Encode())
}

func TestBrowserPagingUpdatesCanonicalState(t *testing.T) {
	src := newMemorySource(30)
	m := newBrowser(t, src, nil)

	press(t, m, "n", "n", "n")
	assert.Equal(t, 3, m.Controller().Query().Page)
	assert.Equal(t, "3", m.Canonical().Get("page"))
	assert.Equal(t, 3, src.lastRequest().Page)

	press(t, m, "g")
	assert.Equal(t, 1, m.Controller().Query().Page)
	assert.Empty(t, m.Canonical().Get("page"))
}

func TestBrowserSearchCommitsOnEnter(t *testing.T) {
	src := newMemorySource(30)
	m := newBrowser(t, src, url.Values{"page": {"2"}})
	require.Equal(t, 2, m.Controller().Query().Page)

	press(t, m, "/", "2", "5", "enter")
	assert.Equal(t, "25", src.lastRequest().Search)
	assert.Equal(t, 1, m.Controller().Query().Page)
	assert.Equal(t, "25", m.Canonical().Get("q"))
	assert.Len(t, m.Controller().Items(), 1)
}

func TestBrowserFilterCyclesOptions(t *testing.T) {
	src := newMemorySource(5)
	m := newBrowser(t, src, nil)

	press(t, m, "tab", "right")
	assert.Equal(t, "29", m.Controller().Query().Filter(0))
	assert.Equal(t, "29", src.lastRequest().Filters["state_id"])
	assert.False(t, m.Controller().LevelOptions(1).Disabled)
	assert.Contains(t, m.View(), "Karnataka")
}

func TestBrowserSortCyclesFields(t *testing.T) {
	src := newMemorySource(5)
	m := newBrowser(t, src, nil)
	before := m.Controller().Query().SortField

	press(t, m, "s")
	assert.NotEqual(t, before, m.Controller().Query().SortField)
	field := m.Controller().Query().SortField

	press(t, m, "o")
	assert.Equal(t, field, m.Controller().Query().SortField)
	assert.Equal(t, listctl.Descending, m.Controller().Query().SortDirection)
}

func TestBrowserDeleteNeedsConfirmation(t *testing.T) {
	src := newMemorySource(13)
	m := newBrowser(t, src, url.Values{"page": {"2"}})
	require.Len(t, m.Controller().Items(), 1)

	press(t, m, "d", "n")
	assert.Empty(t, src.deleted)

	press(t, m, "d", "y")
	assert.Equal(t, []string{"13"}, src.deleted)
	// The last record of the last page went away; the page is clamped.
	assert.Equal(t, 1, m.Controller().Query().Page)
	assert.Len(t, m.Controller().Items(), 12)
}

func TestBrowserQuit(t *testing.T) {
	m := newBrowser(t, newMemorySource(1), nil)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}
