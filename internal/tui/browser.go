// Package tui is a terminal browser for the registry list screens.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/registry"
	"github.com/civic-registry/console/internal/screens"
)

type focus int

const (
	focusTable focus = iota
	focusSearch
	focusFilters
)

// controllerMsg carries a completed controller command into Update.
type controllerMsg struct {
	msg listctl.Msg
}

// Config wires a browser to one screen.
type Config struct {
	Screen  *screens.Definition
	Source  listctl.Source[registry.Record]
	Options listctl.OptionSource
	Initial url.Values
	Logger  *slog.Logger
}

// Model is the bubbletea model of the browser. Controller state changes
// only inside Update; controller commands run as tea commands.
type Model struct {
	ctx    context.Context
	def    *screens.Definition
	ctrl   *listctl.Controller[registry.Record]
	search textinput.Model

	focus         focus
	level         int
	cursor        int
	confirmDelete bool
	width         int
	canonical     url.Values
	quitting      bool
}

// New builds a browser whose state is decoded from cfg.Initial.
func New(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Screen == nil {
		return nil, fmt.Errorf("tui: screen is required")
	}
	m := &Model{ctx: ctx, def: cfg.Screen, width: 100}
	ctrl, err := listctl.New(listctl.Config[registry.Record]{
		Screen:   cfg.Screen.Screen,
		Source:   cfg.Source,
		Options:  cfg.Options,
		Location: listctl.LocationFunc(func(v url.Values) { m.canonical = v }),
		Logger:   cfg.Logger,
		Initial:  cfg.Initial,
	})
	if err != nil {
		return nil, err
	}
	m.ctrl = ctrl

	ti := textinput.New()
	ti.Placeholder = "Search " + strings.ToLower(cfg.Screen.Title)
	ti.Prompt = "/ "
	ti.CharLimit = 120
	ti.SetValue(ctrl.RawSearch())
	m.search = ti
	return m, nil
}

// Canonical returns the encoding of the current list state.
func (m *Model) Canonical() url.Values { return m.canonical }

// Controller exposes the underlying list controller.
func (m *Model) Controller() *listctl.Controller[registry.Record] { return m.ctrl }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return lift(m.ctrl.Init(m.ctx))
}

// lift adapts a controller command to bubbletea, flattening batches.
func lift(cmd listctl.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg {
		switch msg := cmd().(type) {
		case nil:
			return nil
		case listctl.BatchMsg:
			cmds := make([]tea.Cmd, 0, len(msg))
			for _, c := range msg {
				cmds = append(cmds, lift(c))
			}
			return tea.BatchMsg(cmds)
		default:
			return controllerMsg{msg: msg}
		}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case controllerMsg:
		cmd := lift(m.ctrl.Update(msg.msg))
		m.cursor = min(m.cursor, max(0, len(m.ctrl.Items())-1))
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.confirmDelete {
		m.confirmDelete = false
		if msg.String() == "y" {
			if id := m.selectedID(); id != "" {
				return m, lift(m.ctrl.Delete(id))
			}
		}
		return m, nil
	}

	if m.focus == focusSearch {
		switch msg.Type {
		case tea.KeyEnter:
			m.focus = focusTable
			m.search.Blur()
			return m, lift(m.ctrl.CommitSearch())
		case tea.KeyEsc:
			m.focus = focusTable
			m.search.Blur()
			return m, nil
		}
		before := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != before {
			return m, tea.Batch(cmd, lift(m.ctrl.Type(m.search.Value())))
		}
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "/":
		m.focus = focusSearch
		return m, m.search.Focus()
	case "tab":
		if len(m.def.Levels) > 0 {
			if m.focus == focusFilters {
				m.level = (m.level + 1) % len(m.def.Levels)
			} else {
				m.focus = focusFilters
			}
		}
	case "shift+tab":
		if len(m.def.Levels) > 0 {
			m.focus = focusFilters
			m.level = (m.level + len(m.def.Levels) - 1) % len(m.def.Levels)
		}
	case "esc":
		m.focus = focusTable
		m.ctrl.DismissError()
	case "left", "h":
		if m.focus == focusFilters {
			return m, lift(m.stepFilter(-1))
		}
		return m, lift(m.ctrl.SetPage(m.ctrl.Query().Page - 1))
	case "right", "l":
		if m.focus == focusFilters {
			return m, lift(m.stepFilter(1))
		}
		return m, lift(m.ctrl.SetPage(m.ctrl.Query().Page + 1))
	case "up", "k":
		m.cursor = max(0, m.cursor-1)
	case "down", "j":
		m.cursor = min(max(0, len(m.ctrl.Items())-1), m.cursor+1)
	case "n", "pgdown":
		return m, lift(m.ctrl.SetPage(m.ctrl.Query().Page + 1))
	case "p", "pgup":
		return m, lift(m.ctrl.SetPage(m.ctrl.Query().Page - 1))
	case "g", "home":
		return m, lift(m.ctrl.SetPage(1))
	case "G", "end":
		return m, lift(m.ctrl.SetPage(listctl.LastPage(m.ctrl.Pagination().TotalPages)))
	case "s":
		return m, lift(m.ctrl.SetSort(m.nextSortField()))
	case "o":
		return m, lift(m.ctrl.SetSort(m.ctrl.Query().SortField))
	case "+", "=":
		return m, lift(m.stepPageSize(1))
	case "-":
		return m, lift(m.stepPageSize(-1))
	case "r":
		return m, lift(m.ctrl.Refresh())
	case "d":
		if m.selectedID() != "" {
			m.confirmDelete = true
		}
	}
	return m, nil
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.ctrl.Close()
	return m, tea.Quit
}

// stepFilter moves the focused level's selection through "all" and its
// options.
func (m *Model) stepFilter(delta int) listctl.Cmd {
	opts := m.ctrl.LevelOptions(m.level)
	if opts.Disabled {
		return nil
	}
	ids := make([]string, 0, len(opts.Items)+1)
	ids = append(ids, listctl.AllValue)
	for _, o := range opts.Items {
		ids = append(ids, o.ID)
	}
	current := slices.Index(ids, m.ctrl.Query().Filter(m.level))
	next := (max(current, 0) + delta + len(ids)) % len(ids)
	return m.ctrl.SetFilter(m.level, ids[next])
}

func (m *Model) stepPageSize(delta int) listctl.Cmd {
	sizes := m.def.PageSizes
	i := slices.Index(sizes, m.ctrl.Query().PageSize)
	next := i + delta
	if i < 0 || next < 0 || next >= len(sizes) {
		return nil
	}
	return m.ctrl.SetPageSize(sizes[next])
}

func (m *Model) nextSortField() string {
	fields := m.def.SortFields
	i := slices.Index(fields, m.ctrl.Query().SortField)
	return fields[(i+1)%len(fields)]
}

func (m *Model) selectedID() string {
	items := m.ctrl.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return ""
	}
	return items[m.cursor].ID()
}
