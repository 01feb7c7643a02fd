package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/civic-registry/console/internal/listctl"
	"github.com/civic-registry/console/internal/screens"
	"github.com/civic-registry/console/internal/view"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

const maxCellWidth = 28

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.def.Title))
	b.WriteString("\n")
	b.WriteString(m.search.View())
	b.WriteString("\n")
	if f := m.filterBar(); f != "" {
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if msg := m.ctrl.Err(); msg != "" {
		b.WriteString(errorStyle.Render(msg + "  (r to retry, esc to dismiss)"))
		b.WriteString("\n")
	}
	if msg := m.ctrl.DeleteErr(); msg != "" {
		b.WriteString(errorStyle.Render(msg))
		b.WriteString("\n")
	}

	switch m.ctrl.RenderState() {
	case listctl.RenderLoading:
		b.WriteString(mutedStyle.Render("Loading…"))
	case listctl.RenderEmpty:
		b.WriteString(mutedStyle.Render("No records match."))
	case listctl.RenderPopulated:
		b.WriteString(m.table())
	}
	b.WriteString("\n\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) filterBar() string {
	if len(m.def.Levels) == 0 {
		return ""
	}
	q := m.ctrl.Query()
	parts := make([]string, 0, len(m.def.Levels))
	for i, level := range m.def.Levels {
		opts := m.ctrl.LevelOptions(i)
		label := "All"
		if id := q.Filter(i); id != listctl.AllValue {
			label = id
			for _, o := range opts.Items {
				if o.ID == id {
					label = o.Label
					break
				}
			}
		}
		switch {
		case opts.Loading:
			label += " …"
		case opts.Degraded:
			label += " (unavailable)"
		}
		text := fmt.Sprintf("%s: %s", level.Label, label)
		switch {
		case m.focus == focusFilters && i == m.level:
			text = focusStyle.Render("[" + text + "]")
		case opts.Disabled:
			text = mutedStyle.Render(text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "  ")
}

func (m *Model) table() string {
	q := m.ctrl.Query()
	var b strings.Builder
	widths := m.columnWidths()
	header := make([]string, len(m.def.Columns))
	for i, col := range m.def.Columns {
		label := col.Label
		if col.Sort != "" {
			if arrow := view.SortArrow(listctl.Indicator(q, col.Sort).String()); arrow != "" {
				label += " " + arrow
			}
		}
		header[i] = pad(label, widths[i])
	}
	b.WriteString(headerStyle.Render(strings.Join(header, " ")))
	for r, rec := range m.ctrl.Items() {
		cells := make([]string, len(m.def.Columns))
		for i, col := range m.def.Columns {
			cells[i] = pad(cellText(col, rec.Text(col.Key)), widths[i])
		}
		line := strings.Join(cells, " ")
		if r == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	if m.confirmDelete {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Delete %s %s? (y/n)", m.def.Singular, m.selectedID())))
	}
	return b.String()
}

func (m *Model) columnWidths() []int {
	widths := make([]int, len(m.def.Columns))
	for i, col := range m.def.Columns {
		widths[i] = lipgloss.Width(col.Label) + 2
		for _, rec := range m.ctrl.Items() {
			widths[i] = max(widths[i], lipgloss.Width(cellText(col, rec.Text(col.Key))))
		}
		widths[i] = min(widths[i], maxCellWidth)
	}
	return widths
}

func cellText(col screens.Column, text string) string {
	switch col.Format {
	case screens.FormatNumber:
		return view.FormatNumber(text)
	case screens.FormatRating:
		return view.Stars(text)
	case screens.FormatBool:
		if text == "true" {
			return "yes"
		}
		if text == "false" {
			return "no"
		}
	}
	return text
}

func pad(text string, width int) string {
	w := lipgloss.Width(text)
	if w > width {
		runes := []rune(text)
		if width > 1 && len(runes) > width-1 {
			return string(runes[:width-1]) + "…"
		}
		return text
	}
	return text + strings.Repeat(" ", width-w)
}

func (m *Model) footer() string {
	p := m.ctrl.Pagination()
	pages := max(p.TotalPages, 1)
	status := fmt.Sprintf("page %d/%d · %s records · %d per page", p.Page, pages, view.FormatNumber(fmt.Sprint(p.Total)), p.PageSize)
	keys := "/ search · tab filters · ←/→ page or option · s sort · o reverse · +/- size · d delete · q quit"
	return mutedStyle.Render(status) + "\n" + mutedStyle.Width(m.width).Render(keys)
}
