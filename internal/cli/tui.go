package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/anatomaps/flatmap/pkg/flatmap"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// legendSection identifies which pane of the legend has focus.
type legendSection int

const (
	sectionTypes legendSection = iota
	sectionSystems
)

// legendRefreshMsg asks the model to re-read facet state from the map.
// Watchers post it when something outside the TUI toggles the map.
type legendRefreshMsg struct{}

// =============================================================================
// LegendModel - Interactive legend and system toggles
// =============================================================================

// LegendModel is the bubbletea model for the interactive legend. It keeps a
// snapshot of the map's facet state and flips facets in place as the user
// toggles rows.
type LegendModel struct {
	Map     *flatmap.Map
	Section legendSection
	Cursor  int

	types   []flatmap.PathTypeState
	systems []flatmap.System
}

// NewLegendModel creates a legend model over a ready map.
func NewLegendModel(m *flatmap.Map) LegendModel {
	model := LegendModel{Map: m}
	model.reload()
	return model
}

// reload snapshots facet state from the map.
func (m *LegendModel) reload() {
	m.types = m.Map.PathTypes()
	m.systems = m.Map.Systems()
}

// rows returns the row count of the focused section.
func (m LegendModel) rows() int {
	if m.Section == sectionSystems {
		return len(m.systems)
	}
	return len(m.types)
}

func (m LegendModel) Init() tea.Cmd {
	return nil
}

func (m LegendModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case legendRefreshMsg:
		m.reload()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "left":
			if m.Section == sectionTypes && len(m.systems) > 0 {
				m.Section = sectionSystems
			} else {
				m.Section = sectionTypes
			}
			m.Cursor = 0
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < m.rows()-1 {
				m.Cursor++
			}
		case "enter", " ":
			m.toggle()
			m.reload()
		}
	}
	return m, nil
}

// toggle flips the facet under the cursor.
func (m *LegendModel) toggle() {
	switch m.Section {
	case sectionTypes:
		if m.Cursor < len(m.types) {
			row := m.types[m.Cursor]
			m.Map.EnablePathsByType(string(row.Type), !row.Enabled)
		}
	case sectionSystems:
		if m.Cursor < len(m.systems) {
			row := m.systems[m.Cursor]
			m.Map.EnablePathsBySystem(row.Name, !row.Enabled, false)
		}
	}
}

func (m LegendModel) View() string {
	var b strings.Builder

	index := m.Map.Index()
	title := index.Name
	if title == "" {
		title = index.ID
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ toggle  tab section  q quit"))
	b.WriteString("\n\n")

	b.WriteString(m.sectionTitle("Path types", sectionTypes))
	b.WriteString("\n")
	for i, t := range m.types {
		label := t.Label
		if t.Dashed {
			label += " (dashed)"
		}
		b.WriteString(m.row(sectionTypes, i, t.Enabled, swatch(t.Colour), label, ""))
		b.WriteString("\n")
	}

	if len(m.systems) > 0 {
		b.WriteString("\n")
		b.WriteString(m.sectionTitle("Systems", sectionSystems))
		b.WriteString("\n")
		for i, s := range m.systems {
			detail := fmt.Sprintf("%d paths", len(s.PathIDs))
			b.WriteString(m.row(sectionSystems, i, s.Enabled, "", s.Name, detail))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%d paths · %d features · sckan %s",
		m.Map.NumPaths(), m.Map.NumFeatures(), m.Map.SCKANState())))

	return b.String()
}

// sectionTitle renders a pane heading, highlighted when focused.
func (m LegendModel) sectionTitle(name string, s legendSection) string {
	if m.Section == s {
		return StyleHighlight.Render(name)
	}
	return listDimStyle.Render(name)
}

// row renders one toggleable line. The swatch keeps its own colour, so the
// row style wraps only the checkbox and label.
func (m LegendModel) row(s legendSection, i int, enabled bool, sw, label, detail string) string {
	cursor := "  "
	if m.Section == s && i == m.Cursor {
		cursor = "▸ "
	}

	check := "[ ]"
	if enabled {
		check = "[" + iconSuccess + "]"
	}

	style := listNormalStyle
	if !enabled {
		style = listDimStyle
	}
	if m.Section == s && i == m.Cursor {
		style = listSelectedStyle
	}

	line := cursor + style.Render(check)
	if sw != "" {
		line += " " + sw
	}
	line += " " + style.Render(label)
	if detail != "" {
		line += " " + listDimStyle.Render(detail)
	}
	return line
}
