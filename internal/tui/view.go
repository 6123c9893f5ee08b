package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/lightify/internal/protocol"
)

// View renders the dashboard
func (m Model) View() string {
	if m.ShowingHelp {
		return RenderModal(m.renderHelpModalContent(), m.Width, m.Height)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderPanes(),
		"",
		m.renderStatus(),
	)
	return RenderApplicationContainer(m.opts.Name, content, m.Help.ShortHelpView(m.Keys.ShortHelp()), m.Width, m.Height)
}

func (m Model) renderPanes() string {
	width := (m.Width-4)/2 - 2
	stacked := width < MinPaneWidth
	if stacked {
		width = m.Width - 8
	}

	groups := PaneStyle(width, m.Pane == PaneGroups).Render(m.renderGroups())
	lights := PaneStyle(width, m.Pane == PaneLights).Render(m.renderLights())
	if stacked {
		return lipgloss.JoinVertical(lipgloss.Left, groups, lights)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, groups, lights)
}

func (m Model) paneTitle(p Pane, title string) string {
	if m.Pane == p {
		return PaneTitleStyle.Render(title)
	}
	return BlurredPaneTitleStyle.Render(title)
}

func (m Model) renderGroups() string {
	lines := []string{m.paneTitle(PaneGroups, fmt.Sprintf("GROUPS (%d)", len(m.Groups)))}
	if len(m.Groups) == 0 {
		lines = append(lines, DetailStyle.Render("  no groups"))
	}

	on := make(map[uint64]bool, len(m.Lights))
	for _, l := range m.Lights {
		on[l.Address] = l.On
	}
	for i, g := range m.Groups {
		lit := false
		for _, a := range g.Members {
			if on[a] {
				lit = true
				break
			}
		}
		row := fmt.Sprintf("%s %s %s", RenderPower(lit), displayName(g.Name, fmt.Sprintf("group %d", g.ID)),
			DetailStyle.Render(fmt.Sprintf("#%d, %d lights", g.ID, len(g.Members))))
		lines = append(lines, m.renderRow(PaneGroups, i, row))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLights() string {
	lines := []string{m.paneTitle(PaneLights, fmt.Sprintf("LIGHTS (%d)", len(m.Lights)))}
	if len(m.Lights) == 0 {
		lines = append(lines, DetailStyle.Render("  no lights"))
	}

	for i, l := range m.Lights {
		row := fmt.Sprintf("%s %s %s", RenderPower(l.On), displayName(l.Name, protocol.FormatAddress(l.Address)),
			DetailStyle.Render(fmt.Sprintf("%d%% %dK", l.Luminance, l.Temperature)))
		lines = append(lines, m.renderRow(PaneLights, i, row))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(p Pane, i int, row string) string {
	if m.Pane == p && m.Cursor[p] == i {
		return SelectedRowStyle.Render("→ ") + row
	}
	return RowStyle.Render(row)
}

func (m Model) renderStatus() string {
	switch {
	case m.Err != nil:
		return ErrorStyle.Render("✗ " + errorText(m.Err))
	case m.Refreshing:
		return m.Spinner.View() + " " + StatusStyle.Render("Refreshing...")
	case m.Status != "":
		return StatusStyle.Render(m.Status)
	}
	return ""
}

func (m Model) renderHelpModalContent() string {
	title := lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Bold(true).
		Render("DASHBOARD HELP")

	notes := lipgloss.JoinVertical(lipgloss.Left,
		"Switching a group switches every member light.",
		"Luminance moves in 10% steps; a group steps from",
		"its brightest member.",
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		m.Help.FullHelpView(m.Keys.FullHelp()),
		"",
		DetailStyle.Render(notes),
		"",
		"Press any key to close this help screen",
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 2).
		Width(min(64, max(m.Width-4, 40))).
		Render(content)
}
