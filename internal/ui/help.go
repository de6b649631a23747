package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// helpTitles names the groups returned by keyMap.FullHelp.
var helpTitles = []string{"Views", "Navigation", "Search", "Status", "Watch paths", "Settings", "Setup", "General"}

// renderHelp renders the help overlay from the key map.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n")

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning)).Width(12)
	var columns [2][]string
	for i, group := range m.keys.FullHelp() {
		title := ""
		if i < len(helpTitles) {
			title = helpTitles[i]
		}
		lines := []string{"", styles.AccentText.Bold(true).Render(title)}
		for _, binding := range group {
			h := binding.Help()
			lines = append(lines, keyStyle.Render(h.Key)+styles.Text.Render(h.Desc))
		}
		columns[i%2] = append(columns[i%2], lines...)
	}

	colStyle := lipgloss.NewStyle().Width(36)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		colStyle.Render(strings.Join(columns[0], "\n")),
		colStyle.Render(strings.Join(columns[1], "\n")),
	))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Press any key to close"))

	return placeModal(m.theme, m.width, m.height, b.String(), 80)
}
