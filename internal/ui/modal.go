package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/filebrain/console/internal/fileops"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal closed.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

var (
	_ Modal = (*confirmModal)(nil)
	_ Modal = (*promptModal)(nil)
)

// confirmModal asks before a destructive action runs. When inflightKey is
// set the action is tracked like any other in-flight request.
type confirmModal struct {
	title       string
	body        string
	inflightKey string
	onYes       tea.Cmd
}

func newConfirm(title, body, inflightKey string, onYes tea.Cmd) *confirmModal {
	return &confirmModal{title: title, body: body, inflightKey: inflightKey, onYes: onYes}
}

// Update closes on confirm or cancel. On confirm the returned command is the
// action to run.
func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Confirm):
		return c, c.onYes, true
	case key.Matches(km, keys.Cancel):
		return c, nil, true
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.DangerText.Render(c.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(c.body))
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("y") + styles.MutedText.Render(" confirm   "))
	b.WriteString(styles.AccentText.Render("n/esc") + styles.MutedText.Render(" cancel"))

	return placeModal(theme, width, height, b.String(), 56)
}

// promptModal collects one line of text, such as an import file path.
type promptModal struct {
	title       string
	inflightKey string
	input       textinput.Model
	submit      func(value string) tea.Cmd
}

func newPrompt(title, placeholder, inflightKey string, submit func(string) tea.Cmd) *promptModal {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 4096
	ti.Width = 48
	ti.Focus()
	return &promptModal{title: title, inflightKey: inflightKey, input: ti, submit: submit}
}

func (p *promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(p.input.Value())
			if value == "" {
				return p, nil, true
			}
			return p, p.submit(value), true
		case tea.KeyEsc:
			return p, nil, true
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd, false
}

func (p *promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(p.title))
	b.WriteString("\n\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")
	b.WriteString(styles.AccentText.Render("enter") + styles.MutedText.Render(" submit   "))
	b.WriteString(styles.AccentText.Render("esc") + styles.MutedText.Render(" cancel"))
	return placeModal(theme, width, height, b.String(), 60)
}

// placeModal centers content in a rounded box.
func placeModal(theme Theme, width, height int, content string, modalWidth int) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(min(modalWidth, max(width-4, 20)))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

// toast is the one-line notification under the content.
type toast struct {
	kind  fileops.ToastKind
	text  string
	until time.Time
}
