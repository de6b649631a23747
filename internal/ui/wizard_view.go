package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/filebrain/console/internal/wizard"
)

// wizardErrMsg reports a rejected wizard command issued from a modal.
type wizardErrMsg struct{ err error }

var stepHints = map[wizard.Step]string{
	wizard.StepDockerCheck:      "File Brain runs its services in containers. Install Docker or Podman, start it, then press enter to check again.",
	wizard.StepPullImages:       "Download the container images for the search engine and supporting services.",
	wizard.StepStartServices:    "Start the backend services and wait until they report healthy.",
	wizard.StepDownloadModel:    "Fetch the embedding model used for semantic search.",
	wizard.StepCreateCollection: "Create the search collection that holds the index. Press X to reset it if it is damaged.",
	wizard.StepComplete:         "Everything is in place. Press enter to finish setup.",
}

func (m Model) handleWizardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.handleGlobalKey(msg); ok {
		return m, cmd
	}
	if m.wizard == nil {
		return m, nil
	}

	var err error
	switch {
	case key.Matches(msg, m.keys.WizardRun):
		err = m.wizard.Run()
	case key.Matches(msg, m.keys.WizardRetry):
		err = m.wizard.Retry()
	case key.Matches(msg, m.keys.WizardBack):
		err = m.wizard.Back()
	case key.Matches(msg, m.keys.WizardNext):
		err = m.wizard.Next()
	case key.Matches(msg, m.keys.WizardResetDB):
		if m.wizardState.Step != wizard.StepCreateCollection {
			return m, nil
		}
		w := m.wizard
		m.confirm = newConfirm("Reset search collection?",
			"The search engine is restarted and the collection is created again. Anything already indexed is lost.",
			"",
			func() tea.Msg {
				if err := w.ResetCollection(); err != nil {
					return wizardErrMsg{err: err}
				}
				return nil
			})
		return m, nil
	default:
		return m, nil
	}
	if err != nil && !errors.Is(err, wizard.ErrNoAction) {
		m.showError(err)
	}
	return m, nil
}

func (m Model) renderWizard() string {
	styles := m.theme.Styles()
	st := m.wizardState
	width := max(m.width-4, 30)

	stepsWidth := 24
	var steps []string
	steps = append(steps, styles.AccentText.Bold(true).Render("Setup"), "")
	for _, step := range wizard.Steps() {
		marker := styles.FaintText.Render("○ ")
		switch {
		case step == st.Step && st.Busy():
			marker = styles.InfoText.Render(m.spinner.View())
		case step == st.Step && st.Phase == wizard.PhaseFailed:
			marker = styles.DangerText.Render("✗ ")
		case st.Satisfied[step] || (step == st.Step && st.Phase == wizard.PhaseDone):
			marker = styles.SuccessText.Render("✓ ")
		case step == st.Step:
			marker = styles.WarningText.Render("● ")
		}
		title := step.String()
		if step == st.Step {
			steps = append(steps, marker+styles.Text.Bold(true).Render(title))
		} else {
			steps = append(steps, marker+styles.MutedText.Render(title))
		}
	}
	stepPanel := styles.Panel.Width(stepsWidth).Render(strings.Join(steps, "\n"))

	detailWidth := max(width-stepsWidth-4, 20)
	detail := []string{
		styles.Text.Bold(true).Render(fmt.Sprintf("Step %d of %d: %s", int(st.Step)+1, wizard.StepCount, st.Step)),
		styles.StateStyle(st.Phase.String()).Render(titleCase(st.Phase.String())),
	}
	if hint := stepHints[st.Step]; hint != "" {
		detail = append(detail, "", lipgloss.NewStyle().Width(detailWidth).Render(styles.MutedText.Render(hint)))
	}
	if msg := strings.TrimSpace(st.Message); msg != "" {
		detail = append(detail, "", styles.Text.Render(truncate(msg, detailWidth)))
	}
	if st.HasProgress {
		barWidth := max(detailWidth-8, 10)
		detail = append(detail, styles.InfoText.Render(progressBar(st.Progress/100, barWidth))+" "+
			styles.Text.Render(formatPercent(st.Progress)))
	}
	if st.Err != nil {
		detail = append(detail, "", styles.DangerText.Render(truncate(errorText(st.Err), detailWidth)))
	}
	if len(st.Logs) > 0 {
		logs := st.Logs
		if len(logs) > WizardLogLines {
			logs = logs[len(logs)-WizardLogLines:]
		}
		detail = append(detail, "", styles.AccentText.Render("Output"))
		for _, line := range logs {
			detail = append(detail, styles.FaintText.Render(truncate(line, detailWidth)))
		}
	}

	var actions []string
	switch {
	case st.Busy():
		actions = append(actions, "working...")
	case st.CanRun():
		actions = append(actions, ternary(st.Step == wizard.StepComplete, "enter finish", "enter run"))
	}
	if st.Phase == wizard.PhaseSatisfied && st.Step != wizard.StepComplete {
		actions = append(actions, "n next")
	}
	if !st.Busy() {
		actions = append(actions, "t check again")
	}
	if st.Step != wizard.StepDockerCheck {
		actions = append(actions, "b back")
	}
	detail = append(detail, "", styles.FaintText.Render(strings.Join(actions, "   ")))

	detailPanel := styles.FocusedPanel.Width(detailWidth).Render(clipLines(strings.Join(detail, "\n"), max(m.contentHeight()-2, 4)))
	return lipgloss.JoinHorizontal(lipgloss.Top, stepPanel, detailPanel)
}
