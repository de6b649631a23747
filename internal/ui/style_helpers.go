package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle renders runs of text that share one background. Lipgloss resets
// the background between separately styled segments, so every word and
// every gap is styled explicitly.
type BgStyle struct {
	bg    lipgloss.Color
	space string
}

// NewBgStyle creates a background helper for the given color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render styles text word by word so the gaps keep the background.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	wordStyle := style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return wordStyle.Render(text)
	}
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = wordStyle.Render(w)
		}
	}
	return strings.Join(words, b.space)
}

// Space returns a single styled space.
func (b BgStyle) Space() string {
	return b.space
}

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return lipgloss.NewStyle().Background(b.bg).Render(strings.Repeat(" ", n))
}

// Sep returns a styled separator.
func (b BgStyle) Sep(sep string) string {
	return lipgloss.NewStyle().Background(b.bg).Render(sep)
}

// Join joins parts with a styled separator.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

// Label renders "label value" with the label muted.
func (b BgStyle) Label(label, value string, labelStyle, valueStyle lipgloss.Style) string {
	return b.Render(label, labelStyle) + b.Space() + b.Render(value, valueStyle)
}

