package render

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary     = lipgloss.Color("#2196F3")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
	Destructive = lipgloss.Color("#e53935")
	Muted       = lipgloss.Color("#8a94a6")
)

// Styles holds the lipgloss styles for CLI status lines.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Prompt  lipgloss.Style
	Model   lipgloss.Style
}

// DefaultStyles returns the CLI styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Success: lipgloss.NewStyle().Foreground(Success),
		Warning: lipgloss.NewStyle().Foreground(Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(Destructive),
		Muted:   lipgloss.NewStyle().Foreground(Muted),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(Success),
		Model:   lipgloss.NewStyle().Bold(true).Foreground(Primary),
	}
}

// Terminal renders Markdown for a terminal. With plain set, or when the
// glamour renderer cannot be built, Markdown is passed through unchanged.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal creates a renderer wrapping at width columns.
func NewTerminal(width int, plain bool) *Terminal {
	if plain {
		return &Terminal{}
	}
	if width <= 0 {
		width = 100
	}

	style := glamour.WithAutoStyle()
	if s := os.Getenv("EVAI_GLAMOUR_STYLE"); s != "" {
		style = glamour.WithStylePath(s)
	}

	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return &Terminal{}
	}
	return &Terminal{renderer: renderer}
}

// Render returns md formatted for the terminal.
func (t *Terminal) Render(md string) (string, error) {
	if t.renderer == nil {
		return md, nil
	}
	out, err := t.renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
