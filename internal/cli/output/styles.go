// Package output renders command results for terminals and scripts.
package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for terminal output.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
	Key     lipgloss.Style
	Kind    lipgloss.Style
	Prompt  lipgloss.Style
}

// DefaultStyles returns the color styles used on a TTY.
func DefaultStyles() *Styles {
	return &Styles{
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Kind:    lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		Prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Error:   plain,
		Warning: plain,
		Success: plain,
		Muted:   plain,
		Key:     plain,
		Kind:    plain,
		Prompt:  plain,
	}
}
