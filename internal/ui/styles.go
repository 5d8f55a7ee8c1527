// Package ui renders CLI output with a small lipgloss theme. Styling is
// disabled automatically when stdout is not a terminal.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Theme groups the styles used across the CLI.
type Theme struct {
	Primary lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
	Header  lipgloss.Style
}

// DefaultTheme is the standard ANSI palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
	}
}

// PlainTheme renders without any styling, for pipes and CI logs.
func PlainTheme() *Theme {
	return &Theme{
		Primary: lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Info:    lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Header:  lipgloss.NewStyle(),
	}
}

var theme = DefaultTheme()

func init() {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		theme = PlainTheme()
	}
}

// SetTheme replaces the active theme. Tests use it to force plain output.
func SetTheme(t *Theme) {
	theme = t
}

func Primary(s string) string { return theme.Primary.Render(s) }
func Success(s string) string { return theme.Success.Render(s) }
func Error(s string) string   { return theme.Error.Render(s) }
func Warning(s string) string { return theme.Warning.Render(s) }
func Info(s string) string    { return theme.Info.Render(s) }
func Dim(s string) string     { return theme.Dim.Render(s) }
func Header(s string) string  { return theme.Header.Render(s) }

// Done prefixes a success checkmark.
func Done(s string) string { return theme.Success.Render("✓ ") + s }

// Failed prefixes a failure cross.
func Failed(s string) string { return theme.Error.Render("✗ ") + s }
