// Package ui holds the terminal styling shared by the CLI commands.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// plain reports whether the terminal cannot render color.
func plain() bool {
	return termenv.ColorProfile() == termenv.Ascii
}

// Accent renders headings and identifiers.
func Accent(s string) string {
	if plain() {
		return s
	}
	return accentStyle.Render(s)
}

// Pass renders success indicators.
func Pass(s string) string {
	if plain() {
		return s
	}
	return passStyle.Render(s)
}

// Warn renders degraded-but-not-failed conditions.
func Warn(s string) string {
	if plain() {
		return s
	}
	return warnStyle.Render(s)
}

// Err renders failures.
func Err(s string) string {
	if plain() {
		return s
	}
	return errStyle.Render(s)
}

// Faint renders secondary detail.
func Faint(s string) string {
	if plain() {
		return s
	}
	return faintStyle.Render(s)
}
