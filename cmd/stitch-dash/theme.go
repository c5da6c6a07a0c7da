package main

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual styling for the stitch dashboard.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
}

// DefaultTheme returns the default theme for stitch-dash.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("12"),  // Blue
		Secondary: lipgloss.Color("14"),  // Cyan
		Success:   lipgloss.Color("10"),  // Green
		Warning:   lipgloss.Color("11"),  // Yellow
		Error:     lipgloss.Color("9"),   // Red
		Muted:     lipgloss.Color("240"), // Gray
	}
}

// namespaceColor maps an event namespace to its feed color.
func (t Theme) namespaceColor(namespace string) lipgloss.Color {
	switch namespace {
	case "init":
		return t.Secondary
	case "domain":
		return t.Success
	case "finish":
		return t.Primary
	case "infra":
		return t.Muted
	default:
		return t.Warning
	}
}
