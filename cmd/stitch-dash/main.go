// Package main implements the stitch-dash event log browser.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultDBPath resolves the event log location the same way the
// stitch CLI does: STITCH_DB_PATH, then STITCH_HOME, then ~/.stitch.
func defaultDBPath() string {
	if v := os.Getenv("STITCH_DB_PATH"); v != "" {
		return v
	}
	if v := os.Getenv("STITCH_HOME"); v != "" {
		return filepath.Join(v, "events.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".stitch", "events.db")
}

func main() {
	p := tea.NewProgram(newModel(defaultDBPath()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}
