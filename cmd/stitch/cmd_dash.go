package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// newDashCmd creates the "stitch dash" subcommand.
func newDashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Launch the event log dashboard",
		Long:  "Opens the stitch-dash TUI for browsing recorded pipeline events.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dashCmd := exec.CommandContext(cmd.Context(), "stitch-dash")
			dashCmd.Stdin = os.Stdin
			dashCmd.Stdout = os.Stdout
			dashCmd.Stderr = os.Stderr

			if err := dashCmd.Run(); err != nil {
				return fmt.Errorf("run stitch-dash: %w", err)
			}

			return nil
		},
	}
}
