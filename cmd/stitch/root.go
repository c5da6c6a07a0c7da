package main

import (
	"errors"
	"fmt"

	"stitch/internal/appversion"
	"stitch/pkg/llm"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root stitch command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stitch",
		Short:         "LLM-driven file editing pipeline",
		Long:          "stitch sends a prompt specification to a completion model\nand applies the edit commands it streams back to local files.",
		Version:       fmt.Sprintf("stitch %s", appversion.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newLogsCmd(),
		newDashCmd(),
	)

	return cmd
}

// exitCode maps a run failure to the process exit code. A token budget
// overrun gets its own code so scripts can distinguish "trim the
// prompt" from transport failures.
func exitCode(err error) int {
	var budgetErr *llm.TokenBudgetError
	if errors.As(err, &budgetErr) {
		return 2
	}
	return 1
}
