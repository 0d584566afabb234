package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/pricepulse/internal/platform"
	"github.com/lukman83/pricepulse/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refresh every tracked product once and print the cycle summary",
	Args:  cobra.NoArgs,
	RunE:  runCycle,
}

func init() {
	runCmd.Flags().String("format", "json", "Output format: json, table")
	rootCmd.AddCommand(runCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format, _ := cmd.Flags().GetString("format")

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start("Refreshing tracked products...")
	ctx := platform.WithProgress(cmdContext(cmd), spin.Progress)
	summary, err := a.cron.Trigger(ctx)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	switch format {
	case "table":
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	default:
		return printJSON(cmd.OutOrStdout(), summary)
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
