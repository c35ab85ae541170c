package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/pipeline"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Return invoices to states the pipeline picks up again",
}

var resetFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "Move FAILED raw invoices to RETRY and failed exports to NOT_SYNCED",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReset(cmd.Context(), (*pipeline.Resetter).ResetFailed)
	},
}

var resetPipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Move SYNCED invoices to NOT_SYNCED and FAILED or RETRY raw invoices to RETRY",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReset(cmd.Context(), (*pipeline.Resetter).ResetPipeline)
	},
}

func runReset(ctx context.Context, reset func(*pipeline.Resetter, context.Context) (pipeline.ResetCounts, error)) error {
	if err := cfg.Validate(config.ModeStore); err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	counts, err := reset(pipeline.NewResetter(st), ctx)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, counts)
}

func init() {
	resetCmd.AddCommand(resetFailedCmd, resetPipelineCmd)
	rootCmd.AddCommand(resetCmd)
}
