package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-cli/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run retrieval, processing, export and notification",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeRun); err != nil {
			return err
		}

		env, err := newStageEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.pipeline(ctx)
		if err != nil {
			return err
		}

		res, runErr := p.Run(ctx)
		if res != nil {
			if err := printJSON(os.Stdout, res); err != nil {
				return err
			}
		}
		return runErr
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Ingest new invoice e-mails as PENDING raw invoices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeRetrieve); err != nil {
			return err
		}

		env, err := newStageEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r, err := env.retriever(ctx)
		if err != nil {
			return err
		}
		counts, err := r.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, counts)
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Extract and validate PENDING and RETRY raw invoices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeProcess); err != nil {
			return err
		}

		env, err := newStageEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.processor(ctx)
		if err != nil {
			return err
		}
		counts, err := p.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, counts)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Append NOT_SYNCED processed invoices to the spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeExport); err != nil {
			return err
		}

		env, err := newStageEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		x, err := env.exporter(ctx)
		if err != nil {
			return err
		}
		counts, err := x.Run(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, counts)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(runCmd, retrieveCmd, processCmd, exportCmd)
}
