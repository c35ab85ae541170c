package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/model"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many invoices are in each status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeStore); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		counts, err := st.CountByStatus(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		if statusJSON {
			return printJSON(os.Stdout, counts)
		}
		formatStatus(os.Stdout, counts)
		return nil
	},
}

func formatStatus(out io.Writer, c *model.StatusCounts) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tSTATUS\tCOUNT")
	for _, s := range model.ProcessingStatuses {
		_, _ = fmt.Fprintf(w, "raw\t%s\t%d\n", s, c.Raw[s])
	}
	for _, s := range model.SyncStatuses {
		_, _ = fmt.Fprintf(w, "processed\t%s\t%d\n", s, c.Processed[s])
	}
	_ = w.Flush()
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print counts as JSON")
	rootCmd.AddCommand(statusCmd)
}
