package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/fx-etl/internal/rate"
	runrepo "github.com/ahmethakanbesel/fx-etl/internal/repository/run"
	"github.com/ahmethakanbesel/fx-etl/internal/run"
)

func newRunsCommand(o *options) *cobra.Command {
	var (
		status string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ETL runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(o)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := run.NewService(runrepo.NewRepository(a.db.DB)).List(cmd.Context(), run.ListRunsRequest{
				Status: run.Status(strings.ToUpper(status)),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []run.Run{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only runs in this status")
	cmd.Flags().IntVar(&limit, "limit", run.DefaultListLimit, fmt.Sprintf("maximum runs to list (1-%d)", run.MaxListLimit))
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printRuns(w io.Writer, runs []run.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tPROVIDER\tBASE\tSTATUS\tDATE\tROWS\tERROR")
	for _, r := range runs {
		date := "-"
		if r.RatesDate != nil {
			date = r.RatesDate.Format(rate.DateFormat)
		}
		errText := "-"
		if r.Error != "" {
			errText = r.ErrorKind + ": " + r.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Provider, r.Base, r.Status, date, r.RowsWritten, errText)
	}
	return tw.Flush()
}

