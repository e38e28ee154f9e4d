package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/rate"
	raterepo "github.com/ahmethakanbesel/fx-etl/internal/repository/rate"
)

func newRatesCommand(o *options) *cobra.Command {
	var date, format string
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Print stored rates for a base currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "table", "json", "csv":
			default:
				return apperror.New(apperror.BadRequest, "--format must be table, json or csv")
			}

			req := rate.ListRatesRequest{}
			if date != "" {
				d, err := rate.ParseDate(date)
				if err != nil {
					return apperror.Wrap(apperror.BadRequest, err, "invalid --date, expected YYYY-MM-DD")
				}
				req.Date = d
			}

			a, err := openApp(o)
			if err != nil {
				return err
			}
			defer a.Close()
			req.Base = a.cfg.BaseCurrency

			resp, err := rate.NewService(raterepo.NewRepository(a.db.DB)).List(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printRates(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "rates date YYYY-MM-DD (default latest stored)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json or csv")
	return cmd
}

func printRates(w io.Writer, resp *rate.ListRatesResponse, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "csv":
		return rate.WriteCSV(w, resp.Rates)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DATE\tBASE\tTARGET\tRATE")
	for _, r := range resp.Rates {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Date.Format(rate.DateFormat), r.Base, r.Target, r.Rate.String())
	}
	return tw.Flush()
}
