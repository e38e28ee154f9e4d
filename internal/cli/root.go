// Package cli wires configuration, storage and providers into the fx-etl
// command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/config"
	"github.com/ahmethakanbesel/fx-etl/internal/metrics"
	"github.com/ahmethakanbesel/fx-etl/internal/pipeline"
	raterepo "github.com/ahmethakanbesel/fx-etl/internal/repository/rate"
	runrepo "github.com/ahmethakanbesel/fx-etl/internal/repository/run"
	"github.com/ahmethakanbesel/fx-etl/internal/run"
)

const (
	msgSucceeded = "FX ETL completed successfully"
	msgFailed    = "FX ETL failed - check logs"
)

// NewRoot constructs the fx-etl command. Invoked without a subcommand it
// runs the ETL once.
func NewRoot() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "fx-etl",
		Short: "Fetch the latest FX rates and store them in SQLite",
		Long: "fx-etl fetches the latest exchange rates for a base currency, validates them " +
			"and upserts them into a local SQLite database. Run it from an external scheduler.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runETL(cmd, o)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.envFile, "env-file", "", "env file to load (default .env, optional)")
	pf.StringVar(&o.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	pf.StringVar(&o.logPath, "log-file", "", "append-only log file (overrides LOG_PATH)")
	pf.StringVar(&o.base, "base", "", "base currency (overrides FX_BASE_CURRENCY)")
	root.Flags().StringVar(&o.provider, "provider", "", "rate provider (overrides FX_PROVIDER)")

	root.AddCommand(
		newRatesCommand(o),
		newRunsCommand(o),
		newServeCommand(o),
		newEnvCommand(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context, args []string) error {
	root := NewRoot()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func runETL(cmd *cobra.Command, o *options) (err error) {
	defer func() {
		if err != nil {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), msgFailed)
			return
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), msgSucceeded)
	}()

	// Without configuration there is no log file to write to; main reports
	// the error on stderr.
	a, err := newApp(o, true)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	log := a.logger.With("provider", a.cfg.Provider, "base", a.cfg.BaseCurrency)
	log.Info("fx etl started", "status", run.StatusStarted)
	abort := func(err error) error {
		log.Error("fx etl failed", "status", run.StatusFailed, "kind", apperror.CodeOf(err), "error", err)
		return err
	}

	if err := a.openDB(); err != nil {
		return abort(err)
	}

	runSvc := run.NewService(runrepo.NewRepository(a.db.DB))
	if err := runSvc.RecoverAbandoned(ctx); err != nil {
		log.Warn("failed to recover interrupted runs", "error", err)
	}

	// No fetcher is built, and so no request made, without a key.
	if err := a.cfg.RequireAPIKey(); err != nil {
		return abort(err)
	}
	f, err := a.registry().Get(a.cfg.Provider)
	if err != nil {
		return abort(err)
	}

	rec := metrics.NewRecorder()
	p := pipeline.New(f,
		raterepo.NewRepository(a.db.DB),
		runrepo.NewRepository(a.db.DB),
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(rec),
		pipeline.WithStartEntry(false),
	)
	_, err = p.Run(ctx, a.cfg.BaseCurrency)

	if a.cfg.MetricsTextfile != "" {
		if werr := rec.WriteTextfile(a.cfg.MetricsTextfile); werr != nil {
			a.logger.Warn("failed to write metrics textfile", "path", a.cfg.MetricsTextfile, "error", werr)
		}
	}
	return err
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the supported environment variables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.Usage())
			return err
		},
	}
}
