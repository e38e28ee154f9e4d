package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahmethakanbesel/fx-etl/internal/metrics"
	"github.com/ahmethakanbesel/fx-etl/internal/rate"
	raterepo "github.com/ahmethakanbesel/fx-etl/internal/repository/rate"
	runrepo "github.com/ahmethakanbesel/fx-etl/internal/repository/run"
	"github.com/ahmethakanbesel/fx-etl/internal/run"
	"github.com/ahmethakanbesel/fx-etl/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(o *options) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored rates and run history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(o)
			if err != nil {
				return err
			}
			defer a.Close()
			if port == "" {
				port = a.cfg.Port
			}

			ctx := cmd.Context()
			runSvc := run.NewService(runrepo.NewRepository(a.db.DB))

			// Seed the gauges from the journal so /metrics reflects the
			// last run made by the one-shot command.
			rec := metrics.NewRecorder()
			if latest, err := runSvc.Latest(ctx); err != nil {
				a.logger.Warn("failed to load latest run", "error", err)
			} else {
				rec.ObserveRun(latest)
			}

			srv := server.New(ctx, port, server.NewHandler(server.Deps{
				Rates:   rate.NewService(raterepo.NewRepository(a.db.DB)),
				Runs:    runSvc,
				Sources: a.registry().Sources(),
				Metrics: rec.Handler(),
			}))
			return serve(ctx, srv)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	return cmd
}

// serve runs srv until ctx is cancelled, then drains connections.
func serve(ctx context.Context, srv *server.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
