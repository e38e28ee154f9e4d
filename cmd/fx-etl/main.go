package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/cli"
)

func main() {
	// Cancelled on SIGINT/SIGTERM: a run in progress is journaled as failed
	// and serve shuts down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(apperror.ExitCode(err))
	}
}
