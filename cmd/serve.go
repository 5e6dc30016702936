package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gitline/gitline/internal/server"
	"github.com/gitline/gitline/internal/similarity"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the HTTP server exposing repository listings, profile insights,
similarity rankings, and rate-limit state. The server shuts down gracefully
on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	ranker := similarity.NewRanker(app.store, app.cfg.Cache.SimilarityTTL)
	srv := server.NewServer(app.service, ranker, &app.cfg.Server, app.logger)

	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		app.logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}

		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Stop(ctx)
}
