package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semindex"
	"github.com/kailas-cloud/semindex/internal/config"
	chiTransport "github.com/kailas-cloud/semindex/internal/transport/chi"
	"github.com/kailas-cloud/semindex/internal/version"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the JSON view server for a UI layer",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default from config)",
			},
			&cli.StringFlag{
				Name:  "location",
				Usage: "Initial location to restore, e.g. \"/?q=vector+search\"",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := cmd.String("env")
	opts := []semindex.Option{semindex.WithPrometheus(prometheus.DefaultRegisterer)}
	if loc := cmd.String("location"); loc != "" {
		opts = append(opts, semindex.WithLocation(loc))
	}
	s, err := openSession(cmd, env, opts...)
	if err != nil {
		return err
	}
	defer s.close()

	restoreSession(ctx, s)

	port := s.cfg.HTTP.Port
	if p := cmd.Int("port"); p > 0 {
		port = p
	}

	s.logger.Info("Starting semindex view server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", port),
		zap.String("api_base_url", s.cfg.API.BaseURL),
		zap.String("mode", s.cfg.Search.Mode),
		zap.String("content_cache", s.cfg.ContentCache.Driver),
	)

	server := chiTransport.NewServer(
		s.client.Search(), s.client.Filters(), s.client.Notifications(), s.client.Health(), s.logger,
	)
	srv := newHTTPServer(&s.cfg.HTTP, port, server.Handler(s.cfg.HTTP.APIKeys))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during shutdown", zap.Error(err))
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}

// restoreSession replays the query carried by the initial location so the
// first GET /state already shows its results. Failures stay in the session's
// notification and do not stop the server.
func restoreSession(ctx context.Context, s *session) {
	restored, err := s.client.Search().Restore(ctx)
	switch {
	case err != nil:
		s.logger.Warn("Restoring search from location failed",
			zap.String("location", s.client.Location().String()), zap.Error(err))
	case restored:
		s.logger.Info("Restored search from location",
			zap.String("query", s.client.Search().Query()),
			zap.Int("results", len(s.client.Search().Results())))
	}
}

func newHTTPServer(cfg *config.HTTPConfig, port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      h,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}
}
