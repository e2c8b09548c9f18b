package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the source classification HTTP server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			a, err := buildAnalyzer(e.cfg, e.logger)
			if err != nil {
				return err
			}
			opts := api.Options{RequestTimeout: e.cfg.RequestTimeout()}
			if e.cfg.Auth.Enabled {
				opts.APIKey = e.cfg.Auth.APIKey
			}
			server := api.NewServer(a, opts, e.logger.Named("api"))
			return listenAndServe(cmd.Context(), e.cfg.Server.Port, server.Handler(), e.cfg.ShutdownTimeout(), e.logger)
		},
	}
}

// listenAndServe runs handler on port until SIGINT/SIGTERM or ctx ends, then
// drains in-flight requests for up to shutdownTimeout.
func listenAndServe(
	ctx context.Context,
	port int,
	handler http.Handler,
	shutdownTimeout time.Duration,
	logger *zap.Logger,
) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
