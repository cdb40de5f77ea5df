package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/localmedia/player/internal/api"
	"github.com/localmedia/player/internal/config"
	"github.com/localmedia/player/internal/index"
	"github.com/localmedia/player/internal/library"
	"github.com/localmedia/player/internal/logging"
	"github.com/localmedia/player/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (defaults to $MEDIA_CONFIG, then ./config.yaml)")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	backend, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	lib := library.New(storage.NewStore(backend), index.New(), logger)
	if _, err := lib.Sync(ctx); err != nil {
		// the index stays empty until POST /admin/sync succeeds
		logger.Warn("initial index sync failed", zap.Error(err))
	}

	handler, err := api.New(cfg, lib, logger)
	if err != nil {
		return err
	}

	if cfg.Auth.AdminSecret == "" {
		logger.Warn("no admin secret configured, admin endpoints will refuse every request")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting media server",
			zap.String("addr", cfg.ListenAddr),
			zap.String("base_url", cfg.BaseURL),
			zap.String("storage", cfg.Storage.Type))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
