package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fernledger/fern/internal/api"
	"github.com/fernledger/fern/internal/auth"
	"github.com/fernledger/fern/internal/backup"
	"github.com/fernledger/fern/internal/config"
	"github.com/fernledger/fern/internal/store"
	"github.com/fernledger/fern/internal/suggest"
	"github.com/fernledger/fern/internal/syncer"
	"github.com/fernledger/fern/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fern",
	Short: "Fern - personal finance sync server",
	RunE:  run,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 3. Initialize logger
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "level", cfg.Log.Level)

	// 4. Initialize store (migrations, WAL mode)
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// 5. Sync engine and auth
	svc := syncer.New(st, logger, syncer.Limits{
		DefaultPull: cfg.Sync.DefaultPullLimit,
		MaxPull:     cfg.Sync.MaxPullLimit,
	})
	verifier := auth.New(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL))

	// 6. Category suggestions (optional)
	var suggester *suggest.Service
	if cfg.Suggest.APIKey != "" {
		embedder := suggest.NewOpenAI(cfg.Suggest.APIKey, cfg.Suggest.Model)
		suggester = suggest.New(embedder, logger)
		slog.Info("suggester initialized", "model", cfg.Suggest.Model)
	}

	// 7. Initialize HTTP router
	handler := api.NewHandler(svc, st, suggester, logger, Version)
	router := api.NewRouter(handler, verifier, logger)

	// 8. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 9. Background workers
	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		return err
	}
	backupWorker := worker.NewBackupCoordinator(st, uploader, time.Duration(cfg.Backup.Interval))

	var wg sync.WaitGroup
	startWorker(ctx, &wg, "backup", backupWorker.Run)

	// 10. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called
		// gracefully. Any other error is a real failure.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// 11. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 12. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 12a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 12b. Wait for workers to complete
	wg.Wait()

	// 12c. Close store
	if err := st.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects
// context cancellation. Workers are tracked via WaitGroup for graceful
// shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn(ctx)
		slog.Info("worker finished", "worker", name)
	}()
}
