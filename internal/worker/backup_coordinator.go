// Package worker runs the periodic background jobs of the server.
package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fernledger/fern/internal/backup"
)

// BackupSource writes a consistent copy of the database to a path.
type BackupSource interface {
	BackupTo(ctx context.Context, path string) error
}

// BackupCoordinator periodically snapshots the database and uploads the
// copy to S3-compatible storage.
type BackupCoordinator struct {
	source   BackupSource
	uploader backup.Uploader
	interval time.Duration
	tmpDir   string
}

// NewBackupCoordinator creates a coordinator. When the uploader is
// disabled the Run loop exits immediately.
func NewBackupCoordinator(source BackupSource, uploader backup.Uploader, interval time.Duration) *BackupCoordinator {
	return &BackupCoordinator{
		source:   source,
		uploader: uploader,
		interval: interval,
		tmpDir:   os.TempDir(),
	}
}

// Run starts the coordinator loop. It blocks until ctx is cancelled.
func (c *BackupCoordinator) Run(ctx context.Context) {
	if !c.uploader.Enabled() {
		slog.Info("backup worker disabled",
			"component", "worker",
			"worker", "backup-coordinator",
			"action", "worker_disabled",
			"reason", "no_bucket_configured",
		)
		return
	}

	slog.Info("worker started",
		"component", "worker",
		"worker", "backup-coordinator",
		"action", "worker_started",
		"interval", c.interval.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Take a backup immediately on start
	c.backupOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "backup-coordinator",
				"action", "worker_stopped",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.backupOnce(ctx)
		}
	}
}

// backupOnce writes one database copy and uploads it.
// Failures are logged as warnings; the next tick tries again.
func (c *BackupCoordinator) backupOnce(ctx context.Context) {
	// VACUUM INTO refuses to overwrite, so every cycle gets a fresh path.
	path := filepath.Join(c.tmpDir, "fern-backup-"+ulid.Make().String()+".db")
	defer os.Remove(path)

	if err := c.source.BackupTo(ctx, path); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("backup generation failed",
			"component", "worker",
			"worker", "backup-coordinator",
			"action", "backup_failed",
			"error", err,
		)
		return
	}

	key, err := c.uploader.Upload(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("backup upload failed",
			"component", "worker",
			"worker", "backup-coordinator",
			"action", "backup_upload_failed",
			"error", err,
		)
		return
	}

	slog.Info("backup uploaded",
		"component", "worker",
		"worker", "backup-coordinator",
		"action", "backup_uploaded",
		"object_key", key,
	)
}
