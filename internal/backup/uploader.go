// Package backup provides S3-compatible upload of database backups.
// When S3 is not configured (empty bucket), the NoopUploader is used and
// all upload operations are skipped, keeping the system in local-only
// mode.
package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"

	"github.com/fernledger/fern/internal/config"
)

// ErrNotConfigured is returned when backup storage is not configured.
var ErrNotConfigured = errors.New("backup storage not configured")

// Uploader uploads database backup files.
type Uploader interface {
	// Upload uploads the backup file and returns the object key it was
	// stored under.
	Upload(ctx context.Context, filePath string) (string, error)

	// Enabled reports whether uploads actually go anywhere.
	Enabled() bool
}

// s3Client defines the minimal minio.Client operations used by
// S3Uploader. This interface enables testing with mock implementations.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string) error
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client
// interface with fixed put options.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath string) error {
	putOpts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, putOpts)
	return err
}

// S3Uploader uploads backups to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
}

// Upload uploads the backup file under a fresh ULID key. ULIDs sort by
// creation time, so listing the bucket lists backups chronologically.
func (u *S3Uploader) Upload(ctx context.Context, filePath string) (string, error) {
	key := objectKey(ulid.Make())
	if err := u.client.FPutObject(ctx, u.bucket, key, filePath); err != nil {
		return "", fmt.Errorf("upload backup to S3: %w", err)
	}
	return key, nil
}

// Enabled reports true; S3Uploader always uploads.
func (u *S3Uploader) Enabled() bool { return true }

// NoopUploader is used when backup storage is not configured.
type NoopUploader struct{}

// Upload returns ErrNotConfigured.
func (u *NoopUploader) Upload(ctx context.Context, filePath string) (string, error) {
	return "", ErrNotConfigured
}

// Enabled reports false; callers skip backup generation entirely.
func (u *NoopUploader) Enabled() bool { return false }

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.BackupConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
	}, nil
}

// objectKey returns the S3 object key for a backup.
// Convention: backups/{ulid}.db
func objectKey(id ulid.ULID) string {
	return "backups/" + id.String() + ".db"
}
