package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

type stubSource struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (s *stubSource) BackupTo(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.paths = append(s.paths, path)
	return os.WriteFile(path, []byte("backup"), 0o600)
}

func (s *stubSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

type stubUploader struct {
	mu      sync.Mutex
	uploads []string
	enabled bool
	err     error
}

func (u *stubUploader) Upload(_ context.Context, filePath string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.uploads = append(u.uploads, filePath)
	return "backups/test.db", nil
}

func (u *stubUploader) Enabled() bool { return u.enabled }

func (u *stubUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploads)
}

func TestRunExitsImmediatelyWhenDisabled(t *testing.T) {
	source := &stubSource{}
	c := NewBackupCoordinator(source, &stubUploader{enabled: false}, time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit for a disabled uploader")
	}
	if source.count() != 0 {
		t.Errorf("backups taken = %d, want 0", source.count())
	}
}

func TestRunBacksUpOnStartAndOnTick(t *testing.T) {
	source := &stubSource{}
	uploader := &stubUploader{enabled: true}
	c := NewBackupCoordinator(source, uploader, 10*time.Millisecond)
	c.tmpDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for uploader.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("uploads = %d, want >= 2", uploader.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRunCleansUpTempFiles(t *testing.T) {
	source := &stubSource{}
	uploader := &stubUploader{enabled: true}
	c := NewBackupCoordinator(source, uploader, time.Hour)
	c.tmpDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for uploader.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("initial backup never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	entries, err := os.ReadDir(c.tmpDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir has %d leftover files", len(entries))
	}
}

func TestRunContinuesAfterBackupFailure(t *testing.T) {
	source := &stubSource{err: errors.New("disk full")}
	uploader := &stubUploader{enabled: true}
	c := NewBackupCoordinator(source, uploader, 5*time.Millisecond)
	c.tmpDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
	if uploader.count() != 0 {
		t.Errorf("uploads = %d, want 0 when backups fail", uploader.count())
	}
}
