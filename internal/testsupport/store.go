package testsupport

import (
	"context"
	"testing"

	"logtail/internal/config"
	"logtail/internal/daemon"
	"logtail/internal/files"
	"logtail/internal/logging"
)

// MustOpenStore opens an OS-backed files.Store over cfg's files directory.
func MustOpenStore(t testing.TB, cfg *config.Config) *files.Store {
	t.Helper()
	store, err := files.Open(cfg.Paths.FilesDir)
	if err != nil {
		t.Fatalf("files.Open: %v", err)
	}
	return store
}

// NewDaemon builds a daemon over cfg with a no-op logger and registers Close
// as cleanup.
func NewDaemon(t testing.TB, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, MustOpenStore(t, cfg), logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

// StartDaemon builds and starts a daemon over cfg.
func StartDaemon(t testing.TB, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d := NewDaemon(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	return d
}
