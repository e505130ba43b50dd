package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"logtail/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test,
// an ephemeral API port and a fast poll interval. Directories are created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.FilesDir = filepath.Join(base, "files")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Tail.PollIntervalMS = 20

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return builder.cfg
}

// WithPollInterval overrides the growth polling period.
func WithPollInterval(d time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tail.PollIntervalMS = int(d / time.Millisecond)
	}
}

// WithLines overrides the default and maximum initial batch sizes.
func WithLines(defaultLines, maxLines int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tail.DefaultLines = defaultLines
		b.cfg.Tail.MaxLines = maxLines
	}
}

// WithoutNotify disables fsnotify so growth is observed by polling only.
func WithoutNotify() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tail.Notify = false
	}
}
