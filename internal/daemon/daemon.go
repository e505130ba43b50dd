package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"logtail/internal/config"
	"logtail/internal/files"
	"logtail/internal/logging"
	"logtail/internal/logs"
	"logtail/internal/subscription"
)

// Daemon serves the files directory to remote viewers and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *files.Store
	reader   *logs.Reader
	registry *subscription.Registry
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc

	viewersMu sync.Mutex
	viewers   map[string]*viewer
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	FilesDir      string
	LockFilePath  string
	StartedAt     time.Time
	Viewers       int
	Subscriptions []subscription.Key
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *files.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	registry := subscription.NewRegistry(store, subscription.Config{
		DefaultLines: cfg.Tail.DefaultLines,
		MaxLines:     cfg.Tail.MaxLines,
		Options: subscription.Options{
			ChunkSize:    cfg.Tail.ChunkSize,
			PollInterval: cfg.PollInterval(),
			ReadLimit:    cfg.Tail.ReadLimit,
			Notify:       cfg.Tail.Notify,
		},
	}, logger)

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		reader:   logs.NewReader(store, cfg.Tail.ChunkSize),
		registry: registry,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		viewers:  make(map[string]*viewer),
	}
	d.api = newAPIServer(cfg, d, logging.NewComponentLogger(logger, "api-server"))
	return d, nil
}

// Start acquires the daemon lock and starts serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another logtail daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("logtail daemon started",
		logging.String("lock", d.lockPath),
		logging.String("files_dir", d.store.Root()),
		logging.String("address", d.APIAddress()),
	)
	return nil
}

// Stop ends every subscription, disconnects viewers, stops the API server
// and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	stopped := d.registry.StopAll()
	d.closeViewers()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.EventType("lock_release_failed"),
			logging.Hint("remove "+d.lockPath+" if no daemon is running"),
			logging.Impact("next start may report another instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("logtail daemon stopped", logging.Int("subscriptions_stopped", stopped))
}

// Close releases resources held by the daemon. A closed daemon cannot be
// restarted.
func (d *Daemon) Close() error {
	d.Stop()
	d.registry.Close()
	return nil
}

// Status returns a snapshot of daemon state.
func (d *Daemon) Status(context.Context) Status {
	d.viewersMu.Lock()
	viewers := len(d.viewers)
	d.viewersMu.Unlock()

	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		FilesDir:      d.store.Root(),
		LockFilePath:  d.lockPath,
		Viewers:       viewers,
		Subscriptions: d.registry.Active(),
	}
	if status.Running {
		status.StartedAt = d.startedAt
	}
	return status
}

// APIAddress returns the address the API server is listening on, or the
// configured bind before Start.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// ListFiles returns the served files.
func (d *Daemon) ListFiles() ([]files.Entry, error) {
	return d.store.List()
}

// SaveFile stores an uploaded file. Replacing an existing file pauses its
// subscriptions for the write and then re-tails them, so each follower gets
// one fresh initial batch of the new content.
func (d *Daemon) SaveFile(name string, r io.Reader) (int64, error) {
	if !d.store.Exists(name) {
		written, err := d.store.Save(name, r)
		if err != nil {
			return written, err
		}
		d.logger.Info("file uploaded",
			logging.File(name),
			logging.Int64("bytes", written),
			logging.EventType("file_uploaded"),
		)
		return written, nil
	}

	previous, _ := d.store.Size(name)
	var written int64
	retailed, err := d.registry.RewriteFile(name, func() error {
		var saveErr error
		written, saveErr = d.store.Save(name, r)
		return saveErr
	})
	if err != nil {
		return written, err
	}
	d.logger.Info("file replaced",
		logging.File(name),
		logging.Int64("bytes", written),
		logging.Int64("previous_bytes", previous),
		logging.Int("subscriptions_retailed", retailed),
		logging.EventType("file_replaced"),
	)
	return written, nil
}

// DeleteFile silently stops every subscription to name and removes it. It
// returns the number of subscriptions stopped. Subscriptions end before the
// file is removed.
func (d *Daemon) DeleteFile(name string) (int, error) {
	if _, err := d.store.Stat(name); err != nil {
		return 0, err
	}
	stopped := d.registry.StopFile(name)
	if err := d.store.Delete(name); err != nil {
		return stopped, err
	}
	d.logger.Info("file deleted",
		logging.File(name),
		logging.Int("subscriptions_stopped", stopped),
		logging.EventType("file_deleted"),
	)
	return stopped, nil
}

// Tail returns the last lines of name once. Non-positive counts use the
// configured default; larger counts are clamped.
func (d *Daemon) Tail(name string, lines int) ([]string, error) {
	if lines <= 0 {
		lines = d.cfg.Tail.DefaultLines
	}
	if lines > d.cfg.Tail.MaxLines {
		lines = d.cfg.Tail.MaxLines
	}
	result, err := d.reader.LastLines(name, lines)
	if err != nil {
		return nil, err
	}
	return result.Lines, nil
}

// OpenFile opens name for raw download.
func (d *Daemon) OpenFile(name string) (afero.File, fs.FileInfo, error) {
	info, err := d.store.Stat(name)
	if err != nil {
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	f, err := d.store.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

// Viewers returns the ids of connected viewers.
func (d *Daemon) Viewers() []string {
	d.viewersMu.Lock()
	defer d.viewersMu.Unlock()
	ids := make([]string, 0, len(d.viewers))
	for id := range d.viewers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *Daemon) addViewer(v *viewer) {
	d.viewersMu.Lock()
	d.viewers[v.id] = v
	d.viewersMu.Unlock()
}

func (d *Daemon) removeViewer(id string) {
	d.viewersMu.Lock()
	delete(d.viewers, id)
	d.viewersMu.Unlock()
}

func (d *Daemon) closeViewers() {
	d.viewersMu.Lock()
	viewers := make([]*viewer, 0, len(d.viewers))
	for _, v := range d.viewers {
		viewers = append(viewers, v)
	}
	d.viewersMu.Unlock()

	for _, v := range viewers {
		v.close()
	}
}
