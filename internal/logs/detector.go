package logs

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"logtail/internal/logging"
)

const (
	// DefaultPollInterval is how often a followed file is checked when no interval is configured.
	DefaultPollInterval = time.Second
	// DefaultReadLimit caps a single forward read of appended bytes.
	DefaultReadLimit = 1 << 20
)

// GrowthKind distinguishes detector events.
type GrowthKind int

const (
	GrowthAppended GrowthKind = iota + 1
	GrowthTruncated
	GrowthFailed
)

func (k GrowthKind) String() string {
	switch k {
	case GrowthAppended:
		return "appended"
	case GrowthTruncated:
		return "truncated"
	case GrowthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GrowthEvent reports one observation of a followed file.
type GrowthEvent struct {
	Kind GrowthKind
	// Offset is where Data starts in the file.
	Offset int64
	Data   []byte
	// Err is ErrTruncated for GrowthTruncated and the failure for GrowthFailed.
	Err error
}

// WatchedFile is the detector's view of the followed file.
type WatchedFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// DetectorOptions tunes a Detector.
type DetectorOptions struct {
	PollInterval time.Duration
	ReadLimit    int
	// Notify enables filesystem notifications when the source exposes a local path.
	Notify bool
	Logger *slog.Logger
}

// Detector follows one file from a starting offset and reports appended
// bytes in order. Each detector runs at most once.
type Detector struct {
	src    Source
	name   string
	opts   DetectorOptions
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	file    WatchedFile
	done    chan struct{}
}

// NewDetector builds a detector for name; it does nothing until Start.
func NewDetector(src Source, name string, opts DetectorOptions) *Detector {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	return &Detector{
		src:    src,
		name:   name,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "detector").With(logging.File(name)),
		done:   make(chan struct{}),
	}
}

// Start begins following the file from startSize. The returned channel is
// closed after Stop, after ctx is cancelled, or after a GrowthFailed event.
func (d *Detector) Start(ctx context.Context, startSize int64) (<-chan GrowthEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil, ErrDetectorStarted
	}
	d.started = true
	d.file = WatchedFile{Name: d.name, Size: startSize}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	events := make(chan GrowthEvent)
	wake := d.watch(runCtx)
	go d.run(runCtx, events, wake)
	return events, nil
}

// Stop ends observation. It is safe to call more than once and before Start.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		d.started = true
		close(d.done)
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
}

// Done is closed once the detector goroutine has exited.
func (d *Detector) Done() <-chan struct{} { return d.done }

// observed returns the last successfully read state of the file.
func (d *Detector) observed() WatchedFile {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file
}

func (d *Detector) run(ctx context.Context, events chan<- GrowthEvent, wake <-chan struct{}) {
	defer close(d.done)
	defer close(events)

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}
		if !d.poll(ctx, events) {
			return
		}
	}
}

// poll compares the current size to the last observation and forwards any
// growth. It returns false when the detector should exit.
func (d *Detector) poll(ctx context.Context, events chan<- GrowthEvent) bool {
	info, err := d.src.Stat(d.name)
	if err != nil {
		d.emit(ctx, events, GrowthEvent{Kind: GrowthFailed, Err: statError(d.name, err)})
		return false
	}

	last := d.observed()
	size := info.Size()
	switch {
	case size == last.Size:
		return true
	case size < last.Size:
		d.logger.Debug("file shrank", logging.Int64("previous_size", last.Size), logging.Int64("size", size))
		d.record(WatchedFile{Name: d.name, Size: 0, ModTime: info.ModTime()})
		return d.emit(ctx, events, GrowthEvent{Kind: GrowthTruncated, Err: ErrTruncated})
	}

	offset := last.Size
	for offset < size {
		length := min(size-offset, int64(d.opts.ReadLimit))
		data, err := d.src.ReadRange(d.name, offset, int(length))
		if err != nil {
			d.emit(ctx, events, GrowthEvent{Kind: GrowthFailed, Err: readError(d.name, err)})
			return false
		}
		if len(data) == 0 {
			// shrank between stat and read; the next poll reports it
			return true
		}
		d.record(WatchedFile{Name: d.name, Size: offset + int64(len(data)), ModTime: info.ModTime()})
		if !d.emit(ctx, events, GrowthEvent{Kind: GrowthAppended, Offset: offset, Data: data}) {
			return false
		}
		offset += int64(len(data))
	}
	return true
}

func (d *Detector) record(file WatchedFile) {
	d.mu.Lock()
	d.file = file
	d.mu.Unlock()
}

func (d *Detector) emit(ctx context.Context, events chan<- GrowthEvent, evt GrowthEvent) bool {
	select {
	case events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

// watch returns a channel nudged on filesystem changes to the file, or nil
// when notifications are disabled or unavailable. Polling continues either way.
func (d *Detector) watch(ctx context.Context) <-chan struct{} {
	if !d.opts.Notify {
		return nil
	}
	local, ok := d.src.(LocalPather)
	if !ok {
		return nil
	}
	path, ok := local.LocalPath(d.name)
	if !ok {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Debug("notifications unavailable; polling only", logging.Error(err))
		return nil
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		d.logger.Debug("watch failed; polling only", logging.Error(err))
		return nil
	}

	path = filepath.Clean(path)
	wake := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != path {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.logger.Debug("watch error", logging.Error(err))
			}
		}
	}()
	return wake
}
