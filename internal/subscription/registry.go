package subscription

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"logtail/internal/logging"
	"logtail/internal/logs"
)

// Config sizes initial batches and tunes the engine for new subscriptions.
type Config struct {
	DefaultLines int
	MaxLines     int
	Options      Options
}

// Registry owns every live subscription keyed by (viewer, file).
type Registry struct {
	src    logs.Source
	cfg    Config
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	subs   map[Key]*Subscription
	closed bool

	// rewriting serializes RewriteFile calls.
	rewriting sync.Mutex
}

// NewRegistry builds an empty registry reading from src.
func NewRegistry(src logs.Source, cfg Config, logger *slog.Logger) *Registry {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 10000
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		src:    src,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "subscription"),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[Key]*Subscription),
	}
}

// Handle executes a viewer command. Validation and startup failures are
// reported to sink as error events and also returned.
func (r *Registry) Handle(ctx context.Context, viewerID string, cmd Command, sink Sink) error {
	if err := cmd.Validate(); err != nil {
		_ = sink.Send(errorEvent(cmd.File, err))
		logging.WarnWithContext(ctx, r.logger, "viewer command rejected", "command_invalid",
			logging.ViewerID(viewerID),
			logging.Error(err),
			logging.Hint("send {\"command\":\"subscribe\",\"file\":\"<name>\"}"),
			logging.Impact("command ignored"),
		)
		return err
	}
	switch cmd.Action {
	case ActionUnsubscribe:
		return r.Unsubscribe(viewerID, cmd.File)
	default:
		lines := r.cfg.DefaultLines
		if cmd.Lines != nil {
			lines = *cmd.Lines
		}
		return r.Subscribe(viewerID, cmd.File, lines, sink)
	}
}

// Subscribe starts streaming file to viewerID, replacing any subscription
// with the same identity. Start errors have already been sent to sink.
func (r *Registry) Subscribe(viewerID, file string, lines int, sink Sink) error {
	key := Key{ViewerID: viewerID, File: file}
	sub := newSubscription(key, r.clampLines(lines), r.src, sink, r.cfg.Options, r.logger, r.onExit)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	prev := r.subs[key]
	r.subs[key] = sub
	r.mu.Unlock()

	if prev != nil {
		_ = prev.Stop(StopReplaced)
	}

	err := sub.Start(r.ctx)
	switch {
	case errors.Is(err, ErrAlreadyStopped):
		return nil
	case err != nil:
		return err
	}
	r.logger.Info("subscribed",
		logging.ViewerID(viewerID),
		logging.File(file),
		logging.Int("lines", sub.lines),
		logging.Bool("replaced", prev != nil),
		logging.EventType("subscription_started"),
	)
	return nil
}

// Unsubscribe stops the viewer's subscription to file, sending a stopped
// event. Unknown identities are a no-op.
func (r *Registry) Unsubscribe(viewerID, file string) error {
	key := Key{ViewerID: viewerID, File: file}
	r.mu.Lock()
	sub := r.subs[key]
	delete(r.subs, key)
	r.mu.Unlock()

	if sub == nil {
		return nil
	}
	err := sub.Stop(StopUnsubscribed)
	if errors.Is(err, ErrAlreadyStopped) {
		// Stopped for a re-tail that will no longer happen.
		sub.notifyUnsubscribed()
		return nil
	}
	return err
}

// RewriteFile runs write while every subscription to file is paused, then
// re-tails each one so its viewer receives a single fresh initial batch.
// It returns how many subscriptions were re-tailed and write's error.
func (r *Registry) RewriteFile(file string, write func() error) (int, error) {
	r.rewriting.Lock()
	defer r.rewriting.Unlock()

	r.mu.Lock()
	var paused []*Subscription
	for key, sub := range r.subs {
		if key.File == file {
			paused = append(paused, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range paused {
		_ = sub.Stop(StopRewritten)
	}
	err := write()

	retailed := 0
	for _, sub := range paused {
		if r.restart(sub, StopRewritten) {
			retailed++
		}
	}
	return retailed, err
}

// Disconnect silently stops every subscription held by viewerID.
func (r *Registry) Disconnect(viewerID string) int {
	return r.stopWhere(StopDisconnected, func(k Key) bool { return k.ViewerID == viewerID })
}

// StopFile silently stops every subscription to file.
func (r *Registry) StopFile(file string) int {
	return r.stopWhere(StopDeleted, func(k Key) bool { return k.File == file })
}

// StopAll silently stops every subscription but keeps the registry usable.
func (r *Registry) StopAll() int {
	return r.stopWhere(StopShutdown, func(Key) bool { return true })
}

// Close stops every subscription and rejects new ones.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.StopAll()
	r.cancel()
}

// Active returns the identities of live subscriptions sorted by viewer then file.
func (r *Registry) Active() []Key {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.subs))
	for key := range r.subs {
		keys = append(keys, key)
	}
	r.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ViewerID != keys[j].ViewerID {
			return keys[i].ViewerID < keys[j].ViewerID
		}
		return keys[i].File < keys[j].File
	})
	return keys
}

func (r *Registry) stopWhere(reason StopReason, match func(Key) bool) int {
	r.mu.Lock()
	var victims []*Subscription
	for key, sub := range r.subs {
		if match(key) {
			victims = append(victims, sub)
			delete(r.subs, key)
		}
	}
	r.mu.Unlock()

	stopped := 0
	for _, sub := range victims {
		if sub.Stop(reason) == nil {
			stopped++
		}
	}
	return stopped
}

func (r *Registry) clampLines(lines int) int {
	if lines < 0 {
		return 0
	}
	return min(lines, r.cfg.MaxLines)
}

// onExit runs after a subscription stops, outside its lock.
func (r *Registry) onExit(sub *Subscription, reason StopReason) {
	r.mu.Lock()
	current := r.subs[sub.key] == sub
	if current && !reason.retails() {
		delete(r.subs, sub.key)
	}
	r.mu.Unlock()

	r.logger.Info("subscription stopped",
		logging.ViewerID(sub.key.ViewerID),
		logging.File(sub.key.File),
		logging.String("reason", string(reason)),
		logging.EventType("subscription_stopped"),
	)
	// RewriteFile restarts its own paused subscriptions once the write is done.
	if reason == StopTruncated && current {
		r.restart(sub, reason)
	}
}

// restart replaces a stopped subscription that is still mapped with a fresh
// one that re-reads the file's tail. It reports whether a new instance started.
func (r *Registry) restart(prev *Subscription, reason StopReason) bool {
	next := newSubscription(prev.key, prev.lines, r.src, prev.sink, r.cfg.Options, r.logger, r.onExit)
	r.mu.Lock()
	if r.closed || r.subs[prev.key] != prev {
		r.mu.Unlock()
		return false
	}
	r.subs[prev.key] = next
	r.mu.Unlock()

	r.logger.Info("re-reading tail",
		logging.ViewerID(prev.key.ViewerID),
		logging.File(prev.key.File),
		logging.String("reason", string(reason)),
		logging.EventType("subscription_restarted"),
	)
	err := next.Start(r.ctx)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrAlreadyStopped):
		return false
	}
	logging.WarnWithContext(r.ctx, r.logger, "re-reading tail failed", "subscription_restart_failed",
		logging.ViewerID(prev.key.ViewerID),
		logging.File(prev.key.File),
		logging.String("reason", string(reason)),
		logging.Error(err),
		logging.Impact("viewer stops receiving lines for this file"),
	)
	return false
}
