package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"logtail/internal/logging"
	"logtail/internal/logs"
)

// State is the lifecycle position of a Subscription.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason records why a subscription ended.
type StopReason string

const (
	StopUnsubscribed StopReason = "unsubscribed"
	StopDisconnected StopReason = "disconnected"
	StopReplaced     StopReason = "replaced"
	StopDeleted      StopReason = "deleted"
	StopTruncated    StopReason = "truncated"
	StopRewritten    StopReason = "rewritten"
	StopFailed       StopReason = "failed"
	StopShutdown     StopReason = "shutdown"
)

// retails reports whether the registry replaces a subscription stopped for
// this reason with a fresh instance for the same identity.
func (r StopReason) retails() bool {
	return r == StopTruncated || r == StopRewritten
}

// Key identifies a subscription: one viewer following one file.
type Key struct {
	ViewerID string
	File     string
}

func (k Key) String() string { return k.ViewerID + "/" + k.File }

// Options tunes the tail engine behind each subscription.
type Options struct {
	ChunkSize    int
	PollInterval time.Duration
	ReadLimit    int
	Notify       bool
}

// Subscription streams one file to one viewer. It is created by Registry.
type Subscription struct {
	key    Key
	lines  int
	src    logs.Source
	sink   Sink
	opts   Options
	logger *slog.Logger
	onExit func(*Subscription, StopReason)

	mu        sync.Mutex
	state     State
	reason    StopReason
	detector  *logs.Detector
	assembler logs.Assembler
	done      chan struct{}
}

func newSubscription(key Key, lines int, src logs.Source, sink Sink, opts Options, logger *slog.Logger, onExit func(*Subscription, StopReason)) *Subscription {
	return &Subscription{
		key:   key,
		lines: lines,
		src:   src,
		sink:  sink,
		opts:  opts,
		logger: logger.With(
			logging.ViewerID(key.ViewerID),
			logging.File(key.File),
		),
		onExit: onExit,
		done:   make(chan struct{}),
	}
}

func (s *Subscription) Key() Key { return s.key }

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason reports why the subscription stopped; empty while running.
func (s *Subscription) Reason() StopReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Done is closed when the subscription reaches StateStopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Start sends the initial batch and begins following the file. It returns
// ErrAlreadyStopped when the subscription was stopped before or during
// initialization; any other error has already been reported to the sink.
func (s *Subscription) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStopped
	}
	s.state = StateInitializing
	s.mu.Unlock()

	result, err := logs.NewReader(s.src, s.opts.ChunkSize).LastLines(s.key.File, s.lines)
	if err != nil {
		s.fail(err)
		return err
	}

	detector := logs.NewDetector(s.src, s.key.File, logs.DetectorOptions{
		PollInterval: s.opts.PollInterval,
		ReadLimit:    s.opts.ReadLimit,
		Notify:       s.opts.Notify,
		Logger:       s.logger,
	})
	// No event is consumed until run starts, so the initial batch goes out first.
	events, err := detector.Start(ctx, result.Offset)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	if s.state != StateInitializing {
		s.mu.Unlock()
		detector.Stop()
		return ErrAlreadyStopped
	}
	s.detector = detector
	if err := s.sink.Send(LineEvent{Kind: EventInitialBatch, File: s.key.File, Lines: result.Lines}); err != nil {
		s.stopLocked(StopDisconnected)
		s.mu.Unlock()
		s.exit(StopDisconnected)
		return err
	}
	s.state = StateActive
	s.mu.Unlock()

	s.logger.Debug("subscription active",
		logging.Int("initial_lines", len(result.Lines)),
		logging.Int64("offset", result.Offset),
	)
	go s.run(events)
	return nil
}

// Stop ends the subscription. Only StopUnsubscribed notifies the viewer.
// No event is sent after Stop returns.
func (s *Subscription) Stop(reason StopReason) error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStopped
	}
	if reason == StopUnsubscribed {
		_ = s.sink.Send(LineEvent{Kind: EventStopped, File: s.key.File})
	}
	s.stopLocked(reason)
	s.mu.Unlock()
	s.exit(reason)
	return nil
}

// notifyUnsubscribed sends the stopped event for a subscription that had
// already stopped to be re-tailed when the viewer unsubscribed.
func (s *Subscription) notifyUnsubscribed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped && s.reason.retails() {
		_ = s.sink.Send(LineEvent{Kind: EventStopped, File: s.key.File})
	}
}

func (s *Subscription) run(events <-chan logs.GrowthEvent) {
	for evt := range events {
		switch evt.Kind {
		case logs.GrowthAppended:
			if !s.deliver(evt.Data) {
				return
			}
		case logs.GrowthTruncated:
			s.finish(StopTruncated, nil)
			return
		case logs.GrowthFailed:
			s.finish(StopFailed, evt.Err)
			return
		}
	}
}

func (s *Subscription) deliver(data []byte) bool {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return false
	}
	for _, line := range s.assembler.Feed(data) {
		if err := s.sink.Send(LineEvent{Kind: EventNewLine, File: s.key.File, Line: line}); err != nil {
			s.logger.Debug("viewer send failed", logging.Error(err))
			s.stopLocked(StopDisconnected)
			s.mu.Unlock()
			s.exit(StopDisconnected)
			return false
		}
	}
	s.mu.Unlock()
	return true
}

// finish stops an active subscription from its own event loop, reporting
// cause to the viewer when set.
func (s *Subscription) finish(reason StopReason, cause error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	if cause != nil {
		_ = s.sink.Send(errorEvent(s.key.File, cause))
	}
	s.stopLocked(reason)
	s.mu.Unlock()
	s.exit(reason)
}

// fail reports a startup error and stops the subscription.
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.state != StateInitializing {
		s.mu.Unlock()
		return
	}
	_ = s.sink.Send(errorEvent(s.key.File, err))
	s.stopLocked(StopFailed)
	s.mu.Unlock()
	s.exit(StopFailed)
}

func (s *Subscription) stopLocked(reason StopReason) {
	s.state = StateStopped
	s.reason = reason
	if s.detector != nil {
		s.detector.Stop()
	}
	s.assembler.Reset()
	close(s.done)
}

func (s *Subscription) exit(reason StopReason) {
	if s.onExit != nil {
		s.onExit(s, reason)
	}
}
