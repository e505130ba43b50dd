package subscription_test

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"logtail/internal/files"
	"logtail/internal/logging"
	"logtail/internal/subscription"
)

const root = "/served"

type recordingSink struct {
	mu     sync.Mutex
	events []subscription.LineEvent
	broken atomic.Bool
}

func (s *recordingSink) Send(evt subscription.LineEvent) error {
	if s.broken.Load() {
		return errors.New("viewer gone")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *recordingSink) Events() []subscription.LineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]subscription.LineEvent(nil), s.events...)
}

func (s *recordingSink) Kinds() []subscription.EventKind {
	var kinds []subscription.EventKind
	for _, evt := range s.Events() {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

func (s *recordingSink) NewLines() []string {
	var lines []string
	for _, evt := range s.Events() {
		if evt.Kind == subscription.EventNewLine {
			lines = append(lines, evt.Line)
		}
	}
	return lines
}

type fixture struct {
	mem      afero.Fs
	store    *files.Store
	registry *subscription.Registry
}

func newFixture(t *testing.T, mutate ...func(*subscription.Config)) *fixture {
	t.Helper()
	mem := afero.NewMemMapFs()
	store, err := files.NewStore(mem, root)
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	cfg := subscription.Config{
		DefaultLines: 10,
		MaxLines:     100,
		Options: subscription.Options{
			ChunkSize:    8,
			PollInterval: 5 * time.Millisecond,
		},
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	registry := subscription.NewRegistry(store, cfg, logging.NewNop())
	t.Cleanup(registry.Close)
	return &fixture{mem: mem, store: store, registry: registry}
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	if err := afero.WriteFile(f.mem, root+"/"+name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func (f *fixture) append(t *testing.T, name, content string) {
	t.Helper()
	file, err := f.mem.OpenFile(root+"/"+name, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer file.Close()
	if _, err := file.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", name, err)
	}
}

func (f *fixture) truncate(t *testing.T, name string) {
	t.Helper()
	file, err := f.mem.OpenFile(root+"/"+name, os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer file.Close()
	if err := file.Truncate(0); err != nil {
		t.Fatalf("truncate %s: %v", name, err)
	}
}

func intPtr(v int) *int { return &v }
