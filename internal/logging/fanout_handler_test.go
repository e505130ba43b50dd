package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestNewFanoutHandlerCollapses(t *testing.T) {
	if _, ok := newFanoutHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}

	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRoutesByLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(infoHandler, debugHandler)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected fanout enabled for debug when one handler accepts it")
	}

	logger := slog.New(h)
	logger.Debug("growth observed", slog.Int64("offset", 42))
	if infoBuf.Len() != 0 {
		t.Fatalf("info handler should not receive debug records, got %s", infoBuf.String())
	}
	if !bytes.Contains(debugBuf.Bytes(), []byte(`"offset":42`)) {
		t.Fatalf("expected debug handler to receive record, got %s", debugBuf.String())
	}
}

func TestFanoutHandlerCarriesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h).With(String(FieldViewerID, "v-1")).WithGroup("tail")
	logger.Info("subscribed", String(FieldFile, "app.log"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"viewer_id":"v-1"`)) {
			t.Fatalf("handler %d missing viewer attr: %s", i, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"tail":{"file":"app.log"}`)) {
			t.Fatalf("handler %d missing grouped attr: %s", i, buf.String())
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))

	TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil)).Info("teed message")
	if baseBuf.Len() == 0 || teeBuf.Len() == 0 {
		t.Fatalf("expected output in both buffers, base=%q tee=%q", baseBuf.String(), teeBuf.String())
	}

	teeBuf.Reset()
	TeeLogger(nil, slog.NewJSONHandler(&teeBuf, nil)).Info("no base")
	if teeBuf.Len() == 0 {
		t.Fatal("expected output in tee buffer with nil base")
	}
}

type failingHandler struct{ err error }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }

func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }

func (f failingHandler) WithGroup(string) slog.Handler { return f }

func TestFanoutHandlerJoinsErrors(t *testing.T) {
	errA := errors.New("disk full")
	errB := errors.New("pipe closed")
	var buf bytes.Buffer
	h := newFanoutHandler(failingHandler{errA}, slog.NewJSONHandler(&buf, nil), failingHandler{errB})

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "viewer connected", 0))
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both handler errors, got %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected healthy handler to still receive the record")
	}
}
