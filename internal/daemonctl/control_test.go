package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logtail/internal/api"
	"logtail/internal/config"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, pidFileName)
	if got := readPID(path); got != 0 {
		t.Fatalf("missing file: expected 0, got %d", got)
	}
	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readPID(path); got != 4242 {
		t.Fatalf("expected 4242, got %d", got)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readPID(path); got != 0 {
		t.Fatalf("garbage: expected 0, got %d", got)
	}
}

func TestRuntimePaths(t *testing.T) {
	pid, lock := runtimePaths("/var/lib/logtail/logs/logtaild.lock", nil)
	if pid != "/var/lib/logtail/logs/logtaild.pid" || lock != "/var/lib/logtail/logs/logtaild.lock" {
		t.Fatalf("unexpected paths %q %q", pid, lock)
	}

	cfg := config.Default()
	cfg.Paths.LogDir = "/tmp/logs"
	pid, lock = runtimePaths("", &cfg)
	if pid != cfg.PIDPath() || lock != cfg.LockPath() {
		t.Fatalf("unexpected config paths %q %q", pid, lock)
	}
}

func TestSignalProcessRefusesSelf(t *testing.T) {
	if err := signalProcess(os.Getpid(), 0); err == nil {
		t.Fatal("expected refusal to signal current process")
	}
	if err := signalProcess(0, 0); err == nil {
		t.Fatal("expected error for unknown pid")
	}
}

func TestForceKillProcessWithoutPID(t *testing.T) {
	_, err := ForceKillProcess(filepath.Join(t.TempDir(), pidFileName), "", 0)
	if err == nil {
		t.Fatal("expected error without pid")
	}
}

func TestStopAndTerminateNotRunning(t *testing.T) {
	client, err := api.NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = StopAndTerminate(context.Background(), client, nil, time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestWaitForAPIAndEnsureStartedAlreadyRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, PID: 99})
	}))
	defer srv.Close()
	client, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	status, err := WaitForAPI(context.Background(), client, time.Second)
	if err != nil || status.PID != 99 {
		t.Fatalf("WaitForAPI: %+v %v", status, err)
	}

	result, err := EnsureStarted(context.Background(), client, "", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning || result.PID != 99 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestWaitForShutdownReturnsWhenUnavailable(t *testing.T) {
	client, err := api.NewClient("127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := WaitForShutdown(context.Background(), client, time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch(" ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}
