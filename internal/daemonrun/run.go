package daemonrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"logtail/internal/config"
	"logtail/internal/daemon"
	"logtail/internal/files"
	"logtail/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	Diagnostic bool
}

// Run starts the logtail daemon and blocks until cmdCtx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("logtaild-%s.log", runID))
	logger, err := logging.NewFromConfig(cfg, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	if opts.Diagnostic {
		var closer io.Closer
		logger, closer = attachDiagnostics(logger, debugDir, runID)
		if closer != nil {
			defer closer.Close()
		}
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update logtaild.log link: %v\n", err)
	}
	logging.CleanupOldLogs(signalCtx, logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "logtaild-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: debugDir, Pattern: "logtaild-*.log"},
	)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := files.Open(cfg.Paths.FilesDir)
	if err != nil {
		logging.ErrorWithContext(signalCtx, logger, "open files directory", "files_dir_open_failed",
			logging.Error(err),
			logging.Hint("check paths.files_dir in the config"),
			logging.Impact("daemon cannot start"),
		)
		return err
	}
	if err := store.CheckAccess(); err != nil {
		logging.ErrorWithContext(signalCtx, logger, "files directory not accessible", "files_dir_access_denied",
			logging.Error(err),
			logging.Hint("grant the daemon user read, write and search permission"),
			logging.Impact("daemon cannot start"),
		)
		return err
	}

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	logConfigSnapshot(logger, cfg)
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("logtail daemon shutting down")
	return nil
}

func attachDiagnostics(logger *slog.Logger, debugDir, runID string) (*slog.Logger, io.Closer) {
	sessionID := uuid.NewString()
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("logtaild-%s.log", runID))
	handler, closer, err := logging.NewDiagnosticHandler(debugLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
		return logger, nil
	}
	logger = logging.TeeLogger(logger, handler)
	if err := ensureCurrentLogPointer(debugDir, debugLogPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update debug/logtaild.log link: %v\n", err)
	}
	logger.Info("diagnostic mode enabled",
		logging.EventType("diagnostic_mode_enabled"),
		logging.String(logging.FieldCorrelationID, sessionID),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger, closer
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "logtaild.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("config snapshot",
		logging.EventType("config_snapshot"),
		logging.String("files_dir", cfg.Paths.FilesDir),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Int("default_lines", cfg.Tail.DefaultLines),
		logging.Int("max_lines", cfg.Tail.MaxLines),
		logging.Int("chunk_size", cfg.Tail.ChunkSize),
		logging.Duration("poll_interval", cfg.PollInterval()),
		logging.Bool("notify", cfg.Tail.Notify),
		logging.Int("send_buffer", cfg.Transport.SendBuffer),
	)
}
