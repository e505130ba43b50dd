package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"logtail/internal/api"
	"logtail/internal/config"
	"logtail/internal/files"
	"logtail/internal/logging"
	"logtail/internal/logs"
)

type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	maxUpload int64

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	return &apiServer{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		logger:    logger,
		daemon:    d,
		maxUpload: cfg.Transport.MaxUploadBytes,
	}
}

func (s *apiServer) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestContext)

	r.Get("/api/files", s.handleFiles)
	r.Post("/api/upload", s.handleUpload)
	r.Delete("/api/files/{name}", s.handleDelete)
	r.Get("/api/tail/{name}", s.handleTail)
	r.Get("/api/status", s.handleStatus)
	r.Get("/logs/{name}", s.handleRaw)
	r.Get("/ws", s.daemon.serveViewer)
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(ctx, s.logger, "api server error", "api_serve_failed",
				logging.Error(err),
				logging.Hint("check that "+s.bind+" is reachable"),
				logging.Impact("viewers cannot connect"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	listener := s.listener
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		logging.WithContext(ctx, s.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) handleFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := s.daemon.ListFiles()
	if err != nil {
		s.logFailure(r, "list files failed", "files_list_failed", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to read directory")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FileListResponse{Files: api.FromEntries(entries)})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		default:
			s.writeError(w, http.StatusBadRequest, "No file uploaded")
		}
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	name := header.Filename
	if err := files.ValidateName(name); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	written, err := s.daemon.SaveFile(name, file)
	if err != nil {
		s.logFailure(r, "upload failed", "file_upload_failed", err, logging.File(name))
		s.writeError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}
	s.writeJSON(w, http.StatusOK, api.UploadResponse{
		Message:  "File uploaded successfully",
		Filename: name,
		Size:     written,
	})
}

func (s *apiServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	stopped, err := s.daemon.DeleteFile(name)
	switch {
	case err == nil:
	case errors.Is(err, files.ErrInvalidName):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, fs.ErrNotExist):
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	default:
		s.logFailure(r, "delete failed", "file_delete_failed", err, logging.File(name))
		s.writeError(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeleteResponse{
		Message:              "File deleted successfully",
		StoppedSubscriptions: stopped,
	})
}

func (s *apiServer) handleTail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	lines, _ := strconv.Atoi(r.URL.Query().Get("lines"))
	result, err := s.daemon.Tail(name, lines)
	switch {
	case err == nil:
	case errors.Is(err, files.ErrInvalidName):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, logs.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	default:
		s.logFailure(r, "tail failed", "tail_read_failed", err, logging.File(name))
		s.writeError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	s.writeJSON(w, http.StatusOK, api.TailResponse{Lines: result})
}

func (s *apiServer) handleRaw(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, info, err := s.daemon.OpenFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, files.ErrInvalidName) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		s.logFailure(r, "open failed", "file_open_failed", err, logging.File(name))
		http.Error(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		FilesDir:      status.FilesDir,
		LockFilePath:  status.LockFilePath,
		Viewers:       status.Viewers,
		Subscriptions: api.FromKeys(status.Subscriptions),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = status.StartedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) logFailure(r *http.Request, msg, eventType string, err error, attrs ...logging.Attr) {
	attrs = append(attrs,
		logging.Error(err),
		logging.Hint("check permissions on "+s.daemon.store.Root()),
		logging.Impact("request failed"),
	)
	logging.WarnWithContext(r.Context(), s.logger, msg, eventType, attrs...)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		s.logger.Warn("api encode failed",
			logging.Error(err),
			logging.EventType("api_encode_failed"),
			logging.Hint("client may have disconnected"),
			logging.Impact("response truncated"),
		)
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
