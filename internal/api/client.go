package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ErrAPIUnavailable reports that no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("logtail API unavailable")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client talks to a running daemon.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
}

// NewClient builds a client for bind (host:port or URL).
func NewClient(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, ErrAPIUnavailable
	}
	if !strings.Contains(bind, "://") {
		if strings.HasPrefix(bind, ":") {
			bind = "127.0.0.1" + bind
		}
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		// No overall timeout: uploads and follow streams run until the caller cancels.
		http:   &http.Client{},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

// Files lists the served directory.
func (c *Client) Files(ctx context.Context) ([]FileEntry, error) {
	var payload FileListResponse
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, "", &payload); err != nil {
		return nil, err
	}
	return payload.Files, nil
}

// Tail fetches the last lines of name once. lines <= 0 uses the daemon default.
func (c *Client) Tail(ctx context.Context, name string, lines int) ([]string, error) {
	path := "/api/tail/" + url.PathEscape(name)
	if lines > 0 {
		path += "?lines=" + strconv.Itoa(lines)
	}
	var payload TailResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &payload); err != nil {
		return nil, err
	}
	return payload.Lines, nil
}

// Upload stores r under name in the served directory.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (UploadResponse, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	var payload UploadResponse
	err := c.do(ctx, http.MethodPost, "/api/upload", pr, form.FormDataContentType(), &payload)
	_ = pr.Close()
	return payload, err
}

// Delete removes name and stops every subscription to it.
func (c *Client) Delete(ctx context.Context, name string) (DeleteResponse, error) {
	var payload DeleteResponse
	err := c.do(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(name), nil, "", &payload)
	return payload, err
}

// Status returns daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var payload DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, "", &payload)
	return payload, err
}

// Follow subscribes to name over the websocket channel and calls onEvent for
// every event until ctx is cancelled, the daemon stops the subscription, or
// the connection fails. A nil lines uses the daemon default.
func (c *Client) Follow(ctx context.Context, name string, lines *int, onEvent func(TailEvent)) error {
	endpoint := *c.base
	endpoint.Path = "/ws"
	switch endpoint.Scheme {
	case "https":
		endpoint.Scheme = "wss"
	default:
		endpoint.Scheme = "ws"
	}

	conn, _, err := c.dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(TailCommand{Command: "subscribe", File: name, Lines: lines}); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stopWatch:
		}
	}()

	for {
		var evt TailEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if onEvent != nil {
			onEvent(evt)
		}
		switch evt.Type {
		case "stopped":
			return nil
		case "error":
			code := http.StatusInternalServerError
			switch evt.Code {
			case "not_found":
				code = http.StatusNotFound
			case "invalid_command":
				code = http.StatusBadRequest
			}
			return &StatusError{Code: code, Message: evt.Message}
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	endpoint := c.base.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}
