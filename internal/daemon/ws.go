package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"logtail/internal/api"
	"logtail/internal/logging"
	"logtail/internal/subscription"
)

var (
	errViewerClosed  = errors.New("viewer connection closed")
	errSendQueueFull = errors.New("viewer send queue full")
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// viewer is one websocket connection. It implements subscription.Sink for
// every subscription the connection holds.
type viewer struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	send         chan []byte
	done         chan struct{}
	writerDone   chan struct{}
	closeOnce    sync.Once
	pingInterval time.Duration
	writeTimeout time.Duration
	maxMessage   int64
}

func (d *Daemon) serveViewer(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		return
	}

	id := uuid.NewString()
	v := &viewer{
		id:           id,
		conn:         conn,
		logger:       logging.NewComponentLogger(d.logger, "viewer").With(logging.ViewerID(id)),
		send:         make(chan []byte, d.cfg.Transport.SendBuffer),
		done:         make(chan struct{}),
		writerDone:   make(chan struct{}),
		pingInterval: d.cfg.PingInterval(),
		writeTimeout: d.cfg.WriteTimeout(),
		maxMessage:   d.cfg.Transport.MaxMessageBytes,
	}
	d.addViewer(v)
	v.logger.Info("viewer connected",
		logging.String("remote", r.RemoteAddr),
		logging.EventType("viewer_connected"),
	)

	go v.writeLoop()
	ctx := logging.WithViewerID(r.Context(), id)
	v.readLoop(ctx, d.registry)

	v.close()
	stopped := d.registry.Disconnect(id)
	<-v.writerDone
	_ = conn.Close()
	d.removeViewer(id)
	v.logger.Info("viewer disconnected",
		logging.Int("subscriptions_stopped", stopped),
		logging.EventType("viewer_disconnected"),
	)
}

// Send queues evt for the writer. A full queue closes the connection.
func (v *viewer) Send(evt subscription.LineEvent) error {
	data, err := json.Marshal(api.FromLineEvent(evt))
	if err != nil {
		return err
	}
	select {
	case <-v.done:
		return errViewerClosed
	default:
	}
	select {
	case v.send <- data:
		return nil
	case <-v.done:
		return errViewerClosed
	default:
		logging.WarnWithContext(context.Background(), v.logger, "viewer too slow, disconnecting", "viewer_send_overflow",
			logging.File(evt.File),
			logging.Int("queue", cap(v.send)),
			logging.Hint("raise transport.send_buffer or reduce file write rate"),
			logging.Impact("viewer must reconnect and resubscribe"),
		)
		v.close()
		return errSendQueueFull
	}
}

func (v *viewer) readLoop(ctx context.Context, registry *subscription.Registry) {
	pongWait := 2 * v.pingInterval
	if v.maxMessage > 0 {
		v.conn.SetReadLimit(v.maxMessage)
	}
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				v.logger.Debug("viewer read ended", logging.Error(err))
			}
			return
		}
		_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
		if msgType != websocket.TextMessage {
			v.rejectFrame("binary frames are not supported")
			continue
		}

		var cmd api.TailCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			v.rejectFrame("malformed command: " + err.Error())
			continue
		}
		// Start failures have already been delivered as error events.
		_ = registry.Handle(ctx, v.id, cmd.ToCommand(), v)
	}
}

func (v *viewer) rejectFrame(message string) {
	_ = v.Send(subscription.LineEvent{
		Kind:    subscription.EventError,
		Code:    subscription.CodeInvalidCommand,
		Message: message,
	})
}

func (v *viewer) writeLoop() {
	ticker := time.NewTicker(v.pingInterval)
	defer ticker.Stop()
	defer close(v.writerDone)
	defer v.close()

	for {
		select {
		case msg := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(v.writeTimeout))
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				v.logger.Debug("viewer write failed", logging.Error(err))
				return
			}
		case <-ticker.C:
			if err := v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(v.writeTimeout)); err != nil {
				return
			}
		case <-v.done:
			v.flush()
			_ = v.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(v.writeTimeout))
			return
		}
	}
}

// flush writes whatever is still queued, best effort.
func (v *viewer) flush() {
	for {
		select {
		case msg := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(v.writeTimeout))
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (v *viewer) close() {
	v.closeOnce.Do(func() {
		close(v.done)
		// Unblock readLoop; writeLoop owns the orderly close frame.
		_ = v.conn.UnderlyingConn().SetReadDeadline(time.Now())
	})
}
