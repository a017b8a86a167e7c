package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed by the backend over /ws/events.
const (
	TypeSessionRevoked        = "session_revoked"
	TypeDeviceSessionsChanged = "device_sessions_changed"
	TypeLeaveStatusChanged    = "leave_status_changed"
)

// Event is one push notification from the backend.
type Event struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId,omitempty"`
	LeaveID  string `json:"leaveId,omitempty"`
}

// Handler receives events on the listener's read goroutine; it must not
// block.
type Handler func(Event)

// Listener maintains a websocket read pump for backend push events. It is a
// supplement to polling: every update it delivers would also arrive on the
// next poll, so a failed connection is non-fatal.
type Listener struct {
	url     string
	token   string
	handler Handler
	logger  *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

func NewListener(wsURL, accessToken string, handler Handler, logger *slog.Logger) *Listener {
	return &Listener{
		url:     wsURL,
		token:   accessToken,
		handler: handler,
		logger:  logger,
	}
}

// Start dials the event endpoint and begins reading. It returns the dial
// error, if any; the caller decides whether to fall back to polling alone.
func (l *Listener) Start(ctx context.Context) error {
	header := http.Header{}
	if l.token != "" {
		header.Set("Authorization", "Bearer "+l.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, l.url, header)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	l.mu.Lock()
	l.conn = conn
	l.done = done
	l.mu.Unlock()

	go l.readPump(conn, done)
	l.logger.Info("event listener connected", "url", l.url)
	return nil
}

// Stop closes the connection and waits for the read pump to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	conn := l.conn
	done := l.done
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
	<-done
}

func (l *Listener) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Warn("event listener closed", "error", err)
			}
			return
		}
		l.logger.Debug("event received", "type", ev.Type, "device_id", ev.DeviceID)
		l.handler(ev)
	}
}
