package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/hostsim"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// bridgeConn is one websocket client. Writes are serialized; the read loop and
// broadcasts both write to it.
type bridgeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
}

func (c *bridgeConn) writeEvent(ev event.Event) {
	msg := types.Message{EventType: string(ev.Name), EventData: ev.Payload}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		logging.Warn().Err(err).Str("event", string(ev.Name)).Msg("failed to write event")
	}
}

func (c *bridgeConn) close() {
	c.once.Do(func() {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		c.writeMu.Unlock()
		c.conn.Close()
	})
}

// bridge handles GET /bridge. Each inbound message is a command for the host
// emulator; every event the emulator emits is written back on the same socket.
func (s *Server) bridge(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &bridgeConn{conn: conn}
	s.track(c)
	defer func() {
		s.untrack(c)
		c.once.Do(func() { conn.Close() })
	}()

	host := hostsim.New(s.storage, c.writeEvent, s.hostOpts...)
	logging.Info().Str("remote", r.RemoteAddr).Msg("bridge client connected")

	for {
		var msg types.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn().Err(err).Msg("bridge client read failed")
			}
			break
		}
		if msg.EventType == "" {
			logging.Warn().Msg("bridge message without eventType ignored")
			continue
		}
		if err := host.Handle(r.Context(), msg.EventType, msg.EventData); err != nil {
			logging.Warn().Err(err).Str("method", msg.EventType).Msg("host rejected command")
		}
	}

	logging.Info().Str("remote", r.RemoteAddr).Msg("bridge client disconnected")
}

// broadcast handles POST /event.
func (s *Server) broadcast(w http.ResponseWriter, r *http.Request) {
	var msg types.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid event body")
		return
	}
	if msg.EventType == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "eventType is required")
		return
	}

	ev := event.Event{Name: event.Name(msg.EventType), Payload: msg.EventData}
	conns := s.snapshot()
	for _, c := range conns {
		c.writeEvent(ev)
	}

	writeJSON(w, http.StatusOK, map[string]int{"delivered": len(conns)})
}

// health handles GET /health.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.ConnectionCount(),
	})
}
