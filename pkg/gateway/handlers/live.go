package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dome317/lead-intelligence-bot/pkg/gateway/apierror"
	"github.com/dome317/lead-intelligence-bot/pkg/session"
)

const (
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
)

// LiveHandler upgrades to WebSocket and relays a session's live events:
// every transcript append (including synthetic contact turns), input
// requests, the captured lead, and session end. This is the conversation
// channel an avatar bridge listens on; inbound frames are ignored.
type LiveHandler struct {
	Manager        *session.Manager
	Logger         *slog.Logger
	AllowedOrigins map[string]struct{}
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Manager.Get(r.PathValue("id"))
	if !ok {
		apierror.Write(w, http.StatusNotFound, "Session not found")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(h.AllowedOrigins) == 0 {
				return true
			}
			_, allowed := h.AllowedOrigins[origin]
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		return
	}
	defer conn.Close()

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	// Reader goroutine: inbound frames are discarded, but a read error is
	// how we learn the peer went away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(livePingInterval)
	defer pings.Stop()

	for {
		select {
		case ev, open := <-events:
			if !open {
				deadline := time.Now().Add(liveWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), deadline)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.Logger.Debug("live channel write failed", "session_id", s.ID, "error", err)
				return
			}
		case <-pings.C:
			deadline := time.Now().Add(liveWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
