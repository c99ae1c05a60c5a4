package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/studyquest/studyquest/internal/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsBuffer     = 64
)

// WSMessage is one frame of the reward feed.
type WSMessage struct {
	Type    string               `json:"type"` // "snapshot" or "reward"
	Pending []domain.RewardEvent `json:"pending,omitempty"`
	Event   *domain.RewardEvent  `json:"event,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleRewardsWS streams reward events as they are enqueued. The first
// frame is a snapshot of everything still pending.
func (s *Server) handleRewardsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	pending, events, cancel := s.engine.Rewards().SubscribeWithPending(wsBuffer)
	defer cancel()

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("reward feed connected")
	defer s.log.Debug().Str("remote", r.RemoteAddr).Msg("reward feed disconnected")

	// Reader: only needed to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg WSMessage) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(msg)
	}

	if err := write(WSMessage{Type: "snapshot", Pending: pending}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := write(WSMessage{Type: "reward", Event: &ev}); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
