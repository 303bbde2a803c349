package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/airset-dev/airset/pkg/store"
	"github.com/airset-dev/airset/pkg/tree"
	"github.com/gorilla/websocket"
)

// Watch message types.
const (
	MessageSnapshot  = "snapshot"
	MessageUpdated   = "updated"
	MessageDestroyed = "destroyed"
)

// WatchMessage is one JSON text message on a watch stream. The first message
// is a snapshot; one updated message follows per commit.
type WatchMessage struct {
	Type        string      `json:"type"`
	Store       string      `json:"store"`
	UpdateCount uint64      `json:"updateCount"`
	Paths       []tree.Path `json:"paths,omitempty"`
	Data        any         `json:"data"`
}

// maxClientMessage bounds what a watcher may send; clients only send
// control frames.
const maxClientMessage = 512

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	name, e, ok := s.storeFor(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		s.logger.Warn("websocket upgrade failed", "store", name, "error", err)
		return
	}
	defer conn.Close()

	st := e.store
	logger := s.logger.With("store", name, "remote", r.RemoteAddr)

	updates := make(chan store.Event, s.config.WatchBuffer)
	offUpdated := st.On(store.EventUpdated, func(ev store.Event) {
		select {
		case updates <- ev:
		default:
			logger.Warn("watch stream lagging, dropping update", "update_count", ev.UpdateCount)
		}
	})
	defer offUpdated()

	destroyed := make(chan struct{})
	var destroyOnce sync.Once
	offDestroy := st.On(store.EventDestroyBefore, func(store.Event) {
		destroyOnce.Do(func() { close(destroyed) })
	})
	defer offDestroy()

	closed := s.readLoop(conn)
	logger.Debug("watch stream opened")
	defer logger.Debug("watch stream closed")

	if err := s.send(conn, WatchMessage{
		Type:        MessageSnapshot,
		Store:       name,
		UpdateCount: st.UpdateCount(),
		Data:        tree.ToAny(st.Data()),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-updates:
			msg := WatchMessage{
				Type:        MessageUpdated,
				Store:       name,
				UpdateCount: ev.UpdateCount,
				Paths:       nonNil(tree.Changes(ev.PrevData, ev.Data, nil)),
				Data:        tree.ToAny(ev.Data),
			}
			if err := s.send(conn, msg); err != nil {
				logger.Debug("watch write failed", "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-destroyed:
			_ = s.send(conn, WatchMessage{Type: MessageDestroyed, Store: name})
			s.closeStream(conn, websocket.CloseNormalClosure, "store destroyed")
			return

		case <-e.done:
			s.closeStream(conn, websocket.CloseGoingAway, "store unregistered")
			return

		case <-closed:
			return
		}
	}
}

// readLoop drains the connection so control frames are processed. The
// returned channel is closed when the client goes away.
func (s *Server) readLoop(conn *websocket.Conn) <-chan struct{} {
	closed := make(chan struct{})
	deadline := 2 * s.config.PingInterval

	conn.SetReadLimit(maxClientMessage)
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(deadline))
	})

	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return closed
}

func (s *Server) send(conn *websocket.Conn, msg WatchMessage) error {
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return conn.WriteJSON(msg)
}

func (s *Server) closeStream(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(s.config.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
