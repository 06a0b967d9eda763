package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/debug-flow/debug-flow/internal/api/contracts"
)

const (
	statusEvent       = "status"
	keepAliveInterval = 15 * time.Second
	socketWriteWait   = 10 * time.Second
)

// statusHub fans repository status snapshots out to stream subscribers.
// Each subscriber only ever holds the latest snapshot.
type statusHub struct {
	mu     sync.Mutex
	subs   map[chan contracts.RepositoryStatus]struct{}
	last   *contracts.RepositoryStatus
	closed bool
	done   chan struct{}
}

func newStatusHub() *statusHub {
	return &statusHub{
		subs: make(map[chan contracts.RepositoryStatus]struct{}),
		done: make(chan struct{}),
	}
}

func (h *statusHub) subscribe() (<-chan contracts.RepositoryStatus, func()) {
	ch := make(chan contracts.RepositoryStatus, 1)
	h.mu.Lock()
	if !h.closed {
		h.subs[ch] = struct{}{}
	}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// publish sends st to every subscriber unless it equals the last snapshot.
func (h *statusHub) publish(st contracts.RepositoryStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || (h.last != nil && reflect.DeepEqual(*h.last, st)) {
		return
	}
	h.last = &st
	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func (h *statusHub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *statusHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	clear(h.subs)
	close(h.done)
}

func (s *Server) refreshStatus() {
	st, err := s.git.Status()
	if err != nil {
		slog.Warn("failed to read repository status", slog.Any("error", err))
		return
	}
	s.hub.publish(st)
}

// handleStatusStream serves the repository status as server-sent events.
// The current status is sent right away, then every change.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeStatus(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}
	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	st, err := s.git.Status()
	if err != nil {
		writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, statusEvent, st); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.hub.done:
			return
		case st := <-updates:
			if err := writeEvent(w, statusEvent, st); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

type socketMessage struct {
	Type   string                      `json:"type"`
	Status *contracts.RepositoryStatus `json:"status,omitempty"`
}

func (s *Server) upgrader() websocket.Upgrader {
	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if s.cfg.AllowAll {
		u.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return u
}

// handleStatusSocket serves the same snapshots as handleStatusStream over a
// websocket. Messages from the client are ignored.
func (s *Server) handleStatusSocket(w http.ResponseWriter, r *http.Request) {
	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	st, err := s.git.Status()
	if err != nil {
		writeError(w, r, err)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read", slog.Any("error", err))
				}
				return
			}
		}
	}()

	send := func(st contracts.RepositoryStatus) error {
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		return conn.WriteJSON(socketMessage{Type: statusEvent, Status: &st})
	}
	if err := send(st); err != nil {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-s.hub.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(socketWriteWait))
			return
		case st := <-updates:
			if err := send(st); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		}
	}
}
