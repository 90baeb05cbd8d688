package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/panicerr"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Session is one client's websocket. The read pump turns frames into hub
// events; the write pump is the only writer on the connection.
type Session struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
	log  *slog.Logger

	// closing is set once the write pump closes the connection itself.
	closing atomic.Bool
}

// ServeHTTP upgrades the request and serves the session until either side
// hangs up.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered with an HTTP error.
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	s := &Session{
		id:   h.ids.Next(),
		conn: conn,
		hub:  h,
		send: make(chan []byte, h.cfg.sendBuffer),
	}
	s.log = slog.With("session_id", s.id)

	ctx := clog.ContextWithSlog(r.Context())
	clog.AddAttributes(ctx, map[string]any{
		"session_id":  s.id,
		"remote_addr": r.RemoteAddr,
	})

	if !h.join(s) {
		_ = conn.Close()
		return
	}
	slog.InfoContext(ctx, "client connected")

	start := time.Now()
	err = s.serve(ctx)
	clog.AddAttribute(ctx, "duration", time.Since(start))
	if err != nil {
		clog.AddError(ctx, err)
		slog.WarnContext(ctx, "client disconnected")
		return
	}
	slog.InfoContext(ctx, "client disconnected")
}

func (s *Session) serve(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(panicerr.SafeContext(s.readPump))
	p.Go(panicerr.SafeContext(s.writePump))
	return p.Wait()
}

func (s *Session) readPump(_ context.Context) error {
	defer s.hub.leave(s)

	s.conn.SetReadLimit(s.hub.cfg.maxMessageBytes)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return s.readErr(err)
		}
		ev, err := DecodeEvent(frame)
		if err != nil {
			// Bad frames are ignored; the client gets no error event.
			s.log.Warn("ignoring frame", "error", err)
			continue
		}
		s.hub.submit(s, ev)
	}
}

// readErr reports how the read pump ended. Only a close frame with a normal
// code, or a close started on our side, counts as a clean disconnect.
func (s *Session) readErr(err error) error {
	if s.closing.Load() {
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return nil
	}
	return fmt.Errorf("failed to read frame: %w", err)
}

func (s *Session) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.closing.Store(true)
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("failed to set write deadline: %w", err)
			}
			if !ok {
				// The hub dropped this session.
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return fmt.Errorf("failed to write frame: %w", err)
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("failed to write ping: %w", err)
			}
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return nil
		}
	}
}
