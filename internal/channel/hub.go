package channel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/kazz187/taskboard/internal/idgen"
	"github.com/kazz187/taskboard/internal/task"
)

type inbound struct {
	from  *Session
	event Event
}

// Hub owns the set of connected sessions and is the only place channel
// mutations are applied. Run handles one event at a time: the registry change
// and the enqueueing of its broadcast finish before the next event starts, so
// every session sees channel mutations in the same order.
type Hub struct {
	repo     task.Repository
	ids      idgen.Generator
	cfg      hubConfig
	upgrader websocket.Upgrader

	register   chan *Session
	unregister chan *Session
	inbox      chan inbound
	countReq   chan chan int
	done       chan struct{}

	// sessions is only touched by Run.
	sessions map[*Session]struct{}
}

type hubConfig struct {
	sendBuffer      int
	maxMessageBytes int64
}

type Option func(*hubConfig)

// WithSendBuffer sets how many outbound frames may queue per session before
// the session is dropped.
func WithSendBuffer(n int) Option {
	return func(c *hubConfig) {
		c.sendBuffer = n
	}
}

func WithMaxMessageBytes(n int64) Option {
	return func(c *hubConfig) {
		c.maxMessageBytes = n
	}
}

func NewHub(repo task.Repository, ids idgen.Generator, opts ...Option) *Hub {
	cfg := hubConfig{
		sendBuffer:      64,
		maxMessageBytes: 64 << 10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Hub{
		repo: repo,
		ids:  ids,
		cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		register:   make(chan *Session),
		unregister: make(chan *Session),
		inbox:      make(chan inbound, 256),
		countReq:   make(chan chan int),
		done:       make(chan struct{}),
		sessions:   make(map[*Session]struct{}),
	}
}

// Run processes registrations and events until ctx is cancelled, then closes
// every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				h.drop(s)
			}
			return
		case s := <-h.register:
			h.sessions[s] = struct{}{}
		case s := <-h.unregister:
			h.drop(s)
		case in := <-h.inbox:
			h.dispatch(ctx, in)
		case reply := <-h.countReq:
			reply <- len(h.sessions)
		}
	}
}

// SessionCount reports how many sessions are connected, or 0 once the hub
// has stopped.
func (h *Hub) SessionCount() int {
	reply := make(chan int, 1)
	select {
	case h.countReq <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) join(s *Session) bool {
	select {
	case h.register <- s:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

func (h *Hub) submit(s *Session, ev Event) {
	select {
	case h.inbox <- inbound{from: s, event: ev}:
	case <-h.done:
	}
}

func (h *Hub) drop(s *Session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	close(s.send)
}

// deliver queues frame for s. A session that cannot keep up is dropped; its
// client has to reconnect and sync again.
func (h *Hub) deliver(s *Session, frame []byte) {
	if _, ok := h.sessions[s]; !ok {
		return
	}
	select {
	case s.send <- frame:
	default:
		s.log.Warn("send buffer full, dropping session")
		h.drop(s)
	}
}

func (h *Hub) broadcast(event string, payload any) {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		slog.Error("failed to encode broadcast", "event", event, "error", err)
		return
	}
	for s := range h.sessions {
		h.deliver(s, frame)
	}
}

func (h *Hub) dispatch(ctx context.Context, in inbound) {
	log := in.from.log.With("event", in.event.Name())
	log.Debug("received event")

	switch ev := in.event.(type) {
	case SyncEvent:
		tasks, err := h.repo.List(ctx)
		if err != nil {
			log.Error("failed to list tasks", "error", err)
			return
		}
		frame, err := EncodeFrame(EventSync, tasks)
		if err != nil {
			log.Error("failed to encode sync reply", "error", err)
			return
		}
		h.deliver(in.from, frame)

	case CreateEvent:
		t := ev.Task
		t.ID = h.ids.Next()
		if err := h.repo.Insert(ctx, &t); err != nil {
			log.Error("failed to insert task", "task_id", t.ID, "error", err)
			return
		}
		h.broadcast(EventCreate, &t)

	case UpdateEvent:
		found, err := h.repo.Put(ctx, &ev.Task)
		if err != nil {
			log.Error("failed to replace task", "task_id", ev.Task.ID, "error", err)
			return
		}
		if !found {
			log.Debug("update for unknown task", "task_id", ev.Task.ID)
		}
		h.broadcast(EventUpdate, &ev.Task)

	case MoveEvent:
		found, err := h.repo.SetStatus(ctx, ev.ID, ev.NewStatus)
		if err != nil {
			log.Error("failed to move task", "task_id", ev.ID, "error", err)
			return
		}
		if !found {
			log.Debug("move for unknown task", "task_id", ev.ID)
			return
		}
		h.broadcast(EventMove, ev)

	case DeleteEvent:
		removed, err := h.repo.Remove(ctx, ev.ID)
		if err != nil {
			log.Error("failed to delete task", "task_id", ev.ID, "error", err)
			return
		}
		if !removed {
			log.Debug("delete for unknown task", "task_id", ev.ID)
		}
		h.broadcast(EventDelete, ev.ID)
	}
}
