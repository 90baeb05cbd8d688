package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskboard/internal/attachment"
	"github.com/kazz187/taskboard/internal/channel"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/clog"
)

type Server struct {
	mu               sync.Mutex
	server           *http.Server
	env              *config.Env
	taskServer       *task.Server
	attachmentServer *attachment.Server
	hub              *channel.Hub
}

func NewServer(
	env *config.Env,
	taskServer *task.Server,
	attachmentServer *attachment.Server,
	hub *channel.Hub,
) *Server {
	return &Server{
		env:              env,
		taskServer:       taskServer,
		attachmentServer: attachmentServer,
		hub:              hub,
	}
}

// Handler assembles every route. It is separate from ListenAndServe so tests
// can mount it on an httptest server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(clog.SlogChiMiddleware(clog.WithChiFilter(func(r *http.Request) bool {
		// Websocket sessions log their own connect/disconnect lines.
		return r.URL.Path != "/ws" && r.URL.Path != "/health"
	})))

	r.Route("/api", func(r chi.Router) {
		r.Use(cerr.NewJSONResponseChiMiddleware())
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/upload/{taskId}", s.attachmentServer.UploadAttachment)
			s.taskServer.Routes(r)
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	r.Get("/attachments/*", s.attachmentServer.ServeAttachment)
	r.Get("/ws", s.hub.ServeHTTP)
	r.Handle("/health", &HealthChecker{})
	healthPath, healthHandler := grpchealth.NewHandler(grpchealth.NewStaticChecker())
	r.Handle(healthPath+"*", healthHandler)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of every
// request, so cancelling it also ends open websocket sessions.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.env.Addr()
	slog.Info("starting server", "addr", addr)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.server = httpServer
	s.mu.Unlock()
	if ctx.Err() != nil {
		return http.ErrServerClosed
	}

	return httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.server
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
