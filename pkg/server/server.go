package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/focus-dev/focus/internal/config"
	"github.com/focus-dev/focus/pkg/binding"
	"github.com/focus-dev/focus/pkg/metrics"
	"github.com/focus-dev/focus/pkg/snapshot"
	"github.com/focus-dev/focus/pkg/workspace"
)

// Server hosts a workspace over HTTP and WebSocket.
type Server struct {
	config    *config.Config
	logger    *slog.Logger
	workspace *workspace.Workspace
	hubs      map[string]*hub
	snapshots snapshot.Backend
	registry  *prometheus.Registry
	router    chi.Router
	upgrader  websocket.Upgrader

	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSnapshotBackend enables the snapshot routes.
func WithSnapshotBackend(b snapshot.Backend) Option {
	return func(s *Server) {
		s.snapshots = b
	}
}

// WithRegistry sets the Prometheus registry metrics are registered in.
// A fresh registry is used by default.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithShutdownTimeout bounds graceful shutdown. Default: 10 seconds.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// New builds the workspace declared in cfg and mounts its components.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		config:          cfg,
		hubs:            make(map[string]*hub, len(cfg.Components)),
		shutdownTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "server")
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}

	for _, comp := range cfg.Components {
		s.hubs[comp.Name] = newHub(comp.Name, s.logger)
	}

	ws, err := workspace.New(cfg,
		workspace.WithLogger(s.logger),
		workspace.WithRecorder(metrics.New(metrics.WithRegistry(s.registry))),
		workspace.WithStateHandler(func(name string, st binding.State) {
			s.hubs[name].publish(messageState, st)
		}),
		workspace.WithErrorHandler(func(name string, st binding.State) {
			s.hubs[name].publish(messageErrors, st)
		}),
	)
	if err != nil {
		return nil, err
	}
	s.workspace = ws

	if err := s.restoreOnStart(); err != nil {
		return nil, err
	}
	if err := ws.Mount(); err != nil {
		return nil, err
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) restoreOnStart() error {
	name := s.config.Snapshot.Restore
	if name == "" || s.snapshots == nil {
		return nil
	}
	snap, err := snapshot.Load(context.Background(), s.snapshots, name)
	if err != nil {
		return err
	}
	s.logger.Info("restoring snapshot", "snapshot", name)
	return s.workspace.Restore(snap)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/stores", func(r chi.Router) {
		r.Get("/", s.handleListStores)
		r.Get("/{id}", s.handleGetStore)
		r.Put("/{id}/{property}", s.handleSetValue)
		r.Put("/{id}/{property}/error", s.handleSetError)
		r.Put("/{id}/{property}/status", s.handleSetStatus)
	})

	r.Route("/components", func(r chi.Router) {
		r.Get("/", s.handleListComponents)
		r.Get("/{name}/state", s.handleState)
		r.Get("/{name}/errors", s.handleErrors)
		r.Get("/{name}/live", s.handleLive)
	})

	if s.snapshots != nil {
		r.Post("/snapshots", s.handleSaveSnapshot)
		r.Post("/snapshots/{name}/restore", s.handleRestoreSnapshot)
	}

	if path := s.config.Server.MetricsPath; path != "" && path != "-" {
		r.Handle(path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Workspace returns the hosted workspace.
func (s *Server) Workspace() *workspace.Workspace {
	return s.workspace
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and unmounts every component.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address())
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.workspace.Unmount()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops the HTTP server, closes live connections and unmounts
// every component.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	for _, h := range s.hubs {
		h.close()
	}
	s.workspace.Unmount()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
