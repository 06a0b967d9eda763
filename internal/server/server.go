// Package server serves the debug-flow HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/debug-flow/debug-flow/internal/buildinfo"
	"github.com/debug-flow/debug-flow/internal/flows"
	"github.com/debug-flow/debug-flow/internal/git"
)

const DefaultRequestTimeout = 60 * time.Second

type Config struct {
	Host string
	Port int
	// AllowAll allows every CORS and websocket origin (dev mode).
	AllowAll       bool
	RequestTimeout time.Duration
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

type Server struct {
	cfg   Config
	git   *git.Service
	flows *flows.Store
	hub   *statusHub

	router     chi.Router
	httpServer *http.Server

	mu      sync.Mutex
	watcher *git.Watcher
	stopped bool
}

func New(cfg Config, repo *git.Service, flowStore *flows.Store) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		cfg:   cfg,
		git:   repo,
		flows: flowStore,
		hub:   newStatusHub(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": buildinfo.Version(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Streams stay open for as long as the client listens.
		r.Get("/git/repository/status/stream", s.handleStatusStream)
		r.Get("/git/repository/status/ws", s.handleStatusSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			s.registerGitRoutes(r)
			s.registerFlowRoutes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, fmt.Errorf("%w: %s %s", errRouteNotFound, r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, fmt.Sprintf("%s is not allowed on %s", r.Method, r.URL.Path))
	})
	return r
}

func (s *Server) Router() chi.Router { return s.router }

// Watch publishes the repository status to stream subscribers whenever the
// repository changes on disk.
func (s *Server) Watch(delay time.Duration) error {
	w, err := git.Watch(s.git.RepoPath(), delay, s.refreshStatus)
	if err != nil {
		return fmt.Errorf("watch repository: %w", err)
	}
	s.mu.Lock()
	old := s.watcher
	s.watcher = w
	s.mu.Unlock()
	if old != nil {
		return old.Close()
	}
	return nil
}

// Start listens on the configured address and blocks until the server
// stops. A graceful Shutdown is not reported as an error.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(l)
}

func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		l.Close()
		return nil
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	slog.Info("debug-flow server listening",
		slog.String("addr", l.Addr().String()),
		slog.String("repository", s.git.RepoPath()),
	)
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the watcher, ends open streams and gracefully shuts down
// the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	w, srv := s.watcher, s.httpServer
	s.watcher = nil
	s.stopped = true
	s.mu.Unlock()

	var errs []error
	if w != nil {
		errs = append(errs, w.Close())
	}
	s.hub.close()
	if srv != nil {
		errs = append(errs, srv.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			slog.Log(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
