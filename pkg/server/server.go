package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/airset-dev/airset/pkg/middleware"
	"github.com/airset-dev/airset/pkg/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	airerrors "github.com/airset-dev/airset/internal/errors"
)

// Server is the HTTP inspector for a set of named stores.
type Server struct {
	config *Config

	mu     sync.RWMutex
	stores map[string]*entry

	router   chi.Router
	upgrader websocket.Upgrader

	httpMu     sync.Mutex
	httpServer *http.Server

	logger *slog.Logger
}

// entry is one registered store.
type entry struct {
	store *store.Store

	// done is closed when the store is unregistered.
	done chan struct{}

	// uninstrument detaches metrics, when enabled.
	uninstrument func()
}

// New creates a new Server with the given configuration.
// Unset fields are filled from DefaultConfig.
func New(config *Config) *Server {
	config = config.withDefaults()

	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "inspector")
	}

	s := &Server{
		config: config,
		stores: make(map[string]*entry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/stores", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handlePut)
			r.Get("/diff", s.handleDiff)
			r.Get("/watch", s.handleWatch)
		})
	})

	if !s.config.DisableMetrics {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, airerrors.Newf(airerrors.CategoryInspector, "no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

// logRequests logs every request at debug level, and failures at warn.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelDebug
		if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// Register makes st available under name. When metrics are enabled the
// store's lifecycle is instrumented.
func (s *Server) Register(name string, st *store.Store) error {
	if name == "" || strings.Contains(name, "/") {
		return airerrors.Newf(airerrors.CategoryInspector, "invalid store name %q", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[name]; ok {
		return airerrors.New("E081").WithDetail(fmt.Sprintf("A store named %q is already registered.", name))
	}

	e := &entry{store: st, done: make(chan struct{})}
	if !s.config.DisableMetrics {
		e.uninstrument = middleware.Instrument(st, middleware.WithRegistry(s.config.Registerer))
	}
	s.stores[name] = e
	s.logger.Info("store registered", "store", name)
	return nil
}

// Unregister removes the store registered under name and closes its watch
// streams. It reports whether a store was removed.
func (s *Server) Unregister(name string) bool {
	s.mu.Lock()
	e, ok := s.stores[name]
	if ok {
		delete(s.stores, name)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	close(e.done)
	if e.uninstrument != nil {
		e.uninstrument()
	}
	s.logger.Info("store unregistered", "store", name)
	return true
}

// Store returns the store registered under name.
func (s *Server) Store(name string) (*store.Store, bool) {
	e, ok := s.lookup(name)
	if !ok {
		return nil, false
	}
	return e.store, true
}

// Names returns the registered store names in sorted order.
func (s *Server) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	s.mu.RUnlock()
	slices.Sort(names)
	return names
}

func (s *Server) lookup(name string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.stores[name]
	return e, ok
}

// Handler returns an http.Handler for mounting in external routers.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/debug/airset", inspector.Handler())
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Config returns the effective server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return airerrors.New("E083").WithDetail(fmt.Sprintf("Could not listen on %s.", s.config.Address)).Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.httpMu.Lock()
	s.httpServer = httpServer
	s.httpMu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspector starting", "address", ln.Addr().String())
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.WithoutCancel(ctx))
	}
}

// Shutdown closes every watch stream and gracefully shuts down the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	for _, name := range s.Names() {
		s.Unregister(name)
	}

	s.httpMu.Lock()
	httpServer := s.httpServer
	s.httpMu.Unlock()

	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("inspector shutdown complete")
	return nil
}
