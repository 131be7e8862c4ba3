// Package api exposes chord resolution and trace replay over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"swipebraille/internal/braille"
	"swipebraille/internal/gesture"
	"swipebraille/internal/health"
	"swipebraille/internal/keyboard"
	"swipebraille/internal/logging"
	"swipebraille/internal/metrics"
	"swipebraille/internal/tracing"
)

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Tables       *TableStore
	Layout       gesture.LayoutConfig
	Repeat       keyboard.RepeatConfig
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *logging.Logger
	Metrics      *metrics.ServiceMetrics
	// Tracer records a server span per request. Nil disables tracing.
	Tracer *tracing.Tracer
}

// Server serves the decode API.
type Server struct {
	tables  *TableStore
	layout  *gesture.Layout
	cfg     gesture.LayoutConfig
	repeat  keyboard.RepeatConfig
	maxBody int64
	read    time.Duration
	write   time.Duration
	logger  *logging.Logger
	metrics *metrics.ServiceMetrics
	tracer  *tracing.Tracer
	health  *health.Checker
	router  *mux.Router
}

// NewServer validates opts and builds the route table.
func NewServer(opts Options) (*Server, error) {
	layout, err := gesture.NewLayout(opts.Layout)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if err := opts.Repeat.Validate(); err != nil {
		return nil, fmt.Errorf("repeat: %w", err)
	}

	s := &Server{
		tables:  opts.Tables,
		layout:  layout,
		cfg:     opts.Layout,
		repeat:  opts.Repeat,
		maxBody: opts.MaxBodyBytes,
		read:    opts.ReadTimeout,
		write:   opts.WriteTimeout,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}
	if s.tables == nil {
		s.tables = NewTableStore(nil, "", nil)
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewServiceMetrics(nil)
	}
	if s.tracer == nil {
		s.tracer = tracing.NewTracer(nil)
	}
	s.logger = s.logger.WithComponent("api")

	s.metrics.TableEntries.Set(int64(s.tables.Table().Len()))
	s.tables.OnSwap(func(t *braille.Table) {
		s.metrics.TableReloads.Inc()
		s.metrics.TableEntries.Set(int64(t.Len()))
	})

	s.health = health.NewChecker(2 * time.Second)
	s.health.Register("mapping_table", false, health.CountCheck("mapping table", func() int {
		return s.tables.Table().Len()
	}))
	if p := s.tables.Path(); p != "" {
		// the last good table keeps serving if the file goes away
		s.health.Register("mapping_file", false, health.FileCheck(p))
	}

	s.router = s.newRouter()
	return s, nil
}

// Health returns the server's health checker.
func (s *Server) Health() *health.Checker {
	return s.health
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.traceRequest, s.accessLog, s.limitBody)

	r.Handle("/health", s.health.Handler()).Methods("GET")
	r.Handle("/health/live", s.health.LivenessHandler()).Methods("GET")
	r.Handle("/health/ready", s.health.ReadinessHandler()).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/table", s.handleTable).Methods("GET")
	v1.HandleFunc("/layout", s.handleLayout).Methods("GET")
	v1.HandleFunc("/patterns/{pattern}", s.handlePattern).Methods("GET")
	v1.HandleFunc("/resolve", s.handleResolve).Methods("POST")
	v1.HandleFunc("/replay", s.handleReplay).Methods("POST")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  s.read,
		WriteTimeout: s.write,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())
	s.health.SetReady(true)

	select {
	case err := <-errCh:
		s.health.SetReady(false)
		return err
	case <-ctx.Done():
	}
	s.health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
