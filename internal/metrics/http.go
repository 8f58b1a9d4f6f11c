package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PathMetrics is the HTTP path serving the metrics.
const PathMetrics = "/metrics"

// defaultTimeout is the timeout for all HTTP operations.
const defaultTimeout = 10 * time.Second

// ServerConfig is the configuration for the metrics HTTP server.
type ServerConfig struct {
	// Logger is used to log the server events.  It must not be nil.
	Logger *slog.Logger

	// Gatherer is the source of the exposed metrics.  It must not be nil.
	Gatherer prometheus.Gatherer

	// Addr is the TCP address to listen on.
	Addr netip.AddrPort
}

// Server serves the metrics over HTTP.
type Server struct {
	logger *slog.Logger
	http   *http.Server

	// mu protects listener.
	mu       *sync.Mutex
	listener net.Listener

	addr netip.AddrPort
}

// NewServer returns a new properly initialized *Server.  The listener isn't
// started.
func NewServer(conf *ServerConfig) (s *Server) {
	mux := http.NewServeMux()
	mux.Handle(PathMetrics, promhttp.HandlerFor(conf.Gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(conf.Logger.Handler(), slog.LevelError),
	}))

	return &Server{
		logger: conf.Logger,
		http: &http.Server{
			Handler:           mux,
			ReadTimeout:       defaultTimeout,
			ReadHeaderTimeout: defaultTimeout,
			WriteTimeout:      defaultTimeout,
			IdleTimeout:       defaultTimeout,
			ErrorLog:          slog.NewLogLogger(conf.Logger.Handler(), slog.LevelError),
		},
		mu:   &sync.Mutex{},
		addr: conf.Addr,
	}
}

// type check
var _ service.Interface = (*Server)(nil)

// Start implements the [service.Interface] interface for *Server.
func (s *Server) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := net.ListenTCP("tcp", net.TCPAddrFromAddrPort(s.addr))
	if err != nil {
		return fmt.Errorf("listening tcp: %w", err)
	}

	s.listener = l
	s.logger.InfoContext(ctx, "serving metrics", "addr", l.Addr())

	go s.serve(context.WithoutCancel(ctx), l)

	return nil
}

// serve serves HTTP on l.  It's intended to be used as a goroutine.
func (s *Server) serve(ctx context.Context, l net.Listener) {
	defer slogutil.RecoverAndLog(ctx, s.logger)

	err := s.http.Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.ErrorContext(ctx, "serving", slogutil.KeyError, err)
	}
}

// Shutdown implements the [service.Interface] interface for *Server.
func (s *Server) Shutdown(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	err = s.http.Shutdown(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("shutting down: %w", err))
	}

	// Close the listener separately, as it might not have been closed if the
	// context has been canceled.
	if s.listener != nil {
		err = s.listener.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("closing listener: %w", err))
		}
	}

	return errors.Join(errs...)
}

// LocalAddr returns the address the server listens on or nil if it hasn't
// been started.
func (s *Server) LocalAddr() (addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}
