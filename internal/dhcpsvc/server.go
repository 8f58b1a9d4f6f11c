package dhcpsvc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/service"
	"github.com/AdguardTeam/golibs/validate"
	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
	"github.com/insomniacslk/dhcp/dhcpv4"
)

// ServerConfig is the configuration for the UDP server.
type ServerConfig struct {
	// Logger is used to log the server events.  It must not be nil.
	Logger *slog.Logger

	// Handler processes the received datagrams.  It must not be nil.
	Handler Handler

	// Addr is the address to listen on.  It must be valid.
	Addr netip.AddrPort

	// IdleTimeout is the time after which the server stops if no datagram
	// has been received.  Zero means that the server never stops on its own.
	// It must not be negative.
	IdleTimeout time.Duration
}

// type check
var _ validate.Interface = (*ServerConfig)(nil)

// Validate implements the [validate.Interface] interface for *ServerConfig.
func (conf *ServerConfig) Validate() (err error) {
	if conf == nil {
		return errNilConfig
	}

	errs := []error{
		validate.NotNil("Logger", conf.Logger),
		validate.NotNilInterface("Handler", conf.Handler),
		validate.NotNegative("IdleTimeout", conf.IdleTimeout),
	}

	if !conf.Addr.IsValid() {
		errs = append(errs, newMustErr("Addr", "be valid", conf.Addr))
	}

	return errors.Join(errs...)
}

// Server receives DHCP datagrams over UDP and sends back the responses of its
// handler to the source addresses.
type Server struct {
	logger  *slog.Logger
	handler Handler

	// done is closed when the serving goroutine exits.
	done chan struct{}

	// mu protects conn.
	mu   *sync.Mutex
	conn net.PacketConn

	addr        netip.AddrPort
	idleTimeout time.Duration
}

// NewServer returns a new properly initialized *Server.  conf must be valid.
func NewServer(conf *ServerConfig) (s *Server) {
	return &Server{
		logger:      conf.Logger,
		handler:     conf.Handler,
		done:        make(chan struct{}),
		mu:          &sync.Mutex{},
		addr:        conf.Addr,
		idleTimeout: conf.IdleTimeout,
	}
}

// type check
var _ service.Interface = (*Server)(nil)

// Start implements the [service.Interface] interface for *Server.  It binds
// the socket and starts serving in a separate goroutine.  s must not be
// restarted.
func (s *Server) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return errors.Error("server already started")
	}

	lc := &net.ListenConfig{
		Control: listenControl,
	}

	conn, err := lc.ListenPacket(ctx, "udp4", s.addr.String())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	s.conn = conn
	s.logger.InfoContext(ctx, "listening", "addr", conn.LocalAddr(), "idle_timeout", s.idleTimeout)

	go s.serve(context.WithoutCancel(ctx), conn)

	return nil
}

// Shutdown implements the [service.Interface] interface for *Server.  It
// closes the socket and waits for the serving goroutine to exit.
func (s *Server) Shutdown(ctx context.Context) (err error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	err = conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing conn: %w", err)
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for server: %w", context.Cause(ctx))
	}
}

// Done returns a channel that is closed when the server stops serving, either
// after [Server.Shutdown] or on the idle timeout.
func (s *Server) Done() (done <-chan struct{}) {
	return s.done
}

// LocalAddr returns the address the server is bound to or nil if it hasn't
// been started.
func (s *Server) LocalAddr() (addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	return s.conn.LocalAddr()
}

// serve reads datagrams from conn until it's closed or the idle timeout
// passes.  It's intended to be used as a goroutine.
func (s *Server) serve(ctx context.Context, conn net.PacketConn) {
	defer close(s.done)
	defer slogutil.RecoverAndLog(ctx, s.logger)

	buf := make([]byte, dhcpmsg.MaxLen)
	for {
		err := s.setDeadline(conn)
		if err != nil {
			s.logger.ErrorContext(ctx, "setting deadline", slogutil.KeyError, err)

			return
		}

		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			if !s.handleReadErr(ctx, conn, err) {
				return
			}

			continue
		}

		s.handle(ctx, conn, buf[:n], peer)
	}
}

// setDeadline sets the read deadline on conn according to the idle timeout.
func (s *Server) setDeadline(conn net.PacketConn) (err error) {
	if s.idleTimeout == 0 {
		return nil
	}

	return conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
}

// handleReadErr handles the error returned from reading conn.  It returns
// false if serving should stop.
func (s *Server) handleReadErr(ctx context.Context, conn net.PacketConn, err error) (cont bool) {
	switch {
	case errors.Is(err, net.ErrClosed):
		s.logger.DebugContext(ctx, "connection closed")

		return false
	case errors.Is(err, os.ErrDeadlineExceeded):
		s.logger.InfoContext(ctx, "no messages received, stopping", "idle_timeout", s.idleTimeout)

		closeErr := conn.Close()
		if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			s.logger.WarnContext(ctx, "closing conn", slogutil.KeyError, closeErr)
		}

		return false
	default:
		s.logger.WarnContext(ctx, "reading datagram", slogutil.KeyError, err)

		return true
	}
}

// handle passes req to the handler and writes the response, if any, back to
// peer.
func (s *Server) handle(ctx context.Context, conn net.PacketConn, req []byte, peer net.Addr) {
	l := s.logger
	if l.Enabled(ctx, slog.LevelDebug) {
		logSummary(ctx, l, "received", req, peer)
	}

	resp, ok := s.handler.Handle(ctx, req)
	if !ok {
		l.DebugContext(ctx, "no response", keyPeer, peer)

		return
	}

	if l.Enabled(ctx, slog.LevelDebug) {
		logSummary(ctx, l, "sending", resp, peer)
	}

	_, err := conn.WriteTo(resp, peer)
	if err != nil {
		l.WarnContext(ctx, "writing response", keyPeer, peer, slogutil.KeyError, err)
	}
}

// logSummary logs the human-readable representation of the DHCP message b at
// debug level.  If b can't be parsed as a whole, the codes of its options are
// logged instead.
func logSummary(ctx context.Context, l *slog.Logger, msg string, b []byte, peer net.Addr) {
	pkt, err := dhcpv4.FromBytes(b)
	if err != nil {
		opts, optsErr := dhcpmsg.ParseAll(dhcpmsg.OptionRegion(b))
		codes := make([]dhcpmsg.OptionCode, 0, len(opts))
		for _, o := range opts {
			codes = append(codes, o.Code)
		}

		l.DebugContext(
			ctx,
			msg,
			keyPeer, peer,
			"len", len(b),
			keyOptions, codes,
			slogutil.KeyError, errors.Join(err, optsErr),
		)

		return
	}

	l.DebugContext(ctx, msg, keyPeer, peer, "summary", pkt.Summary())
}
