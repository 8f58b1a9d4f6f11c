package dhcpsvc

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
	"github.com/berry2bd/DHCP-Server/internal/leasepool"
)

// Engine is the DHCPv4 message engine.  It decodes requests, drives the lease
// pool through the DORA state machine, and encodes responses.
type Engine struct {
	logger  *slog.Logger
	metrics Metrics
	clock   timeutil.Clock

	// mu protects pool.  It's held for the whole read-decide-mutate cycle of
	// a single message.
	mu   *sync.Mutex
	pool *leasepool.Pool

	// serverID is the value of the server identifier option.
	serverID netip.Addr

	// leaseTime is the value of the lease time option.
	leaseTime [4]byte
}

// NewEngine returns a new properly initialized *Engine with all the leases
// free.
func NewEngine(conf *Config) (e *Engine, err error) {
	err = conf.Validate()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	e = &Engine{
		logger:   conf.Logger,
		metrics:  conf.Metrics,
		clock:    conf.Clock,
		mu:       &sync.Mutex{},
		pool:     leasepool.New(conf.Pool),
		serverID: conf.ServerID,
	}

	binary.BigEndian.PutUint32(e.leaseTime[:], uint32(conf.LeaseDuration.Seconds()))

	return e, nil
}

// type check
var _ Handler = (*Engine)(nil)

// Handle implements the [Handler] interface for *Engine.  Malformed datagrams
// and releases produce no response.
func (e *Engine) Handle(ctx context.Context, req []byte) (resp []byte, ok bool) {
	start := e.clock.Now()
	defer func() { e.metrics.ObserveHandle(ctx, e.clock.Now().Sub(start)) }()

	msg, opts, err := decodeRequest(req)
	if err != nil {
		e.logger.DebugContext(ctx, "dropping message", slogutil.KeyError, err)
		e.metrics.IncrementMalformed(ctx)

		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.respond(ctx, msg, opts)
	e.metrics.SetLeasesInUse(ctx, e.pool.InUse())
	if !ok {
		return nil, false
	}

	typ, _ := r.Type()
	e.metrics.IncrementResponses(ctx, typ)

	return r.Encode(), true
}

// decodeRequest parses the header and the options of the datagram b.
func decodeRequest(b []byte) (msg *dhcpmsg.Message, opts *dhcpmsg.ParsedOptions, err error) {
	msg, err = dhcpmsg.Decode(b)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding header: %w", err)
	}

	opts, err = dhcpmsg.ParseOptions(dhcpmsg.OptionRegion(b))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing options: %w", err)
	}

	return msg, opts, nil
}

// Leases returns a snapshot of the lease pool in pool order.
func (e *Engine) Leases() (ls []leasepool.Lease) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pool.Leases()
}

// Reset frees all the leases.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pool.Reset()
	e.metrics.SetLeasesInUse(ctx, 0)

	e.logger.DebugContext(ctx, "reset leases")
}
