package dhcpsvc

import (
	"context"
	"net/netip"

	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
	"github.com/berry2bd/DHCP-Server/internal/leasepool"
)

// respond decides on the response to req according to its message type and
// updates the lease pool.  ok is false if nothing should be sent back.  e.mu
// must be locked.
func (e *Engine) respond(
	ctx context.Context,
	req *dhcpmsg.Message,
	opts *dhcpmsg.ParsedOptions,
) (resp *dhcpmsg.Response, ok bool) {
	if !opts.HasMessageType {
		// The "DHCP message type" option must be included in every DHCP
		// message.
		//
		// See https://datatracker.ietf.org/doc/html/rfc2131#section-3.
		e.logger.DebugContext(ctx, "no message type", keyXID, req.XID, keyMAC, req.HWAddr())

		return e.newNAK(req), true
	}

	typ := opts.MessageType
	e.metrics.IncrementRequests(ctx, typ)

	switch typ {
	case dhcpmsg.MsgTypeDiscover:
		return e.handleDiscover(ctx, req), true
	case dhcpmsg.MsgTypeRequest:
		return e.handleRequest(ctx, req, opts), true
	case dhcpmsg.MsgTypeRelease:
		e.handleRelease(ctx, req)

		return nil, false
	default:
		e.logger.DebugContext(ctx, "unsupported message type", keyType, typ, keyXID, req.XID)

		return e.newNAK(req), true
	}
}

// handleDiscover handles messages of type DHCPDISCOVER.  e.mu must be locked.
func (e *Engine) handleDiscover(ctx context.Context, req *dhcpmsg.Message) (resp *dhcpmsg.Response) {
	l := e.logger
	mac := req.HWAddr()

	// The pending release is cleared after the response is built, regardless
	// of which lease the response refers to.
	defer e.clearPending(ctx)

	lease, ok := e.pool.Find(req.ClientHWAddr)
	if ok {
		l.DebugContext(ctx, "offering existing lease", keyMAC, mac, keyIP, lease.IP)

		return e.newLeaseResponse(req, dhcpmsg.MsgTypeOffer, lease.IP)
	}

	lease, ok = e.allocate(req.ClientHWAddr)
	if !ok {
		l.InfoContext(ctx, "no free leases", keyMAC, mac)

		return e.newNAK(req)
	}

	l.DebugContext(ctx, "offering new lease", keyMAC, mac, keyIP, lease.IP)

	return e.newLeaseResponse(req, dhcpmsg.MsgTypeOffer, lease.IP)
}

// handleRequest handles messages of type DHCPREQUEST.  Only requests selecting
// this server are acknowledged.  e.mu must be locked.
func (e *Engine) handleRequest(
	ctx context.Context,
	req *dhcpmsg.Message,
	opts *dhcpmsg.ParsedOptions,
) (resp *dhcpmsg.Response) {
	l := e.logger
	mac := req.HWAddr()

	if opts.ServerID != e.serverID {
		l.DebugContext(ctx, "request for another server", keyMAC, mac, keyServerID, opts.ServerID)

		return e.newNAK(req)
	}

	reqIP := opts.RequestedIP
	lease, ok := e.pool.Find(req.ClientHWAddr)
	switch {
	case ok && lease.IP == reqIP:
		l.DebugContext(ctx, "confirming lease", keyMAC, mac, keyIP, lease.IP)
	case ok:
		// Keep a single lease per client instead of allocating another one.
		l.DebugContext(ctx, "requested ip mismatch", keyMAC, mac, keyRequested, reqIP, keyIP, lease.IP)
	default:
		lease, ok = e.allocate(req.ClientHWAddr)
		if !ok {
			l.InfoContext(ctx, "no free leases", keyMAC, mac, keyRequested, reqIP)

			return e.newNAK(req)
		}

		l.DebugContext(ctx, "acknowledging new lease", keyMAC, mac, keyIP, lease.IP)
	}

	resp = e.newLeaseResponse(req, dhcpmsg.MsgTypeAck, lease.IP)
	e.clearPending(ctx)

	return resp
}

// handleRelease handles messages of type DHCPRELEASE.  e.mu must be locked.
func (e *Engine) handleRelease(ctx context.Context, req *dhcpmsg.Message) {
	freed := e.pool.Release(req.ClientHWAddr)
	e.logger.DebugContext(ctx, "release", keyMAC, req.HWAddr(), keyFreed, freed)
}

// allocate binds the first free lease of the pool, with the address configured
// for it, to hw.  e.mu must be locked.
func (e *Engine) allocate(hw dhcpmsg.HardwareAddr) (lease leasepool.Lease, ok bool) {
	idx, ok := e.pool.FirstFree()
	if !ok {
		return leasepool.Lease{}, false
	}

	return e.pool.Allocate(hw, e.pool.AddressAt(idx))
}

// clearPending frees the lease released while the pool was full, if any.  e.mu
// must be locked.
func (e *Engine) clearPending(ctx context.Context) {
	idx, ok := e.pool.Pending()
	if ok && e.pool.ClearPending() {
		e.logger.DebugContext(ctx, "freed released lease", keyIP, e.pool.AddressAt(idx))
	}
}

// newLeaseResponse returns a DHCPOFFER or DHCPACK response to req leasing ip.
func (e *Engine) newLeaseResponse(
	req *dhcpmsg.Message,
	typ dhcpmsg.MsgType,
	ip netip.Addr,
) (resp *dhcpmsg.Response) {
	hdr := req.Reply()
	hdr.YourIP = ip

	return &dhcpmsg.Response{
		Header: hdr,
		Options: []dhcpmsg.Option{
			newOptMessageType(typ),
			{Code: dhcpmsg.OptionLeaseTime, Data: e.leaseTime[:]},
			e.newOptServerID(),
		},
	}
}

// newNAK returns a DHCPNAK response to req.
func (e *Engine) newNAK(req *dhcpmsg.Message) (resp *dhcpmsg.Response) {
	return &dhcpmsg.Response{
		Header: req.Reply(),
		Options: []dhcpmsg.Option{
			newOptMessageType(dhcpmsg.MsgTypeNak),
			e.newOptServerID(),
		},
	}
}

// newOptMessageType returns a DHCP message type (53) option.
func newOptMessageType(typ dhcpmsg.MsgType) (opt dhcpmsg.Option) {
	return dhcpmsg.Option{Code: dhcpmsg.OptionMessageType, Data: []byte{byte(typ)}}
}

// newOptServerID returns a DHCP server identifier (54) option.
func (e *Engine) newOptServerID() (opt dhcpmsg.Option) {
	return dhcpmsg.Option{Code: dhcpmsg.OptionServerID, Data: e.serverID.AsSlice()}
}
