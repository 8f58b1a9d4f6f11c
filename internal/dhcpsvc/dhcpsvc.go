// Package dhcpsvc contains the DHCPv4 message engine and the UDP server
// feeding it.
package dhcpsvc

import (
	"context"
	"time"

	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
)

// Logging keys.
const (
	keyFreed     = "freed"
	keyMAC       = "mac"
	keyIP        = "ip"
	keyOptions   = "options"
	keyPeer      = "peer"
	keyRequested = "requested"
	keyServerID  = "serverid"
	keyType      = "type"
	keyXID       = "xid"
)

// Handler processes a single DHCP datagram.
type Handler interface {
	// Handle returns the response to send back to the source of req, if
	// any.  It must not retain req.
	Handle(ctx context.Context, req []byte) (resp []byte, ok bool)
}

// Metrics collects the statistics of the message engine.
type Metrics interface {
	// IncrementRequests counts a request of the given message type.
	IncrementRequests(ctx context.Context, typ dhcpmsg.MsgType)

	// IncrementResponses counts a response of the given message type.
	IncrementResponses(ctx context.Context, typ dhcpmsg.MsgType)

	// IncrementMalformed counts a dropped malformed datagram.
	IncrementMalformed(ctx context.Context)

	// SetLeasesInUse sets the number of leases currently in use.
	SetLeasesInUse(ctx context.Context, n int)

	// ObserveHandle records the time spent on a single datagram.
	ObserveHandle(ctx context.Context, dur time.Duration)
}

// EmptyMetrics is a [Metrics] implementation that does nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// IncrementRequests implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementRequests(_ context.Context, _ dhcpmsg.MsgType) {}

// IncrementResponses implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementResponses(_ context.Context, _ dhcpmsg.MsgType) {}

// IncrementMalformed implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementMalformed(_ context.Context) {}

// SetLeasesInUse implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) SetLeasesInUse(_ context.Context, _ int) {}

// ObserveHandle implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveHandle(_ context.Context, _ time.Duration) {}
