package dhcpsvc_test

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
	"github.com/berry2bd/DHCP-Server/internal/dhcpsvc"
	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/stretchr/testify/require"
)

// testTimeout is a common timeout for tests and contexts.
const testTimeout time.Duration = 10 * time.Second

// testServerID is the common server identifier for tests.
var testServerID = netip.MustParseAddr("192.168.1.0")

// testPool is the common set of pool addresses for tests.
var testPool = []netip.Addr{
	netip.MustParseAddr("192.168.1.1"),
	netip.MustParseAddr("192.168.1.2"),
	netip.MustParseAddr("192.168.1.3"),
	netip.MustParseAddr("192.168.1.4"),
}

// discardLog is a logger to discard test output.
var discardLog = slogutil.NewDiscardLogger()

// testMAC returns a hardware address ending with b.
func testMAC(b byte) (mac net.HardwareAddr) {
	return net.HardwareAddr{0x02, 0x00, 0x5e, 0x00, 0x53, b}
}

// testMetrics is a [dhcpsvc.Metrics] implementation that records the calls.
// It's not safe for concurrent use.
type testMetrics struct {
	requests    map[dhcpmsg.MsgType]int
	responses   map[dhcpmsg.MsgType]int
	malformed   int
	leases      int
	handleCalls int
}

// newTestMetrics returns a new properly initialized *testMetrics.
func newTestMetrics() (m *testMetrics) {
	return &testMetrics{
		requests:  map[dhcpmsg.MsgType]int{},
		responses: map[dhcpmsg.MsgType]int{},
	}
}

// type check
var _ dhcpsvc.Metrics = (*testMetrics)(nil)

// IncrementRequests implements the [dhcpsvc.Metrics] interface for
// *testMetrics.
func (m *testMetrics) IncrementRequests(_ context.Context, typ dhcpmsg.MsgType) {
	m.requests[typ]++
}

// IncrementResponses implements the [dhcpsvc.Metrics] interface for
// *testMetrics.
func (m *testMetrics) IncrementResponses(_ context.Context, typ dhcpmsg.MsgType) {
	m.responses[typ]++
}

// IncrementMalformed implements the [dhcpsvc.Metrics] interface for
// *testMetrics.
func (m *testMetrics) IncrementMalformed(_ context.Context) {
	m.malformed++
}

// SetLeasesInUse implements the [dhcpsvc.Metrics] interface for *testMetrics.
func (m *testMetrics) SetLeasesInUse(_ context.Context, n int) {
	m.leases = n
}

// ObserveHandle implements the [dhcpsvc.Metrics] interface for *testMetrics.
func (m *testMetrics) ObserveHandle(_ context.Context, _ time.Duration) {
	m.handleCalls++
}

// newTestEngine returns a new engine with the common test configuration and
// the given metrics.
func newTestEngine(tb testing.TB, m dhcpsvc.Metrics) (e *dhcpsvc.Engine) {
	tb.Helper()

	e, err := dhcpsvc.NewEngine(&dhcpsvc.Config{
		Logger:        discardLog,
		Metrics:       m,
		Clock:         timeutil.SystemClock{},
		ServerID:      testServerID,
		Pool:          testPool,
		LeaseDuration: dhcpsvc.DefaultLeaseDuration,
	})
	require.NoError(tb, err)

	return e
}

// newRequest returns the wire representation of a client message of the given
// type from mac with the additional modifiers applied.
func newRequest(
	tb testing.TB,
	typ dhcpv4.MessageType,
	mac net.HardwareAddr,
	mods ...dhcpv4.Modifier,
) (b []byte) {
	tb.Helper()

	mods = append([]dhcpv4.Modifier{
		dhcpv4.WithMessageType(typ),
		dhcpv4.WithHwAddr(mac),
	}, mods...)

	pkt, err := dhcpv4.New(mods...)
	require.NoError(tb, err)

	return pkt.ToBytes()
}

// withServerID returns a modifier setting the server identifier option.
func withServerID(ip netip.Addr) (mod dhcpv4.Modifier) {
	return dhcpv4.WithOption(dhcpv4.OptServerIdentifier(ip.AsSlice()))
}

// withRequestedIP returns a modifier setting the requested IP address option.
func withRequestedIP(ip netip.Addr) (mod dhcpv4.Modifier) {
	return dhcpv4.WithOption(dhcpv4.OptRequestedIPAddress(ip.AsSlice()))
}

// exchange passes req to h and requires a parseable response.
func exchange(tb testing.TB, h dhcpsvc.Handler, req []byte) (resp *dhcpv4.DHCPv4) {
	tb.Helper()

	ctx := testutil.ContextWithTimeout(tb, testTimeout)
	b, ok := h.Handle(ctx, req)
	require.True(tb, ok)

	return errors.Must(dhcpv4.FromBytes(b))
}

// requireNoResponse passes req to h and requires no response.
func requireNoResponse(tb testing.TB, h dhcpsvc.Handler, req []byte) {
	tb.Helper()

	ctx := testutil.ContextWithTimeout(tb, testTimeout)
	b, ok := h.Handle(ctx, req)
	require.False(tb, ok)
	require.Nil(tb, b)
}

// yourIP returns the your IP address field of resp.
func yourIP(tb testing.TB, resp *dhcpv4.DHCPv4) (ip netip.Addr) {
	tb.Helper()

	ip, ok := netip.AddrFromSlice(resp.YourIPAddr.To4())
	require.True(tb, ok)

	return ip
}

// dora performs the full discover-offer-request-ack exchange for mac and
// returns the acknowledged address.
func dora(tb testing.TB, h dhcpsvc.Handler, mac net.HardwareAddr) (ip netip.Addr) {
	tb.Helper()

	offer := exchange(tb, h, newRequest(tb, dhcpv4.MessageTypeDiscover, mac))
	require.Equal(tb, dhcpv4.MessageTypeOffer, offer.MessageType())

	offered := yourIP(tb, offer)
	ack := exchange(tb, h, newRequest(
		tb,
		dhcpv4.MessageTypeRequest,
		mac,
		withServerID(testServerID),
		withRequestedIP(offered),
	))
	require.Equal(tb, dhcpv4.MessageTypeAck, ack.MessageType())
	require.Equal(tb, offered, yourIP(tb, ack))

	return offered
}
