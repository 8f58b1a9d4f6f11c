package metrics_test

import (
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/golibs/testutil"
	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
	"github.com/berry2bd/DHCP-Server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout is a common timeout for tests and contexts.
const testTimeout time.Duration = 10 * time.Second

func TestDHCP(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewDHCP(metrics.DefaultNamespace, reg)
	require.NoError(t, err)

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	m.IncrementRequests(ctx, dhcpmsg.MsgTypeDiscover)
	m.IncrementRequests(ctx, dhcpmsg.MsgTypeDiscover)
	m.IncrementRequests(ctx, dhcpmsg.MsgTypeRequest)
	m.IncrementResponses(ctx, dhcpmsg.MsgTypeOffer)
	m.IncrementMalformed(ctx)
	m.SetLeasesInUse(ctx, 3)
	m.ObserveHandle(ctx, time.Millisecond)

	n, err := promtestutil.GatherAndCount(
		reg,
		"dhcpserver_dhcp_requests_total",
		"dhcpserver_dhcp_responses_total",
		"dhcpserver_dhcp_malformed_total",
		"dhcpserver_dhcp_leases_in_use",
		"dhcpserver_dhcp_handle_duration_seconds",
	)
	require.NoError(t, err)

	// Two request types, one response type, and three single metrics.
	assert.Equal(t, 6, n)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				key := mf.GetName()
				for _, lp := range metric.GetLabel() {
					key += "/" + lp.GetValue()
				}

				values[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, map[string]float64{
		"dhcpserver_dhcp_requests_total/discover": 2,
		"dhcpserver_dhcp_requests_total/request":  1,
		"dhcpserver_dhcp_responses_total/offer":   1,
		"dhcpserver_dhcp_malformed_total":         1,
		"dhcpserver_dhcp_leases_in_use":           3,
	}, values)

	t.Run("duplicate", func(t *testing.T) {
		_, err = metrics.NewDHCP(metrics.DefaultNamespace, reg)
		assert.Error(t, err)
	})
}

func TestServer(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewDHCP("test", reg)
	require.NoError(t, err)

	srv := metrics.NewServer(&metrics.ServerConfig{
		Logger:   slogutil.NewDiscardLogger(),
		Gatherer: reg,
		Addr:     netip.MustParseAddrPort("127.0.0.1:0"),
	})
	require.Nil(t, srv.LocalAddr())

	ctx := testutil.ContextWithTimeout(t, testTimeout)
	require.NoError(t, srv.Start(ctx))
	testutil.CleanupAndRequireSuccess(t, func() (err error) {
		return srv.Shutdown(testutil.ContextWithTimeout(t, testTimeout))
	})

	m.IncrementMalformed(ctx)

	u := &url.URL{
		Scheme: "http",
		Host:   srv.LocalAddr().String(),
		Path:   metrics.PathMetrics,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	testutil.CleanupAndRequireSuccess(t, resp.Body.Close)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "test_dhcp_malformed_total 1")
}
