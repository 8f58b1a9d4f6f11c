// Package metrics contains the Prometheus implementation of the message engine
// statistics and the HTTP server exposing them.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/berry2bd/DHCP-Server/internal/dhcpmsg"
	"github.com/berry2bd/DHCP-Server/internal/dhcpsvc"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace is the namespace of all the metrics unless configured
// otherwise.
const DefaultNamespace = "dhcpserver"

// subsystemDHCP is the subsystem of all the DHCP metrics.
const subsystemDHCP = "dhcp"

// labelType is the label with the DHCP message type.
const labelType = "type"

// DHCP is the Prometheus implementation of the [dhcpsvc.Metrics] interface.
type DHCP struct {
	requests       *prometheus.CounterVec
	responses      *prometheus.CounterVec
	malformed      prometheus.Counter
	leasesInUse    prometheus.Gauge
	handleDuration prometheus.Histogram
}

// NewDHCP registers the DHCP metrics in reg and returns a properly initialized
// *DHCP.
func NewDHCP(namespace string, reg prometheus.Registerer) (m *DHCP, err error) {
	m = &DHCP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_total",
			Namespace: namespace,
			Subsystem: subsystemDHCP,
			Help:      "The number of received DHCP messages by message type.",
		}, []string{labelType}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      "responses_total",
			Namespace: namespace,
			Subsystem: subsystemDHCP,
			Help:      "The number of sent DHCP messages by message type.",
		}, []string{labelType}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      "malformed_total",
			Namespace: namespace,
			Subsystem: subsystemDHCP,
			Help:      "The number of dropped malformed datagrams.",
		}),
		leasesInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      "leases_in_use",
			Namespace: namespace,
			Subsystem: subsystemDHCP,
			Help:      "The number of leases currently in use.",
		}),
		handleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:      "handle_duration_seconds",
			Namespace: namespace,
			Subsystem: subsystemDHCP,
			Help:      "The time spent on handling a single datagram.",
			// From 0.25ms to 8 seconds.
			Buckets: prometheus.ExponentialBuckets(0.00025, 2, 16),
		}),
	}

	var errs []error
	collectors := []prometheus.Collector{
		m.requests,
		m.responses,
		m.malformed,
		m.leasesInUse,
		m.handleDuration,
	}

	for _, c := range collectors {
		err = reg.Register(c)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err = errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("registering dhcp metrics: %w", err)
	}

	return m, nil
}

// type check
var _ dhcpsvc.Metrics = (*DHCP)(nil)

// IncrementRequests implements the [dhcpsvc.Metrics] interface for *DHCP.
func (m *DHCP) IncrementRequests(_ context.Context, typ dhcpmsg.MsgType) {
	m.requests.WithLabelValues(typ.String()).Inc()
}

// IncrementResponses implements the [dhcpsvc.Metrics] interface for *DHCP.
func (m *DHCP) IncrementResponses(_ context.Context, typ dhcpmsg.MsgType) {
	m.responses.WithLabelValues(typ.String()).Inc()
}

// IncrementMalformed implements the [dhcpsvc.Metrics] interface for *DHCP.
func (m *DHCP) IncrementMalformed(_ context.Context) {
	m.malformed.Inc()
}

// SetLeasesInUse implements the [dhcpsvc.Metrics] interface for *DHCP.
func (m *DHCP) SetLeasesInUse(_ context.Context, n int) {
	m.leasesInUse.Set(float64(n))
}

// ObserveHandle implements the [dhcpsvc.Metrics] interface for *DHCP.
func (m *DHCP) ObserveHandle(_ context.Context, dur time.Duration) {
	m.handleDuration.Observe(dur.Seconds())
}
