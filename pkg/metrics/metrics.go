// Package metrics exports connection request outcomes as Prometheus
// counters. The Collector is a connection observer; registering it on the
// handler is all the wiring needed.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelfreak/connd/pkg/types"
)

// Collector counts request lifecycle events. It implements types.Observer.
type Collector struct {
	connectRequested    prometheus.Counter
	disconnectRequested prometheus.Counter
	connectSucceeded    prometheus.Counter
	connectFailed       *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connd_connect_requested_total",
			Help: "Number of connect requests issued.",
		}),
		disconnectRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connd_disconnect_requested_total",
			Help: "Number of disconnect requests issued.",
		}),
		connectSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "connd_requests_succeeded_total",
			Help: "Number of requests that resolved successfully.",
		}),
		connectFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connd_requests_failed_total",
			Help: "Number of requests that resolved with an error, by error name.",
		}, []string{"error"}),
	}
	reg.MustRegister(c.connectRequested, c.disconnectRequested, c.connectSucceeded, c.connectFailed)
	return c
}

// ConnectToNetworkRequested implements types.Observer.
func (c *Collector) ConnectToNetworkRequested(id string) { c.connectRequested.Inc() }

// DisconnectRequested implements types.Observer.
func (c *Collector) DisconnectRequested(id string) { c.disconnectRequested.Inc() }

// ConnectSucceeded implements types.Observer.
func (c *Collector) ConnectSucceeded(id string) { c.connectSucceeded.Inc() }

// ConnectFailed implements types.Observer.
func (c *Collector) ConnectFailed(id string, errorName string) {
	c.connectFailed.WithLabelValues(errorName).Inc()
}

// Serve exposes the registry on addr under /metrics. Blocks until the
// listener fails.
func Serve(addr string, reg *prometheus.Registry, logger types.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("Serving metrics", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
