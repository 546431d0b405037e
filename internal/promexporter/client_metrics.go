package promexporter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis"
)

// StatsSource is implemented by *redis.Client.
type StatsSource interface {
	Stats() redis.ClientStats
	AllPoolStats() []redis.ServerPoolStats
}

// ClientMetrics exports client and pool stats as Prometheus metrics.
// Values are read from the source at scrape time.
type ClientMetrics struct {
	source StatsSource

	calls              *prometheus.Desc
	blockingCalls      *prometheus.Desc
	buildErrors        *prometheus.Desc
	storeErrors        *prometheus.Desc
	nilReplies         *prometheus.Desc
	circuitState       *prometheus.Desc
	circuitRequests    *prometheus.Desc
	circuitFailures    *prometheus.Desc
	poolConnections    *prometheus.Desc
	poolCreated        *prometheus.Desc
	poolDestroyed      *prometheus.Desc
	poolAcquires       *prometheus.Desc
	poolAcquireWaits   *prometheus.Desc
	poolAcquireErrors  *prometheus.Desc
	poolAcquireWaitSec *prometheus.Desc

	circuitTransitions *prometheus.CounterVec
}

var _ prometheus.Collector = (*ClientMetrics)(nil)

// NewClientMetrics creates and registers all client metrics
func NewClientMetrics(registry prometheus.Registerer, source StatsSource) *ClientMetrics {
	m := &ClientMetrics{
		source: source,

		calls: prometheus.NewDesc("redis_calls_total",
			"Total number of dispatched calls by outcome",
			[]string{"outcome"}, nil), // completed, cancelled, faulted
		blockingCalls: prometheus.NewDesc("redis_blocking_calls_total",
			"Total number of dispatched calls with a blocking timeout", nil, nil),
		buildErrors: prometheus.NewDesc("redis_build_errors_total",
			"Total number of calls rejected before any I/O", nil, nil),
		storeErrors: prometheus.NewDesc("redis_store_errors_total",
			"Total number of error replies", nil, nil),
		nilReplies: prometheus.NewDesc("redis_nil_replies_total",
			"Total number of calls that completed with no value", nil, nil),

		circuitState: prometheus.NewDesc("redis_circuit_breaker_state",
			"Circuit breaker state (0=closed, 1=half-open, 2=open)",
			[]string{"server"}, nil),
		circuitRequests: prometheus.NewDesc("redis_circuit_breaker_requests",
			"Number of requests tracked by circuit breaker",
			[]string{"server"}, nil),
		circuitFailures: prometheus.NewDesc("redis_circuit_breaker_failures",
			"Circuit breaker failure counts",
			[]string{"server", "type"}, nil), // total, consecutive

		poolConnections: prometheus.NewDesc("redis_pool_connections",
			"Connection pool statistics",
			[]string{"server", "state"}, nil), // total, active, idle
		poolCreated: prometheus.NewDesc("redis_pool_connections_created_total",
			"Total connections created",
			[]string{"server"}, nil),
		poolDestroyed: prometheus.NewDesc("redis_pool_connections_destroyed_total",
			"Total connections destroyed",
			[]string{"server"}, nil),
		poolAcquires: prometheus.NewDesc("redis_pool_acquires_total",
			"Total connection acquire attempts",
			[]string{"server"}, nil),
		poolAcquireWaits: prometheus.NewDesc("redis_pool_acquire_waits_total",
			"Total acquires that waited for a connection",
			[]string{"server"}, nil),
		poolAcquireErrors: prometheus.NewDesc("redis_pool_acquire_errors_total",
			"Total connection acquire errors",
			[]string{"server"}, nil),
		poolAcquireWaitSec: prometheus.NewDesc("redis_pool_acquire_wait_seconds_total",
			"Total time spent waiting for a connection",
			[]string{"server"}, nil),

		circuitTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redis_circuit_breaker_transitions_total",
				Help: "Total circuit breaker state transitions",
			},
			[]string{"server", "from", "to"},
		),
	}

	registry.MustRegister(m)

	return m
}

// RecordCircuitBreakerTransition records a state change.
// It fits gobreaker.Settings.OnStateChange.
func (m *ClientMetrics) RecordCircuitBreakerTransition(server string, from, to gobreaker.State) {
	m.circuitTransitions.WithLabelValues(server, from.String(), to.String()).Inc()
}

func (m *ClientMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.calls
	ch <- m.blockingCalls
	ch <- m.buildErrors
	ch <- m.storeErrors
	ch <- m.nilReplies
	ch <- m.circuitState
	ch <- m.circuitRequests
	ch <- m.circuitFailures
	ch <- m.poolConnections
	ch <- m.poolCreated
	ch <- m.poolDestroyed
	ch <- m.poolAcquires
	ch <- m.poolAcquireWaits
	ch <- m.poolAcquireErrors
	ch <- m.poolAcquireWaitSec
	m.circuitTransitions.Describe(ch)
}

func (m *ClientMetrics) Collect(ch chan<- prometheus.Metric) {
	s := m.source.Stats()

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}

	counter(m.calls, s.Completed, "completed")
	counter(m.calls, s.Cancelled, "cancelled")
	counter(m.calls, s.Faulted, "faulted")
	counter(m.blockingCalls, s.Blocking)
	counter(m.buildErrors, s.BuildErrors)
	counter(m.storeErrors, s.StoreErrors)
	counter(m.nilReplies, s.NilReplies)

	for _, sp := range m.source.AllPoolStats() {
		gauge(m.circuitState, float64(sp.CircuitBreakerState), sp.Addr)
		gauge(m.circuitRequests, float64(sp.CircuitBreakerCounts.Requests), sp.Addr)
		gauge(m.circuitFailures, float64(sp.CircuitBreakerCounts.TotalFailures), sp.Addr, "total")
		gauge(m.circuitFailures, float64(sp.CircuitBreakerCounts.ConsecutiveFailures), sp.Addr, "consecutive")

		p := sp.PoolStats
		gauge(m.poolConnections, float64(p.TotalConns), sp.Addr, "total")
		gauge(m.poolConnections, float64(p.ActiveConns), sp.Addr, "active")
		gauge(m.poolConnections, float64(p.IdleConns), sp.Addr, "idle")
		counter(m.poolCreated, p.CreatedConns, sp.Addr)
		counter(m.poolDestroyed, p.DestroyedConns, sp.Addr)
		counter(m.poolAcquires, p.AcquireCount, sp.Addr)
		counter(m.poolAcquireWaits, p.AcquireWaitCount, sp.Addr)
		counter(m.poolAcquireErrors, p.AcquireErrors, sp.Addr)
		ch <- prometheus.MustNewConstMetric(m.poolAcquireWaitSec, prometheus.CounterValue,
			float64(p.AcquireWaitTimeNs)/1e9, sp.Addr)
	}

	m.circuitTransitions.Collect(ch)
}
