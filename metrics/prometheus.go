package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// VaultShield Metrics Collector
// Covers the ledger messages, pool lifecycle, oracle and gateway

const namespace = "vaultshield"

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all VaultShield metrics
type Collector struct {
	// Message metrics
	MsgsTotal   *prometheus.CounterVec
	MsgLatency  *prometheus.HistogramVec
	MsgFailures *prometheus.CounterVec

	// Pool lifecycle metrics
	PoolsCreated     prometheus.Counter
	PoolTransitions  *prometheus.CounterVec
	Contributions    *prometheus.CounterVec
	InvestorCount    *prometheus.GaugeVec
	ReportsSubmitted *prometheus.CounterVec

	// Withdrawal metrics
	WithdrawalsTotal *prometheus.CounterVec
	WithdrawalPaid   *prometheus.CounterVec

	// Oracle metrics
	OracleFailures *prometheus.CounterVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	RateLimitHits     *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector(prometheus.DefaultRegisterer)
	})
	return collector
}

// NewCollector creates a collector registered on reg, for tests and
// embedded registries
func NewCollector(reg prometheus.Registerer) *Collector {
	return newCollector(reg)
}

func newCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{}

	// Message metrics
	c.MsgsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "msgs",
			Name:      "total",
			Help:      "Total number of ledger messages handled",
		},
		[]string{"type", "result"},
	)

	c.MsgLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "msgs",
			Name:      "latency_ms",
			Help:      "Message handling latency in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"type"},
	)

	c.MsgFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "msgs",
			Name:      "failures_total",
			Help:      "Failed messages by error code",
		},
		[]string{"type", "code"},
	)

	// Pool lifecycle metrics
	c.PoolsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pools",
			Name:      "created_total",
			Help:      "Total number of pools created",
		},
	)

	c.PoolTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pools",
			Name:      "transitions_total",
			Help:      "Pool phase transitions",
		},
		[]string{"phase", "reason"},
	)

	c.Contributions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pools",
			Name:      "contributions_total",
			Help:      "Confidential contributions recorded",
		},
		[]string{"pool_id"},
	)

	c.InvestorCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pools",
			Name:      "investor_count",
			Help:      "Public investor count per pool",
		},
		[]string{"pool_id"},
	)

	c.ReportsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reports",
			Name:      "total",
			Help:      "Performance reports submitted",
		},
		[]string{"pool_id", "kind"},
	)

	// Withdrawal metrics
	c.WithdrawalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawals",
			Name:      "total",
			Help:      "Withdrawal requests by resulting status",
		},
		[]string{"status"},
	)

	c.WithdrawalPaid = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawals",
			Name:      "paid_amount",
			Help:      "Paid withdrawal amount in base units",
		},
		[]string{"denom"},
	)

	// Oracle metrics
	c.OracleFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "failures_total",
			Help:      "Operations aborted because the confidential oracle failed",
		},
		[]string{"type"},
	)

	// WebSocket metrics
	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket messages sent",
		},
		[]string{"event"},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "route", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "route"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limit_hits",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	c.registerAll(reg)
	return c
}

// registerAll registers all metrics with reg
func (c *Collector) registerAll(reg prometheus.Registerer) {
	reg.MustRegister(
		c.MsgsTotal,
		c.MsgLatency,
		c.MsgFailures,
		c.PoolsCreated,
		c.PoolTransitions,
		c.Contributions,
		c.InvestorCount,
		c.ReportsSubmitted,
		c.WithdrawalsTotal,
		c.WithdrawalPaid,
		c.OracleFailures,
		c.WSConnectionsActive,
		c.WSMessagesTotal,
		c.APIRequestsTotal,
		c.APIRequestLatency,
		c.RateLimitHits,
	)
}

// ============ Recording Helpers ============
// All helpers accept a nil receiver so callers can run without metrics.

// RecordMsg records a handled message and its outcome
func (c *Collector) RecordMsg(msgType string, latencyMs float64, code string) {
	if c == nil {
		return
	}
	result := "ok"
	if code != "" {
		result = "error"
		c.MsgFailures.WithLabelValues(msgType, code).Inc()
	}
	c.MsgsTotal.WithLabelValues(msgType, result).Inc()
	c.MsgLatency.WithLabelValues(msgType).Observe(latencyMs)
}

// RecordPoolCreated records a new pool
func (c *Collector) RecordPoolCreated() {
	if c == nil {
		return
	}
	c.PoolsCreated.Inc()
}

// RecordTransition records a pool phase change
func (c *Collector) RecordTransition(phase, reason string) {
	if c == nil {
		return
	}
	c.PoolTransitions.WithLabelValues(phase, reason).Inc()
}

// RecordContribution records a contribution and the new investor count
func (c *Collector) RecordContribution(poolID string, investorCount uint64) {
	if c == nil {
		return
	}
	c.Contributions.WithLabelValues(poolID).Inc()
	c.InvestorCount.WithLabelValues(poolID).Set(float64(investorCount))
}

// RecordReport records a performance report
func (c *Collector) RecordReport(poolID string, correction bool) {
	if c == nil {
		return
	}
	kind := "periodic"
	if correction {
		kind = "correction"
	}
	c.ReportsSubmitted.WithLabelValues(poolID, kind).Inc()
}

// RecordWithdrawal records a withdrawal status change
func (c *Collector) RecordWithdrawal(status string) {
	if c == nil {
		return
	}
	c.WithdrawalsTotal.WithLabelValues(status).Inc()
}

// RecordPayout records a paid amount
func (c *Collector) RecordPayout(denom string, amount float64) {
	if c == nil {
		return
	}
	c.WithdrawalPaid.WithLabelValues(denom).Add(amount)
}

// RecordOracleFailure records an operation aborted by the oracle
func (c *Collector) RecordOracleFailure(msgType string) {
	if c == nil {
		return
	}
	c.OracleFailures.WithLabelValues(msgType).Inc()
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, route, status string, latencyMs float64) {
	if c == nil {
		return
	}
	c.APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, route).Observe(latencyMs)
}

// RecordRateLimitHit records a rejected request
func (c *Collector) RecordRateLimitHit(route string) {
	if c == nil {
		return
	}
	c.RateLimitHits.WithLabelValues(route).Inc()
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	if c == nil {
		return
	}
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(event string) {
	if c == nil {
		return
	}
	c.WSMessagesTotal.WithLabelValues(event).Inc()
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
