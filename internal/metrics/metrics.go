package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/osa911/datacap/internal/models"
)

// Metrics holds all daemon metrics.
type Metrics struct {
	// Engine metrics
	UsageBytes       prometheus.Gauge
	QuotaBytes       prometheus.Gauge
	PercentageUsed   prometheus.Gauge
	Blocked          prometheus.Gauge
	SinkholeActive   prometheus.Gauge
	TicksTotal       prometheus.Counter
	TickErrorsTotal  *prometheus.CounterVec
	SampleFailures   prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	CommandsTotal    *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registerer prometheus.Registerer
	namespace  string
}

// New creates a new Metrics instance registered with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "datacap"
	}
	factory := promauto.With(reg)

	return &Metrics{
		UsageBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "usage_bytes",
			Help:      "Bytes used since the last reset",
		}),
		QuotaBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "limit_bytes",
			Help:      "Configured quota limit in bytes",
		}),
		PercentageUsed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "used_percent",
			Help:      "Share of the quota consumed (0-100)",
		}),
		Blocked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "blocked",
			Help:      "Whether the quota currently requires blocking (1=blocked)",
		}),
		SinkholeActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sinkhole",
			Name:      "active",
			Help:      "Whether the sinkhole is established (1=active)",
		}),
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Total number of polling ticks",
		}),
		TickErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_errors_total",
			Help:      "Total number of failed polling ticks",
		}, []string{"stage"}), // stage: quota, read, init, write
		SampleFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "counter",
			Name:      "sample_failures_total",
			Help:      "Traffic counter reads that failed and were treated as zero",
		}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sinkhole",
			Name:      "transitions_total",
			Help:      "Sinkhole establish/teardown attempts",
		}, []string{"action", "result"}),
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "total",
			Help:      "Commands received by the command surface",
		}, []string{"command", "result"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "path"}),

		registerer: reg,
		namespace:  namespace,
	}
}

// ObserveStatus mirrors a freshly computed status. A nil status clears the quota gauges.
func (m *Metrics) ObserveStatus(status *models.DataStatus) {
	if status == nil {
		m.UsageBytes.Set(0)
		m.QuotaBytes.Set(0)
		m.PercentageUsed.Set(0)
		m.Blocked.Set(0)
		return
	}
	m.UsageBytes.Set(float64(status.UsedBytes))
	m.QuotaBytes.Set(float64(status.QuotaBytes))
	m.PercentageUsed.Set(status.PercentageUsed)
	m.Blocked.Set(boolToFloat(status.IsBlocked))
	m.SinkholeActive.Set(boolToFloat(status.IsSinkholeActive))
}

// RecordTransition records an establish/teardown attempt.
func (m *Metrics) RecordTransition(action string, err error, active bool) {
	m.TransitionsTotal.WithLabelValues(action, result(err)).Inc()
	m.SinkholeActive.Set(boolToFloat(active))
}

// RecordCommand records a command surface invocation.
func (m *Metrics) RecordCommand(command string, err error) {
	m.CommandsTotal.WithLabelValues(command, result(err)).Inc()
}

// Tick records a polling tick.
func (m *Metrics) Tick() {
	m.TicksTotal.Inc()
}

// TickFailed records a polling tick that failed at stage.
func (m *Metrics) TickFailed(stage string) {
	m.TickErrorsTotal.WithLabelValues(stage).Inc()
}

// SampleFailed records a traffic counter failure.
func (m *Metrics) SampleFailed() {
	m.SampleFailures.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RegisterDroppedPackets exposes a packet counter owned elsewhere (the sinkhole drain).
func (m *Metrics) RegisterDroppedPackets(fn func() uint64) error {
	return m.registerer.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "sinkhole",
		Name:      "dropped_packets_total",
		Help:      "Packets captured and discarded by the sinkhole",
	}, func() float64 { return float64(fn()) }))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
