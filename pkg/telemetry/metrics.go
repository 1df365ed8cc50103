package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/pulse/pkg/keyed"
	"github.com/vango-dev/pulse/pkg/pulse"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "pulse").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for publish duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "pulse",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the runtime collectors.
type Metrics struct {
	signalChanges   *prometheus.CounterVec
	listMutations   *prometheus.CounterVec
	listSize        *prometheus.GaugeVec
	aggregatorFires *prometheus.CounterVec
	callbackErrors  *prometheus.CounterVec
	patchesSent     prometheus.Counter
	liveClients     prometheus.Gauge
	droppedClients  prometheus.Counter
	publishDuration *prometheus.HistogramVec
	publishErrors   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors. Registering twice on the same
// registry panics, as with any promauto collector.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}

	return &Metrics{
		signalChanges: factory.NewCounterVec(
			counterOpts("signal_changes_total", "Signal notifications by signal"),
			[]string{"signal"}),

		listMutations: factory.NewCounterVec(
			counterOpts("list_mutations_total", "Applied keyed list mutations by list and operation"),
			[]string{"list", "op"}),

		listSize: factory.NewGaugeVec(
			gaugeOpts("list_entries", "Current number of entries per keyed list"),
			[]string{"list"}),

		aggregatorFires: factory.NewCounterVec(
			counterOpts("aggregator_fires_total", "Aggregated events emitted by aggregator"),
			[]string{"aggregator"}),

		callbackErrors: factory.NewCounterVec(
			counterOpts("callback_errors_total", "Recovered callback failures by source"),
			[]string{"source"}),

		patchesSent: factory.NewCounter(
			counterOpts("patches_sent_total", "Total number of patches sent to live clients")),

		liveClients: factory.NewGauge(
			gaugeOpts("live_clients", "Number of connected live clients")),

		droppedClients: factory.NewCounter(
			counterOpts("live_clients_dropped_total", "Live clients disconnected for falling behind")),

		publishDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "publish_duration_seconds",
			Help:        "Time spent writing a rendered snapshot to a sink",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"sink"}),

		publishErrors: factory.NewCounterVec(
			counterOpts("publish_errors_total", "Failed publishes by sink"),
			[]string{"sink"}),

		requestsTotal: factory.NewCounterVec(
			counterOpts("http_requests_total", "HTTP requests by route and status"),
			[]string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
	}
}

// Reporter counts every failure, then hands it to next. A nil next drops
// the failure after counting it.
func (m *Metrics) Reporter(next pulse.Reporter) pulse.Reporter {
	return pulse.ReporterFunc(func(source string, err error) {
		m.callbackErrors.WithLabelValues(source).Inc()
		if next != nil {
			next.Report(source, err)
		}
	})
}

// ObserveSignal counts the notifications of sig. The value replayed on
// subscription is not counted.
func ObserveSignal[T any](m *Metrics, sig pulse.Source[T]) *pulse.Subscription {
	counter := m.signalChanges.WithLabelValues(sig.Name())
	replaying := true
	sub := sig.Subscribe(func(T) {
		if replaying {
			return
		}
		counter.Inc()
	})
	replaying = false
	return sub
}

// ObserveList counts the mutations of a keyed list and tracks its size.
func ObserveList[T any](m *Metrics, list pulse.EventSource[keyed.Change[T]]) *pulse.Subscription {
	name := list.Name()
	size := m.listSize.WithLabelValues(name)
	return list.On(keyed.ChannelChange, func(c keyed.Change[T]) {
		m.listMutations.WithLabelValues(name, c.Op.String()).Inc()
		switch c.Op {
		case keyed.OpAppend, keyed.OpInsertBefore:
			size.Inc()
		case keyed.OpRemove:
			size.Dec()
		}
	})
}

// ObserveAggregator counts the aggregated events of agg.
func ObserveAggregator(m *Metrics, agg *pulse.Aggregator) *pulse.Subscription {
	counter := m.aggregatorFires.WithLabelValues(agg.Name())
	return agg.On(pulse.ChannelAggregated, func(pulse.Snapshot) {
		counter.Inc()
	})
}

// RecordPatches adds n to the patches sent.
func (m *Metrics) RecordPatches(n int) {
	m.patchesSent.Add(float64(n))
}

// ClientConnected increments the live client gauge.
func (m *Metrics) ClientConnected() {
	m.liveClients.Inc()
}

// ClientDisconnected decrements the live client gauge. dropped marks a
// client cut off for falling behind.
func (m *Metrics) ClientDisconnected(dropped bool) {
	m.liveClients.Dec()
	if dropped {
		m.droppedClients.Inc()
	}
}

// ObservePublish records one publish attempt.
func (m *Metrics) ObservePublish(sink string, d time.Duration, err error) {
	m.publishDuration.WithLabelValues(sink).Observe(d.Seconds())
	if err != nil {
		m.publishErrors.WithLabelValues(sink).Inc()
	}
}


// ObserveRequest records one HTTP request. route should be a pattern, not
// a raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}
