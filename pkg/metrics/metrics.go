// Package metrics exports binding activity as Prometheus metrics.
//
// Metrics collected:
//   - focus_active_subscriptions: Gauge of registered (store, property) pairs by store
//   - focus_subscription_ops_total: Counter of subscribe/unsubscribe operations by store and op
//   - focus_unsupported_subscriptions_total: Counter of rejected subscriptions by store
//   - focus_notifications_total: Counter of store notifications by event kind
//   - focus_derive_duration_seconds: Histogram of state derivation duration
//
// Example:
//
//	collector := metrics.New(metrics.WithNamespace("myapp"))
//	b := binding.New(binding.WithRecorder(collector))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/focus-dev/focus/pkg/store"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "focus").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for derivation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "focus",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector records binding activity. It implements binding.Recorder.
type Collector struct {
	activeSubscriptions *prometheus.GaugeVec
	subscriptionOps     *prometheus.CounterVec
	unsupported         *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	deriveDuration      prometheus.Histogram
}

// New creates a Collector and registers its metrics.
// It panics if the metrics are already registered in the registry.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		activeSubscriptions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_subscriptions",
			Help:        "Number of active (store, property) subscriptions",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		subscriptionOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscription_ops_total",
			Help:        "Total number of subscribe and unsubscribe operations",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "op"}),

		unsupported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unsupported_subscriptions_total",
			Help:        "Total number of subscriptions rejected for an undeclared property",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of store notifications handled by bindings",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		deriveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "derive_duration_seconds",
			Help:        "State derivation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// SubscriptionAdded records a new subscription.
func (c *Collector) SubscriptionAdded(storeID string) {
	c.activeSubscriptions.WithLabelValues(storeID).Inc()
	c.subscriptionOps.WithLabelValues(storeID, "add").Inc()
}

// SubscriptionRemoved records a released subscription.
func (c *Collector) SubscriptionRemoved(storeID string) {
	c.activeSubscriptions.WithLabelValues(storeID).Dec()
	c.subscriptionOps.WithLabelValues(storeID, "remove").Inc()
}

// Rejected records an unsupported property subscription.
func (c *Collector) Rejected(storeID string) {
	c.unsupported.WithLabelValues(storeID).Inc()
}

// Notified records a handled store notification.
func (c *Collector) Notified(kind store.EventKind) {
	c.notifications.WithLabelValues(kind.String()).Inc()
}

// Derived records the duration of a state derivation.
func (c *Collector) Derived(elapsed time.Duration) {
	c.deriveDuration.Observe(elapsed.Seconds())
}
