// Package propmetrics exports Prometheus metrics about props.
//
// Metrics collected (with the default namespace):
//   - prop_emissions_total: cells emitted, by prop name
//   - prop_errors_total: emitted cells carrying an error, by prop name and
//     kind (see prop.Kind)
//   - prop_ends_total: props ended, by prop name
//   - prop_active: observed props that have not ended yet
//
// Example:
//
//	c := propmetrics.NewCollector(propmetrics.WithNamespace("myapp"))
//	c.Observe(counter)
//
//	http.Handle("/metrics", promhttp.Handler())
package propmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/prop/pkg/prop"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "prop").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
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

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "prop",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// unnamed labels props created without prop.WithName.
const unnamed = "unnamed"

// Collector records metrics for the props it observes.
type Collector struct {
	emissions *prometheus.CounterVec
	errs      *prometheus.CounterVec
	ends      *prometheus.CounterVec
	active    prometheus.Gauge
}

// NewCollector registers the prop metrics with the configured registry.
// Registering twice with the same registry panics, as promauto does.
func NewCollector(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		emissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "emissions_total",
			Help:        "Total number of cells emitted by observed props",
			ConstLabels: config.ConstLabels,
		}, []string{"prop"}),

		errs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of emitted cells carrying an error, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"prop", "kind"}),

		ends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "ends_total",
			Help:        "Total number of observed props that ended",
			ConstLabels: config.ConstLabels,
		}, []string{"prop"}),

		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active",
			Help:        "Number of observed props that have not ended",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Observe starts recording p's emissions until p ends. The current cell is
// not counted. Observing an ended prop does nothing.
func (c *Collector) Observe(p prop.Observable) *prop.Subscription {
	if p.Ended() {
		return &prop.Subscription{}
	}
	name := p.Name()
	if name == "" {
		name = unnamed
	}

	c.active.Inc()
	p.OnEnd(func() {
		c.ends.WithLabelValues(name).Inc()
		c.active.Dec()
	})

	return p.SubscribeAny(func(_ any, err error) {
		c.emissions.WithLabelValues(name).Inc()
		if err != nil {
			c.errs.WithLabelValues(name, prop.Kind(err)).Inc()
		}
	}, prop.NotifyImmediately(false))
}
