package stats

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var invalidMetricChar = regexp.MustCompile(`[^a-zA-Z0-9_:]`)

// sanitize turns a spec-dictated counter name (which may contain dashes,
// e.g. "recencyCounterC0-3") into a valid Prometheus metric name.
func sanitize(name string) string {
	return invalidMetricChar.ReplaceAllString(name, "_")
}

// PromSink registers every counter/gauge the core asks for against a single
// Prometheus registry, under the "llcsim" namespace and a subsystem equal to
// the stats group (always "interval_timer" for this core).
type PromSink struct {
	registry *prometheus.Registry

	mu       sync.Mutex
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// NewPromSink wraps registry (a fresh one, or prometheus.DefaultRegisterer's
// backing registry) as a stats.Sink.
func NewPromSink(registry *prometheus.Registry) *PromSink {
	return &PromSink{
		registry: registry,
		counters: make(map[string]prometheus.Counter),
		gauges:   make(map[string]prometheus.Gauge),
	}
}

func metricKey(group, name string) string { return group + "/" + name }

func (s *PromSink) Counter(group, name string) Counter {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := metricKey(group, name)
	if c, ok := s.counters[k]; ok {
		return c
	}

	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llcsim",
		Subsystem: sanitize(group),
		Name:      sanitize(name),
		Help:      fmt.Sprintf("%s/%s", group, name),
	})

	if err := s.registry.Register(c); err != nil {
		// Registration is required to be idempotent per process: a second
		// Context for the same policy must not panic on re-registration.
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			c = are.ExistingCollector.(prometheus.Counter)
		}
	}

	s.counters[k] = c
	return c
}

func (s *PromSink) Gauge(group, name string) Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := metricKey(group, name)
	if g, ok := s.gauges[k]; ok {
		return g
	}

	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "llcsim",
		Subsystem: sanitize(group),
		Name:      sanitize(name),
		Help:      fmt.Sprintf("%s/%s", group, name),
	})

	if err := s.registry.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			g = are.ExistingCollector.(prometheus.Gauge)
		}
	}

	s.gauges[k] = g
	return g
}
