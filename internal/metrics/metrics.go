// Package metrics exports bridge activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos"
)

const namespace = "febos"

// Result label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the bridge's collectors on a private registry.
// It implements febos.Recorder and febos.Observer.
type Metrics struct {
	registry *prometheus.Registry

	cycles      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	reauths     prometheus.Counter
	resources   *prometheus.GaugeVec
	devices     prometheus.Gauge
	changes     prometheus.Counter
}

var (
	_ febos.Recorder = (*Metrics)(nil)
	_ febos.Observer = (*Metrics)(nil)
)

// New creates and registers every collector, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Discovery and refresh cycles by outcome",
			},
			[]string{"cycle", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Wall time of discovery and refresh cycles",
				Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"cycle"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful cycle",
			},
			[]string{"cycle"},
		),
		reauths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reauthentications_total",
			Help:      "Sessions renewed after the cloud rejected a refresh",
		}),
		resources: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resources",
				Help:      "Discovered resources by kind",
			},
			[]string{"kind"},
		),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Discovered devices",
		}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_changes_total",
			Help:      "Resource values that changed during refresh",
		}),
	}

	m.registry.MustRegister(
		m.cycles, m.duration, m.lastSuccess, m.reauths, m.resources, m.devices, m.changes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CycleCompleted counts a cycle and observes its duration.
func (m *Metrics) CycleCompleted(cycle string, d time.Duration, err error) {
	m.duration.WithLabelValues(cycle).Observe(d.Seconds())
	if err != nil {
		m.cycles.WithLabelValues(cycle, resultFailure).Inc()
		return
	}
	m.cycles.WithLabelValues(cycle, resultSuccess).Inc()
	m.lastSuccess.WithLabelValues(cycle).SetToCurrentTime()
}

// Reauthenticated counts a renewed session.
func (m *Metrics) Reauthenticated() {
	m.reauths.Inc()
}

// ModelDiscovered sets the tree size gauges.
func (m *Metrics) ModelDiscovered(c febos.Counts) {
	m.resources.WithLabelValues(string(febos.KindMeasurement)).Set(float64(c.Sensors))
	m.resources.WithLabelValues(string(febos.KindBinary)).Set(float64(c.BinarySensors))
	m.devices.Set(float64(c.Devices))
}

// Discovered is a no-op; ModelDiscovered carries the counts.
func (m *Metrics) Discovered(context.Context, febos.DiscoveryReport) {}

// Refreshed counts changed values.
func (m *Metrics) Refreshed(_ context.Context, changes []febos.Change) {
	m.changes.Add(float64(len(changes)))
}
