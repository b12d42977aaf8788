// Package prometheus exports lifecycle metrics on a private registry.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

const namespace = "ryxsurf"

type Metrics struct {
	registry *prometheus.Registry

	loaded       prometheus.Gauge
	unloaded     prometheus.Counter
	snapshots    *prometheus.CounterVec
	saves        *prometheus.CounterVec
	saveDuration prometheus.Histogram
	skipped      prometheus.Counter
}

var _ ports.Metrics = (*Metrics)(nil)

// New registers the collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		loaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loaded_tabs",
			Help:      "Number of tabs holding an engine handle",
		}),
		unloaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tabs_unloaded_total",
			Help:      "Total number of tabs unloaded by the unload manager",
		}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Total number of snapshot captures by outcome",
		}, []string{"status"}),
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Total number of record saves by outcome",
		}, []string{"status"}),
		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Time spent encoding, sealing and writing the record",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		skipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_skipped_total",
			Help:      "Autosave ticks dropped while a save was in flight",
		}),
	}
}

func (m *Metrics) SetLoadedTabs(n int) { m.loaded.Set(float64(n)) }

func (m *Metrics) TabsUnloaded(n int) {
	if n > 0 {
		m.unloaded.Add(float64(n))
	}
}

func (m *Metrics) SnapshotCaptured(ok bool) { m.snapshots.WithLabelValues(status(ok)).Inc() }

func (m *Metrics) SaveFinished(elapsed time.Duration, err error) {
	m.saves.WithLabelValues(status(err == nil)).Inc()
	m.saveDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SaveSkipped() { m.skipped.Inc() }

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
