package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsTotal *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastGlucose prometheus.Gauge
	latency     *prometheus.HistogramVec
	plotsTotal  *prometheus.CounterVec
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// New returns the process wide Prometheus recorder. Collectors are
// registered on the first call only.
func New() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			eventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "glucoplot_events_total",
					Help: "Total number of events written to the store",
				},
				[]string{"kind"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "glucoplot_errors_total",
					Help: "Total number of errors encountered",
				},
				[]string{"type"},
			),
			lastGlucose: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "glucoplot_last_glucose_mmol",
					Help: "Most recent glucose reading in mmol/L",
				},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "glucoplot_operation_duration_seconds",
					Help:    "Duration of operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			plotsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "glucoplot_plots_rendered_total",
					Help: "Plots rendered and stored",
				},
				[]string{"kind"},
			),
		}
	})
	return recorder
}

// RecordEvent counts an event of the given kind.
func (r *Recorder) RecordEvent(kind string) {
	r.eventsTotal.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastGlucose(mmol float64) {
	r.lastGlucose.Set(mmol)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordPlot(kind string) {
	r.plotsTotal.WithLabelValues(kind).Inc()
}
