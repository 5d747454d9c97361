package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements ingest.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	rowsUpdated   prometheus.Counter
	lastHigh      *prometheus.GaugeVec
	cycleDuration prometheus.Histogram
}

// New registers the collectors on reg. Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "targetsentinel_ingest_cycles_total",
				Help: "Ingestion cycles by outcome (completed, skipped, failed)",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "targetsentinel_instrument_errors_total",
				Help: "Per-instrument ingestion failures by kind",
			},
			[]string{"kind"},
		),
		rowsUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "targetsentinel_prediction_rows_updated_total",
			Help: "Prediction records whose max price was raised",
		}),
		lastHigh: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "targetsentinel_last_observed_high",
				Help: "Last daily high observed per symbol",
			},
			[]string{"symbol"},
		),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "targetsentinel_ingest_cycle_duration_seconds",
			Help:    "Duration of ingestion cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) RecordCycle(outcome string, seconds float64) {
	r.cycles.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		r.cycleDuration.Observe(seconds)
	}
}

func (r *Recorder) RecordInstrumentError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordRowsUpdated(n int64) {
	r.rowsUpdated.Add(float64(n))
}

func (r *Recorder) RecordHigh(symbol string, high float64) {
	r.lastHigh.WithLabelValues(symbol).Set(high)
}

// Handler exposes metrics gathered from g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
