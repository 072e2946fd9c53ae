package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records screening metrics with Prometheus.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Recorder struct {
	symbolsTotal  *prometheus.CounterVec
	matchesTotal  prometheus.Counter
	runsTotal     prometheus.Counter
	runDuration   prometheus.Histogram
	symbolLatency *prometheus.HistogramVec
	fetchLatency  *prometheus.HistogramVec
	lastRunMatch  prometheus.Gauge
}

// New creates a recorder registered on reg
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		symbolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orion_symbols_screened_total",
				Help: "Symbols screened, by outcome (matched, unmatched, failed)",
			},
			[]string{"status"},
		),
		matchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "orion_matches_total",
			Help: "Total number of symbols matching a strategy",
		}),
		runsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "orion_runs_total",
			Help: "Total number of completed screening runs",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "orion_run_duration_seconds",
			Help:    "Wall-clock duration of screening runs",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		}),
		symbolLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orion_symbol_duration_seconds",
				Help:    "Duration of a single symbol pipeline",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		fetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orion_provider_fetch_duration_seconds",
				Help:    "Duration of provider calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "operation", "result"},
		),
		lastRunMatch: factory.NewGauge(prometheus.GaugeOpts{
			Name: "orion_last_run_matches",
			Help: "Number of matches in the most recent run",
		}),
	}
}

// NewDefault registers on the global Prometheus registry
func NewDefault() *Recorder {
	return New(prometheus.DefaultRegisterer)
}

// ObserveSymbol records one symbol pipeline outcome
func (r *Recorder) ObserveSymbol(status string, d time.Duration) {
	r.symbolsTotal.WithLabelValues(status).Inc()
	r.symbolLatency.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveRun records a completed run
func (r *Recorder) ObserveRun(matches int, d time.Duration) {
	r.runsTotal.Inc()
	r.matchesTotal.Add(float64(matches))
	r.lastRunMatch.Set(float64(matches))
	r.runDuration.Observe(d.Seconds())
}

// ObserveFetch records a provider call
func (r *Recorder) ObserveFetch(provider, operation string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetchLatency.WithLabelValues(provider, operation, result).Observe(d.Seconds())
}
