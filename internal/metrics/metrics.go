// Package metrics provides Prometheus metrics for meetprep cycles.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "meetprep"

// Cycle results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for the cycle duration histogram.
func WithHistogramBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered with and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// Recorder records per-cycle pipeline metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	eventsFetched     *prometheus.CounterVec
	sourceErrors      *prometheus.CounterVec
	eventsFiltered    prometheus.Counter
	eventsDuplicate   prometheus.Counter
	eventsPrioritized *prometheus.CounterVec
	cycles            *prometheus.CounterVec
	cycleDuration     prometheus.Histogram
}

// NewRecorder creates a Recorder on its own registry unless WithRegistry is given.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: defaultNamespace,
		buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	factory := promauto.With(r.registry)

	r.eventsFetched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "events_fetched_total",
		Help:      "Raw events fetched, by calendar source.",
	}, []string{"source"})

	r.sourceErrors = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "source_errors_total",
		Help:      "Calendar source fetch failures, by source.",
	}, []string{"source"})

	r.eventsFiltered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "events_filtered_total",
		Help:      "Events dropped by the filter stage.",
	})

	r.eventsDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "events_duplicate_total",
		Help:      "Events merged away by deduplication.",
	})

	r.eventsPrioritized = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "events_prioritized_total",
		Help:      "Processed events, by priority level.",
	}, []string{"priority"})

	r.cycles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "cycles_total",
		Help:      "Prep cycles run, by result.",
	}, []string{"result"})

	r.cycleDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of a full prep cycle.",
		Buckets:   r.buckets,
	})

	return r
}

// Handler serves the Recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordFetched adds n fetched events for source.
func (r *Recorder) RecordFetched(source string, n int) {
	if r == nil {
		return
	}
	r.eventsFetched.WithLabelValues(source).Add(float64(n))
}

// RecordSourceError counts one failed fetch for source.
func (r *Recorder) RecordSourceError(source string) {
	if r == nil {
		return
	}
	r.sourceErrors.WithLabelValues(source).Inc()
}

// RecordPipeline records the stage counts of one processor run.
// dropped and duplicates must be non-negative.
func (r *Recorder) RecordPipeline(dropped, duplicates, high, medium, low int) {
	if r == nil {
		return
	}
	r.eventsFiltered.Add(float64(dropped))
	r.eventsDuplicate.Add(float64(duplicates))
	r.eventsPrioritized.WithLabelValues("high").Add(float64(high))
	r.eventsPrioritized.WithLabelValues("medium").Add(float64(medium))
	r.eventsPrioritized.WithLabelValues("low").Add(float64(low))
}

// RecordCycle counts a finished cycle and observes its duration.
func (r *Recorder) RecordCycle(err error, d time.Duration) {
	if r == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	r.cycles.WithLabelValues(result).Inc()
	r.cycleDuration.Observe(d.Seconds())
}
