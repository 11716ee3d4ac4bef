package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "insightedge"

// Recorder holds the dashboard collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	viewsRendered    *prometheus.CounterVec
	predictions      *prometheus.CounterVec
	narrativeTotal   *prometheus.CounterVec
	narrativeLatency prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a Recorder. Process and Go runtime collectors are included.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		viewsRendered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "views_rendered_total",
				Help:      "Rendered dashboard views by page and outcome",
			},
			[]string{"page", "outcome"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Model predictions by direction",
			},
			[]string{"direction"},
		),
		narrativeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "narrative_requests_total",
				Help:      "Narrative generation calls by outcome",
			},
			[]string{"outcome"},
		),
		narrativeLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "narrative_duration_seconds",
				Help:      "Narrative generation latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30, 60},
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ViewRendered counts one rendered page.
func (r *Recorder) ViewRendered(page, outcome string) {
	r.viewsRendered.WithLabelValues(page, outcome).Inc()
}

// Predicted counts one prediction.
func (r *Recorder) Predicted(direction string) {
	r.predictions.WithLabelValues(direction).Inc()
}

// NarrativeRequested records one generation call.
func (r *Recorder) NarrativeRequested(outcome string, elapsed time.Duration) {
	r.narrativeTotal.WithLabelValues(outcome).Inc()
	r.narrativeLatency.Observe(elapsed.Seconds())
}

// Handler serves the registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Middleware records request count and latency keyed by the route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		r.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
