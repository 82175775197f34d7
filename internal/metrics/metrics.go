package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK    = "ok"
	ResultError = "error"

	OpFetch = "fetch"
	OpPush  = "push"
)

// Recorder is nil-safe: a nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry
	sync     *prometheus.CounterVec
	synced   prometheus.Gauge
	searches prometheus.Counter
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewRecorder(namespace string) *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		sync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Document sync attempts against the backend by operation and result.",
		}, []string{"op", "result"}),
		synced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "synced",
			Help:      "1 when the last sync attempt succeeded.",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Search queries served.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(r.sync, r.synced, r.searches, r.requests, r.latency)

	return r
}

func (r *Recorder) RecordSync(op string, err error) {
	if r == nil {
		return
	}

	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.sync.WithLabelValues(op, result).Inc()

	if err != nil {
		r.synced.Set(0)
	} else {
		r.synced.Set(1)
	}
}

func (r *Recorder) RecordSearch() {
	if r == nil {
		return
	}
	r.searches.Inc()
}

func (r *Recorder) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.latency.WithLabelValues(route).Observe(d.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
