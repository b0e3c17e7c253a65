package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal     *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	patternHitsTotal *prometheus.CounterVec
	aiCallsTotal     *prometheus.CounterVec
	retrievalTotal   *prometheus.CounterVec
	contextFindings  *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fa",
			Subsystem: "router",
			Name:      "queries_total",
			Help:      "Total routed queries by query type and outcome.",
		},
		[]string{"service", "query_type", "outcome"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fa",
			Subsystem: "router",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query routing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "query_type"},
	)
	patternHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fa",
			Subsystem: "router",
			Name:      "pattern_hits_total",
			Help:      "Total fast-path pattern matches by pattern id.",
		},
		[]string{"service", "pattern"},
	)
	aiCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fa",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total AI analysis invocations by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fa",
			Subsystem: "retrieval",
			Name:      "strategy_total",
			Help:      "Total retrieval runs by effective strategy.",
		},
		[]string{"service", "strategy"},
	)
	contextFindings := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fa",
			Subsystem: "retrieval",
			Name:      "context_findings",
			Help:      "Distribution of findings selected as AI context.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		queryDuration,
		patternHitsTotal,
		aiCallsTotal,
		retrievalTotal,
		contextFindings,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		queriesTotal:     queriesTotal,
		queryDuration:    queryDuration,
		patternHitsTotal: patternHitsTotal,
		aiCallsTotal:     aiCallsTotal,
		retrievalTotal:   retrievalTotal,
		contextFindings:  contextFindings,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/findings/"):
		return "/v1/findings/{finding_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQuery(service, queryType, outcome string, duration time.Duration) {
	if queryType == "" {
		queryType = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.queriesTotal.WithLabelValues(service, queryType, outcome).Inc()
	m.queryDuration.WithLabelValues(service, queryType).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordPatternHit(service, pattern string) {
	if pattern == "" {
		return
	}
	m.patternHitsTotal.WithLabelValues(service, pattern).Inc()
}

func (m *HTTPServerMetrics) RecordAICall(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.aiCallsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordRetrieval(service, strategy string, selected int) {
	if strategy == "" {
		return
	}
	m.retrievalTotal.WithLabelValues(service, strategy).Inc()
	m.contextFindings.WithLabelValues(service).Observe(float64(selected))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
