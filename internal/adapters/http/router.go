package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/auditops/findings-assistant/internal/core/ports"
	"github.com/auditops/findings-assistant/internal/observability/metrics"
)

const serviceName = "api"

type Config struct {
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
	BackpressureWait time.Duration
}

type Router struct {
	queryUC ports.QueryRouter
	store   ports.FindingStore
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
	cfg     Config
}

func NewRouter(
	queryUC ports.QueryRouter,
	store ports.FindingStore,
	m *metrics.HTTPServerMetrics,
	logger *slog.Logger,
	cfg Config,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		queryUC: queryUC,
		store:   store,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat/query", rt.handleQuery)
	mux.HandleFunc("/v1/findings", rt.handleFindings)
	mux.HandleFunc("/v1/findings/", rt.findingSubresource)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.BackpressureWait)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	handler = rt.accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
