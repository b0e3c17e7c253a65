package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

// handleQuery routes a natural-language question. The response envelope always
// carries exactly one variant, so the HTTP status is 200 for every routed
// query; only transport-level problems produce other statuses.
func (rt *Router) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	resp := rt.queryUC.Route(r.Context(), req)
	rt.recordQueryMetrics(resp, time.Since(start))

	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) recordQueryMetrics(resp domain.QueryResponse, duration time.Duration) {
	if rt.metrics == nil {
		return
	}

	outcome := "success"
	if resp.Error != nil {
		outcome = string(resp.Error.Code)
	}
	rt.metrics.RecordQuery(serviceName, resp.Metadata.QueryType, outcome, duration)

	if resp.Metadata.PatternMatched != "" {
		rt.metrics.RecordPatternHit(serviceName, resp.Metadata.PatternMatched)
	}
	if resp.Metadata.RetrievalStrategy != "" {
		rt.metrics.RecordRetrieval(serviceName, resp.Metadata.RetrievalStrategy, resp.Metadata.FindingsAnalyzed)
	}
	switch {
	case resp.Error != nil && resp.Error.Code == domain.ErrCodeAI:
		rt.metrics.RecordAICall(serviceName, "error")
	case resp.Type == domain.IntentComplex || resp.Type == domain.IntentHybrid:
		rt.metrics.RecordAICall(serviceName, "success")
	}
}
