package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
)

type createFindingRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
	Severity       string  `json:"severity"`
	Status         string  `json:"status"`
	Department     string  `json:"department"`
	ProjectType    string  `json:"project_type"`
	Year           int     `json:"year"`
	RiskScore      float64 `json:"risk_score"`
}

// handleFindings dispatches the collection endpoint: GET lists with optional
// filters, POST creates.
func (rt *Router) handleFindings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.listFindings(w, r)
	case http.MethodPost:
		rt.createFinding(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) listFindings(w http.ResponseWriter, r *http.Request) {
	query := ports.FindingQuery{
		Sorts: []domain.SortClause{{Field: "risk_score", Desc: true}},
	}

	params := r.URL.Query()
	for _, field := range []string{"severity", "status", "department", "project_type"} {
		if v := strings.TrimSpace(params.Get(field)); v != "" {
			query.Filters = append(query.Filters, domain.FilterClause{Field: field, Op: domain.OpEq, Value: v})
		}
	}
	if v := strings.TrimSpace(params.Get("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be a number")
			return
		}
		query.Filters = append(query.Filters, domain.FilterClause{Field: "year", Op: domain.OpEq, Value: year})
	}
	if v := strings.TrimSpace(params.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative number")
			return
		}
		query.Limit = limit
	}

	findings, err := rt.store.Query(r.Context(), query)
	if err != nil {
		rt.logger.Error("list findings failed", "error", err)
		writeError(w, mapErrorToHTTPStatus(err), "could not list findings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"findings": findings,
		"count":    len(findings),
	})
}

func (rt *Router) createFinding(w http.ResponseWriter, r *http.Request) {

	var req createFindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	severity, ok := domain.ParseSeverity(req.Severity)
	if !ok {
		writeError(w, http.StatusBadRequest, "severity must be one of Critical, High, Medium, Low")
		return
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "status must be one of Open, In Progress, Closed")
		return
	}

	now := time.Now().UTC()
	finding := &domain.Finding{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Recommendation: strings.TrimSpace(req.Recommendation),
		Severity:       severity,
		Status:         status,
		Department:     strings.TrimSpace(req.Department),
		ProjectType:    strings.TrimSpace(req.ProjectType),
		Year:           req.Year,
		RiskScore:      req.RiskScore,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := rt.store.Create(r.Context(), finding); err != nil {
		rt.logger.Error("create finding failed", "error", err)
		writeError(w, mapErrorToHTTPStatus(err), "could not store finding")
		return
	}
	writeJSON(w, http.StatusCreated, finding)
}

// findingSubresource dispatches /v1/findings/{id} and
// /v1/findings/{id}/status.
func (rt *Router) findingSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/findings/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, "finding id is required")
		return
	}

	if id, found := strings.CutSuffix(rest, "/status"); found {
		rt.updateFindingStatus(w, r, id)
		return
	}
	rt.getFindingByID(w, r, rest)
}

func (rt *Router) getFindingByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	finding, err := rt.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), "finding not found")
		return
	}
	writeJSON(w, http.StatusOK, finding)
}

func (rt *Router) updateFindingStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "status must be one of Open, In Progress, Closed")
		return
	}

	if err := rt.store.UpdateStatus(r.Context(), id, status); err != nil {
		if !domain.IsKind(err, domain.ErrFindingNotFound) {
			rt.logger.Error("update finding status failed", "finding_id", id, "error", err)
		}
		writeError(w, mapErrorToHTTPStatus(err), "could not update finding status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}
