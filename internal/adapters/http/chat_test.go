package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
)

func postJSONRequest(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryEndpointRoutesPatternQuery(t *testing.T) {
	store := newFakeStore()
	store.queryFn = func(ports.FindingQuery) ([]domain.Finding, error) {
		return []domain.Finding{{
			ID:        "f1",
			Title:     "Unapproved variations",
			Severity:  domain.SeverityCritical,
			Status:    domain.StatusOpen,
			Year:      2024,
			RiskScore: 9.1,
			CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}}, nil
	}
	handler := newTestRouter(t, store, Config{}).Handler()

	res := postJSONRequest(t, handler, "/v1/chat/query",
		`{"question": "Show me all critical findings from 2024"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}

	var resp domain.QueryResponse
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success variant, got error %+v", resp.Error)
	}
	if resp.Metadata.QueryType != "pattern" {
		t.Errorf("query_type = %q, want pattern", resp.Metadata.QueryType)
	}
	if len(resp.Findings) != 1 || resp.Findings[0].ID != "f1" {
		t.Errorf("findings = %+v", resp.Findings)
	}
}

func TestQueryEndpointKeepsErrorsInEnvelope(t *testing.T) {
	store := newFakeStore()
	store.queryFn = func(ports.FindingQuery) ([]domain.Finding, error) {
		return nil, domain.WrapError(domain.ErrUnavailable, "query findings", domain.ErrUnavailable)
	}
	handler := newTestRouter(t, store, Config{}).Handler()

	res := postJSONRequest(t, handler, "/v1/chat/query",
		`{"question": "Show me all critical findings from 2024"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("routed queries always answer 200, got %d", res.Code)
	}

	var resp domain.QueryResponse
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error == nil {
		t.Fatalf("expected error variant, got %+v", resp)
	}
	if resp.Error.Code != domain.ErrCodeDatabase {
		t.Errorf("error code = %q, want %q", resp.Error.Code, domain.ErrCodeDatabase)
	}
	if resp.Error.Suggestion == "" {
		t.Errorf("error variant must carry a suggestion")
	}
}

func TestQueryEndpointRejectsEmptyQuestion(t *testing.T) {
	handler := newTestRouter(t, newFakeStore(), Config{}).Handler()

	res := postJSONRequest(t, handler, "/v1/chat/query", `{"question": "   "}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestQueryEndpointRejectsInvalidJSON(t *testing.T) {
	handler := newTestRouter(t, newFakeStore(), Config{}).Handler()

	res := postJSONRequest(t, handler, "/v1/chat/query", `not json`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestQueryEndpointMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(t, newFakeStore(), Config{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/query", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", res.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(t, newFakeStore(), Config{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Errorf("expected request id header on every response")
	}
}
