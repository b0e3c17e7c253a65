package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

type fakeEmbedder struct {
	mu        sync.Mutex
	available bool
	fail      bool
	calls     int
	vectorFn  func(text string) []float32
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail {
		return nil, errors.New("embedding backend down")
	}
	if e.vectorFn != nil {
		return e.vectorFn(text), nil
	}
	return []float32{1, 0}, nil
}

func (e *fakeEmbedder) Available() bool { return e.available }

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func analyticalIntent(keywords ...string) domain.QueryIntent {
	return domain.QueryIntent{
		Type:             domain.IntentComplex,
		RequiresAI:       true,
		AnalysisKeywords: keywords,
	}
}

func hotelFinding(id, title, description string) domain.Finding {
	f := finding(id, 8.0)
	f.Title = title
	f.Description = description
	f.ProjectType = "Hotel"
	return f
}

func TestSelectContextKeywordWhenEmbedderUnavailable(t *testing.T) {
	embedder := &fakeEmbedder{available: false}
	engine := NewRetrievalEngine(embedder, nil, RetrievalConfig{}, nil)

	unrelated := finding("b", 5.0)
	unrelated.Title = "Warehouse stock variance"
	unrelated.Description = "Cycle counts diverge"
	candidates := []domain.Finding{
		hotelFinding("a", "Hotel housekeeping schedule gaps", "Nightly audit trail incomplete"),
		unrelated,
	}
	selection := engine.SelectContext(context.Background(),
		"analyze hotel housekeeping audit problems",
		candidates, analyticalIntent("analyze"), domain.SelectOptions{})

	if selection.Strategy != domain.StrategyKeyword {
		t.Fatalf("expected keyword strategy, got %s", selection.Strategy)
	}
	if len(selection.Results) != 1 || selection.Results[0].Finding.ID != "a" {
		t.Fatalf("expected the overlapping finding only, got %+v", selection.Results)
	}
	if embedder.callCount() != 0 {
		t.Fatalf("unavailable embedder must not be called, got %d calls", embedder.callCount())
	}
}

func TestSelectContextDowngradesOnEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{available: true, fail: true}
	engine := NewRetrievalEngine(embedder, nil, RetrievalConfig{}, nil)

	candidates := []domain.Finding{
		hotelFinding("a", "Hotel revenue leakage", "Front desk discounts unlogged"),
	}
	selection := engine.SelectContext(context.Background(),
		"explain hotel revenue problems",
		candidates, analyticalIntent("explain"), domain.SelectOptions{})

	if selection.Strategy != domain.StrategyKeyword {
		t.Fatalf("expected silent downgrade to keyword, got %s", selection.Strategy)
	}
	if len(selection.Results) == 0 {
		t.Fatalf("expected keyword scoring to still produce results")
	}
}

func TestSelectContextSemanticFiltersByThreshold(t *testing.T) {
	embedder := &fakeEmbedder{
		available: true,
		vectorFn: func(text string) []float32 {
			if strings.Contains(text, "Opposite") {
				return []float32{-1, 0}
			}
			return []float32{1, 0}
		},
	}
	engine := NewRetrievalEngine(embedder, nil, RetrievalConfig{}, nil)

	candidates := []domain.Finding{
		hotelFinding("near", "Aligned housekeeping finding", "Matches the query direction"),
		hotelFinding("far", "Opposite topic", "Opposite direction entirely"),
	}
	selection := engine.SelectContext(context.Background(),
		"why do housekeeping controls fail",
		candidates, analyticalIntent("why"), domain.SelectOptions{})

	if selection.Strategy != domain.StrategySemantic {
		t.Fatalf("expected semantic strategy, got %s", selection.Strategy)
	}
	if len(selection.Results) != 1 || selection.Results[0].Finding.ID != "near" {
		t.Fatalf("expected only the aligned finding, got %+v", selection.Results)
	}
	if selection.Results[0].Reason != domain.ReasonSemantic {
		t.Fatalf("expected semantic match reason, got %s", selection.Results[0].Reason)
	}
}

func TestSelectContextHybridCombinesScores(t *testing.T) {
	embedder := &fakeEmbedder{available: true}
	engine := NewRetrievalEngine(embedder, nil, RetrievalConfig{}, nil)

	intent := analyticalIntent("trends")
	intent.Type = domain.IntentHybrid
	intent.Filters.ProjectType = "Hotel"

	candidates := []domain.Finding{
		hotelFinding("a", "Hotel maintenance trends", "Recurring elevator downtime"),
	}
	selection := engine.SelectContext(context.Background(),
		"hotel maintenance trends analysis",
		candidates, intent, domain.SelectOptions{})

	if selection.Strategy != domain.StrategyHybrid {
		t.Fatalf("expected hybrid strategy, got %s", selection.Strategy)
	}
	if len(selection.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(selection.Results))
	}
	got := selection.Results[0]
	if got.Reason != domain.ReasonHybrid {
		t.Fatalf("expected hybrid match reason, got %s", got.Reason)
	}
	// Keyword overlap is 3 of 4 query tokens; identical fake vectors give
	// similarity 1.0. Blended at equal weights that is 0.875.
	if math.Abs(got.Score-0.875) > 1e-9 {
		t.Fatalf("unexpected blended score %.3f", got.Score)
	}
}

func TestSelectContextHonorsTokenBudget(t *testing.T) {
	embedder := &fakeEmbedder{available: false}
	engine := NewRetrievalEngine(embedder, nil, RetrievalConfig{}, nil)

	long := strings.Repeat("housekeeping audit checklist control ", 40)
	candidates := []domain.Finding{
		hotelFinding("a", "housekeeping one", long),
		hotelFinding("b", "housekeeping two", long),
		hotelFinding("c", "housekeeping three", long),
	}
	opts := domain.SelectOptions{MaxResults: 10, MaxTokens: estimateFindingTokens(candidates[0]) + 5}
	selection := engine.SelectContext(context.Background(),
		"housekeeping audit", candidates, analyticalIntent("analysis"), opts)

	if len(selection.Results) != 1 {
		t.Fatalf("expected budget to stop after one finding, got %d", len(selection.Results))
	}
	if !selection.Truncated {
		t.Fatalf("expected truncated flag when the budget cuts the list")
	}
	if selection.EstimatedTokens > opts.MaxTokens {
		t.Fatalf("estimated tokens %d exceed budget %d", selection.EstimatedTokens, opts.MaxTokens)
	}
}

func TestSelectContextCapsResultsWithoutTruncatedFlag(t *testing.T) {
	embedder := &fakeEmbedder{available: false}
	engine := NewRetrievalEngine(embedder, nil, RetrievalConfig{}, nil)

	candidates := []domain.Finding{
		hotelFinding("a", "housekeeping one", "short"),
		hotelFinding("b", "housekeeping two", "short"),
		hotelFinding("c", "housekeeping three", "short"),
	}
	opts := domain.SelectOptions{MaxResults: 2, MaxTokens: 10000}
	selection := engine.SelectContext(context.Background(),
		"housekeeping", candidates, analyticalIntent("analysis"), opts)

	if len(selection.Results) != 2 {
		t.Fatalf("expected the result cap to apply, got %d", len(selection.Results))
	}
	if selection.Truncated {
		t.Fatalf("result cap alone must not set the truncated flag")
	}
}

func TestSelectContextCachesCandidateEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{available: true}
	cache := NewEmbeddingCache()
	engine := NewRetrievalEngine(embedder, cache, RetrievalConfig{}, nil)

	candidates := []domain.Finding{
		hotelFinding("a", "housekeeping", "alpha"),
		hotelFinding("b", "housekeeping", "beta"),
	}
	intent := analyticalIntent("analyze")

	engine.SelectContext(context.Background(), "analyze housekeeping", candidates, intent, domain.SelectOptions{})
	first := embedder.callCount()
	// 1 query embedding + 2 candidate embeddings.
	if first != 3 {
		t.Fatalf("expected 3 embedding calls on cold cache, got %d", first)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected both candidates cached, got %d", cache.Len())
	}

	engine.SelectContext(context.Background(), "analyze housekeeping", candidates, intent, domain.SelectOptions{})
	if got := embedder.callCount(); got != first+1 {
		t.Fatalf("expected only the query embedding on warm cache, got %d extra calls", got-first)
	}
}

func TestSelectContextResultsOrderedByScore(t *testing.T) {
	embedder := &fakeEmbedder{available: false}
	engine := NewRetrievalEngine(embedder, nil, RetrievalConfig{}, nil)

	candidates := []domain.Finding{
		hotelFinding("partial", "housekeeping only", "nothing else relevant"),
		hotelFinding("full", "housekeeping audit", "covers the audit query fully"),
	}
	selection := engine.SelectContext(context.Background(),
		"housekeeping audit", candidates, analyticalIntent("analysis"), domain.SelectOptions{})

	if len(selection.Results) != 2 {
		t.Fatalf("expected both findings scored, got %d", len(selection.Results))
	}
	if selection.Results[0].Finding.ID != "full" {
		t.Fatalf("expected the stronger overlap first, got %q", selection.Results[0].Finding.ID)
	}
	if selection.AverageRelevance <= 0 {
		t.Fatalf("expected positive average relevance")
	}
}
