package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
)

// EmbeddingCache memoizes finding embeddings by record id. Values are
// deterministic for a given record, so concurrent insertion of the same key is
// last-write-wins. Clear never disturbs in-flight reads: they finish against
// the map they already resolved.
type EmbeddingCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{vectors: make(map[string][]float32)}
}

func (c *EmbeddingCache) Get(id string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vectors[id]
	return v, ok
}

func (c *EmbeddingCache) Put(id string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	c.mu.Lock()
	c.vectors[id] = vector
	c.mu.Unlock()
}

func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Clear is an administrative reset; the corpus is bounded so there is no
// steady-state eviction.
func (c *EmbeddingCache) Clear() {
	c.mu.Lock()
	c.vectors = make(map[string][]float32)
	c.mu.Unlock()
}

type RetrievalConfig struct {
	KeywordWeight     float64
	SemanticWeight    float64
	MinSimilarity     float64
	MinHybridScore    float64
	EmbedFanout       int
	DefaultMaxResults int
	DefaultMaxTokens  int
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		KeywordWeight:     0.5,
		SemanticWeight:    0.5,
		MinSimilarity:     0.3,
		MinHybridScore:    0.15,
		EmbedFanout:       4,
		DefaultMaxResults: 10,
		DefaultMaxTokens:  3000,
	}
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	def := DefaultRetrievalConfig()
	out := c
	if out.KeywordWeight <= 0 && out.SemanticWeight <= 0 {
		out.KeywordWeight = def.KeywordWeight
		out.SemanticWeight = def.SemanticWeight
	}
	if out.MinSimilarity <= 0 {
		out.MinSimilarity = def.MinSimilarity
	}
	if out.MinHybridScore <= 0 {
		out.MinHybridScore = def.MinHybridScore
	}
	if out.EmbedFanout <= 0 {
		out.EmbedFanout = def.EmbedFanout
	}
	if out.DefaultMaxResults <= 0 {
		out.DefaultMaxResults = def.DefaultMaxResults
	}
	if out.DefaultMaxTokens <= 0 {
		out.DefaultMaxTokens = def.DefaultMaxTokens
	}
	return out
}

// RetrievalEngine selects the findings handed to the AI model, blending
// lexical overlap and embedding similarity under a token budget.
type RetrievalEngine struct {
	embedder ports.Embedder
	cache    *EmbeddingCache
	cfg      RetrievalConfig
	logger   *slog.Logger
}

func NewRetrievalEngine(embedder ports.Embedder, cache *EmbeddingCache, cfg RetrievalConfig, logger *slog.Logger) *RetrievalEngine {
	if cache == nil {
		cache = NewEmbeddingCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalEngine{
		embedder: embedder,
		cache:    cache,
		cfg:      cfg.normalize(),
		logger:   logger,
	}
}

func (e *RetrievalEngine) Cache() *EmbeddingCache {
	return e.cache
}

// SelectContext never fails: an unavailable or erroring embedding backend
// silently downgrades the strategy to keyword scoring.
func (e *RetrievalEngine) SelectContext(
	ctx context.Context,
	query string,
	candidates []domain.Finding,
	intent domain.QueryIntent,
	opts domain.SelectOptions,
) domain.ContextSelection {
	if opts.MaxResults <= 0 {
		opts.MaxResults = e.cfg.DefaultMaxResults
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = e.cfg.DefaultMaxTokens
	}

	strategy := e.chooseStrategy(intent)
	scored := e.score(ctx, strategy, query, candidates, intent)

	sort.SliceStable(scored.results, func(i, j int) bool {
		if scored.results[i].Score != scored.results[j].Score {
			return scored.results[i].Score > scored.results[j].Score
		}
		return scored.results[i].Finding.ID < scored.results[j].Finding.ID
	})

	if len(scored.results) > opts.MaxResults {
		scored.results = scored.results[:opts.MaxResults]
	}

	selected := make([]domain.ScoredFinding, 0, len(scored.results))
	estimated := 0
	truncated := false
	for _, sf := range scored.results {
		cost := estimateFindingTokens(sf.Finding)
		if estimated+cost > opts.MaxTokens {
			truncated = true
			break
		}
		estimated += cost
		selected = append(selected, sf)
	}

	return domain.ContextSelection{
		Results:          selected,
		Strategy:         scored.strategy,
		EstimatedTokens:  estimated,
		AverageRelevance: averageScore(selected),
		Truncated:        truncated,
	}
}

// chooseStrategy consults Available exactly once per call; every downgrade
// path ends at keyword scoring.
func (e *RetrievalEngine) chooseStrategy(intent domain.QueryIntent) domain.RetrievalStrategy {
	if e.embedder == nil || !e.embedder.Available() {
		return domain.StrategyKeyword
	}
	analytical := len(intent.AnalysisKeywords) > 0
	switch {
	case analytical && intent.Filters.HasStructured():
		return domain.StrategyHybrid
	case analytical:
		return domain.StrategySemantic
	default:
		return domain.StrategyKeyword
	}
}

type scoredSet struct {
	results  []domain.ScoredFinding
	strategy domain.RetrievalStrategy
}

func (e *RetrievalEngine) score(
	ctx context.Context,
	strategy domain.RetrievalStrategy,
	query string,
	candidates []domain.Finding,
	intent domain.QueryIntent,
) scoredSet {
	switch strategy {
	case domain.StrategySemantic, domain.StrategyHybrid:
		semantic, ok := e.semanticScores(ctx, query, candidates)
		if !ok {
			return e.keywordSet(query, candidates, intent)
		}
		if strategy == domain.StrategySemantic {
			out := make([]domain.ScoredFinding, 0, len(candidates))
			for i, f := range candidates {
				if semantic[i] < e.cfg.MinSimilarity {
					continue
				}
				out = append(out, domain.ScoredFinding{Finding: f, Score: semantic[i], Reason: domain.ReasonSemantic})
			}
			return scoredSet{results: out, strategy: domain.StrategySemantic}
		}

		queryTokens := retrievalQueryTokens(query, intent)
		out := make([]domain.ScoredFinding, 0, len(candidates))
		for i, f := range candidates {
			kw := tokenOverlap(queryTokens, toTokenSet(findingText(f)))
			sem := semantic[i]
			if sem < 0 {
				sem = 0
			}
			combined := e.cfg.KeywordWeight*kw + e.cfg.SemanticWeight*sem
			if combined < e.cfg.MinHybridScore {
				continue
			}
			out = append(out, domain.ScoredFinding{Finding: f, Score: combined, Reason: domain.ReasonHybrid})
		}
		return scoredSet{results: out, strategy: domain.StrategyHybrid}
	default:
		return e.keywordSet(query, candidates, intent)
	}
}

func (e *RetrievalEngine) keywordSet(query string, candidates []domain.Finding, intent domain.QueryIntent) scoredSet {
	queryTokens := retrievalQueryTokens(query, intent)
	out := make([]domain.ScoredFinding, 0, len(candidates))
	for _, f := range candidates {
		score := tokenOverlap(queryTokens, toTokenSet(findingText(f)))
		if score <= 0 {
			continue
		}
		out = append(out, domain.ScoredFinding{Finding: f, Score: score, Reason: domain.ReasonKeyword})
	}
	return scoredSet{results: out, strategy: domain.StrategyKeyword}
}

// semanticScores returns one cosine similarity per candidate, computing and
// caching embeddings for candidates not seen before. The second return is
// false when the backend failed and the caller should downgrade.
func (e *RetrievalEngine) semanticScores(ctx context.Context, query string, candidates []domain.Finding) ([]float64, bool) {
	queryVector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil || len(queryVector) == 0 {
		e.logger.Warn("embedding backend failed, downgrading to keyword scoring", "error", err)
		return nil, false
	}

	vectors := make([][]float32, len(candidates))
	missing := make([]int, 0, len(candidates))
	for i, f := range candidates {
		if v, ok := e.cache.Get(f.ID); ok {
			vectors[i] = v
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		if !e.embedMissing(ctx, candidates, vectors, missing) {
			return nil, false
		}
	}

	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = cosineSimilarity(queryVector, vectors[i])
	}
	return scores, true
}

// embedMissing computes embeddings for uncached candidates with a bounded
// fan-out, joining before ranking.
func (e *RetrievalEngine) embedMissing(ctx context.Context, candidates []domain.Finding, vectors [][]float32, missing []int) bool {
	sem := make(chan struct{}, e.cfg.EmbedFanout)
	var wg sync.WaitGroup
	var once sync.Once
	ok := true

	for _, idx := range missing {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			vector, err := e.embedder.EmbedQuery(ctx, findingText(candidates[i]))
			if err != nil || len(vector) == 0 {
				once.Do(func() {
					e.logger.Warn("candidate embedding failed", "finding_id", candidates[i].ID, "error", err)
					ok = false
				})
				return
			}
			vectors[i] = vector
			e.cache.Put(candidates[i].ID, vector)
		}(idx)
	}
	wg.Wait()
	return ok
}

func retrievalQueryTokens(query string, intent domain.QueryIntent) map[string]struct{} {
	tokens := toTokenSet(query)
	for _, kw := range intent.Filters.Keywords {
		tokens[strings.ToLower(kw)] = struct{}{}
	}
	for _, kw := range intent.AnalysisKeywords {
		tokens[strings.ToLower(kw)] = struct{}{}
	}
	return tokens
}

func findingText(f domain.Finding) string {
	parts := []string{f.Title, f.Description, f.Recommendation, f.Department, f.ProjectType}
	return strings.Join(parts, " ")
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func averageScore(results []domain.ScoredFinding) float64 {
	if len(results) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}
