package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
)

const (
	queryTypePattern = "pattern"

	noResultsMessage    = "No findings matched your query."
	noResultsSuggestion = "Try a different year, severity, status, or department, or rephrase the question."
)

type RouterConfig struct {
	// FastPathBudget is a latency SLO for pattern-matched execution. Exceeding
	// it is logged, never aborted.
	FastPathBudget time.Duration
	// AuditTimeout bounds the fire-and-forget metadata publish.
	AuditTimeout time.Duration
	// CandidateLimit is the broader fetch used to feed the retrieval engine on
	// complex and hybrid queries.
	CandidateLimit    int
	ContextMaxResults int
	ContextMaxTokens  int
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		FastPathBudget:    500 * time.Millisecond,
		AuditTimeout:      2 * time.Second,
		CandidateLimit:    200,
		ContextMaxResults: 10,
		ContextMaxTokens:  3000,
	}
}

func (c RouterConfig) normalize() RouterConfig {
	def := DefaultRouterConfig()
	if c.FastPathBudget <= 0 {
		c.FastPathBudget = def.FastPathBudget
	}
	if c.AuditTimeout <= 0 {
		c.AuditTimeout = def.AuditTimeout
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = def.CandidateLimit
	}
	if c.ContextMaxResults <= 0 {
		c.ContextMaxResults = def.ContextMaxResults
	}
	if c.ContextMaxTokens <= 0 {
		c.ContextMaxTokens = def.ContextMaxTokens
	}
	return c
}

// QueryRouterUseCase is the top-level entry point for natural-language
// queries. It tries the pattern fast path first, falls back to the classifier
// and executor, and invokes the AI collaborator only for complex and hybrid
// intents. Route is the single place where no error or panic may escape.
type QueryRouterUseCase struct {
	patterns   *PatternRegistry
	classifier *Classifier
	executor   *QueryExecutor
	retrieval  *RetrievalEngine
	generator  ports.AnswerGenerator
	audit      ports.AuditSink
	logger     *slog.Logger
	cfg        RouterConfig
}

func NewQueryRouterUseCase(
	patterns *PatternRegistry,
	classifier *Classifier,
	executor *QueryExecutor,
	retrieval *RetrievalEngine,
	generator ports.AnswerGenerator,
	audit ports.AuditSink,
	logger *slog.Logger,
	cfg RouterConfig,
) *QueryRouterUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryRouterUseCase{
		patterns:   patterns,
		classifier: classifier,
		executor:   executor,
		retrieval:  retrieval,
		generator:  generator,
		audit:      audit,
		logger:     logger,
		cfg:        cfg.normalize(),
	}
}

// Route always resolves to a single QueryResponse; collaborator failures are
// folded into the error variant, partial results are preserved where they
// exist.
func (uc *QueryRouterUseCase) Route(ctx context.Context, req domain.QueryRequest) domain.QueryResponse {
	start := time.Now()

	var resp domain.QueryResponse
	if match := uc.patterns.Match(req.Question); match.Matched {
		resp = uc.routeFastPath(ctx, req, match, start)
	} else {
		resp = uc.routeClassified(ctx, req, start)
	}

	resp.Metadata.ExecutionTimeMs = time.Since(start).Milliseconds()
	uc.publishAudit(ctx, resp)
	return resp
}

// routeFastPath executes a matched pattern's structured query directly. It
// never touches the classifier or the AI collaborator.
func (uc *QueryRouterUseCase) routeFastPath(ctx context.Context, req domain.QueryRequest, match domain.MatchResult, start time.Time) domain.QueryResponse {
	filters := match.Pattern.BuildFilters(match.Params)
	sorts := match.Pattern.BuildSorts(match.Params)

	findings, err := uc.executor.Execute(ctx, filters, sorts, req.Limit)
	if elapsed := time.Since(start); elapsed > uc.cfg.FastPathBudget {
		uc.logger.Warn("fast path exceeded latency budget",
			"pattern", match.Pattern.ID,
			"elapsed_ms", elapsed.Milliseconds(),
			"budget_ms", uc.cfg.FastPathBudget.Milliseconds(),
		)
	}
	if err != nil {
		uc.logger.Error("fast path query failed", "pattern", match.Pattern.ID, "error", err)
		return errorResponse(domain.ErrCodeDatabase, "The findings database could not be queried.",
			"Please try again in a moment.", nil, metadataFor(queryTypePattern, match.Confidence, match.Pattern.ID))
	}

	meta := metadataFor(queryTypePattern, match.Confidence, match.Pattern.ID)
	meta.ResultsCount = len(findings)
	if len(findings) == 0 {
		return noResultsResponse(meta)
	}

	return domain.QueryResponse{
		Success:  true,
		Type:     domain.IntentSimple,
		Answer:   summarizeFindings(findings),
		Findings: findings,
		Metadata: meta,
	}
}

func (uc *QueryRouterUseCase) routeClassified(ctx context.Context, req domain.QueryRequest, start time.Time) domain.QueryResponse {
	intent, err := uc.safeClassify(req.Question)
	if err != nil {
		uc.logger.Error("classifier failed", "error", err)
		return errorResponse(domain.ErrCodeClassification, "The query could not be interpreted.",
			"Rephrase the question and try again.", nil, metadataFor(string(domain.IntentSimple), 0, ""))
	}

	meta := metadataFor(string(intent.Type), intent.Confidence, "")
	filters, sorts := FiltersFromIntent(intent.Filters)

	if intent.Type == domain.IntentSimple {
		findings, execErr := uc.executor.Execute(ctx, filters, sorts, req.Limit)
		if execErr != nil {
			uc.logger.Error("structured query failed", "error", execErr)
			return errorResponse(domain.ErrCodeDatabase, "The findings database could not be queried.",
				"Please try again in a moment.", nil, meta)
		}
		meta.ResultsCount = len(findings)
		if len(findings) == 0 {
			return noResultsResponse(meta)
		}
		return domain.QueryResponse{
			Success:  true,
			Type:     domain.IntentSimple,
			Answer:   summarizeFindings(findings),
			Findings: findings,
			Metadata: meta,
		}
	}

	// Complex and hybrid: a broader structured query feeds the retrieval
	// engine, which selects the context handed to the model.
	candidates, execErr := uc.executor.Execute(ctx, filters, sorts, uc.cfg.CandidateLimit)
	if execErr != nil {
		uc.logger.Error("candidate query failed", "error", execErr)
		return errorResponse(domain.ErrCodeDatabase, "The findings database could not be queried.",
			"Please try again in a moment.", nil, meta)
	}

	selection := uc.retrieval.SelectContext(ctx, req.Question, candidates, intent, domain.SelectOptions{
		MaxResults: uc.cfg.ContextMaxResults,
		MaxTokens:  uc.cfg.ContextMaxTokens,
	})
	meta.FindingsAnalyzed = len(selection.Results)
	meta.RetrievalStrategy = string(selection.Strategy)

	answer, aiErr := uc.generator.GenerateAnalysis(ctx, req.Question, req.History, selection.Results)
	if aiErr != nil {
		uc.logger.Error("ai invocation failed", "intent", intent.Type, "error", aiErr)
		if intent.Type == domain.IntentHybrid && len(candidates) > 0 {
			// The structured half of a hybrid answer is still valuable.
			return errorResponse(domain.ErrCodeAI, "Analysis is unavailable right now; matching findings are attached.",
				"Retry the question later for the analytical part.", trimFindings(candidates, uc.cfg.ContextMaxResults), meta)
		}
		return errorResponse(domain.ErrCodeAI, "The analysis service could not be reached.",
			"Please try again in a moment.", nil, meta)
	}

	resp := domain.QueryResponse{
		Success:  true,
		Type:     intent.Type,
		Answer:   answer,
		Metadata: meta,
	}
	if intent.Type == domain.IntentHybrid {
		resp.Findings = trimFindings(candidates, uc.cfg.ContextMaxResults)
		resp.Metadata.ResultsCount = len(resp.Findings)
	}
	return resp
}

// safeClassify shields Route from classifier bugs: a panic becomes an
// ordinary error handled as CLASSIFICATION_ERROR.
func (uc *QueryRouterUseCase) safeClassify(question string) (intent domain.QueryIntent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return uc.classifier.Classify(question), nil
}

// publishAudit emits query metadata with a short timeout; failures are logged
// and swallowed, never surfaced to the caller.
func (uc *QueryRouterUseCase) publishAudit(ctx context.Context, resp domain.QueryResponse) {
	if uc.audit == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.AuditTimeout)
	defer cancel()

	err := uc.audit.PublishQueryMetadata(auditCtx, domain.QueryMetadata{
		QueryType:       resp.Metadata.QueryType,
		PatternMatched:  resp.Metadata.PatternMatched,
		ExecutionTimeMs: resp.Metadata.ExecutionTimeMs,
		ResultsCount:    resp.Metadata.ResultsCount,
		Confidence:      resp.Metadata.Confidence,
	})
	if err != nil {
		uc.logger.Warn("audit publish failed", "error", err)
	}
}

func metadataFor(queryType string, confidence float64, pattern string) domain.ResponseMetadata {
	return domain.ResponseMetadata{
		QueryType:      queryType,
		Confidence:     confidence,
		PatternMatched: pattern,
	}
}

func errorResponse(code domain.ErrorCode, message, suggestion string, fallback []domain.Finding, meta domain.ResponseMetadata) domain.QueryResponse {
	return domain.QueryResponse{
		Success:  false,
		Metadata: meta,
		Error: &domain.QueryError{
			Code:         code,
			Message:      message,
			Suggestion:   suggestion,
			FallbackData: fallback,
		},
	}
}

func noResultsResponse(meta domain.ResponseMetadata) domain.QueryResponse {
	return domain.QueryResponse{
		Success:  false,
		Metadata: meta,
		Error: &domain.QueryError{
			Code:       domain.ErrCodeNoResults,
			Message:    noResultsMessage,
			Suggestion: noResultsSuggestion,
		},
	}
}

func summarizeFindings(findings []domain.Finding) string {
	critical := 0
	open := 0
	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			critical++
		}
		if f.Status == domain.StatusOpen {
			open++
		}
	}
	return fmt.Sprintf("Found %d findings (%d critical, %d open).", len(findings), critical, open)
}

func trimFindings(findings []domain.Finding, limit int) []domain.Finding {
	if limit <= 0 || len(findings) <= limit {
		return findings
	}
	return findings[:limit]
}
