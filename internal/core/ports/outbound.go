package ports

import (
	"context"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

// FindingQuery is the structured-query form the record store understands:
// field filters, sort specifications, and a limit. The store requires that a
// query containing an inequality filter sorts first by that same field; the
// executor enforces this before calling Query.
type FindingQuery struct {
	Filters []domain.FilterClause
	Sorts   []domain.SortClause
	Limit   int
}

// FindingStore is the structured record store collaborator. It is consumed
// with no transactional assumptions across calls: the executor may issue
// several independent queries and merge the results itself.
type FindingStore interface {
	Query(ctx context.Context, q FindingQuery) ([]domain.Finding, error)
	GetByID(ctx context.Context, id string) (*domain.Finding, error)
	Create(ctx context.Context, finding *domain.Finding) error
	UpdateStatus(ctx context.Context, id string, status domain.FindingStatus) error
}

// AnswerGenerator is the generative-AI text completion collaborator. Failures
// (auth, quota, timeout) surface as a single opaque error category.
type AnswerGenerator interface {
	GenerateAnalysis(ctx context.Context, question string, history []domain.ChatMessage, contextFindings []domain.ScoredFinding) (string, error)
}

// Embedder is the optional embedding collaborator. Available is consulted once
// per retrieval call; when it reports false every strategy decision downgrades
// to keyword scoring.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Available() bool
}

// AuditSink receives per-query metadata. Calls are fire-and-forget: a sink
// failure must never fail the user-facing response.
type AuditSink interface {
	PublishQueryMetadata(ctx context.Context, meta domain.QueryMetadata) error
}
