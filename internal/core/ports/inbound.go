package ports

import (
	"context"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

// QueryRouter is the inbound contract for natural-language finding queries.
// Route never returns an error: every failure is folded into the response's
// error variant.
type QueryRouter interface {
	Route(ctx context.Context, req domain.QueryRequest) domain.QueryResponse
}
