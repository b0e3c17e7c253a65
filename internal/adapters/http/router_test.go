package httpadapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
	"github.com/auditops/findings-assistant/internal/core/usecase"
)

type fakeStore struct {
	queryFn      func(q ports.FindingQuery) ([]domain.Finding, error)
	byID         map[string]domain.Finding
	created      []domain.Finding
	createErr    error
	statusUpdate map[string]domain.FindingStatus
	updateErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:         make(map[string]domain.Finding),
		statusUpdate: make(map[string]domain.FindingStatus),
	}
}

func (s *fakeStore) Query(_ context.Context, q ports.FindingQuery) ([]domain.Finding, error) {
	if s.queryFn != nil {
		return s.queryFn(q)
	}
	return nil, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Finding, error) {
	f, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrFindingNotFound
	}
	return &f, nil
}

func (s *fakeStore) Create(_ context.Context, finding *domain.Finding) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *finding)
	return nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status domain.FindingStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.statusUpdate[id] = status
	return nil
}

type fakeGenerator struct {
	answer string
}

func (g *fakeGenerator) GenerateAnalysis(context.Context, string, []domain.ChatMessage, []domain.ScoredFinding) (string, error) {
	return g.answer, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) { return nil, nil }
func (fakeEmbedder) Available() bool                                      { return false }

type fakeSink struct{}

func (fakeSink) PublishQueryMetadata(context.Context, domain.QueryMetadata) error { return nil }

func newTestRouter(t *testing.T, store *fakeStore, cfg Config) *Router {
	t.Helper()

	vocab := domain.DefaultVocabulary()
	registry, err := usecase.NewDefaultRegistry(vocab)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	logger := slog.Default()

	queryUC := usecase.NewQueryRouterUseCase(
		registry,
		usecase.NewClassifier(vocab),
		usecase.NewQueryExecutor(store, vocab, 0, logger),
		usecase.NewRetrievalEngine(fakeEmbedder{}, usecase.NewEmbeddingCache(), usecase.RetrievalConfig{}, logger),
		&fakeGenerator{answer: "analysis"},
		fakeSink{},
		logger,
		usecase.RouterConfig{},
	)
	return NewRouter(queryUC, store, nil, logger, cfg)
}
