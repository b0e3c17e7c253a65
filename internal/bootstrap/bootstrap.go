package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/auditops/findings-assistant/internal/config"
	"github.com/auditops/findings-assistant/internal/core/ports"
	"github.com/auditops/findings-assistant/internal/core/usecase"
	auditnats "github.com/auditops/findings-assistant/internal/infrastructure/audit/nats"
	"github.com/auditops/findings-assistant/internal/infrastructure/llm/ollama"
	openaillm "github.com/auditops/findings-assistant/internal/infrastructure/llm/openai"
	"github.com/auditops/findings-assistant/internal/infrastructure/repository/postgres"
	"github.com/auditops/findings-assistant/internal/infrastructure/resilience"
	"github.com/auditops/findings-assistant/internal/observability/logging"
	"github.com/auditops/findings-assistant/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics

	Store    ports.FindingStore
	RouterUC *usecase.QueryRouterUseCase
	ImportUC *usecase.ImportFindingsUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger("findings-assistant", cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewFindingRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	vocab, err := config.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	var (
		generator ports.AnswerGenerator
		embedder  ports.Embedder
	)
	switch cfg.LLMProvider {
	case "openai":
		client := openaillm.New(cfg.OpenAIAPIKey, "", cfg.OpenAIGenModel, cfg.OpenAIEmbedModel, exec)
		generator = openaillm.NewGenerator(client)
		embedder = openaillm.NewEmbedder(client, cfg.EmbeddingsEnabled)
	default:
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, exec)
		generator = ollama.NewGenerator(client)
		embedder = ollama.NewEmbedder(client, cfg.EmbeddingsEnabled)
	}

	auditSink, err := auditnats.NewWithOptions(cfg.NATSURL, cfg.NATSAuditSubject, auditnats.Options{
		ResilienceExecutor: exec,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init audit sink: %w", err)
	}

	registry, err := usecase.NewDefaultRegistry(vocab)
	if err != nil {
		auditSink.Close()
		_ = db.Close()
		return nil, fmt.Errorf("build pattern registry: %w", err)
	}

	retrieval := usecase.NewRetrievalEngine(embedder, usecase.NewEmbeddingCache(), usecase.RetrievalConfig{
		KeywordWeight:     cfg.RetrievalKeywordWeight,
		SemanticWeight:    cfg.RetrievalSemanticWeight,
		MinSimilarity:     cfg.RetrievalMinSimilarity,
		EmbedFanout:       cfg.RetrievalEmbedFanout,
		DefaultMaxResults: cfg.ContextMaxResults,
		DefaultMaxTokens:  cfg.ContextMaxTokens,
	}, logger)

	routerUC := usecase.NewQueryRouterUseCase(
		registry,
		usecase.NewClassifier(vocab),
		usecase.NewQueryExecutor(repo, vocab, cfg.DefaultResultLimit, logger),
		retrieval,
		generator,
		auditSink,
		logger,
		usecase.RouterConfig{
			FastPathBudget:    time.Duration(cfg.FastPathBudgetMs) * time.Millisecond,
			AuditTimeout:      time.Duration(cfg.AuditTimeoutSeconds) * time.Second,
			CandidateLimit:    cfg.CandidateLimit,
			ContextMaxResults: cfg.ContextMaxResults,
			ContextMaxTokens:  cfg.ContextMaxTokens,
		},
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics.NewHTTPServerMetrics("findings-assistant"),
		Store:    repo,
		RouterUC: routerUC,
		ImportUC: usecase.NewImportFindingsUseCase(repo, vocab, logger),

		closeFn: func() {
			auditSink.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
