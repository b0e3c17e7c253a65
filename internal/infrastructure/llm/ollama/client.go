package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, genModel, embedModel string, exec *resilience.Executor) *Client {
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig(), nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

// Generator produces the analytical narrative for complex and hybrid queries.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnalysis(ctx context.Context, question string, history []domain.ChatMessage, contextFindings []domain.ScoredFinding) (string, error) {
	prompt := buildAnalysisPrompt(question, history, contextFindings)

	var answer string
	err := g.client.exec.Execute(ctx, "ollama.generate", func(ctx context.Context) error {
		text, err := g.client.generateText(ctx, prompt)
		if err != nil {
			return err
		}
		answer = text
		return nil
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate analysis", err)
	}
	if answer == "" {
		return "", fmt.Errorf("empty generation result")
	}
	return answer, nil
}

// Embedder exposes the embedding endpoint. When disabled by configuration it
// reports unavailable and the retrieval engine stays on keyword scoring.
type Embedder struct {
	client  *Client
	enabled bool
}

func NewEmbedder(client *Client, enabled bool) *Embedder {
	return &Embedder{client: client, enabled: enabled}
}

func (e *Embedder) Available() bool {
	return e.enabled
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.exec.Execute(ctx, "ollama.embed", func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	}, classifyOllamaError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed query", err)
	}
	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
