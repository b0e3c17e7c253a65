package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/infrastructure/resilience"
)

const (
	systemPrompt = `You are an internal audit analyst. Answer questions using only the audit findings supplied in the user message.
State trends, root causes, and priorities concretely. If the findings are insufficient, say so directly.`

	maxHistoryMessages = 6
)

type Client struct {
	api        *openai.Client
	genModel   string
	embedModel string
	exec       *resilience.Executor
}

func New(apiKey, baseURL, genModel, embedModel string, exec *resilience.Executor) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig(), nil)
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		genModel:   genModel,
		embedModel: embedModel,
		exec:       exec,
	}
}

// Generator answers analytical questions through the chat completion API.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnalysis(ctx context.Context, question string, history []domain.ChatMessage, contextFindings []domain.ScoredFinding) (string, error) {
	messages := buildChatMessages(question, history, contextFindings)

	var answer string
	err := g.client.exec.Execute(ctx, "openai.chat", func(ctx context.Context) error {
		resp, err := g.client.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    g.client.genModel,
			Messages: messages,
		})
		if err != nil {
			return fmt.Errorf("create chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion returned no choices")
		}
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate analysis", err)
	}
	if answer == "" {
		return "", fmt.Errorf("empty completion result")
	}
	return answer, nil
}

// Embedder embeds query text through the embeddings API. Disabled instances
// report unavailable so retrieval stays on keyword scoring.
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
	var vector []float32
	err := e.client.exec.Execute(ctx, "openai.embed", func(ctx context.Context) error {
		resp, err := e.client.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.client.embedModel),
			Input: []string{text},
		})
		if err != nil {
			return fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embeddings response has no data")
		}
		vector = resp.Data[0].Embedding
		return nil
	}, classifyOpenAIError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed query", err)
	}
	return vector, nil
}

func buildChatMessages(question string, history []domain.ChatMessage, findings []domain.ScoredFinding) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}

	start := 0
	if len(history) > maxHistoryMessages {
		start = len(history) - maxHistoryMessages
	}
	for _, msg := range history[start:] {
		role := openai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nAudit findings:\n")
	if len(findings) == 0 {
		b.WriteString("(none matched)\n")
	}
	for idx, sf := range findings {
		f := sf.Finding
		b.WriteString(fmt.Sprintf(
			"[%d] severity=%s status=%s department=%s project=%s year=%d risk=%.1f\nTitle: %s\n%s\n",
			idx+1, f.Severity, f.Status, f.Department, f.ProjectType, f.Year, f.RiskScore,
			f.Title, f.Description,
		))
		if f.Recommendation != "" {
			b.WriteString("Recommendation: " + f.Recommendation + "\n")
		}
		b.WriteString("\n")
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: b.String(),
	})
}
