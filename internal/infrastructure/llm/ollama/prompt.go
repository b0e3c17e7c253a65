package ollama

import (
	"fmt"
	"strings"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

const maxHistoryMessages = 6

func buildAnalysisPrompt(question string, history []domain.ChatMessage, findings []domain.ScoredFinding) string {
	var context strings.Builder
	for idx, sf := range findings {
		f := sf.Finding
		context.WriteString(fmt.Sprintf(
			"[%d] severity=%s status=%s department=%s project=%s year=%d risk=%.1f\nTitle: %s\n%s\n",
			idx+1, f.Severity, f.Status, f.Department, f.ProjectType, f.Year, f.RiskScore,
			f.Title, f.Description,
		))
		if f.Recommendation != "" {
			context.WriteString("Recommendation: " + f.Recommendation + "\n")
		}
		context.WriteString("\n")
	}

	var conversation strings.Builder
	start := 0
	if len(history) > maxHistoryMessages {
		start = len(history) - maxHistoryMessages
	}
	for _, msg := range history[start:] {
		conversation.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}

	var b strings.Builder
	b.WriteString(`You are an internal audit analyst. Answer the question using only the audit findings below.
State trends, root causes, and priorities concretely. If the findings are insufficient, say so directly.
`)
	if conversation.Len() > 0 {
		b.WriteString("\nConversation so far:\n")
		b.WriteString(conversation.String())
	}
	b.WriteString("\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nAudit findings:\n")
	if context.Len() == 0 {
		b.WriteString("(none matched)\n")
	} else {
		b.WriteString(context.String())
	}
	return b.String()
}
