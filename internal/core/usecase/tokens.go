package usecase

import (
	"strings"
	"unicode"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func tokenOverlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := doc[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

// estimateFindingTokens approximates the prompt cost of one finding with a
// chars/4 heuristic plus a small fixed overhead for formatting. It is not a
// real tokenizer; it only needs to be monotonic in text length.
func estimateFindingTokens(f domain.Finding) int {
	chars := len(f.Title) + len(f.Description) + len(f.Recommendation) +
		len(f.Department) + len(f.ProjectType)
	return chars/4 + 12
}
