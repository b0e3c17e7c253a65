package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

// Signal weights for intent scoring. Each intent class has its own explicit
// scoring function so individual signals stay unit-testable.
const (
	lookupVerbWeight       = 0.4
	structuredFilterWeight = 0.2
	maxFilterContribution  = 0.6
	analysisHitWeight      = 0.35
	hybridBothBonus        = 0.2
	hybridSignalFloor      = 0.3
	maxExtractedKeywords   = 8
)

var lookupVerbs = map[string]struct{}{
	"show": {}, "list": {}, "display": {}, "find": {}, "get": {},
	"give": {}, "search": {}, "tampilkan": {},
}

var analysisTerms = map[string]struct{}{
	"why": {}, "analyze": {}, "analyse": {}, "analysis": {}, "explain": {},
	"trend": {}, "trends": {}, "pattern": {}, "patterns": {},
	"prioritize": {}, "prioritise": {}, "recommend": {}, "recommendation": {},
	"recommendations": {}, "compare": {}, "comparison": {}, "insight": {},
	"insights": {}, "summarize": {}, "summarise": {}, "assess": {},
	"evaluate": {}, "correlate": {}, "improve": {}, "cause": {}, "causes": {},
}

var classifierStopwords = map[string]struct{}{
	"a": {}, "all": {}, "an": {}, "and": {}, "are": {}, "at": {}, "be": {},
	"by": {}, "do": {}, "for": {}, "from": {}, "have": {}, "how": {},
	"in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {},
	"or": {}, "our": {}, "should": {}, "that": {}, "the": {}, "their": {},
	"there": {}, "this": {}, "to": {}, "us": {}, "we": {}, "what": {},
	"which": {}, "with": {}, "you": {}, "your": {}, "see": {},
	"finding": {}, "findings": {}, "audit": {}, "audits": {}, "temuan": {},
	"risk": {}, "main": {}, "year": {}, "years": {},
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Classifier scores free-text queries against the three intent classes and
// extracts structured filters. It is stateless apart from the shared
// vocabulary, which is immutable after startup.
type Classifier struct {
	vocab *domain.Vocabulary
}

func NewClassifier(vocab *domain.Vocabulary) *Classifier {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	return &Classifier{vocab: vocab}
}

// Classify never fails: unparseable text classifies as simple with confidence
// near zero and empty filters, which downstream becomes a normal empty-result
// response.
func (c *Classifier) Classify(query string) domain.QueryIntent {
	tokens := splitAlphaNumLower(query)
	filters := c.extractFilters(query, tokens)
	analysisKeywords := collectAnalysisKeywords(tokens)
	hasVerb := containsLookupVerb(tokens)

	simpleScore := scoreSimple(hasVerb, filters, analysisKeywords)
	complexScore := scoreComplex(analysisKeywords)
	hybridScore := scoreHybrid(simpleScore, complexScore)

	intentType := domain.IntentSimple
	confidence := simpleScore
	switch {
	// Comparable simple and complex strength wins for hybrid: the user asked
	// for both a concrete lookup and analysis in one query.
	case hybridScore >= simpleScore && hybridScore >= complexScore && hybridScore > 0:
		intentType = domain.IntentHybrid
		confidence = hybridScore
	case complexScore > simpleScore:
		intentType = domain.IntentComplex
		confidence = complexScore
	}

	return domain.QueryIntent{
		Type:             intentType,
		Confidence:       clamp01(confidence),
		RequiresAI:       intentType != domain.IntentSimple,
		Filters:          filters,
		AnalysisKeywords: analysisKeywords,
	}
}

func scoreSimple(hasVerb bool, filters domain.ExtractedFilters, analysisKeywords []string) float64 {
	score := 0.0
	if hasVerb {
		score += lookupVerbWeight
	}
	filterBoost := float64(countStructuredFilters(filters)) * structuredFilterWeight
	if filterBoost > maxFilterContribution {
		filterBoost = maxFilterContribution
	}
	score += filterBoost
	if len(analysisKeywords) > 0 {
		// Analytical language weakens the direct-lookup reading.
		score -= analysisHitWeight / 2
	}
	if score < 0 {
		score = 0
	}
	return clamp01(score)
}

func scoreComplex(analysisKeywords []string) float64 {
	return clamp01(float64(len(analysisKeywords)) * analysisHitWeight)
}

// scoreHybrid rewards queries where both signal sets clear the floor: a bare
// filter mention inside an analytical question is not enough to go hybrid.
func scoreHybrid(simpleScore, complexScore float64) float64 {
	base := simpleScore
	if complexScore < base {
		base = complexScore
	}
	if simpleScore >= hybridSignalFloor && complexScore >= hybridSignalFloor {
		base += hybridBothBonus
	}
	return clamp01(base)
}

func countStructuredFilters(f domain.ExtractedFilters) int {
	n := 0
	if f.Year != 0 {
		n++
	}
	if len(f.Severities) > 0 {
		n++
	}
	if len(f.Statuses) > 0 {
		n++
	}
	if f.ProjectType != "" {
		n++
	}
	if f.Department != "" {
		n++
	}
	return n
}

func containsLookupVerb(tokens []string) bool {
	for _, token := range tokens {
		if _, ok := lookupVerbs[token]; ok {
			return true
		}
	}
	return false
}

func collectAnalysisKeywords(tokens []string) []string {
	out := make([]string, 0, 4)
	seen := make(map[string]struct{}, 4)
	for _, token := range tokens {
		if _, ok := analysisTerms[token]; !ok {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

func (c *Classifier) extractFilters(query string, tokens []string) domain.ExtractedFilters {
	var filters domain.ExtractedFilters
	claimed := make(map[string]struct{}, 8)
	lowered := strings.ToLower(query)

	if m := yearPattern.FindString(query); m != "" {
		if year, err := strconv.Atoi(m); err == nil {
			filters.Year = year
			claimed[m] = struct{}{}
		}
	}

	filters.Severities = c.extractSeverities(lowered, tokens, claimed)
	filters.Statuses = c.extractStatuses(lowered, tokens, claimed)

	for _, token := range tokens {
		if filters.ProjectType == "" {
			if pt, ok := c.vocab.ProjectTypeFor(token); ok {
				filters.ProjectType = pt
				claimed[token] = struct{}{}
				continue
			}
		}
	}

	filters.Department = c.extractDepartment(lowered, tokens, claimed)
	filters.Keywords = collectKeywords(tokens, claimed)
	return filters
}

func (c *Classifier) extractSeverities(lowered string, tokens []string, claimed map[string]struct{}) []domain.Severity {
	found := make(map[domain.Severity]struct{}, 2)
	// Two-word synonyms ("high risk") before single tokens, so "risk" does
	// not leak into keywords.
	for _, phrase := range []string{"high risk", "low risk"} {
		if strings.Contains(lowered, phrase) {
			if s, ok := c.vocab.SeverityFor(phrase); ok {
				found[s] = struct{}{}
				for _, w := range strings.Fields(phrase) {
					claimed[w] = struct{}{}
				}
			}
		}
	}
	for _, token := range tokens {
		if s, ok := c.vocab.SeverityFor(token); ok {
			found[s] = struct{}{}
			claimed[token] = struct{}{}
		}
	}
	return orderedSeverities(found)
}

func (c *Classifier) extractStatuses(lowered string, tokens []string, claimed map[string]struct{}) []domain.FindingStatus {
	found := make(map[domain.FindingStatus]struct{}, 2)
	if strings.Contains(lowered, "in progress") {
		found[domain.StatusInProgress] = struct{}{}
		claimed["progress"] = struct{}{}
	}
	for _, token := range tokens {
		if s, ok := c.vocab.StatusFor(token); ok {
			found[s] = struct{}{}
			claimed[token] = struct{}{}
		}
	}
	out := make([]domain.FindingStatus, 0, len(found))
	for _, s := range []domain.FindingStatus{domain.StatusOpen, domain.StatusInProgress, domain.StatusClosed} {
		if _, ok := found[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Classifier) extractDepartment(lowered string, tokens []string, claimed map[string]struct{}) string {
	for _, entry := range c.vocab.Departments {
		names := append([]string{entry.Canonical}, entry.Variants...)
		for _, name := range names {
			nameLower := strings.ToLower(name)
			if strings.Contains(nameLower, " ") {
				if strings.Contains(lowered, nameLower) {
					for _, w := range strings.Fields(nameLower) {
						claimed[w] = struct{}{}
					}
					return entry.Canonical
				}
				continue
			}
			for _, token := range tokens {
				if token == nameLower {
					claimed[token] = struct{}{}
					return entry.Canonical
				}
			}
		}
	}
	return ""
}

func collectKeywords(tokens []string, claimed map[string]struct{}) []string {
	out := make([]string, 0, maxExtractedKeywords)
	seen := make(map[string]struct{}, maxExtractedKeywords)
	for _, token := range tokens {
		if len(out) >= maxExtractedKeywords {
			break
		}
		if len(token) < 3 {
			continue
		}
		if _, ok := claimed[token]; ok {
			continue
		}
		if _, ok := classifierStopwords[token]; ok {
			continue
		}
		if _, ok := lookupVerbs[token]; ok {
			continue
		}
		if _, ok := analysisTerms[token]; ok {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

func orderedSeverities(found map[domain.Severity]struct{}) []domain.Severity {
	order := []domain.Severity{
		domain.SeverityCritical, domain.SeverityHigh,
		domain.SeverityMedium, domain.SeverityLow,
	}
	out := make([]domain.Severity, 0, len(found))
	for _, s := range order {
		if _, ok := found[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
