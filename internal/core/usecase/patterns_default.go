package usecase

import (
	"regexp"
	"strconv"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

// DefaultPatterns returns the built-in fast-path rules, ordered here by
// descending priority for readability. All builders are pure: they depend only
// on the extracted params and the immutable vocabulary.
func DefaultPatterns(vocab *domain.Vocabulary) []*domain.QueryPattern {
	riskDesc := func(map[string]string) []domain.SortClause {
		return []domain.SortClause{{Field: "risk_score", Desc: true}}
	}

	return []*domain.QueryPattern{
		{
			ID:       "severity-year",
			Name:     "Findings by severity and year",
			Priority: 90,
			Regexp: regexp.MustCompile(
				`(?i)^(?:show|list|display|get)\s+(?:me\s+)?(?:all\s+)?(critical|high|medium|low)(?:\s+risk)?\s+findings\s+(?:from|in|for)\s+((?:19|20)\d{2})\s*\.?$`),
			Extractors: []domain.ParameterExtractor{
				{Name: "severity", Group: 1, Normalize: domain.NormalizeTitle},
				{Name: "year", Group: 2, Normalize: domain.NormalizeTrim},
			},
			Examples: []string{"Show me all critical findings from 2024"},
			BuildFilters: func(params map[string]string) []domain.FilterClause {
				year, _ := strconv.Atoi(params["year"])
				return []domain.FilterClause{
					{Field: "severity", Op: domain.OpEq, Value: params["severity"]},
					{Field: "year", Op: domain.OpEq, Value: year},
				}
			},
			BuildSorts: riskDesc,
		},
		{
			ID:       "status-place",
			Name:     "Findings by status and department or project type",
			Priority: 75,
			Regexp: regexp.MustCompile(
				`(?i)^(?:show|list|display|get)\s+(?:me\s+)?(?:all\s+)?(open|closed|in\s+progress)\s+findings\s+(?:in|for|from)\s+([A-Za-z]+(?:\s[A-Za-z]+)?)\s*\.?$`),
			Extractors: []domain.ParameterExtractor{
				{Name: "status", Group: 1, Normalize: domain.NormalizeLower},
				{Name: "place", Group: 2, Normalize: domain.NormalizeTrim},
			},
			Examples: []string{"List all open findings in Finance"},
			BuildFilters: func(params map[string]string) []domain.FilterClause {
				filters := make([]domain.FilterClause, 0, 2)
				if status, ok := vocab.StatusFor(params["status"]); ok {
					filters = append(filters, domain.FilterClause{Field: "status", Op: domain.OpEq, Value: string(status)})
				}
				filters = append(filters, placeFilter(vocab, params["place"]))
				return filters
			},
			BuildSorts: riskDesc,
		},
		{
			ID:       "year-only",
			Name:     "Findings by year",
			Priority: 70,
			Regexp: regexp.MustCompile(
				`(?i)^(?:show|list|display|get)\s+(?:me\s+)?(?:all\s+)?findings\s+(?:from|in|for)\s+((?:19|20)\d{2})\s*\.?$`),
			Extractors: []domain.ParameterExtractor{
				{Name: "year", Group: 1, Normalize: domain.NormalizeTrim},
			},
			Examples: []string{"Show findings from 2023"},
			BuildFilters: func(params map[string]string) []domain.FilterClause {
				year, _ := strconv.Atoi(params["year"])
				return []domain.FilterClause{{Field: "year", Op: domain.OpEq, Value: year}}
			},
			BuildSorts: riskDesc,
		},
		{
			ID:       "risk-threshold",
			Name:     "Findings by risk score threshold",
			Priority: 65,
			Regexp: regexp.MustCompile(
				`(?i)^(?:show|list|display|get)\s+(?:me\s+)?(?:all\s+)?findings\s+with\s+risk\s+score\s+(above|over|below|under)\s+(\d+(?:\.\d+)?)\s*\.?$`),
			Extractors: []domain.ParameterExtractor{
				{Name: "direction", Group: 1, Normalize: domain.NormalizeLower},
				{Name: "threshold", Group: 2, Normalize: domain.NormalizeTrim},
			},
			Examples: []string{"Show findings with risk score above 8"},
			BuildFilters: func(params map[string]string) []domain.FilterClause {
				threshold, _ := strconv.ParseFloat(params["threshold"], 64)
				op := domain.OpGt
				if params["direction"] == "below" || params["direction"] == "under" {
					op = domain.OpLt
				}
				return []domain.FilterClause{{Field: "risk_score", Op: op, Value: threshold}}
			},
			BuildSorts: riskDesc,
		},
		{
			ID:       "severity-only",
			Name:     "Findings by severity",
			Priority: 60,
			Regexp: regexp.MustCompile(
				`(?i)^(?:show|list|display|get)\s+(?:me\s+)?(?:all\s+)?(critical|high|medium|low)(?:\s+risk)?\s+findings\s*\.?$`),
			Extractors: []domain.ParameterExtractor{
				{Name: "severity", Group: 1, Normalize: domain.NormalizeTitle},
			},
			Examples: []string{"List all critical findings"},
			BuildFilters: func(params map[string]string) []domain.FilterClause {
				return []domain.FilterClause{{Field: "severity", Op: domain.OpEq, Value: params["severity"]}}
			},
			BuildSorts: riskDesc,
		},
		{
			ID:       "recent",
			Name:     "Most recent findings",
			Priority: 50,
			Regexp: regexp.MustCompile(
				`(?i)^(?:show|list|display|get)\s+(?:me\s+)?(?:the\s+)?(?:most\s+)?(?:recent|latest|newest)\s+findings\s*\.?$`),
			Examples: []string{"Show me the latest findings"},
			BuildFilters: func(map[string]string) []domain.FilterClause {
				return nil
			},
			BuildSorts: func(map[string]string) []domain.SortClause {
				return []domain.SortClause{{Field: "created_at", Desc: true}}
			},
		},
		{
			ID:       "department-findings",
			Name:     "Findings for a department",
			Priority: 40,
			Regexp: regexp.MustCompile(
				`(?i)^([A-Za-z]+(?:\s[A-Za-z]+)?)\s+findings\s*\.?$`),
			Extractors: []domain.ParameterExtractor{
				{Name: "place", Group: 1, Normalize: domain.NormalizeTrim},
			},
			Examples: []string{"Keuangan findings"},
			BuildFilters: func(params map[string]string) []domain.FilterClause {
				return []domain.FilterClause{placeFilter(vocab, params["place"])}
			},
			BuildSorts: riskDesc,
		},
	}
}

// placeFilter decides whether a captured location-ish token is a known project
// type, a known department spelling, or a raw department name.
func placeFilter(vocab *domain.Vocabulary, place string) domain.FilterClause {
	if pt, ok := vocab.ProjectTypeFor(place); ok {
		return domain.FilterClause{Field: "project_type", Op: domain.OpEq, Value: pt}
	}
	if canonical, ok := vocab.CanonicalDepartment(place); ok {
		return domain.FilterClause{Field: "department", Op: domain.OpEq, Value: canonical}
	}
	return domain.FilterClause{Field: "department", Op: domain.OpEq, Value: place}
}

// NewDefaultRegistry registers the built-in pattern set and seals the
// registry.
func NewDefaultRegistry(vocab *domain.Vocabulary) (*PatternRegistry, error) {
	registry := NewPatternRegistry()
	for _, p := range DefaultPatterns(vocab) {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Seal()
	return registry, nil
}
