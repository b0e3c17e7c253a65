package usecase

import (
	"regexp"
	"strings"
	"testing"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

func testPattern(id string, priority int, expr string) *domain.QueryPattern {
	return &domain.QueryPattern{
		ID:       id,
		Name:     id,
		Priority: priority,
		Regexp:   regexp.MustCompile(expr),
		BuildFilters: func(map[string]string) []domain.FilterClause {
			return nil
		},
		BuildSorts: func(map[string]string) []domain.SortClause {
			return nil
		},
	}
}

func TestRegistryMatchesHighestPriorityFirst(t *testing.T) {
	registry := NewPatternRegistry()
	// Registered low priority first on purpose; matching must still prefer
	// the higher one.
	if err := registry.Register(testPattern("low", 10, `(?i)^ping`)); err != nil {
		t.Fatalf("register low: %v", err)
	}
	if err := registry.Register(testPattern("high", 20, `(?i)^ping pong`)); err != nil {
		t.Fatalf("register high: %v", err)
	}

	match := registry.Match("ping pong")
	if !match.Matched {
		t.Fatalf("expected a match")
	}
	if match.Pattern.ID != "high" {
		t.Fatalf("expected pattern %q to win, got %q", "high", match.Pattern.ID)
	}
}

func TestRegistryEqualPriorityKeepsRegistrationOrder(t *testing.T) {
	registry := NewPatternRegistry()
	if err := registry.Register(testPattern("first", 30, `(?i)^status`)); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if err := registry.Register(testPattern("second", 30, `(?i)^status report`)); err != nil {
		t.Fatalf("register second: %v", err)
	}

	match := registry.Match("status report")
	if !match.Matched || match.Pattern.ID != "first" {
		t.Fatalf("expected registration order to break the tie, got %+v", match)
	}
}

func TestRegistryRejectsMalformedPatterns(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(p *domain.QueryPattern)
		message string
	}{
		{"empty id", func(p *domain.QueryPattern) { p.ID = " " }, "id is empty"},
		{"nil regexp", func(p *domain.QueryPattern) { p.Regexp = nil }, "regexp is nil"},
		{"nil filter builder", func(p *domain.QueryPattern) { p.BuildFilters = nil }, "filter builder is nil"},
		{"bad group index", func(p *domain.QueryPattern) {
			p.Extractors = []domain.ParameterExtractor{{Name: "x", Group: 3}}
		}, "references group 3"},
		{"stale example", func(p *domain.QueryPattern) {
			p.Examples = []string{"completely different text"}
		}, "does not match its own regex"},
	}

	for _, tc := range cases {
		registry := NewPatternRegistry()
		p := testPattern("probe", 10, `(?i)^hello (\w+)$`)
		tc.mutate(p)
		err := registry.Register(p)
		if err == nil {
			t.Fatalf("%s: expected registration to fail", tc.name)
		}
		if !domain.IsKind(err, domain.ErrInvalidPattern) {
			t.Fatalf("%s: expected invalid-pattern kind, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.message) {
			t.Fatalf("%s: expected message containing %q, got %v", tc.name, tc.message, err)
		}
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	registry := NewPatternRegistry()
	if err := registry.Register(testPattern("dup", 10, `^a$`)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	err := registry.Register(testPattern("dup", 20, `^b$`))
	if err == nil || !strings.Contains(err.Error(), "duplicate pattern id") {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
}

func TestRegistryRejectsOverlapNamingBothPatterns(t *testing.T) {
	registry := NewPatternRegistry()
	first := testPattern("broad", 10, `(?i)^show .+$`)
	first.Examples = []string{"show everything"}
	if err := registry.Register(first); err != nil {
		t.Fatalf("register broad: %v", err)
	}

	second := testPattern("narrow", 20, `(?i)^show reports$`)
	second.Examples = []string{"show reports"}
	err := registry.Register(second)
	if err == nil {
		t.Fatalf("expected overlap rejection")
	}
	if !strings.Contains(err.Error(), "broad") || !strings.Contains(err.Error(), "narrow") {
		t.Fatalf("expected both pattern ids in the error, got %v", err)
	}
}

func TestRegistryRejectsRegistrationAfterSeal(t *testing.T) {
	registry := NewPatternRegistry()
	registry.Seal()
	err := registry.Register(testPattern("late", 10, `^x$`))
	if err == nil || !strings.Contains(err.Error(), "sealed") {
		t.Fatalf("expected sealed rejection, got %v", err)
	}
}

func TestMatchExtractionIsDeterministic(t *testing.T) {
	registry, err := NewDefaultRegistry(domain.DefaultVocabulary())
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}

	first := registry.Match("Show me all critical findings from 2024")
	second := registry.Match("Show me all critical findings from 2024")

	if !first.Matched || !second.Matched {
		t.Fatalf("expected both runs to match")
	}
	if first.Pattern.ID != second.Pattern.ID {
		t.Fatalf("pattern differed across runs: %q vs %q", first.Pattern.ID, second.Pattern.ID)
	}
	if len(first.Params) != len(second.Params) {
		t.Fatalf("param count differed: %v vs %v", first.Params, second.Params)
	}
	for k, v := range first.Params {
		if second.Params[k] != v {
			t.Fatalf("param %q differed: %q vs %q", k, v, second.Params[k])
		}
	}
}

func TestDefaultRegistrySeverityYear(t *testing.T) {
	registry, err := NewDefaultRegistry(domain.DefaultVocabulary())
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}

	match := registry.Match("Show me all critical findings from 2024")
	if !match.Matched {
		t.Fatalf("expected a fast-path match")
	}
	if match.Pattern.ID != "severity-year" {
		t.Fatalf("expected severity-year, got %q", match.Pattern.ID)
	}
	if match.Params["severity"] != "Critical" || match.Params["year"] != "2024" {
		t.Fatalf("unexpected params: %v", match.Params)
	}
	if match.Confidence <= 0.7 {
		t.Fatalf("expected high confidence, got %.2f", match.Confidence)
	}

	filters := match.Pattern.BuildFilters(match.Params)
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %v", filters)
	}
	if filters[0].Field != "severity" || filters[0].Value != "Critical" {
		t.Fatalf("unexpected severity filter: %+v", filters[0])
	}
	if filters[1].Field != "year" || filters[1].Value != 2024 {
		t.Fatalf("unexpected year filter: %+v", filters[1])
	}
}

func TestDefaultRegistryRiskThresholdBuildsInequality(t *testing.T) {
	registry, err := NewDefaultRegistry(domain.DefaultVocabulary())
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}

	match := registry.Match("Show findings with risk score above 8")
	if !match.Matched || match.Pattern.ID != "risk-threshold" {
		t.Fatalf("expected risk-threshold match, got %+v", match)
	}
	filters := match.Pattern.BuildFilters(match.Params)
	if len(filters) != 1 || filters[0].Op != domain.OpGt || filters[0].Value != 8.0 {
		t.Fatalf("unexpected filters: %+v", filters)
	}

	match = registry.Match("List findings with risk score below 3")
	if !match.Matched {
		t.Fatalf("expected below variant to match")
	}
	filters = match.Pattern.BuildFilters(match.Params)
	if filters[0].Op != domain.OpLt {
		t.Fatalf("expected less-than op, got %q", filters[0].Op)
	}
}

func TestDefaultRegistryResolvesDepartmentVariantPlace(t *testing.T) {
	registry, err := NewDefaultRegistry(domain.DefaultVocabulary())
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}

	match := registry.Match("Keuangan findings")
	if !match.Matched || match.Pattern.ID != "department-findings" {
		t.Fatalf("expected department-findings match, got %+v", match)
	}
	filters := match.Pattern.BuildFilters(match.Params)
	if len(filters) != 1 || filters[0].Field != "department" || filters[0].Value != "Finance" {
		t.Fatalf("expected canonical Finance filter, got %+v", filters)
	}
}

func TestDefaultRegistryIgnoresAnalyticalQueries(t *testing.T) {
	registry, err := NewDefaultRegistry(domain.DefaultVocabulary())
	if err != nil {
		t.Fatalf("default registry: %v", err)
	}

	queries := []string{
		"What are the main patterns in our hospital audit findings and what should we prioritize?",
		"List all open findings in hotels and explain what trends you see",
		"asdkjhaslkdj",
	}
	for _, q := range queries {
		if match := registry.Match(q); match.Matched {
			t.Fatalf("query %q unexpectedly matched pattern %q", q, match.Pattern.ID)
		}
	}
}
