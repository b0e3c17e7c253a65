package usecase

import (
	"testing"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

func TestClassifySimpleLookupWithFilters(t *testing.T) {
	c := NewClassifier(nil)
	intent := c.Classify("Show me all critical findings from 2024")

	if intent.Type != domain.IntentSimple {
		t.Fatalf("expected simple intent, got %s", intent.Type)
	}
	if intent.RequiresAI {
		t.Fatalf("simple intent must not require AI")
	}
	if intent.Filters.Year != 2024 {
		t.Fatalf("expected year=2024, got %d", intent.Filters.Year)
	}
	if len(intent.Filters.Severities) != 1 || intent.Filters.Severities[0] != domain.SeverityCritical {
		t.Fatalf("expected severity Critical, got %v", intent.Filters.Severities)
	}
	if intent.Confidence < 0.5 {
		t.Fatalf("expected confident classification, got %.2f", intent.Confidence)
	}
}

func TestClassifyComplexAnalyticalQuestion(t *testing.T) {
	c := NewClassifier(nil)
	intent := c.Classify("What are the main patterns in our hospital audit findings and what should we prioritize?")

	if intent.Type != domain.IntentComplex {
		t.Fatalf("expected complex intent, got %s", intent.Type)
	}
	if !intent.RequiresAI {
		t.Fatalf("complex intent must require AI")
	}
	if intent.Filters.ProjectType != "Hospital" {
		t.Fatalf("expected project type Hospital, got %q", intent.Filters.ProjectType)
	}
	if len(intent.AnalysisKeywords) == 0 {
		t.Fatalf("expected analysis keywords to be recorded")
	}
}

func TestClassifyHybridLookupPlusAnalysis(t *testing.T) {
	c := NewClassifier(nil)
	intent := c.Classify("List all open findings in hotels and explain what trends you see")

	if intent.Type != domain.IntentHybrid {
		t.Fatalf("expected hybrid intent, got %s", intent.Type)
	}
	if !intent.RequiresAI {
		t.Fatalf("hybrid intent must require AI")
	}
	if len(intent.Filters.Statuses) != 1 || intent.Filters.Statuses[0] != domain.StatusOpen {
		t.Fatalf("expected status Open, got %v", intent.Filters.Statuses)
	}
	if intent.Filters.ProjectType != "Hotel" {
		t.Fatalf("expected project type Hotel, got %q", intent.Filters.ProjectType)
	}
}

func TestClassifyGibberishFallsBackToSimple(t *testing.T) {
	c := NewClassifier(nil)
	intent := c.Classify("asdkjhaslkdj")

	if intent.Type != domain.IntentSimple {
		t.Fatalf("expected simple intent for gibberish, got %s", intent.Type)
	}
	if intent.RequiresAI {
		t.Fatalf("gibberish must not require AI")
	}
	if intent.Filters.HasStructured() {
		t.Fatalf("expected no structured filters, got %+v", intent.Filters)
	}
	if intent.Confidence > 0.1 {
		t.Fatalf("expected near-zero confidence, got %.2f", intent.Confidence)
	}
}

func TestClassifyTypeRequiresAIConsistency(t *testing.T) {
	c := NewClassifier(nil)
	queries := []string{
		"Show me all critical findings from 2024",
		"Why do procurement findings keep recurring?",
		"List all open findings in hotels and explain what trends you see",
		"asdkjhaslkdj",
		"findings",
		"Analyze trends across hospital audits",
		"Keuangan findings",
	}
	for _, q := range queries {
		intent := c.Classify(q)
		simple := intent.Type == domain.IntentSimple
		if simple == intent.RequiresAI {
			t.Fatalf("query %q: type=%s inconsistent with requiresAI=%v", q, intent.Type, intent.RequiresAI)
		}
	}
}

func TestExtractFiltersDepartmentVariant(t *testing.T) {
	c := NewClassifier(nil)
	intent := c.Classify("Keuangan findings")

	if intent.Filters.Department != "Finance" {
		t.Fatalf("expected Keuangan to resolve to Finance, got %q", intent.Filters.Department)
	}
}

func TestExtractFiltersSeveritySynonyms(t *testing.T) {
	c := NewClassifier(nil)
	intent := c.Classify("show urgent and high risk findings")

	want := []domain.Severity{domain.SeverityCritical, domain.SeverityHigh}
	if len(intent.Filters.Severities) != len(want) {
		t.Fatalf("expected severities %v, got %v", want, intent.Filters.Severities)
	}
	for i, s := range want {
		if intent.Filters.Severities[i] != s {
			t.Fatalf("expected severities %v, got %v", want, intent.Filters.Severities)
		}
	}
}

func TestExtractFiltersKeywordsAreBounded(t *testing.T) {
	c := NewClassifier(nil)
	intent := c.Classify("show contract vendor payment invoice approval inventory warehouse logistics shipping customs clearance findings")

	if len(intent.Filters.Keywords) > maxExtractedKeywords {
		t.Fatalf("expected at most %d keywords, got %d", maxExtractedKeywords, len(intent.Filters.Keywords))
	}
	if len(intent.Filters.Keywords) == 0 {
		t.Fatalf("expected some keywords to survive extraction")
	}
}

func TestClassifyFiltersAreDeterministic(t *testing.T) {
	c := NewClassifier(nil)
	first := c.Classify("List all open findings in hotels and explain what trends you see")
	second := c.Classify("List all open findings in hotels and explain what trends you see")

	if first.Type != second.Type || first.Confidence != second.Confidence {
		t.Fatalf("classification differed across runs: %+v vs %+v", first, second)
	}
	if first.Filters.ProjectType != second.Filters.ProjectType || first.Filters.Department != second.Filters.Department {
		t.Fatalf("filters differed across runs: %+v vs %+v", first.Filters, second.Filters)
	}
}
