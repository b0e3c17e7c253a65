package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/auditops/findings-assistant/internal/core/domain"
	"github.com/auditops/findings-assistant/internal/core/ports"
)

const defaultResultLimit = 50

// broadFetchFactor widens the backend fetch when predicates remain to be
// applied client-side, so post-filtering still fills the caller's limit.
const broadFetchFactor = 4

// QueryExecutor translates filter/sort clauses into record-store queries,
// honoring the store's ordering constraints and papering over historical
// department naming.
type QueryExecutor struct {
	store        ports.FindingStore
	vocab        *domain.Vocabulary
	defaultLimit int
	logger       *slog.Logger
}

func NewQueryExecutor(store ports.FindingStore, vocab *domain.Vocabulary, defaultLimit int, logger *slog.Logger) *QueryExecutor {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	if defaultLimit <= 0 {
		defaultLimit = defaultResultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryExecutor{
		store:        store,
		vocab:        vocab,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// Execute runs one logical query. Filters the store cannot express natively
// (set membership, keyword substrings) are applied client-side over a broader
// fetch; a department filter fans out into one store query per known spelling
// variant, merged and re-sorted.
func (x *QueryExecutor) Execute(ctx context.Context, filters []domain.FilterClause, sorts []domain.SortClause, limit int) ([]domain.Finding, error) {
	if limit <= 0 {
		limit = x.defaultLimit
	}

	storeFilters, clientFilters := splitFilters(filters)
	sorts = ensureInequalitySort(storeFilters, sorts)

	fetchLimit := limit
	if len(clientFilters) > 0 {
		fetchLimit = limit * broadFetchFactor
	}

	findings, err := x.queryWithDepartmentVariants(ctx, storeFilters, sorts, fetchLimit)
	if err != nil {
		return nil, err
	}

	if len(clientFilters) > 0 {
		findings = applyClientFilters(findings, clientFilters)
	}
	if len(findings) > limit {
		findings = findings[:limit]
	}
	return findings, nil
}

// ensureInequalitySort enforces the store's constraint that a query with an
// inequality filter on field F sorts first by F: the matching sort is moved to
// the front, or inserted when absent.
func ensureInequalitySort(filters []domain.FilterClause, sorts []domain.SortClause) []domain.SortClause {
	var ineqField string
	for _, f := range filters {
		if f.Op.Inequality() {
			ineqField = f.Field
			break
		}
	}
	if ineqField == "" {
		return sorts
	}

	for i, s := range sorts {
		if s.Field == ineqField {
			if i == 0 {
				return sorts
			}
			reordered := make([]domain.SortClause, 0, len(sorts))
			reordered = append(reordered, s)
			reordered = append(reordered, sorts[:i]...)
			reordered = append(reordered, sorts[i+1:]...)
			return reordered
		}
	}

	out := make([]domain.SortClause, 0, len(sorts)+1)
	out = append(out, domain.SortClause{Field: ineqField, Desc: true})
	out = append(out, sorts...)
	return out
}

func (x *QueryExecutor) queryWithDepartmentVariants(ctx context.Context, filters []domain.FilterClause, sorts []domain.SortClause, limit int) ([]domain.Finding, error) {
	deptIdx := -1
	for i, f := range filters {
		if f.Field == "department" && f.Op == domain.OpEq {
			deptIdx = i
			break
		}
	}

	if deptIdx < 0 {
		return x.store.Query(ctx, ports.FindingQuery{Filters: filters, Sorts: sorts, Limit: limit})
	}

	requested := fmt.Sprint(filters[deptIdx].Value)
	canonical := requested
	if resolved, ok := x.vocab.CanonicalDepartment(requested); ok {
		canonical = resolved
	}
	variants := x.vocab.DepartmentVariants(canonical)
	if len(variants) > 1 {
		x.logger.Debug("department variant fan-out", "department", canonical, "variants", len(variants))
	}

	merged := make([]domain.Finding, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, variant := range variants {
		variantFilters := make([]domain.FilterClause, len(filters))
		copy(variantFilters, filters)
		variantFilters[deptIdx] = domain.FilterClause{Field: "department", Op: domain.OpEq, Value: variant}

		rows, err := x.store.Query(ctx, ports.FindingQuery{Filters: variantFilters, Sorts: sorts, Limit: limit})
		if err != nil {
			return nil, fmt.Errorf("query department variant %q: %w", variant, err)
		}
		for _, f := range rows {
			if _, dup := seen[f.ID]; dup {
				continue
			}
			seen[f.ID] = struct{}{}
			merged = append(merged, f)
		}
	}

	sortFindings(merged, sorts)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// splitFilters separates clauses the store runs natively from those evaluated
// client-side (set membership across synonyms, keyword substring search).
func splitFilters(filters []domain.FilterClause) (storeSide, clientSide []domain.FilterClause) {
	for _, f := range filters {
		switch f.Op {
		case domain.OpIn, domain.OpContains:
			clientSide = append(clientSide, f)
		default:
			storeSide = append(storeSide, f)
		}
	}
	return storeSide, clientSide
}

func applyClientFilters(findings []domain.Finding, filters []domain.FilterClause) []domain.Finding {
	out := findings[:0]
	for _, f := range findings {
		if matchesClientFilters(f, filters) {
			out = append(out, f)
		}
	}
	return out
}

func matchesClientFilters(f domain.Finding, filters []domain.FilterClause) bool {
	for _, clause := range filters {
		switch clause.Op {
		case domain.OpIn:
			if !valueInSet(fieldValue(f, clause.Field), clause.Value) {
				return false
			}
		case domain.OpContains:
			if !containsAnyKeyword(f, clause.Value) {
				return false
			}
		}
	}
	return true
}

func valueInSet(value string, set any) bool {
	switch typed := set.(type) {
	case []string:
		for _, s := range typed {
			if strings.EqualFold(s, value) {
				return true
			}
		}
	case []domain.Severity:
		for _, s := range typed {
			if strings.EqualFold(string(s), value) {
				return true
			}
		}
	case []domain.FindingStatus:
		for _, s := range typed {
			if strings.EqualFold(string(s), value) {
				return true
			}
		}
	}
	return false
}

func containsAnyKeyword(f domain.Finding, keywords any) bool {
	words, ok := keywords.([]string)
	if !ok || len(words) == 0 {
		return false
	}
	haystack := strings.ToLower(findingText(f))
	for _, w := range words {
		if strings.Contains(haystack, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func fieldValue(f domain.Finding, field string) string {
	switch field {
	case "severity":
		return string(f.Severity)
	case "status":
		return string(f.Status)
	case "department":
		return f.Department
	case "project_type":
		return f.ProjectType
	case "title":
		return f.Title
	default:
		return ""
	}
}

func sortFindings(findings []domain.Finding, sorts []domain.SortClause) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(findings, func(i, j int) bool {
		for _, s := range sorts {
			cmp := compareFindings(findings[i], findings[j], s.Field)
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return findings[i].ID < findings[j].ID
	})
}

func compareFindings(a, b domain.Finding, field string) int {
	switch field {
	case "risk_score":
		return compareFloat(a.RiskScore, b.RiskScore)
	case "year":
		return a.Year - b.Year
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "severity":
		return severityRank(b.Severity) - severityRank(a.Severity)
	case "title":
		return strings.Compare(a.Title, b.Title)
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// severityRank orders Critical highest so that ascending severity sorts read
// Critical first.
func severityRank(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return 4
	case domain.SeverityHigh:
		return 3
	case domain.SeverityMedium:
		return 2
	case domain.SeverityLow:
		return 1
	default:
		return 0
	}
}

// FiltersFromIntent converts the classifier's extracted filters into executor
// clauses plus a default sort. Single-value sets become equality filters the
// store can run natively; multi-value sets and keywords stay client-side.
func FiltersFromIntent(f domain.ExtractedFilters) ([]domain.FilterClause, []domain.SortClause) {
	filters := make([]domain.FilterClause, 0, 6)
	if f.Year != 0 {
		filters = append(filters, domain.FilterClause{Field: "year", Op: domain.OpEq, Value: f.Year})
	}
	switch len(f.Severities) {
	case 0:
	case 1:
		filters = append(filters, domain.FilterClause{Field: "severity", Op: domain.OpEq, Value: string(f.Severities[0])})
	default:
		filters = append(filters, domain.FilterClause{Field: "severity", Op: domain.OpIn, Value: f.Severities})
	}
	switch len(f.Statuses) {
	case 0:
	case 1:
		filters = append(filters, domain.FilterClause{Field: "status", Op: domain.OpEq, Value: string(f.Statuses[0])})
	default:
		filters = append(filters, domain.FilterClause{Field: "status", Op: domain.OpIn, Value: f.Statuses})
	}
	if f.ProjectType != "" {
		filters = append(filters, domain.FilterClause{Field: "project_type", Op: domain.OpEq, Value: f.ProjectType})
	}
	if f.Department != "" {
		filters = append(filters, domain.FilterClause{Field: "department", Op: domain.OpEq, Value: f.Department})
	}
	if len(f.Keywords) > 0 {
		filters = append(filters, domain.FilterClause{Field: "text", Op: domain.OpContains, Value: f.Keywords})
	}

	sorts := []domain.SortClause{{Field: "risk_score", Desc: true}}
	return filters, sorts
}
