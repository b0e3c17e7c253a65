package domain

import "regexp"

type FilterOp string

const (
	OpEq       FilterOp = "=="
	OpNeq      FilterOp = "!="
	OpLt       FilterOp = "<"
	OpLte      FilterOp = "<="
	OpGt       FilterOp = ">"
	OpGte      FilterOp = ">="
	OpIn       FilterOp = "in"
	OpContains FilterOp = "contains"
)

func (op FilterOp) Inequality() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

type FilterClause struct {
	Field string
	Op    FilterOp
	Value any
}

type SortClause struct {
	Field string
	Desc  bool
}

type Normalizer string

const (
	NormalizeNone  Normalizer = ""
	NormalizeTrim  Normalizer = "trim"
	NormalizeLower Normalizer = "lower"
	NormalizeUpper Normalizer = "upper"
	NormalizeTitle Normalizer = "title"
)

// ParameterExtractor declares how one regex capture group becomes a named,
// normalized parameter.
type ParameterExtractor struct {
	Name      string
	Group     int
	Normalize Normalizer
}

// QueryPattern is a declarative fast-path rule. BuildFilters and BuildSorts must
// be pure functions of the extracted parameters.
type QueryPattern struct {
	ID         string
	Name       string
	Priority   int
	Regexp     *regexp.Regexp
	Extractors []ParameterExtractor

	// Examples are query texts the pattern is expected to match. They are used
	// at registration time to verify the regex and to probe for overlap with
	// already-registered patterns.
	Examples []string

	BuildFilters func(params map[string]string) []FilterClause
	BuildSorts   func(params map[string]string) []SortClause
}

// MatchResult is the outcome of evaluating the registry against one query.
// A miss is not an error: Matched=false with Confidence=0 signals the caller
// to fall through to the classifier.
type MatchResult struct {
	Matched    bool
	Pattern    *QueryPattern
	Params     map[string]string
	Confidence float64
}
