package domain

type IntentType string

const (
	IntentSimple  IntentType = "simple"
	IntentComplex IntentType = "complex"
	IntentHybrid  IntentType = "hybrid"
)

// ExtractedFilters holds every structured filter the classifier recognized in a
// query. It is computed once from the query text and never mutated afterwards.
type ExtractedFilters struct {
	Year        int             `json:"year,omitempty"`
	Severities  []Severity      `json:"severities,omitempty"`
	Statuses    []FindingStatus `json:"statuses,omitempty"`
	ProjectType string          `json:"project_type,omitempty"`
	Department  string          `json:"department,omitempty"`
	Keywords    []string        `json:"keywords,omitempty"`
}

func (f ExtractedFilters) HasStructured() bool {
	return f.Year != 0 || len(f.Severities) > 0 || len(f.Statuses) > 0 ||
		f.ProjectType != "" || f.Department != ""
}

// QueryIntent is the classifier's verdict for one query.
// Type "simple" always implies RequiresAI=false.
type QueryIntent struct {
	Type             IntentType       `json:"type"`
	Confidence       float64          `json:"confidence"`
	RequiresAI       bool             `json:"requires_ai"`
	Filters          ExtractedFilters `json:"filters"`
	AnalysisKeywords []string         `json:"analysis_keywords,omitempty"`
}
