package domain

type ErrorCode string

const (
	ErrCodeClassification    ErrorCode = "CLASSIFICATION_ERROR"
	ErrCodeDatabase          ErrorCode = "DATABASE_ERROR"
	ErrCodeAI                ErrorCode = "AI_ERROR"
	ErrCodePatternValidation ErrorCode = "PATTERN_VALIDATION_ERROR"
	ErrCodeNoResults         ErrorCode = "NO_RESULTS"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type QueryRequest struct {
	Question string        `json:"question"`
	History  []ChatMessage `json:"history,omitempty"`
	Limit    int           `json:"limit,omitempty"`
}

type ResponseMetadata struct {
	QueryType         string  `json:"query_type"`
	ExecutionTimeMs   int64   `json:"execution_time_ms"`
	FindingsAnalyzed  int     `json:"findings_analyzed"`
	Confidence        float64 `json:"confidence"`
	ResultsCount      int     `json:"results_count,omitempty"`
	PatternMatched    string  `json:"pattern_matched,omitempty"`
	RetrievalStrategy string  `json:"retrieval_strategy,omitempty"`
}

type QueryError struct {
	Code         ErrorCode `json:"code"`
	Message      string    `json:"message"`
	Suggestion   string    `json:"suggestion,omitempty"`
	FallbackData []Finding `json:"fallback_data,omitempty"`
}

// QueryResponse is the router's single terminal output. Exactly one variant is
// populated: Success=true carries Answer/Findings/Metadata, Success=false
// carries Error. Both variants are display-ready; the caller never needs to
// distinguish "no findings" from "query failed" to render a message.
type QueryResponse struct {
	Success  bool             `json:"success"`
	Type     IntentType       `json:"type,omitempty"`
	Answer   string           `json:"answer,omitempty"`
	Findings []Finding        `json:"findings,omitempty"`
	Metadata ResponseMetadata `json:"metadata"`
	Error    *QueryError      `json:"error,omitempty"`
}

// QueryMetadata is the fire-and-forget record emitted to the audit sink after
// every routed query.
type QueryMetadata struct {
	QueryType       string  `json:"query_type"`
	PatternMatched  string  `json:"pattern_matched,omitempty"`
	ExecutionTimeMs int64   `json:"execution_time_ms"`
	ResultsCount    int     `json:"results_count"`
	Confidence      float64 `json:"confidence"`
}
