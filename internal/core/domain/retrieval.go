package domain

type RetrievalStrategy string

const (
	StrategyKeyword  RetrievalStrategy = "keyword"
	StrategySemantic RetrievalStrategy = "semantic"
	StrategyHybrid   RetrievalStrategy = "hybrid"
)

type MatchReason string

const (
	ReasonKeyword  MatchReason = "keyword"
	ReasonSemantic MatchReason = "semantic"
	ReasonHybrid   MatchReason = "hybrid"
)

// ScoredFinding is a retrieval candidate annotated with its relevance score.
// Scores are comparable across reasons: keyword relevance is normalized into
// [0,1] before it is combined with cosine similarity.
type ScoredFinding struct {
	Finding Finding     `json:"finding"`
	Score   float64     `json:"score"`
	Reason  MatchReason `json:"reason"`
}

// ContextSelection is the retrieval engine's output: the findings chosen to be
// handed to the AI model, ordered by descending score, within the caller's
// token budget.
type ContextSelection struct {
	Results          []ScoredFinding   `json:"results"`
	Strategy         RetrievalStrategy `json:"strategy"`
	EstimatedTokens  int               `json:"estimated_tokens"`
	AverageRelevance float64           `json:"average_relevance"`
	Truncated        bool              `json:"truncated"`
}

type SelectOptions struct {
	MaxResults int
	MaxTokens  int
}
