package models

// Response sources.
const (
	SourceCache = "cache"
	SourceLLM   = "llm"
)

// GenerationResult is a normalized response from a backend provider.
type GenerationResult struct {
	Content          string         `json:"content"`
	Model            string         `json:"model"`
	TokensUsed       int            `json:"tokens_used"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	Cost             float64        `json:"cost"`
	Provider         string         `json:"provider,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// TeachResponse is the outbound answer to a tutoring question.
type TeachResponse struct {
	Answer              string   `json:"answer"`
	ModelUsed           string   `json:"model_used"`
	TokensUsed          int      `json:"tokens_used"`
	EstimatedCost       float64  `json:"estimated_cost"`
	Confidence          float64  `json:"confidence"`
	Source              string   `json:"source"`
	ProcessingTimeMs    int64    `json:"processing_time_ms"`
	FollowUpSuggestions []string `json:"follow_up_suggestions"`
	LearningResources   []string `json:"learning_resources"`
}

// ModelHealth reports the reachability of one backend provider.
type ModelHealth struct {
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Health statuses.
const (
	StatusHealthy     = "healthy"
	StatusUnavailable = "unavailable"
)
