package models

import "time"

// UsageRecord is one append-only accounting event for a serviced request.
type UsageRecord struct {
	ID         int64     `json:"id"`
	StudentID  string    `json:"student_id"`
	Model      string    `json:"model"`
	TokensUsed int       `json:"tokens_used"`
	Cost       float64   `json:"cost"`
	Success    bool      `json:"success"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UsageSummary aggregates usage per student and model.
type UsageSummary struct {
	StudentID    string  `json:"student_id"`
	Model        string  `json:"model"`
	RequestCount int64   `json:"request_count"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

// Conversation is a persisted question and answer exchange.
type Conversation struct {
	ID        int64     `json:"id"`
	StudentID string    `json:"student_id"`
	Subject   string    `json:"subject"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}
