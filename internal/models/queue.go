package models

import "time"

type Action string

const (
	ActionCalculateScores Action = "calculate_scores"
	ActionGenerateSignals Action = "generate_signals"
	ActionUpdateRankings  Action = "update_rankings"
)

type Payload struct {
	Symbols []string `json:"symbols,omitempty"`
	RunType RunType  `json:"run_type,omitempty"`
}

// QueueItem is one unit of background work.
type QueueItem struct {
	ID         string    `json:"id"`
	Action     Action    `json:"action"`
	Payload    Payload   `json:"payload"`
	RetryCount int       `json:"retry_count"`
	NotBefore  time.Time `json:"not_before"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type ErrorStatus string

const (
	StatusDegraded ErrorStatus = "degraded"
	StatusFailed   ErrorStatus = "failed"
	StatusWarning  ErrorStatus = "warning"
)

// ErrorState is the last recorded failure for a category.
type ErrorState struct {
	Category  string      `json:"category"`
	Status    ErrorStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Context   string      `json:"context"`
}
