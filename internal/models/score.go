package models

import "time"

type Algorithm string

const (
	AlgorithmCategory  Algorithm = "category"
	AlgorithmDirective Algorithm = "directive"
)

// Component is one entry of a score breakdown.
type Component struct {
	Value        float64 `json:"value"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Score is one point of a symbol's append-only score history.
type Score struct {
	ID            int64                `json:"id"`
	Symbol        string               `json:"symbol"`
	Value         int                  `json:"value"`
	PreviousValue int                  `json:"previous_value"`
	HasPrevious   bool                 `json:"has_previous"`
	Algorithm     Algorithm            `json:"algorithm"`
	Components    map[string]Component `json:"components"`
	RunID         string               `json:"run_id"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Ranking is one row of the latest-score leaderboard.
type Ranking struct {
	Rank   int    `json:"rank"`
	Symbol string `json:"symbol"`
	Value  int    `json:"value"`
}
