package models

import "time"

// Strategy is a user-owned, versioned bundle of weighted directives.
type Strategy struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	CreatedBy   string              `json:"created_by"`
	Public      bool                `json:"public"`
	Archived    bool                `json:"archived"`
	Directives  []StrategyDirective `json:"directives"`
	Version     int                 `json:"version"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type StrategyDirective struct {
	DirectiveID DirectiveID        `json:"directive_id"`
	Weight      float64            `json:"weight"`
	Config      map[string]float64 `json:"config,omitempty"`
	SortOrder   int                `json:"sort_order"`
	Active      bool               `json:"active"`
}

// Weights returns the active directive weights keyed by id.
func (s *Strategy) Weights() map[DirectiveID]float64 {
	out := make(map[DirectiveID]float64, len(s.Directives))
	for _, d := range s.Directives {
		if d.Active {
			out[d.DirectiveID] = d.Weight
		}
	}
	return out
}

type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeUpdated  ChangeType = "updated"
	ChangeArchived ChangeType = "archived"
)

// StrategyVersion is an immutable snapshot written on every mutation.
type StrategyVersion struct {
	ID         int64      `json:"id"`
	StrategyID int64      `json:"strategy_id"`
	Number     int        `json:"version"`
	ChangeType ChangeType `json:"change_type"`
	Snapshot   Strategy   `json:"snapshot"`
	CreatedAt  time.Time  `json:"created_at"`
}

type StrategyTestResult struct {
	StrategyID int64     `json:"strategy_id"`
	RunID      string    `json:"run_id"`
	Symbol     string    `json:"symbol"`
	Score      float64   `json:"score"`
	Success    bool      `json:"success"`
	CreatedAt  time.Time `json:"created_at"`
}

type StrategyStats struct {
	StrategyID   int64   `json:"strategy_id"`
	Tests        int     `json:"tests"`
	SuccessRate  float64 `json:"success_rate"`
	AverageScore float64 `json:"average_score"`
}

// StrategyFilter narrows List results.
type StrategyFilter struct {
	CreatedBy       string
	Category        string
	PublicOnly      bool
	IncludeArchived bool
}
