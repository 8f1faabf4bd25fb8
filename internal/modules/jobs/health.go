package jobs

import (
	"time"

	"scoring_engine/internal/models"
)

// Report is the externally visible health of the background core.
type Report struct {
	Score       int                 `json:"score"`
	States      []models.ErrorState `json:"error_states"`
	LastSuccess *time.Time          `json:"last_success,omitempty"`
	QueueDepth  int                 `json:"queue_depth"`
}

// HealthScore starts at 100 and subtracts 25 per failed state, 15 per degraded
// and 10 per other state, then 20 when the last success is older than 12h,
// 10 when older than 4h and 40 when nothing ever succeeded. It never goes below 0.
func HealthScore(states []models.ErrorState, lastSuccess *time.Time, now time.Time) int {
	score := 100
	for _, s := range states {
		switch s.Status {
		case models.StatusFailed:
			score -= 25
		case models.StatusDegraded:
			score -= 15
		default:
			score -= 10
		}
	}

	switch {
	case lastSuccess == nil || lastSuccess.IsZero():
		score -= 40
	case now.Sub(*lastSuccess) > 12*time.Hour:
		score -= 20
	case now.Sub(*lastSuccess) > 4*time.Hour:
		score -= 10
	}

	if score < 0 {
		return 0
	}
	return score
}
