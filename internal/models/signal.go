package models

import (
	"fmt"
	"time"
)

// Signal is a significant-move event raised when a score crosses the threshold.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Score     int       `json:"score"`
	Previous  int       `json:"previous"`
	Threshold int       `json:"threshold"`
	RunID     string    `json:"run_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Signal) String() string {
	return fmt.Sprintf("%s score %d (prev %d, threshold %d): %s", s.Symbol, s.Score, s.Previous, s.Threshold, s.Reason)
}
