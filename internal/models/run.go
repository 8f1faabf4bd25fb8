package models

import "time"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

func (s RunStatus) Terminal() bool { return s == RunCompleted || s == RunStopped || s == RunFailed }

type RunType string

const (
	RunScheduled RunType = "scheduled"
	RunManual    RunType = "manual"
	RunRetry     RunType = "retry"
)

// Run is one pass of the orchestrator over a batch of symbols.
type Run struct {
	ID               string     `json:"id"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	Status           RunStatus  `json:"status"`
	RunType          RunType    `json:"run_type"`
	SymbolsProcessed int        `json:"symbols_processed"`
	SymbolsFailed    int        `json:"symbols_failed"`
	APICalls         int        `json:"api_calls"`
	ScoresGenerated  int        `json:"scores_generated"`
	TradeSignals     int        `json:"trade_signals"`
}
