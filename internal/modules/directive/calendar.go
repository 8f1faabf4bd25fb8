package directive

import (
	"fmt"
	"time"

	"scoring_engine/internal/models"
)

const (
	EarningsProximity models.DirectiveID = "earnings_proximity"
	ISACalendar       models.DirectiveID = "isa_calendar"
)

const day = 24 * time.Hour

// earningsProximity ramps from 50 to 100 as the next report date approaches.
type earningsProximity struct{ base }

func newEarningsProximity() Scorer {
	return earningsProximity{base{id: EarningsProximity, schema: models.ConfigSchema{
		"window_days": intParam(1, 60, 14),
	}}}
}

func (d earningsProximity) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	if data == nil || data.Fundamentals == nil || data.Fundamentals.NextEarnings == nil {
		return Result{}, fmt.Errorf("%s: %w: next earnings date", d.id, ErrMissingData)
	}
	if data.Now.IsZero() {
		return Result{}, fmt.Errorf("%s: %w: evaluation time", d.id, ErrMissingData)
	}
	days := data.Fundamentals.NextEarnings.Sub(data.Now).Hours() / 24
	window := cfg.Float("window_days")

	score := 50.0
	if days >= 0 && days <= window {
		score = 50 + 50*(1-days/window)
	}
	return Result{Score: score, Breakdown: map[string]float64{"days_to_earnings": days}}, nil
}

func (d earningsProximity) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("Neutral 50, rising to 100 over the last %d days before an earnings report.",
		cfg.Int("window_days"))
}

// isaCalendar follows the UK ISA allowance cycle: the tax year ends on 5 April.
// Inflows build into the deadline and the fresh allowance lifts the first weeks after it.
type isaCalendar struct{ base }

func newISACalendar() Scorer {
	return isaCalendar{base{id: ISACalendar, schema: models.ConfigSchema{
		"window_days": intParam(1, 90, 30),
	}}}
}

func (d isaCalendar) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	if data == nil || data.Now.IsZero() {
		return Result{}, fmt.Errorf("%s: %w: evaluation time", d.id, ErrMissingData)
	}
	toEnd, sinceStart := TaxYearPosition(data.Now)
	window := cfg.Float("window_days")

	score := 50.0
	switch {
	case float64(toEnd) <= window:
		score = 50 + 50*(1-float64(toEnd)/window)
	case float64(sinceStart) < window:
		score = 75
	}
	return Result{Score: score, Breakdown: map[string]float64{
		"days_to_year_end":    float64(toEnd),
		"days_since_new_year": float64(sinceStart),
	}}, nil
}

func (d isaCalendar) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("ISA year end (5 April): rises to 100 over the last %d days, 75 for the first %d days of the new year, 50 otherwise.",
		cfg.Int("window_days"), cfg.Int("window_days"))
}

// TaxYearPosition returns whole days until the next 5 April (0 on the day) and
// days since the last 6 April.
func TaxYearPosition(now time.Time) (toEnd, sinceStart int) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(today.Year(), time.April, 5, 0, 0, 0, 0, time.UTC)
	if today.After(end) {
		end = end.AddDate(1, 0, 0)
	}
	start := end.AddDate(-1, 0, 1)
	return int(end.Sub(today) / day), int(today.Sub(start) / day)
}
