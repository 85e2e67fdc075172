package engine

import (
	"time"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/stats"
)

// QualityReport counts recovered data problems over a run.
type QualityReport struct {
	// RowsTotal is the number of input rows seen, RowsRejected the number
	// dropped as malformed before simulation.
	RowsTotal    int `json:"rows_total"`
	RowsRejected int `json:"rows_rejected"`
	// SignalNullRate is the fraction of accepted rows missing the
	// configured signal feature.
	SignalNullRate float64 `json:"signal_null_rate"`
	// UniverseExclusions counts per-date ticker exclusions for missing or
	// unreleased feature values.
	UniverseExclusions int `json:"universe_exclusions"`
	// SkippedTrades counts non-zero deltas dropped for missing liquidity
	// or pricing.
	SkippedTrades int `json:"skipped_trades"`
}

// Result is the complete output of one backtest run: the equity curve, the
// append-only trade ledger, recovered warnings, and summary metrics.
type Result struct {
	RunID string `json:"run_id"`
	Seed  int64  `json:"seed"`
	// Config echoes the effective configuration so archived results are
	// reproducible without the original config file.
	Config    *config.Config     `json:"config,omitempty"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Curve     []core.EquityPoint `json:"equity_curve"`
	Trades    []core.Trade       `json:"trades"`
	Warnings  []core.Warning     `json:"warnings,omitempty"`
	Quality   QualityReport      `json:"quality"`
	Metrics   stats.Metrics      `json:"metrics"`
}

// TotalCost sums execution costs over the trade ledger.
func (r *Result) TotalCost() float64 {
	var total float64
	for _, t := range r.Trades {
		total += t.TotalCost
	}
	return total
}
