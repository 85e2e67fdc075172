package core

import "time"

// Direction represents the side of a cross-sectional signal.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionFlat  Direction = "flat"
)

// Sign returns +1 for long, -1 for short, 0 for flat.
func (d Direction) Sign() float64 {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}

// Bar represents one (date, ticker) row of the input table. Feature values
// are already lagged by the upstream provider: a snapshot never contains
// information from the bar's own date or later.
type Bar struct {
	Date      time.Time
	Ticker    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	MarketCap float64
	Features  map[string]float64
}

// IsValid checks that the bar carries the fields the engine depends on.
func (b Bar) IsValid() bool {
	return b.Ticker != "" && !b.Date.IsZero() && b.Close > 0
}

// Feature returns the named feature value and whether it is present.
func (b Bar) Feature(name string) (float64, bool) {
	v, ok := b.Features[name]
	return v, ok
}

// Signal represents a single ticker's directional signal on one date.
// Signals are produced fresh each date and never persisted across dates.
type Signal struct {
	Date      time.Time
	Ticker    string
	Direction Direction
	Rank      int
	Score     float64
	Weight    float64
}

// TargetPosition is the desired holding for one ticker after a rebalance.
type TargetPosition struct {
	Ticker       string
	TargetWeight float64
	TargetShares int64
}

// Trade records one executed position change. Records are immutable once
// appended to the ledger.
type Trade struct {
	Date           time.Time `json:"date"`
	Ticker         string    `json:"ticker"`
	DeltaShares    int64     `json:"delta_shares"`
	ExecutionPrice float64   `json:"execution_price"`
	SpreadCost     float64   `json:"spread_cost"`
	ImpactCost     float64   `json:"impact_cost"`
	FeeCost        float64   `json:"fee_cost"`
	TotalCost      float64   `json:"total_cost"`
}

// Value returns the signed notional of the trade.
func (t Trade) Value() float64 {
	return float64(t.DeltaShares) * t.ExecutionPrice
}

// EquityPoint is one entry of the append-only equity curve.
type EquityPoint struct {
	Date        time.Time `json:"date"`
	Equity      float64   `json:"equity"`
	DailyReturn float64   `json:"daily_return"`
	GrossReturn float64   `json:"gross_return"`
}

// WarningKind classifies recovered, non-fatal conditions.
type WarningKind string

const (
	WarnDataQuality       WarningKind = "data_quality"
	WarnNoLiquidity       WarningKind = "no_liquidity"
	WarnCapitalConstraint WarningKind = "capital_constraint"
)

// Warning is a structured record of a recovered error, attached to the
// run result rather than aborting the simulation.
type Warning struct {
	Date   time.Time   `json:"date"`
	Ticker string      `json:"ticker,omitempty"`
	Kind   WarningKind `json:"kind"`
	Detail string      `json:"detail"`
}
