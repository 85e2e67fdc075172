// Package cost prices individual trades with a three-component execution
// cost model: tiered bid-ask spread, square-root-law market impact, and
// broker fees.
package cost

import (
	"fmt"
	"math"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
)

// TickerMeta carries the per-date metadata the model needs to price a trade.
type TickerMeta struct {
	Ticker      string
	MarketCap   float64
	DailyVolume int64
	// Volatility is the realized daily return volatility, as a fraction.
	Volatility float64
}

// Breakdown is the priced cost of a single trade, by component.
type Breakdown struct {
	SpreadCost float64
	ImpactCost float64
	FeeCost    float64
	TotalCost  float64
}

// Model prices trades against a calibrated cost configuration.
type Model struct {
	cfg config.CostConfig
}

// NewModel creates a cost model from validated configuration.
func NewModel(cfg config.CostConfig) *Model {
	return &Model{cfg: cfg}
}

// SpreadBps returns the flat spread charge for a market cap, using the
// first tier whose threshold the cap reaches. Tiers are ordered by
// descending threshold, so the last tier acts as the catch-all.
func (m *Model) SpreadBps(marketCap float64) float64 {
	for _, tier := range m.cfg.SpreadTiers {
		if marketCap >= tier.MinMarketCap {
			return tier.Bps
		}
	}
	return m.cfg.SpreadTiers[len(m.cfg.SpreadTiers)-1].Bps
}

// PriceTrade prices moving |shares| of a ticker at the given price.
//
// A zero-share trade costs nothing. A non-zero trade against zero or
// missing daily volume has undefined impact and returns ErrNoLiquidity;
// the caller decides whether to skip the trade, never to treat it as free.
func (m *Model) PriceTrade(meta TickerMeta, price float64, shares int64) (Breakdown, error) {
	if shares == 0 {
		return Breakdown{}, nil
	}
	if price <= 0 {
		return Breakdown{}, core.WrapError(core.ErrDataQuality,
			fmt.Errorf("non-positive price %f for %s", price, meta.Ticker))
	}
	if meta.DailyVolume <= 0 {
		return Breakdown{}, core.WrapError(core.ErrNoLiquidity,
			fmt.Errorf("%s: daily volume %d", meta.Ticker, meta.DailyVolume))
	}

	absShares := float64(shares)
	if absShares < 0 {
		absShares = -absShares
	}
	tradeValue := absShares * price

	// Spread: tiered flat bps on traded notional. Configured slippage is a
	// linear add-on to the same component.
	spreadBps := m.SpreadBps(meta.MarketCap) + m.cfg.SlippageBps
	spread := tradeValue * spreadBps / 10_000

	// Market impact, square-root law: k * participation^alpha * volatility,
	// applied to traded notional.
	participation := absShares / float64(meta.DailyVolume)
	impact := tradeValue * m.cfg.ImpactK * math.Pow(participation, m.cfg.ImpactAlpha) * meta.Volatility

	// Fees: per-share with a floor, capped at a fraction of notional.
	// Configured commission bps are added after the cap.
	fee := m.cfg.FeePerShare * absShares
	if fee < m.cfg.FeeMin {
		fee = m.cfg.FeeMin
	}
	if cap := m.cfg.FeeCapPct * tradeValue; fee > cap {
		fee = cap
	}
	fee += tradeValue * m.cfg.CommissionBps / 10_000

	return Breakdown{
		SpreadCost: spread,
		ImpactCost: impact,
		FeeCost:    fee,
		TotalCost:  spread + impact + fee,
	}, nil
}
