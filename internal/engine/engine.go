// Package engine drives the daily backtest event loop: lagged feature
// release, signal generation, position sizing, cost-priced execution, and
// mark-to-market, strictly forward in time.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/cost"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/signal"
	"github.com/newthinker/quantsim/internal/sizing"
	"github.com/newthinker/quantsim/internal/stats"
)

// volWindow is the rolling window of daily returns used for the cost
// model's realized volatility; defaultVolatility applies until a ticker
// has enough history.
const (
	volWindow         = 21
	defaultVolatility = 0.02
)

// Engine runs cost-aware, walk-forward-safe backtests. A single run is
// inherently sequential: each date's decisions depend on the previous
// date's portfolio state. Engines hold no per-run state, so independent
// runs may execute concurrently on separate Engine values or the same one.
type Engine struct {
	cfg    *config.Config
	costs  *cost.Model
	gen    *signal.Generator
	logger *zap.Logger
}

// New creates an engine after eagerly validating the configuration.
// Invalid configuration fails here, before any simulated date.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		costs:  cost.NewModel(cfg.Costs),
		gen:    signal.NewGenerator(cfg.Strategy),
		logger: logger,
	}, nil
}

// Run simulates the strategy over the full bar history and returns the
// completed result. Input rows must cover one (date, ticker) each; order
// does not matter, the engine sorts date then ticker. Fatal errors return
// nil results; recovered conditions become warnings on the result.
func (e *Engine) Run(bars []core.Bar) (*Result, error) {
	days, quality, err := e.prepare(bars)
	if err != nil {
		return nil, err
	}

	lag := e.cfg.Strategy.LagDays
	if len(days) <= lag {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("%d trading dates, need more than lag_days=%d", len(days), lag))
	}

	run := &runState{
		cash:      e.cfg.Engine.InitialCapital,
		holdings:  make(map[string]int64),
		lastClose: make(map[string]float64),
		returns:   make(map[string][]float64),
		lags:      newLagBuffer(lag),
		quality:   quality,
	}

	start := lag // first date with released lagged features
	for i, day := range days {
		e.observe(run, day)

		if i < start {
			continue
		}

		if (i-start)%e.cfg.Strategy.RebalanceFreq == 0 {
			if err := e.rebalance(run, day); err != nil {
				return nil, err
			}
		}

		run.markToMarket(day.date)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Seed:      e.cfg.Engine.Seed,
		Config:    e.cfg,
		StartDate: days[start].date,
		EndDate:   days[len(days)-1].date,
		Curve:     run.curve,
		Trades:    run.trades,
		Warnings:  run.warnings,
		Quality:   run.quality,
	}
	result.Metrics = stats.Summarize(result.Curve, result.TotalCost())

	e.logger.Info("run complete",
		zap.String("run_id", result.RunID),
		zap.Int("dates", len(result.Curve)),
		zap.Int("trades", len(result.Trades)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Float64("final_value", result.Metrics.FinalValue),
	)
	return result, nil
}

// tradingDay groups the accepted bars of one calendar date, sorted by
// ticker.
type tradingDay struct {
	date time.Time
	bars []core.Bar
}

// prepare rejects malformed rows, checks the signal feature's null rate
// against the configured quality threshold, and groups rows into the
// ordered trading calendar.
func (e *Engine) prepare(bars []core.Bar) ([]tradingDay, QualityReport, error) {
	var quality QualityReport
	quality.RowsTotal = len(bars)

	byDate := make(map[time.Time][]core.Bar)
	nulls := 0
	accepted := 0
	for _, b := range bars {
		if !b.IsValid() {
			quality.RowsRejected++
			continue
		}
		accepted++
		if _, ok := b.Feature(e.cfg.Strategy.SignalFeature); !ok {
			nulls++
		}
		d := dateOnly(b.Date)
		byDate[d] = append(byDate[d], b)
	}
	if accepted == 0 {
		return nil, quality, core.WrapError(core.ErrNoData,
			fmt.Errorf("no valid rows in %d inputs", len(bars)))
	}

	quality.SignalNullRate = float64(nulls) / float64(accepted)
	if quality.SignalNullRate > e.cfg.Strategy.MaxNullRate {
		return nil, quality, core.WrapError(core.ErrNoData,
			fmt.Errorf("feature %q null rate %.3f exceeds max_null_rate %.3f",
				e.cfg.Strategy.SignalFeature, quality.SignalNullRate, e.cfg.Strategy.MaxNullRate))
	}

	days := make([]tradingDay, 0, len(byDate))
	for d, dayBars := range byDate {
		sort.Slice(dayBars, func(i, j int) bool { return dayBars[i].Ticker < dayBars[j].Ticker })
		days = append(days, tradingDay{date: d, bars: dayBars})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date.Before(days[j].date) })

	if quality.RowsRejected > 0 {
		e.logger.Warn("rejected malformed input rows",
			zap.Int("rejected", quality.RowsRejected),
			zap.Int("total", quality.RowsTotal),
		)
	}
	return days, quality, nil
}

// runState is the single live portfolio of a run, advanced monotonically
// by date and owned exclusively by the engine loop.
type runState struct {
	cash      float64
	holdings  map[string]int64
	lastClose map[string]float64
	returns   map[string][]float64
	lags      *lagBuffer

	costsToday float64
	prevEquity float64

	curve    []core.EquityPoint
	trades   []core.Trade
	warnings []core.Warning
	quality  QualityReport
}

// observe folds one date's bars into the lag buffer, the last-close map,
// and the rolling return history used for realized volatility.
func (e *Engine) observe(run *runState, day tradingDay) {
	run.costsToday = 0
	for _, b := range day.bars {
		if prev, ok := run.lastClose[b.Ticker]; ok && prev > 0 {
			rs := append(run.returns[b.Ticker], b.Close/prev-1)
			if len(rs) > volWindow {
				rs = rs[len(rs)-volWindow:]
			}
			run.returns[b.Ticker] = rs
		}
		run.lastClose[b.Ticker] = b.Close
		run.lags.Push(b.Ticker, dateOnly(b.Date), b.Features)
	}
}

// rebalance performs signal generation, sizing, and cost-priced execution
// for one decision date.
func (e *Engine) rebalance(run *runState, day tradingDay) error {
	universe := make([]signal.Observation, 0, len(day.bars))
	closes := make(map[string]float64, len(day.bars))
	meta := make(map[string]cost.TickerMeta, len(day.bars))
	for _, b := range day.bars {
		closes[b.Ticker] = b.Close
		meta[b.Ticker] = cost.TickerMeta{
			Ticker:      b.Ticker,
			MarketCap:   b.MarketCap,
			DailyVolume: b.Volume,
			Volatility:  e.volatility(run, b.Ticker),
		}

		obs, ok, err := run.lags.Visible(b.Ticker, day.date)
		if err != nil {
			return err // walk-forward violation, abort immediately
		}
		if !ok {
			run.quality.UniverseExclusions++
			continue
		}
		universe = append(universe, signal.Observation{Ticker: b.Ticker, Features: obs.features})
	}

	res := e.gen.Generate(day.date, universe)
	if n := len(res.Excluded); n > 0 {
		run.quality.UniverseExclusions += n
		run.warn(day.date, "", core.WarnDataQuality,
			fmt.Sprintf("%d tickers excluded for missing %s", n, e.cfg.Strategy.SignalFeature))
	}

	// An empty universe produces no targets and no forced liquidation:
	// existing holdings ride on mark-to-market alone.
	if len(res.Signals) == 0 {
		run.warn(day.date, "", core.WarnDataQuality, "empty signal universe, rebalance skipped")
		return nil
	}

	capital := run.equity()
	targets := sizing.Size(res.Signals, capital, e.cfg.Strategy.GrossExposure, closes)
	if targets.Scale < 1 {
		run.warn(day.date, "", core.WarnCapitalConstraint,
			fmt.Sprintf("gross exposure clipped by %.3f to fit capital %.2f", targets.Scale, capital))
	}

	e.execute(run, day.date, targets.Positions, closes, meta)
	return nil
}

// execute applies the target book: diffs targets against holdings over the
// union of both, prices every non-zero delta, and settles cash.
func (e *Engine) execute(run *runState, date time.Time, targets []core.TargetPosition, closes map[string]float64, meta map[string]cost.TickerMeta) {
	want := make(map[string]int64, len(targets))
	for _, t := range targets {
		want[t.Ticker] = t.TargetShares
	}

	union := make(map[string]struct{}, len(want)+len(run.holdings))
	for t := range want {
		union[t] = struct{}{}
	}
	for t := range run.holdings {
		union[t] = struct{}{}
	}
	tickers := make([]string, 0, len(union))
	for t := range union {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		delta := want[ticker] - run.holdings[ticker]
		if delta == 0 {
			continue
		}

		price, ok := closes[ticker]
		if !ok {
			// Held ticker absent from today's tape: unpriceable, retain.
			run.quality.SkippedTrades++
			run.warn(date, ticker, core.WarnNoLiquidity, "no bar for ticker, position retained")
			continue
		}

		breakdown, err := e.costs.PriceTrade(meta[ticker], price, delta)
		if err != nil {
			run.quality.SkippedTrades++
			kind := core.WarnNoLiquidity
			if !errors.Is(err, core.ErrNoLiquidity) {
				kind = core.WarnDataQuality
			}
			run.warn(date, ticker, kind, err.Error())
			continue
		}

		run.cash -= float64(delta) * price
		run.cash -= breakdown.TotalCost
		run.costsToday += breakdown.TotalCost

		if next := run.holdings[ticker] + delta; next == 0 {
			delete(run.holdings, ticker)
		} else {
			run.holdings[ticker] = next
		}

		run.trades = append(run.trades, core.Trade{
			Date:           date,
			Ticker:         ticker,
			DeltaShares:    delta,
			ExecutionPrice: price,
			SpreadCost:     breakdown.SpreadCost,
			ImpactCost:     breakdown.ImpactCost,
			FeeCost:        breakdown.FeeCost,
			TotalCost:      breakdown.TotalCost,
		})
	}
}

// volatility returns the ticker's realized daily volatility over the
// rolling window, or the default until enough history has accrued.
func (e *Engine) volatility(run *runState, ticker string) float64 {
	rs := run.returns[ticker]
	if len(rs) < 2 {
		return defaultVolatility
	}
	if v := indicator.Std(rs); v > 0 {
		return v
	}
	return defaultVolatility
}

// equity marks the portfolio at the latest known closes.
func (run *runState) equity() float64 {
	eq := run.cash
	for ticker, shares := range run.holdings {
		eq += float64(shares) * run.lastClose[ticker]
	}
	return eq
}

// markToMarket appends the date's equity point. Gross return adds back the
// date's execution costs, so cost drag is observable per day.
func (run *runState) markToMarket(date time.Time) {
	eq := run.equity()
	point := core.EquityPoint{Date: date, Equity: eq}
	if run.prevEquity > 0 {
		point.DailyReturn = eq/run.prevEquity - 1
		point.GrossReturn = (eq+run.costsToday)/run.prevEquity - 1
	}
	run.curve = append(run.curve, point)
	run.prevEquity = eq
}

func (run *runState) warn(date time.Time, ticker string, kind core.WarningKind, detail string) {
	run.warnings = append(run.warnings, core.Warning{
		Date:   date,
		Ticker: ticker,
		Kind:   kind,
		Detail: detail,
	})
}

// dateOnly normalizes a timestamp to its UTC calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
