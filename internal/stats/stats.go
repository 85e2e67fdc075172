// Package stats computes performance and risk statistics from a realized
// equity curve: annualized return and volatility, Sharpe, drawdown, and
// Conditional Value-at-Risk.
package stats

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/newthinker/quantsim/internal/core"
)

// Trading days per year used for annualization.
const periodsPerYear = 252

// Metrics summarizes a completed run. Ratio fields are NaN when undefined
// (fewer than two returns or zero variance); NaN marshals to JSON null.
type Metrics struct {
	SharpeRatio          float64
	GrossSharpeRatio     float64
	SortinoRatio         float64
	CalmarRatio          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	MaxDrawdown          float64
	CVaR95               float64
	CVaR99               float64
	WinRate              float64
	FinalValue           float64
	TotalCost            float64
	TotalPeriods         int
}

// Summarize computes metrics over the realized equity curve. totalCost is
// the summed execution cost from the trade ledger.
func Summarize(curve []core.EquityPoint, totalCost float64) Metrics {
	m := Metrics{
		SharpeRatio:      math.NaN(),
		GrossSharpeRatio: math.NaN(),
		SortinoRatio:     math.NaN(),
		CalmarRatio:      math.NaN(),
		CVaR95:           math.NaN(),
		CVaR99:           math.NaN(),
		WinRate:          math.NaN(),
		TotalCost:        totalCost,
	}
	if len(curve) == 0 {
		return m
	}
	m.FinalValue = curve[len(curve)-1].Equity

	// The first point has no prior equity, so its return is excluded.
	returns := make([]float64, 0, len(curve)-1)
	gross := make([]float64, 0, len(curve)-1)
	for _, p := range curve[1:] {
		returns = append(returns, p.DailyReturn)
		gross = append(gross, p.GrossReturn)
	}
	m.TotalPeriods = len(returns)

	m.MaxDrawdown = maxDrawdown(curve)
	if len(returns) == 0 {
		return m
	}

	mean := meanOf(returns)
	std := stdOf(returns, mean)
	m.AnnualizedReturn = mean * periodsPerYear
	m.AnnualizedVolatility = std * math.Sqrt(periodsPerYear)

	m.SharpeRatio = sharpe(returns)
	m.GrossSharpeRatio = sharpe(gross)
	m.SortinoRatio = sortino(returns, mean)
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.AnnualizedReturn / m.MaxDrawdown
	}
	m.CVaR95 = CVaR(returns, 0.95)
	m.CVaR99 = CVaR(returns, 0.99)

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	m.WinRate = float64(wins) / float64(len(returns))

	return m
}

// sharpe is the annualized mean over standard deviation of daily returns.
// NaN when the sample has fewer than two returns or zero variance.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	mean := meanOf(returns)
	std := stdOf(returns, mean)
	if std == 0 {
		return math.NaN()
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// sortino replaces total volatility with downside volatility.
func sortino(returns []float64, mean float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return math.NaN()
	}
	dstd := stdOf(downside, meanOf(downside))
	if dstd == 0 {
		return math.NaN()
	}
	return mean / dstd * math.Sqrt(periodsPerYear)
}

// maxDrawdown is the largest peak-to-trough equity decline, found in a
// single forward pass tracking the running peak.
func maxDrawdown(curve []core.EquityPoint) float64 {
	var maxDD, peak float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// CVaR is the mean of returns at or below the empirical (1-alpha)-quantile:
// the expected loss over the worst (1-alpha) fraction of days.
func CVaR(returns []float64, alpha float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	threshold := quantile(returns, 1-alpha)

	var sum float64
	var n int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// quantile computes the q-th empirical quantile with linear interpolation
// between order statistics.
func quantile(xs []float64, q float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdOf is the sample standard deviation (n-1 denominator).
func stdOf(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return math.Sqrt(variance / float64(len(xs)-1))
}

// MarshalJSON renders NaN ratio fields as null so undefined statistics are
// reported, not errors.
func (m Metrics) MarshalJSON() ([]byte, error) {
	f := func(v float64) any {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	}
	return json.Marshal(map[string]any{
		"sharpe_ratio":          f(m.SharpeRatio),
		"gross_sharpe_ratio":    f(m.GrossSharpeRatio),
		"sortino_ratio":         f(m.SortinoRatio),
		"calmar_ratio":          f(m.CalmarRatio),
		"annualized_return":     f(m.AnnualizedReturn),
		"annualized_volatility": f(m.AnnualizedVolatility),
		"max_drawdown":          f(m.MaxDrawdown),
		"cvar_95":               f(m.CVaR95),
		"cvar_99":               f(m.CVaR99),
		"win_rate":              f(m.WinRate),
		"final_value":           m.FinalValue,
		"total_cost":            m.TotalCost,
		"total_periods":         m.TotalPeriods,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON; null fields decode to NaN.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f := func(key string) float64 {
		if v, ok := raw[key]; ok && v != nil {
			return *v
		}
		return math.NaN()
	}
	m.SharpeRatio = f("sharpe_ratio")
	m.GrossSharpeRatio = f("gross_sharpe_ratio")
	m.SortinoRatio = f("sortino_ratio")
	m.CalmarRatio = f("calmar_ratio")
	m.AnnualizedReturn = f("annualized_return")
	m.AnnualizedVolatility = f("annualized_volatility")
	m.MaxDrawdown = f("max_drawdown")
	m.CVaR95 = f("cvar_95")
	m.CVaR99 = f("cvar_99")
	m.WinRate = f("win_rate")
	if v, ok := raw["final_value"]; ok && v != nil {
		m.FinalValue = *v
	}
	if v, ok := raw["total_cost"]; ok && v != nil {
		m.TotalCost = *v
	}
	if v, ok := raw["total_periods"]; ok && v != nil {
		m.TotalPeriods = int(*v)
	}
	return nil
}
