// Package synthetic produces seeded random-walk bar tables with precomputed,
// pre-lagged feature columns. It plays the upstream feature-provider role
// for demos and determinism tests: feature values on a bar are derived only
// from closes strictly before that bar's date.
package synthetic

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
)

// Feature column names emitted by the generator.
const (
	FeatureMomentum60 = "momentum_60d"
	FeatureSMA20Gap   = "sma_20_gap"
	FeatureVol21      = "volatility_21d"
)

// Config controls the generated universe. Seed drives every random draw;
// identical configs produce identical tables.
type Config struct {
	Tickers   int
	Days      int
	StartDate time.Time
	Seed      int64
	// ZeroVolumeRate is the fraction of bars emitted with zero volume, to
	// exercise no-liquidity handling downstream.
	ZeroVolumeRate float64
}

// Generate builds the bar/feature table, sorted date ascending and ticker
// ascending within date. Weekends are skipped so dates form a plausible
// trading calendar.
func Generate(cfg Config) ([]core.Bar, error) {
	if cfg.Tickers < 1 || cfg.Days < 1 {
		return nil, fmt.Errorf("tickers and days must be positive, got %d/%d", cfg.Tickers, cfg.Days)
	}
	start := cfg.StartDate
	if start.IsZero() {
		start = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	type tickerState struct {
		name      string
		drift     float64
		vol       float64
		marketCap float64
		closes    []float64
	}
	states := make([]*tickerState, cfg.Tickers)
	for i := range states {
		states[i] = &tickerState{
			name:      tickerName(i),
			drift:     (rng.Float64() - 0.45) * 0.001,
			vol:       0.01 + rng.Float64()*0.02,
			marketCap: math.Exp(rng.Float64()*5) * 1e9, // ~1B to ~150B
			closes:    []float64{50 + rng.Float64()*150},
		}
	}

	dates := tradingCalendar(start, cfg.Days)

	var bars []core.Bar
	for _, date := range dates {
		for _, st := range states {
			prev := st.closes[len(st.closes)-1]
			ret := st.drift + st.vol*rng.NormFloat64()
			close := prev * (1 + ret)
			if close < 1 {
				close = 1
			}

			high := close * (1 + rng.Float64()*st.vol)
			low := prev * (1 - rng.Float64()*st.vol)
			if low > close {
				low = close
			}
			volume := int64(1e5 + rng.Float64()*2e6)
			if cfg.ZeroVolumeRate > 0 && rng.Float64() < cfg.ZeroVolumeRate {
				volume = 0
			}

			bars = append(bars, core.Bar{
				Date:      date,
				Ticker:    st.name,
				Open:      prev,
				High:      high,
				Low:       low,
				Close:     close,
				Volume:    volume,
				MarketCap: st.marketCap,
				Features:  features(st.closes),
			})

			st.closes = append(st.closes, close)
		}
	}
	return bars, nil
}

// features computes the feature snapshot from the close history strictly
// before the current bar. Early bars with insufficient history get no
// value for the affected feature, mirroring real providers.
func features(history []float64) map[string]float64 {
	f := make(map[string]float64, 3)

	if n := len(history); n >= 61 {
		f[FeatureMomentum60] = history[n-1]/history[n-61] - 1
	}

	if sma := indicator.SMA(history, 20); len(sma) > 0 {
		f[FeatureSMA20Gap] = history[len(history)-1]/sma[len(sma)-1] - 1
	}

	if n := len(history); n >= 22 {
		returns := make([]float64, 0, 21)
		for i := n - 21; i < n; i++ {
			returns = append(returns, history[i]/history[i-1]-1)
		}
		f[FeatureVol21] = indicator.Std(returns)
	}

	if len(f) == 0 {
		return nil
	}
	return f
}

// tradingCalendar returns count weekday dates starting at or after start.
func tradingCalendar(start time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	d := start
	for len(dates) < count {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

// tickerName maps an index to a short synthetic symbol: SYMA, SYMB, ...,
// SYMAA, and so on.
func tickerName(i int) string {
	name := ""
	for {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	return "SYM" + name
}
