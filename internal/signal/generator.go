// Package signal converts a cross-sectional feature snapshot into per-ticker
// directional signals by ranking the universe on a single configured feature.
package signal

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
)

// Observation is one ticker's visible (lag-released) feature snapshot.
type Observation struct {
	Ticker   string
	Features map[string]float64
}

// Result holds the generated signals plus the tickers excluded from the
// date's universe for missing or non-finite feature values.
type Result struct {
	Signals  []core.Signal
	Excluded []string
}

// Generator ranks the cross-section on one feature and buckets it into
// equal-weighted long, short, and flat groups.
type Generator struct {
	feature  string
	longPct  float64
	shortPct float64
}

// NewGenerator creates a generator from validated strategy configuration.
func NewGenerator(cfg config.StrategyConfig) *Generator {
	return &Generator{
		feature:  cfg.SignalFeature,
		longPct:  cfg.LongPct,
		shortPct: cfg.ShortPct,
	}
}

// Generate ranks all tickers with a usable feature value at the given date.
// The top longPct fraction goes long, the bottom shortPct fraction goes
// short, the remainder stays flat. Within each non-flat bucket positions
// are equal-weighted, so long weights sum to +1 and short weights to -1.
//
// Missing or non-finite feature values exclude the ticker from this date's
// universe only; they are reported, not fatal. Output order is rank order.
func (g *Generator) Generate(date time.Time, universe []Observation) Result {
	type entry struct {
		ticker string
		score  float64
	}

	entries := make([]entry, 0, len(universe))
	var excluded []string
	for _, obs := range universe {
		score, ok := obs.Features[g.feature]
		if !ok || math.IsNaN(score) || math.IsInf(score, 0) {
			excluded = append(excluded, obs.Ticker)
			continue
		}
		entries = append(entries, entry{ticker: obs.Ticker, score: score})
	}
	sort.Strings(excluded)

	// Rank descending by score; boundary ties break ascending by ticker so
	// identical inputs always bucket identically.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].ticker < entries[j].ticker
	})

	n := len(entries)
	nLong := int(g.longPct * float64(n))
	nShort := int(g.shortPct * float64(n))

	signals := make([]core.Signal, 0, n)
	for i, e := range entries {
		sig := core.Signal{
			Date:      date,
			Ticker:    e.ticker,
			Direction: core.DirectionFlat,
			Rank:      i + 1,
			Score:     e.score,
		}
		switch {
		case i < nLong:
			sig.Direction = core.DirectionLong
			sig.Weight = 1 / float64(nLong)
		case i >= n-nShort:
			sig.Direction = core.DirectionShort
			sig.Weight = -1 / float64(nShort)
		}
		signals = append(signals, sig)
	}

	return Result{Signals: signals, Excluded: excluded}
}
