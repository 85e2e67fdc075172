package signal

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
)

var testDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestGenerator(longPct, shortPct float64) *Generator {
	cfg := config.Defaults().Strategy
	cfg.SignalFeature = "momentum_60d"
	cfg.LongPct = longPct
	cfg.ShortPct = shortPct
	return NewGenerator(cfg)
}

func obs(ticker string, score float64) Observation {
	return Observation{Ticker: ticker, Features: map[string]float64{"momentum_60d": score}}
}

func TestGenerate_Buckets(t *testing.T) {
	g := newTestGenerator(0.34, 0.34)
	res := g.Generate(testDate, []Observation{
		obs("BBB", 0.5),
		obs("AAA", 0.9),
		obs("CCC", 0.1),
	})

	if len(res.Signals) != 3 {
		t.Fatalf("got %d signals, want 3", len(res.Signals))
	}

	byTicker := make(map[string]core.Signal)
	for _, s := range res.Signals {
		byTicker[s.Ticker] = s
	}

	if byTicker["AAA"].Direction != core.DirectionLong || byTicker["AAA"].Weight != 1 {
		t.Errorf("AAA = %+v, want long weight 1", byTicker["AAA"])
	}
	if byTicker["CCC"].Direction != core.DirectionShort || byTicker["CCC"].Weight != -1 {
		t.Errorf("CCC = %+v, want short weight -1", byTicker["CCC"])
	}
	if byTicker["BBB"].Direction != core.DirectionFlat || byTicker["BBB"].Weight != 0 {
		t.Errorf("BBB = %+v, want flat weight 0", byTicker["BBB"])
	}

	// Output is rank order, rank 1 is the highest score.
	if res.Signals[0].Ticker != "AAA" || res.Signals[0].Rank != 1 {
		t.Errorf("rank 1 = %+v, want AAA", res.Signals[0])
	}
}

func TestGenerate_DollarNeutral(t *testing.T) {
	g := newTestGenerator(0.3, 0.3)
	universe := make([]Observation, 0, 20)
	for i := 0; i < 20; i++ {
		universe = append(universe, obs(ticker(i), float64(i)*0.01))
	}
	res := g.Generate(testDate, universe)

	var longSum, shortSum float64
	for _, s := range res.Signals {
		switch s.Direction {
		case core.DirectionLong:
			longSum += s.Weight
		case core.DirectionShort:
			shortSum += s.Weight
		}
	}
	if math.Abs(longSum-1) > 1e-12 {
		t.Errorf("long weights sum to %f, want 1", longSum)
	}
	if math.Abs(shortSum+1) > 1e-12 {
		t.Errorf("short weights sum to %f, want -1", shortSum)
	}
}

func TestGenerate_TieBreakByTicker(t *testing.T) {
	g := newTestGenerator(0.34, 0.34)

	// All equal scores: ranking falls back to ticker ascending, so the
	// bucketing is fully determined by ticker order.
	res := g.Generate(testDate, []Observation{
		obs("CCC", 0.5),
		obs("AAA", 0.5),
		obs("BBB", 0.5),
	})

	if res.Signals[0].Ticker != "AAA" || res.Signals[0].Direction != core.DirectionLong {
		t.Errorf("first = %+v, want AAA long", res.Signals[0])
	}
	if res.Signals[2].Ticker != "CCC" || res.Signals[2].Direction != core.DirectionShort {
		t.Errorf("last = %+v, want CCC short", res.Signals[2])
	}
}

func TestGenerate_ExcludesUnusableScores(t *testing.T) {
	g := newTestGenerator(0.3, 0.3)
	res := g.Generate(testDate, []Observation{
		obs("AAA", 0.9),
		{Ticker: "BBB", Features: map[string]float64{"other": 1}},         // missing
		{Ticker: "CCC", Features: map[string]float64{"momentum_60d": math.NaN()}}, // NaN
		{Ticker: "DDD", Features: map[string]float64{"momentum_60d": math.Inf(1)}}, // Inf
		{Ticker: "EEE"}, // nil features
	})

	if len(res.Signals) != 1 {
		t.Fatalf("got %d signals, want 1", len(res.Signals))
	}
	if len(res.Excluded) != 4 {
		t.Fatalf("got %d excluded, want 4", len(res.Excluded))
	}
	// Excluded list is sorted for deterministic reporting.
	want := []string{"BBB", "CCC", "DDD", "EEE"}
	for i, w := range want {
		if res.Excluded[i] != w {
			t.Errorf("excluded[%d] = %s, want %s", i, res.Excluded[i], w)
		}
	}
}

func TestGenerate_EmptyUniverse(t *testing.T) {
	g := newTestGenerator(0.3, 0.3)
	res := g.Generate(testDate, nil)
	if len(res.Signals) != 0 {
		t.Errorf("empty universe produced %d signals", len(res.Signals))
	}
}

func TestGenerate_SmallUniverseAllFlat(t *testing.T) {
	g := newTestGenerator(0.3, 0.3)

	// Two tickers: int(0.3*2) = 0 per bucket, everything stays flat.
	res := g.Generate(testDate, []Observation{obs("AAA", 0.9), obs("BBB", 0.1)})
	for _, s := range res.Signals {
		if s.Direction != core.DirectionFlat {
			t.Errorf("%s = %s, want flat", s.Ticker, s.Direction)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := newTestGenerator(0.3, 0.3)
	universe := []Observation{obs("AAA", 0.3), obs("BBB", 0.3), obs("CCC", 0.9), obs("DDD", 0.1)}

	first := g.Generate(testDate, universe)
	for i := 0; i < 10; i++ {
		again := g.Generate(testDate, universe)
		for j := range first.Signals {
			if first.Signals[j] != again.Signals[j] {
				t.Fatalf("run %d: signal %d differs: %+v vs %+v", i, j, first.Signals[j], again.Signals[j])
			}
		}
	}
}

func ticker(i int) string {
	return string(rune('A'+i/26)) + string(rune('A'+i%26))
}
