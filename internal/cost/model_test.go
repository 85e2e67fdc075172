package cost

import (
	"errors"
	"math"
	"testing"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
)

func defaultModel() *Model {
	return NewModel(config.Defaults().Costs)
}

func TestPriceTrade_ZeroShares(t *testing.T) {
	b, err := defaultModel().PriceTrade(TickerMeta{Ticker: "AAA", DailyVolume: 1e6}, 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalCost != 0 {
		t.Errorf("zero-share trade cost = %f, want 0", b.TotalCost)
	}
}

func TestPriceTrade_NoLiquidity(t *testing.T) {
	_, err := defaultModel().PriceTrade(TickerMeta{Ticker: "AAA", DailyVolume: 0}, 100, 500)
	if err == nil {
		t.Fatal("zero volume with non-zero shares must error, never price as free")
	}
	if !errors.Is(err, core.ErrNoLiquidity) {
		t.Errorf("error = %v, want NO_LIQUIDITY", err)
	}
}

func TestPriceTrade_BadPrice(t *testing.T) {
	_, err := defaultModel().PriceTrade(TickerMeta{Ticker: "AAA", DailyVolume: 1e6}, 0, 500)
	if !errors.Is(err, core.ErrDataQuality) {
		t.Errorf("error = %v, want DATA_QUALITY", err)
	}
}

func TestSpreadBps_Tiers(t *testing.T) {
	m := defaultModel()
	cases := []struct {
		marketCap float64
		want      float64
	}{
		{200e9, 2},  // mega cap
		{100e9, 2},  // boundary belongs to the higher tier
		{50e9, 5},   // mid tier
		{10e9, 5},   // boundary
		{5e9, 10},   // small cap
		{0, 10},     // catch-all
	}
	for _, c := range cases {
		if got := m.SpreadBps(c.marketCap); got != c.want {
			t.Errorf("SpreadBps(%g) = %f, want %f", c.marketCap, got, c.want)
		}
	}
}

func TestPriceTrade_Components(t *testing.T) {
	m := defaultModel()
	meta := TickerMeta{Ticker: "AAA", MarketCap: 200e9, DailyVolume: 1_000_000, Volatility: 0.02}

	// 10_000 shares at $100: value $1M.
	b, err := m.PriceTrade(meta, 100, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Spread: 2 bps of $1M = $200.
	if math.Abs(b.SpreadCost-200) > 1e-9 {
		t.Errorf("SpreadCost = %f, want 200", b.SpreadCost)
	}

	// Impact: 1e6 * 0.7 * (0.01)^0.6 * 0.02.
	wantImpact := 1e6 * 0.7 * math.Pow(0.01, 0.6) * 0.02
	if math.Abs(b.ImpactCost-wantImpact) > 1e-6 {
		t.Errorf("ImpactCost = %f, want %f", b.ImpactCost, wantImpact)
	}

	// Fee: $0.005 * 10_000 = $50, above the $1 floor, below the 1% cap.
	if math.Abs(b.FeeCost-50) > 1e-9 {
		t.Errorf("FeeCost = %f, want 50", b.FeeCost)
	}

	if math.Abs(b.TotalCost-(b.SpreadCost+b.ImpactCost+b.FeeCost)) > 1e-9 {
		t.Error("TotalCost must equal the sum of components")
	}
}

func TestPriceTrade_FeeFloorAndCap(t *testing.T) {
	m := defaultModel()
	meta := TickerMeta{Ticker: "AAA", MarketCap: 200e9, DailyVolume: 1_000_000, Volatility: 0.02}

	// 10 shares: per-share fee $0.05 is below the $1 floor.
	b, err := m.PriceTrade(meta, 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.FeeCost != 1 {
		t.Errorf("FeeCost = %f, want floor 1", b.FeeCost)
	}

	// 10_000 shares at $0.20: per-share fee $50 exceeds 1% of $2000 = $20.
	b, err = m.PriceTrade(meta, 0.20, 10_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(b.FeeCost-20) > 1e-9 {
		t.Errorf("FeeCost = %f, want cap 20", b.FeeCost)
	}
}

func TestPriceTrade_SignSymmetry(t *testing.T) {
	m := defaultModel()
	meta := TickerMeta{Ticker: "AAA", MarketCap: 50e9, DailyVolume: 500_000, Volatility: 0.015}

	buy, err := m.PriceTrade(meta, 42, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sell, err := m.PriceTrade(meta, 42, -1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buy.TotalCost != sell.TotalCost {
		t.Errorf("buy cost %f != sell cost %f", buy.TotalCost, sell.TotalCost)
	}
}

func TestPriceTrade_MonotoneInShares(t *testing.T) {
	m := defaultModel()
	meta := TickerMeta{Ticker: "AAA", MarketCap: 5e9, DailyVolume: 2_000_000, Volatility: 0.03}

	prev := 0.0
	for _, shares := range []int64{10, 100, 1000, 10_000, 100_000} {
		b, err := m.PriceTrade(meta, 75, shares)
		if err != nil {
			t.Fatalf("shares=%d: %v", shares, err)
		}
		if b.TotalCost <= prev {
			t.Errorf("cost at %d shares (%f) not greater than previous (%f)", shares, b.TotalCost, prev)
		}
		prev = b.TotalCost
	}
}
