package synthetic

import (
	"testing"
	"time"
)

func TestGenerate_Shape(t *testing.T) {
	bars, err := Generate(Config{Tickers: 5, Days: 30, Seed: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(bars) != 5*30 {
		t.Fatalf("got %d bars, want 150", len(bars))
	}

	for _, b := range bars {
		if !b.IsValid() {
			t.Fatalf("invalid bar generated: %+v", b)
		}
		if wd := b.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("weekend date generated: %s", b.Date)
		}
		if b.MarketCap <= 0 || b.High < b.Close || b.Low > b.Close {
			t.Fatalf("inconsistent bar: %+v", b)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := Config{Tickers: 8, Days: 40, Seed: 99}
	a, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		if a[i].Ticker != b[i].Ticker || a[i].Close != b[i].Close || a[i].Volume != b[i].Volume {
			t.Fatalf("bar %d differs between identical seeds", i)
		}
		for name, v := range a[i].Features {
			if b[i].Features[name] != v {
				t.Fatalf("bar %d feature %s differs", i, name)
			}
		}
	}

	cfg.Seed = 100
	c, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i].Close != c[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical price paths")
	}
}

func TestGenerate_FeatureWarmup(t *testing.T) {
	bars, err := Generate(Config{Tickers: 1, Days: 80, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}

	// Momentum needs 61 prior closes; early bars must not carry it.
	if _, ok := bars[0].Feature(FeatureMomentum60); ok {
		t.Error("first bar should have no momentum feature")
	}
	if _, ok := bars[79].Feature(FeatureMomentum60); !ok {
		t.Error("late bars should carry the momentum feature")
	}

	// The SMA gap appears once 20 closes of history exist.
	if _, ok := bars[25].Feature(FeatureSMA20Gap); !ok {
		t.Error("bar 25 should carry the sma gap feature")
	}
	if _, ok := bars[25].Feature(FeatureVol21); !ok {
		t.Error("bar 25 should carry the volatility feature")
	}
}

func TestGenerate_ZeroVolumeInjection(t *testing.T) {
	bars, err := Generate(Config{Tickers: 10, Days: 50, Seed: 5, ZeroVolumeRate: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	zeros := 0
	for _, b := range bars {
		if b.Volume == 0 {
			zeros++
		}
	}
	if zeros == 0 {
		t.Error("expected some zero-volume bars at rate 0.2")
	}
}

func TestGenerate_RejectsBadConfig(t *testing.T) {
	if _, err := Generate(Config{Tickers: 0, Days: 10}); err == nil {
		t.Error("zero tickers should error")
	}
	if _, err := Generate(Config{Tickers: 3, Days: 0}); err == nil {
		t.Error("zero days should error")
	}
}
