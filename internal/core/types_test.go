package core

import (
	"testing"
	"time"
)

func TestDirectionSign(t *testing.T) {
	if DirectionLong.Sign() != 1 {
		t.Error("long sign should be +1")
	}
	if DirectionShort.Sign() != -1 {
		t.Error("short sign should be -1")
	}
	if DirectionFlat.Sign() != 0 {
		t.Error("flat sign should be 0")
	}
}

func TestBarIsValid(t *testing.T) {
	valid := Bar{Date: time.Now(), Ticker: "AAA", Close: 100}
	if !valid.IsValid() {
		t.Error("bar with ticker, date, and positive close should be valid")
	}

	cases := []Bar{
		{Date: time.Now(), Close: 100},                 // no ticker
		{Ticker: "AAA", Close: 100},                    // zero date
		{Date: time.Now(), Ticker: "AAA"},              // no close
		{Date: time.Now(), Ticker: "AAA", Close: -1.0}, // negative close
	}
	for i, b := range cases {
		if b.IsValid() {
			t.Errorf("case %d: bar should be invalid", i)
		}
	}
}

func TestBarFeature(t *testing.T) {
	b := Bar{Features: map[string]float64{"momentum_60d": 0.12}}
	if v, ok := b.Feature("momentum_60d"); !ok || v != 0.12 {
		t.Errorf("Feature() = %v, %v", v, ok)
	}
	if _, ok := b.Feature("missing"); ok {
		t.Error("missing feature should report ok=false")
	}

	var empty Bar
	if _, ok := empty.Feature("momentum_60d"); ok {
		t.Error("nil feature map should report ok=false")
	}
}

func TestTradeValue(t *testing.T) {
	buy := Trade{DeltaShares: 100, ExecutionPrice: 50}
	if buy.Value() != 5000 {
		t.Errorf("Value() = %f, want 5000", buy.Value())
	}
	sell := Trade{DeltaShares: -100, ExecutionPrice: 50}
	if sell.Value() != -5000 {
		t.Errorf("Value() = %f, want -5000", sell.Value())
	}
}
