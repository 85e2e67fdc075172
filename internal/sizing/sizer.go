// Package sizing translates signal weights into integer share targets
// bounded by available capital.
package sizing

import (
	"math"

	"github.com/newthinker/quantsim/internal/core"
)

// Targets holds the sized positions plus the capital-constraint scale that
// was applied. Scale < 1 means the requested gross exposure exceeded the
// available capital and all weights were clipped proportionally.
type Targets struct {
	Positions []core.TargetPosition
	Scale     float64
}

// Size converts signal weights into share targets at the given close prices.
//
// Signal weights sum to +1 per long bucket and -1 per short bucket; they
// are normalized by total gross weight and allocated capital*grossExposure
// dollars. When that requested exposure exceeds the available capital the
// allocation is clipped proportionally rather than rejected. Share counts
// are floored toward zero; fractional shares are not permitted and the
// residual stays in cash. Tickers without a close price are skipped
// entirely. Output preserves the input signal order.
func Size(signals []core.Signal, capital, grossExposure float64, closes map[string]float64) Targets {
	grossWeight := 0.0
	for _, sig := range signals {
		if _, ok := closes[sig.Ticker]; ok {
			grossWeight += math.Abs(sig.Weight)
		}
	}

	t := Targets{Scale: 1}
	if grossWeight == 0 || capital <= 0 {
		return t
	}

	requested := capital * grossExposure
	if requested > capital {
		t.Scale = capital / requested
	}

	allocatable := requested * t.Scale
	t.Positions = make([]core.TargetPosition, 0, len(signals))
	for _, sig := range signals {
		price, ok := closes[sig.Ticker]
		if !ok || price <= 0 {
			continue
		}

		weight := sig.Weight / grossWeight * grossExposure * t.Scale
		dollars := allocatable * sig.Weight / grossWeight
		shares := int64(math.Floor(math.Abs(dollars) / price))
		if dollars < 0 {
			shares = -shares
		}

		t.Positions = append(t.Positions, core.TargetPosition{
			Ticker:       sig.Ticker,
			TargetWeight: weight,
			TargetShares: shares,
		})
	}

	return t
}
