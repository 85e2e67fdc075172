package engine

import (
	"fmt"
	"time"

	"github.com/newthinker/quantsim/internal/core"
)

// observation is one ticker's feature snapshot as of a single date.
type observation struct {
	date     time.Time
	features map[string]float64
}

// lagBuffer holds, per ticker, the most recent feature observations and
// releases only the one that is lagDays trading observations old. It is the
// explicit, sequential form of a whole-table group-shift: a value observed
// at date d becomes visible at the ticker's lagDays-th following bar.
type lagBuffer struct {
	lag int
	buf map[string][]observation
}

func newLagBuffer(lag int) *lagBuffer {
	return &lagBuffer{
		lag: lag,
		buf: make(map[string][]observation),
	}
}

// Push records a ticker's feature snapshot for a date. Only the last lag+1
// observations are retained.
func (b *lagBuffer) Push(ticker string, date time.Time, features map[string]float64) {
	obs := append(b.buf[ticker], observation{date: date, features: features})
	if len(obs) > b.lag+1 {
		obs = obs[len(obs)-b.lag-1:]
	}
	b.buf[ticker] = obs
}

// Visible returns the observation released for a decision at the given
// date: the one lag pushes old. ok is false while the ticker has too little
// history. A released observation dated on or after the decision date is a
// walk-forward violation and aborts the run.
func (b *lagBuffer) Visible(ticker string, decision time.Time) (observation, bool, error) {
	obs := b.buf[ticker]
	idx := len(obs) - 1 - b.lag
	if idx < 0 {
		return observation{}, false, nil
	}
	released := obs[idx]
	if !released.date.Before(decision) {
		return observation{}, false, core.WrapError(core.ErrSequenceViolation,
			fmt.Errorf("%s: observation dated %s released for decision at %s",
				ticker, released.date.Format("2006-01-02"), decision.Format("2006-01-02")))
	}
	return released, true, nil
}
