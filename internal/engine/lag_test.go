package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/quantsim/internal/core"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestLagBuffer_NotReady(t *testing.T) {
	b := newLagBuffer(1)
	b.Push("AAA", day(0), map[string]float64{"f": 1})

	// Only one observation: nothing released yet for lag 1... the single
	// push is the releasable one once a second arrives.
	b2 := newLagBuffer(2)
	b2.Push("AAA", day(0), nil)
	b2.Push("AAA", day(1), nil)
	if _, ok, err := b2.Visible("AAA", day(1)); ok || err != nil {
		t.Errorf("lag 2 with 2 pushes: ok=%v err=%v, want not ready", ok, err)
	}

	if _, ok, err := b.Visible("UNKNOWN", day(5)); ok || err != nil {
		t.Errorf("unknown ticker: ok=%v err=%v, want not ready", ok, err)
	}
}

func TestLagBuffer_ReleasesLaggedObservation(t *testing.T) {
	b := newLagBuffer(1)
	b.Push("AAA", day(0), map[string]float64{"f": 1})
	b.Push("AAA", day(1), map[string]float64{"f": 2})

	obs, ok, err := b.Visible("AAA", day(1))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !obs.date.Equal(day(0)) || obs.features["f"] != 1 {
		t.Errorf("released %v, want day 0 value 1", obs)
	}

	// Next date releases the next observation.
	b.Push("AAA", day(2), map[string]float64{"f": 3})
	obs, ok, err = b.Visible("AAA", day(2))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if obs.features["f"] != 2 {
		t.Errorf("released value %f, want 2", obs.features["f"])
	}
}

func TestLagBuffer_LongerLag(t *testing.T) {
	b := newLagBuffer(3)
	for i := 0; i < 5; i++ {
		b.Push("AAA", day(i), map[string]float64{"f": float64(i)})
	}
	obs, ok, err := b.Visible("AAA", day(4))
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if obs.features["f"] != 1 {
		t.Errorf("released value %f, want 1 (three behind)", obs.features["f"])
	}
}

func TestLagBuffer_SequenceViolation(t *testing.T) {
	b := newLagBuffer(1)
	b.Push("AAA", day(0), nil)
	b.Push("AAA", day(1), nil)

	// Decision at day 0 would release the day-0 observation: same date,
	// which is information the decision must not have.
	_, _, err := b.Visible("AAA", day(0))
	if err == nil {
		t.Fatal("reading an observation at its own date must fail")
	}
	if !errors.Is(err, core.ErrSequenceViolation) {
		t.Errorf("error = %v, want SEQUENCE_VIOLATION", err)
	}
}
