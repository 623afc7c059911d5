package main

import (
	"math/rand"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}
	if got := percentile(samples, 50); got != 50*time.Millisecond {
		t.Fatalf("p50 = %s", got)
	}
	if got := percentile(samples, 100); got != 100*time.Millisecond {
		t.Fatalf("p100 = %s", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %s", got)
	}
}

func TestRunPhaseCountsFailures(t *testing.T) {
	s := runPhase(100, 4, 13, func(r *rand.Rand) error {
		if r.Intn(2) == 0 {
			return nil
		}
		return errTest
	})
	if s.ops != 100 {
		t.Fatalf("ops = %d", s.ops)
	}
	if s.failures < 0 || s.failures > 100 {
		t.Fatalf("failures = %d", s.failures)
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("boom")
