package signals

import (
	"math"
	"testing"
)

func pts(counts ...float64) []Point {
	points := make([]Point, 0, len(counts))
	for i, c := range counts {
		points = append(points, Point{Label: labelFor(i), Count: c})
	}
	return points
}

func labelFor(i int) string {
	return "2025-" + string(rune('0'+(i/10)%10)) + string(rune('0'+i%10)) + "-01"
}

func TestComputeNotEnoughPoints(t *testing.T) {
	for _, points := range [][]Point{nil, pts(5)} {
		got := Compute(points, DefaultBaselineWindow, DefaultMinBaselineMean)
		if !got.InsufficientData() {
			t.Fatalf("expected sentinel for %d points", len(points))
		}
		if got.Error != ErrNotEnoughPoints {
			t.Fatalf("unexpected error token: %q", got.Error)
		}
		if got.NumPoints != len(points) {
			t.Fatalf("num_points mismatch: %d", got.NumPoints)
		}
		if got.Signals != nil || got.LastBucket != nil {
			t.Fatalf("sentinel result carries data: %+v", got)
		}
	}
}

func TestComputeTwoPointsHasNoBaseline(t *testing.T) {
	got := Compute(pts(10, 20), DefaultBaselineWindow, DefaultMinBaselineMean)
	if got.InsufficientData() {
		t.Fatalf("two points should compute: %+v", got)
	}
	lvp := got.Signals.LastVsPrev
	if lvp.Abs != 10 {
		t.Fatalf("unexpected abs delta: %v", lvp.Abs)
	}
	if lvp.Pct == nil || math.Abs(*lvp.Pct-1.0) > 1e-9 {
		t.Fatalf("unexpected pct delta: %v", lvp.Pct)
	}
	lvb := got.Signals.LastVsBaseline
	if lvb.BaselineMean != nil || lvb.BaselineSD != nil || lvb.Ratio != nil || lvb.Z != nil {
		t.Fatalf("baseline fields should be nil with two points: %+v", lvb)
	}
}

func TestComputePctNilOnZeroPrev(t *testing.T) {
	got := Compute(pts(0, 7), DefaultBaselineWindow, DefaultMinBaselineMean)
	if got.Signals.LastVsPrev.Pct != nil {
		t.Fatalf("pct should be nil when prev is zero: %v", *got.Signals.LastVsPrev.Pct)
	}
	if got.Signals.LastVsPrev.Abs != 7 {
		t.Fatalf("unexpected abs: %v", got.Signals.LastVsPrev.Abs)
	}
}

func TestComputeBaselineStatistics(t *testing.T) {
	// Baseline is the window of buckets before the last one.
	points := pts(100, 110, 90, 100, 95, 105, 100, 100, 300)
	got := Compute(points, DefaultBaselineWindow, DefaultMinBaselineMean)
	lvb := got.Signals.LastVsBaseline

	if lvb.BaselineMean == nil || math.Abs(*lvb.BaselineMean-100) > 1e-9 {
		t.Fatalf("unexpected baseline mean: %v", lvb.BaselineMean)
	}
	if lvb.BaselineSD == nil || *lvb.BaselineSD <= 0 {
		t.Fatalf("expected positive baseline sd: %v", lvb.BaselineSD)
	}
	if lvb.Ratio == nil || math.Abs(*lvb.Ratio-3.0) > 1e-9 {
		t.Fatalf("unexpected ratio: %v", lvb.Ratio)
	}
	if lvb.Z == nil || *lvb.Z <= 0 {
		t.Fatalf("expected positive z: %v", lvb.Z)
	}
	if z, ok := got.ZScore(); !ok || z != *lvb.Z {
		t.Fatalf("ZScore accessor mismatch: %v %v", z, ok)
	}
}

func TestComputeGuardrailSuppressesScores(t *testing.T) {
	// Baseline mean of 2 is under the default guardrail of 10.
	got := Compute(pts(2, 2, 2, 2, 40), DefaultBaselineWindow, DefaultMinBaselineMean)
	lvb := got.Signals.LastVsBaseline
	if lvb.BaselineMean == nil {
		t.Fatal("baseline mean should still be reported")
	}
	if lvb.Ratio != nil || lvb.Z != nil {
		t.Fatalf("guardrail should null ratio and z: %+v", lvb)
	}
	if _, ok := got.ZScore(); ok {
		t.Fatal("ZScore should report absence")
	}
}

func TestComputeZeroVarianceBaseline(t *testing.T) {
	// Flat baseline: sd is zero, so z stays nil while ratio is real.
	got := Compute(pts(50, 50, 50, 50, 100), DefaultBaselineWindow, DefaultMinBaselineMean)
	lvb := got.Signals.LastVsBaseline
	if lvb.BaselineSD == nil || *lvb.BaselineSD != 0 {
		t.Fatalf("expected zero sd: %v", lvb.BaselineSD)
	}
	if lvb.Ratio == nil || *lvb.Ratio != 2.0 {
		t.Fatalf("unexpected ratio: %v", lvb.Ratio)
	}
	if lvb.Z != nil {
		t.Fatalf("z should be nil with zero sd: %v", *lvb.Z)
	}
}

func TestComputeBaselineWindowBounds(t *testing.T) {
	// A window larger than the series clamps to everything before the last bucket.
	points := pts(10, 20, 30, 40)
	got := Compute(points, 100, 0.1)
	lvb := got.Signals.LastVsBaseline
	if lvb.BaselineMean == nil || math.Abs(*lvb.BaselineMean-20) > 1e-9 {
		t.Fatalf("unexpected clamped mean: %v", lvb.BaselineMean)
	}
	if lvb.BaselineWindow != 100 {
		t.Fatalf("window not echoed: %d", lvb.BaselineWindow)
	}
}

func TestComputeDeterministic(t *testing.T) {
	points := pts(12, 15, 11, 14, 13, 40)
	a := Compute(points, 4, 5)
	b := Compute(points, 4, 5)
	if *a.Signals.LastVsBaseline.Z != *b.Signals.LastVsBaseline.Z {
		t.Fatal("compute is not deterministic")
	}
}

func TestSampleStddev(t *testing.T) {
	if got := sampleStddev([]float64{5}); got != 0 {
		t.Fatalf("single sample should yield 0, got %v", got)
	}
	got := sampleStddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2.138089935) > 1e-6 {
		t.Fatalf("unexpected stddev: %v", got)
	}
}
