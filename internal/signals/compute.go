// Package signals derives spike/velocity statistics from upstream trend
// aggregations: last-vs-previous deltas and last-vs-baseline mean/stddev/z
// scores over chronologically ordered bucket series.
package signals

import "math"

const (
	// MinSignalPoints is the minimum series length for any signal computation.
	MinSignalPoints = 2
	// minStddevSamples is the minimum baseline size for a sample standard deviation.
	minStddevSamples = 2
	// minBaselinePoints is the series length above which a baseline window exists.
	minBaselinePoints = 2

	// DefaultBaselineWindow is the trailing bucket count used as the baseline.
	DefaultBaselineWindow = 8
	// DefaultMinBaselineMean guards ratio/z against near-zero baselines.
	DefaultMinBaselineMean = 10.0

	// ErrNotEnoughPoints is the sentinel carried by Result.Error when a series
	// is too short to compare its last two buckets.
	ErrNotEnoughPoints = "not_enough_points"
)

// Point is one time bucket: the upstream display label and its document count.
type Point struct {
	Label string  `json:"label"`
	Count float64 `json:"count"`
}

// Bucket mirrors Point in signal output payloads.
type Bucket struct {
	Label string  `json:"label"`
	Count float64 `json:"count"`
}

// LastVsPrev compares the final bucket against the one before it. Pct is nil
// when the previous bucket is zero.
type LastVsPrev struct {
	Abs float64  `json:"abs"`
	Pct *float64 `json:"pct"`
}

// LastVsBaseline compares the final bucket against the trailing baseline
// window. Ratio and Z stay nil unless the baseline mean clears
// MinBaselineMean, so sparse series never produce inflated scores.
type LastVsBaseline struct {
	BaselineWindow  int      `json:"baseline_window"`
	BaselineMean    *float64 `json:"baseline_mean"`
	BaselineSD      *float64 `json:"baseline_sd"`
	Ratio           *float64 `json:"ratio"`
	Z               *float64 `json:"z"`
	MinBaselineMean float64  `json:"min_baseline_mean"`
}

// Detail groups the two signal families in the output payload.
type Detail struct {
	LastVsPrev     LastVsPrev     `json:"last_vs_prev"`
	LastVsBaseline LastVsBaseline `json:"last_vs_baseline"`
}

// Result is the outcome of a signal computation. When Error is set, only
// NumPoints is meaningful; callers check the sentinel rather than an error
// return because short series are expected data, not failures.
type Result struct {
	Error      string  `json:"error,omitempty"`
	NumPoints  int     `json:"num_points"`
	LastBucket *Bucket `json:"last_bucket,omitempty"`
	PrevBucket *Bucket `json:"prev_bucket,omitempty"`
	Signals    *Detail `json:"signals,omitempty"`
}

// InsufficientData reports whether the result is the not_enough_points sentinel.
func (r Result) InsufficientData() bool {
	return r.Error != ""
}

// ZScore returns the baseline z-score when the guardrails allowed one.
func (r Result) ZScore() (float64, bool) {
	if r.Signals == nil || r.Signals.LastVsBaseline.Z == nil {
		return 0, false
	}
	return *r.Signals.LastVsBaseline.Z, true
}

// Compute derives last-vs-prev and last-vs-baseline signals from a
// chronologically ascending series. Pure and deterministic; identical inputs
// always produce identical results.
func Compute(points []Point, baselineWindow int, minBaselineMean float64) Result {
	if len(points) < MinSignalPoints {
		return Result{Error: ErrNotEnoughPoints, NumPoints: len(points)}
	}

	last := points[len(points)-1]
	prev := points[len(points)-2]

	var pct *float64
	if prev.Count > 0 {
		v := (last.Count / prev.Count) - 1.0
		pct = &v
	}

	var baselineValues []float64
	if len(points) > minBaselinePoints {
		start := len(points) - (baselineWindow + 1)
		if start < 0 {
			start = 0
		}
		for _, p := range points[start : len(points)-1] {
			baselineValues = append(baselineValues, p.Count)
		}
	}

	var baselineMean, baselineSD *float64
	if len(baselineValues) > 0 {
		m := mean(baselineValues)
		sd := sampleStddev(baselineValues)
		baselineMean = &m
		baselineSD = &sd
	}

	var ratio, z *float64
	if baselineMean != nil && *baselineMean >= minBaselineMean && baselineSD != nil {
		if *baselineMean > 0 {
			r := last.Count / *baselineMean
			ratio = &r
		}
		if *baselineSD > 0 {
			zv := (last.Count - *baselineMean) / *baselineSD
			z = &zv
		}
	}

	return Result{
		NumPoints:  len(points),
		LastBucket: &Bucket{Label: last.Label, Count: last.Count},
		PrevBucket: &Bucket{Label: prev.Label, Count: prev.Count},
		Signals: &Detail{
			LastVsPrev: LastVsPrev{Abs: last.Count - prev.Count, Pct: pct},
			LastVsBaseline: LastVsBaseline{
				BaselineWindow:  baselineWindow,
				BaselineMean:    baselineMean,
				BaselineSD:      baselineSD,
				Ratio:           ratio,
				Z:               z,
				MinBaselineMean: minBaselineMean,
			},
		},
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStddev is Bessel-corrected; fewer than two samples yield zero.
func sampleStddev(values []float64) float64 {
	if len(values) < minStddevSamples {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}
