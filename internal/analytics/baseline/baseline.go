package baseline

// Package baseline implements the robust per-metric baseline: a median
// centre and a MAD spread scaled to be comparable with a standard deviation.
// Absent values (NaN) are ignored.

import (
	"errors"
	"math"
	"sort"
)

// MADScale makes the median absolute deviation a consistent estimator of the
// standard deviation under normality.
const MADScale = 1.4826

// MinSpread is the absolute lower bound on any returned spread.
const MinSpread = 1e-6

// ErrInsufficientHistory means there were too few present values to build a
// baseline. Callers treat it as "cannot evaluate".
var ErrInsufficientHistory = errors.New("insufficient history")

// Baseline is a robust centre/spread estimate.
type Baseline struct {
	Center float64
	Spread float64
	// Count is the number of present values the estimate used.
	Count int
	// Floored is set when Spread came from the floor rather than the data.
	Floored bool
}

// Z returns the robust deviation of v from the baseline.
func (b Baseline) Z(v float64) float64 {
	return (v - b.Center) / b.Spread
}

// Estimate computes the baseline of values. NaN entries are skipped.
// minPresent below 1 is treated as 1. floor is the metric's resolution; the
// spread is never below max(floor, MinSpread).
func Estimate(values []float64, minPresent int, floor float64) (Baseline, error) {
	present := presentValues(values)
	if minPresent < 1 {
		minPresent = 1
	}
	if len(present) < minPresent {
		return Baseline{Count: len(present)}, ErrInsufficientHistory
	}
	if floor < MinSpread {
		floor = MinSpread
	}

	sort.Float64s(present)
	center := sortedMedian(present)
	b := Baseline{Center: center, Count: len(present)}

	if len(present) < 2 {
		b.Spread = floor
		b.Floored = true
		return b, nil
	}

	spread := MADScale * MAD(present, center)
	if spread < floor {
		spread = floor
		b.Floored = true
	}
	b.Spread = spread
	return b, nil
}

// Median returns the median of the present values, or NaN if there are none.
func Median(values []float64) float64 {
	present := presentValues(values)
	if len(present) == 0 {
		return math.NaN()
	}
	sort.Float64s(present)
	return sortedMedian(present)
}

// MAD returns the unscaled median absolute deviation of values around center.
func MAD(values []float64, center float64) float64 {
	dev := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		dev = append(dev, math.Abs(v-center))
	}
	if len(dev) == 0 {
		return 0
	}
	sort.Float64s(dev)
	return sortedMedian(dev)
}

func presentValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func sortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
