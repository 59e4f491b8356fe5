package correlation

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// MinPairs is the fewest complete observations needed for a coefficient.
const MinPairs = 2

// Result is a coefficient together with the number of complete pairs used.
type Result struct {
	R     float64
	Pairs int
}

// Pearson returns the linear correlation of x and y over the positions where
// both are present (not NaN). Fewer than MinPairs complete pairs, or zero
// variance in either series, yields 0. The result is clamped to [-1, 1].
// Series of different lengths are compared over their common prefix.
func Pearson(x, y []float64) Result {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if !usable(x[i]) || !usable(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}

	res := Result{Pairs: len(xs)}
	if len(xs) < MinPairs || constant(xs) || constant(ys) {
		return res
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return res
	}
	res.R = math.Max(-1, math.Min(1, r))
	return res
}

// Matrix returns one pair per distinct metric combination, in models.AllMetrics
// order (x before y).
func Matrix(h *models.History) []models.CorrelationPair {
	series := make(map[models.Metric][]float64, len(models.AllMetrics))
	for _, m := range models.AllMetrics {
		series[m] = h.Series(m).Values()
	}

	var out []models.CorrelationPair
	for i, mx := range models.AllMetrics {
		for _, my := range models.AllMetrics[i+1:] {
			res := Pearson(series[mx], series[my])
			out = append(out, models.CorrelationPair{
				MetricX:     mx,
				MetricY:     my,
				Correlation: res.R,
				Pairs:       res.Pairs,
			})
		}
	}
	return out
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
