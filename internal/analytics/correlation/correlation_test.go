package correlation

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

func TestPearsonSelf(t *testing.T) {
	x := []float64{1, 5, 2, 8, 3}
	assert.InDelta(t, 1.0, Pearson(x, x).R, 1e-12)
}

func TestPearsonPerfectNegative(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{8, 6, 4, 2}
	assert.InDelta(t, -1.0, Pearson(x, y).R, 1e-12)
}

func TestPearsonSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 20; i++ {
		x := make([]float64, 15)
		y := make([]float64, 15)
		for j := range x {
			x[j] = rng.NormFloat64()
			y[j] = rng.NormFloat64()
			if rng.IntN(5) == 0 {
				y[j] = math.NaN()
			}
		}
		a, b := Pearson(x, y), Pearson(y, x)
		assert.Equal(t, a.Pairs, b.Pairs)
		assert.InDelta(t, a.R, b.R, 1e-12)
	}
}

func TestPearsonPairwiseComplete(t *testing.T) {
	nan := math.NaN()
	x := []float64{1, 2, nan, 4, 5}
	y := []float64{2, 4, 100, nan, 10}

	res := Pearson(x, y)
	assert.Equal(t, 3, res.Pairs)
	assert.InDelta(t, 1.0, res.R, 1e-12)
}

func TestPearsonDegenerate(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		x, y []float64
	}{
		{"empty", nil, nil},
		{"single pair", []float64{1}, []float64{2}},
		{"no overlap", []float64{1, nan, 3}, []float64{nan, 2, nan}},
		{"constant x", []float64{3, 3, 3}, []float64{1, 2, 3}},
		{"constant y", []float64{1, 2, 3}, []float64{5, 5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 0.0, Pearson(tt.x, tt.y).R)
		})
	}
}

func TestPearsonIndependentSeriesNearZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	const trials = 200
	var sumAbs float64
	within := 0
	for trial := 0; trial < trials; trial++ {
		x := make([]float64, 30)
		y := make([]float64, 30)
		for i := range x {
			x[i] = rng.Float64()
			y[i] = rng.Float64()
		}
		r := math.Abs(Pearson(x, y).R)
		sumAbs += r
		if r < 0.3 {
			within++
		}
	}
	assert.Less(t, sumAbs/trials, 0.2)
	assert.Greater(t, float64(within)/trials, 0.8)
}

func TestMatrix(t *testing.T) {
	var records []models.HealthRecord
	for i := 0; i < 10; i++ {
		r := models.HealthRecord{UserID: "u1", Date: models.FormatDay(day0().AddDate(0, 0, i))}
		r.Set(models.MetricSteps, float64(5000+i*500))
		r.Set(models.MetricCalories, float64(1800+i*40))
		records = append(records, r)
	}
	h, err := models.NewHistory(records)
	require.NoError(t, err)

	pairs := Matrix(h)
	require.Len(t, pairs, 15)
	for _, p := range pairs {
		if p.MetricX == models.MetricSteps && p.MetricY == models.MetricCalories {
			assert.InDelta(t, 1.0, p.Correlation, 1e-9)
			assert.Equal(t, 10, p.Pairs)
			continue
		}
		assert.Equal(t, 0.0, p.Correlation)
	}
}
