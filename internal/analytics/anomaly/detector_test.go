package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics/trust"
	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func build(t *testing.T, n int, fill func(i int, r *models.HealthRecord)) *models.History {
	t.Helper()
	records := make([]models.HealthRecord, n)
	for i := range records {
		records[i] = models.HealthRecord{UserID: "u1", Date: models.FormatDay(start.AddDate(0, 0, i))}
		fill(i, &records[i])
	}
	h, err := models.NewHistory(records)
	require.NoError(t, err)
	return h
}

func newDetector() Detector {
	return NewDetector(DefaultConfig(), trust.NewScorer(trust.DefaultConfig()))
}

var sleepPattern = []float64{7.2, 7.0, 7.4, 7.1, 7.5, 7.3}

func TestSleepCrashScenario(t *testing.T) {
	const spike = 10
	h := build(t, 14, func(i int, r *models.HealthRecord) {
		v := sleepPattern[i%len(sleepPattern)]
		if i == spike {
			v = 2.0
		}
		r.Set(models.MetricSleepHours, v)
	})

	results := newDetector().Detect(h, time.Time{}, time.Time{})
	require.Len(t, results, 14)

	hit := results[spike]
	assert.True(t, hit.IsAnomaly)
	assert.InDelta(t, 1.0, hit.AnomalyScore, 1e-9)
	require.NotEmpty(t, hit.Drivers)
	assert.Equal(t, models.MetricSleepHours, hit.Drivers[0].Metric)
	assert.Equal(t, models.DirectionLow, hit.Drivers[0].Direction)
	assert.Less(t, hit.Drivers[0].Deviation, -2.0)
	assert.Contains(t, hit.Narrative, h.Records[spike].Date)

	for i, r := range results {
		if i == spike {
			continue
		}
		assert.False(t, r.IsAnomaly, "day %d", i)
		assert.Less(t, r.AnomalyScore, hit.AnomalyScore-0.5, "day %d", i)
	}
}

func TestInsufficientHistoryIsReported(t *testing.T) {
	h := build(t, 8, func(i int, r *models.HealthRecord) {
		r.Set(models.MetricRestingHR, 60+float64(i%3))
	})
	results := newDetector().Detect(h, time.Time{}, time.Time{})
	require.Len(t, results, 8)

	for i := 0; i < 5; i++ {
		r := results[i]
		assert.True(t, r.Insufficient, "day %d", i)
		assert.False(t, r.IsAnomaly)
		assert.Equal(t, 0.0, r.AnomalyScore)
		assert.Empty(t, r.Drivers)
		assert.Contains(t, r.Narrative, "Insufficient history")
	}
	assert.False(t, results[5].Insufficient)
	assert.Contains(t, results[5].Narrative, "within expected ranges")
}

func TestDetectionIsLookaheadFree(t *testing.T) {
	fill := func(i int, r *models.HealthRecord) {
		r.Set(models.MetricSleepHours, sleepPattern[i%len(sleepPattern)])
		r.Set(models.MetricHRV, 55+float64(i%4))
		r.Set(models.MetricRestingHR, 62-float64(i%4))
		r.Set(models.MetricSteps, 8000+float64(i%5)*300)
	}
	clean := build(t, 40, fill)
	tampered := build(t, 40, func(i int, r *models.HealthRecord) {
		fill(i, r)
		if i > 25 {
			r.Set(models.MetricSteps, 90000)
			r.Clear(models.MetricHRV)
			r.Set(models.MetricRestingHR, 180)
		}
	})

	d := newDetector()
	for i := 0; i <= 25; i++ {
		a, ok := d.Evaluate(clean, clean.Days[i])
		require.True(t, ok)
		b, ok := d.Evaluate(tampered, tampered.Days[i])
		require.True(t, ok)
		assert.Equal(t, a, b, "day %d", i)
	}
}

func TestDetectionIsIdempotent(t *testing.T) {
	h := build(t, 30, func(i int, r *models.HealthRecord) {
		r.Set(models.MetricSleepHours, sleepPattern[i%len(sleepPattern)])
		r.Set(models.MetricWeight, 70+0.1*float64(i%3))
		if i == 20 {
			r.Set(models.MetricWeight, 80)
		}
	})
	before := models.CloneRecords(h.Records)

	d := newDetector()
	first := d.Detect(h, time.Time{}, time.Time{})
	second := d.Detect(h, time.Time{}, time.Time{})
	assert.Equal(t, first, second)
	assert.Equal(t, before, h.Records)
}

func stepsHistory(t *testing.T, every int, spike float64) *models.History {
	return build(t, 31, func(i int, r *models.HealthRecord) {
		if i%every != 0 {
			return
		}
		r.Set(models.MetricSteps, 8000+float64(i%5)*200)
		if i == 30 {
			r.Set(models.MetricSteps, spike)
		}
	})
}

func TestLowTrustDampensButKeepsDriver(t *testing.T) {
	d := newDetector()

	dense := stepsHistory(t, 1, 9600)
	sparse := stepsHistory(t, 3, 9600)

	a, ok := d.Evaluate(dense, dense.Days[30])
	require.True(t, ok)
	b, ok := d.Evaluate(sparse, sparse.Days[30])
	require.True(t, ok)

	require.Len(t, a.Drivers, 1)
	require.Len(t, b.Drivers, 1)
	assert.InDelta(t, a.Drivers[0].Deviation, b.Drivers[0].Deviation, 1e-9)
	assert.Less(t, b.Drivers[0].Trust, a.Drivers[0].Trust)
	assert.Less(t, b.AnomalyScore, a.AnomalyScore)
	assert.True(t, a.IsAnomaly)
	assert.False(t, b.IsAnomaly)
	assert.Contains(t, b.Narrative, "Elevated reading")
}

func TestSeverityOverridesTrust(t *testing.T) {
	// Trust reduced to coherence alone; a lone metric has none.
	tc := trust.DefaultConfig()
	tc.Weights = trust.Weights{Coherence: 1}
	d := NewDetector(DefaultConfig(), trust.NewScorer(tc))

	h := stepsHistory(t, 1, 14000)
	res, ok := d.Evaluate(h, h.Days[30])
	require.True(t, ok)
	assert.Equal(t, 0.0, res.AnomalyScore)
	assert.True(t, res.IsAnomaly)
	require.Len(t, res.Drivers, 1)
	assert.Equal(t, 0.0, res.Drivers[0].Trust)
	assert.Greater(t, res.Drivers[0].Deviation, 6.0)
}

func TestEvaluateUnknownDate(t *testing.T) {
	h := stepsHistory(t, 1, 9000)
	_, ok := newDetector().Evaluate(h, start.AddDate(0, 0, 100))
	assert.False(t, ok)
}

func TestDetectRange(t *testing.T) {
	h := stepsHistory(t, 1, 9000)
	results := newDetector().Detect(h, h.Days[10], h.Days[19])
	require.Len(t, results, 10)
	assert.Equal(t, h.Records[10].Date, results[0].Date)
	assert.Equal(t, h.Records[19].Date, results[9].Date)
}

func TestMaxDriversCapsReport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDrivers = 2
	d := NewDetector(cfg, trust.NewScorer(trust.DefaultConfig()))

	h := build(t, 21, func(i int, r *models.HealthRecord) {
		r.Set(models.MetricSleepHours, sleepPattern[i%len(sleepPattern)])
		r.Set(models.MetricHRV, 55+float64(i%4))
		r.Set(models.MetricRestingHR, 62-float64(i%4))
		if i == 20 {
			r.Set(models.MetricSleepHours, 3)
			r.Set(models.MetricHRV, 20)
			r.Set(models.MetricRestingHR, 40)
		}
	})
	res, ok := d.Evaluate(h, h.Days[20])
	require.True(t, ok)
	require.Len(t, res.Drivers, 2)
	assert.GreaterOrEqual(t, res.Drivers[0].Weighted, res.Drivers[1].Weighted)
	assert.True(t, res.IsAnomaly)
	assert.Contains(t, res.Narrative, "Multiple low-signal indicators")
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.SeverityThreshold = 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.DecisionThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxDrivers = 0
	assert.Error(t, cfg.Validate())
}
