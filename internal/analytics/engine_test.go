package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

var start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func sampleRecords(user string, n int) []models.HealthRecord {
	out := make([]models.HealthRecord, n)
	for i := range out {
		r := models.HealthRecord{UserID: user, Date: models.FormatDay(start.AddDate(0, 0, i))}
		r.Set(models.MetricSleepHours, 7+0.1*float64(i%5))
		r.Set(models.MetricRestingHR, 60+float64(i%4))
		r.Set(models.MetricHRV, 55-float64(i%4))
		r.Set(models.MetricSteps, 8000+float64(i%6)*250)
		r.Set(models.MetricCalories, 2000+float64(i%6)*25)
		r.Set(models.MetricWeight, 70+0.1*float64(i%3))
		out[i] = r
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := NewEngine(DefaultConfig(), WithLogger(zap.New(core)))
	require.NoError(t, err)
	return e, logs
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 14, e.Config().Trust.TrailingWindowDays)
	assert.Equal(t, 90, e.Config().Anomaly.LongWindowDays)

	cfg := DefaultConfig()
	cfg.Trust.Weights.Missingness = 0.9
	_, err = NewEngine(cfg)
	assert.Error(t, err)
}

func TestMalformedHistoryRejected(t *testing.T) {
	e, logs := newTestEngine(t)
	recs := sampleRecords("u1", 5)
	recs[3].Date = recs[2].Date

	_, err := e.TrustScores(context.Background(), recs, models.Range{})
	assert.ErrorIs(t, err, models.ErrDuplicateDate)
	assert.ErrorIs(t, err, models.ErrMalformedInput)
	assert.Equal(t, 1, logs.FilterMessage("Rejected malformed history").Len())

	recs = sampleRecords("u1", 5)
	recs[1], recs[2] = recs[2], recs[1]
	_, err = e.DetectAnomalies(context.Background(), recs, models.Range{})
	assert.ErrorIs(t, err, models.ErrOutOfOrder)
}

func TestTrustScores(t *testing.T) {
	e, _ := newTestEngine(t)
	recs := sampleRecords("u1", 20)

	r, err := models.ParseRange(recs[10].Date, recs[14].Date)
	require.NoError(t, err)
	entries, err := e.TrustScores(context.Background(), recs, r)
	require.NoError(t, err)
	require.Len(t, entries, 5*len(models.AllMetrics))
	for _, en := range entries {
		assert.GreaterOrEqual(t, en.Score, 0.0)
		assert.LessOrEqual(t, en.Score, 1.0)
	}
}

func TestDetectAnomalies(t *testing.T) {
	e, logs := newTestEngine(t)
	recs := sampleRecords("u1", 30)
	recs[20].Set(models.MetricRestingHR, 110)
	before := models.CloneRecords(recs)

	results, err := e.DetectAnomalies(context.Background(), recs, models.Range{})
	require.NoError(t, err)
	require.Len(t, results, 30)
	assert.True(t, results[20].IsAnomaly)
	assert.Equal(t, models.MetricRestingHR, results[20].Drivers[0].Metric)
	assert.Equal(t, models.DirectionHigh, results[20].Drivers[0].Direction)
	assert.Equal(t, before, recs)
	assert.Equal(t, 1, logs.FilterMessage("Analysis finished").Len())

	again, err := e.DetectAnomalies(context.Background(), recs, models.Range{})
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestCorrelations(t *testing.T) {
	e, _ := newTestEngine(t)
	pairs, err := e.Correlations(context.Background(), sampleRecords("u1", 12))
	require.NoError(t, err)
	require.Len(t, pairs, 15)
	for _, p := range pairs {
		assert.GreaterOrEqual(t, p.Correlation, -1.0)
		assert.LessOrEqual(t, p.Correlation, 1.0)
	}
}

func TestSimulate(t *testing.T) {
	e, logs := newTestEngine(t)
	recs := sampleRecords("u1", 30)

	res, err := e.Simulate(context.Background(), recs, models.SimulationRequest{
		UserID: "u1", Mode: models.ModeSpoof, Fraction: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Detection.Injected)
	assert.Equal(t, 6, res.Posture.GroundTruthDays)
	assert.Greater(t, res.Posture.AnomalyRecall, 0.5)
	assert.InDelta(t, 1, res.Posture.SignalIntegrity+res.Posture.AttackSurfaceScore, 1e-12)
	assert.Equal(t, 1, logs.FilterMessage("Simulation completed").Len())

	_, err = e.Simulate(context.Background(), recs, models.SimulationRequest{UserID: "u1", Mode: models.ModeSpoof, Fraction: 0})
	assert.ErrorIs(t, err, models.ErrInvalidFraction)
	assert.Equal(t, 1, logs.FilterMessage("Simulation request rejected").Len())
}

func TestSecurityPosture(t *testing.T) {
	e, _ := newTestEngine(t)
	recs := sampleRecords("u1", 20)
	recs[12].Clear(models.MetricHRV)
	recs[15].Clear(models.MetricSteps)

	p, err := e.SecurityPosture(context.Background(), recs, models.Range{})
	require.NoError(t, err)
	assert.Equal(t, 2, p.GroundTruthDays)
	assert.Greater(t, p.SignalIntegrity, 0.0)

	r, err := models.ParseRange(recs[14].Date, "")
	require.NoError(t, err)
	p, err = e.SecurityPosture(context.Background(), recs, r)
	require.NoError(t, err)
	assert.Equal(t, 1, p.GroundTruthDays)
}

func TestFederatedTrust(t *testing.T) {
	e, _ := newTestEngine(t)
	user := sampleRecords("u1", 10)

	ft, err := e.FederatedTrust(context.Background(), user, [][]models.HealthRecord{sampleRecords("u2", 10), sampleRecords("u3", 10)})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ft.Score, 1e-6)
	assert.Equal(t, 2, ft.CohortSize)

	bad := sampleRecords("u2", 3)
	bad[2].UserID = "u9"
	_, err = e.FederatedTrust(context.Background(), user, [][]models.HealthRecord{bad})
	assert.ErrorIs(t, err, models.ErrUserMismatch)
}

func TestCancelledContext(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Correlations(ctx, sampleRecords("u1", 5))
	assert.ErrorIs(t, err, context.Canceled)
}
