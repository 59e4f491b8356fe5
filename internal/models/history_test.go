package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(user, date string, sleep *float64) HealthRecord {
	return HealthRecord{UserID: user, Date: date, SleepHours: sleep}
}

func TestNewHistory(t *testing.T) {
	tests := []struct {
		name    string
		records []HealthRecord
		wantErr error
	}{
		{
			name:    "empty history is valid",
			records: nil,
		},
		{
			name: "ordered with gaps",
			records: []HealthRecord{
				rec("u1", "2024-01-01", Float(7)),
				rec("u1", "2024-01-03", nil),
			},
		},
		{
			name: "duplicate date",
			records: []HealthRecord{
				rec("u1", "2024-01-01", Float(7)),
				rec("u1", "2024-01-01", Float(8)),
			},
			wantErr: ErrDuplicateDate,
		},
		{
			name: "out of order",
			records: []HealthRecord{
				rec("u1", "2024-01-02", Float(7)),
				rec("u1", "2024-01-01", Float(8)),
			},
			wantErr: ErrOutOfOrder,
		},
		{
			name:    "bad date",
			records: []HealthRecord{rec("u1", "01/02/2024", Float(7))},
			wantErr: ErrInvalidDate,
		},
		{
			name: "mixed users",
			records: []HealthRecord{
				rec("u1", "2024-01-01", Float(7)),
				rec("u2", "2024-01-02", Float(7)),
			},
			wantErr: ErrUserMismatch,
		},
		{
			name:    "missing user",
			records: []HealthRecord{rec("", "2024-01-01", Float(7))},
			wantErr: ErrMissingUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHistory(tt.records)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.True(t, errors.Is(err, ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.records), h.Len())
		})
	}
}

func TestHistoryCopiesInput(t *testing.T) {
	in := []HealthRecord{rec("u1", "2024-01-01", Float(7))}
	h, err := NewHistory(in)
	require.NoError(t, err)

	*in[0].SleepHours = 1
	v, ok := h.Records[0].Value(MetricSleepHours)
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestCloneDropsNonFiniteValues(t *testing.T) {
	r := HealthRecord{
		UserID:     "u1",
		Date:       "2024-01-01",
		SleepHours: Float(math.NaN()),
		Steps:      Float(math.Inf(-1)),
		HRV:        Float(48),
	}
	c := r.Clone()
	assert.Nil(t, c.SleepHours)
	assert.Nil(t, c.Steps)
	require.NotNil(t, c.HRV)
	assert.NotSame(t, r.HRV, c.HRV)
	assert.Equal(t, 48.0, *c.HRV)
}

func TestSeriesWindowBoundsAcrossGaps(t *testing.T) {
	h, err := NewHistory([]HealthRecord{
		rec("u1", "2024-01-01", Float(1)),
		rec("u1", "2024-01-02", Float(2)),
		rec("u1", "2024-01-05", Float(5)),
		rec("u1", "2024-01-09", Float(9)),
	})
	require.NoError(t, err)
	s := h.Series(MetricSleepHours)

	day := func(v string) time.Time {
		d, err := ParseDay(v)
		require.NoError(t, err)
		return d
	}
	tests := []struct {
		name     string
		from, to string
		want     []float64
	}{
		{"whole history", "2023-12-01", "2024-02-01", []float64{1, 2, 5, 9}},
		{"from inside a gap", "2024-01-03", "2024-01-09", []float64{5}},
		{"to is exclusive", "2024-01-01", "2024-01-05", []float64{1, 2}},
		{"empty gap", "2024-01-06", "2024-01-09", []float64{}},
		{"inverted", "2024-01-09", "2024-01-01", []float64{}},
		{"after the end", "2024-02-01", "2024-03-01", []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Window(day(tt.from), day(tt.to)))
			assert.Len(t, s.AlignedWindow(day(tt.from), day(tt.to)), len(tt.want))
		})
	}
}

func TestSeriesExtractedOnce(t *testing.T) {
	h, err := NewHistory([]HealthRecord{
		rec("u1", "2024-01-01", Float(1)),
		rec("u1", "2024-01-02", Float(2)),
	})
	require.NoError(t, err)

	a := h.Series(MetricSleepHours)
	b := h.Series(MetricSleepHours)
	require.Len(t, a.Points, 2)
	assert.Same(t, &a.Points[0], &b.Points[0])
}

func TestValueTreatsNaNAsAbsent(t *testing.T) {
	r := rec("u1", "2024-01-01", Float(math.NaN()))
	_, ok := r.Value(MetricSleepHours)
	assert.False(t, ok)
	assert.Empty(t, r.PresentMetrics())

	r.Set(MetricSteps, 0)
	v, ok := r.Value(MetricSteps)
	assert.True(t, ok, "zero is a present value")
	assert.Equal(t, 0.0, v)
}

func TestSeriesWindows(t *testing.T) {
	h, err := NewHistory([]HealthRecord{
		rec("u1", "2024-01-01", Float(1)),
		rec("u1", "2024-01-02", nil),
		rec("u1", "2024-01-03", Float(3)),
	})
	require.NoError(t, err)

	s := h.Series(MetricSleepHours)
	from, _ := ParseDay("2024-01-01")
	to, _ := ParseDay("2024-01-03")

	assert.Equal(t, []float64{1}, s.Window(from, to))
	aligned := s.AlignedWindow(from, to)
	require.Len(t, aligned, 2)
	assert.True(t, math.IsNaN(aligned[1]))
	assert.Equal(t, []float64{1, 3}, s.Present())
}

func TestSimulationRequestValidate(t *testing.T) {
	ok := SimulationRequest{UserID: "u1", Mode: ModeSpoof, Fraction: 0.2}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Fraction = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidFraction)

	bad = ok
	bad.Fraction = 1.5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidFraction)

	bad = ok
	bad.Mode = "replay"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidMode)

	bad = ok
	bad.Metrics = []string{"blood_sugar"}
	assert.ErrorIs(t, bad.Validate(), ErrUnknownMetric)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("", "")
	require.NoError(t, err)
	assert.True(t, r.From.IsZero())
	assert.True(t, r.To.IsZero())

	r, err = ParseRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, 30, int(r.To.Sub(r.From).Hours()/24))

	_, err = ParseRange("2024-02-01", "2024-01-31")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ParseRange("01/02/2024", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
