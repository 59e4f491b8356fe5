package trust

// Package trust scores how far each metric's current reading can be believed.
//
// A trust score is the weighted average of four sub-scores, each in [0,1]:
//
//   1. Missingness:  share of days with a value in the trailing window
//   2. Consistency:  long-term robust spread relative to the trailing-window
//                    standard deviation (unexplained swings lower it)
//   3. Shift:        distance between the trailing-window median and the
//                    long-term median, in long-term spreads (saturates at 3)
//   4. Coherence:    mean |Pearson r| against physiologically related metrics
//                    over the long window
//
// Windows are calendar windows ending at the evaluated date, inclusive.
// A metric with no observation in the long window scores 0 with driver
// "no-data"; it never defaults to full trust.

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics/baseline"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/correlation"
	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// shiftSaturation is the normalised shift at which the shift sub-score hits 0.
const shiftSaturation = 3.0

// Weights combine the sub-scores. They must sum to 1.
type Weights struct {
	Missingness float64
	Consistency float64
	Shift       float64
	Coherence   float64
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Missingness + w.Consistency + w.Shift + w.Coherence
}

// Config controls the scorer.
type Config struct {
	TrailingWindowDays int
	LongWindowDays     int
	Weights            Weights
	// DriverThreshold: sub-scores below it are reported as drivers.
	DriverThreshold float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TrailingWindowDays: 14,
		LongWindowDays:     90,
		Weights: Weights{
			Missingness: 0.35,
			Consistency: 0.25,
			Shift:       0.25,
			Coherence:   0.15,
		},
		DriverThreshold: 0.5,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TrailingWindowDays < 1 {
		return fmt.Errorf("trailing window must be at least 1 day, got %d", c.TrailingWindowDays)
	}
	if c.LongWindowDays < c.TrailingWindowDays {
		return fmt.Errorf("long window (%d) shorter than trailing window (%d)", c.LongWindowDays, c.TrailingWindowDays)
	}
	w := c.Weights
	for _, v := range []float64{w.Missingness, w.Consistency, w.Shift, w.Coherence} {
		if v < 0 {
			return fmt.Errorf("trust weights must be non-negative")
		}
	}
	if math.Abs(w.Sum()-1) > 1e-9 {
		return fmt.Errorf("trust weights must sum to 1, got %.4f", w.Sum())
	}
	return nil
}

// RelatedMetrics is the fixed coherence neighbourhood of each metric.
var RelatedMetrics = map[models.Metric][]models.Metric{
	models.MetricSleepHours: {models.MetricHRV, models.MetricRestingHR},
	models.MetricRestingHR:  {models.MetricHRV, models.MetricSleepHours, models.MetricSteps},
	models.MetricHRV:        {models.MetricRestingHR, models.MetricSleepHours},
	models.MetricSteps:      {models.MetricCalories, models.MetricRestingHR},
	models.MetricCalories:   {models.MetricSteps, models.MetricWeight},
	models.MetricWeight:     {models.MetricCalories},
}

// Scorer computes TrustEntry values. It holds no mutable state.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Score returns one entry per metric for each record dated within [from, to].
// A zero from or to leaves that side unbounded.
func (s *Scorer) Score(h *models.History, from, to time.Time) []models.TrustEntry {
	var out []models.TrustEntry
	for _, day := range h.Days {
		if (!from.IsZero() && day.Before(from)) || (!to.IsZero() && day.After(to)) {
			continue
		}
		for _, m := range models.AllMetrics {
			out = append(out, s.ScoreAt(h, m, day))
		}
	}
	return out
}

// TrustAt returns the score of every metric as of day.
func (s *Scorer) TrustAt(h *models.History, day time.Time) map[models.Metric]float64 {
	out := make(map[models.Metric]float64, len(models.AllMetrics))
	for _, m := range models.AllMetrics {
		out[m] = s.ScoreAt(h, m, day).Score
	}
	return out
}

// ScoreAt scores metric m as of day using only records dated on or before day.
func (s *Scorer) ScoreAt(h *models.History, m models.Metric, day time.Time) models.TrustEntry {
	entry := models.TrustEntry{Metric: m, Date: models.FormatDay(day), Drivers: []string{}}

	end := day.AddDate(0, 0, 1)
	windowFrom := end.AddDate(0, 0, -s.cfg.TrailingWindowDays)
	longFrom := end.AddDate(0, 0, -s.cfg.LongWindowDays)

	series := h.Series(m)
	long := series.Window(longFrom, end)
	if len(long) == 0 {
		entry.Drivers = append(entry.Drivers, models.TrustDriverNoData)
		return entry
	}
	window := series.Window(windowFrom, end)

	longBase, _ := baseline.Estimate(long, 1, m.Spec().Resolution)

	c := models.TrustComponents{
		Missingness: missingness(len(window), s.cfg.TrailingWindowDays),
		Consistency: consistency(window, longBase),
		Shift:       shift(window, longBase),
		Coherence:   s.coherence(h, m, longFrom, end),
	}
	entry.Components = c

	w := s.cfg.Weights
	score := w.Missingness*c.Missingness + w.Consistency*c.Consistency +
		w.Shift*c.Shift + w.Coherence*c.Coherence
	entry.Score = clamp01(score)

	th := s.cfg.DriverThreshold
	if c.Missingness < th {
		entry.Drivers = append(entry.Drivers, models.TrustDriverMissingness)
	}
	if c.Consistency < th {
		entry.Drivers = append(entry.Drivers, models.TrustDriverConsistency)
	}
	if c.Shift < th {
		entry.Drivers = append(entry.Drivers, models.TrustDriverShift)
	}
	if c.Coherence < th {
		entry.Drivers = append(entry.Drivers, models.TrustDriverCoherence)
	}
	return entry
}

func missingness(present, windowDays int) float64 {
	if windowDays <= 0 {
		return 0
	}
	return clamp01(float64(present) / float64(windowDays))
}

func consistency(window []float64, long baseline.Baseline) float64 {
	if len(window) < 2 {
		return 0
	}
	sd := stat.StdDev(window, nil)
	if sd <= 0 || math.IsNaN(sd) {
		return 1
	}
	return clamp01(long.Spread / sd)
}

func shift(window []float64, long baseline.Baseline) float64 {
	if len(window) == 0 {
		return 0
	}
	center := baseline.Median(window)
	z := math.Abs(center-long.Center) / long.Spread
	return clamp01(1 - z/shiftSaturation)
}

func (s *Scorer) coherence(h *models.History, m models.Metric, from, to time.Time) float64 {
	related := RelatedMetrics[m]
	if len(related) == 0 {
		return 0
	}
	own := h.Series(m).AlignedWindow(from, to)
	var sum float64
	for _, r := range related {
		other := h.Series(r).AlignedWindow(from, to)
		sum += math.Abs(correlation.Pearson(own, other).R)
	}
	return clamp01(sum / float64(len(related)))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
