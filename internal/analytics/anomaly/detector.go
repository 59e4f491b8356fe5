package anomaly

import (
	"fmt"
	"time"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// Package anomaly flags days whose combined signal vector departs from the
// user's own robust baseline.
//
// Per evaluated date d:
//
//   1. Baseline per metric from present values in [d-long window, d).
//      The evaluated date never feeds its own baseline.
//   2. Deviation = (value - median) / (1.4826 * MAD), floored per metric.
//   3. A metric whose |deviation| exceeds the driver threshold is a driver.
//      Its weight is trust(metric, d-1) * |deviation|; low trust dampens
//      but never hides it.
//   4. anomaly_score = (max weight + 0.25 * sum of the other weights) /
//      saturation, clamped to [0,1].
//   5. is_anomaly when the score reaches the decision threshold, or when any
//      raw |deviation| reaches the severity threshold regardless of trust.
//
// Dates where no present metric has enough history produce an explicit
// insufficient-history result instead of being dropped.

// Detector evaluates anomaly results over a validated history.
type Detector interface {
	// Detect evaluates every record dated within [from, to]. A zero bound is
	// open on that side.
	Detect(h *models.History, from, to time.Time) []models.AnomalyResult

	// Evaluate evaluates a single date. ok is false when no record exists for day.
	Evaluate(h *models.History, day time.Time) (result models.AnomalyResult, ok bool)
}

// Config holds the detector thresholds.
type Config struct {
	LongWindowDays      int
	MinBaselinePoints   int
	DriverThreshold     float64
	DecisionThreshold   float64
	SeverityThreshold   float64
	SaturationDeviation float64
	MaxDrivers          int
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		LongWindowDays:      90,
		MinBaselinePoints:   5,
		DriverThreshold:     2.0,
		DecisionThreshold:   0.5,
		SeverityThreshold:   6.0,
		SaturationDeviation: 6.0,
		MaxDrivers:          3,
	}
}

func (c Config) Validate() error {
	switch {
	case c.LongWindowDays < 1:
		return fmt.Errorf("long window must be at least 1 day, got %d", c.LongWindowDays)
	case c.MinBaselinePoints < 1:
		return fmt.Errorf("min baseline points must be at least 1, got %d", c.MinBaselinePoints)
	case c.DriverThreshold <= 0:
		return fmt.Errorf("driver threshold must be positive, got %v", c.DriverThreshold)
	case c.DecisionThreshold <= 0 || c.DecisionThreshold > 1:
		return fmt.Errorf("decision threshold must be in (0,1], got %v", c.DecisionThreshold)
	case c.SeverityThreshold < c.DriverThreshold:
		return fmt.Errorf("severity threshold %v below driver threshold %v", c.SeverityThreshold, c.DriverThreshold)
	case c.SaturationDeviation <= 0:
		return fmt.Errorf("saturation deviation must be positive, got %v", c.SaturationDeviation)
	case c.MaxDrivers < 1:
		return fmt.Errorf("max drivers must be at least 1, got %d", c.MaxDrivers)
	}
	return nil
}
