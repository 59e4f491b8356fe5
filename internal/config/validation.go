package config

import (
	"fmt"
	"math"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.SimulateRatePerMin < 1 {
		add("server.simulate_rate_per_min", "must be at least 1, got %d", c.Server.SimulateRatePerMin)
	}

	// Database
	switch c.Database.Type {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			add("database.sqlite_path", "sqlite_path is required when type is sqlite")
		}
	case "postgres":
		if c.Database.PostgresURL == "" {
			add("database.postgres_url", "postgres_url is required when type is postgres")
		}
	default:
		add("database.type", "invalid database type %q (must be sqlite or postgres)", c.Database.Type)
	}

	// Logging
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", "invalid level %q (must be debug, info, warn or error)", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		add("logging.format", "invalid format %q (must be json or console)", c.Logging.Format)
	}
	if c.Logging.File != "" && c.Logging.MaxSizeMB < 1 {
		add("logging.max_size_mb", "must be at least 1 when file logging is enabled")
	}

	// Analytics
	a := c.Analytics
	if a.TrailingWindowDays < 1 {
		add("analytics.trailing_window_days", "must be at least 1, got %d", a.TrailingWindowDays)
	}
	if a.LongWindowDays < a.TrailingWindowDays {
		add("analytics.long_window_days", "must not be shorter than trailing_window_days (%d), got %d", a.TrailingWindowDays, a.LongWindowDays)
	}
	if a.MinBaselinePoints < 1 {
		add("analytics.min_baseline_points", "must be at least 1, got %d", a.MinBaselinePoints)
	}
	if a.DriverThreshold <= 0 {
		add("analytics.driver_threshold", "must be positive, got %v", a.DriverThreshold)
	}
	if a.DecisionThreshold <= 0 || a.DecisionThreshold > 1 {
		add("analytics.decision_threshold", "must be in (0, 1], got %v", a.DecisionThreshold)
	}
	if a.SeverityThreshold < a.DriverThreshold {
		add("analytics.severity_threshold", "must not be below driver_threshold, got %v", a.SeverityThreshold)
	}
	if a.SaturationDeviation <= 0 {
		add("analytics.saturation_deviation", "must be positive, got %v", a.SaturationDeviation)
	}
	if a.MaxDrivers < 1 {
		add("analytics.max_drivers", "must be at least 1, got %d", a.MaxDrivers)
	}
	w := a.TrustWeights
	if w.Missingness < 0 || w.Consistency < 0 || w.Shift < 0 || w.Coherence < 0 {
		add("analytics.trust_weights", "weights must be non-negative")
	}
	if sum := w.Missingness + w.Consistency + w.Shift + w.Coherence; math.Abs(sum-1) > 1e-9 {
		add("analytics.trust_weights", "weights must sum to 1, got %.4f", sum)
	}

	// Simulation
	s := c.Simulation
	if s.SpoofFactor <= 1 {
		add("simulation.spoof_factor", "must be greater than 1, got %v", s.SpoofFactor)
	}
	if s.NoiseFraction <= 0 || s.NoiseFraction > 1 {
		add("simulation.noise_fraction", "must be in (0, 1], got %v", s.NoiseFraction)
	}
	if s.DelayDays < 1 {
		add("simulation.delay_days", "must be at least 1, got %d", s.DelayDays)
	}
	if s.CollisionPolicy != "overwrite" && s.CollisionPolicy != "skip" {
		add("simulation.collision_policy", "invalid policy %q (must be overwrite or skip)", s.CollisionPolicy)
	}

	return errs
}
