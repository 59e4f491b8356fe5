package config

import (
	"github.com/Aryiadm/physio-threat-engine/internal/analytics"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/anomaly"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/simulation"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/trust"
	"github.com/Aryiadm/physio-threat-engine/internal/logging"
)

// DatabaseDSN returns the connection string for the configured backend.
func (c *Config) DatabaseDSN() string {
	if c.Database.Type == "postgres" {
		return c.Database.PostgresURL
	}
	return c.Database.SQLitePath
}

// LoggingConfig maps the logging section onto the logger.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		MaxSize:    c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAgeDays,
	}
}

// EngineConfig maps the analytics and simulation sections onto the engine.
func (c *Config) EngineConfig() analytics.Config {
	a := c.Analytics
	s := c.Simulation
	return analytics.Config{
		Trust: trust.Config{
			TrailingWindowDays: a.TrailingWindowDays,
			LongWindowDays:     a.LongWindowDays,
			Weights: trust.Weights{
				Missingness: a.TrustWeights.Missingness,
				Consistency: a.TrustWeights.Consistency,
				Shift:       a.TrustWeights.Shift,
				Coherence:   a.TrustWeights.Coherence,
			},
			DriverThreshold: a.TrustDriverThreshold,
		},
		Anomaly: anomaly.Config{
			LongWindowDays:      a.LongWindowDays,
			MinBaselinePoints:   a.MinBaselinePoints,
			DriverThreshold:     a.DriverThreshold,
			DecisionThreshold:   a.DecisionThreshold,
			SeverityThreshold:   a.SeverityThreshold,
			SaturationDeviation: a.SaturationDeviation,
			MaxDrivers:          a.MaxDrivers,
		},
		Simulation: simulation.Config{
			Seed:            s.Seed,
			SpoofFactor:     s.SpoofFactor,
			NoiseFraction:   s.NoiseFraction,
			DelayDays:       s.DelayDays,
			CollisionPolicy: simulation.CollisionPolicy(s.CollisionPolicy),
		},
	}
}
