package config

import "context"

// Package config provides configuration management for the physio engine.
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (PHYSIO_* prefix, "." becomes "_")
//   2. YAML config file (optional; a missing file means defaults)
//   3. Built-in defaults
//
// Main Configuration Sections:
//
//   1. Server
//      - host, port: listen address (default 0.0.0.0:8090)
//      - allowed_origins: CORS origins
//      - simulate_rate_per_min: POST /simulate budget per client
//
//   2. Database
//      - type: "sqlite" | "postgres"
//      - sqlite_path: path to SQLite file
//      - postgres_url: PostgreSQL connection string
//
//   3. Logging
//      - level: debug | info | warn | error (reloadable)
//      - format: json | console
//      - file, max_size_mb, max_backups, max_age_days: rotation
//
//   4. Analytics
//      - trailing_window_days, long_window_days, min_baseline_points
//      - driver_threshold, decision_threshold, severity_threshold,
//        saturation_deviation, max_drivers, trust_driver_threshold
//      - trust_weights: missingness / consistency / shift / coherence
//
//   5. Simulation
//      - seed, spoof_factor, noise_fraction, delay_days
//      - collision_policy: overwrite | skip

// Config is the complete service configuration.
type Config struct {
	Server struct {
		Host               string
		Port               int
		AllowedOrigins     []string
		SimulateRatePerMin int
		ReadTimeoutSec     int
		WriteTimeoutSec    int
	}

	Database struct {
		Type        string
		SQLitePath  string
		PostgresURL string
	}

	Logging struct {
		Level      string
		Format     string
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	Analytics struct {
		TrailingWindowDays   int
		LongWindowDays       int
		MinBaselinePoints    int
		DriverThreshold      float64
		DecisionThreshold    float64
		SeverityThreshold    float64
		SaturationDeviation  float64
		MaxDrivers           int
		TrustDriverThreshold float64
		TrustWeights         struct {
			Missingness float64
			Consistency float64
			Shift       float64
			Coherence   float64
		}
	}

	Simulation struct {
		Seed            int64
		SpoofFactor     float64
		NoiseFraction   float64
		DelayDays       int
		CollisionPolicy string
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch publishes every valid configuration reloaded from the file.
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/physio/config.yaml")
}
