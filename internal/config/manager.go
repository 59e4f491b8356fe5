package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/Aryiadm/physio-threat-engine/internal/metrics"
)

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	viper      *viper.Viper
	watchChan  chan Config

	mu     sync.RWMutex
	config *Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("PHYSIO")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// A missing file is fine; defaults and env vars apply.
	if err := m.viper.ReadInConfig(); err != nil && !isNotFound(err) {
		return fmt.Errorf("error reading config file: %w", err)
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	return joinErrors(m.Get(ctx).Validate())
}

// Watch watches for configuration changes and reloads. Invalid reloads are
// dropped and the previous configuration stays in effect.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := m.reloadValidated(); err != nil {
			metrics.ConfigReloadsTotal.WithLabelValues("rejected").Inc()
			return
		}
		metrics.ConfigReloadsTotal.WithLabelValues("applied").Inc()
		select {
		case m.watchChan <- *m.Get(ctx):
		default:
			// Channel full, skip this update
		}
	})
	m.viper.WatchConfig()

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil && !isNotFound(err) {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	return nil
}

// reloadValidated swaps in the file's current content only when it validates.
func (m *viperConfigManager) reloadValidated() error {
	cfg := m.build()
	if err := joinErrors(cfg.Validate()); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || os.IsNotExist(err)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Server defaults
	m.viper.SetDefault("server.host", defaults.Server.Host)
	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	m.viper.SetDefault("server.simulate_rate_per_min", defaults.Server.SimulateRatePerMin)
	m.viper.SetDefault("server.read_timeout_sec", defaults.Server.ReadTimeoutSec)
	m.viper.SetDefault("server.write_timeout_sec", defaults.Server.WriteTimeoutSec)

	// Database defaults
	m.viper.SetDefault("database.type", defaults.Database.Type)
	m.viper.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)
	m.viper.SetDefault("database.postgres_url", defaults.Database.PostgresURL)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.file", defaults.Logging.File)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)

	// Analytics defaults
	m.viper.SetDefault("analytics.trailing_window_days", defaults.Analytics.TrailingWindowDays)
	m.viper.SetDefault("analytics.long_window_days", defaults.Analytics.LongWindowDays)
	m.viper.SetDefault("analytics.min_baseline_points", defaults.Analytics.MinBaselinePoints)
	m.viper.SetDefault("analytics.driver_threshold", defaults.Analytics.DriverThreshold)
	m.viper.SetDefault("analytics.decision_threshold", defaults.Analytics.DecisionThreshold)
	m.viper.SetDefault("analytics.severity_threshold", defaults.Analytics.SeverityThreshold)
	m.viper.SetDefault("analytics.saturation_deviation", defaults.Analytics.SaturationDeviation)
	m.viper.SetDefault("analytics.max_drivers", defaults.Analytics.MaxDrivers)
	m.viper.SetDefault("analytics.trust_driver_threshold", defaults.Analytics.TrustDriverThreshold)
	m.viper.SetDefault("analytics.trust_weights.missingness", defaults.Analytics.TrustWeights.Missingness)
	m.viper.SetDefault("analytics.trust_weights.consistency", defaults.Analytics.TrustWeights.Consistency)
	m.viper.SetDefault("analytics.trust_weights.shift", defaults.Analytics.TrustWeights.Shift)
	m.viper.SetDefault("analytics.trust_weights.coherence", defaults.Analytics.TrustWeights.Coherence)

	// Simulation defaults
	m.viper.SetDefault("simulation.seed", defaults.Simulation.Seed)
	m.viper.SetDefault("simulation.spoof_factor", defaults.Simulation.SpoofFactor)
	m.viper.SetDefault("simulation.noise_fraction", defaults.Simulation.NoiseFraction)
	m.viper.SetDefault("simulation.delay_days", defaults.Simulation.DelayDays)
	m.viper.SetDefault("simulation.collision_policy", defaults.Simulation.CollisionPolicy)
}

// unmarshalConfig unmarshals viper config into the current Config.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := m.build()
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

func (m *viperConfigManager) build() *Config {
	cfg := &Config{}

	// Server
	cfg.Server.Host = m.viper.GetString("server.host")
	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")
	cfg.Server.SimulateRatePerMin = m.viper.GetInt("server.simulate_rate_per_min")
	cfg.Server.ReadTimeoutSec = m.viper.GetInt("server.read_timeout_sec")
	cfg.Server.WriteTimeoutSec = m.viper.GetInt("server.write_timeout_sec")

	// Database
	cfg.Database.Type = m.viper.GetString("database.type")
	cfg.Database.SQLitePath = m.viper.GetString("database.sqlite_path")
	cfg.Database.PostgresURL = m.viper.GetString("database.postgres_url")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.File = m.viper.GetString("logging.file")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")

	// Analytics
	cfg.Analytics.TrailingWindowDays = m.viper.GetInt("analytics.trailing_window_days")
	cfg.Analytics.LongWindowDays = m.viper.GetInt("analytics.long_window_days")
	cfg.Analytics.MinBaselinePoints = m.viper.GetInt("analytics.min_baseline_points")
	cfg.Analytics.DriverThreshold = m.viper.GetFloat64("analytics.driver_threshold")
	cfg.Analytics.DecisionThreshold = m.viper.GetFloat64("analytics.decision_threshold")
	cfg.Analytics.SeverityThreshold = m.viper.GetFloat64("analytics.severity_threshold")
	cfg.Analytics.SaturationDeviation = m.viper.GetFloat64("analytics.saturation_deviation")
	cfg.Analytics.MaxDrivers = m.viper.GetInt("analytics.max_drivers")
	cfg.Analytics.TrustDriverThreshold = m.viper.GetFloat64("analytics.trust_driver_threshold")
	cfg.Analytics.TrustWeights.Missingness = m.viper.GetFloat64("analytics.trust_weights.missingness")
	cfg.Analytics.TrustWeights.Consistency = m.viper.GetFloat64("analytics.trust_weights.consistency")
	cfg.Analytics.TrustWeights.Shift = m.viper.GetFloat64("analytics.trust_weights.shift")
	cfg.Analytics.TrustWeights.Coherence = m.viper.GetFloat64("analytics.trust_weights.coherence")

	// Simulation
	cfg.Simulation.Seed = m.viper.GetInt64("simulation.seed")
	cfg.Simulation.SpoofFactor = m.viper.GetFloat64("simulation.spoof_factor")
	cfg.Simulation.NoiseFraction = m.viper.GetFloat64("simulation.noise_fraction")
	cfg.Simulation.DelayDays = m.viper.GetInt("simulation.delay_days")
	cfg.Simulation.CollisionPolicy = m.viper.GetString("simulation.collision_policy")

	m.applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides applies conventional platform variables.
func (m *viperConfigManager) applyEnvOverrides(cfg *Config) {
	// Port from environment - only override if explicitly set
	if os.Getenv("PHYSIO_PORT") != "" {
		cfg.Server.Port = m.viper.GetInt("port")
	}

	// Postgres URL from the usual DATABASE_URL
	if url := os.Getenv("DATABASE_URL"); url != "" && cfg.Database.PostgresURL == "" {
		cfg.Database.PostgresURL = url
	}
}
