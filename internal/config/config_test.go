package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Len(t, cfg.Server.AllowedOrigins, 2)
	assert.Equal(t, 30, cfg.Server.SimulateRatePerMin)

	// Database defaults
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.NotEmpty(t, cfg.Database.SQLitePath)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Analytics defaults
	assert.Equal(t, 14, cfg.Analytics.TrailingWindowDays)
	assert.Equal(t, 90, cfg.Analytics.LongWindowDays)
	assert.Equal(t, 5, cfg.Analytics.MinBaselinePoints)

	// Simulation defaults
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, "overwrite", cfg.Simulation.CollisionPolicy)

	assert.Empty(t, cfg.Validate())
}

func TestEngineConfigMatchesAnalyticsDefaults(t *testing.T) {
	assert.Equal(t, analytics.DefaultConfig(), DefaultConfig().EngineConfig())
}

func TestDerivedConfigs(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "physio.db", cfg.DatabaseDSN())

	cfg.Database.Type = "postgres"
	cfg.Database.PostgresURL = "postgres://physio@localhost/physio"
	assert.Equal(t, "postgres://physio@localhost/physio", cfg.DatabaseDSN())

	lc := cfg.LoggingConfig()
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, 100, lc.MaxSize)
	assert.Equal(t, 5, lc.MaxBackups)
	assert.Equal(t, 30, lc.MaxAge)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			modifyFn:  func(cfg *Config) {},
			wantError: false,
		},
		{
			name:      "invalid port - too high",
			modifyFn:  func(cfg *Config) { cfg.Server.Port = 70000 },
			wantError: true,
			errorMsg:  "port must be between 1 and 65535",
		},
		{
			name:      "invalid database type",
			modifyFn:  func(cfg *Config) { cfg.Database.Type = "mongo" },
			wantError: true,
			errorMsg:  "invalid database type",
		},
		{
			name:      "postgres without url",
			modifyFn:  func(cfg *Config) { cfg.Database.Type = "postgres" },
			wantError: true,
			errorMsg:  "postgres_url is required",
		},
		{
			name:      "invalid log level",
			modifyFn:  func(cfg *Config) { cfg.Logging.Level = "verbose" },
			wantError: true,
			errorMsg:  "invalid level",
		},
		{
			name:      "trust weights not summing to one",
			modifyFn:  func(cfg *Config) { cfg.Analytics.TrustWeights.Coherence = 0.5 },
			wantError: true,
			errorMsg:  "weights must sum to 1",
		},
		{
			name:      "long window shorter than trailing",
			modifyFn:  func(cfg *Config) { cfg.Analytics.LongWindowDays = 7 },
			wantError: true,
			errorMsg:  "must not be shorter than trailing_window_days",
		},
		{
			name:      "decision threshold out of range",
			modifyFn:  func(cfg *Config) { cfg.Analytics.DecisionThreshold = 2 },
			wantError: true,
			errorMsg:  "must be in (0, 1]",
		},
		{
			name:      "spoof factor not implausible",
			modifyFn:  func(cfg *Config) { cfg.Simulation.SpoofFactor = 0.5 },
			wantError: true,
			errorMsg:  "must be greater than 1",
		},
		{
			name:      "unknown collision policy",
			modifyFn:  func(cfg *Config) { cfg.Simulation.CollisionPolicy = "merge" },
			wantError: true,
			errorMsg:  "invalid policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modifyFn(cfg)

			errs := cfg.Validate()

			if !tt.wantError {
				assert.Empty(t, errs, "expected no validation errors but got: %v", errs)
				return
			}
			require.NotEmpty(t, errs, "expected validation errors but got none")
			found := false
			for _, err := range errs {
				if assert.IsType(t, &ValidationError{}, err) && containsMsg(err.Error(), tt.errorMsg) {
					found = true
				}
			}
			assert.True(t, found, "expected error message containing '%s', got: %v", tt.errorMsg, errs)
		})
	}
}

func containsMsg(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigManagerLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  allowed_origins:
    - "https://physio.example"

database:
  type: "sqlite"
  sqlite_path: "/var/lib/physio/physio.db"

logging:
  level: "debug"
  format: "console"

analytics:
  min_baseline_points: 7
  trust_weights:
    missingness: 0.4
    consistency: 0.2
    shift: 0.2
    coherence: 0.2

simulation:
  seed: 7
  collision_policy: "skip"
`)

	mgr, err := NewConfigManager(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	require.NoError(t, mgr.Validate(ctx))

	cfg := mgr.Get(ctx)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://physio.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/var/lib/physio/physio.db", cfg.Database.SQLitePath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 7, cfg.Analytics.MinBaselinePoints)
	assert.Equal(t, 0.4, cfg.Analytics.TrustWeights.Missingness)
	assert.Equal(t, int64(7), cfg.Simulation.Seed)
	assert.Equal(t, "skip", cfg.Simulation.CollisionPolicy)

	// untouched keys keep defaults
	assert.Equal(t, 90, cfg.Analytics.LongWindowDays)
	assert.Equal(t, 3, cfg.Simulation.DelayDays)
}

func TestConfigManagerEnvironmentOverrides(t *testing.T) {
	t.Setenv("PHYSIO_SERVER_PORT", "7070")
	t.Setenv("PHYSIO_ANALYTICS_DRIVER_THRESHOLD", "2.5")
	t.Setenv("DATABASE_URL", "postgres://physio@db/physio")

	path := writeConfig(t, `
server:
  port: 8090
database:
  type: "postgres"
`)
	mgr, err := NewConfigManager(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	cfg := mgr.Get(ctx)

	assert.Equal(t, 7070, cfg.Server.Port, "port should be overridden by environment variable")
	assert.Equal(t, 2.5, cfg.Analytics.DriverThreshold)
	assert.Equal(t, "postgres://physio@db/physio", cfg.Database.PostgresURL)
	assert.NoError(t, mgr.Validate(ctx))
}

func TestConfigManagerShortPortVariable(t *testing.T) {
	t.Setenv("PHYSIO_PORT", "6060")

	mgr, err := NewConfigManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, mgr.Load(context.Background()))
	assert.Equal(t, 6060, mgr.Get(context.Background()).Server.Port)
}

func TestConfigManagerMissingFile(t *testing.T) {
	mgr, err := NewConfigManager(filepath.Join(t.TempDir(), "nonexistent-config.yaml"))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))

	cfg := mgr.Get(ctx)
	assert.NotNil(t, cfg)
	assert.Equal(t, 8090, cfg.Server.Port)
}

func TestConfigManagerValidation(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 99999
database:
  type: "oracle"
`)
	mgr, err := NewConfigManager(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))

	err = mgr.Validate(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "database.type")
}

func TestConfigManagerReload(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	mgr, err := NewConfigManager(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	assert.Equal(t, "info", mgr.Get(ctx).Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0644))
	require.NoError(t, mgr.Reload(ctx))
	assert.Equal(t, "warn", mgr.Get(ctx).Logging.Level)
}

func TestConfigManagerWatch(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	mgr, err := NewConfigManager(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	updates := mgr.Watch(ctx)

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	// a write may surface as several events; wait for the final content
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-updates:
			if cfg.Logging.Level == "debug" {
				assert.Equal(t, "debug", mgr.Get(ctx).Logging.Level)
				return
			}
		case <-timeout:
			t.Fatal("no config update received")
		}
	}
}
