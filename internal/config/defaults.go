package config

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8090
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	cfg.Server.SimulateRatePerMin = 30
	cfg.Server.ReadTimeoutSec = 15
	cfg.Server.WriteTimeoutSec = 30

	cfg.Database.Type = "sqlite"
	cfg.Database.SQLitePath = "physio.db"
	cfg.Database.PostgresURL = ""

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.File = ""
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 5
	cfg.Logging.MaxAgeDays = 30

	cfg.Analytics.TrailingWindowDays = 14
	cfg.Analytics.LongWindowDays = 90
	cfg.Analytics.MinBaselinePoints = 5
	cfg.Analytics.DriverThreshold = 2.0
	cfg.Analytics.DecisionThreshold = 0.5
	cfg.Analytics.SeverityThreshold = 6.0
	cfg.Analytics.SaturationDeviation = 6.0
	cfg.Analytics.MaxDrivers = 3
	cfg.Analytics.TrustDriverThreshold = 0.5
	cfg.Analytics.TrustWeights.Missingness = 0.35
	cfg.Analytics.TrustWeights.Consistency = 0.25
	cfg.Analytics.TrustWeights.Shift = 0.25
	cfg.Analytics.TrustWeights.Coherence = 0.15

	cfg.Simulation.Seed = 42
	cfg.Simulation.SpoofFactor = 2.0
	cfg.Simulation.NoiseFraction = 0.3
	cfg.Simulation.DelayDays = 3
	cfg.Simulation.CollisionPolicy = "overwrite"

	return cfg
}
