package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics/anomaly"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/correlation"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/security"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/simulation"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/trust"
	"github.com/Aryiadm/physio-threat-engine/internal/metrics"
	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// Package analytics is the single entry point to the physio analytics core.
//
// Every operation takes a snapshot of one user's records, validates it at the
// boundary and returns fresh value objects. The engine holds no per-user
// state, so one Engine may serve concurrent calls for different users.
//
// Operations:
//   - TrustScores:     per metric, per date trust in [0,1] with drivers
//   - DetectAnomalies: lookahead-free robust deviation scoring with narratives
//   - Correlations:    pairwise-complete Pearson r for every metric pair
//   - Simulate:        adversarial corruption plus re-detection
//   - SecurityPosture: trust and detection summarised as a posture
//   - FederatedTrust:  similarity of the user's profile to a cohort
//
// Malformed requests (duplicate or unordered dates, bad fractions) are
// rejected with errors wrapping models.ErrMalformedInput. Bad data never is.

// Config bundles the component configurations.
type Config struct {
	Trust      trust.Config
	Anomaly    anomaly.Config
	Simulation simulation.Config
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	tc := trust.DefaultConfig()
	ac := anomaly.DefaultConfig()
	ac.LongWindowDays = tc.LongWindowDays
	return Config{
		Trust:      tc,
		Anomaly:    ac,
		Simulation: simulation.DefaultConfig(),
	}
}

// Validate checks every component configuration.
func (c Config) Validate() error {
	if err := c.Trust.Validate(); err != nil {
		return fmt.Errorf("trust: %w", err)
	}
	if err := c.Anomaly.Validate(); err != nil {
		return fmt.Errorf("anomaly: %w", err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}

// Engine runs analyses over record snapshots.
type Engine struct {
	cfg       Config
	logger    *zap.Logger
	scorer    *trust.Scorer
	detector  anomaly.Detector
	simulator *simulation.Simulator
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine after validating cfg.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analytics config: %w", err)
	}
	e := &Engine{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.scorer = trust.NewScorer(cfg.Trust)
	e.detector = anomaly.NewDetector(cfg.Anomaly, e.scorer)
	e.simulator = simulation.NewSimulator(cfg.Simulation, e.detector)
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// TrustScores scores every metric on every record date within r.
func (e *Engine) TrustScores(ctx context.Context, records []models.HealthRecord, r models.Range) ([]models.TrustEntry, error) {
	h, done, err := e.begin(ctx, "trust", records)
	if err != nil {
		return nil, err
	}
	out := e.scorer.Score(h, r.From, r.To)
	done(nil)
	return out, nil
}

// DetectAnomalies evaluates every record date within r.
func (e *Engine) DetectAnomalies(ctx context.Context, records []models.HealthRecord, r models.Range) ([]models.AnomalyResult, error) {
	h, done, err := e.begin(ctx, "anomaly", records)
	if err != nil {
		return nil, err
	}
	out := e.detector.Detect(h, r.From, r.To)
	recordDetections("live", out)
	done(nil)
	return out, nil
}

// Correlations returns Pearson r for every distinct metric pair.
func (e *Engine) Correlations(ctx context.Context, records []models.HealthRecord) ([]models.CorrelationPair, error) {
	h, done, err := e.begin(ctx, "correlation", records)
	if err != nil {
		return nil, err
	}
	out := correlation.Matrix(h)
	done(nil)
	return out, nil
}

// Simulate corrupts a copy of records per req and reports what detection
// caught. The posture is measured against the injected dates.
func (e *Engine) Simulate(ctx context.Context, records []models.HealthRecord, req models.SimulationRequest) (models.SimulationResult, error) {
	h, done, err := e.begin(ctx, "simulation", records)
	if err != nil {
		return models.SimulationResult{}, err
	}
	res, err := e.simulator.Run(h, req)
	if err != nil {
		e.logger.Warn("Simulation request rejected",
			zap.String("user_id", req.UserID),
			zap.String("mode", string(req.Mode)),
			zap.Error(err))
		done(err)
		return models.SimulationResult{}, err
	}

	mh, err := models.NewHistory(res.ModifiedRecords)
	if err != nil {
		done(err)
		return models.SimulationResult{}, fmt.Errorf("rebuild corrupted history: %w", err)
	}
	entries := e.scorer.Score(mh, time.Time{}, time.Time{})
	res.Posture = security.Evaluate(entries, res.DetectedAnomalies, simulation.InjectedDates(res.Injections))

	metrics.SimulationsTotal.WithLabelValues(string(req.Mode)).Inc()
	metrics.SimulationRecall.WithLabelValues(string(req.Mode)).Observe(res.Detection.Recall)
	metrics.AnomaliesDetected.WithLabelValues("simulation").Add(float64(len(res.DetectedAnomalies)))

	e.logger.Info("Simulation completed",
		zap.String("run_id", res.RunID),
		zap.String("user_id", res.UserID),
		zap.String("mode", string(res.Mode)),
		zap.Float64("fraction", res.Fraction),
		zap.Int64("seed", res.Seed),
		zap.Int("injected", res.Detection.Injected),
		zap.Int("caught", res.Detection.Caught))
	done(nil)
	return res, nil
}

// SecurityPosture evaluates trust and detection within r, treating days with
// any absent metric as ground truth.
func (e *Engine) SecurityPosture(ctx context.Context, records []models.HealthRecord, r models.Range) (models.SecurityPosture, error) {
	h, done, err := e.begin(ctx, "security", records)
	if err != nil {
		return models.SecurityPosture{}, err
	}
	entries := e.scorer.Score(h, r.From, r.To)
	results := e.detector.Detect(h, r.From, r.To)

	var truth []string
	for _, d := range security.MissingDays(h) {
		day, _ := models.ParseDay(d)
		if (r.From.IsZero() || !day.Before(r.From)) && (r.To.IsZero() || !day.After(r.To)) {
			truth = append(truth, d)
		}
	}
	out := security.Evaluate(entries, results, truth)
	done(nil)
	return out, nil
}

// FederatedTrust compares the user's profile with the cohort's. Each cohort
// member is validated like the user.
func (e *Engine) FederatedTrust(ctx context.Context, records []models.HealthRecord, cohort [][]models.HealthRecord) (models.FederatedTrust, error) {
	h, done, err := e.begin(ctx, "federated", records)
	if err != nil {
		return models.FederatedTrust{}, err
	}
	peers := make([]*models.History, 0, len(cohort))
	for i, recs := range cohort {
		ph, err := models.NewHistory(recs)
		if err != nil {
			done(err)
			return models.FederatedTrust{}, fmt.Errorf("cohort member %d: %w", i, err)
		}
		peers = append(peers, ph)
	}
	out := trust.Federated(h, peers)
	done(nil)
	return out, nil
}

// begin validates the snapshot and returns a completion func that records
// metrics and logs the outcome.
func (e *Engine) begin(ctx context.Context, kind string, records []models.HealthRecord) (*models.History, func(error), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	start := time.Now()
	h, err := models.NewHistory(records)
	if err != nil {
		e.logger.Warn("Rejected malformed history",
			zap.String("analysis", kind),
			zap.Int("records", len(records)),
			zap.Error(err))
		metrics.AnalysesTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
		return nil, nil, err
	}
	metrics.RecordsAnalyzed.Observe(float64(h.Len()))

	done := func(err error) {
		elapsed := time.Since(start)
		metrics.AnalysesTotal.WithLabelValues(kind, metrics.Status(err)).Inc()
		metrics.AnalysisDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		e.logger.Debug("Analysis finished",
			zap.String("analysis", kind),
			zap.String("user_id", h.UserID),
			zap.Int("records", h.Len()),
			zap.Duration("duration", elapsed),
			zap.Error(err))
	}
	return h, done, nil
}

func recordDetections(source string, results []models.AnomalyResult) {
	var flagged, insufficient int
	for _, r := range results {
		if r.IsAnomaly {
			flagged++
		}
		if r.Insufficient {
			insufficient++
		}
	}
	metrics.AnomaliesDetected.WithLabelValues(source).Add(float64(flagged))
	metrics.InsufficientHistoryTotal.Add(float64(insufficient))
}
