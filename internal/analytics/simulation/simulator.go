package simulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics/anomaly"
	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// Simulator runs corruption plus re-detection.
type Simulator struct {
	cfg      Config
	detector anomaly.Detector
}

// NewSimulator creates a simulator that re-detects with detector.
func NewSimulator(cfg Config, detector anomaly.Detector) *Simulator {
	return &Simulator{cfg: cfg, detector: detector}
}

// Run validates req, corrupts a copy of h and re-runs detection over the whole
// modified history. Posture is left for the caller to fill.
func (s *Simulator) Run(h *models.History, req models.SimulationRequest) (models.SimulationResult, error) {
	if err := req.Validate(); err != nil {
		return models.SimulationResult{}, err
	}
	if req.UserID != h.UserID {
		return models.SimulationResult{}, &models.InputError{Field: "user_id", Detail: req.UserID, Err: models.ErrUserMismatch}
	}
	targets, _ := models.ParseMetrics(req.Metrics)

	seed := s.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	modified, injections := s.cfg.Inject(h.Records, req.Mode, req.Fraction, targets, NewRand(seed))
	mh, err := models.NewHistory(modified)
	if err != nil {
		return models.SimulationResult{}, fmt.Errorf("rebuild corrupted history: %w", err)
	}

	detected := []models.AnomalyResult{}
	flagged := make(map[string]bool)
	for _, r := range s.detector.Detect(mh, time.Time{}, time.Time{}) {
		if r.IsAnomaly {
			detected = append(detected, r)
			flagged[r.Date] = true
		}
	}

	var summary models.DetectionSummary
	for _, inj := range injections {
		if inj.Skipped {
			continue
		}
		summary.Injected++
		if flagged[inj.Date] {
			summary.Caught++
		}
	}
	if summary.Injected > 0 {
		summary.Recall = float64(summary.Caught) / float64(summary.Injected)
	}

	return models.SimulationResult{
		RunID:             uuid.NewString(),
		UserID:            h.UserID,
		Mode:              req.Mode,
		Fraction:          req.Fraction,
		Seed:              seed,
		ModifiedRecords:   modified,
		DetectedAnomalies: detected,
		Injections:        injections,
		Detection:         summary,
	}, nil
}

// InjectedDates returns the dates of applied injections.
func InjectedDates(injections []models.Injection) []string {
	out := make([]string, 0, len(injections))
	for _, inj := range injections {
		if !inj.Skipped {
			out = append(out, inj.Date)
		}
	}
	return out
}
