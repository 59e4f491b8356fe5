package models

import "math"

// SimulationMode selects the corruption applied by the adversarial harness.
type SimulationMode string

const (
	ModeMissing SimulationMode = "missing"
	ModeDelay   SimulationMode = "delay"
	ModeSpoof   SimulationMode = "spoof"
	ModeNoise   SimulationMode = "noise"
)

// Valid reports whether m is a known mode.
func (m SimulationMode) Valid() bool {
	switch m {
	case ModeMissing, ModeDelay, ModeSpoof, ModeNoise:
		return true
	}
	return false
}

// SimulationRequest asks for one corruption run over a user's history.
type SimulationRequest struct {
	UserID   string         `json:"user_id"`
	Mode     SimulationMode `json:"mode"`
	Fraction float64        `json:"fraction"`
	// Metrics optionally restricts which metrics are corrupted.
	Metrics []string `json:"metrics,omitempty"`
	// Seed overrides the configured seed when non-nil.
	Seed *int64 `json:"seed,omitempty"`
}

// Validate rejects malformed requests.
func (r SimulationRequest) Validate() error {
	if r.UserID == "" {
		return &InputError{Field: "user_id", Err: ErrMissingUser}
	}
	if !r.Mode.Valid() {
		return &InputError{Field: "mode", Detail: string(r.Mode), Err: ErrInvalidMode}
	}
	if math.IsNaN(r.Fraction) || r.Fraction <= 0 || r.Fraction > 1 {
		return &InputError{Field: "fraction", Err: ErrInvalidFraction}
	}
	if _, err := ParseMetrics(r.Metrics); err != nil {
		return err
	}
	return nil
}

// Injection describes what happened to one selected record.
type Injection struct {
	Date         string   `json:"date"`
	OriginalDate string   `json:"original_date"`
	Metrics      []Metric `json:"metrics"`
	Skipped      bool     `json:"skipped,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// DetectionSummary measures how many injected dates were flagged.
type DetectionSummary struct {
	Injected int     `json:"injected"`
	Caught   int     `json:"caught"`
	Recall   float64 `json:"recall"`
}

// SimulationResult is the outcome of one corruption run.
type SimulationResult struct {
	RunID             string           `json:"run_id"`
	UserID            string           `json:"user_id"`
	Mode              SimulationMode   `json:"mode"`
	Fraction          float64          `json:"fraction"`
	Seed              int64            `json:"seed"`
	ModifiedRecords   []HealthRecord   `json:"modified_records"`
	DetectedAnomalies []AnomalyResult  `json:"detected_anomalies"`
	Injections        []Injection      `json:"injections"`
	Detection         DetectionSummary `json:"detection"`
	Posture           SecurityPosture  `json:"posture"`
}
