package models

import "time"

// Trust driver codes, in the order they are reported.
const (
	TrustDriverNoData      = "no-data"
	TrustDriverMissingness = "missingness"
	TrustDriverConsistency = "consistency"
	TrustDriverShift       = "distribution-shift"
	TrustDriverCoherence   = "coherence"
)

// TrustComponents are the four sub-scores behind a trust score.
type TrustComponents struct {
	Missingness float64 `json:"missingness"`
	Consistency float64 `json:"consistency"`
	Shift       float64 `json:"distribution_shift"`
	Coherence   float64 `json:"coherence"`
}

// TrustEntry is the trust in one metric on one date.
type TrustEntry struct {
	Metric     Metric          `json:"metric"`
	Date       string          `json:"date"`
	Score      float64         `json:"score"`
	Drivers    []string        `json:"drivers"`
	Components TrustComponents `json:"components"`
}

// Direction of a deviation from baseline.
type Direction string

const (
	DirectionHigh Direction = "high"
	DirectionLow  Direction = "low"
)

// AnomalyDriver is a metric whose deviation crossed the driver threshold.
type AnomalyDriver struct {
	Metric    Metric    `json:"metric"`
	Value     float64   `json:"value"`
	Deviation float64   `json:"z_score"`
	Direction Direction `json:"direction"`
	Trust     float64   `json:"trust"`
	Weighted  float64   `json:"weighted_deviation"`
}

// AnomalyResult is the evaluation of one date.
type AnomalyResult struct {
	UserID       string          `json:"user_id"`
	Date         string          `json:"date"`
	AnomalyScore float64         `json:"anomaly_score"`
	IsAnomaly    bool            `json:"is_anomaly"`
	Insufficient bool            `json:"insufficient_history"`
	Drivers      []AnomalyDriver `json:"drivers"`
	Narrative    string          `json:"narrative"`
}

// CorrelationPair is the association between two distinct metrics.
type CorrelationPair struct {
	MetricX     Metric  `json:"metric_x"`
	MetricY     Metric  `json:"metric_y"`
	Correlation float64 `json:"correlation"`
	Pairs       int     `json:"pairs"`
}

// SecurityPosture summarises how trustworthy and well-defended a history is.
type SecurityPosture struct {
	AttackSurfaceScore float64 `json:"attack_surface_score"`
	SignalIntegrity    float64 `json:"signal_integrity"`
	AnomalyPrecision   float64 `json:"anomaly_precision"`
	AnomalyRecall      float64 `json:"anomaly_recall"`
	MeanTimeToDetect   float64 `json:"mean_time_to_detect"`
	GroundTruthDays    int     `json:"ground_truth_days"`
	DetectedDays       int     `json:"detected_days"`
}

// FederatedTrust compares a user's aggregate profile to a cohort.
type FederatedTrust struct {
	UserID     string  `json:"user_id"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
	CohortSize int     `json:"cohort_size"`
}

// SimulationRun is a persisted summary of a simulation.
type SimulationRun struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Mode      string    `json:"mode" db:"mode"`
	Fraction  float64   `json:"fraction" db:"fraction"`
	Seed      int64     `json:"seed" db:"seed"`
	Injected  int       `json:"injected" db:"injected"`
	Caught    int       `json:"caught" db:"caught"`
	Recall    float64   `json:"recall" db:"recall"`
	Detected  int       `json:"detected" db:"detected"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
