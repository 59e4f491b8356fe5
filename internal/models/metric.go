package models

// Package models defines the value types shared by the analytics core, the
// persistence layer and the REST API.
//
// A HealthRecord is one day of aggregated telemetry for one user. Every metric
// is optional: an absent value (nil) is a first-class state distinct from zero
// and is what the trust engine counts as missingness.

// Metric names a tracked physiological signal.
type Metric string

const (
	MetricSleepHours Metric = "sleep_hours"
	MetricRestingHR  Metric = "resting_hr"
	MetricHRV        Metric = "hrv"
	MetricSteps      Metric = "steps"
	MetricCalories   Metric = "calories"
	MetricWeight     Metric = "weight"
)

// AllMetrics is the fixed evaluation order. Every engine iterates metrics in
// this order so outputs are deterministic.
var AllMetrics = []Metric{
	MetricSleepHours,
	MetricRestingHR,
	MetricHRV,
	MetricSteps,
	MetricCalories,
	MetricWeight,
}

// MetricSpec describes the physical limits of a metric.
type MetricSpec struct {
	Min float64
	Max float64
	// Resolution is the smallest meaningful change; used as the spread floor
	// when a history is constant.
	Resolution float64
	Label      string
}

var metricSpecs = map[Metric]MetricSpec{
	MetricSleepHours: {Min: 0, Max: 24, Resolution: 0.1, Label: "sleep hours"},
	MetricRestingHR:  {Min: 20, Max: 250, Resolution: 1, Label: "resting heart rate"},
	MetricHRV:        {Min: 0, Max: 300, Resolution: 1, Label: "heart rate variability"},
	MetricSteps:      {Min: 0, Max: 100000, Resolution: 100, Label: "steps"},
	MetricCalories:   {Min: 0, Max: 15000, Resolution: 20, Label: "calories"},
	MetricWeight:     {Min: 20, Max: 400, Resolution: 0.1, Label: "weight"},
}

// Spec returns the limits for m. Unknown metrics get an unbounded spec.
func (m Metric) Spec() MetricSpec {
	if s, ok := metricSpecs[m]; ok {
		return s
	}
	return MetricSpec{Min: -1e308, Max: 1e308, Resolution: 1e-6, Label: string(m)}
}

// Label is the human readable name used in narratives.
func (m Metric) Label() string {
	return m.Spec().Label
}

// Clamp bounds v to the metric's valid range.
func (m Metric) Clamp(v float64) float64 {
	s := m.Spec()
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Valid reports whether m is one of the tracked metrics.
func (m Metric) Valid() bool {
	_, ok := metricSpecs[m]
	return ok
}

// ParseMetrics converts names to metrics, rejecting unknown names.
func ParseMetrics(names []string) ([]Metric, error) {
	out := make([]Metric, 0, len(names))
	for _, n := range names {
		m := Metric(n)
		if !m.Valid() {
			return nil, &InputError{Field: "metrics", Err: ErrUnknownMetric, Detail: n}
		}
		out = append(out, m)
	}
	return out, nil
}
