package models

import (
	"math"
	"time"
)

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// HealthRecord is one observation for one user on one calendar date.
type HealthRecord struct {
	UserID     string   `json:"user_id" yaml:"user_id" db:"user_id"`
	Date       string   `json:"date" yaml:"date" db:"date"`
	SleepHours *float64 `json:"sleep_hours" yaml:"sleep_hours" db:"sleep_hours"`
	RestingHR  *float64 `json:"resting_hr" yaml:"resting_hr" db:"resting_hr"`
	HRV        *float64 `json:"hrv" yaml:"hrv" db:"hrv"`
	Steps      *float64 `json:"steps" yaml:"steps" db:"steps"`
	Calories   *float64 `json:"calories" yaml:"calories" db:"calories"`
	Weight     *float64 `json:"weight" yaml:"weight" db:"weight"`
}

// Float returns a pointer to v, for building records in code.
func Float(v float64) *float64 { return &v }

func (r *HealthRecord) slot(m Metric) **float64 {
	switch m {
	case MetricSleepHours:
		return &r.SleepHours
	case MetricRestingHR:
		return &r.RestingHR
	case MetricHRV:
		return &r.HRV
	case MetricSteps:
		return &r.Steps
	case MetricCalories:
		return &r.Calories
	case MetricWeight:
		return &r.Weight
	}
	return nil
}

// Value returns the metric value and whether it is present. NaN and ±Inf
// count as absent.
func (r HealthRecord) Value(m Metric) (float64, bool) {
	p := r.slot(m)
	if p == nil || *p == nil {
		return 0, false
	}
	v := **p
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Set stores v for m.
func (r *HealthRecord) Set(m Metric, v float64) {
	if p := r.slot(m); p != nil {
		*p = Float(v)
	}
}

// Clear marks m as absent.
func (r *HealthRecord) Clear(m Metric) {
	if p := r.slot(m); p != nil {
		*p = nil
	}
}

// PresentMetrics lists metrics with a usable value, in AllMetrics order.
func (r HealthRecord) PresentMetrics() []Metric {
	var out []Metric
	for _, m := range AllMetrics {
		if _, ok := r.Value(m); ok {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy; metric pointers are not shared. NaN and
// infinite values become absent so copies always encode.
func (r HealthRecord) Clone() HealthRecord {
	c := HealthRecord{UserID: r.UserID, Date: r.Date}
	for _, m := range AllMetrics {
		if v, ok := r.Value(m); ok {
			c.Set(m, v)
		}
	}
	return c
}

// Day parses the record date.
func (r HealthRecord) Day() (time.Time, error) {
	return ParseDay(r.Date)
}

// ParseDay parses a calendar date in DateLayout as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &InputError{Field: "date", Detail: s, Err: ErrInvalidDate}
	}
	return t.UTC(), nil
}

// FormatDay renders t as a calendar date.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// CloneRecords deep-copies a history.
func CloneRecords(records []HealthRecord) []HealthRecord {
	out := make([]HealthRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
