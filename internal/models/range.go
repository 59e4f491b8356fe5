package models

import "time"

// Range bounds an evaluation by calendar day, inclusive. A zero side is open.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange parses optional YYYY-MM-DD bounds.
func ParseRange(from, to string) (Range, error) {
	var r Range
	var err error
	if from != "" {
		if r.From, err = ParseDay(from); err != nil {
			return Range{}, err
		}
	}
	if to != "" {
		if r.To, err = ParseDay(to); err != nil {
			return Range{}, err
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return Range{}, &InputError{Field: "range", Detail: from + ".." + to, Err: ErrInvalidRange}
	}
	return r, nil
}

// ValidateHistory checks records without keeping the parsed history.
func ValidateHistory(records []HealthRecord) error {
	_, err := NewHistory(records)
	return err
}
