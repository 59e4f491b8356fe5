package models

import (
	"math"
	"sort"
	"time"
)

// History is a validated, date-ordered snapshot of one user's records.
// It is read-only to the analytics core.
type History struct {
	UserID  string
	Records []HealthRecord
	Days    []time.Time

	series map[Metric]Series
}

// NewHistory validates records and parses their dates. Records must belong to
// one user, be strictly increasing by date and carry no duplicate dates.
// The records are deep-copied so later mutation of the input cannot leak in.
func NewHistory(records []HealthRecord) (*History, error) {
	h := &History{
		Records: CloneRecords(records),
		Days:    make([]time.Time, len(records)),
	}
	for i, r := range h.Records {
		if r.UserID == "" {
			return nil, &InputError{Field: "user_id", Index: i, Err: ErrMissingUser}
		}
		if h.UserID == "" {
			h.UserID = r.UserID
		} else if r.UserID != h.UserID {
			return nil, &InputError{Field: "user_id", Index: i, Detail: r.UserID, Err: ErrUserMismatch}
		}
		day, err := r.Day()
		if err != nil {
			return nil, err
		}
		if i > 0 {
			prev := h.Days[i-1]
			if day.Equal(prev) {
				return nil, &InputError{Field: "date", Index: i, Detail: r.Date, Err: ErrDuplicateDate}
			}
			if day.Before(prev) {
				return nil, &InputError{Field: "date", Index: i, Detail: r.Date, Err: ErrOutOfOrder}
			}
		}
		h.Days[i] = day
	}
	h.series = make(map[Metric]Series, len(AllMetrics))
	for _, m := range AllMetrics {
		h.series[m] = h.extract(m)
	}
	return h, nil
}

// Len returns the number of records.
func (h *History) Len() int { return len(h.Records) }

// Series returns the per-metric sequence. Known metrics are extracted once
// in NewHistory and shared, so callers must not modify the points.
func (h *History) Series(m Metric) Series {
	if s, ok := h.series[m]; ok {
		return s
	}
	return h.extract(m)
}

func (h *History) extract(m Metric) Series {
	pts := make([]Point, len(h.Records))
	for i, r := range h.Records {
		v, ok := r.Value(m)
		pts[i] = Point{Day: h.Days[i], Value: v, Present: ok}
	}
	return Series{Metric: m, Points: pts}
}

// Point is one (date, value-or-absent) pair.
type Point struct {
	Day     time.Time
	Value   float64
	Present bool
}

// Series is the ordered sequence of a single metric for one user.
type Series struct {
	Metric Metric
	Points []Point
}

// Values returns the series as a slice with NaN marking absent entries.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		if p.Present {
			out[i] = p.Value
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Present returns the present values in order.
func (s Series) Present() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Present {
			out = append(out, p.Value)
		}
	}
	return out
}

// span returns the index range of points with from <= day < to.
func (s Series) span(from, to time.Time) (int, int) {
	lo := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Day.Before(from) })
	hi := sort.Search(len(s.Points), func(i int) bool { return !s.Points[i].Day.Before(to) })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Window returns present values with from <= day < to.
func (s Series) Window(from, to time.Time) []float64 {
	lo, hi := s.span(from, to)
	out := make([]float64, 0, hi-lo)
	for _, p := range s.Points[lo:hi] {
		if p.Present {
			out = append(out, p.Value)
		}
	}
	return out
}

// AlignedWindow returns the series values (NaN for absent) for the points
// with from <= day < to. Series extracted from the same History align by
// index, so two AlignedWindow calls with equal bounds are pairwise comparable.
func (s Series) AlignedWindow(from, to time.Time) []float64 {
	lo, hi := s.span(from, to)
	out := make([]float64, 0, hi-lo)
	for _, p := range s.Points[lo:hi] {
		if p.Present {
			out = append(out, p.Value)
		} else {
			out = append(out, math.NaN())
		}
	}
	return out
}
