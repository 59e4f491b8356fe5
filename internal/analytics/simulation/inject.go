package simulation

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

const (
	reasonNoTarget  = "no targeted metric present"
	reasonCollision = "date collision"
	reasonUnchanged = "noise left value unchanged"
)

// Inject applies mode to a copy of records and returns the modified copy,
// sorted by date, with one Injection per selected record. records must be
// date-ordered; targets restricts the corrupted metrics (nil means all).
func (c Config) Inject(records []models.HealthRecord, mode models.SimulationMode, fraction float64,
	targets []models.Metric, rng *rand.Rand) ([]models.HealthRecord, []models.Injection) {
	out := models.CloneRecords(records)
	selected := Sample(len(out), fraction)
	if len(targets) == 0 {
		targets = models.AllMetrics
	}

	if mode == models.ModeDelay {
		return c.delay(out, selected)
	}

	injections := make([]models.Injection, 0, len(selected))
	for _, i := range selected {
		r := &out[i]
		inj := models.Injection{Date: r.Date, OriginalDate: r.Date, Metrics: []models.Metric{}}
		switch mode {
		case models.ModeMissing:
			for _, m := range targets {
				if _, ok := r.Value(m); ok {
					r.Clear(m)
					inj.Metrics = append(inj.Metrics, m)
				}
			}
		case models.ModeSpoof:
			for _, m := range targets {
				if v, ok := r.Value(m); ok && v != 0 {
					r.Set(m, v*c.SpoofFactor)
					inj.Metrics = append(inj.Metrics, m)
				}
			}
		case models.ModeNoise:
			if m, ok := pickNoiseMetric(*r, targets, rng); ok {
				v, _ := r.Value(m)
				if nv := c.perturb(m, v, rng); nv != v {
					r.Set(m, nv)
					inj.Metrics = append(inj.Metrics, m)
				} else {
					inj.Reason = reasonUnchanged
				}
			}
		}
		if len(inj.Metrics) == 0 {
			inj.Skipped = true
			if inj.Reason == "" {
				inj.Reason = reasonNoTarget
			}
		}
		injections = append(injections, inj)
	}
	return out, injections
}

// perturb adds uniform noise of up to NoiseFraction*|v|, never less than one
// resolution step so zero readings still move. A draw the range clamp would
// swallow is mirrored.
func (c Config) perturb(m models.Metric, v float64, rng *rand.Rand) float64 {
	spread := math.Max(c.NoiseFraction*math.Abs(v), m.Spec().Resolution)
	d := distuv.Uniform{Min: -spread, Max: spread, Src: rng}.Rand()
	if out := m.Clamp(v + d); out != v {
		return out
	}
	return m.Clamp(v - d)
}

// pickNoiseMetric takes the first requested metric when exactly one was asked
// for, otherwise a seeded choice among the present targets.
func pickNoiseMetric(r models.HealthRecord, targets []models.Metric, rng *rand.Rand) (models.Metric, bool) {
	var present []models.Metric
	for _, m := range targets {
		if _, ok := r.Value(m); ok {
			present = append(present, m)
		}
	}
	if len(present) == 0 {
		return "", false
	}
	if len(targets) == 1 {
		return present[0], true
	}
	return present[rng.IntN(len(present))], true
}

func (c Config) delay(records []models.HealthRecord, selected []int) ([]models.HealthRecord, []models.Injection) {
	byDate := make(map[string]models.HealthRecord, len(records))
	for _, r := range records {
		byDate[r.Date] = r
	}

	injections := make([]models.Injection, len(selected))
	// Latest first, so a record never lands on a slot another selected
	// record has yet to vacate.
	for j := len(selected) - 1; j >= 0; j-- {
		r := records[selected[j]]
		day, _ := r.Day()
		target := models.FormatDay(day.AddDate(0, 0, c.DelayDays))
		inj := models.Injection{Date: target, OriginalDate: r.Date, Metrics: append([]models.Metric{}, r.PresentMetrics()...)}

		if _, taken := byDate[target]; taken && c.CollisionPolicy == CollisionSkip {
			inj.Date = r.Date
			inj.Skipped = true
			inj.Reason = reasonCollision
		} else {
			delete(byDate, r.Date)
			r.Date = target
			byDate[target] = r
		}
		injections[j] = inj
	}

	out := make([]models.HealthRecord, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date < out[b].Date })
	return out, injections
}
