package anomaly

import (
	"math"
	"sort"
	"time"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics/baseline"
	"github.com/Aryiadm/physio-threat-engine/internal/analytics/trust"
	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// secondaryDriverWeight scales every driver after the strongest one.
const secondaryDriverWeight = 0.25

type detectorImpl struct {
	cfg    Config
	scorer *trust.Scorer
}

// NewDetector creates a detector that weights deviations by scorer's trust.
func NewDetector(cfg Config, scorer *trust.Scorer) Detector {
	return &detectorImpl{cfg: cfg, scorer: scorer}
}

func (d *detectorImpl) Detect(h *models.History, from, to time.Time) []models.AnomalyResult {
	out := make([]models.AnomalyResult, 0, h.Len())
	for i, day := range h.Days {
		if (!from.IsZero() && day.Before(from)) || (!to.IsZero() && day.After(to)) {
			continue
		}
		out = append(out, d.evaluate(h, i))
	}
	return out
}

func (d *detectorImpl) Evaluate(h *models.History, day time.Time) (models.AnomalyResult, bool) {
	i := sort.Search(len(h.Days), func(i int) bool { return !h.Days[i].Before(day) })
	if i == len(h.Days) || !h.Days[i].Equal(day) {
		return models.AnomalyResult{}, false
	}
	return d.evaluate(h, i), true
}

func (d *detectorImpl) evaluate(h *models.History, i int) models.AnomalyResult {
	day := h.Days[i]
	rec := h.Records[i]
	result := models.AnomalyResult{
		UserID:  h.UserID,
		Date:    rec.Date,
		Drivers: []models.AnomalyDriver{},
	}

	longFrom := day.AddDate(0, 0, -d.cfg.LongWindowDays)
	// Trust as of the previous day keeps today's value out of its own weight.
	trustAt := d.scorer.TrustAt(h, day.AddDate(0, 0, -1))

	evaluated := 0
	var drivers []models.AnomalyDriver
	for _, m := range models.AllMetrics {
		v, ok := rec.Value(m)
		if !ok {
			continue
		}
		base, err := baseline.Estimate(h.Series(m).Window(longFrom, day), d.cfg.MinBaselinePoints, m.Spec().Resolution)
		if err != nil {
			continue
		}
		evaluated++

		z := base.Z(v)
		if math.Abs(z) <= d.cfg.DriverThreshold {
			continue
		}
		dir := models.DirectionHigh
		if z < 0 {
			dir = models.DirectionLow
		}
		drivers = append(drivers, models.AnomalyDriver{
			Metric:    m,
			Value:     v,
			Deviation: z,
			Direction: dir,
			Trust:     trustAt[m],
			Weighted:  trustAt[m] * math.Abs(z),
		})
	}

	if evaluated == 0 {
		result.Insufficient = true
		result.Narrative = narrate(rec.Date, nil, true)
		return result
	}

	// Stable so ties keep the fixed metric order.
	sort.SliceStable(drivers, func(a, b int) bool { return drivers[a].Weighted > drivers[b].Weighted })

	result.AnomalyScore = d.score(drivers)
	result.IsAnomaly = result.AnomalyScore >= d.cfg.DecisionThreshold
	for _, drv := range drivers {
		if math.Abs(drv.Deviation) >= d.cfg.SeverityThreshold {
			result.IsAnomaly = true
			break
		}
	}

	if len(drivers) > d.cfg.MaxDrivers {
		drivers = drivers[:d.cfg.MaxDrivers]
	}
	if drivers != nil {
		result.Drivers = drivers
	}
	result.Narrative = narrate(rec.Date, result.Drivers, false)
	return result
}

// score expects drivers sorted by descending weight.
func (d *detectorImpl) score(drivers []models.AnomalyDriver) float64 {
	if len(drivers) == 0 {
		return 0
	}
	agg := drivers[0].Weighted
	for _, drv := range drivers[1:] {
		agg += secondaryDriverWeight * drv.Weighted
	}
	s := agg / d.cfg.SaturationDeviation
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	return math.Min(s, 1)
}
