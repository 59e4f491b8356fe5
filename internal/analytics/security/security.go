// Package security summarises a history's trust and detection performance as
// a security posture.
package security

import (
	"sort"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// MissingDays returns the dates of records with at least one absent metric.
// Stored histories have no injection log, so these serve as ground truth.
func MissingDays(h *models.History) []string {
	out := []string{}
	for _, r := range h.Records {
		if len(r.PresentMetrics()) < len(models.AllMetrics) {
			out = append(out, r.Date)
		}
	}
	return out
}

// Evaluate computes the posture from trust entries, detection results and the
// ground-truth dates. With no ground truth, precision and recall are 1 and
// mean time to detect is 0.
func Evaluate(entries []models.TrustEntry, results []models.AnomalyResult, truth []string) models.SecurityPosture {
	var p models.SecurityPosture

	if len(entries) > 0 {
		var sum float64
		for _, e := range entries {
			sum += e.Score
		}
		p.SignalIntegrity = sum / float64(len(entries))
	}
	p.AttackSurfaceScore = 1 - p.SignalIntegrity

	var detected []string
	isDetected := make(map[string]bool)
	for _, r := range results {
		if r.IsAnomaly && !isDetected[r.Date] {
			isDetected[r.Date] = true
			detected = append(detected, r.Date)
		}
	}
	sort.Strings(detected)

	isTrue := make(map[string]bool, len(truth))
	for _, d := range truth {
		isTrue[d] = true
	}
	p.GroundTruthDays = len(isTrue)
	p.DetectedDays = len(detected)

	if len(isTrue) == 0 {
		p.AnomalyPrecision = 1
		p.AnomalyRecall = 1
		return p
	}

	var tp int
	for _, d := range detected {
		if isTrue[d] {
			tp++
		}
	}
	if len(detected) > 0 {
		p.AnomalyPrecision = float64(tp) / float64(len(detected))
	}
	p.AnomalyRecall = float64(tp) / float64(len(isTrue))
	p.MeanTimeToDetect = meanTimeToDetect(isTrue, detected)
	return p
}

// meanTimeToDetect averages, over ground-truth days followed by a detection,
// the days until the first detection on or after them. detected is sorted.
func meanTimeToDetect(truth map[string]bool, detected []string) float64 {
	var total float64
	var n int
	for d := range truth {
		i := sort.SearchStrings(detected, d)
		if i == len(detected) {
			continue
		}
		from, err := models.ParseDay(d)
		if err != nil {
			continue
		}
		to, err := models.ParseDay(detected[i])
		if err != nil {
			continue
		}
		total += to.Sub(from).Hours() / 24
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
