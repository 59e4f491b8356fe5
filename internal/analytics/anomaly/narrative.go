package anomaly

import (
	"fmt"
	"strings"

	"github.com/Aryiadm/physio-threat-engine/internal/models"
)

// Pattern is the narrative class of a driver set.
type Pattern string

const (
	PatternInsufficient Pattern = "insufficient"
	PatternNone         Pattern = "none"
	PatternSingleHigh   Pattern = "single-high"
	PatternSingleLow    Pattern = "single-low"
	PatternMultipleHigh Pattern = "multiple-high"
	PatternMultipleLow  Pattern = "multiple-low"
	PatternMixed        Pattern = "mixed"
)

// narratives maps each pattern to its template. Templates receive the date
// followed by the rendered driver list.
var narratives = map[Pattern]string{
	PatternInsufficient: "%s: Insufficient history to evaluate signals.",
	PatternNone:         "%s: Signals within expected ranges.",
	PatternSingleHigh:   "%s: Elevated reading detected: %s.",
	PatternSingleLow:    "%s: Depressed reading detected: %s.",
	PatternMultipleHigh: "%s: Multiple high-signal indicators detected: %s.",
	PatternMultipleLow:  "%s: Multiple low-signal indicators detected: %s.",
	PatternMixed:        "%s: Mixed signal deviations detected: %s.",
}

// Classify returns the pattern for a driver set.
func Classify(drivers []models.AnomalyDriver, insufficient bool) Pattern {
	if insufficient {
		return PatternInsufficient
	}
	if len(drivers) == 0 {
		return PatternNone
	}
	var high, low int
	for _, d := range drivers {
		if d.Direction == models.DirectionHigh {
			high++
		} else {
			low++
		}
	}
	switch {
	case high > 0 && low > 0:
		return PatternMixed
	case len(drivers) == 1 && high == 1:
		return PatternSingleHigh
	case len(drivers) == 1:
		return PatternSingleLow
	case high > 0:
		return PatternMultipleHigh
	default:
		return PatternMultipleLow
	}
}

func narrate(date string, drivers []models.AnomalyDriver, insufficient bool) string {
	p := Classify(drivers, insufficient)
	tmpl := narratives[p]
	switch p {
	case PatternInsufficient, PatternNone:
		return fmt.Sprintf(tmpl, date)
	}
	parts := make([]string, len(drivers))
	for i, d := range drivers {
		parts[i] = fmt.Sprintf("%s is %s baseline (z=%.2f)", d.Metric.Label(), aboveBelow(d.Direction), d.Deviation)
	}
	return fmt.Sprintf(tmpl, date, strings.Join(parts, "; "))
}

func aboveBelow(d models.Direction) string {
	if d == models.DirectionHigh {
		return "above"
	}
	return "below"
}
