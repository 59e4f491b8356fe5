package simulation

// Package simulation corrupts a copy of a user's history and re-runs anomaly
// detection over it to measure how much of the corruption is caught.
//
// Sampling is deterministic: k = round(n * fraction), at least 1, and the
// selected indices are floor(j*n/k) for j in [0,k). Randomness only enters
// through metric choice and noise, both drawn from an injected generator.
//
// Modes:
//   - missing: clears the targeted metrics (all by default)
//   - spoof:   multiplies present, non-zero targeted metrics by SpoofFactor
//   - noise:   perturbs one metric by uniform(-s, s), s = max(f|v|, resolution),
//              clamped to range
//   - delay:   moves the record DelayDays forward, latest first; when the
//              target date is occupied CollisionPolicy decides

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// CollisionPolicy decides what a delayed record does when its new date is taken.
type CollisionPolicy string

const (
	// CollisionOverwrite replaces the occupant with the late record.
	CollisionOverwrite CollisionPolicy = "overwrite"
	// CollisionSkip leaves both records in place and marks the injection skipped.
	CollisionSkip CollisionPolicy = "skip"
)

// Config controls corruption strength.
type Config struct {
	Seed            int64
	SpoofFactor     float64
	NoiseFraction   float64
	DelayDays       int
	CollisionPolicy CollisionPolicy
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Seed:            42,
		SpoofFactor:     2.0,
		NoiseFraction:   0.3,
		DelayDays:       3,
		CollisionPolicy: CollisionOverwrite,
	}
}

func (c Config) Validate() error {
	switch {
	case c.SpoofFactor <= 1:
		return fmt.Errorf("spoof factor must be greater than 1, got %v", c.SpoofFactor)
	case c.NoiseFraction <= 0 || c.NoiseFraction > 1:
		return fmt.Errorf("noise fraction must be in (0,1], got %v", c.NoiseFraction)
	case c.DelayDays < 1:
		return fmt.Errorf("delay days must be at least 1, got %d", c.DelayDays)
	case c.CollisionPolicy != CollisionOverwrite && c.CollisionPolicy != CollisionSkip:
		return fmt.Errorf("unknown collision policy %q", c.CollisionPolicy)
	}
	return nil
}

// NewRand returns the generator used for a run with the given seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Sample returns the indices selected from n records.
func Sample(n int, fraction float64) []int {
	if n <= 0 || fraction <= 0 {
		return nil
	}
	k := int(math.Round(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	idx := make([]int, k)
	for j := range idx {
		idx[j] = j * n / k
	}
	return idx
}
