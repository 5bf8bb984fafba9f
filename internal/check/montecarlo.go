package check

import (
	"errors"
	"math"
	"slices"

	"github.com/xtding233/storycore/internal/state"
)

// MaxTrials bounds a single odds estimate.
const MaxTrials = 200_000

var ErrTooManyTrials = errors.New("too many trials")

// Stats summarizes the success counts of many simulated checks.
// Histogram[k] is how many trials produced exactly k successes.
type Stats struct {
	Mean      float64 `json:"mean"`
	Var       float64 `json:"var"`
	StdDev    float64 `json:"stddev"`
	Min       int     `json:"min"`
	Max       int     `json:"max"`
	P50       float64 `json:"p50"`
	P90       float64 `json:"p90"`
	P99       float64 `json:"p99"`
	Histogram []int   `json:"histogram"`
}

// Odds is a Monte Carlo estimate of how a check tends to go.
type Odds struct {
	Trials            int                      `json:"trials"`
	SuccessRate       float64                  `json:"success_rate"`
	RequiredSuccesses uint32                   `json:"required_successes"`
	Successes         Stats                    `json:"successes"`
	Tiers             map[EventOutcomeTier]int `json:"tiers"`
}

// calcStats summarizes non-negative counts. Variance is the population
// variance; percentiles interpolate linearly between ranks.
func calcStats(counts []int) Stats {
	n := len(counts)
	if n == 0 {
		return Stats{}
	}
	sorted := slices.Clone(counts)
	slices.Sort(sorted)

	var sum float64
	for _, c := range sorted {
		sum += float64(c)
	}
	mean := sum / float64(n)

	var sq float64
	for _, c := range sorted {
		d := float64(c) - mean
		sq += d * d
	}
	variance := sq / float64(n)

	hist := make([]int, max(sorted[n-1], 0)+1)
	for _, c := range sorted {
		if c >= 0 {
			hist[c]++
		}
	}

	return Stats{
		Mean:      mean,
		Var:       variance,
		StdDev:    math.Sqrt(variance),
		Min:       sorted[0],
		Max:       sorted[n-1],
		P50:       rankValue(sorted, 0.50),
		P90:       rankValue(sorted, 0.90),
		P99:       rankValue(sorted, 0.99),
		Histogram: hist,
	}
}

// rankValue reads quantile q from ascending sorted values.
func rankValue(sorted []int, q float64) float64 {
	last := len(sorted) - 1
	pos := q * float64(last)
	lo := int(pos)
	if lo >= last {
		return float64(sorted[last])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}

// EstimateOdds resolves the check trials times with rng and summarizes the
// outcomes. trials <= 0 yields zero Odds.
func EstimateOdds(config EventCheckConfig, attrs state.ActorAttrs, trials int, rng RandomSource) (Odds, error) {
	if trials <= 0 {
		return Odds{}, nil
	}
	if trials > MaxTrials {
		return Odds{}, ErrTooManyTrials
	}
	if rng == nil {
		rng = DefaultRNG()
	}

	samples := make([]int, trials)
	tiers := map[EventOutcomeTier]int{}
	var (
		passed   int
		required uint32
	)
	for i := range trials {
		result := Resolve(config, attrs, rng)
		samples[i] = int(result.Successes)
		required = result.RequiredSuccesses
		if result.Success {
			passed++
		}
		tiers[ClassifyOutcomeTier(result)]++
	}

	return Odds{
		Trials:            trials,
		SuccessRate:       float64(passed) / float64(trials),
		RequiredSuccesses: required,
		Successes:         calcStats(samples),
		Tiers:             tiers,
	}, nil
}
