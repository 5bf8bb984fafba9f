package check

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeFactor(t *testing.T) {
	tcs := []struct {
		successes, required uint32
		want                float64
	}{
		{successes: 4, required: 3, want: 0.5},
		{successes: 1, required: 3, want: -0.75},
		{successes: 0, required: 0, want: 0.5},
		{successes: 10, required: 0, want: 1.5},
		{successes: 0, required: 1, want: -1.0},
	}
	for _, tc := range tcs {
		got := OutcomeFactor(MultiAttrCheckResult{Successes: tc.successes, RequiredSuccesses: tc.required})
		assert.InDelta(t, tc.want, got, 1e-9, "%d/%d", tc.successes, tc.required)
	}
}

func TestComputeAttributeDeltas(t *testing.T) {
	cfg := scenarioConfig()
	attrs := scenarioAttrs()
	rules := AttrUpdateRuleMap{
		"courage": {Key: "courage", BaseScale: 0.4, SuccessSign: ptr(1), FailureSign: ptr(-1)},
		"empathy": {Key: "empathy", BaseScale: 0.3, SuccessSign: ptr(1), FailureSign: ptr(-0.5)},
		"fear":    {Key: "fear", BaseScale: 1},
	}
	total := 7.0 + 4*1.2*0.5

	success := MultiAttrCheckResult{Success: true, Successes: 4, RequiredSuccesses: 3}
	deltas := ComputeAttributeDeltas(cfg, attrs, success, rules)
	require.Len(t, deltas, 2, "resist influences never drift")
	assert.Equal(t, "courage", deltas[0].Key)
	assert.InDelta(t, 0.4*0.5*7/total, deltas[0].Delta, 1e-9)
	assert.Equal(t, "empathy", deltas[1].Key)
	assert.InDelta(t, 0.3*0.5*2.4/total, deltas[1].Delta, 1e-9)

	failure := MultiAttrCheckResult{Success: false, Successes: 1, RequiredSuccesses: 3}
	deltas = ComputeAttributeDeltas(cfg, attrs, failure, rules)
	require.Len(t, deltas, 2)
	assert.InDelta(t, -1*0.4*0.75*7/total, deltas[0].Delta, 1e-9)
	assert.InDelta(t, -0.5*0.3*0.75*2.4/total, deltas[1].Delta, 1e-9)
}

func TestComputeAttributeDeltasDefaultsAndGaps(t *testing.T) {
	cfg := scenarioConfig()
	rules := AttrUpdateRuleMap{"courage": {Key: "courage", BaseScale: 1}}

	deltas := ComputeAttributeDeltas(cfg, scenarioAttrs(), MultiAttrCheckResult{Successes: 0, RequiredSuccesses: 1}, rules)
	require.Len(t, deltas, 1, "influences without a rule are skipped")
	assert.Less(t, deltas[0].Delta, 0.0, "failure sign defaults to -1")

	deltas = ComputeAttributeDeltas(cfg, nil, MultiAttrCheckResult{Success: true}, rules)
	require.Len(t, deltas, 1)
	assert.Zero(t, deltas[0].Delta, "empty support pool gives zero share")
}

func TestClassifyOutcomeTier(t *testing.T) {
	tcs := []struct {
		successes, required uint32
		want                EventOutcomeTier
	}{
		{successes: 6, required: 3, want: TierGreatSuccess},
		{successes: 5, required: 3, want: TierSuccess},
		{successes: 3, required: 3, want: TierSuccess},
		{successes: 2, required: 3, want: TierMixed},
		{successes: 1, required: 3, want: TierFailure},
		{successes: 0, required: 3, want: TierDisaster},
		{successes: 0, required: 9, want: TierDisaster},
	}
	for _, tc := range tcs {
		got := ClassifyOutcomeTier(MultiAttrCheckResult{Successes: tc.successes, RequiredSuccesses: tc.required})
		assert.Equal(t, tc.want, got, "%d/%d", tc.successes, tc.required)
	}
}

func TestResolveEvent(t *testing.T) {
	rng := &scriptedRNG{faces: []int{6, 1, 5, 2, 3, 4, 6, 8, 2}}
	rules := AttrUpdateRuleMap{"courage": {Key: "courage", BaseScale: 0.4}}

	got := ResolveEvent(scenarioConfig(), scenarioAttrs(), rules, rng)

	assert.True(t, got.Check.Success)
	assert.Equal(t, TierSuccess, got.OutcomeTier)
	require.Len(t, got.Deltas, 1)
	assert.Greater(t, got.Deltas[0].Delta, 0.0)
}

func TestEstimateOdds(t *testing.T) {
	cfg := scenarioConfig()
	cfg.SuccessThreshold = 1

	odds, err := EstimateOdds(cfg, scenarioAttrs(), 500, NewSeededRNG(5))
	require.NoError(t, err)
	assert.Equal(t, 500, odds.Trials)
	assert.Equal(t, 1.0, odds.SuccessRate)
	assert.Equal(t, uint32(3), odds.RequiredSuccesses)
	assert.Equal(t, 9.0, odds.Successes.Mean)
	assert.Zero(t, odds.Successes.StdDev)
	assert.Equal(t, map[EventOutcomeTier]int{TierGreatSuccess: 500}, odds.Tiers)

	cfg.SuccessThreshold = 100
	odds, err = EstimateOdds(cfg, scenarioAttrs(), 50, NewSeededRNG(5))
	require.NoError(t, err)
	assert.Zero(t, odds.SuccessRate)
	assert.Equal(t, 50, odds.Tiers[TierDisaster])
}

func TestEstimateOddsBounds(t *testing.T) {
	odds, err := EstimateOdds(scenarioConfig(), scenarioAttrs(), 0, nil)
	require.NoError(t, err)
	assert.Zero(t, odds.Trials)

	_, err = EstimateOdds(scenarioConfig(), scenarioAttrs(), MaxTrials+1, nil)
	assert.True(t, errors.Is(err, ErrTooManyTrials))
}

func TestCalcStats(t *testing.T) {
	s := calcStats([]int{1, 2, 3, 4})
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 1.25, s.Var)
	assert.InDelta(t, math.Sqrt(1.25), s.StdDev, 1e-12)
	assert.Equal(t, 2.5, s.P50)
	assert.Equal(t, 1, s.Min)
	assert.Equal(t, 4, s.Max)
	assert.Equal(t, []int{0, 1, 1, 1, 1}, s.Histogram)
	assert.Zero(t, calcStats(nil).Mean)

	s = calcStats([]int{3, 0, 3})
	assert.Equal(t, []int{1, 0, 0, 2}, s.Histogram)
	assert.Equal(t, 3.0, s.P90)
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(scenarioConfig()))

	bad := EventCheckConfig{
		Influences: []AttrInfluence{
			{Key: "", Kind: "hinder", DieSides: 0, CountFactor: math.NaN()},
			{Key: "ok", Kind: Support, DieSides: 6, CountFactor: 1, Weight: ptr(math.Inf(1))},
		},
		ResistToExtraRequired: math.Inf(-1),
	}
	err := ValidateConfig(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	msg := err.Error()
	for _, want := range []string{
		"actor_id is required",
		"influences[0].key is required",
		"influences[0].kind must be one of: support resist",
		"influences[0].die_sides must be >= 1",
		"influences[0].count_factor must be finite",
		"influences[1].weight must be finite",
		"resist_to_extra_required must be finite",
	} {
		assert.Contains(t, msg, want)
	}
}
