package check

import (
	"math"

	"github.com/xtding233/storycore/internal/state"
)

// MaxDicePerInfluence caps the pool a single influence can contribute.
const MaxDicePerInfluence = 4096

type supportDice struct {
	logIndex int
	dieSides uint32
	count    uint32
}

// Resolve runs one check for the actor whose values are in attrs.
//
// Support influences add round(value*weight*count_factor) dice of their size
// to the pool. Resist influences add value*weight*count_factor resist points
// (kept continuous); round(points*ResistToExtraRequired) extra successes are
// then required on top of BaseRequired. Every die showing at least
// SuccessThreshold counts as one success.
//
// Rounding is half away from zero and negative counts become zero. Unknown
// attribute keys read as 0. The returned Rolls has one entry per influence,
// in input order. A nil rng falls back to DefaultRNG.
//
// A Support influence never rolls more than MaxDicePerInfluence dice, even
// when round(value*weight*count_factor) is larger, and required successes
// saturate at math.MaxUint32. Configs that hit either bound do not follow
// the formula above exactly.
func Resolve(config EventCheckConfig, attrs state.ActorAttrs, rng RandomSource) MultiAttrCheckResult {
	if rng == nil {
		rng = DefaultRNG()
	}

	logs := make([]MultiAttrRollLog, 0, len(config.Influences))
	var (
		pool         []supportDice
		resistPoints float64
	)

	for _, inf := range config.Influences {
		effective := float64(attrs[inf.Key]) * inf.WeightOrDefault()

		logIndex := len(logs)
		logs = append(logs, MultiAttrRollLog{
			Key:      inf.Key,
			Kind:     inf.Kind,
			DieSides: inf.DieSides,
			Rolled:   []uint32{},
		})

		switch inf.Kind {
		case Support:
			pool = append(pool, supportDice{
				logIndex: logIndex,
				dieSides: inf.DieSides,
				count:    diceCount(effective * inf.CountFactor),
			})
		case Resist:
			resistPoints += effective * inf.CountFactor
		}
	}

	extra := nonNegativeRound(resistPoints*config.ResistToExtraRequired, math.MaxUint32)
	required := saturatingAdd(config.BaseRequired, uint32(extra))

	var successes uint32
	for _, dice := range pool {
		if dice.dieSides == 0 {
			continue
		}
		rolled := make([]uint32, 0, dice.count)
		for range dice.count {
			roll := rollDie(rng, dice.dieSides)
			rolled = append(rolled, roll)
			if roll >= config.SuccessThreshold {
				successes++
			}
		}
		logs[dice.logIndex].Rolled = rolled
	}

	return MultiAttrCheckResult{
		Success:           successes >= required,
		Successes:         successes,
		RequiredSuccesses: required,
		Rolls:             logs,
	}
}

// diceCount rounds x to a die count in [0, MaxDicePerInfluence].
func diceCount(x float64) uint32 {
	return uint32(nonNegativeRound(x, MaxDicePerInfluence))
}

// nonNegativeRound rounds half away from zero and clamps to [0, limit].
// NaN maps to 0.
func nonNegativeRound(x, limit float64) float64 {
	r := math.Round(x)
	if !(r > 0) {
		return 0
	}
	return math.Min(r, limit)
}

func saturatingAdd(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
