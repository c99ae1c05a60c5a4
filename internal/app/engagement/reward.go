package engagement

import (
	"math"

	"github.com/studyquest/studyquest/internal/domain"
)

// rewardRung is one step of the bonus ladder. Threshold is cumulative.
type rewardRung struct {
	Tier       domain.RewardTier
	Threshold  float64
	Multiplier float64
	Title      string
	Flavor     string
}

// rewardLadder is walked in order; the first scaled threshold above the
// roll wins. Anything past the last rung draws nothing.
var rewardLadder = []rewardRung{
	{Tier: domain.TierLegendary, Threshold: 0.01, Multiplier: 5.0,
		Title: "Legendary Insight", Flavor: "Everything clicked at once."},
	{Tier: domain.TierEpic, Threshold: 0.05, Multiplier: 2.0,
		Title: "Epic Focus", Flavor: "You were in the zone."},
	{Tier: domain.TierRare, Threshold: 0.15, Multiplier: 1.5,
		Title: "Rare Breakthrough", Flavor: "A hard idea finally made sense."},
	{Tier: domain.TierUncommon, Threshold: 0.35, Multiplier: 0.5,
		Title: "Bonus Spark", Flavor: "A little extra for showing up."},
}

const (
	maxSessionBonus         = 2.0
	outperformingMultiplier = 1.5
)

// Generator draws probabilistic bonus XP on top of a session grant.
type Generator struct {
	rand RandSource
}

// NewGenerator creates a generator over the given random source.
func NewGenerator(r RandSource) *Generator {
	return &Generator{rand: r}
}

// Draw rolls once against the ladder.
// recent holds the durations of the most recent sessions (newest last).
func (g *Generator) Draw(baseXP int64, durationMinutes float64, recent []float64) domain.VariableReward {
	sessionBonus := math.Min(maxSessionBonus, durationMinutes/60)

	avg := durationMinutes
	if len(recent) > 0 {
		var sum float64
		for _, d := range recent {
			sum += d
		}
		avg = sum / float64(len(recent))
	}

	perf := 1.0
	if durationMinutes > avg {
		perf = outperformingMultiplier
	}

	roll := g.rand.Float64()
	out := domain.VariableReward{
		Tier:                  domain.TierNone,
		SessionBonus:          sessionBonus,
		PerformanceMultiplier: perf,
		Roll:                  roll,
	}

	for _, rung := range rewardLadder {
		if rung.Threshold*perf > roll {
			out.Tier = rung.Tier
			out.Title = rung.Title
			out.Flavor = rung.Flavor
			out.BonusXP = int64(math.Floor(float64(baseXP) * rung.Multiplier * sessionBonus))
			break
		}
	}
	return out
}
