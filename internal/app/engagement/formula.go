package engagement

import (
	"math"
	"time"

	"github.com/studyquest/studyquest/internal/domain"
)

// PrestigeLevel is the level at which prestige becomes available.
const PrestigeLevel = 100

// XPPerMinute is the base session rate.
const XPPerMinute = 10

// XPForLevel returns the XP needed to go from level to level+1.
// Power curve: floor(50 * level^1.5).
func XPForLevel(level int) int64 {
	if level < 1 {
		return 0
	}
	l := float64(level)
	return int64(math.Floor(50 * l * math.Sqrt(l)))
}

// TotalXPForLevel returns the cumulative XP at which a level is reached.
// Level 1 starts at 0; level L needs every step from 1 to L-1.
func TotalXPForLevel(level int) int64 {
	var total int64
	for i := 1; i < level; i++ {
		total += XPForLevel(i)
	}
	return total
}

// maxSearchLevel bounds LevelFromXP; its threshold is far above any int64
// reachable by play but still below overflow.
const maxSearchLevel = 1 << 20

// LevelFromXP returns the largest level whose threshold does not exceed xp.
func LevelFromXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	// Gallop to an upper bound, then binary search.
	hi := 2
	for hi < maxSearchLevel && TotalXPForLevel(hi) <= xp {
		hi *= 2
	}
	lo := hi / 2
	if lo < 1 {
		lo = 1
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if TotalXPForLevel(mid) <= xp {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// XPProgress returns progress toward the next level boundary.
func XPProgress(stats domain.UserStats) domain.Progress {
	level := LevelFromXP(stats.XP)
	floor := TotalXPForLevel(level)
	needed := TotalXPForLevel(level+1) - floor
	current := stats.XP - floor

	pct := 0.0
	if needed > 0 {
		pct = float64(current) / float64(needed) * 100.0
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return domain.Progress{Current: current, Needed: needed, Percentage: pct}
}

// ─── Streak Tiers ───────────────────────────────────────────────────────────

// streakTiers is ordered lowest first. The first entry is the default.
var streakTiers = []domain.StreakTier{
	{MinDays: 1, MaxDays: 2, Multiplier: 1.0, Label: "Getting Started"},
	{MinDays: 3, MaxDays: 6, Multiplier: 1.1, Label: "Warming Up"},
	{MinDays: 7, MaxDays: 13, Multiplier: 1.25, Label: "On Fire"},
	{MinDays: 14, MaxDays: 29, Multiplier: 1.5, Label: "Unstoppable"},
	{MinDays: 30, MaxDays: 99, Multiplier: 1.75, Label: "Legendary"},
	{MinDays: 100, Multiplier: 2.0, Label: "Mythic"},
}

// StreakTiers returns a copy of the streak tier table.
func StreakTiers() []domain.StreakTier {
	out := make([]domain.StreakTier, len(streakTiers))
	copy(out, streakTiers)
	return out
}

// StreakTierFor returns the tier containing days, defaulting to the lowest.
func StreakTierFor(days int) domain.StreakTier {
	for _, t := range streakTiers {
		if t.Contains(days) {
			return t
		}
	}
	return streakTiers[0]
}

// ─── Level Milestones ───────────────────────────────────────────────────────

// LevelMilestone is a one-time bonus granted on reaching a level.
type LevelMilestone struct {
	BonusXP int64
	Title   string
}

var levelMilestones = map[int]LevelMilestone{
	5:   {BonusXP: 100, Title: "Apprentice Scholar"},
	10:  {BonusXP: 250, Title: "Dedicated Learner"},
	25:  {BonusXP: 750, Title: "Knowledge Seeker"},
	50:  {BonusXP: 2000, Title: "Scholar"},
	75:  {BonusXP: 4000, Title: "Sage"},
	100: {BonusXP: 10000, Title: "Grand Master"},
}

// MilestoneForLevel returns the milestone reward for level, if any.
func MilestoneForLevel(level int) (LevelMilestone, bool) {
	m, ok := levelMilestones[level]
	return m, ok
}

// ─── Reset & Scaling ────────────────────────────────────────────────────────

// ShouldReset reports whether a periodic list is due for regeneration.
// A zero lastResetAt means the list was never generated.
func ShouldReset(lastResetAt, now time.Time, interval time.Duration) bool {
	if lastResetAt.IsZero() {
		return true
	}
	return now.Sub(lastResetAt) > interval
}

// ScaleTarget raises a quest target by 5% per ten levels.
// Targets of 1 (binary quests) are never scaled.
func ScaleTarget(base float64, level int) float64 {
	if base <= 1 || level < 10 {
		return base
	}
	return math.Round(base * (1 + 0.05*float64(level/10)))
}
