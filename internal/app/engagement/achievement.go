package engagement

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/domain"
)

// AchievementEvaluator checks the achievement catalog against UserStats.
// It holds no per-user state; "already unlocked" lives on the stats.
type AchievementEvaluator struct {
	definitions []domain.AchievementDef
	index       map[string]int
	log         zerolog.Logger
}

// NewAchievementEvaluator builds an evaluator over defs, or over the
// built-in catalog when defs is nil. Entries without an ID and repeated
// IDs are skipped.
func NewAchievementEvaluator(defs []domain.AchievementDef, log zerolog.Logger) *AchievementEvaluator {
	if defs == nil {
		defs = AllAchievements()
	}
	a := &AchievementEvaluator{
		index: make(map[string]int, len(defs)),
		log:   log.With().Str("component", "achievements").Logger(),
	}
	for _, def := range defs {
		if def.ID == "" {
			a.log.Warn().Str("name", def.Name).Msg("skipping achievement without id")
			continue
		}
		if _, dup := a.index[def.ID]; dup {
			a.log.Warn().Str("id", def.ID).Msg("skipping duplicate achievement")
			continue
		}
		a.index[def.ID] = len(a.definitions)
		a.definitions = append(a.definitions, def)
	}
	return a
}

// CheckAll unlocks every satisfied entry not yet on stats. Unlock XP can
// satisfy further entries, so it repeats until nothing new unlocks.
func (a *AchievementEvaluator) CheckAll(stats *domain.UserStats) []domain.RewardEvent {
	var events []domain.RewardEvent
	for {
		unlockedThisPass := 0
		for _, def := range a.definitions {
			if stats.HasAchievement(def.ID) {
				continue
			}
			if !a.satisfied(def, *stats) {
				continue
			}
			events = append(events, a.unlock(stats, def)...)
			unlockedThisPass++
		}
		if unlockedThisPass == 0 {
			return events
		}
	}
}

// Unlock grants the named entries without evaluating their conditions.
// Unknown and already-unlocked IDs are ignored.
func (a *AchievementEvaluator) Unlock(stats *domain.UserStats, ids ...string) []domain.RewardEvent {
	var events []domain.RewardEvent
	for _, id := range ids {
		def, ok := a.Lookup(id)
		if !ok || stats.HasAchievement(id) {
			continue
		}
		events = append(events, a.unlock(stats, def)...)
	}
	return events
}

// Lookup returns the definition for id.
func (a *AchievementEvaluator) Lookup(id string) (domain.AchievementDef, bool) {
	i, ok := a.index[id]
	if !ok {
		return domain.AchievementDef{}, false
	}
	return a.definitions[i], true
}

// Definitions returns all achievement definitions (for display).
func (a *AchievementEvaluator) Definitions() []domain.AchievementDef {
	out := make([]domain.AchievementDef, len(a.definitions))
	copy(out, a.definitions)
	return out
}

// TotalCount returns the total number of defined achievements.
func (a *AchievementEvaluator) TotalCount() int {
	return len(a.definitions)
}

func (a *AchievementEvaluator) unlock(stats *domain.UserStats, def domain.AchievementDef) []domain.RewardEvent {
	stats.Achievements = append(stats.Achievements, def.ID)
	events := []domain.RewardEvent{{
		Type:          domain.RewardAchievement,
		Tier:          def.Tier,
		Title:         def.Name,
		Message:       def.Description,
		XP:            def.XP,
		AchievementID: def.ID,
	}}
	if def.XP > 0 {
		events = append(events, applyXP(stats, def.XP)...)
	}
	return events
}

// satisfied evaluates def.Condition, treating a nil or panicking
// predicate as unsatisfied.
func (a *AchievementEvaluator) satisfied(def domain.AchievementDef, stats domain.UserStats) (ok bool) {
	if def.Condition == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			a.log.Warn().Str("id", def.ID).Str("panic", fmt.Sprint(r)).Msg("achievement condition failed")
			ok = false
		}
	}()
	return def.Condition(stats)
}

// ─── Achievement Definitions ────────────────────────────────────────────────
// One catalog keyed by id, grouped by what the predicate reads.

// StreakMilestones are the streak lengths that carry an achievement.
var StreakMilestones = []int{3, 7, 14, 30, 50, 100, 365}

// StreakAchievementID names the achievement for a streak milestone.
func StreakAchievementID(days int) string {
	return fmt.Sprintf("streak_%d", days)
}

// AllAchievements returns the full achievement catalog.
func AllAchievements() []domain.AchievementDef {
	defs := []domain.AchievementDef{
		// ── Sessions ──
		{ID: "first_session", Name: "First Steps", Description: "Complete your first study session",
			Tier: domain.TierCommon, XP: 50,
			Condition: func(s domain.UserStats) bool { return s.TotalSessions >= 1 }},
		{ID: "sessions_10", Name: "Getting Into It", Description: "Complete 10 study sessions",
			Tier: domain.TierCommon, XP: 100,
			Condition: func(s domain.UserStats) bool { return s.TotalSessions >= 10 }},
		{ID: "sessions_50", Name: "Regular", Description: "Complete 50 study sessions",
			Tier: domain.TierUncommon, XP: 250,
			Condition: func(s domain.UserStats) bool { return s.TotalSessions >= 50 }},
		{ID: "sessions_100", Name: "Centurion", Description: "Complete 100 study sessions",
			Tier: domain.TierRare, XP: 500,
			Condition: func(s domain.UserStats) bool { return s.TotalSessions >= 100 }},
		{ID: "sessions_500", Name: "Lifer", Description: "Complete 500 study sessions",
			Tier: domain.TierEpic, XP: 2000,
			Condition: func(s domain.UserStats) bool { return s.TotalSessions >= 500 }},

		// ── Study time ──
		{ID: "hours_10", Name: "Ten Hours In", Description: "Study for 10 hours in total",
			Tier: domain.TierUncommon, XP: 200,
			Condition: func(s domain.UserStats) bool { return s.TotalStudyTimeMinutes >= 10*60 }},
		{ID: "hours_100", Name: "Hundred Hours", Description: "Study for 100 hours in total",
			Tier: domain.TierRare, XP: 1000,
			Condition: func(s domain.UserStats) bool { return s.TotalStudyTimeMinutes >= 100*60 }},
		{ID: "hours_1000", Name: "Thousand Hours", Description: "Study for 1000 hours in total",
			Tier: domain.TierLegendary, XP: 5000,
			Condition: func(s domain.UserStats) bool { return s.TotalStudyTimeMinutes >= 1000*60 }},
		{ID: "deep_focus", Name: "Deep Focus", Description: "Study for an hour without stopping",
			Tier: domain.TierCommon, XP: 100,
			Condition: func(s domain.UserStats) bool { return s.LongestSessionMinutes >= 60 }},
		{ID: "marathon", Name: "Marathon", Description: "Finish a session of three hours or more",
			Tier: domain.TierRare, XP: 300,
			Condition: func(s domain.UserStats) bool { return s.LongestSessionMinutes >= 180 }},

		// ── Subjects ──
		{ID: "polymath", Name: "Polymath", Description: "Study five different subjects",
			Tier: domain.TierUncommon, XP: 250,
			Condition: func(s domain.UserStats) bool { return len(s.SubjectMastery) >= 5 }},
		{ID: "subject_master", Name: "Subject Master", Description: "Spend 1000 minutes on one subject",
			Tier: domain.TierRare, XP: 500,
			Condition: func(s domain.UserStats) bool {
				for _, minutes := range s.SubjectMastery {
					if minutes >= 1000 {
						return true
					}
				}
				return false
			}},

		// ── Levels ──
		{ID: "level_10", Name: "Double Digits", Description: "Reach level 10",
			Tier: domain.TierUncommon, XP: 200,
			Condition: func(s domain.UserStats) bool { return s.Level >= 10 || s.PrestigeLevel > 0 }},
		{ID: "level_25", Name: "Quarter Century", Description: "Reach level 25",
			Tier: domain.TierRare, XP: 500,
			Condition: func(s domain.UserStats) bool { return s.Level >= 25 || s.PrestigeLevel > 0 }},
		{ID: "level_50", Name: "Halfway There", Description: "Reach level 50",
			Tier: domain.TierEpic, XP: 1500,
			Condition: func(s domain.UserStats) bool { return s.Level >= 50 || s.PrestigeLevel > 0 }},
		{ID: "level_100", Name: "Summit", Description: "Reach level 100",
			Tier: domain.TierLegendary, XP: 5000,
			Condition: func(s domain.UserStats) bool { return s.Level >= 100 || s.PrestigeLevel > 0 }},
		{ID: "prestige_1", Name: "Born Again", Description: "Prestige for the first time",
			Tier: domain.TierLegendary, XP: 1000,
			Condition: func(s domain.UserStats) bool { return s.PrestigeLevel >= 1 }},

		// ── Quests ──
		{ID: "quest_first", Name: "Quest Giver", Description: "Complete your first quest",
			Tier: domain.TierCommon, XP: 50,
			Condition: func(s domain.UserStats) bool { return s.QuestsCompleted >= 1 }},
		{ID: "quest_25", Name: "Adventurer", Description: "Complete 25 quests",
			Tier: domain.TierRare, XP: 500,
			Condition: func(s domain.UserStats) bool { return s.QuestsCompleted >= 25 }},

		// ── Time of day ──
		{ID: "early_bird", Name: "Early Bird", Description: "Start five sessions before 7am",
			Tier: domain.TierUncommon, XP: 150,
			Condition: func(s domain.UserStats) bool { return s.EarlyBirdSessions >= 5 }},
		{ID: "night_owl", Name: "Night Owl", Description: "Start five sessions after 10pm",
			Tier: domain.TierUncommon, XP: 150,
			Condition: func(s domain.UserStats) bool { return s.NightOwlSessions >= 5 }},
	}

	// ── Streaks ──
	streakMeta := map[int]struct {
		name string
		tier domain.RewardTier
		xp   int64
	}{
		3:   {"Three in a Row", domain.TierCommon, 75},
		7:   {"Full Week", domain.TierUncommon, 150},
		14:  {"Fortnight", domain.TierRare, 300},
		30:  {"Monthly Habit", domain.TierEpic, 750},
		50:  {"Fifty Days", domain.TierEpic, 1000},
		100: {"Triple Digits", domain.TierLegendary, 2500},
		365: {"Year of Study", domain.TierLegendary, 10000},
	}
	for _, days := range StreakMilestones {
		meta := streakMeta[days]
		n := days
		defs = append(defs, domain.AchievementDef{
			ID:          StreakAchievementID(days),
			Name:        meta.name,
			Description: fmt.Sprintf("Study %d days in a row", days),
			Tier:        meta.tier,
			XP:          meta.xp,
			Condition:   func(s domain.UserStats) bool { return s.LongestStreak >= n },
		})
	}
	return defs
}
