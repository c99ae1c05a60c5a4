// Package engagement implements the studyquest progression engine.
// Sessions become XP and levels; streaks, quests, and achievements layer
// extra rewards on top, and every change is announced on a reward queue.
package engagement

import (
	"fmt"
	"time"

	"github.com/studyquest/studyquest/internal/domain"
)

// saverMilestones grant one streak saver when first reached.
var saverMilestones = map[int]bool{7: true, 30: true}

// dangerWindow is how close to midnight an unextended streak turns DANGER.
const dangerWindow = time.Hour

// StreakTracker derives streak transitions from calendar days.
// A "day" is a civil day in the location of the timestamps it is given.
type StreakTracker struct {
	achievements *AchievementEvaluator
}

// NewStreakTracker creates a tracker that reports milestones through a.
func NewStreakTracker(a *AchievementEvaluator) *StreakTracker {
	return &StreakTracker{achievements: a}
}

// DaysBetween counts civil days from a to b, evaluated in b's location.
// Same day is 0, yesterday-to-today is 1, regardless of clock time or DST.
func DaysBetween(a, b time.Time) int {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// nextMidnight returns the start of the day after t in t's location.
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// Status reports the streak's state at now without changing anything.
func (t *StreakTracker) Status(stats domain.UserStats, now time.Time) domain.StreakStatus {
	st := domain.StreakStatus{
		State:         domain.StreakNone,
		CurrentStreak: stats.CurrentStreak,
		LongestStreak: stats.LongestStreak,
		Tier:          StreakTierFor(stats.CurrentStreak),
		StreakSavers:  stats.StreakSavers,
	}
	if stats.LastStudyDate == nil || stats.CurrentStreak == 0 {
		return st
	}

	midnight := nextMidnight(now)
	switch days := DaysBetween(*stats.LastStudyDate, now); {
	case days <= 0:
		st.State = domain.StreakActive
		st.HoursLeft = nextMidnight(midnight).Sub(now).Hours()
	case days == 1:
		left := midnight.Sub(now)
		st.HoursLeft = left.Hours()
		st.State = domain.StreakWarning
		if left < dangerWindow {
			st.State = domain.StreakDanger
		}
	default:
		st.State = domain.StreakBroken
		st.CanUseSaver = stats.StreakSavers > 0
	}
	return st
}

// Advance applies one qualifying session at now.
//
// Studied today: nothing changes. Studied yesterday: the streak grows by
// one. A longer gap on a live streak with savers in hand is reported through
// CanUseSaver and left untouched for the caller to resolve. Otherwise the
// streak restarts.
func (t *StreakTracker) Advance(stats *domain.UserStats, now time.Time) (domain.StreakResult, []domain.RewardEvent) {
	res := domain.StreakResult{Previous: stats.CurrentStreak, Current: stats.CurrentStreak}

	if stats.LastStudyDate == nil {
		stats.CurrentStreak = 1
	} else {
		days := DaysBetween(*stats.LastStudyDate, now)
		switch {
		case days <= 0:
			return res, nil
		case days == 1:
			stats.CurrentStreak++
		case stats.StreakSavers > 0 && stats.CurrentStreak > 0:
			res.CanUseSaver = true
			res.Broken = true
			return res, nil
		default:
			res.Broken = stats.CurrentStreak > 0
			stats.CurrentStreak = 1
		}
	}

	last := now
	stats.LastStudyDate = &last
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	res.Changed = true
	res.Current = stats.CurrentStreak
	return res, t.milestones(stats)
}

// UseSaver spends one saver to keep the streak alive across a gap.
// The count is not incremented. Returns false with no change at 0 savers.
func (t *StreakTracker) UseSaver(stats *domain.UserStats, now time.Time) ([]domain.RewardEvent, bool) {
	if stats.StreakSavers <= 0 {
		return nil, false
	}
	stats.StreakSavers--
	last := now
	stats.LastStudyDate = &last
	return []domain.RewardEvent{{
		Type:       domain.RewardStreakSaved,
		Tier:       domain.TierRare,
		Title:      "Streak Saved",
		Message:    fmt.Sprintf("%d-day streak kept, %d savers left", stats.CurrentStreak, stats.StreakSavers),
		StreakDays: stats.CurrentStreak,
	}}, true
}

// AcceptBreak resolves a pending saver prompt by dropping the streak to 0.
// LastStudyDate is left alone so no day is credited without a session.
// Returns false when there is no broken streak to give up.
func (t *StreakTracker) AcceptBreak(stats *domain.UserStats, now time.Time) bool {
	if stats.LastStudyDate == nil || stats.CurrentStreak == 0 || DaysBetween(*stats.LastStudyDate, now) < 2 {
		return false
	}
	stats.CurrentStreak = 0
	return true
}

// GrantSavers adds n savers. Non-positive n is ignored.
func (t *StreakTracker) GrantSavers(stats *domain.UserStats, n int) {
	if n > 0 {
		stats.StreakSavers += n
	}
}

// milestones unlocks every streak achievement the current streak has
// reached. Only first unlocks produce events, so each fires once.
func (t *StreakTracker) milestones(stats *domain.UserStats) []domain.RewardEvent {
	if t.achievements == nil {
		return nil
	}
	var ids []string
	byID := make(map[string]int)
	for _, days := range StreakMilestones {
		if stats.CurrentStreak >= days {
			id := StreakAchievementID(days)
			ids = append(ids, id)
			byID[id] = days
		}
	}
	if len(ids) == 0 {
		return nil
	}

	unlocked := t.achievements.Unlock(stats, ids...)
	var events []domain.RewardEvent
	for _, ev := range unlocked {
		days, ok := byID[ev.AchievementID]
		if ev.Type != domain.RewardAchievement || !ok {
			events = append(events, ev)
			continue
		}
		milestone := domain.RewardEvent{
			Type:       domain.RewardStreakMilestone,
			Tier:       ev.Tier,
			Title:      fmt.Sprintf("%d-Day Streak", days),
			StreakDays: days,
		}
		if saverMilestones[days] {
			t.GrantSavers(stats, 1)
			milestone.Message = "You earned a streak saver"
		}
		events = append(events, milestone, ev)
	}
	return events
}
