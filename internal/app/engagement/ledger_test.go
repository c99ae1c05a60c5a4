package engagement_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/studyquest/studyquest/internal/app/engagement"
	"github.com/studyquest/studyquest/internal/domain"
)

func newTestLedger(stats domain.UserStats, r engagement.RandSource) (*engagement.Ledger, *engagement.RewardQueue, *recordingHook) {
	q := engagement.NewRewardQueue(0)
	hook := &recordingHook{}
	l := engagement.NewLedger(stats, engagement.LedgerConfig{
		Queue:     q,
		Hook:      hook,
		Generator: engagement.NewGenerator(r),
		Clock:     newFakeClock(noon),
	})
	return l, q, hook
}

func session(subject string, minutes float64) domain.StudySession {
	return domain.StudySession{Subject: subject, DurationMinutes: minutes, Timestamp: noon}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Grant Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestGrantSessionXP_Formula(t *testing.T) {
	stats := domain.NewUserStats()
	stats.CurrentStreak = 3
	stats.SubjectMastery["Math"] = 1200
	stats.PrestigeLevel = 1

	l, _, _ := newTestLedger(stats, noBonus)
	res, err := l.GrantSessionXP(session("Math", 60))
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	// base 600, focus 1.5, streak floor(3*ln4*5)=20, mastery 120, prestige 1.1
	if res.BaseXP != 600 {
		t.Errorf("base = %d, want 600", res.BaseXP)
	}
	if res.FocusMultiplier != 1.5 {
		t.Errorf("focus = %v, want 1.5", res.FocusMultiplier)
	}
	if res.StreakBonus != 20 {
		t.Errorf("streak bonus = %d, want 20", res.StreakBonus)
	}
	if res.MasteryBonus != 120 {
		t.Errorf("mastery = %v, want 120", res.MasteryBonus)
	}
	// floor((900 + 20 + 120) * 1.1) = 1144
	if res.TotalXP != 1144 {
		t.Errorf("total = %d, want 1144", res.TotalXP)
	}
	if res.Variable.Tier != domain.TierNone || res.Variable.BonusXP != 0 {
		t.Errorf("unexpected variable reward %+v", res.Variable)
	}
}

func TestGrantSessionXP_FocusCapped(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), noBonus)
	res, err := l.GrantSessionXP(session("History", 600))
	if err != nil {
		t.Fatal(err)
	}
	if res.FocusMultiplier != 3.0 {
		t.Errorf("focus = %v, want 3.0", res.FocusMultiplier)
	}
	if res.TotalXP != 18000 {
		t.Errorf("total = %d, want 18000", res.TotalXP)
	}
}

func TestGrantSessionXP_UpdatesCounters(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), noBonus)
	if _, err := l.GrantSessionXP(session("Biology", 30)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.GrantSessionXP(session("Biology", 45)); err != nil {
		t.Fatal(err)
	}

	s := l.Snapshot()
	if s.TotalSessions != 2 {
		t.Errorf("sessions = %d, want 2", s.TotalSessions)
	}
	if s.TotalStudyTimeMinutes != 75 {
		t.Errorf("study time = %v, want 75", s.TotalStudyTimeMinutes)
	}
	if s.SubjectMastery["Biology"] != 75 {
		t.Errorf("mastery = %v, want 75", s.SubjectMastery["Biology"])
	}
	if s.TotalXPEarned != s.XP || s.WeeklyXP != s.XP {
		t.Errorf("xp %d, total earned %d, weekly %d", s.XP, s.TotalXPEarned, s.WeeklyXP)
	}
	if s.Level != engagement.LevelFromXP(s.XP) {
		t.Errorf("level %d inconsistent with xp %d", s.Level, s.XP)
	}
	if s.LongestSessionMinutes != 45 {
		t.Errorf("longest = %v, want 45", s.LongestSessionMinutes)
	}
	if len(s.RecentSessionMinutes) != 2 || s.RecentSessionMinutes[1] != 45 {
		t.Errorf("recent = %v", s.RecentSessionMinutes)
	}
}

func TestGrantSessionXP_RecentWindow(t *testing.T) {
	l := engagement.NewLedger(domain.NewUserStats(), engagement.LedgerConfig{
		Generator:    engagement.NewGenerator(noBonus),
		Clock:        newFakeClock(noon),
		RecentWindow: 3,
	})
	for i := 1; i <= 5; i++ {
		if _, err := l.GrantSessionXP(session("Art", float64(i*10))); err != nil {
			t.Fatal(err)
		}
	}
	recent := l.Snapshot().RecentSessionMinutes
	if len(recent) != 3 || recent[0] != 30 || recent[2] != 50 {
		t.Errorf("recent = %v, want [30 40 50]", recent)
	}
}

func TestGrantSessionXP_TimeOfDay(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), noBonus)
	early := domain.StudySession{Subject: "Math", DurationMinutes: 20, Timestamp: time.Date(2025, 3, 12, 5, 30, 0, 0, time.UTC)}
	late := domain.StudySession{Subject: "Math", DurationMinutes: 20, Timestamp: time.Date(2025, 3, 12, 23, 0, 0, 0, time.UTC)}
	for _, s := range []domain.StudySession{early, late, session("Math", 20)} {
		if _, err := l.GrantSessionXP(s); err != nil {
			t.Fatal(err)
		}
	}
	s := l.Snapshot()
	if s.EarlyBirdSessions != 1 || s.NightOwlSessions != 1 {
		t.Errorf("early %d night %d, want 1 and 1", s.EarlyBirdSessions, s.NightOwlSessions)
	}
}

func TestGrantSessionXP_RejectsInvalid(t *testing.T) {
	l, q, hook := newTestLedger(domain.NewUserStats(), noBonus)
	tests := []struct {
		name string
		s    domain.StudySession
		want error
	}{
		{"zero duration", session("Math", 0), domain.ErrInvalidDuration},
		{"negative duration", session("Math", -5), domain.ErrInvalidDuration},
		{"blank subject", session("  ", 30), domain.ErrMissingSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.GrantSessionXP(tt.s)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	s := l.Snapshot()
	if s.XP != 0 || s.TotalSessions != 0 {
		t.Errorf("state mutated: xp %d sessions %d", s.XP, s.TotalSessions)
	}
	if q.Len() != 0 {
		t.Errorf("events queued for rejected sessions: %d", q.Len())
	}
	if snaps, _ := hook.counts(); snaps != 0 {
		t.Errorf("snapshots persisted for rejected sessions: %d", snaps)
	}
}

func TestGrantSessionXP_Events(t *testing.T) {
	l, q, _ := newTestLedger(domain.NewUserStats(), fixedRand{v: 0.005})
	if _, err := l.GrantSessionXP(session("Chemistry", 30)); err != nil {
		t.Fatal(err)
	}
	events := q.Pending()
	if countType(events, domain.RewardXPEarned) != 1 {
		t.Errorf("expected exactly one XP_EARNED, got %d", countType(events, domain.RewardXPEarned))
	}
	if countType(events, domain.RewardVariable) != 1 {
		t.Errorf("expected one VARIABLE_REWARD, got %d", countType(events, domain.RewardVariable))
	}
	if events[0].Type != domain.RewardXPEarned {
		t.Errorf("first event = %s, want XP_EARNED", events[0].Type)
	}
}

func TestGrantSessionXP_LevelUpBurst(t *testing.T) {
	stats := domain.NewUserStats()
	stats.XP = engagement.TotalXPForLevel(11)

	l, q, _ := newTestLedger(stats, noBonus)
	// 240 min: base 2400 x focus 3.0 = 7200, lands in level 14.
	res, err := l.GrantSessionXP(session("Physics", 240))
	if err != nil {
		t.Fatal(err)
	}
	if res.LevelBefore != 11 || res.LevelAfter != 14 {
		t.Fatalf("levels %d -> %d, want 11 -> 14", res.LevelBefore, res.LevelAfter)
	}

	var levels []int
	for _, ev := range q.Pending() {
		if ev.Type == domain.RewardLevelUp {
			levels = append(levels, ev.Level)
		}
	}
	if len(levels) != 3 || levels[0] != 12 || levels[1] != 13 || levels[2] != 14 {
		t.Errorf("LEVEL_UP levels = %v, want [12 13 14]", levels)
	}
}

func TestGrantSessionXP_MilestoneBonus(t *testing.T) {
	stats := domain.NewUserStats()
	stats.XP = engagement.TotalXPForLevel(5) - 1

	l, q, _ := newTestLedger(stats, noBonus)
	if _, err := l.GrantSessionXP(session("Latin", 1)); err != nil {
		t.Fatal(err)
	}

	s := l.Snapshot()
	m, _ := engagement.MilestoneForLevel(5)
	if s.Title != m.Title {
		t.Errorf("title = %q, want %q", s.Title, m.Title)
	}
	// 849 + 10 + 100 bonus
	if s.XP != 959 {
		t.Errorf("xp = %d, want 959", s.XP)
	}
	found := false
	for _, ev := range q.Pending() {
		if ev.Type == domain.RewardLevelUp && ev.Level == 5 {
			found = true
			if ev.XP != m.BonusXP {
				t.Errorf("milestone event xp = %d, want %d", ev.XP, m.BonusXP)
			}
		}
	}
	if !found {
		t.Error("no LEVEL_UP for level 5")
	}
}

func TestGrantSessionXP_MonotonicXP(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), engagement.NewRand())
	prev := int64(0)
	for i := 1; i <= 50; i++ {
		if _, err := l.GrantSessionXP(session("Math", float64(i%7+1)*5)); err != nil {
			t.Fatal(err)
		}
		xp := l.Snapshot().XP
		if xp < prev {
			t.Fatalf("xp decreased from %d to %d", prev, xp)
		}
		prev = xp
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Plain Grants, Prestige, Update Discipline
// ═══════════════════════════════════════════════════════════════════════════

func TestGrantXP(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), noBonus)
	if _, err := l.GrantXP(0, domain.XPAchievement, "nothing"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero grant err = %v, want ErrInvalidAmount", err)
	}
	events, err := l.GrantXP(200, domain.XPAchievement, "bonus")
	if err != nil {
		t.Fatal(err)
	}
	if countType(events, domain.RewardLevelUp) != 2 {
		t.Errorf("expected 2 level ups (to level 3), got %d", countType(events, domain.RewardLevelUp))
	}
	s := l.Snapshot()
	if s.XP != 200 || s.Level != 3 || s.TotalSessions != 0 {
		t.Errorf("xp %d level %d sessions %d", s.XP, s.Level, s.TotalSessions)
	}
}

func TestPrestige(t *testing.T) {
	l, q, _ := newTestLedger(domain.NewUserStats(), noBonus)
	if l.Prestige() {
		t.Fatal("prestige below level 100 should fail")
	}
	if q.Len() != 0 {
		t.Error("failed prestige should not emit events")
	}

	stats := domain.NewUserStats()
	stats.XP = engagement.TotalXPForLevel(100) + 5
	stats.Title = "Grand Master"
	l, q, _ = newTestLedger(stats, noBonus)
	if !l.Prestige() {
		t.Fatal("prestige at level 100 should succeed")
	}
	s := l.Snapshot()
	if s.XP != 0 || s.Level != 1 || s.PrestigeLevel != 1 {
		t.Errorf("after prestige: xp %d level %d prestige %d", s.XP, s.Level, s.PrestigeLevel)
	}
	if s.Title != "Grand Master" {
		t.Errorf("title should survive prestige, got %q", s.Title)
	}
	if countType(q.Pending(), domain.RewardPrestige) != 1 {
		t.Error("expected one PRESTIGE event")
	}
}

func TestUpdate_ErrorDiscardsChanges(t *testing.T) {
	l, q, hook := newTestLedger(domain.NewUserStats(), noBonus)
	boom := errors.New("boom")
	_, err := l.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		s.XP = 999
		s.Achievements = append(s.Achievements, "x")
		return []domain.RewardEvent{{Type: domain.RewardXPEarned}}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	s := l.Snapshot()
	if s.XP != 0 || len(s.Achievements) != 0 {
		t.Errorf("failed update leaked: %+v", s)
	}
	if q.Len() != 0 {
		t.Error("failed update queued events")
	}
	if snaps, _ := hook.counts(); snaps != 0 {
		t.Error("failed update persisted a snapshot")
	}
}

func TestUpdate_LevelAlwaysFollowsXP(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), noBonus)
	_, _ = l.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		s.XP = 5550
		s.Level = 2
		return nil, nil
	})
	if lvl := l.Snapshot().Level; lvl != 10 {
		t.Errorf("level = %d, want 10", lvl)
	}
}

func TestUpdate_ConcurrentCompose(t *testing.T) {
	l, _, hook := newTestLedger(domain.NewUserStats(), noBonus)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = l.GrantXP(1, domain.XPQuestCompleted, "tick")
			}
		}()
	}
	wg.Wait()
	if xp := l.Snapshot().XP; xp < 500 {
		// Milestone bonuses may add on top; lost updates would leave less.
		t.Errorf("xp = %d, want at least 500", xp)
	}
	if snaps, _ := hook.counts(); snaps != 500 {
		t.Errorf("snapshots = %d, want 500", snaps)
	}
}

func TestSnapshot_IsIsolated(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), noBonus)
	if _, err := l.GrantSessionXP(session("Music", 10)); err != nil {
		t.Fatal(err)
	}
	snap := l.Snapshot()
	snap.SubjectMastery["Music"] = 1e6
	snap.Achievements = append(snap.Achievements, "fake")

	again := l.Snapshot()
	if again.SubjectMastery["Music"] != 10 || len(again.Achievements) != 0 {
		t.Error("snapshot mutation leaked into the ledger")
	}
}

func TestReplace_RecomputesLevel(t *testing.T) {
	l, _, _ := newTestLedger(domain.NewUserStats(), noBonus)
	stored := domain.NewUserStats()
	stored.XP = 450
	stored.Level = 42
	stored.CurrentStreak = 5
	stored.LongestStreak = 2
	l.Replace(stored)

	s := l.Snapshot()
	if s.Level != 4 {
		t.Errorf("level = %d, want 4", s.Level)
	}
	if s.LongestStreak != 5 {
		t.Errorf("longest = %d, want 5", s.LongestStreak)
	}
}
