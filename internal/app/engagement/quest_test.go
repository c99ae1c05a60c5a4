package engagement_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/app/engagement"
	"github.com/studyquest/studyquest/internal/domain"
)

// questCatalog has one daily quest per type so progress rules can be
// checked in isolation.
func questCatalog() []domain.CategorySpec {
	return []domain.CategorySpec{
		{
			Category:      domain.QuestDaily,
			MaxQuests:     6,
			ResetInterval: 24 * time.Hour,
			Templates: []domain.QuestTemplate{
				{ID: "t_time", Name: "Study 60 minutes", Type: domain.QuestTime, Target: 60, XP: 100},
				{ID: "t_sessions", Name: "Two sessions", Type: domain.QuestSessions, Target: 2, XP: 50},
				{ID: "t_subjects", Name: "Two subjects", Type: domain.QuestSubjects, Target: 2, XP: 70},
				{ID: "t_streak", Name: "Keep the streak", Type: domain.QuestStreak, Target: 1, XP: 30},
				{ID: "t_xp", Name: "Earn 1000 XP", Type: domain.QuestXP, Target: 1000, XP: 90},
				{ID: "t_tasks", Name: "Finish 3 tasks", Type: domain.QuestTasks, Target: 3, XP: 40},
			},
		},
		{
			Category:      domain.QuestWeekly,
			MaxQuests:     1,
			ResetInterval: 7 * 24 * time.Hour,
			Templates: []domain.QuestTemplate{
				{ID: "w_time", Name: "Study 300 minutes", Type: domain.QuestTime, Target: 300, XP: 400},
			},
		},
	}
}

func newQuestEngine() *engagement.QuestEngine {
	return engagement.NewQuestEngine(questCatalog(), noBonus, zerolog.Nop())
}

func questByTemplate(t *testing.T, s domain.UserStats, id string) domain.Quest {
	t.Helper()
	for _, q := range append(s.DailyQuests, s.WeeklyQuests...) {
		if q.TemplateID == id {
			return q
		}
	}
	t.Fatalf("quest %q not found", id)
	return domain.Quest{}
}

// ═══════════════════════════════════════════════════════════════════════════
// Generation Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestGenerate(t *testing.T) {
	qe := newQuestEngine()
	s := domain.NewUserStats()

	quests, err := qe.Generate(&s, domain.QuestDaily, noon)
	if err != nil {
		t.Fatal(err)
	}
	if len(quests) != 6 || len(s.DailyQuests) != 6 {
		t.Fatalf("generated %d quests, stats hold %d", len(quests), len(s.DailyQuests))
	}
	seen := make(map[string]bool)
	for _, q := range quests {
		if seen[q.TemplateID] {
			t.Errorf("duplicate template %q", q.TemplateID)
		}
		seen[q.TemplateID] = true
		if q.Progress != 0 || q.Completed {
			t.Errorf("fresh quest not blank: %+v", q)
		}
		if !q.Deadline.Equal(noon.Add(24 * time.Hour)) {
			t.Errorf("deadline = %s", q.Deadline)
		}
		if q.ID == "" || q.Category != domain.QuestDaily {
			t.Errorf("bad quest %+v", q)
		}
	}
	if !s.QuestResets[domain.QuestDaily].Equal(noon) {
		t.Error("reset time not recorded")
	}
}

func TestGenerate_PrefersDistinctTypes(t *testing.T) {
	cat := []domain.CategorySpec{{
		Category:      domain.QuestDaily,
		MaxQuests:     2,
		ResetInterval: 24 * time.Hour,
		Templates: []domain.QuestTemplate{
			{ID: "a", Type: domain.QuestTime, Target: 10, XP: 1},
			{ID: "b", Type: domain.QuestTime, Target: 20, XP: 1},
			{ID: "c", Type: domain.QuestSessions, Target: 2, XP: 1},
		},
	}}
	qe := engagement.NewQuestEngine(cat, noBonus, zerolog.Nop())
	s := domain.NewUserStats()
	quests, _ := qe.Generate(&s, domain.QuestDaily, noon)
	if len(quests) != 2 || quests[0].Type == quests[1].Type {
		t.Errorf("expected two different types, got %+v", quests)
	}
}

func TestGenerate_SkipsMalformedTemplates(t *testing.T) {
	cat := []domain.CategorySpec{{
		Category:      domain.QuestDaily,
		MaxQuests:     3,
		ResetInterval: 24 * time.Hour,
		Templates: []domain.QuestTemplate{
			{ID: "ok", Type: domain.QuestTime, Target: 10, XP: 1},
			{ID: "zero", Type: domain.QuestTime, Target: 0, XP: 1},
			{ID: "weird", Type: "juggling", Target: 3, XP: 1},
			{ID: "", Type: domain.QuestSessions, Target: 2, XP: 1},
		},
	}}
	qe := engagement.NewQuestEngine(cat, noBonus, zerolog.Nop())
	s := domain.NewUserStats()
	quests, err := qe.Generate(&s, domain.QuestDaily, noon)
	if err != nil {
		t.Fatal(err)
	}
	if len(quests) != 1 || quests[0].TemplateID != "ok" {
		t.Errorf("quests = %+v, want only the well-formed one", quests)
	}
}

func TestGenerate_UnknownCategory(t *testing.T) {
	s := domain.NewUserStats()
	_, err := newQuestEngine().Generate(&s, "monthly", noon)
	if !errors.Is(err, domain.ErrUnknownQuestCategory) {
		t.Errorf("err = %v, want ErrUnknownQuestCategory", err)
	}
}

func TestGenerate_ScalesTargetsWithLevel(t *testing.T) {
	s := domain.NewUserStats()
	s.Level = 20
	_, _ = newQuestEngine().Generate(&s, domain.QuestDaily, noon)
	if q := questByTemplate(t, s, "t_time"); q.Target != 66 {
		t.Errorf("scaled target = %v, want 66", q.Target)
	}
	if q := questByTemplate(t, s, "t_streak"); q.Target != 1 {
		t.Errorf("binary quest target = %v, want 1", q.Target)
	}
}

func TestGenerate_WeeklyResetsWeeklyXP(t *testing.T) {
	s := domain.NewUserStats()
	s.WeeklyXP = 4000
	_, _ = newQuestEngine().Generate(&s, domain.QuestWeekly, noon)
	if s.WeeklyXP != 0 {
		t.Errorf("weekly xp = %d, want 0", s.WeeklyXP)
	}
}

func TestRefreshIfNeeded(t *testing.T) {
	qe := newQuestEngine()
	s := domain.NewUserStats()

	got := qe.RefreshIfNeeded(&s, noon)
	if len(got) != 2 {
		t.Fatalf("first refresh regenerated %v, want both", got)
	}
	firstID := s.DailyQuests[0].ID

	if got := qe.RefreshIfNeeded(&s, noon.Add(time.Hour)); len(got) != 0 {
		t.Errorf("refresh within interval regenerated %v", got)
	}
	if s.DailyQuests[0].ID != firstID {
		t.Error("quests replaced without a reset")
	}

	got = qe.RefreshIfNeeded(&s, noon.Add(25*time.Hour))
	if len(got) != 1 || got[0] != domain.QuestDaily {
		t.Errorf("after a day regenerated %v, want [daily]", got)
	}

	s.WeeklyQuests = nil
	got = qe.RefreshIfNeeded(&s, noon.Add(26*time.Hour))
	if len(got) != 1 || got[0] != domain.QuestWeekly {
		t.Errorf("empty weekly list regenerated %v, want [weekly]", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestUpdateProgress_PerType(t *testing.T) {
	qe := newQuestEngine()
	s := domain.NewUserStats()
	qe.RefreshIfNeeded(&s, noon)

	qe.UpdateProgress(&s, domain.QuestTime, 25, domain.QuestContext{}, noon)
	if q := questByTemplate(t, s, "t_time"); q.Progress != 25 {
		t.Errorf("time progress = %v, want 25", q.Progress)
	}
	if q := questByTemplate(t, s, "w_time"); q.Progress != 25 {
		t.Errorf("weekly time progress = %v, want 25", q.Progress)
	}

	qe.UpdateProgress(&s, domain.QuestSessions, 1, domain.QuestContext{}, noon)
	if q := questByTemplate(t, s, "t_sessions"); q.Progress != 1 {
		t.Errorf("sessions progress = %v, want 1", q.Progress)
	}

	qe.UpdateProgress(&s, domain.QuestSubjects, 1, domain.QuestContext{Subject: "Math"}, noon)
	qe.UpdateProgress(&s, domain.QuestSubjects, 1, domain.QuestContext{Subject: "Math"}, noon)
	if q := questByTemplate(t, s, "t_subjects"); q.Progress != 1 {
		t.Errorf("subjects progress = %v, want 1 unique", q.Progress)
	}

	qe.UpdateProgress(&s, domain.QuestStreak, 1, domain.QuestContext{}, noon)
	if q := questByTemplate(t, s, "t_streak"); q.Progress != 0 {
		t.Errorf("streak progress with no streak = %v, want 0", q.Progress)
	}

	s.WeeklyXP = 400
	qe.UpdateProgress(&s, domain.QuestXP, 0, domain.QuestContext{}, noon)
	s.WeeklyXP = 700
	qe.UpdateProgress(&s, domain.QuestXP, 0, domain.QuestContext{}, noon)
	if q := questByTemplate(t, s, "t_xp"); q.Progress != 700 {
		t.Errorf("xp progress = %v, want absolute 700", q.Progress)
	}

	qe.UpdateProgress(&s, domain.QuestTasks, 2, domain.QuestContext{}, noon)
	if q := questByTemplate(t, s, "t_tasks"); q.Progress != 2 {
		t.Errorf("tasks progress = %v, want 2", q.Progress)
	}
}

func TestUpdateProgress_ClampAndCompleteOnce(t *testing.T) {
	qe := newQuestEngine()
	s := domain.NewUserStats()
	qe.RefreshIfNeeded(&s, noon)

	events := qe.UpdateProgress(&s, domain.QuestTime, 500, domain.QuestContext{}, noon)
	q := questByTemplate(t, s, "t_time")
	if q.Progress != q.Target {
		t.Errorf("progress = %v, want clamped to %v", q.Progress, q.Target)
	}
	if !q.Completed || q.CompletedAt == nil {
		t.Error("quest not completed")
	}
	if countType(events, domain.RewardQuestComplete) != 2 {
		t.Errorf("expected daily and weekly completions, got %d", countType(events, domain.RewardQuestComplete))
	}
	xpAfterFirst := s.XP
	if xpAfterFirst < 500 {
		t.Errorf("xp = %d, want quest rewards of 100 + 400", xpAfterFirst)
	}

	events = qe.UpdateProgress(&s, domain.QuestTime, 500, domain.QuestContext{}, noon)
	if len(events) != 0 {
		t.Errorf("completed quests fired again: %+v", events)
	}
	if s.XP != xpAfterFirst {
		t.Error("quest XP granted twice")
	}
	if s.QuestsCompleted != 2 {
		t.Errorf("quests completed = %d, want 2", s.QuestsCompleted)
	}
	for _, quest := range append(s.DailyQuests, s.WeeklyQuests...) {
		if quest.Progress > quest.Target {
			t.Errorf("%s over target: %v > %v", quest.TemplateID, quest.Progress, quest.Target)
		}
	}
}

func TestUpdateProgress_CompletionDoesNotFeedBack(t *testing.T) {
	qe := newQuestEngine()
	s := domain.NewUserStats()
	qe.RefreshIfNeeded(&s, noon)

	// The time quest pays 100 XP; the XP quest must not see it until the
	// next explicit xp update.
	qe.UpdateProgress(&s, domain.QuestTime, 60, domain.QuestContext{}, noon)
	if q := questByTemplate(t, s, "t_xp"); q.Progress != 0 {
		t.Errorf("xp quest advanced by a quest payout: %v", q.Progress)
	}
}

func TestUpdateProgress_SkipsExpiredAndBadRecords(t *testing.T) {
	qe := newQuestEngine()
	s := domain.NewUserStats()
	qe.RefreshIfNeeded(&s, noon)

	for i := range s.DailyQuests {
		if s.DailyQuests[i].TemplateID == "t_sessions" {
			s.DailyQuests[i].Target = 0
		}
	}
	later := noon.Add(30 * time.Hour) // daily expired, weekly still live
	qe.UpdateProgress(&s, domain.QuestTime, 10, domain.QuestContext{}, later)
	if q := questByTemplate(t, s, "t_time"); q.Progress != 0 {
		t.Errorf("expired quest advanced: %v", q.Progress)
	}
	if q := questByTemplate(t, s, "w_time"); q.Progress != 10 {
		t.Errorf("weekly progress = %v, want 10", q.Progress)
	}

	events := qe.UpdateProgress(&s, domain.QuestSessions, 1, domain.QuestContext{}, noon)
	if len(events) != 0 {
		t.Errorf("malformed quest completed: %+v", events)
	}
}
