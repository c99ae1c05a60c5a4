package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/studyquest/studyquest/internal/domain"
)

// ─── Formatting ─────────────────────────────────────────────────────────────

func TestRenderBar(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, "[" + strings.Repeat(".", barWidth) + "]"},
		{-5, "[" + strings.Repeat(".", barWidth) + "]"},
		{50, "[" + strings.Repeat("=", 14) + ">" + strings.Repeat(".", 15) + "]"},
		{100, "[" + strings.Repeat("=", barWidth) + "]"},
		{250, "[" + strings.Repeat("=", barWidth) + "]"},
	}
	for _, tt := range tests {
		if got := renderBar(tt.pct); got != tt.want {
			t.Errorf("renderBar(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0m"},
		{40, "40m"},
		{59.6, "1h"},
		{60, "1h"},
		{135, "2h15m"},
	}
	for _, tt := range tests {
		if got := formatMinutes(tt.in); got != tt.want {
			t.Errorf("formatMinutes(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuestAmount(t *testing.T) {
	timeQuest := domain.Quest{Type: domain.QuestTime, Progress: 45, Target: 90}
	if got := questAmount(timeQuest); got != "45m/1h30m" {
		t.Errorf("time quest = %q", got)
	}
	countQuest := domain.Quest{Type: domain.QuestSessions, Progress: 1, Target: 3}
	if got := questAmount(countQuest); got != "1/3" {
		t.Errorf("session quest = %q", got)
	}
}

func TestQuestBar_CompletedIsFull(t *testing.T) {
	q := domain.Quest{Type: domain.QuestTasks, Progress: 1, Target: 4, Completed: true}
	if got := questBar(q); !strings.Contains(got, "100%") {
		t.Errorf("questBar = %q, want 100%%", got)
	}
}

func TestStreakLine(t *testing.T) {
	tests := []struct {
		name string
		st   domain.StreakStatus
		want string
	}{
		{"none", domain.StreakStatus{State: domain.StreakNone}, "no streak yet"},
		{"broken with saver", domain.StreakStatus{State: domain.StreakBroken, CurrentStreak: 9, CanUseSaver: true}, "studyquest saver"},
		{"broken", domain.StreakStatus{State: domain.StreakBroken, CurrentStreak: 9}, "broken at 9 days"},
		{"danger", domain.StreakStatus{State: domain.StreakDanger, CurrentStreak: 4, HoursLeft: 2}, "2h left today (danger)"},
		{"active", domain.StreakStatus{State: domain.StreakActive, CurrentStreak: 12,
			Tier: domain.StreakTier{Label: "Committed", Multiplier: 1.5}}, "12 days (Committed, x1.5)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := streakLine(tt.st); !strings.Contains(got, tt.want) {
				t.Errorf("streakLine = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, domain.RewardEvent{Tier: domain.TierEpic, Title: "Level 5", XP: 100, Message: "Milestone bonus"})
	want := "  [EPIC] Level 5 (+100 XP): Milestone bonus\n"
	if buf.String() != want {
		t.Errorf("printEvent = %q, want %q", buf.String(), want)
	}
}

// ─── Commands ───────────────────────────────────────────────────────────────

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetOut(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("studyquest %s: %v\n%s", strings.Join(args, " "), err, buf.String())
	}
	return buf.String()
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("STUDYQUEST_HOME", t.TempDir())
	for _, k := range []string{"STUDYQUEST_STORAGE", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "STUDYQUEST_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestCommands_LogThenStats(t *testing.T) {
	isolate(t)

	got := execute(t, "log", "Biology", "30")
	if !strings.Contains(got, "Logged 30m of Biology") {
		t.Errorf("log output = %q", got)
	}
	if !strings.Contains(got, "First Steps") {
		t.Errorf("log output missing first achievement: %q", got)
	}

	got = execute(t, "stats")
	if !strings.Contains(got, "Sessions:     1 (30m total)") {
		t.Errorf("stats output = %q", got)
	}
	if !strings.Contains(got, "Biology") {
		t.Errorf("stats missing subject table: %q", got)
	}

	got = execute(t, "rewards")
	if !strings.Contains(got, "Biology") || !strings.Contains(got, "30m") {
		t.Errorf("rewards output = %q", got)
	}
}

func TestCommands_Quests(t *testing.T) {
	isolate(t)

	got := execute(t, "quests")
	if !strings.Contains(got, "Daily quests") || !strings.Contains(got, "Weekly quests") {
		t.Errorf("quests output = %q", got)
	}
	if strings.Contains(got, "none") {
		t.Errorf("quests were not generated: %q", got)
	}
}

func TestCommands_SaverWithoutSavers(t *testing.T) {
	isolate(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"saver"})
	defer rootCmd.SetOut(nil)
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error with no savers")
	}
}

func TestCommands_LogRejectsBadMinutes(t *testing.T) {
	isolate(t)

	rootCmd.SetArgs([]string{"log", "Math", "ten"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for non-numeric minutes")
	}
	rootCmd.SetArgs([]string{"log", "Math", "0"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for zero minutes")
	}
}

func TestCommands_LogAgo(t *testing.T) {
	isolate(t)
	defer func() { logAgo = 0 }()

	got := execute(t, "log", "History", "20", "--ago", "2h")
	if !strings.Contains(got, "Logged 20m of History") {
		t.Errorf("log output = %q", got)
	}
}
