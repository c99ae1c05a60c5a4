package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestSessionMetrics(t *testing.T) {
	SessionsCompleted.Inc()
	SessionsRejected.WithLabelValues("invalid_duration").Inc()
	SessionMinutes.Observe(45)

	names := gatheredNames(t)
	for _, name := range []string{
		"studyquest_sessions_completed_total",
		"studyquest_sessions_rejected_total",
		"studyquest_session_minutes",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestProgressionMetrics(t *testing.T) {
	XPGranted.WithLabelValues("SESSION").Add(375)
	XPGranted.WithLabelValues("ACHIEVEMENT").Add(50)
	LevelUps.Add(3)
	Prestiges.Inc()
	CurrentLevel.Set(14)
	CurrentStreak.Set(7)

	names := gatheredNames(t)
	for _, name := range []string{
		"studyquest_xp_granted_total",
		"studyquest_level_ups_total",
		"studyquest_prestiges_total",
		"studyquest_current_level",
		"studyquest_current_streak_days",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestRewardMetrics(t *testing.T) {
	AchievementsUnlocked.WithLabelValues("common").Inc()
	QuestsCompleted.WithLabelValues("daily").Inc()
	VariableRewards.WithLabelValues("legendary").Inc()
	RewardQueueDepth.Set(4)

	names := gatheredNames(t)
	for _, name := range []string{
		"studyquest_achievements_unlocked_total",
		"studyquest_quests_completed_total",
		"studyquest_variable_rewards_total",
		"studyquest_reward_queue_depth",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestPersistAndHealthMetrics(t *testing.T) {
	PersistWrites.WithLabelValues("save_stats").Inc()
	PersistFailures.WithLabelValues("append_session").Inc()
	PersistBacklog.Set(2)
	HealthCheckStatus.WithLabelValues("store").Set(1)
	HealthRecoveries.WithLabelValues("store").Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"studyquest_persist_writes_total",
		"studyquest_persist_failures_total",
		"studyquest_persist_backlog",
		"studyquest_health_check_status",
		"studyquest_health_recoveries_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestAllMetricsGatherable(t *testing.T) {
	TestSessionMetrics(t)
	TestProgressionMetrics(t)
	TestRewardMetrics(t)
	TestPersistAndHealthMetrics(t)

	names := gatheredNames(t)
	count := 0
	for name := range names {
		if strings.HasPrefix(name, "studyquest_") {
			count++
		}
	}
	if count < 15 {
		t.Errorf("expected at least 15 studyquest_ metrics, got %d", count)
	}
}
