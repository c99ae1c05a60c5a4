// Package metrics provides Prometheus metrics for studyquest.
// Counters, gauges and histograms for sessions, XP, rewards, persistence,
// and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studyquest"

// ─── Sessions ───────────────────────────────────────────────────────────────

// SessionsCompleted tracks accepted study sessions.
var SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "sessions_completed_total",
	Help:      "Total study sessions accepted by the engine.",
})

// SessionsRejected tracks sessions refused before any mutation.
var SessionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "sessions_rejected_total",
	Help:      "Total study sessions rejected as invalid input.",
}, []string{"reason"})

// SessionMinutes tracks the length of accepted sessions.
var SessionMinutes = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "session_minutes",
	Help:      "Duration of accepted study sessions in minutes.",
	Buckets:   []float64{5, 15, 25, 45, 60, 90, 120, 180, 240},
})

// ─── Progression ────────────────────────────────────────────────────────────

// XPGranted tracks XP granted by source.
var XPGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "xp_granted_total",
	Help:      "Total XP granted, by source.",
}, []string{"source"})

// LevelUps tracks individual level boundaries crossed.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "level_ups_total",
	Help:      "Total level boundaries crossed.",
})

// Prestiges tracks successful prestige resets.
var Prestiges = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "prestiges_total",
	Help:      "Total prestige resets.",
})

// CurrentLevel tracks the level of the loaded account.
var CurrentLevel = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "current_level",
	Help:      "Current level of the loaded account.",
})

// CurrentStreak tracks the streak of the loaded account.
var CurrentStreak = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "current_streak_days",
	Help:      "Current streak of the loaded account in days.",
})

// ─── Rewards ────────────────────────────────────────────────────────────────

// AchievementsUnlocked tracks unlocks by tier.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked, by tier.",
}, []string{"tier"})

// QuestsCompleted tracks completed quests by category.
var QuestsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "quests_completed_total",
	Help:      "Total quests completed, by category.",
}, []string{"category"})

// VariableRewards tracks bonus draws by tier, including "none".
var VariableRewards = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "variable_rewards_total",
	Help:      "Total variable reward draws, by tier.",
}, []string{"tier"})

// RewardQueueDepth tracks events awaiting display.
var RewardQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "reward_queue_depth",
	Help:      "Number of reward events waiting to be shown.",
})

// ─── Persistence ────────────────────────────────────────────────────────────

// PersistWrites tracks successful store writes by operation.
var PersistWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "persist_writes_total",
	Help:      "Total successful store writes, by operation.",
}, []string{"op"})

// PersistFailures tracks failed write attempts by operation.
var PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "persist_failures_total",
	Help:      "Total failed store write attempts, by operation.",
}, []string{"op"})

// PersistBacklog tracks pending writes.
var PersistBacklog = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "persist_backlog",
	Help:      "Writes waiting for the store.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
