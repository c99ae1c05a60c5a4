// Package domain holds the pure types of the study progression engine.
// The engagement engine turns finished study sessions into XP, levels,
// streaks, quests, achievements, and a queue of reward notifications.
package domain

import (
	"slices"
	"strings"
	"time"
)

// ─── Study Sessions ─────────────────────────────────────────────────────────

// StudySession is a finished session handed over by the timer collaborator.
// The engine treats it as an already-measured fact.
type StudySession struct {
	Subject         string    `json:"subject"`
	DurationMinutes float64   `json:"duration_minutes"`
	Timestamp       time.Time `json:"timestamp"`
	Difficulty      string    `json:"difficulty,omitempty"`
	Mood            string    `json:"mood,omitempty"`
}

// Validate rejects sessions that must never reach the ledger.
func (s StudySession) Validate() error {
	if s.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if strings.TrimSpace(s.Subject) == "" {
		return ErrMissingSubject
	}
	return nil
}

// SessionRecord is one row of the append-only session log.
type SessionRecord struct {
	ID        string       `json:"id"`
	AccountID string       `json:"account_id"`
	Session   StudySession `json:"session"`
	XPEarned  int64        `json:"xp_earned"`
	Bonuses   XPResult     `json:"bonuses"`
	CreatedAt time.Time    `json:"created_at"`
}

// ─── XP ─────────────────────────────────────────────────────────────────────

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPSession        XPSource = "SESSION"
	XPAchievement    XPSource = "ACHIEVEMENT"
	XPQuestCompleted XPSource = "QUEST_COMPLETED"
	XPLevelMilestone XPSource = "LEVEL_MILESTONE"
)

// XPResult is the breakdown of a single session grant.
type XPResult struct {
	BaseXP             int64          `json:"base_xp"`
	FocusMultiplier    float64        `json:"focus_multiplier"`
	StreakBonus        int64          `json:"streak_bonus"`
	MasteryBonus       float64        `json:"mastery_bonus"`
	PrestigeMultiplier float64        `json:"prestige_multiplier"`
	PremiumMultiplier  float64        `json:"premium_multiplier"`
	SubtotalXP         int64          `json:"subtotal_xp"` // before the variable bonus
	Variable           VariableReward `json:"variable"`
	TotalXP            int64          `json:"total_xp"`
	LevelBefore        int            `json:"level_before"`
	LevelAfter         int            `json:"level_after"`
}

// LevelsGained returns how many level boundaries the grant crossed.
func (r XPResult) LevelsGained() int {
	return r.LevelAfter - r.LevelBefore
}

// Progress describes XP relative to the current level boundary.
type Progress struct {
	Current    int64   `json:"current"`
	Needed     int64   `json:"needed"`
	Percentage float64 `json:"percentage"`
}

// ─── Variable Rewards ───────────────────────────────────────────────────────

// RewardTier ranks rewards and achievements by rarity.
type RewardTier string

const (
	TierNone      RewardTier = "none"
	TierCommon    RewardTier = "common"
	TierUncommon  RewardTier = "uncommon"
	TierRare      RewardTier = "rare"
	TierEpic      RewardTier = "epic"
	TierLegendary RewardTier = "legendary"
)

// VariableReward is the outcome of one probabilistic bonus draw.
type VariableReward struct {
	Tier                  RewardTier `json:"tier"`
	BonusXP               int64      `json:"bonus_xp"`
	Title                 string     `json:"title,omitempty"`
	Flavor                string     `json:"flavor,omitempty"`
	SessionBonus          float64    `json:"session_bonus"`
	PerformanceMultiplier float64    `json:"performance_multiplier"`
	Roll                  float64    `json:"roll"`
}

// ─── Streaks ────────────────────────────────────────────────────────────────

// StreakState is the calendar-relative condition of the current streak.
type StreakState string

const (
	StreakNone    StreakState = "NONE"
	StreakActive  StreakState = "ACTIVE"
	StreakWarning StreakState = "WARNING"
	StreakDanger  StreakState = "DANGER"
	StreakBroken  StreakState = "BROKEN"
)

// StreakTier is one row of the streak multiplier table.
type StreakTier struct {
	MinDays    int     `json:"min_days"`
	MaxDays    int     `json:"max_days"` // 0 = open-ended
	Multiplier float64 `json:"multiplier"`
	Label      string  `json:"label"`
}

// Contains reports whether days falls inside the tier's inclusive range.
func (t StreakTier) Contains(days int) bool {
	if days < t.MinDays {
		return false
	}
	return t.MaxDays == 0 || days <= t.MaxDays
}

// StreakStatus is the derived, read-only view of a streak at a point in time.
type StreakStatus struct {
	State         StreakState `json:"state"`
	CurrentStreak int         `json:"current_streak"`
	LongestStreak int         `json:"longest_streak"`
	HoursLeft     float64     `json:"hours_left"`
	Tier          StreakTier  `json:"tier"`
	StreakSavers  int         `json:"streak_savers"`
	CanUseSaver   bool        `json:"can_use_saver"`
}

// StreakResult reports what a qualifying session did to the streak.
type StreakResult struct {
	Changed     bool `json:"changed"`
	Previous    int  `json:"previous"`
	Current     int  `json:"current"`
	CanUseSaver bool `json:"can_use_saver"`
	Broken      bool `json:"broken"`
}

// ─── Quests ─────────────────────────────────────────────────────────────────

// QuestType selects how progress is computed.
type QuestType string

const (
	QuestTime     QuestType = "time"
	QuestSessions QuestType = "sessions"
	QuestSubjects QuestType = "subjects"
	QuestStreak   QuestType = "streak"
	QuestXP       QuestType = "xp"
	QuestTasks    QuestType = "tasks"
)

// QuestCategory partitions quests by reset cadence.
type QuestCategory string

const (
	QuestDaily  QuestCategory = "daily"
	QuestWeekly QuestCategory = "weekly"
)

// Quest is a time-boxed progress target. Once Completed it never changes.
type Quest struct {
	ID          string        `json:"id"`
	TemplateID  string        `json:"template_id"`
	Name        string        `json:"name"`
	Category    QuestCategory `json:"category"`
	Type        QuestType     `json:"type"`
	Target      float64       `json:"target"`
	Progress    float64       `json:"progress"`
	XP          int64         `json:"xp"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Deadline    time.Time     `json:"deadline"`
}

// IsExpired returns true if the quest deadline has passed at now.
func (q Quest) IsExpired(now time.Time) bool {
	return !q.Deadline.IsZero() && now.After(q.Deadline)
}

// ProgressPct returns completion percentage (0-100).
func (q Quest) ProgressPct() float64 {
	if q.Target <= 0 {
		return 100.0
	}
	pct := q.Progress / q.Target * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// QuestTemplate defines one entry of the quest pool.
type QuestTemplate struct {
	ID     string    `json:"id" yaml:"id"`
	Name   string    `json:"name" yaml:"name"`
	Type   QuestType `json:"type" yaml:"type"`
	Target float64   `json:"target" yaml:"target"`
	XP     int64     `json:"xp" yaml:"xp"`
}

// CategorySpec configures one quest category.
type CategorySpec struct {
	Category      QuestCategory   `json:"category"`
	MaxQuests     int             `json:"max_quests"`
	ResetInterval time.Duration   `json:"reset_interval"`
	Templates     []QuestTemplate `json:"templates"`
}

// QuestContext carries per-event data for progress updates.
type QuestContext struct {
	Subject string `json:"subject,omitempty"`
}

// ─── Achievements ───────────────────────────────────────────────────────────

// AchievementDef is a static catalog entry. Condition must be pure.
type AchievementDef struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Tier        RewardTier           `json:"tier"`
	XP          int64                `json:"xp"`
	Condition   func(UserStats) bool `json:"-"`
}

// ─── Reward Events ──────────────────────────────────────────────────────────

// RewardType categorizes queued reward notifications.
type RewardType string

const (
	RewardXPEarned        RewardType = "XP_EARNED"
	RewardLevelUp         RewardType = "LEVEL_UP"
	RewardAchievement     RewardType = "ACHIEVEMENT"
	RewardStreakMilestone RewardType = "STREAK_MILESTONE"
	RewardStreakSaved     RewardType = "STREAK_SAVED"
	RewardQuestComplete   RewardType = "QUEST_COMPLETE"
	RewardVariable        RewardType = "VARIABLE_REWARD"
	RewardPrestige        RewardType = "PRESTIGE"
)

// RewardEvent is a presentation-facing notification describing one change.
type RewardEvent struct {
	ID            string        `json:"id"`
	Type          RewardType    `json:"type"`
	Tier          RewardTier    `json:"tier"`
	Title         string        `json:"title"`
	Message       string        `json:"message,omitempty"`
	XP            int64         `json:"xp,omitempty"`
	Level         int           `json:"level,omitempty"`
	AchievementID string        `json:"achievement_id,omitempty"`
	QuestID       string        `json:"quest_id,omitempty"`
	StreakDays    int           `json:"streak_days,omitempty"`
	AutoDismiss   time.Duration `json:"auto_dismiss"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ─── User Stats ─────────────────────────────────────────────────────────────

// UserStats is the single mutable aggregate per account.
// Only the progression ledger writes it; everyone else reads clones.
type UserStats struct {
	XP                    int64              `json:"xp"`
	Level                 int                `json:"level"`
	PrestigeLevel         int                `json:"prestige_level"`
	Title                 string             `json:"title,omitempty"`
	TotalSessions         int                `json:"total_sessions"`
	TotalStudyTimeMinutes float64            `json:"total_study_time"`
	TotalXPEarned         int64              `json:"total_xp_earned"`
	WeeklyXP              int64              `json:"weekly_xp"`
	CurrentStreak         int                `json:"current_streak"`
	LongestStreak         int                `json:"longest_streak"`
	LastStudyDate         *time.Time         `json:"last_study_date,omitempty"`
	StreakSavers          int                `json:"streak_savers"`
	Achievements          []string           `json:"achievements"`
	DailyQuests           []Quest            `json:"daily_quests"`
	WeeklyQuests          []Quest            `json:"weekly_quests"`
	SubjectMastery        map[string]float64 `json:"subject_mastery"`

	// Session history aggregates used by achievement conditions.
	LongestSessionMinutes float64   `json:"longest_session_minutes"`
	EarlyBirdSessions     int       `json:"early_bird_sessions"`
	NightOwlSessions      int       `json:"night_owl_sessions"`
	RecentSessionMinutes  []float64 `json:"recent_session_minutes"`
	QuestsCompleted       int       `json:"quests_completed"`

	QuestResets    map[QuestCategory]time.Time `json:"quest_resets"`
	PeriodSubjects map[QuestCategory][]string  `json:"period_subjects"`
}

// NewUserStats returns the state of a brand-new account.
func NewUserStats() UserStats {
	return UserStats{
		Level:          1,
		Achievements:   []string{},
		SubjectMastery: make(map[string]float64),
		QuestResets:    make(map[QuestCategory]time.Time),
		PeriodSubjects: make(map[QuestCategory][]string),
	}
}

// HasAchievement reports whether id is already unlocked.
func (s UserStats) HasAchievement(id string) bool {
	return slices.Contains(s.Achievements, id)
}

// Quests returns the quest list for a category.
func (s *UserStats) Quests(c QuestCategory) []Quest {
	switch c {
	case QuestDaily:
		return s.DailyQuests
	case QuestWeekly:
		return s.WeeklyQuests
	}
	return nil
}

// SetQuests replaces the quest list for a category.
func (s *UserStats) SetQuests(c QuestCategory, quests []Quest) {
	switch c {
	case QuestDaily:
		s.DailyQuests = quests
	case QuestWeekly:
		s.WeeklyQuests = quests
	}
}

// Clone returns a deep copy so snapshots never alias ledger state.
func (s UserStats) Clone() UserStats {
	cp := s
	if s.LastStudyDate != nil {
		t := *s.LastStudyDate
		cp.LastStudyDate = &t
	}
	cp.Achievements = append([]string{}, s.Achievements...)
	cp.DailyQuests = cloneQuests(s.DailyQuests)
	cp.WeeklyQuests = cloneQuests(s.WeeklyQuests)
	cp.RecentSessionMinutes = append([]float64(nil), s.RecentSessionMinutes...)

	cp.SubjectMastery = make(map[string]float64, len(s.SubjectMastery))
	for k, v := range s.SubjectMastery {
		cp.SubjectMastery[k] = v
	}
	cp.QuestResets = make(map[QuestCategory]time.Time, len(s.QuestResets))
	for k, v := range s.QuestResets {
		cp.QuestResets[k] = v
	}
	cp.PeriodSubjects = make(map[QuestCategory][]string, len(s.PeriodSubjects))
	for k, v := range s.PeriodSubjects {
		cp.PeriodSubjects[k] = append([]string(nil), v...)
	}
	return cp
}

func cloneQuests(qs []Quest) []Quest {
	if qs == nil {
		return nil
	}
	out := make([]Quest, len(qs))
	for i, q := range qs {
		if q.CompletedAt != nil {
			t := *q.CompletedAt
			q.CompletedAt = &t
		}
		out[i] = q
	}
	return out
}
