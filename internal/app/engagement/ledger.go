package engagement

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/domain"
	"github.com/studyquest/studyquest/internal/infra/metrics"
)

// DefaultRecentWindow is how many recent session lengths are kept for the
// variable reward performance check.
const DefaultRecentWindow = 10

// errNoChange aborts an update that found nothing to do.
var errNoChange = errors.New("no change")

// UpdateFunc mutates a private copy of the stats and returns the events the
// change produced. Returning an error discards the copy.
type UpdateFunc func(stats *domain.UserStats) ([]domain.RewardEvent, error)

// Ledger owns the canonical UserStats. Every write is a read-modify-write
// over the latest committed snapshot, serialised by mu.
type Ledger struct {
	mu    sync.Mutex
	stats domain.UserStats

	queue        *RewardQueue
	hook         domain.PersistHook
	gen          *Generator
	clock        Clock
	premium      float64
	recentWindow int
	log          zerolog.Logger
}

// LedgerConfig wires a Ledger. Zero values get defaults.
type LedgerConfig struct {
	Queue             *RewardQueue
	Hook              domain.PersistHook
	Generator         *Generator
	Clock             Clock
	PremiumMultiplier float64
	RecentWindow      int
	Logger            zerolog.Logger
}

// NewLedger creates a ledger holding stats.
func NewLedger(stats domain.UserStats, cfg LedgerConfig) *Ledger {
	if cfg.Queue == nil {
		cfg.Queue = NewRewardQueue(0)
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Generator == nil {
		cfg.Generator = NewGenerator(NewRand())
	}
	if cfg.PremiumMultiplier <= 0 {
		cfg.PremiumMultiplier = 1.0
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	l := &Ledger{
		queue:        cfg.Queue,
		hook:         cfg.Hook,
		gen:          cfg.Generator,
		clock:        cfg.Clock,
		premium:      cfg.PremiumMultiplier,
		recentWindow: cfg.RecentWindow,
		log:          cfg.Logger.With().Str("component", "ledger").Logger(),
	}
	l.stats = normalize(stats)
	return l
}

// Snapshot returns a deep copy of the committed stats.
func (l *Ledger) Snapshot() domain.UserStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.Clone()
}

// Replace swaps in externally loaded stats. Level is recomputed from XP.
func (l *Ledger) Replace(stats domain.UserStats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats = normalize(stats)
	metrics.CurrentLevel.Set(float64(l.stats.Level))
	metrics.CurrentStreak.Set(float64(l.stats.CurrentStreak))
}

// Update applies fn to a copy of the latest snapshot and commits it when fn
// succeeds. Events are stamped, queued, and the new snapshot handed to the
// persistence hook before the lock is released, so both observe commit order.
func (l *Ledger) Update(fn UpdateFunc) ([]domain.RewardEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.stats.Clone()
	events, err := fn(&next)
	if err != nil {
		return nil, err
	}
	next.Level = LevelFromXP(next.XP)
	l.stats = next

	now := l.clock.Now()
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = now
		}
		if events[i].AutoDismiss == 0 {
			events[i].AutoDismiss = AutoDismissFor(events[i].Tier)
		}
	}
	l.queue.Enqueue(events...)
	observe(next, events)

	if l.hook != nil {
		l.hook.SaveSnapshot(next.Clone())
	}
	return events, nil
}

// GrantSessionXP applies the session formula and returns its breakdown.
// Invalid sessions are rejected before anything is touched.
func (l *Ledger) GrantSessionXP(session domain.StudySession) (domain.XPResult, error) {
	result, _, err := l.grantSession(session)
	return result, err
}

func (l *Ledger) grantSession(session domain.StudySession) (domain.XPResult, []domain.RewardEvent, error) {
	if err := session.Validate(); err != nil {
		return domain.XPResult{}, nil, fmt.Errorf("grant session xp: %w", err)
	}
	var result domain.XPResult
	events, err := l.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		var events []domain.RewardEvent
		result, events = l.applySession(s, session)
		return events, nil
	})
	if err != nil {
		return domain.XPResult{}, nil, err
	}
	metrics.XPGranted.WithLabelValues(string(domain.XPSession)).Add(float64(result.TotalXP))
	metrics.VariableRewards.WithLabelValues(string(result.Variable.Tier)).Inc()
	return result, events, nil
}

// GrantXP adds a plain XP award that carries no session side effects.
func (l *Ledger) GrantXP(amount int64, source domain.XPSource, reason string) ([]domain.RewardEvent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("grant %d xp: %w", amount, domain.ErrInvalidAmount)
	}
	events, err := l.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		events := []domain.RewardEvent{{
			Type:    domain.RewardXPEarned,
			Tier:    domain.TierCommon,
			Title:   fmt.Sprintf("+%d XP", amount),
			Message: reason,
			XP:      amount,
		}}
		l.log.Debug().Str("source", string(source)).Int64("xp", amount).Msg("plain grant")
		return append(events, applyXP(s, amount)...), nil
	})
	if err == nil {
		metrics.XPGranted.WithLabelValues(string(source)).Add(float64(amount))
	}
	return events, err
}

// Prestige resets level and XP for a permanent multiplier.
// It returns false, changing nothing, below PrestigeLevel.
func (l *Ledger) Prestige() bool {
	ok := false
	_, _ = l.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		if LevelFromXP(s.XP) < PrestigeLevel {
			return nil, errNoChange
		}
		ok = true
		s.PrestigeLevel++
		s.XP = 0
		s.Level = 1
		return []domain.RewardEvent{{
			Type:    domain.RewardPrestige,
			Tier:    domain.TierLegendary,
			Title:   fmt.Sprintf("Prestige %d", s.PrestigeLevel),
			Message: fmt.Sprintf("XP multiplier is now x%.1f", prestigeMultiplier(s.PrestigeLevel)),
			Level:   1,
		}}, nil
	})
	if ok {
		metrics.Prestiges.Inc()
	}
	return ok
}

// applySession runs the session formula against s.
func (l *Ledger) applySession(s *domain.UserStats, session domain.StudySession) (domain.XPResult, []domain.RewardEvent) {
	minutes := session.DurationMinutes
	baseXP := int64(math.Floor(minutes * XPPerMinute))
	focus := math.Min(3.0, 1+minutes/120)

	streak := float64(s.CurrentStreak)
	streakBonus := int64(math.Floor(streak * math.Log(streak+1) * 5))

	var mastery float64
	if s.SubjectMastery[session.Subject] >= 1000 {
		mastery = float64(baseXP) * 0.2
	}

	prestige := prestigeMultiplier(s.PrestigeLevel)
	subtotal := int64(math.Floor((float64(baseXP)*focus + float64(streakBonus) + mastery) * prestige * l.premium))

	variable := l.gen.Draw(baseXP, minutes, s.RecentSessionMinutes)
	total := subtotal + variable.BonusXP

	result := domain.XPResult{
		BaseXP:             baseXP,
		FocusMultiplier:    focus,
		StreakBonus:        streakBonus,
		MasteryBonus:       mastery,
		PrestigeMultiplier: prestige,
		PremiumMultiplier:  l.premium,
		SubtotalXP:         subtotal,
		Variable:           variable,
		TotalXP:            total,
		LevelBefore:        s.Level,
	}

	s.TotalSessions++
	s.TotalStudyTimeMinutes += minutes
	if s.SubjectMastery == nil {
		s.SubjectMastery = make(map[string]float64)
	}
	s.SubjectMastery[session.Subject] += minutes
	if minutes > s.LongestSessionMinutes {
		s.LongestSessionMinutes = minutes
	}
	s.RecentSessionMinutes = append(s.RecentSessionMinutes, minutes)
	if over := len(s.RecentSessionMinutes) - l.recentWindow; over > 0 {
		s.RecentSessionMinutes = s.RecentSessionMinutes[over:]
	}
	switch hour := session.Timestamp.Hour(); {
	case session.Timestamp.IsZero():
	case hour < 7:
		s.EarlyBirdSessions++
	case hour >= 22:
		s.NightOwlSessions++
	}

	events := []domain.RewardEvent{{
		Type:    domain.RewardXPEarned,
		Tier:    domain.TierCommon,
		Title:   fmt.Sprintf("+%d XP", total),
		Message: fmt.Sprintf("%.0f min of %s", minutes, session.Subject),
		XP:      total,
	}}
	if variable.Tier != domain.TierNone {
		events = append(events, domain.RewardEvent{
			Type:    domain.RewardVariable,
			Tier:    variable.Tier,
			Title:   variable.Title,
			Message: variable.Flavor,
			XP:      variable.BonusXP,
		})
	}
	events = append(events, applyXP(s, total)...)
	result.LevelAfter = s.Level
	return result, events
}

// applyXP adds amount to every XP counter and settles the level, returning
// one LEVEL_UP per boundary crossed. Milestone bonuses are folded in and may
// cascade into further level-ups.
func applyXP(s *domain.UserStats, amount int64) []domain.RewardEvent {
	addXP(s, amount)

	var events []domain.RewardEvent
	for s.Level < LevelFromXP(s.XP) {
		s.Level++
		ev := domain.RewardEvent{
			Type:  domain.RewardLevelUp,
			Tier:  domain.TierUncommon,
			Title: fmt.Sprintf("Level %d", s.Level),
			Level: s.Level,
		}
		if m, ok := MilestoneForLevel(s.Level); ok {
			addXP(s, m.BonusXP)
			s.Title = m.Title
			ev.Tier = domain.TierEpic
			ev.XP = m.BonusXP
			ev.Message = fmt.Sprintf("New title: %s (+%d XP)", m.Title, m.BonusXP)
		}
		events = append(events, ev)
	}
	return events
}

func addXP(s *domain.UserStats, amount int64) {
	s.XP += amount
	s.TotalXPEarned += amount
	s.WeeklyXP += amount
}

func prestigeMultiplier(prestigeLevel int) float64 {
	return 1 + float64(prestigeLevel)*0.1
}

// normalize repairs loaded stats: nil collections, level drift, and
// longest streak below current.
func normalize(stats domain.UserStats) domain.UserStats {
	s := stats.Clone()
	if s.Achievements == nil {
		s.Achievements = []string{}
	}
	if s.XP < 0 {
		s.XP = 0
	}
	s.Level = LevelFromXP(s.XP)
	if s.LongestStreak < s.CurrentStreak {
		s.LongestStreak = s.CurrentStreak
	}
	return s
}

// observe records metrics for committed events.
func observe(s domain.UserStats, events []domain.RewardEvent) {
	for _, ev := range events {
		switch ev.Type {
		case domain.RewardLevelUp:
			metrics.LevelUps.Inc()
			if ev.XP > 0 {
				metrics.XPGranted.WithLabelValues(string(domain.XPLevelMilestone)).Add(float64(ev.XP))
			}
		case domain.RewardAchievement:
			metrics.AchievementsUnlocked.WithLabelValues(string(ev.Tier)).Inc()
			metrics.XPGranted.WithLabelValues(string(domain.XPAchievement)).Add(float64(ev.XP))
		case domain.RewardQuestComplete:
			metrics.QuestsCompleted.WithLabelValues(string(questCategory(s, ev.QuestID))).Inc()
			metrics.XPGranted.WithLabelValues(string(domain.XPQuestCompleted)).Add(float64(ev.XP))
		}
	}
	metrics.CurrentLevel.Set(float64(s.Level))
	metrics.CurrentStreak.Set(float64(s.CurrentStreak))
}

func questCategory(s domain.UserStats, questID string) domain.QuestCategory {
	for _, q := range s.WeeklyQuests {
		if q.ID == questID {
			return domain.QuestWeekly
		}
	}
	return domain.QuestDaily
}
