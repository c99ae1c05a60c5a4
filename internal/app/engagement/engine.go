package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/domain"
	"github.com/studyquest/studyquest/internal/infra/metrics"
)

// Options configures an Engine. Every field is optional.
type Options struct {
	AccountID         string
	Clock             Clock
	Rand              RandSource
	Logger            *zerolog.Logger
	PremiumMultiplier float64
	RecentWindow      int
	QueueCapacity     int
	Categories        []domain.CategorySpec
	Achievements      []domain.AchievementDef
	Hook              domain.PersistHook
}

// SessionOutcome is everything one finished session produced.
type SessionOutcome struct {
	XP     domain.XPResult      `json:"xp"`
	Streak domain.StreakResult  `json:"streak"`
	Events []domain.RewardEvent `json:"events"`
	Stats  domain.UserStats     `json:"stats"`
}

// Engine is the session intake and command surface of the progression
// engine. All state lives in the ledger; the other parts are stateless
// rules applied inside ledger updates.
type Engine struct {
	accountID    string
	clock        Clock
	hook         domain.PersistHook
	queue        *RewardQueue
	ledger       *Ledger
	streak       *StreakTracker
	quests       *QuestEngine
	achievements *AchievementEvaluator
	log          zerolog.Logger
}

// NewEngine creates an engine over stats.
func NewEngine(stats domain.UserStats, opts Options) *Engine {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Rand == nil {
		opts.Rand = NewRand()
	}
	if opts.AccountID == "" {
		opts.AccountID = "local"
	}

	queue := NewRewardQueue(opts.QueueCapacity)
	achievements := NewAchievementEvaluator(opts.Achievements, log)
	e := &Engine{
		accountID:    opts.AccountID,
		clock:        opts.Clock,
		hook:         opts.Hook,
		queue:        queue,
		streak:       NewStreakTracker(achievements),
		quests:       NewQuestEngine(opts.Categories, opts.Rand, log),
		achievements: achievements,
		log:          log.With().Str("component", "engine").Logger(),
	}
	e.ledger = NewLedger(stats, LedgerConfig{
		Queue:             queue,
		Hook:              opts.Hook,
		Generator:         NewGenerator(opts.Rand),
		Clock:             opts.Clock,
		PremiumMultiplier: opts.PremiumMultiplier,
		RecentWindow:      opts.RecentWindow,
		Logger:            log,
	})
	return e
}

// CompleteSession runs the full pipeline for one finished session:
// validate, refresh quests, grant XP, advance the streak, advance quests,
// re-check achievements, then log the session. Each step commits on its
// own against the latest snapshot.
func (e *Engine) CompleteSession(ctx context.Context, session domain.StudySession) (SessionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return SessionOutcome{}, err
	}
	if err := session.Validate(); err != nil {
		metrics.SessionsRejected.WithLabelValues(rejectReason(err)).Inc()
		return SessionOutcome{}, fmt.Errorf("complete session: %w", err)
	}

	now := e.clock.Now()
	if session.Timestamp.IsZero() {
		session.Timestamp = now
	}
	day := session.Timestamp.In(now.Location())

	var out SessionOutcome
	collect := func(events []domain.RewardEvent, err error) {
		if err == nil {
			out.Events = append(out.Events, events...)
		}
	}

	e.RefreshQuests()

	xp, events, err := e.ledger.grantSession(session)
	if err != nil {
		return SessionOutcome{}, err
	}
	out.XP = xp
	out.Events = append(out.Events, events...)

	collect(e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		var events []domain.RewardEvent
		out.Streak, events = e.streak.Advance(s, day)
		if !out.Streak.Changed {
			return nil, errNoChange
		}
		return events, nil
	}))

	collect(e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		qctx := domain.QuestContext{Subject: session.Subject}
		var events []domain.RewardEvent
		events = append(events, e.quests.UpdateProgress(s, domain.QuestTime, session.DurationMinutes, qctx, now)...)
		events = append(events, e.quests.UpdateProgress(s, domain.QuestSessions, 1, qctx, now)...)
		events = append(events, e.quests.UpdateProgress(s, domain.QuestSubjects, 1, qctx, now)...)
		if !out.Streak.CanUseSaver {
			events = append(events, e.quests.UpdateProgress(s, domain.QuestStreak, 1, qctx, now)...)
		}
		events = append(events, e.quests.UpdateProgress(s, domain.QuestXP, 0, qctx, now)...)
		return events, nil
	}))

	collect(e.checkAchievements())

	out.Stats = e.ledger.Snapshot()
	if e.hook != nil {
		e.hook.AppendSession(domain.SessionRecord{
			ID:        uuid.NewString(),
			AccountID: e.accountID,
			Session:   session,
			XPEarned:  xp.TotalXP,
			Bonuses:   xp,
			CreatedAt: now,
		})
	}

	metrics.SessionsCompleted.Inc()
	metrics.SessionMinutes.Observe(session.DurationMinutes)
	e.log.Debug().
		Str("subject", session.Subject).
		Float64("minutes", session.DurationMinutes).
		Int64("xp", xp.TotalXP).
		Int("level", out.Stats.Level).
		Int("streak", out.Stats.CurrentStreak).
		Int("events", len(out.Events)).
		Msg("session complete")
	return out, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, domain.ErrMissingSubject):
		return "missing_subject"
	}
	return "invalid"
}

// ─── Reads ──────────────────────────────────────────────────────────────────

// Stats returns a snapshot of the current stats.
func (e *Engine) Stats() domain.UserStats { return e.ledger.Snapshot() }

// Progress returns progress toward the next level.
func (e *Engine) Progress() domain.Progress { return XPProgress(e.ledger.Snapshot()) }

// StreakStatus returns the streak state as of now.
func (e *Engine) StreakStatus() domain.StreakStatus {
	return e.streak.Status(e.ledger.Snapshot(), e.clock.Now())
}

// Rewards returns the reward queue for the presentation loop.
func (e *Engine) Rewards() *RewardQueue { return e.queue }

// Achievements returns the achievement evaluator's catalog.
func (e *Engine) Achievements() []domain.AchievementDef { return e.achievements.Definitions() }

// Categories returns the quest categories in use.
func (e *Engine) Categories() []domain.CategorySpec { return e.quests.Categories() }

// AccountID returns the account this engine serves.
func (e *Engine) AccountID() string { return e.accountID }

// ─── Commands ───────────────────────────────────────────────────────────────

// Load replaces the in-memory stats with a stored copy and tops up quests.
func (e *Engine) Load(stats domain.UserStats) {
	e.ledger.Replace(stats)
	e.RefreshQuests()
}

// GrantSessionXP applies only the XP step for a session.
func (e *Engine) GrantSessionXP(session domain.StudySession) (domain.XPResult, error) {
	return e.ledger.GrantSessionXP(session)
}

// GrantXP adds a plain XP award and re-checks achievements.
func (e *Engine) GrantXP(amount int64, source domain.XPSource, reason string) ([]domain.RewardEvent, error) {
	events, err := e.ledger.GrantXP(amount, source, reason)
	if err != nil {
		return nil, err
	}
	more, _ := e.checkAchievements()
	return append(events, more...), nil
}

// UseStreakSaver spends a saver. False means none were available.
// Streak quests held back by the saver prompt advance here.
func (e *Engine) UseStreakSaver() bool {
	used := false
	_, _ = e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		now := e.clock.Now()
		events, ok := e.streak.UseSaver(s, now)
		if !ok {
			return nil, errNoChange
		}
		used = true
		return append(events, e.quests.UpdateProgress(s, domain.QuestStreak, 1, domain.QuestContext{}, now)...), nil
	})
	if used {
		_, _ = e.checkAchievements()
	}
	return used
}

// AcceptStreakBreak lets a broken streak go instead of saving it. The
// streak drops to 0 and the next session starts a new one.
func (e *Engine) AcceptStreakBreak() bool {
	accepted := false
	_, _ = e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		now := e.clock.Now()
		if !e.streak.AcceptBreak(s, now) {
			return nil, errNoChange
		}
		accepted = true
		return e.quests.UpdateProgress(s, domain.QuestStreak, 1, domain.QuestContext{}, now), nil
	})
	return accepted
}

// GrantStreakSavers adds n savers from an external source.
func (e *Engine) GrantStreakSavers(n int) error {
	if n <= 0 {
		return fmt.Errorf("grant %d savers: %w", n, domain.ErrInvalidAmount)
	}
	_, err := e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		e.streak.GrantSavers(s, n)
		return nil, nil
	})
	return err
}

// Prestige resets progress for a permanent bonus. False below level 100.
func (e *Engine) Prestige() bool {
	if !e.ledger.Prestige() {
		return false
	}
	_, _ = e.checkAchievements()
	return true
}

// GenerateDailyQuests regenerates the daily list unconditionally.
func (e *Engine) GenerateDailyQuests() ([]domain.Quest, error) {
	return e.generate(domain.QuestDaily)
}

// GenerateWeeklyQuests regenerates the weekly list unconditionally.
func (e *Engine) GenerateWeeklyQuests() ([]domain.Quest, error) {
	return e.generate(domain.QuestWeekly)
}

// GenerateQuests regenerates one category.
func (e *Engine) GenerateQuests(c domain.QuestCategory) ([]domain.Quest, error) {
	return e.generate(c)
}

func (e *Engine) generate(c domain.QuestCategory) ([]domain.Quest, error) {
	var quests []domain.Quest
	_, err := e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		var err error
		quests, err = e.quests.Generate(s, c, e.clock.Now())
		return nil, err
	})
	return quests, err
}

// UpdateQuestProgress feeds one typed progress event to the quest engine
// and re-checks achievements afterwards.
func (e *Engine) UpdateQuestProgress(qt domain.QuestType, amount float64, qctx domain.QuestContext) ([]domain.RewardEvent, error) {
	if !knownQuestType(qt) {
		return nil, fmt.Errorf("update %q progress: %w", qt, domain.ErrUnknownQuestType)
	}
	if amount < 0 {
		return nil, fmt.Errorf("update %q progress by %v: %w", qt, amount, domain.ErrInvalidAmount)
	}
	events, err := e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		return e.quests.UpdateProgress(s, qt, amount, qctx, e.clock.Now()), nil
	})
	if err != nil {
		return nil, err
	}
	more, _ := e.checkAchievements()
	return append(events, more...), nil
}

// CheckAchievements unlocks anything newly satisfied. Redundant calls
// unlock nothing.
func (e *Engine) CheckAchievements() []domain.RewardEvent {
	events, _ := e.checkAchievements()
	return events
}

func (e *Engine) checkAchievements() ([]domain.RewardEvent, error) {
	events, err := e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		events := e.achievements.CheckAll(s)
		if len(events) == 0 {
			return nil, errNoChange
		}
		return events, nil
	})
	if errors.Is(err, errNoChange) {
		return nil, nil
	}
	return events, err
}

// RefreshQuests regenerates any quest category whose reset interval has
// elapsed or that has no quests yet.
func (e *Engine) RefreshQuests() {
	_, _ = e.ledger.Update(func(s *domain.UserStats) ([]domain.RewardEvent, error) {
		if len(e.quests.RefreshIfNeeded(s, e.clock.Now())) == 0 {
			return nil, errNoChange
		}
		return nil, nil
	})
}
