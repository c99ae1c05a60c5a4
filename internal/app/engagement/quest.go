package engagement

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/domain"
	"github.com/studyquest/studyquest/internal/infra/catalog"
)

// QuestEngine instantiates quests from templates and advances them.
// It mutates the stats it is handed; callers run it inside Ledger.Update.
type QuestEngine struct {
	categories []domain.CategorySpec
	rand       RandSource
	log        zerolog.Logger
}

// NewQuestEngine creates a quest engine. nil categories selects the
// built-in catalog.
func NewQuestEngine(categories []domain.CategorySpec, r RandSource, log zerolog.Logger) *QuestEngine {
	if categories == nil {
		categories = catalog.Default()
	}
	if r == nil {
		r = NewRand()
	}
	return &QuestEngine{
		categories: categories,
		rand:       r,
		log:        log.With().Str("component", "quests").Logger(),
	}
}

// Categories returns the configured categories.
func (q *QuestEngine) Categories() []domain.CategorySpec {
	return slices.Clone(q.categories)
}

func (q *QuestEngine) category(c domain.QuestCategory) (domain.CategorySpec, bool) {
	for _, spec := range q.categories {
		if spec.Category == c {
			return spec, true
		}
	}
	return domain.CategorySpec{}, false
}

// Generate replaces the category's quest list with a fresh random pick.
// Unfinished quests are discarded. Weekly regeneration also starts a new
// weekly XP period.
func (q *QuestEngine) Generate(stats *domain.UserStats, c domain.QuestCategory, now time.Time) ([]domain.Quest, error) {
	spec, ok := q.category(c)
	if !ok {
		return nil, fmt.Errorf("generate %q quests: %w", c, domain.ErrUnknownQuestCategory)
	}

	selected := pickUniqueQuests(q.wellFormed(spec.Templates), spec.MaxQuests, q.rand)
	deadline := now.Add(spec.ResetInterval)

	quests := make([]domain.Quest, 0, len(selected))
	for _, tmpl := range selected {
		quests = append(quests, domain.Quest{
			ID:         uuid.NewString(),
			TemplateID: tmpl.ID,
			Name:       tmpl.Name,
			Category:   c,
			Type:       tmpl.Type,
			Target:     ScaleTarget(tmpl.Target, stats.Level),
			XP:         tmpl.XP,
			Deadline:   deadline,
		})
	}

	stats.SetQuests(c, quests)
	if stats.QuestResets == nil {
		stats.QuestResets = make(map[domain.QuestCategory]time.Time)
	}
	stats.QuestResets[c] = now
	if stats.PeriodSubjects == nil {
		stats.PeriodSubjects = make(map[domain.QuestCategory][]string)
	}
	stats.PeriodSubjects[c] = nil
	if c == domain.QuestWeekly {
		stats.WeeklyXP = 0
	}

	q.log.Debug().Str("category", string(c)).Int("count", len(quests)).Msg("quests generated")
	return quests, nil
}

// RefreshIfNeeded regenerates every category whose reset is due or whose
// list is empty. It returns the categories it regenerated.
func (q *QuestEngine) RefreshIfNeeded(stats *domain.UserStats, now time.Time) []domain.QuestCategory {
	var refreshed []domain.QuestCategory
	for _, spec := range q.categories {
		last := stats.QuestResets[spec.Category]
		if !ShouldReset(last, now, spec.ResetInterval) && len(stats.Quests(spec.Category)) > 0 {
			continue
		}
		if _, err := q.Generate(stats, spec.Category, now); err == nil {
			refreshed = append(refreshed, spec.Category)
		}
	}
	return refreshed
}

// UpdateProgress advances every incomplete, unexpired quest of type qt in
// all categories. Completions grant their XP directly, so they never feed
// back into quest progress.
func (q *QuestEngine) UpdateProgress(stats *domain.UserStats, qt domain.QuestType, amount float64, ctx domain.QuestContext, now time.Time) []domain.RewardEvent {
	if qt == domain.QuestSubjects && ctx.Subject != "" {
		q.recordSubject(stats, ctx.Subject)
	}

	var events []domain.RewardEvent
	for _, spec := range q.categories {
		quests := stats.Quests(spec.Category)
		for i := range quests {
			quest := &quests[i]
			if quest.Completed || quest.Type != qt || quest.IsExpired(now) {
				continue
			}
			if quest.Target <= 0 {
				q.log.Warn().Str("quest", quest.ID).Float64("target", quest.Target).Msg("skipping quest with bad target")
				continue
			}

			switch qt {
			case domain.QuestTime, domain.QuestTasks:
				quest.Progress += amount
			case domain.QuestSessions:
				quest.Progress++
			case domain.QuestSubjects:
				quest.Progress = float64(len(stats.PeriodSubjects[spec.Category]))
			case domain.QuestStreak:
				quest.Progress = 0
				if stats.CurrentStreak > 0 {
					quest.Progress = 1
				}
			case domain.QuestXP:
				quest.Progress = float64(stats.WeeklyXP)
			default:
				q.log.Warn().Str("quest", quest.ID).Str("type", string(qt)).Msg("skipping quest of unknown type")
				continue
			}

			if quest.Progress > quest.Target {
				quest.Progress = quest.Target
			}
			if quest.Progress >= quest.Target {
				events = append(events, q.complete(stats, quest, now)...)
			}
		}
		stats.SetQuests(spec.Category, quests)
	}
	return events
}

func (q *QuestEngine) complete(stats *domain.UserStats, quest *domain.Quest, now time.Time) []domain.RewardEvent {
	at := now
	quest.Completed = true
	quest.CompletedAt = &at
	stats.QuestsCompleted++

	events := []domain.RewardEvent{{
		Type:    domain.RewardQuestComplete,
		Tier:    domain.TierUncommon,
		Title:   "Quest Complete",
		Message: quest.Name,
		XP:      quest.XP,
		QuestID: quest.ID,
	}}
	if quest.XP > 0 {
		events = append(events, applyXP(stats, quest.XP)...)
	}
	return events
}

// recordSubject adds subject to every category's current period.
func (q *QuestEngine) recordSubject(stats *domain.UserStats, subject string) {
	if stats.PeriodSubjects == nil {
		stats.PeriodSubjects = make(map[domain.QuestCategory][]string)
	}
	for _, spec := range q.categories {
		seen := stats.PeriodSubjects[spec.Category]
		if !slices.Contains(seen, subject) {
			stats.PeriodSubjects[spec.Category] = append(seen, subject)
		}
	}
}

// wellFormed drops templates no quest could be built from.
func (q *QuestEngine) wellFormed(pool []domain.QuestTemplate) []domain.QuestTemplate {
	out := make([]domain.QuestTemplate, 0, len(pool))
	for _, tmpl := range pool {
		if tmpl.ID == "" || tmpl.Target <= 0 || !knownQuestType(tmpl.Type) {
			q.log.Warn().Str("template", tmpl.ID).Str("type", string(tmpl.Type)).Msg("skipping malformed quest template")
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

func knownQuestType(t domain.QuestType) bool {
	switch t {
	case domain.QuestTime, domain.QuestSessions, domain.QuestSubjects,
		domain.QuestStreak, domain.QuestXP, domain.QuestTasks:
		return true
	}
	return false
}

// pickUniqueQuests selects n random templates, preferring unique types.
func pickUniqueQuests(pool []domain.QuestTemplate, n int, r RandSource) []domain.QuestTemplate {
	shuffled := slices.Clone(pool)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	// Pick unique types first
	seenType := make(map[domain.QuestType]bool)
	picked := make(map[string]bool)
	var result []domain.QuestTemplate
	for _, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !seenType[tmpl.Type] {
			seenType[tmpl.Type] = true
			picked[tmpl.ID] = true
			result = append(result, tmpl)
		}
	}

	// Not enough distinct types: fill with unused templates
	for _, tmpl := range shuffled {
		if len(result) >= n {
			break
		}
		if !picked[tmpl.ID] {
			picked[tmpl.ID] = true
			result = append(result, tmpl)
		}
	}
	return result
}
