// Package catalog provides the quest template pool.
// The built-in pool covers daily and weekly quests; a YAML file can
// replace the templates or tune the cadence of either category.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/studyquest/studyquest/internal/domain"
)

const (
	// DailyInterval is the default daily reset cadence.
	DailyInterval = 24 * time.Hour
	// WeeklyInterval is the default weekly reset cadence.
	WeeklyInterval = 7 * 24 * time.Hour
	// DefaultMaxQuests is how many quests each category offers at once.
	DefaultMaxQuests = 3
)

// DailyTemplates is the built-in daily pool.
var DailyTemplates = []domain.QuestTemplate{
	{ID: "daily_time_25", Name: "Study for 25 minutes", Type: domain.QuestTime, Target: 25, XP: 50},
	{ID: "daily_time_60", Name: "Study for an hour", Type: domain.QuestTime, Target: 60, XP: 120},
	{ID: "daily_sessions_2", Name: "Complete 2 sessions", Type: domain.QuestSessions, Target: 2, XP: 60},
	{ID: "daily_sessions_3", Name: "Complete 3 sessions", Type: domain.QuestSessions, Target: 3, XP: 90},
	{ID: "daily_subjects_2", Name: "Study 2 different subjects", Type: domain.QuestSubjects, Target: 2, XP: 75},
	{ID: "daily_streak", Name: "Keep your streak alive", Type: domain.QuestStreak, Target: 1, XP: 40},
}

// WeeklyTemplates is the built-in weekly pool.
var WeeklyTemplates = []domain.QuestTemplate{
	{ID: "weekly_time_300", Name: "Study for 5 hours", Type: domain.QuestTime, Target: 300, XP: 400},
	{ID: "weekly_time_600", Name: "Study for 10 hours", Type: domain.QuestTime, Target: 600, XP: 750},
	{ID: "weekly_sessions_10", Name: "Complete 10 sessions", Type: domain.QuestSessions, Target: 10, XP: 350},
	{ID: "weekly_subjects_4", Name: "Study 4 different subjects", Type: domain.QuestSubjects, Target: 4, XP: 300},
	{ID: "weekly_xp_3000", Name: "Earn 3000 XP this week", Type: domain.QuestXP, Target: 3000, XP: 400},
	{ID: "weekly_xp_7500", Name: "Earn 7500 XP this week", Type: domain.QuestXP, Target: 7500, XP: 800},
	{ID: "weekly_streak", Name: "Hold a streak all week", Type: domain.QuestStreak, Target: 1, XP: 150},
}

// Default returns the built-in categories.
func Default() []domain.CategorySpec {
	return []domain.CategorySpec{
		{
			Category:      domain.QuestDaily,
			MaxQuests:     DefaultMaxQuests,
			ResetInterval: DailyInterval,
			Templates:     append([]domain.QuestTemplate(nil), DailyTemplates...),
		},
		{
			Category:      domain.QuestWeekly,
			MaxQuests:     DefaultMaxQuests,
			ResetInterval: WeeklyInterval,
			Templates:     append([]domain.QuestTemplate(nil), WeeklyTemplates...),
		},
	}
}

// File is the on-disk override format. Omitted fields keep defaults.
type File struct {
	Daily  *CategoryFile `yaml:"daily"`
	Weekly *CategoryFile `yaml:"weekly"`
}

// CategoryFile overrides one category.
type CategoryFile struct {
	MaxQuests     int                    `yaml:"max_quests"`
	ResetInterval time.Duration          `yaml:"reset_interval"`
	Templates     []domain.QuestTemplate `yaml:"templates"`
}

// Load reads a YAML override and merges it onto the defaults.
func Load(path string) ([]domain.CategorySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse quest catalog %s: %w", path, err)
	}

	specs := Default()
	for i := range specs {
		var override *CategoryFile
		switch specs[i].Category {
		case domain.QuestDaily:
			override = f.Daily
		case domain.QuestWeekly:
			override = f.Weekly
		}
		if override == nil {
			continue
		}
		if override.MaxQuests > 0 {
			specs[i].MaxQuests = override.MaxQuests
		}
		if override.ResetInterval > 0 {
			specs[i].ResetInterval = override.ResetInterval
		}
		if len(override.Templates) > 0 {
			specs[i].Templates = override.Templates
		}
	}
	return specs, nil
}

// LoadOrDefault is Load, except an empty path or a missing file yields
// the built-in catalog.
func LoadOrDefault(path string) ([]domain.CategorySpec, error) {
	if path == "" {
		return Default(), nil
	}
	specs, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return specs, err
}

// Lookup finds a template by ID across categories.
func Lookup(specs []domain.CategorySpec, id string) (domain.QuestTemplate, domain.QuestCategory, bool) {
	for _, spec := range specs {
		for _, tmpl := range spec.Templates {
			if tmpl.ID == id {
				return tmpl, spec.Category, true
			}
		}
	}
	return domain.QuestTemplate{}, "", false
}
