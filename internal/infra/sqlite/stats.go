package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/studyquest/studyquest/internal/domain"
)

// extras holds the aggregates that have no column of their own.
type extras struct {
	LongestSessionMinutes float64                            `json:"longest_session_minutes"`
	EarlyBirdSessions     int                                `json:"early_bird_sessions"`
	NightOwlSessions      int                                `json:"night_owl_sessions"`
	RecentSessionMinutes  []float64                          `json:"recent_session_minutes"`
	QuestsCompleted       int                                `json:"quests_completed"`
	QuestResets           map[domain.QuestCategory]time.Time `json:"quest_resets"`
	PeriodSubjects        map[domain.QuestCategory][]string  `json:"period_subjects"`
}

// ─── Stats Repository ───────────────────────────────────────────────────────

// SaveStats upserts the aggregate row for an account.
func (d *DB) SaveStats(ctx context.Context, accountID string, s domain.UserStats) error {
	mastery, err := json.Marshal(s.SubjectMastery)
	if err != nil {
		return fmt.Errorf("encode subject mastery: %w", err)
	}
	achievements, err := json.Marshal(s.Achievements)
	if err != nil {
		return fmt.Errorf("encode achievements: %w", err)
	}
	daily, err := json.Marshal(s.DailyQuests)
	if err != nil {
		return fmt.Errorf("encode daily quests: %w", err)
	}
	weekly, err := json.Marshal(s.WeeklyQuests)
	if err != nil {
		return fmt.Errorf("encode weekly quests: %w", err)
	}
	ex, err := json.Marshal(extras{
		LongestSessionMinutes: s.LongestSessionMinutes,
		EarlyBirdSessions:     s.EarlyBirdSessions,
		NightOwlSessions:      s.NightOwlSessions,
		RecentSessionMinutes:  s.RecentSessionMinutes,
		QuestsCompleted:       s.QuestsCompleted,
		QuestResets:           s.QuestResets,
		PeriodSubjects:        s.PeriodSubjects,
	})
	if err != nil {
		return fmt.Errorf("encode extras: %w", err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO user_stats (account_id, xp, level, prestige_level, title, total_sessions,
			total_study_time, total_xp_earned, weekly_xp, current_streak, longest_streak,
			last_study_date, streak_savers, subject_mastery, achievements, daily_quests,
			weekly_quests, extras, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(account_id) DO UPDATE SET
			xp=excluded.xp,
			level=excluded.level,
			prestige_level=excluded.prestige_level,
			title=excluded.title,
			total_sessions=excluded.total_sessions,
			total_study_time=excluded.total_study_time,
			total_xp_earned=excluded.total_xp_earned,
			weekly_xp=excluded.weekly_xp,
			current_streak=excluded.current_streak,
			longest_streak=excluded.longest_streak,
			last_study_date=excluded.last_study_date,
			streak_savers=excluded.streak_savers,
			subject_mastery=excluded.subject_mastery,
			achievements=excluded.achievements,
			daily_quests=excluded.daily_quests,
			weekly_quests=excluded.weekly_quests,
			extras=excluded.extras,
			updated_at=excluded.updated_at`,
		accountID, s.XP, s.Level, s.PrestigeLevel, s.Title, s.TotalSessions,
		s.TotalStudyTimeMinutes, s.TotalXPEarned, s.WeeklyXP, s.CurrentStreak, s.LongestStreak,
		nullableTime(s.LastStudyDate), s.StreakSavers, string(mastery), string(achievements),
		string(daily), string(weekly), string(ex), time.Now().Unix(),
	)
	return err
}

// LoadStats reads the aggregate row for an account.
// Returns domain.ErrStatsNotFound if the account has never been saved.
func (d *DB) LoadStats(ctx context.Context, accountID string) (domain.UserStats, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT xp, level, prestige_level, title, total_sessions, total_study_time,
			total_xp_earned, weekly_xp, current_streak, longest_streak, last_study_date,
			streak_savers, subject_mastery, achievements, daily_quests, weekly_quests, extras
		 FROM user_stats WHERE account_id = ?`, accountID,
	)
	s, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserStats{}, fmt.Errorf("account %q: %w", accountID, domain.ErrStatsNotFound)
	}
	return s, err
}

func scanStats(sc scanner) (domain.UserStats, error) {
	s := domain.NewUserStats()
	var lastStudy sql.NullString
	var mastery, achievements, daily, weekly, ex string

	err := sc.Scan(&s.XP, &s.Level, &s.PrestigeLevel, &s.Title, &s.TotalSessions,
		&s.TotalStudyTimeMinutes, &s.TotalXPEarned, &s.WeeklyXP, &s.CurrentStreak,
		&s.LongestStreak, &lastStudy, &s.StreakSavers, &mastery, &achievements,
		&daily, &weekly, &ex)
	if err != nil {
		return domain.UserStats{}, err
	}

	if lastStudy.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastStudy.String)
		if err != nil {
			return domain.UserStats{}, fmt.Errorf("decode last study date: %w", err)
		}
		s.LastStudyDate = &t
	}

	columns := []struct {
		name string
		raw  string
		dst  any
	}{
		{"subject_mastery", mastery, &s.SubjectMastery},
		{"achievements", achievements, &s.Achievements},
		{"daily_quests", daily, &s.DailyQuests},
		{"weekly_quests", weekly, &s.WeeklyQuests},
	}
	for _, c := range columns {
		if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
			return domain.UserStats{}, fmt.Errorf("decode %s: %w", c.name, err)
		}
	}

	var e extras
	if err := json.Unmarshal([]byte(ex), &e); err != nil {
		return domain.UserStats{}, fmt.Errorf("decode extras: %w", err)
	}
	s.LongestSessionMinutes = e.LongestSessionMinutes
	s.EarlyBirdSessions = e.EarlyBirdSessions
	s.NightOwlSessions = e.NightOwlSessions
	s.RecentSessionMinutes = e.RecentSessionMinutes
	s.QuestsCompleted = e.QuestsCompleted
	if e.QuestResets != nil {
		s.QuestResets = e.QuestResets
	}
	if e.PeriodSubjects != nil {
		s.PeriodSubjects = e.PeriodSubjects
	}
	if s.SubjectMastery == nil {
		s.SubjectMastery = make(map[string]float64)
	}
	if s.Achievements == nil {
		s.Achievements = []string{}
	}
	return s, nil
}

// ─── Session Log ────────────────────────────────────────────────────────────

// AppendSession adds one row to the session log. Rows are never updated.
func (d *DB) AppendSession(ctx context.Context, rec domain.SessionRecord) error {
	bonuses, err := json.Marshal(rec.Bonuses)
	if err != nil {
		return fmt.Errorf("encode bonuses: %w", err)
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO session_log (id, account_id, subject, duration_minutes, difficulty, mood,
			started_at, xp_earned, bonuses, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AccountID, rec.Session.Subject, rec.Session.DurationMinutes,
		rec.Session.Difficulty, rec.Session.Mood, rec.Session.Timestamp.Format(time.RFC3339Nano),
		rec.XPEarned, string(bonuses), rec.CreatedAt.UnixNano(),
	)
	return err
}

// ListSessions returns an account's most recent sessions, newest first.
func (d *DB) ListSessions(ctx context.Context, accountID string, limit int) ([]domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, account_id, subject, duration_minutes, difficulty, mood, started_at,
			xp_earned, bonuses, created_at
		 FROM session_log WHERE account_id = ?
		 ORDER BY created_at DESC LIMIT ?`, accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SessionCount returns how many sessions are logged for an account.
func (d *DB) SessionCount(ctx context.Context, accountID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_log WHERE account_id = ?`, accountID,
	).Scan(&n)
	return n, err
}

func scanSession(sc scanner) (domain.SessionRecord, error) {
	var rec domain.SessionRecord
	var startedAt, bonuses string
	var createdAt int64

	err := sc.Scan(&rec.ID, &rec.AccountID, &rec.Session.Subject, &rec.Session.DurationMinutes,
		&rec.Session.Difficulty, &rec.Session.Mood, &startedAt, &rec.XPEarned, &bonuses, &createdAt)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	if rec.Session.Timestamp, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode started_at: %w", err)
	}
	if err := json.Unmarshal([]byte(bonuses), &rec.Bonuses); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode bonuses: %w", err)
	}
	rec.CreatedAt = time.Unix(0, createdAt)
	return rec, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func nullableTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}
