// Package redisstore implements domain.StatsStore on Redis.
//
// Layout:
//
//	studyquest:stats:<account>     JSON-encoded UserStats
//	studyquest:sessions:<account>  list of JSON-encoded SessionRecord, oldest first
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyquest/studyquest/internal/domain"
)

const keyPrefix = "studyquest"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store is a Redis-backed StatsStore.
type Store struct {
	client *redis.Client
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	s := New(redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}))
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return s, nil
}

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// StatsKey returns the key holding an account's stats.
func StatsKey(accountID string) string {
	return keyPrefix + ":stats:" + accountID
}

// SessionsKey returns the key holding an account's session log.
func SessionsKey(accountID string) string {
	return keyPrefix + ":sessions:" + accountID
}

// SaveStats overwrites the stats blob for an account.
func (s *Store) SaveStats(ctx context.Context, accountID string, stats domain.UserStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	return s.client.Set(ctx, StatsKey(accountID), data, 0).Err()
}

// LoadStats reads the stats blob. Returns domain.ErrStatsNotFound when the
// key is missing.
func (s *Store) LoadStats(ctx context.Context, accountID string) (domain.UserStats, error) {
	raw, err := s.client.Get(ctx, StatsKey(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserStats{}, fmt.Errorf("account %q: %w", accountID, domain.ErrStatsNotFound)
	}
	if err != nil {
		return domain.UserStats{}, err
	}
	return decodeStats(raw)
}

// AppendSession pushes one record onto the account's session list.
func (s *Store) AppendSession(ctx context.Context, rec domain.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.RPush(ctx, SessionsKey(rec.AccountID), data).Err()
}

// ListSessions returns up to limit of the newest sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, accountID string, limit int) ([]domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	raws, err := s.client.LRange(ctx, SessionsKey(accountID), int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionRecord, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var rec domain.SessionRecord
		if err := json.Unmarshal([]byte(raws[i]), &rec); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// SessionCount returns the length of the account's session list.
func (s *Store) SessionCount(ctx context.Context, accountID string) (int, error) {
	n, err := s.client.LLen(ctx, SessionsKey(accountID)).Result()
	return int(n), err
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (s *Store) Close() error {
	return s.client.Close()
}

// decodeStats fills in the maps and slices a sparse blob leaves nil.
func decodeStats(raw []byte) (domain.UserStats, error) {
	stats := domain.NewUserStats()
	if err := json.Unmarshal(raw, &stats); err != nil {
		return domain.UserStats{}, fmt.Errorf("decode stats: %w", err)
	}
	if stats.Achievements == nil {
		stats.Achievements = []string{}
	}
	if stats.SubjectMastery == nil {
		stats.SubjectMastery = make(map[string]float64)
	}
	if stats.QuestResets == nil {
		stats.QuestResets = make(map[domain.QuestCategory]time.Time)
	}
	if stats.PeriodSubjects == nil {
		stats.PeriodSubjects = make(map[domain.QuestCategory][]string)
	}
	return stats, nil
}
