package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// StatsStore is the remote persistence collaborator: one stats row per
// account plus an append-only session log.
// Implemented by infra/sqlite.DB and infra/redisstore.Store.
type StatsStore interface {
	// LoadStats returns ErrStatsNotFound when the account has no row yet.
	LoadStats(ctx context.Context, accountID string) (UserStats, error)

	// SaveStats upserts the full aggregate.
	SaveStats(ctx context.Context, accountID string, stats UserStats) error

	// AppendSession adds one row to the session log.
	AppendSession(ctx context.Context, rec SessionRecord) error

	Ping(ctx context.Context) error
	Close() error
}

// PersistHook receives committed state. Implementations must not block;
// in-memory state stays authoritative whatever happens to the write.
type PersistHook interface {
	SaveSnapshot(stats UserStats)
	AppendSession(rec SessionRecord)
}
