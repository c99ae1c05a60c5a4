package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Session intake errors
	ErrInvalidDuration = errors.New("session duration must be positive")
	ErrMissingSubject  = errors.New("session subject is required")

	// Ledger errors
	ErrInvalidAmount = errors.New("xp amount must be positive")

	// Quest errors
	ErrUnknownQuestCategory = errors.New("unknown quest category")
	ErrUnknownQuestType     = errors.New("unknown quest type")

	// Storage errors
	ErrStatsNotFound      = errors.New("no stats stored for account")
	ErrPersistQueueClosed = errors.New("persist queue is closed")
)
