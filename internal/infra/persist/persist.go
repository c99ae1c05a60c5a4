// Package persist is the write-behind bridge between the in-memory ledger
// and a remote StatsStore.
//
// Committed snapshots are coalesced: only the newest pending snapshot is
// written. Session records are queued in order. A single worker writes
// them, retrying failures with exponential backoff. A snapshot that still
// fails is held and retried every MaxDelay until it is written or a newer
// one replaces it. In-memory state is never rolled back, whatever happens
// to a write.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/studyquest/studyquest/internal/domain"
	"github.com/studyquest/studyquest/internal/infra/metrics"
)

// Config configures retry behavior.
type Config struct {
	MaxRetries int           // Retries after the first attempt before a write is dropped
	BaseDelay  time.Duration // Initial backoff delay (doubles each retry)
	MaxDelay   time.Duration // Cap on backoff delay
	QueueSize  int           // Max queued session records; oldest dropped past this
}

// DefaultConfig returns production retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 5,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		QueueSize:  1024,
	}
}

// Backoff returns the delay before retry number attempt (1-based):
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (c Config) Backoff(attempt int) time.Duration {
	delay := c.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > c.MaxDelay {
			return c.MaxDelay
		}
	}
	if delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// Stats holds persister counters.
type Stats struct {
	Pending int   `json:"pending"`
	Written int64 `json:"written"`
	Retries int64 `json:"retries"`
	Dropped int64 `json:"dropped"`
	Stale   bool  `json:"stale"` // a failed snapshot is waiting for retry
}

// Persister implements domain.PersistHook on top of a domain.StatsStore.
type Persister struct {
	store     domain.StatsStore
	accountID string
	cfg       Config
	log       zerolog.Logger

	mu       sync.Mutex
	snapshot *domain.UserStats
	stale    *domain.UserStats
	sessions []domain.SessionRecord
	inflight int
	closed   bool
	written  int64
	retries  int64
	dropped  int64

	wake    chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	started bool
}

// New creates a persister. Writes queue up until Start is called.
func New(store domain.StatsStore, accountID string, cfg Config, log zerolog.Logger) *Persister {
	def := DefaultConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Persister{
		store:     store,
		accountID: accountID,
		cfg:       cfg,
		log:       log.With().Str("component", "persist").Logger(),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the background writer. The writer stops when ctx is
// cancelled or Close is called.
func (p *Persister) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	go p.run(ctx)
	p.signal()
}

// SaveSnapshot replaces any pending snapshot with s. Never blocks.
func (p *Persister) SaveSnapshot(s domain.UserStats) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warn().Err(domain.ErrPersistQueueClosed).Msg("snapshot discarded")
		return
	}
	p.snapshot = &s
	p.stale = nil
	p.mu.Unlock()
	p.signal()
}

// AppendSession queues a session record. Never blocks; past QueueSize the
// oldest queued record is dropped.
func (p *Persister) AppendSession(rec domain.SessionRecord) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.log.Warn().Err(domain.ErrPersistQueueClosed).Str("session", rec.ID).Msg("session discarded")
		return
	}
	if len(p.sessions) >= p.cfg.QueueSize {
		lost := p.sessions[0]
		p.sessions = p.sessions[1:]
		p.dropped++
		p.log.Error().Str("session", lost.ID).Msg("session queue full, dropping oldest")
	}
	p.sessions = append(p.sessions, rec)
	p.mu.Unlock()
	p.signal()
}

// Flush blocks until every queued write has been attempted or ctx ends.
func (p *Persister) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if p.pending() == 0 {
			return nil
		}
		p.signal()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close flushes what it can within ctx, then stops the writer. Later
// writes are discarded with ErrPersistQueueClosed. Closing a persister
// that was never started discards whatever is queued.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	var err error
	if started {
		err = p.Flush(ctx)
	}

	p.mu.Lock()
	p.closed = true
	cancel := p.cancel
	stale := p.stale != nil
	p.mu.Unlock()

	if stale {
		p.log.Warn().Msg("closing with an unwritten stats snapshot")
	}

	if started {
		cancel()
		<-p.done
	}
	return err
}

// Stats returns current counters.
func (p *Persister) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Pending: p.pendingLocked(),
		Written: p.written,
		Retries: p.retries,
		Dropped: p.dropped,
		Stale:   p.stale != nil,
	}
}

// Backlog returns the number of writes not yet stored, counting a held
// snapshot.
func (p *Persister) Backlog() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.pendingLocked()
	if p.stale != nil {
		n++
	}
	return n
}

func (p *Persister) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingLocked()
}

func (p *Persister) pendingLocked() int {
	n := len(p.sessions) + p.inflight
	if p.snapshot != nil {
		n++
	}
	return n
}

func (p *Persister) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// ─── Worker ─────────────────────────────────────────────────────────────────

func (p *Persister) run(ctx context.Context) {
	defer close(p.done)
	var retry <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-retry:
			retry = nil
			p.requeueStale()
		}
		p.drain(ctx)
		if retry == nil && p.hasStale() {
			retry = time.After(p.cfg.MaxDelay)
		}
	}
}

// requeueStale moves a held snapshot back into the queue unless a newer
// one got there first.
func (p *Persister) requeueStale() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stale != nil && p.snapshot == nil {
		p.snapshot = p.stale
	}
	p.stale = nil
}

func (p *Persister) hasStale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stale != nil
}

// drain writes batches until nothing is pending. Sessions are written
// before the snapshot that follows them.
func (p *Persister) drain(ctx context.Context) {
	for {
		p.mu.Lock()
		sessions := p.sessions
		snap := p.snapshot
		p.sessions = nil
		p.snapshot = nil
		p.inflight = len(sessions)
		if snap != nil {
			p.inflight++
		}
		p.mu.Unlock()
		metrics.PersistBacklog.Set(float64(p.Backlog()))

		if len(sessions) == 0 && snap == nil {
			return
		}

		for _, rec := range sessions {
			p.write(ctx, "session", func(ctx context.Context) error {
				return p.store.AppendSession(ctx, rec)
			})
			p.settle()
		}
		if snap != nil {
			ok := p.write(ctx, "stats", func(ctx context.Context) error {
				return p.store.SaveStats(ctx, p.accountID, *snap)
			})
			if !ok {
				p.hold(snap)
			}
			p.settle()
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// hold keeps a failed snapshot for the next retry. A newer pending
// snapshot makes it obsolete.
func (p *Persister) hold(snap *domain.UserStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snapshot == nil && !p.closed {
		p.stale = snap
		p.log.Warn().Dur("retry_in", p.cfg.MaxDelay).Msg("stats snapshot held for retry")
	}
}

func (p *Persister) settle() {
	p.mu.Lock()
	if p.inflight > 0 {
		p.inflight--
	}
	p.mu.Unlock()
}

// write runs op with retries. A write that still fails after MaxRetries
// is logged and dropped. Reports whether op succeeded.
func (p *Persister) write(ctx context.Context, op string, fn func(context.Context) error) bool {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			metrics.PersistWrites.WithLabelValues(op).Inc()
			p.mu.Lock()
			p.written++
			p.mu.Unlock()
			return true
		}
		metrics.PersistFailures.WithLabelValues(op).Inc()

		if attempt >= p.cfg.MaxRetries || ctx.Err() != nil {
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
			p.log.Error().Err(err).Str("op", op).Int("attempts", attempt+1).Msg("write dropped")
			return false
		}

		delay := p.cfg.Backoff(attempt + 1)
		p.log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("write failed")
		p.mu.Lock()
		p.retries++
		p.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
			return false
		case <-timer.C:
		}
	}
}
