package engagement

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyquest/studyquest/internal/domain"
	"github.com/studyquest/studyquest/internal/infra/metrics"
)

// autoDismiss is the suggested on-screen time per tier.
var autoDismiss = map[domain.RewardTier]time.Duration{
	domain.TierNone:      3 * time.Second,
	domain.TierCommon:    3 * time.Second,
	domain.TierUncommon:  4 * time.Second,
	domain.TierRare:      5 * time.Second,
	domain.TierEpic:      7 * time.Second,
	domain.TierLegendary: 10 * time.Second,
}

// AutoDismissFor returns the suggested display time for a tier.
func AutoDismissFor(tier domain.RewardTier) time.Duration {
	if d, ok := autoDismiss[tier]; ok {
		return d
	}
	return 3 * time.Second
}

// RewardQueue is the FIFO of reward events awaiting display.
// The presentation loop pulls the head; the engine never waits on it.
type RewardQueue struct {
	mu       sync.Mutex
	events   []domain.RewardEvent
	capacity int // 0 = unbounded
	dropped  int64

	subs   map[int]chan domain.RewardEvent
	nextID int
}

// NewRewardQueue creates a queue. capacity 0 means unbounded.
func NewRewardQueue(capacity int) *RewardQueue {
	return &RewardQueue{
		capacity: capacity,
		subs:     make(map[int]chan domain.RewardEvent),
	}
}

// Enqueue appends events in order. It never blocks.
// Missing IDs, timestamps, and dismiss delays are filled in.
func (q *RewardQueue) Enqueue(events ...domain.RewardEvent) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Now()
		}
		if ev.AutoDismiss == 0 {
			ev.AutoDismiss = AutoDismissFor(ev.Tier)
		}
		if q.capacity > 0 && len(q.events) >= q.capacity {
			q.evictLocked()
		}
		q.events = append(q.events, ev)

		for _, ch := range q.subs {
			select {
			case ch <- ev:
			default:
				// Slow subscriber; the queue itself is authoritative.
			}
		}
	}
	metrics.RewardQueueDepth.Set(float64(len(q.events)))
}

// evictLocked drops the oldest low-tier event, or the oldest event.
func (q *RewardQueue) evictLocked() {
	victim := 0
	for i, ev := range q.events {
		if ev.Tier == domain.TierCommon || ev.Tier == domain.TierNone {
			victim = i
			break
		}
	}
	q.events = append(q.events[:victim], q.events[victim+1:]...)
	q.dropped++
}

// Peek returns the head without removing it.
func (q *RewardQueue) Peek() (domain.RewardEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return domain.RewardEvent{}, false
	}
	return q.events[0], true
}

// Next removes and returns the head.
func (q *RewardQueue) Next() (domain.RewardEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return domain.RewardEvent{}, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	metrics.RewardQueueDepth.Set(float64(len(q.events)))
	return ev, true
}

// Dismiss removes the event with the given ID wherever it sits.
func (q *RewardQueue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, ev := range q.events {
		if ev.ID == id {
			q.events = append(q.events[:i], q.events[i+1:]...)
			metrics.RewardQueueDepth.Set(float64(len(q.events)))
			return true
		}
	}
	return false
}

// Pending returns a copy of all queued events in order.
func (q *RewardQueue) Pending() []domain.RewardEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.RewardEvent, len(q.events))
	copy(out, q.events)
	return out
}

// Len returns the number of queued events.
func (q *RewardQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events were evicted by the capacity limit.
func (q *RewardQueue) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Subscribe returns a channel that receives every event enqueued from now
// on, and a cancel func that closes it.
func (q *RewardQueue) Subscribe(buffer int) (<-chan domain.RewardEvent, func()) {
	_, ch, cancel := q.subscribe(buffer, false)
	return ch, cancel
}

// SubscribeWithPending is Subscribe plus a copy of the queue taken at the
// moment the subscription starts. Each event is in exactly one of the two.
func (q *RewardQueue) SubscribeWithPending(buffer int) ([]domain.RewardEvent, <-chan domain.RewardEvent, func()) {
	return q.subscribe(buffer, true)
}

func (q *RewardQueue) subscribe(buffer int, snapshot bool) ([]domain.RewardEvent, <-chan domain.RewardEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.RewardEvent, buffer)

	var pending []domain.RewardEvent
	q.mu.Lock()
	if snapshot {
		pending = make([]domain.RewardEvent, len(q.events))
		copy(pending, q.events)
	}
	id := q.nextID
	q.nextID++
	q.subs[id] = ch
	q.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subs, id)
			q.mu.Unlock()
			close(ch)
		})
	}
	return pending, ch, cancel
}
