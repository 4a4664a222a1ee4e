package aggregator

import (
	"sort"
	"sync"
	"time"

	"indodax_bot/internal/models"
)

// TickBuffer is a bounded, time-windowed tick queue. Ticks are deduplicated
// by exchange trade id and evicted once they fall behind the retention
// cutoff, so the buffer never grows past one strategy lookback of history.
type TickBuffer struct {
	mu        sync.Mutex
	ticks     []models.Tick
	seen      map[string]struct{}
	retention time.Duration
	maxSize   int
}

func NewTickBuffer(retention time.Duration, maxSize int) *TickBuffer {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &TickBuffer{
		seen:      make(map[string]struct{}),
		retention: retention,
		maxSize:   maxSize,
	}
}

// Add merges a batch of ticks into the buffer and returns how many were new.
// Already-seen trade ids are ignored.
func (b *TickBuffer) Add(batch []models.Tick, now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := 0
	for _, t := range batch {
		if t.TradeID == "" {
			continue
		}
		if _, ok := b.seen[t.TradeID]; ok {
			continue
		}
		b.seen[t.TradeID] = struct{}{}
		b.ticks = append(b.ticks, t)
		added++
	}

	if added > 0 {
		sort.Slice(b.ticks, func(i, j int) bool {
			return b.ticks[i].Timestamp < b.ticks[j].Timestamp
		})
	}

	b.evictLocked(now)
	return added
}

// Snapshot returns a copy of the buffered ticks in timestamp order.
func (b *TickBuffer) Snapshot() []models.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Tick, len(b.ticks))
	copy(out, b.ticks)
	return out
}

func (b *TickBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ticks)
}

func (b *TickBuffer) evictLocked(now time.Time) {
	cutoff := now.Add(-b.retention).Unix()
	keep := b.ticks[:0]
	for _, t := range b.ticks {
		if t.Timestamp >= cutoff {
			keep = append(keep, t)
		} else {
			delete(b.seen, t.TradeID)
		}
	}
	b.ticks = keep

	// Hard cap: drop oldest if the window alone did not bound the buffer.
	if len(b.ticks) > b.maxSize {
		drop := len(b.ticks) - b.maxSize
		for _, t := range b.ticks[:drop] {
			delete(b.seen, t.TradeID)
		}
		b.ticks = append(b.ticks[:0], b.ticks[drop:]...)
	}
}
