// Package events implements the in-process change feed that replaces a
// hosted realtime channel: mutations publish the table they touched,
// subscribers receive coalesced batches of table names and refetch.
package events

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultCoalesceWindow is how long a subscriber waits after the first
// pending change before delivering, so bursts (a posting touches three
// or four tables, row by row) arrive as one batch instead of many.
const DefaultCoalesceWindow = 200 * time.Millisecond

// Bus fans table-change notifications out to subscribers.
// Publish never blocks, however slow a subscriber is.
type Bus struct {
	// CoalesceWindow overrides the batching delay; zero means default.
	CoalesceWindow time.Duration

	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscriber]struct{})}
}

// Publish records a change to one or more tables on every subscriber.
func (b *Bus) Publish(tables ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		s.mu.Lock()
		for _, table := range tables {
			s.pending[table] = struct{}{}
		}
		s.mu.Unlock()

		select {
		case s.signal <- struct{}{}:
		default:
			// Already signaled; the pending set carries the rest.
		}
	}
}

// Subscribe registers a new subscriber. Callers must Close it.
func (b *Bus) Subscribe() *Subscriber {
	s := &Subscriber{
		bus:     b,
		pending: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	return s
}

func (b *Bus) window() time.Duration {
	if b.CoalesceWindow > 0 {
		return b.CoalesceWindow
	}
	return DefaultCoalesceWindow
}

// Subscriber receives coalesced table-change batches from a Bus.
type Subscriber struct {
	bus    *Bus
	signal chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
}

// Wait blocks until at least one change is pending, then waits out the
// coalescing window and returns the sorted set of changed tables.
// It returns ctx.Err() when the context ends first.
func (s *Subscriber) Wait(ctx context.Context) ([]string, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.signal:
		}

		timer := time.NewTimer(s.bus.window())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		s.mu.Lock()
		tables := make([]string, 0, len(s.pending))
		for table := range s.pending {
			tables = append(tables, table)
		}
		s.pending = make(map[string]struct{})
		s.mu.Unlock()

		// A signal whose tables were already delivered in an earlier
		// batch leaves nothing pending; wait for the next change.
		if len(tables) == 0 {
			continue
		}

		sort.Strings(tables)
		return tables, nil
	}
}

// Close removes the subscriber from the bus.
func (s *Subscriber) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
}
