package source

import (
	"context"
	"sync"
	"time"

	"github.com/querie/querie/internal/domain"
)

// Pacer serializes outbound calls per provider across all concurrent
// queries. Each Wait reserves the next send slot under the lock, so two
// requests hitting the same provider at once cannot burst past its limit.
// This is strict pacing with no burst allowance, not a token bucket.
type Pacer struct {
	mu   sync.Mutex
	next map[domain.Source]time.Time
}

// NewPacer creates a process-wide provider pacer.
func NewPacer() *Pacer {
	return &Pacer{next: make(map[domain.Source]time.Time)}
}

// Wait blocks until the provider's next send slot. delay is the provider's
// minimum inter-request interval. Returns ctx.Err() if the context ends
// first; the reserved slot is kept either way, which errs on the side of
// politeness.
func (p *Pacer) Wait(ctx context.Context, src domain.Source, delay time.Duration) error {
	p.mu.Lock()
	now := time.Now()
	slot := p.next[src]
	if slot.Before(now) {
		slot = now
	}
	p.next[src] = slot.Add(delay)
	p.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
