package credential

import (
	"context"
	"sort"
	"sync"
	"time"
)

// LocalPool is an in-memory, mutex-guarded Pool for single-instance
// deployments and tests. It mirrors the allocate/release/sweep
// algorithm the Redis-backed Pool implements with a Lua script, minus
// the cross-instance coordination.
type LocalPool struct {
	mu          sync.Mutex
	totalKeys   int
	maxPerKey   int
	ttl         time.Duration
	assignments map[string]assignment // meetingID -> assignment
	now         func() time.Time
}

type assignment struct {
	index     int
	expiresAt time.Time
}

// NewLocalPool constructs a LocalPool with totalKeys credentials, each
// capped at maxPerKey concurrent meetings, and ttl per assignment.
func NewLocalPool(totalKeys, maxPerKey int, ttl time.Duration) *LocalPool {
	return &LocalPool{
		totalKeys:   totalKeys,
		maxPerKey:   maxPerKey,
		ttl:         ttl,
		assignments: make(map[string]assignment),
		now:         time.Now,
	}
}

func (p *LocalPool) sweepLocked() {
	now := p.now()
	for id, a := range p.assignments {
		if !a.expiresAt.After(now) {
			delete(p.assignments, id)
		}
	}
}

func (p *LocalPool) loadLocked() map[int]int {
	load := make(map[int]int, p.totalKeys)
	for i := 0; i < p.totalKeys; i++ {
		load[i] = 0
	}
	for _, a := range p.assignments {
		load[a.index]++
	}
	return load
}

// Allocate is idempotent: a meeting already assigned gets its
// existing index back, with its TTL refreshed.
func (p *LocalPool) Allocate(ctx context.Context, meetingID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()

	if a, ok := p.assignments[meetingID]; ok {
		a.expiresAt = p.now().Add(p.ttl)
		p.assignments[meetingID] = a
		return a.index, nil
	}

	load := p.loadLocked()
	candidates := make([]int, 0, p.totalKeys)
	for i := 0; i < p.totalKeys; i++ {
		if load[i] < p.maxPerKey {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, ErrExhausted
	}
	sort.Slice(candidates, func(i, j int) bool {
		li, lj := load[candidates[i]], load[candidates[j]]
		if li != lj {
			return li < lj
		}
		return candidates[i] < candidates[j]
	})
	chosen := candidates[0]
	p.assignments[meetingID] = assignment{index: chosen, expiresAt: p.now().Add(p.ttl)}
	return chosen, nil
}

func (p *LocalPool) Release(ctx context.Context, meetingID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.assignments[meetingID]; !ok {
		return false, nil
	}
	delete(p.assignments, meetingID)
	return true, nil
}

func (p *LocalPool) Status(ctx context.Context) ([]Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()
	load := p.loadLocked()
	out := make([]Status, p.totalKeys)
	for i := 0; i < p.totalKeys; i++ {
		out[i] = Status{Index: i, Meetings: load[i], Available: load[i] < p.maxPerKey}
	}
	return out, nil
}
