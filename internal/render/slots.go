package render

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Slots bounds how many browser sessions run at once in a long-lived
// process. Each slot still gets its own browser.
type Slots struct {
	sem      *semaphore.Weighted
	capacity int64
	inUse    atomic.Int64

	succeeded atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	mu       sync.Mutex
	lastDone time.Time
}

// SlotStats is a point-in-time view of Slots.
type SlotStats struct {
	Capacity  int64     `json:"capacity"`
	InUse     int64     `json:"in_use"`
	Idle      int64     `json:"idle"`
	Succeeded int64     `json:"succeeded"`
	Failed    int64     `json:"failed"`
	Rejected  int64     `json:"rejected"`
	LastDone  time.Time `json:"last_done"`
}

// NewSlots returns Slots with room for n concurrent renders.
func NewSlots(n int64) *Slots {
	if n <= 0 {
		n = 1
	}
	return &Slots{sem: semaphore.NewWeighted(n), capacity: n}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func records whether the render succeeded.
func (s *Slots) Acquire(ctx context.Context) (release func(ok bool), err error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.rejected.Add(1)
		return nil, err
	}
	s.inUse.Add(1)

	var once sync.Once
	return func(ok bool) {
		once.Do(func() {
			if ok {
				s.succeeded.Add(1)
			} else {
				s.failed.Add(1)
			}
			s.mu.Lock()
			s.lastDone = time.Now()
			s.mu.Unlock()
			s.inUse.Add(-1)
			s.sem.Release(1)
		})
	}, nil
}

// Stats reports current usage and outcome totals.
func (s *Slots) Stats() SlotStats {
	inUse := s.inUse.Load()
	s.mu.Lock()
	last := s.lastDone
	s.mu.Unlock()
	return SlotStats{
		Capacity:  s.capacity,
		InUse:     inUse,
		Idle:      s.capacity - inUse,
		Succeeded: s.succeeded.Load(),
		Failed:    s.failed.Load(),
		Rejected:  s.rejected.Load(),
		LastDone:  last,
	}
}
