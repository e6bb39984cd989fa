package render

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlotsAcquireReleaseAndStats(t *testing.T) {
	s := NewSlots(2)

	r1, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if st := s.Stats(); st.InUse != 1 || st.Idle != 1 || st.Capacity != 2 {
		t.Fatalf("unexpected stats after acquire: %+v", st)
	}

	r1(true)
	r1(false) // second call is a no-op
	st := s.Stats()
	if st.InUse != 0 || st.Succeeded != 1 || st.Failed != 0 {
		t.Fatalf("unexpected stats after release: %+v", st)
	}
	if st.LastDone.IsZero() {
		t.Fatalf("expected last_done to be set")
	}
}

func TestSlotsAcquireTimesOutWhenFull(t *testing.T) {
	s := NewSlots(1)
	release, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if s.Stats().Rejected != 1 {
		t.Fatalf("expected one rejected acquire")
	}
}

func TestNewSlots_ClampsCapacity(t *testing.T) {
	if got := NewSlots(0).Stats().Capacity; got != 1 {
		t.Fatalf("expected capacity 1, got %d", got)
	}
}
