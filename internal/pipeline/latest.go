package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/vehicle"
)

// TrackView is a track summary with its current classification. Class is
// empty for tracks outside the region.
type TrackView struct {
	vehicle.Summary
	Class Class `json:"class,omitempty"`
}

// Snapshot is one published frame and the track state after it.
type Snapshot struct {
	Seq        uint64
	FrameIndex int
	Timestamp  time.Duration
	JPEG       []byte
	Tracks     []TrackView
}

// Latest is a single-slot handoff from the orchestrator to readers. Publish
// never blocks on readers; readers that fall behind skip frames.
type Latest struct {
	mu      sync.Mutex
	snap    *Snapshot
	seq     uint64
	changed chan struct{}
}

// NewLatest creates an empty slot.
func NewLatest() *Latest {
	return &Latest{changed: make(chan struct{})}
}

// Publish replaces the slot contents and wakes waiting readers. It returns
// the sequence number assigned to s.
func (l *Latest) Publish(s Snapshot) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	s.Seq = l.seq
	l.snap = &s
	close(l.changed)
	l.changed = make(chan struct{})
	return s.Seq
}

// Load returns the most recent snapshot, if any.
func (l *Latest) Load() (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.snap == nil {
		return Snapshot{}, false
	}
	return *l.snap, true
}

// Wait blocks until a snapshot newer than after is published or ctx ends.
func (l *Latest) Wait(ctx context.Context, after uint64) (Snapshot, error) {
	for {
		l.mu.Lock()
		if l.snap != nil && l.snap.Seq > after {
			s := *l.snap
			l.mu.Unlock()
			return s, nil
		}
		ch := l.changed
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}
