// Package evidence keeps a sliding window of recently rendered frames and
// writes it out, grouped by track, when a vehicle is caught speeding.
//
// The window is shared by every track in the session. A flush therefore
// stores the most recent frames overall under the violating track's
// identifier, not that vehicle's own history.
package evidence

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/vehicle"
)

// ErrEmptyBuffer is returned by Flush when there is nothing to store.
var ErrEmptyBuffer = errors.New("evidence buffer is empty")

// Frame is one rendered frame, already JPEG encoded. JPEG must not be
// modified once appended.
type Frame struct {
	Index int
	JPEG  []byte
}

// Buffer is a fixed-capacity FIFO of frames. Appending past capacity drops
// the oldest frame. It is owned by the orchestrator and is not safe for
// concurrent use.
type Buffer struct {
	frames []Frame
	start  int
	n      int
}

// NewBuffer creates an empty buffer holding at most capacity frames
// (minimum 1).
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{frames: make([]Frame, capacity)}
}

// Append adds f, evicting the oldest frame when full. It reports whether a
// frame was evicted.
func (b *Buffer) Append(f Frame) bool {
	c := len(b.frames)
	if b.n < c {
		b.frames[(b.start+b.n)%c] = f
		b.n++
		return false
	}
	b.frames[b.start] = f
	b.start = (b.start + 1) % c
	return true
}

// Snapshot returns the buffered frames, oldest first.
func (b *Buffer) Snapshot() []Frame {
	out := make([]Frame, b.n)
	for i := range out {
		out[i] = b.frames[(b.start+i)%len(b.frames)]
	}
	return out
}

// Len is the number of buffered frames.
func (b *Buffer) Len() int { return b.n }

// Cap is the buffer capacity.
func (b *Buffer) Cap() int { return len(b.frames) }

// Trigger identifies the violation that caused a flush.
type Trigger struct {
	TrackID int
	// FrameOffset is the index of the frame being processed; stored frame i
	// is named FrameOffset+i.
	FrameOffset int
	Speed       float64
	History     []vehicle.SpeedReading
}

// Capture is a flushed evidence window.
type Capture struct {
	ID          uuid.UUID
	TrackID     int
	FrameOffset int
	Speed       float64
	Frames      []Frame
	History     []vehicle.SpeedReading
	CreatedAt   time.Time
}

// Store persists captures.
type Store interface {
	Save(Capture) error
}

// Flush snapshots the window and hands it to store. The buffer itself is
// left untouched.
func (b *Buffer) Flush(store Store, trig Trigger) (Capture, error) {
	if b.n == 0 {
		return Capture{}, ErrEmptyBuffer
	}
	c := Capture{
		ID:          uuid.New(),
		TrackID:     trig.TrackID,
		FrameOffset: trig.FrameOffset,
		Speed:       trig.Speed,
		Frames:      b.Snapshot(),
		History:     trig.History,
		CreatedAt:   time.Now().UTC(),
	}
	return c, store.Save(c)
}
