package vehicle

import (
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/detection"
)

var box = detection.BBox{X1: 10, Y1: 10, X2: 50, Y2: 40}

// diag returns a plane diagonal whose midpoint is (x, y).
func diag(x, y float64) [2]r2.Point {
	return [2]r2.Point{{X: x - 1, Y: y - 1}, {X: x + 1, Y: y + 1}}
}

func TestTrack_SpeedFromTwoSamples(t *testing.T) {
	t.Parallel()
	tr := NewTrack(1, 1, 3.4)

	speed, recomputed := tr.Detected(0.9, box, true, diag(1, 1), 0)
	assert.True(t, recomputed)
	assert.Zero(t, speed)
	assert.Equal(t, Cold, tr.State())

	speed, recomputed = tr.Detected(0.9, box, true, diag(4, 1), time.Second)
	assert.True(t, recomputed)
	assert.InDelta(t, 10.2, speed, 1e-9)
	assert.Equal(t, Warm, tr.State())
	require.Len(t, tr.Readings(), 1)
	assert.InDelta(t, 10.2, tr.Readings()[0].Speed, 1e-9)
}

func TestTrack_IntervalGating(t *testing.T) {
	t.Parallel()
	const interval = 25
	tr := NewTrack(7, interval, 3.4)

	frame := func(i int) time.Duration { return time.Duration(i) * 40 * time.Millisecond }

	// First sampling window: nothing fires until the interval-th call.
	for i := 0; i < interval-1; i++ {
		speed, recomputed := tr.Detected(0.8, box, true, diag(float64(i), 0), frame(i))
		assert.False(t, recomputed, "call %d", i)
		assert.Zero(t, speed)
	}
	speed, recomputed := tr.Detected(0.8, box, true, diag(float64(interval-1), 0), frame(interval-1))
	assert.True(t, recomputed)
	assert.Zero(t, speed, "a single speed sample cannot produce a speed")
	assert.Len(t, tr.SpeedSamples(), 1)

	// Second window produces a positive speed at its last call.
	for i := interval; i < 2*interval-1; i++ {
		_, recomputed = tr.Detected(0.8, box, true, diag(float64(i), 0), frame(i))
		assert.False(t, recomputed)
	}
	speed, recomputed = tr.Detected(0.8, box, false, diag(float64(2*interval-1), 0), frame(2*interval-1))
	assert.True(t, recomputed)
	assert.Greater(t, speed, 0.0)
	// 25 plane units in 1 s.
	assert.InDelta(t, 25*3.4, speed, 1e-9)
	assert.Len(t, tr.Detections(), 2*interval)
}

func TestTrack_ZeroElapsedKeepsSpeed(t *testing.T) {
	t.Parallel()
	tr := NewTrack(2, 1, 3.4)
	tr.Detected(0.9, box, true, diag(0, 0), 0)
	before, _ := tr.Detected(0.9, box, true, diag(3, 0), time.Second)
	require.InDelta(t, 10.2, before, 1e-9)

	after, recomputed := tr.Detected(0.9, box, true, diag(30, 0), time.Second)
	assert.True(t, recomputed)
	assert.Equal(t, before, after)
	assert.Len(t, tr.Readings(), 1)
}

func TestTrack_BackwardsTimeKeepsSpeed(t *testing.T) {
	t.Parallel()
	tr := NewTrack(2, 1, 3.4)
	tr.Detected(0.9, box, true, diag(0, 0), 2*time.Second)
	speed, _ := tr.Detected(0.9, box, true, diag(3, 0), time.Second)
	assert.Zero(t, speed)
	assert.Equal(t, Warm, tr.State())
}

func TestTrack_CalculateSpeedUndefined(t *testing.T) {
	t.Parallel()
	tr := NewTrack(3, 1, 3.4)
	tr.speedSamples = []SpeedSample{{Timestamp: time.Second, Plane: diag(0, 0)}, {Timestamp: time.Second, Plane: diag(1, 0)}}
	_, err := tr.calculateSpeed()
	assert.ErrorIs(t, err, ErrSpeedUndefined)
}

func TestTrack_LastAndSeen(t *testing.T) {
	t.Parallel()
	tr := NewTrack(4, 5, 3.4)
	_, ok := tr.Last()
	assert.False(t, ok)

	tr.Detected(0.5, box, false, diag(0, 0), 3*time.Second)
	tr.Detected(0.6, box, true, diag(0, 0), 4*time.Second)
	last, ok := tr.Last()
	require.True(t, ok)
	assert.Equal(t, 0.6, last.Confidence)
	assert.True(t, last.Inside)
	assert.Equal(t, 4*time.Second, tr.LastSeen())
}

func TestNewTrack_ClampsInterval(t *testing.T) {
	t.Parallel()
	tr := NewTrack(1, 0, 1)
	_, recomputed := tr.Detected(1, box, true, diag(0, 0), 0)
	assert.True(t, recomputed)
}
