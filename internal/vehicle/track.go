// Package vehicle holds per-vehicle speed state: one Track per tracker
// identifier, sampled every N detections, owned by a Registry.
package vehicle

import (
	"errors"
	"math"
	"time"

	"github.com/golang/geo/r2"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/detection"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
)

// ErrSpeedUndefined is returned by calculateSpeed when the two most recent
// speed samples cannot produce a finite speed, usually because they share a
// timestamp. It never leaves the package.
var ErrSpeedUndefined = errors.New("speed undefined")

// State is the lifecycle state of a track.
type State string

const (
	Cold State = "cold" // fewer than two speed samples, no speed yet
	Warm State = "warm" // speed valid, refreshed at each sampling event
)

// DetectionSample is one observation of the track.
type DetectionSample struct {
	Confidence float64
	Box        detection.BBox
	Inside     bool
	Plane      [2]r2.Point
	Timestamp  time.Duration
}

// SpeedSample is the plane-mapped box diagonal recorded when the sampling
// counter fires.
type SpeedSample struct {
	Timestamp time.Duration
	Plane     [2]r2.Point
}

// SpeedReading is a computed speed and the stream time it was computed at.
type SpeedReading struct {
	Timestamp time.Duration
	Speed     float64
}

// Track accumulates detections for one tracker identifier. It is not safe
// for concurrent use; the orchestrator is its only writer.
type Track struct {
	ID int

	interval      int
	scalingFactor float64

	counter      int
	detections   []DetectionSample
	speedSamples []SpeedSample
	readings     []SpeedReading
	speed        float64
	firstSeen    time.Duration
	lastSeen     time.Duration
}

// NewTrack creates a cold track. An interval below 1 samples every detection.
func NewTrack(id, interval int, scalingFactor float64) *Track {
	if interval < 1 {
		interval = 1
	}
	return &Track{ID: id, interval: interval, scalingFactor: scalingFactor}
}

// Detected records one detection. When the sampling counter reaches the
// interval the plane coordinates become a speed sample and, given two or
// more samples, the speed is recomputed. recomputed reports that the
// counter fired on this call.
func (t *Track) Detected(conf float64, box detection.BBox, inside bool, plane [2]r2.Point, ts time.Duration) (speed float64, recomputed bool) {
	if len(t.detections) == 0 {
		t.firstSeen = ts
	}
	t.lastSeen = ts
	t.detections = append(t.detections, DetectionSample{
		Confidence: conf,
		Box:        box,
		Inside:     inside,
		Plane:      plane,
		Timestamp:  ts,
	})

	t.counter++
	if t.counter < t.interval {
		return t.speed, false
	}
	t.counter = 0
	t.speedSamples = append(t.speedSamples, SpeedSample{Timestamp: ts, Plane: plane})

	if len(t.speedSamples) >= 2 {
		v, err := t.calculateSpeed()
		if err != nil {
			monitoring.Debugf("[vehicle] track %d: %v, keeping %.2f", t.ID, err, t.speed)
		} else {
			t.speed = v
			t.readings = append(t.readings, SpeedReading{Timestamp: ts, Speed: v})
		}
	}
	return t.speed, true
}

// calculateSpeed uses the two most recent speed samples: distance between
// the diagonal midpoints over elapsed seconds, times the scaling factor.
func (t *Track) calculateSpeed() (float64, error) {
	n := len(t.speedSamples)
	prev, cur := t.speedSamples[n-2], t.speedSamples[n-1]

	elapsed := (cur.Timestamp - prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return 0, ErrSpeedUndefined
	}
	distance := midpoint(cur.Plane).Sub(midpoint(prev.Plane)).Norm()
	v := distance / elapsed * t.scalingFactor
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrSpeedUndefined
	}
	return v, nil
}

func midpoint(p [2]r2.Point) r2.Point {
	return p[0].Add(p[1]).Mul(0.5)
}

// Speed is the most recently computed speed, 0 while cold.
func (t *Track) Speed() float64 { return t.speed }

// State reports cold until two speed samples exist.
func (t *Track) State() State {
	if len(t.speedSamples) >= 2 {
		return Warm
	}
	return Cold
}

// Last returns the most recent detection sample.
func (t *Track) Last() (DetectionSample, bool) {
	if len(t.detections) == 0 {
		return DetectionSample{}, false
	}
	return t.detections[len(t.detections)-1], true
}

// LastSeen is the stream time of the most recent detection.
func (t *Track) LastSeen() time.Duration { return t.lastSeen }

// Detections returns a copy of the detection history.
func (t *Track) Detections() []DetectionSample {
	return append([]DetectionSample(nil), t.detections...)
}

// SpeedSamples returns a copy of the speed-sample history.
func (t *Track) SpeedSamples() []SpeedSample {
	return append([]SpeedSample(nil), t.speedSamples...)
}

// Readings returns a copy of every speed computed so far.
func (t *Track) Readings() []SpeedReading {
	return append([]SpeedReading(nil), t.readings...)
}
