package vehicle

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Registry owns every live Track, keyed by tracker identifier. Like Track it
// has a single writer and no locking.
type Registry struct {
	interval      int
	scalingFactor float64
	ttl           time.Duration
	tracks        map[int]*Track
}

// NewRegistry builds an empty registry. Tracks not detected for ttl of
// stream time are dropped by EvictStale; a ttl of 0 keeps them forever.
func NewRegistry(interval int, scalingFactor float64, ttl time.Duration) *Registry {
	return &Registry{
		interval:      interval,
		scalingFactor: scalingFactor,
		ttl:           ttl,
		tracks:        make(map[int]*Track),
	}
}

// Observe returns the track for id, creating it on first use.
func (r *Registry) Observe(id int) *Track {
	t, ok := r.tracks[id]
	if !ok {
		t = NewTrack(id, r.interval, r.scalingFactor)
		r.tracks[id] = t
	}
	return t
}

// Get returns the track for id, or nil.
func (r *Registry) Get(id int) *Track {
	return r.tracks[id]
}

// Len is the number of live tracks.
func (r *Registry) Len() int { return len(r.tracks) }

// IDs returns the live identifiers in ascending order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.tracks))
	for id := range r.tracks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// EvictStale removes tracks whose last detection is more than the TTL
// before now and returns the evicted identifiers in ascending order.
func (r *Registry) EvictStale(now time.Duration) []int {
	if r.ttl <= 0 {
		return nil
	}
	var evicted []int
	for id, t := range r.tracks {
		if now-t.LastSeen() > r.ttl {
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		delete(r.tracks, id)
	}
	sort.Ints(evicted)
	return evicted
}

// Summary is a read-only view of a track for reporting.
type Summary struct {
	ID           int            `json:"id"`
	State        State          `json:"state"`
	Speed        float64        `json:"speed"`
	MeanSpeed    float64        `json:"mean_speed"`
	PeakSpeed    float64        `json:"peak_speed"`
	Readings     int            `json:"readings"`
	Detections   int            `json:"detections"`
	Inside       bool           `json:"inside"`
	FirstSeenSec float64        `json:"first_seen_s"`
	LastSeenSec  float64        `json:"last_seen_s"`
	History      []SpeedReading `json:"-"`
}

// Summarize computes the Summary of a single track.
func Summarize(t *Track) Summary {
	s := Summary{
		ID:           t.ID,
		State:        t.State(),
		Speed:        t.speed,
		Readings:     len(t.readings),
		Detections:   len(t.detections),
		FirstSeenSec: t.firstSeen.Seconds(),
		LastSeenSec:  t.lastSeen.Seconds(),
		History:      t.Readings(),
	}
	if last, ok := t.Last(); ok {
		s.Inside = last.Inside
	}
	if len(t.readings) > 0 {
		speeds := make([]float64, len(t.readings))
		for i, rd := range t.readings {
			speeds[i] = rd.Speed
			if rd.Speed > s.PeakSpeed {
				s.PeakSpeed = rd.Speed
			}
		}
		s.MeanSpeed = stat.Mean(speeds, nil)
	}
	return s
}

// Summaries returns a Summary for every live track, ordered by identifier.
func (r *Registry) Summaries() []Summary {
	ids := r.IDs()
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, Summarize(r.tracks[id]))
	}
	return out
}
