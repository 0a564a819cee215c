// Package pipeline drives one frame at a time through containment, plane
// mapping, per-vehicle speed tracking, violation policy and evidence capture.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/golang/geo/r2"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/config"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/detection"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/evidence"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/plane"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/render"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/units"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/vehicle"
)

// ErrNoImage is returned for a frame without pixels.
var ErrNoImage = errors.New("frame has no image")

// Frame is one decoded frame at processing resolution and the detector's
// output for it. Index counts frames from the start of the stream and must
// not go backwards.
type Frame struct {
	Index      int
	Image      *image.RGBA
	Detections []detection.Detection
}

// TrackResult is what happened to one detection during ProcessFrame.
type TrackResult struct {
	TrackID    int
	Box        detection.BBox
	Inside     bool
	Speed      float64
	Recomputed bool
	Class      Class // empty when outside the region
}

// Result summarises one processed frame.
type Result struct {
	FrameIndex int
	Timestamp  time.Duration
	Tracks     []TrackResult
	Rejected   int
	Captures   []evidence.Capture
	Evicted    []int
	Seq        uint64
}

// Options wires an Orchestrator. Mask, Transform, Registry, Buffer and Store
// are required.
type Options struct {
	Mask      *region.Mask
	Transform *plane.Transform
	Registry  *vehicle.Registry
	Buffer    *evidence.Buffer
	Store     evidence.Store

	Limits              Limits
	FPS                 float64
	RepresentativePoint string // config.PointBottomCenter or config.PointCenter
	DisplayUnits        string
	JPEGQuality         int

	Latest  *Latest             // optional
	Metrics *monitoring.Metrics // optional
}

// Orchestrator owns all per-session mutable state. ProcessFrame must be
// called from a single goroutine.
type Orchestrator struct {
	opts    Options
	overlay *render.Overlay
	latest  *Latest
}

// New validates opts and prepares the region overlay.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Mask == nil:
		return nil, errors.New("pipeline: region mask is required")
	case opts.Transform == nil:
		return nil, errors.New("pipeline: plane transform is required")
	case opts.Registry == nil:
		return nil, errors.New("pipeline: track registry is required")
	case opts.Buffer == nil:
		return nil, errors.New("pipeline: evidence buffer is required")
	case opts.Store == nil:
		return nil, errors.New("pipeline: evidence store is required")
	case opts.FPS <= 0:
		return nil, fmt.Errorf("pipeline: fps must be positive, got %g", opts.FPS)
	}
	if opts.RepresentativePoint == "" {
		opts.RepresentativePoint = config.PointBottomCenter
	}
	if opts.DisplayUnits == "" {
		opts.DisplayUnits = units.KMPH
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = 85
	}
	latest := opts.Latest
	if latest == nil {
		latest = NewLatest()
	}
	return &Orchestrator{
		opts:    opts,
		overlay: render.NewOverlay(opts.Mask),
		latest:  latest,
	}, nil
}

// NewFromConfig builds the transform, registry and evidence buffer from cfg
// and wires them with the given region, store and metrics.
func NewFromConfig(cfg *config.Config, poly region.Polygon, store evidence.Store, latest *Latest, metrics *monitoring.Metrics) (*Orchestrator, error) {
	w, h := cfg.GetProcessingWidth(), cfg.GetProcessingHeight()
	quad := plane.ScaledQuad(cfg.GetSourceQuad(), cfg.GetReferenceWidth(), cfg.GetReferenceHeight(), w, h)
	tf, err := plane.New(quad, cfg.GetTargetWidth(), cfg.GetTargetHeight())
	if err != nil {
		return nil, err
	}
	mask := region.Build(w, h, poly)
	if mask.Empty() {
		monitoring.Logf("[pipeline] warning: region mask is empty, no violations will be detected")
	}
	return New(Options{
		Mask:                mask,
		Transform:           tf,
		Registry:            vehicle.NewRegistry(cfg.GetSamplingInterval(), cfg.GetScalingFactor(), cfg.GetTrackTTL()),
		Buffer:              evidence.NewBuffer(cfg.GetEvidenceCapacity()),
		Store:               store,
		Limits:              Limits{SpeedLimit: cfg.GetSpeedLimit(), FineSpeedLimit: cfg.GetFineSpeedLimit()},
		FPS:                 float64(cfg.GetFPS()),
		RepresentativePoint: cfg.GetRepresentativePoint(),
		DisplayUnits:        cfg.GetDisplayUnits(),
		JPEGQuality:         cfg.GetJPEGQuality(),
		Latest:              latest,
		Metrics:             metrics,
	})
}

// Latest is the slot snapshots are published to.
func (o *Orchestrator) Latest() *Latest { return o.latest }

// Registry exposes the track registry for tests and reporting. Callers
// must not use it concurrently with ProcessFrame.
func (o *Orchestrator) Registry() *vehicle.Registry { return o.opts.Registry }

// Timestamp converts a frame index to stream time.
func (o *Orchestrator) Timestamp(frameIndex int) time.Duration {
	return time.Duration(float64(frameIndex) / o.opts.FPS * float64(time.Second))
}

func (o *Orchestrator) representative(b detection.BBox) (int, int) {
	if o.opts.RepresentativePoint == config.PointCenter {
		return b.Center()
	}
	return b.BottomCenter()
}

func classColor(c Class) color.RGBA {
	switch c {
	case Violation:
		return render.ViolationColor
	case Warning:
		return render.WarningColor
	default:
		return render.NormalColor
	}
}

// ProcessFrame runs every detection of f through its track, applies the
// violation policy, renders the frame, appends it to the evidence window
// and publishes it. f.Image is drawn on in place.
func (o *Orchestrator) ProcessFrame(ctx context.Context, f Frame) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if f.Image == nil {
		return Result{}, ErrNoImage
	}
	start := time.Now()
	m := o.opts.Metrics
	ts := o.Timestamp(f.Index)
	res := Result{FrameIndex: f.Index, Timestamp: ts, Tracks: make([]TrackResult, 0, len(f.Detections))}

	for _, det := range f.Detections {
		if err := det.Validate(); err != nil {
			res.Rejected++
			monitoring.Debugf("[pipeline] frame %d: rejected detection: %v", f.Index, err)
			continue
		}

		x, y := o.representative(det.Box)
		inside := o.opts.Mask.Contains(x, y)
		mapped := o.opts.Transform.MapPoints(det.Box.Corners())
		corners := [2]r2.Point{mapped[0], mapped[1]}

		track := o.opts.Registry.Observe(det.TrackID)
		speed, recomputed := track.Detected(det.Confidence, det.Box, inside, corners, ts)
		tr := TrackResult{TrackID: det.TrackID, Box: det.Box, Inside: inside, Speed: speed, Recomputed: recomputed}

		if inside {
			tr.Class = Classify(speed, o.opts.Limits)
			render.Box(f.Image, det.Box, classColor(tr.Class), render.TrackLabel(det.TrackID, speed, o.opts.DisplayUnits))

			if tr.Class == Violation && recomputed {
				if m != nil {
					m.Violations.Inc()
				}
				o.flush(&res, track, f.Index, speed)
			}
		}
		res.Tracks = append(res.Tracks, tr)
	}

	o.overlay.Apply(f.Image)
	jpg, err := render.EncodeJPEG(f.Image, o.opts.JPEGQuality)
	if err != nil {
		return res, err
	}
	o.opts.Buffer.Append(evidence.Frame{Index: f.Index, JPEG: jpg})

	res.Evicted = o.opts.Registry.EvictStale(ts)
	if len(res.Evicted) > 0 {
		monitoring.Debugf("[pipeline] evicted tracks %v at %s", res.Evicted, ts)
	}

	res.Seq = o.latest.Publish(Snapshot{
		FrameIndex: f.Index,
		Timestamp:  ts,
		JPEG:       jpg,
		Tracks:     o.views(),
	})

	if m != nil {
		m.FramesProcessed.Inc()
		m.Detections.Add(float64(len(res.Tracks)))
		m.InvalidDetections.Add(float64(res.Rejected))
		m.TracksEvicted.Add(float64(len(res.Evicted)))
		m.ActiveTracks.Set(float64(o.opts.Registry.Len()))
		m.FrameProcessingSec.Observe(time.Since(start).Seconds())
	}
	return res, nil
}

func (o *Orchestrator) flush(res *Result, track *vehicle.Track, frameIndex int, speed float64) {
	m := o.opts.Metrics
	c, err := o.opts.Buffer.Flush(o.opts.Store, evidence.Trigger{
		TrackID:     track.ID,
		FrameOffset: frameIndex,
		Speed:       speed,
		History:     track.Readings(),
	})
	if err != nil {
		if m != nil {
			m.EvidenceErrors.Inc()
		}
		monitoring.Logf("[pipeline] track %d: evidence capture failed: %v", track.ID, err)
		return
	}
	res.Captures = append(res.Captures, c)
	if m != nil {
		m.EvidenceCaptures.Inc()
		m.EvidenceFrames.Add(float64(len(c.Frames)))
	}
	monitoring.Logf("[pipeline] track %d: violation at %s, %d frames captured",
		track.ID, units.Format(speed, o.opts.DisplayUnits), len(c.Frames))
}

func (o *Orchestrator) views() []TrackView {
	sums := o.opts.Registry.Summaries()
	out := make([]TrackView, len(sums))
	for i, s := range sums {
		out[i] = TrackView{Summary: s}
		if s.Inside {
			out[i].Class = Classify(s.Speed, o.opts.Limits)
		}
	}
	return out
}
