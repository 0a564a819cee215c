package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/timeutil"
)

// Source supplies frames in order. Next returns io.EOF once exhausted.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// RunOptions controls Run.
type RunOptions struct {
	// Realtime paces frames at the orchestrator's FPS instead of as fast
	// as they can be processed.
	Realtime bool
	// MaxFrames stops after this many frames when positive.
	MaxFrames int
	// Clock paces Realtime runs and measures Elapsed. Defaults to the
	// wall clock.
	Clock timeutil.Clock
}

// Stats is what Run did.
type Stats struct {
	Frames     int
	Detections int
	Captures   int
	Elapsed    time.Duration
}

// Run feeds frames from src through o until the source is exhausted,
// MaxFrames is reached or ctx is cancelled. Exhaustion and cancellation are
// not errors.
func Run(ctx context.Context, src Source, o *Orchestrator, opts RunOptions) (Stats, error) {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	var st Stats
	start := clock.Now()
	done := func() Stats {
		st.Elapsed = clock.Since(start)
		return st
	}

	var tick <-chan time.Time
	if opts.Realtime {
		t := clock.NewTicker(time.Duration(float64(time.Second) / o.opts.FPS))
		defer t.Stop()
		tick = t.C()
	}

	for opts.MaxFrames <= 0 || st.Frames < opts.MaxFrames {
		if tick != nil {
			select {
			case <-ctx.Done():
				return done(), nil
			case <-tick:
			}
		}

		f, err := src.Next(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			return done(), fmt.Errorf("failed to read frame %d: %w", st.Frames, err)
		}

		res, err := o.ProcessFrame(ctx, f)
		if errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			return done(), fmt.Errorf("failed to process frame %d: %w", f.Index, err)
		}
		st.Frames++
		st.Detections += len(res.Tracks)
		st.Captures += len(res.Captures)

		if st.Frames%500 == 0 {
			monitoring.Debugf("[pipeline] %d frames, %d tracks live, %d captures", st.Frames, o.opts.Registry.Len(), st.Captures)
		}
	}
	return done(), nil
}
