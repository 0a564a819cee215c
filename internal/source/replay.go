// Package source supplies frames and detections to the pipeline from
// recorded footage: a directory of JPEG frames and a JSON-lines detection
// log produced by the external detector/tracker.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/detection"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/pipeline"
)

// Background is the canvas colour used when replaying detections without
// frames.
var Background = color.RGBA{R: 32, G: 32, B: 32, A: 255}

// ReplayOptions configures a Replay. At least one of FramesDir and
// DetectionsPath is required.
type ReplayOptions struct {
	// FramesDir holds .jpg/.jpeg/.png frames replayed in lexical order
	// (000000.jpg, 000001.jpg, ...).
	FramesDir string
	// DetectionsPath is a JSON-lines detection log whose frame numbers
	// count from 0 within one pass over the footage.
	DetectionsPath string
	// Width and Height are the processing resolution.
	Width, Height int
	// Loop restarts from the first frame when the footage ends.
	Loop bool
}

// Replay is a pipeline.Source over recorded footage. It is not safe for
// concurrent use.
type Replay struct {
	opts   ReplayOptions
	frames []string

	det     io.ReadCloser
	reader  *detection.Reader
	pending *detection.Batch
	detEOF  bool

	pos      int // frame position within the current pass
	index    int // frame index across passes
	idOffset int // added to track ids so passes never share identities
	maxID    int
}

// NewReplay lists the frames and opens the detection log.
func NewReplay(opts ReplayOptions) (*Replay, error) {
	if opts.FramesDir == "" && opts.DetectionsPath == "" {
		return nil, errors.New("replay needs a frames directory or a detection log")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid replay resolution %dx%d", opts.Width, opts.Height)
	}
	r := &Replay{opts: opts, maxID: -1}
	if opts.FramesDir != "" {
		frames, err := listFrames(opts.FramesDir)
		if err != nil {
			return nil, err
		}
		if len(frames) == 0 {
			return nil, fmt.Errorf("no frames found in %s", opts.FramesDir)
		}
		r.frames = frames
	}
	if err := r.openDetections(); err != nil {
		return nil, err
	}
	monitoring.Logf("[source] replaying %d frames from %q with detections %q (loop=%v)",
		len(r.frames), opts.FramesDir, opts.DetectionsPath, opts.Loop)
	return r, nil
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *Replay) openDetections() error {
	r.pending, r.detEOF = nil, false
	if r.opts.DetectionsPath == "" {
		r.detEOF = true
		return nil
	}
	f, err := os.Open(r.opts.DetectionsPath)
	if err != nil {
		return fmt.Errorf("failed to open detection log: %w", err)
	}
	r.det = f
	r.reader = detection.NewReader(f)
	return nil
}

// Close releases the detection log.
func (r *Replay) Close() error {
	if r.det == nil {
		return nil
	}
	err := r.det.Close()
	r.det = nil
	return err
}

// passDone reports whether the current pass has no more frames.
func (r *Replay) passDone() (bool, error) {
	if r.frames != nil {
		return r.pos >= len(r.frames), nil
	}
	if err := r.peek(); err != nil {
		return false, err
	}
	return r.detEOF && r.pending == nil, nil
}

// peek loads the next batch into pending if there is one.
func (r *Replay) peek() error {
	if r.pending != nil || r.detEOF {
		return nil
	}
	b, err := r.reader.Next()
	if errors.Is(err, io.EOF) {
		r.detEOF = true
		return nil
	}
	if err != nil {
		return err
	}
	r.pending = &b
	return nil
}

// detectionsFor returns the detections logged for position pos, skipping
// any logged for earlier positions.
func (r *Replay) detectionsFor(pos int) ([]detection.Detection, error) {
	for {
		if err := r.peek(); err != nil {
			return nil, err
		}
		if r.pending == nil || r.pending.Frame > pos {
			return nil, nil
		}
		b := r.pending
		r.pending = nil
		if b.Frame < pos {
			continue
		}
		out := make([]detection.Detection, len(b.Detections))
		for i, d := range b.Detections {
			if d.TrackID > r.maxID {
				r.maxID = d.TrackID
			}
			d.TrackID += r.idOffset
			out[i] = d
		}
		return out, nil
	}
}

func (r *Replay) restart() error {
	if err := r.Close(); err != nil {
		return err
	}
	r.idOffset += r.maxID + 1
	r.maxID = -1
	r.pos = 0
	return r.openDetections()
}

// Next returns the next frame, or io.EOF when the footage is exhausted and
// Loop is off.
func (r *Replay) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}
	done, err := r.passDone()
	if err != nil {
		return pipeline.Frame{}, err
	}
	if done {
		if !r.opts.Loop || r.pos == 0 {
			return pipeline.Frame{}, io.EOF
		}
		monitoring.Debugf("[source] end of footage after %d frames, looping", r.pos)
		if err := r.restart(); err != nil {
			return pipeline.Frame{}, err
		}
	}

	img, err := r.image(r.pos)
	if err != nil {
		return pipeline.Frame{}, err
	}
	dets, err := r.detectionsFor(r.pos)
	if err != nil {
		return pipeline.Frame{}, err
	}
	f := pipeline.Frame{Index: r.index, Image: img, Detections: dets}
	r.pos++
	r.index++
	return f, nil
}

func (r *Replay) image(pos int) (*image.RGBA, error) {
	dst := image.NewRGBA(image.Rect(0, 0, r.opts.Width, r.opts.Height))
	if r.frames == nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
		return dst, nil
	}
	src, err := decodeFile(r.frames[pos])
	if err != nil {
		return nil, err
	}
	if src.Bounds().Size() == dst.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	return dst, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
