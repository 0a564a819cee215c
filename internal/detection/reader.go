package detection

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/monitoring"
)

// Record is the wire form of one detection. TrackID is a pointer because
// trackers emit boxes before they assign an identity; those are skipped.
type Record struct {
	TrackID    *int      `json:"track_id"`
	BBox       []float64 `json:"bbox"`
	Confidence float64   `json:"confidence"`
	Class      string    `json:"class,omitempty"`
}

// Detection converts and validates a wire record.
func (r Record) Detection() (Detection, error) {
	if r.TrackID == nil {
		return Detection{}, ErrMissingTrackID
	}
	if len(r.BBox) != 4 {
		return Detection{}, fmt.Errorf("%w: bbox needs 4 values, got %d", ErrInvalidBox, len(r.BBox))
	}
	d := Detection{
		TrackID:    *r.TrackID,
		Box:        BBox{X1: r.BBox[0], Y1: r.BBox[1], X2: r.BBox[2], Y2: r.BBox[3]},
		Confidence: r.Confidence,
		Class:      r.Class,
	}
	if err := d.Validate(); err != nil {
		return Detection{}, err
	}
	return d, nil
}

// FrameRecord is one line of a detection log.
type FrameRecord struct {
	Frame      int      `json:"frame"`
	Detections []Record `json:"detections"`
}

// Batch holds the validated detections for one frame.
type Batch struct {
	Frame      int
	Detections []Detection
	Rejected   int
}

// Decode validates every record of a frame, dropping the ones that fail.
func Decode(fr FrameRecord) Batch {
	b := Batch{Frame: fr.Frame, Detections: make([]Detection, 0, len(fr.Detections))}
	for _, rec := range fr.Detections {
		d, err := rec.Detection()
		if err != nil {
			b.Rejected++
			if !errors.Is(err, ErrMissingTrackID) {
				monitoring.Debugf("[detection] frame %d: dropping record: %v", fr.Frame, err)
			}
			continue
		}
		b.Detections = append(b.Detections, d)
	}
	return b
}

// Reader decodes a JSON-lines detection log, one FrameRecord per line.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader wraps r. Lines may be up to 4 MiB.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next frame's batch, or io.EOF when the log is exhausted.
func (r *Reader) Next() (Batch, error) {
	for r.sc.Scan() {
		r.line++
		line := bytes.TrimSpace(r.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var fr FrameRecord
		if err := json.Unmarshal(line, &fr); err != nil {
			return Batch{}, fmt.Errorf("detection log line %d: %w", r.line, err)
		}
		return Decode(fr), nil
	}
	if err := r.sc.Err(); err != nil {
		return Batch{}, fmt.Errorf("failed to read detection log: %w", err)
	}
	return Batch{}, io.EOF
}
