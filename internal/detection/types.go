// Package detection defines the tuples the external detector/tracker hands
// to the pipeline each frame and validates them at that boundary.
package detection

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

var (
	ErrMissingTrackID    = errors.New("detection has no track id")
	ErrNegativeTrackID   = errors.New("detection track id is negative")
	ErrInvalidBox        = errors.New("detection bounding box is invalid")
	ErrInvalidConfidence = errors.New("detection confidence outside [0, 1]")
)

// BBox is an axis-aligned box in processing-resolution pixels, (X1, Y1) top
// left and (X2, Y2) bottom right.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Validate rejects non-finite and inverted or empty boxes.
func (b BBox) Validate() error {
	for _, v := range [...]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBox)
		}
	}
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return fmt.Errorf("%w: (%g,%g)-(%g,%g) is empty or inverted", ErrInvalidBox, b.X1, b.Y1, b.X2, b.Y2)
	}
	return nil
}

// BottomCenter is the ground-contact pixel: horizontal centre of the bottom
// edge.
func (b BBox) BottomCenter() (x, y int) {
	return int(math.Floor((b.X1 + b.X2) / 2)), int(math.Floor(b.Y2))
}

// Center is the pixel at the middle of the box.
func (b BBox) Center() (x, y int) {
	return int(math.Floor((b.X1 + b.X2) / 2)), int(math.Floor((b.Y1 + b.Y2) / 2))
}

// Corners returns the top-left and bottom-right corners, the pair that is
// mapped onto the ground plane.
func (b BBox) Corners() []r2.Point {
	return []r2.Point{{X: b.X1, Y: b.Y1}, {X: b.X2, Y: b.Y2}}
}

// Detection is one tracked object in one frame.
type Detection struct {
	TrackID    int     `json:"track_id"`
	Box        BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class,omitempty"`
}

// Validate checks the fields the pipeline relies on.
func (d Detection) Validate() error {
	if d.TrackID < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeTrackID, d.TrackID)
	}
	if err := d.Box.Validate(); err != nil {
		return err
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidConfidence, d.Confidence)
	}
	return nil
}
