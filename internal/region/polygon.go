package region

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
)

// Point is a pixel coordinate at the processing resolution. On disk it is
// written as a two-element array, matching the region definition file.
type Point struct {
	X int
	Y int
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON accepts [x, y] with integer or fractional components;
// fractional values are truncated toward zero.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("region point must be [x, y]: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("region point must have 2 components, got %d", len(raw))
	}
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("region point has non-finite component")
		}
	}
	p.X = int(raw[0])
	p.Y = int(raw[1])
	return nil
}

// Polygon is an ordered ring of vertices; the closing edge is implicit.
type Polygon []Point

// Valid reports whether the polygon has enough vertices to enclose an area.
func (p Polygon) Valid() bool {
	return len(p) >= 3
}

// Bounds returns the smallest rectangle containing every vertex. Max is
// exclusive, as with image.Rectangle.
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(p[0].X, p[0].Y, p[0].X+1, p[0].Y+1)
	for _, pt := range p[1:] {
		r = r.Union(image.Rect(pt.X, pt.Y, pt.X+1, pt.Y+1))
	}
	return r
}

// Clone returns a copy that shares no storage with p.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// DefaultPolygon is the rectangle used when no region file has been drawn
// yet.
func DefaultPolygon() Polygon {
	return Polygon{{100, 100}, {1100, 100}, {1100, 600}, {100, 600}}
}

// LoadPolygon reads a region definition file.
func LoadPolygon(path string) (Polygon, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}
	var poly Polygon
	if err := json.Unmarshal(data, &poly); err != nil {
		return nil, fmt.Errorf("failed to parse region file %s: %w", path, err)
	}
	return poly, nil
}

// SavePolygon writes a region definition file, creating parent directories.
func SavePolygon(path string, poly Polygon) error {
	if poly == nil {
		poly = Polygon{}
	}
	data, err := json.Marshal(poly)
	if err != nil {
		return fmt.Errorf("failed to encode region: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create region directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write region file: %w", err)
	}
	return nil
}
