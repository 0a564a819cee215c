package region

import (
	"math"
	"math/bits"
	"sort"
)

// Mask is a width x height occupancy grid. A cell (x, y) is set iff its
// centre (x+0.5, y+0.5) lies inside the polygon under the even-odd rule.
type Mask struct {
	width   int
	height  int
	bits    []uint64
	polygon Polygon
}

// edge is one polygon side with its inverse slope precomputed for
// scanline intersection.
type edge struct {
	x0, y0 float64
	y1     float64
	dxdy   float64
}

// Build rasterizes poly into a width x height mask. Polygons with fewer
// than three vertices, or non-positive dimensions, produce an empty mask so
// the pipeline degrades to "nothing is inside" instead of failing.
func Build(width, height int, poly Polygon) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	m := &Mask{
		width:   width,
		height:  height,
		bits:    make([]uint64, (width*height+63)/64),
		polygon: poly.Clone(),
	}
	if !poly.Valid() || width == 0 || height == 0 {
		return m
	}

	edges := make([]edge, 0, len(poly))
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		if a.Y == b.Y {
			continue // horizontal edges never cross a cell-centre scanline
		}
		x0, y0 := float64(a.X), float64(a.Y)
		x1, y1 := float64(b.X), float64(b.Y)
		edges = append(edges, edge{x0: x0, y0: y0, y1: y1, dxdy: (x1 - x0) / (y1 - y0)})
		minY = math.Min(minY, math.Min(y0, y1))
		maxY = math.Max(maxY, math.Max(y0, y1))
	}
	if len(edges) == 0 {
		return m
	}

	rowStart := clamp(int(math.Floor(minY)), 0, height)
	rowEnd := clamp(int(math.Ceil(maxY)), 0, height)
	xs := make([]float64, 0, len(edges))
	for y := rowStart; y < rowEnd; y++ {
		yc := float64(y) + 0.5
		xs = xs[:0]
		for _, e := range edges {
			// half-open in y so a vertex shared by two edges counts once
			if (e.y0 <= yc && yc < e.y1) || (e.y1 <= yc && yc < e.y0) {
				xs = append(xs, e.x0+(yc-e.y0)*e.dxdy)
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			from := clamp(int(math.Ceil(xs[i]-0.5)), 0, width)
			to := clamp(int(math.Ceil(xs[i+1]-0.5)), 0, width)
			m.fillSpan(y, from, to)
		}
	}
	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Mask) fillSpan(y, from, to int) {
	base := y * m.width
	for x := from; x < to; x++ {
		idx := base + x
		m.bits[idx>>6] |= 1 << (uint(idx) & 63)
	}
}

// Contains reports whether pixel (x, y) is inside the region. Coordinates
// outside the grid are never inside; detections may legitimately fall off
// the frame edge after rounding.
func (m *Mask) Contains(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.width || y >= m.height {
		return false
	}
	idx := y*m.width + x
	return m.bits[idx>>6]&(1<<(uint(idx)&63)) != 0
}

// Width returns the grid width in pixels.
func (m *Mask) Width() int { return m.width }

// Height returns the grid height in pixels.
func (m *Mask) Height() int { return m.height }

// Polygon returns a copy of the polygon the mask was built from.
func (m *Mask) Polygon() Polygon { return m.polygon.Clone() }

// Count returns the number of set cells.
func (m *Mask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += bits.OnesCount64(w)
	}
	return n
}

// Empty reports whether no cell is set.
func (m *Mask) Empty() bool {
	for _, w := range m.bits {
		if w != 0 {
			return false
		}
	}
	return true
}
