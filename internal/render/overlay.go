// Package render draws the region of interest and per-vehicle annotations
// onto frames and encodes them for evidence and streaming.
package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
)

const (
	// RegionAlpha is the opacity of the region tint.
	RegionAlpha = 0.25
	// OutlineThickness is the width of the region outline in pixels.
	OutlineThickness = 3
	// VertexRadius is the radius of the dot drawn on each region vertex.
	VertexRadius = 5
)

// RegionColor is the light green used for the region tint and outline.
var RegionColor = color.RGBA{R: 144, G: 238, B: 144, A: 255}

// Overlay is a prepared region overlay. It is immutable after NewOverlay and
// can be applied to any number of frames.
type Overlay struct {
	tint    *image.Alpha
	outline *image.Alpha
}

// NewOverlay rasterises the tint from the mask and the outline and vertex
// dots from its polygon. An empty mask still gets its outline.
func NewOverlay(m *region.Mask) *Overlay {
	bounds := image.Rect(0, 0, m.Width(), m.Height())
	tint := image.NewAlpha(bounds)
	a := uint8(math.Round(RegionAlpha * 255))
	for y := 0; y < m.Height(); y++ {
		row := tint.Pix[y*tint.Stride:]
		for x := 0; x < m.Width(); x++ {
			if m.Contains(x, y) {
				row[x] = a
			}
		}
	}

	outline := image.NewAlpha(bounds)
	poly := m.Polygon()
	if len(poly) > 0 {
		z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
		for i, p := range poly {
			q := poly[(i+1)%len(poly)]
			if len(poly) > 1 && strokeSegment(z, centre(p), centre(q), OutlineThickness) {
				z.Draw(outline, bounds, image.Opaque, image.Point{})
				z.Reset(bounds.Dx(), bounds.Dy())
			}
		}
		for _, p := range poly {
			fillCircle(z, centre(p), VertexRadius)
			z.Draw(outline, bounds, image.Opaque, image.Point{})
			z.Reset(bounds.Dx(), bounds.Dy())
		}
	}
	return &Overlay{tint: tint, outline: outline}
}

// Apply blends the overlay into dst.
func (o *Overlay) Apply(dst draw.Image) {
	r := dst.Bounds().Intersect(o.tint.Bounds())
	src := image.NewUniform(RegionColor)
	draw.DrawMask(dst, r, src, image.Point{}, o.tint, r.Min, draw.Over)
	draw.DrawMask(dst, r, src, image.Point{}, o.outline, r.Min, draw.Over)
}

type fpoint struct{ x, y float32 }

// centre is the middle of pixel p in rasteriser coordinates.
func centre(p region.Point) fpoint {
	return fpoint{float32(p.X) + 0.5, float32(p.Y) + 0.5}
}

// strokeSegment adds a width-wide quad around p-q. It reports false for a
// zero-length segment.
func strokeSegment(z *vector.Rasterizer, p, q fpoint, width float32) bool {
	dx, dy := q.x-p.x, q.y-p.y
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return false
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	z.MoveTo(p.x+nx, p.y+ny)
	z.LineTo(q.x+nx, q.y+ny)
	z.LineTo(q.x-nx, q.y-ny)
	z.LineTo(p.x-nx, p.y-ny)
	z.ClosePath()
	return true
}

// kappa places cubic control points so four arcs approximate a circle.
const kappa = 0.5522847498

func fillCircle(z *vector.Rasterizer, c fpoint, r float32) {
	k := r * kappa
	z.MoveTo(c.x+r, c.y)
	z.CubeTo(c.x+r, c.y+k, c.x+k, c.y+r, c.x, c.y+r)
	z.CubeTo(c.x-k, c.y+r, c.x-r, c.y+k, c.x-r, c.y)
	z.CubeTo(c.x-r, c.y-k, c.x-k, c.y-r, c.x, c.y-r)
	z.CubeTo(c.x+k, c.y-r, c.x+r, c.y-k, c.x+r, c.y)
	z.ClosePath()
}
