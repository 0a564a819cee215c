// Package plane maps image-space pixels onto a rectified, bird's-eye ground
// plane using a projective transform fitted once per camera configuration.
package plane

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// collinearTolerance is the smallest |sin| of the angle at a vertex triple
// before the triple is treated as collinear.
const collinearTolerance = 1e-9

// DegenerateGeometryError reports a calibration for which no homography
// exists. It is fatal to startup: without a transform no speed can be
// computed.
type DegenerateGeometryError struct {
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return "degenerate geometry: " + e.Reason
}

// Transform is an immutable 3x3 homography stored row-major with h[8] = 1.
// It holds no mutable state, so MapPoints is safe for concurrent use.
type Transform struct {
	h [9]float64
}

// TargetCorners returns the plane-space rectangle the source quad is mapped
// onto, in the same winding as the source: top-left, top-right,
// bottom-right, bottom-left.
func TargetCorners(width, height float64) [4]r2.Point {
	return [4]r2.Point{
		{X: 0, Y: 0},
		{X: width - 1, Y: 0},
		{X: width - 1, Y: height - 1},
		{X: 0, Y: height - 1},
	}
}

// New fits the homography taking src onto the width x height target
// rectangle.
func New(src [4]r2.Point, width, height float64) (*Transform, error) {
	for i, p := range src {
		if !finite(p.X) || !finite(p.Y) {
			return nil, &DegenerateGeometryError{Reason: fmt.Sprintf("source point %d is not finite", i)}
		}
	}
	if !finite(width) || !finite(height) || width < 2 || height < 2 {
		return nil, &DegenerateGeometryError{Reason: fmt.Sprintf("target rectangle %gx%g is smaller than 2x2", width, height)}
	}
	if err := checkQuad(src); err != nil {
		return nil, err
	}

	dst := TargetCorners(width, height)
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, &DegenerateGeometryError{Reason: fmt.Sprintf("homography system is singular: %v", err)}
	}

	t := &Transform{}
	for i := 0; i < 8; i++ {
		t.h[i] = sol.AtVec(i)
		if !finite(t.h[i]) {
			return nil, &DegenerateGeometryError{Reason: "homography has non-finite coefficients"}
		}
	}
	t.h[8] = 1
	return t, nil
}

// checkQuad rejects quads with coincident or collinear vertex triples, or
// zero enclosed area.
func checkQuad(q [4]r2.Point) error {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			for k := j + 1; k < 4; k++ {
				ab := q[j].Sub(q[i])
				ac := q[k].Sub(q[i])
				norms := ab.Norm() * ac.Norm()
				if norms == 0 || math.Abs(ab.Cross(ac)) <= collinearTolerance*norms {
					return &DegenerateGeometryError{Reason: fmt.Sprintf("source points %d, %d and %d are collinear", i, j, k)}
				}
			}
		}
	}

	area := 0.0
	for i := 0; i < 4; i++ {
		area += q[i].Cross(q[(i+1)%4])
	}
	if math.Abs(area)/2 < collinearTolerance {
		return &DegenerateGeometryError{Reason: "source quadrilateral has zero area"}
	}
	return nil
}

// MapPoints applies the transform to every point. Points on the vanishing
// line have no finite image and come back as +Inf.
func (t *Transform) MapPoints(points []r2.Point) []r2.Point {
	out := make([]r2.Point, len(points))
	for i, p := range points {
		out[i] = t.mapPoint(p)
	}
	return out
}

func (t *Transform) mapPoint(p r2.Point) r2.Point {
	h := &t.h
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return r2.Point{X: math.Inf(1), Y: math.Inf(1)}
	}
	return r2.Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Matrix returns the homography coefficients, row-major.
func (t *Transform) Matrix() [9]float64 {
	return t.h
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
