package plane

import (
	"math"

	"github.com/golang/geo/r2"
)

// ScaleCoordinates rescales points measured at one resolution to another,
// truncating toward zero so calibration points land on whole pixels.
func ScaleCoordinates(points []r2.Point, fromW, fromH, toW, toH int) []r2.Point {
	out := make([]r2.Point, len(points))
	if fromW <= 0 || fromH <= 0 {
		copy(out, points)
		return out
	}
	sx := float64(toW) / float64(fromW)
	sy := float64(toH) / float64(fromH)
	for i, p := range points {
		out[i] = r2.Point{X: math.Trunc(p.X * sx), Y: math.Trunc(p.Y * sy)}
	}
	return out
}

// QuadFromArray converts a calibration quad as read from configuration.
func QuadFromArray(q [4][2]float64) [4]r2.Point {
	var out [4]r2.Point
	for i, p := range q {
		out[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return out
}

// ScaledQuad converts and rescales a reference-resolution calibration quad
// to the processing resolution.
func ScaledQuad(q [4][2]float64, fromW, fromH, toW, toH int) [4]r2.Point {
	quad := QuadFromArray(q)
	scaled := ScaleCoordinates(quad[:], fromW, fromH, toW, toH)
	var out [4]r2.Point
	copy(out[:], scaled)
	return out
}
