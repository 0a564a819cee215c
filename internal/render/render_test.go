package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/detection"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/region"
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

// assertNear compares colours channel by channel; antialiased coverage of
// fully covered pixels can round one step short of opaque.
func assertNear(t *testing.T, want, got color.RGBA) {
	t.Helper()
	assert.InDelta(t, float64(want.R), float64(got.R), 3, "R of %v", got)
	assert.InDelta(t, float64(want.G), float64(got.G), 3, "G of %v", got)
	assert.InDelta(t, float64(want.B), float64(got.B), 3, "B of %v", got)
}

func TestOverlay_Apply(t *testing.T) {
	t.Parallel()
	poly := region.Polygon{{X: 20, Y: 20}, {X: 80, Y: 20}, {X: 80, Y: 80}, {X: 20, Y: 80}}
	m := region.Build(100, 100, poly)
	o := NewOverlay(m)

	img := blank(100, 100)
	o.Apply(img)

	// Inside, away from the outline: a quarter-strength tint over black.
	inside := img.RGBAAt(50, 50)
	assert.InDelta(t, 144*0.25, float64(inside.R), 2)
	assert.InDelta(t, 238*0.25, float64(inside.G), 2)
	assert.InDelta(t, 144*0.25, float64(inside.B), 2)

	// Vertices and edges are drawn in the full region colour.
	assertNear(t, RegionColor, img.RGBAAt(20, 20))
	assertNear(t, RegionColor, img.RGBAAt(50, 20))
	assertNear(t, RegionColor, img.RGBAAt(80, 50))

	// Well outside stays untouched.
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(95, 50))
}

func TestOverlay_EmptyMaskStillOutlines(t *testing.T) {
	t.Parallel()
	m := region.Build(50, 50, region.Polygon{{X: 10, Y: 10}, {X: 40, Y: 10}})
	require.True(t, m.Empty())

	img := blank(50, 50)
	NewOverlay(m).Apply(img)
	assertNear(t, RegionColor, img.RGBAAt(25, 10))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(25, 30))
}

func TestOverlay_SmallerDestination(t *testing.T) {
	t.Parallel()
	m := region.Build(100, 100, region.Polygon{{X: 0, Y: 0}, {X: 99, Y: 0}, {X: 99, Y: 99}, {X: 0, Y: 99}})
	img := blank(40, 30)
	assert.NotPanics(t, func() { NewOverlay(m).Apply(img) })
}

func TestBox(t *testing.T) {
	t.Parallel()
	img := blank(200, 100)
	Box(img, detection.BBox{X1: 50, Y1: 40, X2: 120, Y2: 90}, ViolationColor, TrackLabel(3, 131.5, "kmph"))

	assert.Equal(t, ViolationColor, img.RGBAAt(50, 40))
	assert.Equal(t, ViolationColor, img.RGBAAt(51, 60))
	assert.Equal(t, ViolationColor, img.RGBAAt(119, 60))
	assert.Equal(t, ViolationColor, img.RGBAAt(80, 89))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(80, 60), "box interior is not filled")

	// The label lands in the rows just above the box.
	var lit int
	for y := 25; y < 38; y++ {
		for x := 50; x < 200; x++ {
			if img.RGBAAt(x, y).R > 0 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 0)
}

func TestBox_ClippedAtFrameEdge(t *testing.T) {
	t.Parallel()
	img := blank(60, 60)
	assert.NotPanics(t, func() {
		Box(img, detection.BBox{X1: -10, Y1: 2, X2: 70, Y2: 80}, NormalColor, "id: 1, speed: 0.00 km/h")
	})
	assert.Equal(t, NormalColor, img.RGBAAt(0, 3))
}

func TestTrackLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "id: 3, speed: 131.50 km/h", TrackLabel(3, 131.5, "kmph"))
}

func TestEncodeJPEG(t *testing.T) {
	t.Parallel()
	src := blank(64, 48)
	data, err := EncodeJPEG(src, 80)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
}

func TestToRGBA(t *testing.T) {
	t.Parallel()
	src := image.NewGray(image.Rect(10, 10, 20, 15))
	src.SetGray(10, 10, color.Gray{Y: 200})
	dst := ToRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 10, 5), dst.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 200, B: 200, A: 255}, dst.RGBAAt(0, 0))
}
