package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ShaunJohnsonou/mpumulanga-project/internal/detection"
	"github.com/ShaunJohnsonou/mpumulanga-project/internal/units"
)

// Annotation colours by speed class.
var (
	NormalColor    = color.RGBA{G: 255, A: 255}
	WarningColor   = color.RGBA{R: 255, G: 255, A: 255}
	ViolationColor = color.RGBA{R: 255, A: 255}
)

// BoxThickness is the width of a vehicle box edge in pixels.
const BoxThickness = 2

// TrackLabel is the text drawn above a vehicle box.
func TrackLabel(id int, speedKMPH float64, unit string) string {
	return fmt.Sprintf("id: %d, speed: %s", id, units.Format(speedKMPH, unit))
}

// Box draws b with its label. The label baseline sits on the box's top edge,
// clipped to the frame.
func Box(dst draw.Image, b detection.BBox, c color.Color, label string) {
	x1, y1, x2, y2 := int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(x1, y1, x2, y1+BoxThickness),
		image.Rect(x1, y2-BoxThickness, x2, y2),
		image.Rect(x1, y1, x1+BoxThickness, y2),
		image.Rect(x2-BoxThickness, y1, x2, y2),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}

	if label == "" {
		return
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x1, y1-BoxThickness),
	}
	d.DrawString(label)
}

// ToRGBA copies src into a new RGBA image with its origin at (0, 0).
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// EncodeJPEG encodes img at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
