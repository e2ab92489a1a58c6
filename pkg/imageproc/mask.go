// mask.go — Anti-aliased rounded-rectangle coverage masks.
package imageproc

import (
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// arcSegments is the number of line segments per rounded corner.
const arcSegments = 10

// RoundedRectMask returns an alpha mask of size w×h covering a rectangle
// with corners of radius r. The radius is limited to half the short side.
func RoundedRectMask(w, h int, r float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 {
		return mask
	}
	z := vector.NewRasterizer(w, h)
	addPolygon(z, roundedRect(0, 0, float64(w), float64(h), r), false)
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// RingMask returns an alpha mask of size w×h covering a stroke of the given
// width drawn just inside the rectangle edge. Outer corners use radius r,
// inner corners r-width.
func RingMask(w, h int, r, width float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 || width <= 0 {
		return mask
	}
	fw, fh := float64(w), float64(h)
	z := vector.NewRasterizer(w, h)
	addPolygon(z, roundedRect(0, 0, fw, fh, r), false)
	if 2*width < fw && 2*width < fh {
		inner := roundedRect(width, width, fw-width, fh-width, math.Max(r-width, 0))
		addPolygon(z, inner, true)
	}
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// FillMask paints src through mask onto dst at offset.
func FillMask(dst draw.Image, at image.Point, mask *image.Alpha, src image.Image) {
	r := mask.Bounds().Add(at)
	draw.DrawMask(dst, r, src, image.Point{}, mask, image.Point{}, draw.Over)
}

// roundedRect returns the clockwise outline of a rounded rectangle.
func roundedRect(x0, y0, x1, y1, r float64) [][2]float64 {
	r = math.Max(0, math.Min(r, math.Min(x1-x0, y1-y0)/2))
	if r == 0 {
		return [][2]float64{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
	}

	corners := []struct {
		cx, cy, start float64
	}{
		{x1 - r, y0 + r, -math.Pi / 2}, // top-right
		{x1 - r, y1 - r, 0},            // bottom-right
		{x0 + r, y1 - r, math.Pi / 2},  // bottom-left
		{x0 + r, y0 + r, math.Pi},      // top-left
	}

	pts := make([][2]float64, 0, len(corners)*(arcSegments+1))
	for _, c := range corners {
		for i := 0; i <= arcSegments; i++ {
			a := c.start + float64(i)*(math.Pi/2)/arcSegments
			pts = append(pts, [2]float64{c.cx + r*math.Cos(a), c.cy + r*math.Sin(a)})
		}
	}
	return pts
}

// addPolygon adds a closed polygon to z. Reversed polygons subtract from
// the coverage of polygons wound the other way.
func addPolygon(z *vector.Rasterizer, pts [][2]float64, reverse bool) {
	if len(pts) < 3 {
		return
	}
	if reverse {
		rev := make([][2]float64, len(pts))
		for i, p := range pts {
			rev[len(pts)-1-i] = p
		}
		pts = rev
	}
	z.MoveTo(float32(pts[0][0]), float32(pts[0][1]))
	for _, p := range pts[1:] {
		z.LineTo(float32(p[0]), float32(p[1]))
	}
	z.ClosePath()
}
