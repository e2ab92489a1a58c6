// transform.go — Geometric styling of image layers.
package imageproc

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Style holds the geometric and border attributes of an image layer.
type Style struct {
	Rotation     float64 // degrees, clockwise
	Scale        float64 // 1 = unscaled
	BorderRadius float64 // pixels
	BorderWidth  float64 // pixels
	BorderColor  color.NRGBA
}

// IsIdentity reports whether the style leaves the bitmap unchanged.
func (s Style) IsIdentity() bool {
	return math.Mod(s.Rotation, 360) == 0 && (s.Scale == 1 || s.Scale == 0) &&
		s.BorderRadius <= 0 && s.BorderWidth <= 0
}

// Transform styles img in a fixed order: rotate about its center, scale,
// clip to the border radius, then stroke the border. Reordering these steps
// changes the result.
func Transform(img image.Image, s Style) *image.NRGBA {
	if s.IsIdentity() {
		return imaging.Clone(img)
	}

	var out *image.NRGBA
	if rot := math.Mod(s.Rotation, 360); rot != 0 {
		// imaging rotates counter-clockwise.
		out = imaging.Rotate(img, -rot, color.Transparent)
	} else {
		out = imaging.Clone(img)
	}

	if s.Scale > 0 && s.Scale != 1 {
		b := out.Bounds()
		w := max(1, int(math.Round(float64(b.Dx())*s.Scale)))
		h := max(1, int(math.Round(float64(b.Dy())*s.Scale)))
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}

	b := out.Bounds()
	if s.BorderRadius > 0 {
		clipped := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		FillMask(clipped, image.Point{}, RoundedRectMask(b.Dx(), b.Dy(), s.BorderRadius), out)
		out = clipped
	}

	if s.BorderWidth > 0 {
		ring := RingMask(b.Dx(), b.Dy(), s.BorderRadius, s.BorderWidth)
		FillMask(out, image.Point{}, ring, image.NewUniform(s.BorderColor))
	}

	return out
}
