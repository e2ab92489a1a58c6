// Package imageproc applies the card editor's pixel filters and geometric
// transforms to photos.
//
// Filters are baked into a new lossless asset when the user picks them.
// Transforms are applied at composite time so sliders never reprocess the
// source pixels.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// FilterKind names a pixel filter.
type FilterKind string

const (
	FilterNone      FilterKind = "none"
	FilterGrayscale FilterKind = "grayscale"
	FilterSepia     FilterKind = "sepia"
	FilterBlur      FilterKind = "blur"
	FilterSharpen   FilterKind = "sharpen"
	FilterContrast  FilterKind = "contrast"
)

// Filter strengths matching the editor's manipulator settings.
const (
	blurSigma       = 2.0
	sharpenSigma    = 2.0
	contrastPercent = 50.0 // contrast ×1.5
)

var sepiaTone = colorful.Color{R: 112.0 / 255, G: 66.0 / 255, B: 20.0 / 255}

// Known reports whether kind is a supported filter.
func (k FilterKind) Known() bool {
	switch k {
	case FilterNone, FilterGrayscale, FilterSepia, FilterBlur, FilterSharpen, FilterContrast:
		return true
	}
	return false
}

// ProcessingError reports a failed decode, filter or encode step. The
// caller keeps using the unmodified source.
type ProcessingError struct {
	Filter FilterKind
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process image with filter %q: %v", e.Filter, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// ApplyFilter returns a filtered copy of img. Unknown kinds fail soft: the
// image passes through unmodified and a warning is returned.
func ApplyFilter(img image.Image, kind FilterKind) (*image.NRGBA, []string) {
	var warnings []string

	switch kind {
	case FilterGrayscale:
		return imaging.Grayscale(img), nil
	case FilterSepia:
		return sepia(img), nil
	case FilterBlur:
		return imaging.Blur(img, blurSigma), nil
	case FilterSharpen:
		return imaging.Sharpen(img, sharpenSigma), nil
	case FilterContrast:
		return imaging.AdjustContrast(img, contrastPercent), nil
	case FilterNone, "":
	default:
		warnings = append(warnings, fmt.Sprintf("unsupported filter %q, image left unfiltered", kind))
	}
	return imaging.Clone(img), warnings
}

// ProcessAsset decodes data, applies the filter and re-encodes the result
// as PNG so it can be decoded again without loss. On failure the original
// bytes are returned together with a *ProcessingError.
func ProcessAsset(data []byte, kind FilterKind) ([]byte, []string, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, nil, &ProcessingError{Filter: kind, Err: fmt.Errorf("decode: %w", err)}
	}

	out, warnings := ApplyFilter(src, kind)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return data, warnings, &ProcessingError{Filter: kind, Err: fmt.Errorf("encode PNG: %w", err)}
	}
	return buf.Bytes(), warnings, nil
}

// sepia converts to luminance and tints it toward a warm brown.
func sepia(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		l := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
		r, g, b := sepiaTone.BlendRgb(l, 0.35+0.65*l.R).Clamped().RGB255()
		// keep highlights bright
		r = max(r, uint8(float64(c.R)*0.95))
		return color.NRGBA{R: r, G: g, B: b, A: c.A}
	})
}
