// color.go — Color parsing for template, palette and layer colors.
package catalog

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Border color keywords.
const (
	KeywordTransparent = "transparent"
	KeywordRainbow     = "rainbow"
)

// BorderKind classifies a template border color value.
type BorderKind int

const (
	BorderNone BorderKind = iota
	BorderSolid
	BorderRainbow
)

// BorderPaint is a parsed border color.
type BorderPaint struct {
	Kind  BorderKind
	Color color.NRGBA
}

// ParseBorder interprets a border color value. "transparent" and empty
// values mean no border; "rainbow" (with or without '#') means a hue sweep.
// Unparseable colors fall back to no border.
func ParseBorder(s string) BorderPaint {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	switch key {
	case "", KeywordTransparent:
		return BorderPaint{Kind: BorderNone}
	case KeywordRainbow:
		return BorderPaint{Kind: BorderRainbow}
	}
	c, err := ParseColor(s)
	if err != nil || c.A == 0 {
		return BorderPaint{Kind: BorderNone}
	}
	return BorderPaint{Kind: BorderSolid, Color: c}
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	alpha := uint8(255)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:9], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha channel in %q: %w", s, err)
		}
		alpha = uint8(a)
		s = s[:7]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// MustColor parses a color, returning opaque white on error (safe default
// for rendering).
func MustColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return c
}

// Rainbow returns the hue-sweep color at position t in [0,1).
func Rainbow(t float64) color.NRGBA {
	t -= math.Floor(t)
	r, g, b := colorful.Hsv(t*360, 0.85, 1).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
