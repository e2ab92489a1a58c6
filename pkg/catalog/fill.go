// fill.go — Template background parsing (solid colors and CSS-style linear gradients).
package catalog

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// FillKind selects how a background is painted.
type FillKind int

const (
	FillSolid FillKind = iota
	FillLinear
)

// Fill is a parsed template background.
type Fill struct {
	Kind  FillKind
	Color color.NRGBA   // solid color; first stop for gradients
	Angle float64       // CSS degrees: 0 = to top, 90 = to right
	Stops []color.NRGBA // evenly spaced gradient stops
}

// ParseFill parses a background value: a hex color or
// "linear-gradient(<angle>deg, <color>, <color>, ...)".
func ParseFill(s string) (Fill, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	if !strings.HasPrefix(lower, "linear-gradient(") {
		c, err := ParseColor(s)
		if err != nil {
			return Fill{}, err
		}
		return Fill{Kind: FillSolid, Color: c}, nil
	}

	if !strings.HasSuffix(s, ")") {
		return Fill{}, fmt.Errorf("unterminated gradient %q", s)
	}
	body := s[len("linear-gradient(") : len(s)-1]
	parts := strings.Split(body, ",")

	fill := Fill{Kind: FillLinear, Angle: 180} // CSS default: to bottom
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == 0 && strings.HasSuffix(strings.ToLower(p), "deg") {
			a, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(p), "deg"), 64)
			if err != nil {
				return Fill{}, fmt.Errorf("invalid gradient angle %q: %w", p, err)
			}
			fill.Angle = a
			continue
		}
		c, err := ParseColor(p)
		if err != nil {
			return Fill{}, fmt.Errorf("gradient stop %d: %w", i, err)
		}
		fill.Stops = append(fill.Stops, c)
	}

	if len(fill.Stops) == 0 {
		return Fill{}, fmt.Errorf("gradient %q has no color stops", s)
	}
	fill.Color = fill.Stops[0]
	if len(fill.Stops) == 1 {
		fill.Kind = FillSolid
	}
	return fill, nil
}
