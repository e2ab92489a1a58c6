// attribute.go — Partial layer updates with clamping.
package scene

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/xob0t/cardforge/pkg/imageproc"
)

// Attribute names a single mutable layer field.
type Attribute string

const (
	AttrContent      Attribute = "content"
	AttrFontSize     Attribute = "fontSize"
	AttrColor        Attribute = "color"
	AttrFont         Attribute = "font"
	AttrAnchor       Attribute = "anchor"
	AttrFilter       Attribute = "filter"
	AttrAsset        Attribute = "asset"
	AttrRotation     Attribute = "rotation"
	AttrScale        Attribute = "scale"
	AttrBorderRadius Attribute = "borderRadius"
	AttrBorderWidth  Attribute = "borderWidth"
	AttrBorderColor  Attribute = "borderColor"
	AttrX            Attribute = "x"
	AttrY            Attribute = "y"
)

// Numeric bounds. Values outside are clamped to the nearest bound.
const (
	MinScale        = 0.5
	MaxScale        = 2.0
	MinBorderRadius = 0.0
	MaxBorderRadius = 50.0
	MinFontSize     = 6.0
	MaxFontSize     = 144.0
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// normalizeRotation maps any angle into [0,360).
func normalizeRotation(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, n)
		}
		f = x
	default:
		return 0, fmt.Errorf("%w: expected number, got %T", ErrInvalidValue, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, f)
	}
	return f, nil
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, v)
	}
	return s, nil
}

func toAnchor(v any, allowed ...Anchor) (Anchor, error) {
	s, err := toString(v)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if Anchor(s) == a {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: anchor %q", ErrInvalidValue, s)
}

// toFilter maps names outside the filter set to none.
func toFilter(name string) imageproc.FilterKind {
	k := imageproc.FilterKind(name)
	if !k.Known() {
		return imageproc.FilterNone
	}
	return k
}

func applyText(l *TextLayer, attr Attribute, v any) error {
	var err error
	switch attr {
	case AttrContent:
		l.Content, err = toString(v)
	case AttrColor:
		l.Color, err = toString(v)
	case AttrFont:
		l.Font, err = toString(v)
	case AttrFontSize:
		var f float64
		if f, err = toFloat(v); err == nil {
			l.FontSize = clamp(f, MinFontSize, MaxFontSize)
		}
	case AttrAnchor:
		l.Anchor, err = toAnchor(v, AnchorTop, AnchorCenter, AnchorBottom)
	default:
		return fmt.Errorf("%w: %q on text layer", ErrUnknownAttribute, attr)
	}
	return err
}

func applyImage(l *ImageLayer, attr Attribute, v any) error {
	var (
		f   float64
		err error
	)
	switch attr {
	case AttrFilter:
		var name string
		if name, err = toString(v); err == nil {
			l.Filter = string(toFilter(name))
		}
	case AttrAsset:
		l.AssetRef, err = toString(v)
	case AttrBorderColor:
		l.BorderColor, err = toString(v)
	case AttrAnchor:
		l.Anchor, err = toAnchor(v, AnchorTop, AnchorBottom)
	case AttrRotation:
		if f, err = toFloat(v); err == nil {
			l.Rotation = normalizeRotation(f)
		}
	case AttrScale:
		if f, err = toFloat(v); err == nil {
			l.Scale = clamp(f, MinScale, MaxScale)
		}
	case AttrBorderRadius:
		if f, err = toFloat(v); err == nil {
			l.BorderRadius = clamp(f, MinBorderRadius, MaxBorderRadius)
		}
	case AttrBorderWidth:
		if f, err = toFloat(v); err == nil {
			l.BorderWidth = math.Max(0, f)
		}
	default:
		return fmt.Errorf("%w: %q on image layer", ErrUnknownAttribute, attr)
	}
	return err
}

func applyDecoration(l *DecorationLayer, attr Attribute, v any) error {
	var (
		f   float64
		err error
	)
	switch attr {
	case AttrAsset:
		l.AssetRef, err = toString(v)
	case AttrX:
		if f, err = toFloat(v); err == nil {
			l.X, l.Placed = clamp(f, 0, 1), true
		}
	case AttrY:
		if f, err = toFloat(v); err == nil {
			l.Y, l.Placed = clamp(f, 0, 1), true
		}
	default:
		return fmt.Errorf("%w: %q on decoration layer", ErrUnknownAttribute, attr)
	}
	return err
}
