// background.go — Template fill, pattern overlays and the card frame.
package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand/v2"

	"github.com/gogpu/gg"

	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/layout"
)

// drawBackground paints the template fill over the whole canvas.
func drawBackground(img *image.RGBA, fill catalog.Fill) error {
	if fill.Kind != catalog.FillLinear || len(fill.Stops) < 2 {
		draw.Draw(img, img.Bounds(), image.NewUniform(fill.Color), image.Point{}, draw.Src)
		return nil
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dc := gg.NewContext(w, h)
	defer dc.Close()

	x0, y0, x1, y1 := gradientLine(fill.Angle, float64(w), float64(h))
	brush := gg.NewLinearGradientBrush(x0, y0, x1, y1)
	for i, c := range fill.Stops {
		brush.AddColorStop(float64(i)/float64(len(fill.Stops)-1), gg.FromColor(c))
	}
	dc.SetFillBrush(brush)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	if err := dc.Fill(); err != nil {
		return err
	}
	draw.Draw(img, img.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return nil
}

// gradientLine returns the endpoints of a CSS linear-gradient line for a
// w×h box. 0deg points up, angles grow clockwise.
func gradientLine(deg, w, h float64) (x0, y0, x1, y1 float64) {
	rad := deg * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
	cx, cy := w/2, h/2
	return cx - dx*half, cy - dy*half, cx + dx*half, cy + dy*half
}

// ── Patterns ──

// patternSeed keeps confetti placement stable between renders.
const patternSeed = 0x0c0ffee

var confettiColors = []string{"#ff69b4", "#ffd700", "#4169e1", "#32cd32", "#ff6347", "#9370db"}

// drawPattern paints the overlay for a pattern tag. Unknown tags are
// reported as false.
func drawPattern(img *image.RGBA, pattern string) (bool, error) {
	var paint func(dc *gg.Context, w, h float64) error
	switch pattern {
	case "":
		return true, nil
	case catalog.PatternConfetti:
		paint = paintConfetti
	case catalog.PatternVintage:
		paint = paintVintage
	default:
		return false, nil
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	dc := gg.NewContext(w, h)
	defer dc.Close()
	if err := paint(dc, float64(w), float64(h)); err != nil {
		return true, err
	}
	draw.Draw(img, img.Bounds(), dc.Image(), image.Point{}, draw.Over)
	return true, nil
}

func paintConfetti(dc *gg.Context, w, h float64) error {
	rng := rand.New(rand.NewPCG(patternSeed, patternSeed))
	short := math.Min(w, h)
	n := int(w * h / (short * short / 40))
	for i := 0; i < n; i++ {
		x, y := rng.Float64()*w, rng.Float64()*h
		r := short * (0.008 + rng.Float64()*0.01)
		c := catalog.MustColor(confettiColors[i%len(confettiColors)])
		dc.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, 0.55)
		if i%3 == 0 {
			dc.DrawRectangle(x-r, y-r/2, 2*r, r)
		} else {
			dc.DrawCircle(x, y, r)
		}
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return nil
}

func paintVintage(dc *gg.Context, w, h float64) error {
	step := math.Max(4, math.Min(w, h)/20)
	dc.SetRGBA(0x8b/255.0, 0x45/255.0, 0x13/255.0, 0.08)
	dc.SetLineWidth(step / 4)
	for x := -h; x < w; x += step {
		dc.DrawLine(x, h, x+h, 0)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}

// ── Frame ──

// drawBorder strokes the template frame just inside the canvas edge.
func drawBorder(img *image.RGBA, border layout.Border) {
	if border.Width <= 0 || border.Paint.Kind == catalog.BorderNone {
		return
	}
	b := img.Bounds()
	ring := imageproc.RingMask(b.Dx(), b.Dy(), 0, border.Width)

	var src image.Image = image.NewUniform(border.Paint.Color)
	if border.Paint.Kind == catalog.BorderRainbow {
		src = hueSweep{rect: b}
	}
	imageproc.FillMask(img, b.Min, ring, src)
}

// hueSweep is an image whose color is the rainbow hue of the angle around
// its center.
type hueSweep struct {
	rect image.Rectangle
}

func (h hueSweep) ColorModel() color.Model { return color.NRGBAModel }
func (h hueSweep) Bounds() image.Rectangle { return h.rect }

func (h hueSweep) At(x, y int) color.Color {
	cx := float64(h.rect.Min.X+h.rect.Max.X) / 2
	cy := float64(h.rect.Min.Y+h.rect.Max.Y) / 2
	a := math.Atan2(float64(y)-cy, float64(x)-cx)
	return catalog.Rainbow((a + math.Pi) / (2 * math.Pi))
}
