// generated.go — Sources that draw their assets on demand: QR codes and
// the bundled decoration stickers.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gg"
	qrcode "github.com/skip2/go-qrcode"
)

const defaultGeneratedSize = 256

// QRSource renders the key text as a QR code PNG.
type QRSource struct {
	size int
}

// NewQRSource returns a QR source producing size×size images (256 when size <= 0).
func NewQRSource(size int) *QRSource {
	if size <= 0 {
		size = defaultGeneratedSize
	}
	return &QRSource{size: size}
}

// Fetch implements Source.
func (q *QRSource) Fetch(_ context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty QR payload", ErrNotFound)
	}
	png, err := qrcode.Encode(text, qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode QR: %w", err)
	}
	return png, nil
}

// DecorationSource draws the bundled stickers. Rendered PNGs are cached.
type DecorationSource struct {
	size int

	mu    sync.Mutex
	cache map[string][]byte
}

// NewDecorationSource returns a sticker source producing size×size images
// (256 when size <= 0).
func NewDecorationSource(size int) *DecorationSource {
	if size <= 0 {
		size = defaultGeneratedSize
	}
	return &DecorationSource{size: size, cache: make(map[string][]byte)}
}

// Fetch implements Source. Keys are catalog decoration ids.
func (d *DecorationSource) Fetch(_ context.Context, id string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if data, ok := d.cache[id]; ok {
		return data, nil
	}
	draw, ok := stickers[id]
	if !ok {
		return nil, fmt.Errorf("%w: deco:%s", ErrNotFound, id)
	}

	dc := gg.NewContext(d.size, d.size)
	defer dc.Close()
	if err := draw(dc, float64(d.size)); err != nil {
		return nil, fmt.Errorf("draw sticker %q: %w", id, err)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode sticker %q: %w", id, err)
	}
	d.cache[id] = buf.Bytes()
	return buf.Bytes(), nil
}

var stickers = map[string]func(dc *gg.Context, s float64) error{
	"balloon": drawBalloon,
	"star":    drawStar,
	"heart":   drawHeart,
	"cake":    drawCake,
}

func drawBalloon(dc *gg.Context, s float64) error {
	dc.SetRGBA(0.25, 0.25, 0.25, 1)
	dc.SetLineWidth(s * 0.015)
	dc.MoveTo(s*0.5, s*0.72)
	dc.CubicTo(s*0.42, s*0.8, s*0.58, s*0.88, s*0.5, s*0.98)
	if err := dc.Stroke(); err != nil {
		return err
	}

	dc.SetHexColor("#ff6347")
	dc.DrawEllipse(s*0.5, s*0.4, s*0.28, s*0.33)
	if err := dc.Fill(); err != nil {
		return err
	}
	dc.SetRGBA(1, 1, 1, 0.45)
	dc.DrawEllipse(s*0.41, s*0.28, s*0.05, s*0.09)
	return dc.Fill()
}

func drawStar(dc *gg.Context, s float64) error {
	cx, cy := s/2, s/2
	outer, inner := s*0.46, s*0.19
	for i := 0; i < 10; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/5
		x, y := cx+r*math.Cos(a), cy+r*math.Sin(a)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	dc.SetHexColor("#ffd700")
	return dc.Fill()
}

func drawHeart(dc *gg.Context, s float64) error {
	dc.MoveTo(s*0.5, s*0.88)
	dc.CubicTo(s*0.1, s*0.6, s*0.02, s*0.3, s*0.25, s*0.18)
	dc.CubicTo(s*0.38, s*0.12, s*0.48, s*0.2, s*0.5, s*0.3)
	dc.CubicTo(s*0.52, s*0.2, s*0.62, s*0.12, s*0.75, s*0.18)
	dc.CubicTo(s*0.98, s*0.3, s*0.9, s*0.6, s*0.5, s*0.88)
	dc.ClosePath()
	dc.SetHexColor("#ff69b4")
	return dc.Fill()
}

func drawCake(dc *gg.Context, s float64) error {
	dc.SetHexColor("#f4e4bc")
	dc.DrawRoundedRectangle(s*0.15, s*0.5, s*0.7, s*0.38, s*0.04)
	if err := dc.Fill(); err != nil {
		return err
	}
	dc.SetHexColor("#ff69b4")
	dc.DrawRectangle(s*0.15, s*0.5, s*0.7, s*0.08)
	if err := dc.Fill(); err != nil {
		return err
	}
	dc.SetHexColor("#4169e1")
	dc.DrawRectangle(s*0.47, s*0.3, s*0.06, s*0.2)
	if err := dc.Fill(); err != nil {
		return err
	}
	dc.SetHexColor("#ff8c00")
	dc.DrawEllipse(s*0.5, s*0.24, s*0.035, s*0.06)
	return dc.Fill()
}
