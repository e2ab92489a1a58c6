package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/xob0t/cardforge/pkg/assets"
	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/layout"
	"github.com/xob0t/cardforge/pkg/scene"
)

func newCompositor(t *testing.T) (*Compositor, *assets.Library) {
	t.Helper()
	fonts, warnings, err := LoadFonts("")
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) > 0 {
		t.Fatalf("unexpected font warnings: %v", warnings)
	}
	lib := assets.NewLibrary()
	return New(fonts, lib), lib
}

func mustTemplate(t *testing.T, name string) catalog.Template {
	t.Helper()
	tpl, err := catalog.TemplateByName(name)
	if err != nil {
		t.Fatal(err)
	}
	return tpl
}

func render(t *testing.T, c *Compositor, s *scene.Scene) *RenderedCard {
	t.Helper()
	card, err := c.Render(context.Background(), layout.Resolve(s.Snapshot()))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return card
}

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func rgb(img *image.RGBA, x, y int) (uint8, uint8, uint8) {
	c := img.RGBAAt(x, y)
	return c.R, c.G, c.B
}

func isWhite(img *image.RGBA, x, y int) bool {
	r, g, b := rgb(img, x, y)
	return r == 0xff && g == 0xff && b == 0xff
}

// hasTextPixels reports whether area holds any of the default pink text.
func hasTextPixels(img *image.RGBA, area image.Rectangle) bool {
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if r, g, b := rgb(img, x, y); r > 0xe0 && g < 0xa0 && b > 0x80 {
				return true
			}
		}
	}
	return false
}

func TestRenderClassicPreview(t *testing.T) {
	c, _ := newCompositor(t)
	s := scene.New(mustTemplate(t, "Classic"), scene.Size{Width: 300, Height: 390})
	s.AddTextLayer(catalog.DefaultMessage, 24, scene.AnchorCenter)

	card := render(t, c, s)
	if b := card.Image.Bounds(); b.Dx() != 300 || b.Dy() != 390 {
		t.Fatalf("bounds = %v", b)
	}
	if card.SceneVersion != s.Version() || card.SceneID != s.ID() {
		t.Errorf("card stamped %s@%d, scene is %s@%d", card.SceneID, card.SceneVersion, s.ID(), s.Version())
	}

	// Gold frame.
	if r, g, b := rgb(card.Image, 2, 200); r != 0xff || g != 0xd7 || b != 0x00 {
		t.Errorf("frame pixel = %02x%02x%02x, want ffd700", r, g, b)
	}
	// White background above the text.
	if !isWhite(card.Image, 150, 40) {
		t.Error("background above the text should be white")
	}
	// Pink glyphs around the vertical center.
	if !hasTextPixels(card.Image, image.Rect(30, 170, 270, 220)) {
		t.Error("no text pixels found in the center band")
	}
	if len(card.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", card.Warnings)
	}
}

func TestRenderMissingAssetIsSkipped(t *testing.T) {
	c, _ := newCompositor(t)
	s := scene.New(mustTemplate(t, "Classic"), scene.Size{Width: 300, Height: 390})
	s.AddImageLayer("mem:does-not-exist", scene.AnchorTop)
	s.AddTextLayer("still here", 24, scene.AnchorCenter)

	card := render(t, c, s)
	if len(card.Warnings) != 1 || !strings.Contains(card.Warnings[0], "skipped") {
		t.Fatalf("warnings = %v", card.Warnings)
	}
	if !isWhite(card.Image, 150, 98) {
		t.Error("skipped image slot should show the background")
	}
	// The text band below the empty slot is still painted.
	if !hasTextPixels(card.Image, image.Rect(30, 185, 270, 370)) {
		t.Error("text after a skipped image was not drawn")
	}
}

// brokenFonts fails for one font name and defers to the registry otherwise.
type brokenFonts struct {
	*FontRegistry
	broken string
}

func (f brokenFonts) Face(name string, size float64) (font.Face, error) {
	if name == f.broken {
		return nil, errors.New("corrupt font file")
	}
	return f.FontRegistry.Face(name, size)
}

func TestRenderBrokenFontIsSkipped(t *testing.T) {
	registry, _, err := LoadFonts("")
	if err != nil {
		t.Fatal(err)
	}
	c := New(brokenFonts{FontRegistry: registry, broken: "Broken"}, assets.NewLibrary())

	s := scene.New(mustTemplate(t, "Classic"), scene.Size{Width: 300, Height: 390})
	s.AddTextLayer("first", 24, scene.AnchorCenter)
	bad := s.AddTextLayer("second", 24, scene.AnchorCenter)
	if err := s.UpdateLayerAttribute(bad, scene.AttrFont, "Broken"); err != nil {
		t.Fatal(err)
	}

	card := render(t, c, s)
	if len(card.Warnings) != 1 || !strings.Contains(card.Warnings[0], bad) {
		t.Fatalf("warnings = %v", card.Warnings)
	}
	// Two layers split the content height: 20..195 and 195..370.
	if !hasTextPixels(card.Image, image.Rect(30, 20, 270, 195)) {
		t.Error("first text layer was not drawn")
	}
	if hasTextPixels(card.Image, image.Rect(30, 200, 270, 365)) {
		t.Error("broken text layer left pixels behind")
	}
}

func TestRenderImageLayer(t *testing.T) {
	c, lib := newCompositor(t)
	ref := lib.Put("red.png", solidPNG(t, 40, 30, color.NRGBA{R: 0xff, A: 0xff}), "image/png")

	s := scene.New(mustTemplate(t, "Classic"), scene.Size{Width: 300, Height: 390})
	s.AddImageLayer(ref, scene.AnchorTop)

	card := render(t, c, s)
	// Slot center: x 150, y 20 + 157.5/2.
	if r, g, b := rgb(card.Image, 150, 98); r < 0xf0 || g > 0x10 || b > 0x10 {
		t.Errorf("slot center = %02x%02x%02x, want red", r, g, b)
	}
}

func TestRenderDecoration(t *testing.T) {
	c, _ := newCompositor(t)
	s := scene.New(mustTemplate(t, "Classic"), scene.Size{Width: 300, Height: 390})
	s.AddDecorationLayerAt("deco:star", 0.5, 0.5)

	card := render(t, c, s)
	if r, g, b := rgb(card.Image, 150, 195); r < 0xe0 || g < 0xb0 || b > 0x60 {
		t.Errorf("star center = %02x%02x%02x, want gold", r, g, b)
	}
}

func TestRenderGradientAndRainbow(t *testing.T) {
	c, _ := newCompositor(t)

	card := render(t, c, scene.New(mustTemplate(t, "Gradient"), scene.Size{Width: 300, Height: 390}))
	blR, _, _ := rgb(card.Image, 5, 385)
	trR, _, _ := rgb(card.Image, 295, 5)
	if blR <= trR {
		t.Errorf("45deg gradient should run red (bottom-left) to teal (top-right): %02x vs %02x", blR, trR)
	}

	card = render(t, c, scene.New(mustTemplate(t, "Confetti"), scene.Size{Width: 300, Height: 390}))
	r, g, b := rgb(card.Image, 0, 195)
	hi := max(r, g, b)
	lo := min(r, g, b)
	if hi-lo < 0x40 {
		t.Errorf("rainbow frame pixel %02x%02x%02x is not saturated", r, g, b)
	}
}

func TestRenderRequiresFonts(t *testing.T) {
	c := New(NewFontRegistry(), assets.NewLibrary())
	s := scene.New(mustTemplate(t, "Classic"), scene.Size{Width: 300, Height: 390})
	_, err := c.Render(context.Background(), layout.Resolve(s.Snapshot()))
	if !errors.Is(err, ErrFontsNotReady) {
		t.Errorf("expected ErrFontsNotReady, got %v", err)
	}
}

func TestFontRegistryOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Pacifico.ttf"), gomono.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Broken.ttf"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	fonts, warnings, err := LoadFonts(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Errorf("expected one warning for the broken font, got %v", warnings)
	}
	if !fonts.Has("pacifico") || fonts.Has("broken") {
		t.Error("override registration mismatch")
	}
	face, err := fonts.Face("no-such-font", 12)
	if err != nil {
		t.Fatalf("unknown names should fall back: %v", err)
	}
	face.Close()
}

func TestWrapText(t *testing.T) {
	fonts, _, _ := LoadFonts("")
	face, err := fonts.Face("Regular", 16)
	if err != nil {
		t.Fatal(err)
	}
	defer face.Close()

	lines := wrapText("one two three four five six seven", 60, face)
	if len(lines) < 3 {
		t.Errorf("expected wrapping, got %q", lines)
	}
	lines = wrapText("first\n\nthird", 1000, face)
	if len(lines) != 3 || lines[1] != "" {
		t.Errorf("newlines not preserved: %q", lines)
	}
}
