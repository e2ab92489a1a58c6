package imageproc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// testPhoto builds an opaque gradient image with distinct pixels.
func testPhoto(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 200, A: 255})
		}
	}
	return img
}

func samePixels(t *testing.T, a, b image.Image) {
	t.Helper()
	if a.Bounds().Size() != b.Bounds().Size() {
		t.Fatalf("size mismatch: %v vs %v", a.Bounds().Size(), b.Bounds().Size())
	}
	ab, bb := a.Bounds(), b.Bounds()
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			ca := color.NRGBAModel.Convert(a.At(ab.Min.X+x, ab.Min.Y+y))
			cb := color.NRGBAModel.Convert(b.At(bb.Min.X+x, bb.Min.Y+y))
			if ca != cb {
				t.Fatalf("pixel (%d,%d) differs: %v vs %v", x, y, ca, cb)
			}
		}
	}
}

func TestApplyFilterNoneIsIdentity(t *testing.T) {
	src := testPhoto(16, 12)
	out, warnings := ApplyFilter(src, FilterNone)
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	samePixels(t, src, out)

	again, _ := ApplyFilter(out, FilterNone)
	samePixels(t, out, again)
}

func TestApplyFilterUnknownFailsSoft(t *testing.T) {
	src := testPhoto(8, 8)
	out, warnings := ApplyFilter(src, FilterKind("vignette"))
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
	samePixels(t, src, out)
}

func TestApplyFilterGrayscale(t *testing.T) {
	out, _ := ApplyFilter(testPhoto(10, 10), FilterGrayscale)
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := out.NRGBAAt(x, y)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d,%d) not gray: %v", x, y, c)
			}
		}
	}
}

func TestApplyFilterChangesPixels(t *testing.T) {
	src := testPhoto(20, 20)
	for _, k := range []FilterKind{FilterSepia, FilterBlur, FilterSharpen, FilterContrast} {
		out, warnings := ApplyFilter(src, k)
		if len(warnings) != 0 {
			t.Errorf("%s: unexpected warnings %v", k, warnings)
		}
		if out.Bounds().Size() != src.Bounds().Size() {
			t.Errorf("%s: size changed", k)
		}
		if bytes.Equal(out.Pix, src.Pix) {
			t.Errorf("%s: pixels unchanged", k)
		}
	}
}

func TestProcessAssetRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testPhoto(12, 9)); err != nil {
		t.Fatal(err)
	}

	out, _, err := ProcessAsset(buf.Bytes(), FilterGrayscale)
	if err != nil {
		t.Fatalf("ProcessAsset: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("processed asset is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 9 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
}

func TestProcessAssetDecodeFailureReturnsOriginal(t *testing.T) {
	data := []byte("definitely not an image")
	out, _, err := ProcessAsset(data, FilterSepia)

	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("original bytes should be returned on failure")
	}
}

func TestTransformIdentity(t *testing.T) {
	src := testPhoto(30, 20)
	out := Transform(src, Style{Scale: 1})
	samePixels(t, src, out)
}

func TestTransformScale(t *testing.T) {
	out := Transform(testPhoto(40, 20), Style{Scale: 1.5})
	if got := out.Bounds().Size(); got != image.Pt(60, 30) {
		t.Errorf("scaled size = %v, want 60x30", got)
	}
}

func TestTransformRotationExpandsBounds(t *testing.T) {
	out := Transform(testPhoto(40, 20), Style{Scale: 1, Rotation: 90})
	if got := out.Bounds().Size(); got != image.Pt(20, 40) {
		t.Errorf("rotated size = %v, want 20x40", got)
	}
}

func TestTransformClipAndBorder(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	out := Transform(testPhoto(40, 40), Style{Scale: 1, BorderRadius: 10, BorderWidth: 3, BorderColor: red})

	if a := out.NRGBAAt(0, 0).A; a != 0 {
		t.Errorf("corner should be clipped, alpha = %d", a)
	}
	if c := out.NRGBAAt(20, 1); c != red {
		t.Errorf("top edge should carry border color, got %v", c)
	}
	if c := out.NRGBAAt(20, 20); c.B != 200 {
		t.Errorf("center should keep photo pixels, got %v", c)
	}
}

func TestRingMaskHollow(t *testing.T) {
	m := RingMask(20, 20, 0, 2)
	if m.AlphaAt(0, 10).A != 255 {
		t.Error("ring edge should be covered")
	}
	if m.AlphaAt(10, 10).A != 0 {
		t.Error("ring center should be empty")
	}
}
