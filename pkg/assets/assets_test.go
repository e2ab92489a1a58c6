package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLibraryMemoryRoundTrip(t *testing.T) {
	lib := NewLibrary()
	ref := lib.Put("photo.png", pngBytes(t, 7, 5), "image/png")

	img, err := lib.Open(context.Background(), ref)
	if err != nil {
		t.Fatalf("Open(%q): %v", ref, err)
	}
	if img.Bounds().Dx() != 7 || img.Bounds().Dy() != 5 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestLibraryMissingAsset(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Open(context.Background(), "mem:nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLibraryDecodeError(t *testing.T) {
	lib := NewLibrary()
	ref := lib.Put("broken.png", []byte("garbage"), "image/png")

	_, err := lib.Open(context.Background(), ref)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if derr.Ref != ref {
		t.Errorf("DecodeError.Ref = %q, want %q", derr.Ref, ref)
	}
}

func TestDecorationSource(t *testing.T) {
	lib := NewLibrary()
	for _, id := range []string{"balloon", "star", "heart", "cake"} {
		img, err := lib.Open(context.Background(), "deco:"+id)
		if err != nil {
			t.Fatalf("deco:%s: %v", id, err)
		}
		if img.Bounds().Dx() != defaultGeneratedSize {
			t.Errorf("deco:%s: width %d", id, img.Bounds().Dx())
		}
		_, _, _, a := img.At(defaultGeneratedSize/2, defaultGeneratedSize/2).RGBA()
		if id != "cake" && a == 0 {
			t.Errorf("deco:%s: center pixel is transparent", id)
		}
	}

	if _, err := lib.Open(context.Background(), "deco:unicorn"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown sticker, got %v", err)
	}
}

func TestQRSource(t *testing.T) {
	lib := NewLibrary()
	img, err := lib.Open(context.Background(), "qr:https://example.com/card")
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != defaultGeneratedSize {
		t.Errorf("unexpected QR size %v", img.Bounds())
	}
	if c := color.GrayModel.Convert(img.At(0, 0)).(color.Gray); c.Y != 0xff {
		t.Errorf("QR quiet zone should be white, got %v", c)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bg.png"), pngBytes(t, 3, 3), 0o644); err != nil {
		t.Fatal(err)
	}

	lib := NewLibrary()
	lib.Register("file", NewDirSource(dir))
	lib.SetDefault(NewDirSource(dir))

	if _, err := lib.Open(context.Background(), "file:bg.png"); err != nil {
		t.Errorf("file:bg.png: %v", err)
	}
	if _, err := lib.Open(context.Background(), "bg.png"); err != nil {
		t.Errorf("bare ref: %v", err)
	}
	if _, err := lib.Fetch(context.Background(), "file:../etc/passwd"); err == nil {
		t.Error("expected traversal to be rejected")
	}
}

func TestHTTPSource(t *testing.T) {
	body := pngBytes(t, 4, 4)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	defer ts.Close()

	lib := NewLibrary()
	lib.Register("http", NewHTTPSource(ts.Client()))

	if _, err := lib.Open(context.Background(), ts.URL+"/ok.png"); err != nil {
		t.Errorf("download: %v", err)
	}
	if _, err := lib.Open(context.Background(), ts.URL+"/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListAndRemove(t *testing.T) {
	m := NewMemoryStore()
	a := m.Add("b.png", []byte{1}, "image/png")
	m.Add("a.png", []byte{1, 2}, "image/png")

	list := m.List()
	if len(list) != 2 || list[0].Name != "a.png" || list[1].Size != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	m.Remove(a)
	if _, _, ok := m.Get(a); ok {
		t.Error("asset should be removed")
	}
}
