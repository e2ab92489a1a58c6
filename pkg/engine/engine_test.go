package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/xob0t/cardforge/pkg/assets"
	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/export"
	"github.com/xob0t/cardforge/pkg/gallery"
	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/scene"
)

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	if cfg.ExportDir == "" {
		cfg.ExportDir = t.TempDir()
	}
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.CreateScene(scene.Size{}, catalog.DefaultTemplate())
	return s
}

func TestNoScene(t *testing.T) {
	s, err := NewSession(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetMessage("hi"); !errors.Is(err, ErrNoScene) {
		t.Errorf("expected ErrNoScene, got %v", err)
	}
	if _, err := s.Preview(context.Background()); !errors.Is(err, ErrNoScene) {
		t.Errorf("expected ErrNoScene from Preview, got %v", err)
	}
}

func TestSetMessageReusesActiveText(t *testing.T) {
	s := newSession(t, Config{})
	id1, err := s.SetMessage("Happy Birthday!")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.UseQuickMessage(1)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Error("quick message should replace the active text, not add a layer")
	}
	snap, _ := s.Snapshot()
	if len(snap.Layers) != 1 {
		t.Fatalf("got %d layers", len(snap.Layers))
	}
	want, _ := catalog.QuickMessage(1)
	if got := snap.Layers[0].(scene.TextLayer).Content; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if _, err := s.UseQuickMessage(99); !errors.Is(err, scene.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestSelectionValidation(t *testing.T) {
	s := newSession(t, Config{})
	if err := s.SetTextColor("not-a-color"); !errors.Is(err, scene.ErrInvalidValue) {
		t.Errorf("bad color: %v", err)
	}
	if err := s.SetFont("Comic Sans"); !errors.Is(err, scene.ErrInvalidValue) {
		t.Errorf("bad font: %v", err)
	}
	if err := s.SetTemplate("nope"); !errors.Is(err, catalog.ErrUnknownTemplate) {
		t.Errorf("bad template: %v", err)
	}
	if err := s.SetTextColor("#00ff00"); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	if snap.TextColor != "#00ff00" {
		t.Errorf("text color = %q", snap.TextColor)
	}
}

func TestAddImageRequiresPermission(t *testing.T) {
	s := newSession(t, Config{Permissions: DenyAll{}})
	_, err := s.AddImage(context.Background(), "photo.png", solidPNG(t, 4, 4, color.NRGBA{R: 255, A: 255}), scene.AnchorTop)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	snap, _ := s.Snapshot()
	if len(snap.Layers) != 0 {
		t.Error("denied pick must not add a layer")
	}
}

func TestApplyFilter(t *testing.T) {
	s := newSession(t, Config{})
	ctx := context.Background()
	id, err := s.AddImage(ctx, "photo.png", solidPNG(t, 8, 8, color.NRGBA{R: 200, G: 40, B: 40, A: 255}), scene.AnchorTop)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.ApplyFilter(ctx, id, imageproc.FilterGrayscale); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	l := snap.Layers[0].(scene.ImageLayer)
	if l.Filter != "grayscale" || l.AssetRef == l.SourceRef {
		t.Fatalf("filter not applied: %+v", l)
	}
	img, err := s.Assets().Open(ctx, l.AssetRef)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := img.At(4, 4).RGBA()
	if r != g || g != b {
		t.Errorf("filtered pixel not gray: %d %d %d", r>>8, g>>8, b>>8)
	}

	// Filters always start from the source, so none restores it.
	if _, err := s.ApplyFilter(ctx, id, imageproc.FilterNone); err != nil {
		t.Fatal(err)
	}
	snap, _ = s.Snapshot()
	if l := snap.Layers[0].(scene.ImageLayer); l.AssetRef != l.SourceRef {
		t.Error("none should point back at the source")
	}

	warnings, err := s.ApplyFilter(ctx, id, "posterize")
	if err != nil || len(warnings) != 1 {
		t.Errorf("unknown filter: warnings=%v err=%v", warnings, err)
	}
}

func TestApplyFilterUndecodableSource(t *testing.T) {
	s := newSession(t, Config{})
	ctx := context.Background()
	id, err := s.AddImage(ctx, "broken.png", []byte("not an image"), scene.AnchorTop)
	if err != nil {
		t.Fatal(err)
	}
	warnings, err := s.ApplyFilter(ctx, id, imageproc.FilterSepia)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) == 0 {
		t.Error("expected a processing warning")
	}
	snap, _ := s.Snapshot()
	l := snap.Layers[0].(scene.ImageLayer)
	if l.AssetRef != l.SourceRef {
		t.Error("failed filter should keep the source")
	}
	if l.Filter != "none" {
		t.Errorf("filter = %q, want none", l.Filter)
	}
}

func TestApplyFilterMissingSource(t *testing.T) {
	s := newSession(t, Config{})
	ctx := context.Background()
	id, err := s.AddImageRef(ctx, "mem:nope", scene.AnchorTop)
	if err != nil {
		t.Fatal(err)
	}
	warnings, err := s.ApplyFilter(ctx, id, imageproc.FilterSepia)
	if err != nil {
		t.Fatalf("missing source should fail soft, got %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "fetch source") {
		t.Errorf("warnings = %v", warnings)
	}
	snap, _ := s.Snapshot()
	l := snap.Layers[0].(scene.ImageLayer)
	if l.Filter != "none" || l.AssetRef != "mem:nope" {
		t.Errorf("layer = %+v, want unfiltered source", l)
	}
}

func TestFilterAttributesOnlyThroughApplyFilter(t *testing.T) {
	s := newSession(t, Config{})
	ctx := context.Background()
	id, err := s.AddImage(ctx, "photo.png", solidPNG(t, 8, 8, color.NRGBA{R: 255, A: 255}), scene.AnchorTop)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateLayer(id, scene.AttrFilter, "sepia"); !errors.Is(err, scene.ErrUnknownAttribute) {
		t.Errorf("filter: expected ErrUnknownAttribute, got %v", err)
	}
	if err := s.UpdateLayer(id, scene.AttrAsset, "mem:other"); !errors.Is(err, scene.ErrUnknownAttribute) {
		t.Errorf("asset: expected ErrUnknownAttribute, got %v", err)
	}
	err = s.UpdateLayerAttributes(id, map[scene.Attribute]any{scene.AttrScale: 1.5, scene.AttrFilter: "blur"})
	if !errors.Is(err, scene.ErrUnknownAttribute) {
		t.Errorf("batch: expected ErrUnknownAttribute, got %v", err)
	}
	snap, _ := s.Snapshot()
	if l := snap.Layers[0].(scene.ImageLayer); l.Filter != "none" || l.Scale != 1 {
		t.Errorf("rejected updates changed the layer: %+v", l)
	}

	// Stickers swap their artwork directly.
	deco, err := s.AddDecoration("deco:star")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateLayer(deco, scene.AttrAsset, "deco:cake"); err != nil {
		t.Errorf("decoration asset: %v", err)
	}
}

// A Classic card with a message and a scaled grayscale photo on top.
func TestPreviewEndToEnd(t *testing.T) {
	s := newSession(t, Config{})
	ctx := context.Background()
	if _, err := s.SetMessage("Happy Birthday!"); err != nil {
		t.Fatal(err)
	}
	id, err := s.AddImage(ctx, "photo.png", solidPNG(t, 100, 100, color.NRGBA{R: 255, A: 255}), scene.AnchorTop)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateLayer(id, scene.AttrScale, 1.5); err != nil {
		t.Fatal(err)
	}
	if w, err := s.ApplyFilter(ctx, id, imageproc.FilterGrayscale); err != nil || len(w) != 0 {
		t.Fatalf("ApplyFilter: warnings=%v err=%v", w, err)
	}

	card, err := s.Preview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	img := card.Image
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 390 {
		t.Fatalf("canvas = %v, want 300x390", b)
	}
	if len(card.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", card.Warnings)
	}

	rgb := func(x, y int) (r, g, b uint8) {
		c := img.RGBAAt(x, y)
		return c.R, c.G, c.B
	}
	// Gold frame and white margin between the frame and the content.
	if r, g, b := rgb(2, 200); r < 0xf0 || g < 0xc8 || g > 0xe4 || b > 0x20 {
		t.Errorf("frame pixel = %02x%02x%02x, want gold", r, g, b)
	}
	if r, g, b := rgb(150, 378); r != 0xff || g != 0xff || b != 0xff {
		t.Errorf("margin pixel = %02x%02x%02x, want white", r, g, b)
	}

	// The photo is fitted to 158px in its 208px slot, so unscaled it spans
	// x 71..229. At 1.5 it reaches x 32..269.
	for _, x := range []int{40, 150, 260} {
		r, g, b := rgb(x, 100)
		if r != g || g != b || r > 200 {
			t.Errorf("photo pixel at x=%d = %02x%02x%02x, want gray", x, r, g, b)
		}
	}

	// Pink message text in the band below the photo.
	found := false
	for y := 230; y < 370 && !found; y++ {
		for x := 30; x < 270; x++ {
			if r, g, b := rgb(x, y); r > 0xe0 && g < 0xa0 && b > 0x80 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("no text pixels below the photo")
	}
}

// gatedStore blocks Fetch until released so a test can edit the scene
// while a filter is in flight.
type gatedStore struct {
	*assets.Library
	started chan struct{}
	release chan struct{}
}

func (g *gatedStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	close(g.started)
	<-g.release
	return g.Library.Fetch(ctx, ref)
}

func TestApplyFilterDiscardsStaleResult(t *testing.T) {
	store := &gatedStore{Library: assets.NewLibrary(), started: make(chan struct{}), release: make(chan struct{})}
	s := newSession(t, Config{Assets: store})
	ctx := context.Background()
	id, err := s.AddImage(ctx, "photo.png", solidPNG(t, 8, 8, color.NRGBA{B: 255, A: 255}), scene.AnchorTop)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.ApplyFilter(ctx, id, imageproc.FilterBlur)
		done <- err
	}()
	<-store.started
	if err := s.UpdateLayer(id, scene.AttrRotation, 90.0); err != nil {
		t.Fatal(err)
	}
	close(store.release)

	if err := <-done; !errors.Is(err, ErrStaleResult) {
		t.Fatalf("expected ErrStaleResult, got %v", err)
	}
	snap, _ := s.Snapshot()
	l := snap.Layers[0].(scene.ImageLayer)
	if l.Filter != "none" || l.AssetRef != l.SourceRef || l.Rotation != 90 {
		t.Errorf("stale result leaked into the scene: %+v", l)
	}
}

func TestPreviewCarriesVersion(t *testing.T) {
	s := newSession(t, Config{})
	if _, err := s.SetMessage("Happy Birthday!"); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()
	card, err := s.Preview(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if card.SceneID != snap.ID || card.SceneVersion != snap.Version {
		t.Errorf("card %s v%d, scene %s v%d", card.SceneID, card.SceneVersion, snap.ID, snap.Version)
	}
	if b := card.Image.Bounds(); b.Dx() != snap.Size.Width || b.Dy() != snap.Size.Height {
		t.Errorf("card bounds %v", b)
	}
}

func TestExportSingleFlight(t *testing.T) {
	s := newSession(t, Config{})
	s.exporting.Store(true)
	if _, err := s.Export(context.Background(), export.Options{}); !errors.Is(err, ErrExportInProgress) {
		t.Fatalf("expected ErrExportInProgress, got %v", err)
	}
	s.exporting.Store(false)

	h, err := s.Export(context.Background(), export.Options{Format: export.JPEG})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	if h.Format != export.JPEG || h.Size == 0 {
		t.Errorf("unexpected handle %+v", h)
	}
	if s.exporting.Load() {
		t.Error("busy flag not cleared")
	}
}

func TestSave(t *testing.T) {
	g := gallery.NewMemory()
	s := newSession(t, Config{Gallery: g})
	if _, err := s.SetMessage("Happy Birthday!"); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Snapshot()

	e, err := s.Save(context.Background(), export.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if e.MIME != "image/png" || e.SceneVersion != snap.Version {
		t.Errorf("entry %+v", e)
	}
	list, _ := g.List(context.Background())
	if len(list) != 1 {
		t.Errorf("gallery holds %d entries", len(list))
	}
}

func TestSaveDeniedStorage(t *testing.T) {
	perms := PermissionFunc(func(_ context.Context, a Access) (bool, error) {
		return a != AccessStorage, nil
	})
	g := gallery.NewMemory()
	s := newSession(t, Config{Permissions: perms, Gallery: g})
	if _, err := s.Save(context.Background(), export.Options{}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	list, _ := g.List(context.Background())
	if len(list) != 0 {
		t.Error("nothing should be saved")
	}
}
