package layout

import (
	"math"
	"reflect"
	"testing"

	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/scene"
)

func classic(t *testing.T) catalog.Template {
	t.Helper()
	tpl, err := catalog.TemplateByName("Classic")
	if err != nil {
		t.Fatal(err)
	}
	return tpl
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestResolveIsDeterministic(t *testing.T) {
	s := scene.New(classic(t), scene.Size{Width: 300, Height: 390})
	s.AddDecorationLayer("deco:star")
	img := s.AddImageLayer("mem:photo", scene.AnchorTop)
	s.AddTextLayer("Happy Birthday!", 24, scene.AnchorCenter)
	if err := s.UpdateLayerAttribute(img, scene.AttrRotation, 33); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()

	a, b := Resolve(snap), Resolve(snap)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two resolutions of one snapshot differ")
	}
}

func TestResolveContentArea(t *testing.T) {
	s := scene.New(classic(t), scene.Size{Width: 300, Height: 390})
	r := Resolve(s.Snapshot())

	// border 5 + padding 15
	want := Rect{X: 20, Y: 20, W: 260, H: 350}
	if r.Content != want {
		t.Errorf("content = %+v, want %+v", r.Content, want)
	}
	if r.Border.Width != 5 || r.Border.Paint.Kind != catalog.BorderSolid {
		t.Errorf("unexpected border %+v", r.Border)
	}
	if r.Background.Fill.Kind != catalog.FillSolid {
		t.Errorf("Classic background should be solid, got %+v", r.Background.Fill)
	}
}

func TestResolvePaintOrder(t *testing.T) {
	s := scene.New(classic(t), scene.Size{Width: 300, Height: 390})
	bottom := s.AddImageLayer("mem:b", scene.AnchorBottom)
	text := s.AddTextLayer("hello", 24, scene.AnchorCenter)
	deco := s.AddDecorationLayer("deco:heart")
	top := s.AddImageLayer("mem:a", scene.AnchorTop)
	text2 := s.AddTextLayer("again", 16, scene.AnchorTop)

	r := Resolve(s.Snapshot())
	var got []string
	for _, it := range r.Items {
		got = append(got, it.LayerID)
	}
	want := []string{deco, top, text, text2, bottom}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("paint order = %v, want %v", got, want)
	}
}

func TestResolveImageSlot(t *testing.T) {
	s := scene.New(classic(t), scene.Size{Width: 300, Height: 390})
	id := s.AddImageLayer("mem:a", scene.AnchorTop)
	if err := s.UpdateLayerAttribute(id, scene.AttrScale, 1.5); err != nil {
		t.Fatal(err)
	}
	r := Resolve(s.Snapshot())
	it := r.Items[0]

	// 80% of content width; min(60% canvas width, 45% content height).
	if !near(it.Slot.W, 208) || !near(it.Slot.H, 157.5) {
		t.Errorf("slot = %+v", it.Slot)
	}
	sx, sy := it.Slot.Center()
	rx, ry := it.Rect.Center()
	if !near(sx, rx) || !near(sy, ry) {
		t.Error("scaled rect must share the slot center")
	}
	if !near(it.Rect.W, it.Slot.W*1.5) {
		t.Errorf("rect width %v, want %v", it.Rect.W, it.Slot.W*1.5)
	}
}

func TestTransformsDoNotCompound(t *testing.T) {
	s := scene.New(classic(t), scene.Size{Width: 300, Height: 390})
	id := s.AddImageLayer("mem:a", scene.AnchorTop)

	set := func(rot, scale float64) Item {
		t.Helper()
		if err := s.UpdateLayerAttribute(id, scene.AttrRotation, rot); err != nil {
			t.Fatal(err)
		}
		if err := s.UpdateLayerAttribute(id, scene.AttrScale, scale); err != nil {
			t.Fatal(err)
		}
		return Resolve(s.Snapshot()).Items[0]
	}

	first := set(45, 1.5)
	set(90, 0.7)
	set(10, 2)
	again := set(45, 1.5)

	if first.Matrix != again.Matrix || first.Rect != again.Rect || first.Style != again.Style {
		t.Errorf("re-applying the same attributes gave a different result:\n%+v\n%+v", first, again)
	}
}

func TestSlotMatrixMapsCenter(t *testing.T) {
	slot := Rect{X: 10, Y: 20, W: 100, H: 50}
	m := SlotMatrix(slot, 90, 2)

	x, y := Apply(m, 50, 25)
	if !near(x, 60) || !near(y, 45) {
		t.Errorf("slot center mapped to (%v, %v)", x, y)
	}
	// Clockwise 90°: the slot's right-middle point moves below the center.
	x, y = Apply(m, 100, 25)
	if !near(x, 60) || !near(y, 145) {
		t.Errorf("right-middle mapped to (%v, %v)", x, y)
	}
}

func TestResolveDecorations(t *testing.T) {
	s := scene.New(classic(t), scene.Size{Width: 300, Height: 390})
	a := s.AddDecorationLayer("deco:star")
	s.AddDecorationLayerAt("deco:cake", 0.5, 0.5)
	r := Resolve(s.Snapshot())

	if r.Items[0].LayerID != a {
		t.Fatal("decorations keep insertion order")
	}
	auto, placed := r.Items[0].Rect, r.Items[1].Rect
	if auto.W != 50 || auto.H != 50 {
		t.Errorf("sticker size %vx%v, want 50x50", auto.W, auto.H)
	}
	if !near(auto.Y+auto.H, r.Content.Y+r.Content.H) {
		t.Errorf("auto-placed sticker should sit on the content bottom, got %+v", auto)
	}
	if cx, cy := placed.Center(); !near(cx, 150) || !near(cy, 195) {
		t.Errorf("placed sticker centered at (%v, %v)", cx, cy)
	}
}

func TestResolveGradientAndRainbow(t *testing.T) {
	grad, _ := catalog.TemplateByName("Gradient")
	r := Resolve(scene.New(grad, scene.Size{Width: 300, Height: 390}).Snapshot())
	if r.Background.Fill.Kind != catalog.FillLinear || r.Border.Width != 0 {
		t.Errorf("Gradient: fill %+v border %+v", r.Background.Fill, r.Border)
	}

	conf, _ := catalog.TemplateByName("Confetti")
	r = Resolve(scene.New(conf, scene.Size{Width: 300, Height: 390}).Snapshot())
	if r.Border.Paint.Kind != catalog.BorderRainbow || r.Background.Pattern != catalog.PatternConfetti {
		t.Errorf("Confetti: border %+v pattern %q", r.Border, r.Background.Pattern)
	}
}

func TestResolveBadColorsWarn(t *testing.T) {
	s := scene.New(classic(t), scene.Size{Width: 300, Height: 390})
	s.SetTextColor("not-a-color")
	s.AddTextLayer("x", 24, scene.AnchorCenter)
	r := Resolve(s.Snapshot())
	if len(r.Warnings) == 0 {
		t.Error("expected a warning for an unparseable text color")
	}
	if r.Items[0].Text.Color.A != 0xff {
		t.Error("fallback text color should be opaque")
	}
}
