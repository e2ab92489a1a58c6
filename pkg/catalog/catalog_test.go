package catalog

import (
	"errors"
	"image/color"
	"testing"
)

func TestTemplateByName(t *testing.T) {
	tpl, err := TemplateByName("classic")
	if err != nil {
		t.Fatalf("TemplateByName: %v", err)
	}
	if tpl.ID != 1 || tpl.Background != "#ffffff" {
		t.Errorf("unexpected template %+v", tpl)
	}

	_, err = TemplateByName("Neon")
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Errorf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestTemplatesReturnsCopy(t *testing.T) {
	ts := Templates()
	ts[0].Name = "Changed"
	if DefaultTemplate().Name != "Classic" {
		t.Error("catalog mutated through returned slice")
	}
}

func TestEffectiveBorderWidth(t *testing.T) {
	cases := map[string]int{
		"Classic":  5,
		"Gradient": 0,
		"Confetti": defaultBorderWidth,
		"Vintage":  defaultBorderWidth,
	}
	for name, want := range cases {
		tpl, err := TemplateByName(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := tpl.EffectiveBorderWidth(); got != want {
			t.Errorf("%s: border width = %d, want %d", name, got, want)
		}
	}
}

func TestParseBorder(t *testing.T) {
	cases := []struct {
		in   string
		kind BorderKind
	}{
		{"transparent", BorderNone},
		{"", BorderNone},
		{"#rainbow", BorderRainbow},
		{"rainbow", BorderRainbow},
		{"#8b4513", BorderSolid},
		{"not-a-color", BorderNone},
	}
	for _, tc := range cases {
		if got := ParseBorder(tc.in).Kind; got != tc.kind {
			t.Errorf("ParseBorder(%q) = %v, want %v", tc.in, got, tc.kind)
		}
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ffd700")
	if err != nil {
		t.Fatal(err)
	}
	if c != (color.NRGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}) {
		t.Errorf("got %v", c)
	}

	c, err = ParseColor("#16213e80")
	if err != nil {
		t.Fatal(err)
	}
	if c.A != 0x80 || c.B != 0x3e {
		t.Errorf("alpha parse: got %v", c)
	}

	if _, err := ParseColor("#12"); err == nil {
		t.Error("expected error for short color")
	}
}

func TestParseFill(t *testing.T) {
	f, err := ParseFill("#f4e4bc")
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != FillSolid || f.Color != (color.NRGBA{R: 0xf4, G: 0xe4, B: 0xbc, A: 0xff}) {
		t.Errorf("solid fill: %+v", f)
	}

	f, err = ParseFill("linear-gradient(45deg, #ff6b6b, #4ecdc4)")
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != FillLinear || f.Angle != 45 || len(f.Stops) != 2 {
		t.Fatalf("gradient fill: %+v", f)
	}
	if f.Stops[1] != (color.NRGBA{R: 0x4e, G: 0xcd, B: 0xc4, A: 0xff}) {
		t.Errorf("second stop: %v", f.Stops[1])
	}

	if _, err := ParseFill("linear-gradient(45deg)"); err == nil {
		t.Error("expected error for gradient without stops")
	}
}

func TestRainbowWraps(t *testing.T) {
	if Rainbow(0) != Rainbow(1) {
		t.Error("rainbow should wrap at t=1")
	}
	if Rainbow(0) == Rainbow(0.5) {
		t.Error("rainbow should vary with t")
	}
}

func TestQuickMessage(t *testing.T) {
	if _, ok := QuickMessage(len(QuickMessages())); ok {
		t.Error("out of range message should not resolve")
	}
	m, ok := QuickMessage(0)
	if !ok || m == "" {
		t.Error("first message should resolve")
	}
}
