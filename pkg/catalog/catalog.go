// Package catalog holds the read-only registries a card is composed from:
// templates, palette colors, fonts, filters, decorations and canned messages.
//
// Every registry is populated at package init and never mutated afterwards.
// Accessors return copies so callers cannot alter shared state.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTemplate is returned when a template lookup finds no match.
var ErrUnknownTemplate = errors.New("unknown template")

// ── Template types ──

// Template is an immutable card background style.
type Template struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Background  string `json:"background"`  // "#rrggbb" or "linear-gradient(45deg, #a, #b)"
	BorderColor string `json:"borderColor"` // "#rrggbb", "transparent" or "#rainbow"
	BorderWidth int    `json:"borderWidth"`
	Pattern     string `json:"pattern,omitempty"` // "confetti", "vintage" or ""
}

// Pattern tags understood by the compositor.
const (
	PatternConfetti = "confetti"
	PatternVintage  = "vintage"
)

// defaultBorderWidth applies to templates that have a visible border color
// but no explicit width.
const defaultBorderWidth = 2

var templates = []Template{
	{ID: 1, Name: "Classic", Background: "#ffffff", BorderColor: "#ffd700", BorderWidth: 5},
	{ID: 2, Name: "Modern", Background: "#f0f0f0", BorderColor: "#ff69b4", BorderWidth: 3},
	{ID: 3, Name: "Minimal", Background: "#000000", BorderColor: "#ffffff", BorderWidth: 2},
	{ID: 4, Name: "Gradient", Background: "linear-gradient(45deg, #ff6b6b, #4ecdc4)", BorderColor: "transparent"},
	{ID: 5, Name: "Confetti", Background: "#ffffff", BorderColor: "#rainbow", Pattern: PatternConfetti},
	{ID: 6, Name: "Vintage", Background: "#f4e4bc", BorderColor: "#8b4513", Pattern: PatternVintage},
}

// Templates returns the template catalog in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// DefaultTemplate is the template a new card starts from.
func DefaultTemplate() Template {
	return templates[0]
}

// TemplateByName finds a template by case-insensitive name.
func TemplateByName(name string) (Template, error) {
	for _, t := range templates {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
}

// TemplateByID finds a template by catalog id.
func TemplateByID(id int) (Template, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: id %d", ErrUnknownTemplate, id)
}

// EffectiveBorderWidth returns the stroke width the template border is painted with.
// Invisible borders always report zero.
func (t Template) EffectiveBorderWidth() int {
	if ParseBorder(t.BorderColor).Kind == BorderNone {
		return 0
	}
	if t.BorderWidth > 0 {
		return t.BorderWidth
	}
	return defaultBorderWidth
}

// ── Palette ──

var palette = []string{
	"#ff69b4", "#ffd700", "#ff6347", "#4169e1", "#32cd32", "#9370db",
	"#ff4500", "#00ced1", "#ff8c00", "#4b0082", "#006400", "#8b0000",
}

// Palette returns the text color palette.
func Palette() []string {
	out := make([]string, len(palette))
	copy(out, palette)
	return out
}

// DefaultTextColor is the first palette entry.
func DefaultTextColor() string {
	return palette[0]
}

// ── Fonts ──

// FontDescriptor names a selectable font. Family identifies the face the
// font registry loads for it.
type FontDescriptor struct {
	Name   string `json:"name"`
	Family string `json:"family"`
}

// Font families backed by the embedded Go fonts.
const (
	FamilyRegular    = "goregular"
	FamilyMedium     = "gomedium"
	FamilyMono       = "gomono"
	FamilyItalic     = "goitalic"
	FamilyBoldItalic = "gobolditalic"
	FamilyBold       = "gobold"
)

var fonts = []FontDescriptor{
	{Name: "Regular", Family: FamilyRegular},
	{Name: "Serif", Family: FamilyMedium},
	{Name: "Monospace", Family: FamilyMono},
	{Name: "Dancing", Family: FamilyItalic},
	{Name: "Pacifico", Family: FamilyBoldItalic},
	{Name: "Montserrat", Family: FamilyBold},
}

// Fonts returns the font catalog.
func Fonts() []FontDescriptor {
	out := make([]FontDescriptor, len(fonts))
	copy(out, fonts)
	return out
}

// DefaultFont is the first font descriptor.
func DefaultFont() FontDescriptor {
	return fonts[0]
}

// FontByName finds a font descriptor by case-insensitive name.
func FontByName(name string) (FontDescriptor, bool) {
	for _, f := range fonts {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return FontDescriptor{}, false
}

// ── Filters ──

// FilterOption is a selectable image filter.
type FilterOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var filters = []FilterOption{
	{Name: "Normal", Value: "none"},
	{Name: "Grayscale", Value: "grayscale"},
	{Name: "Sepia", Value: "sepia"},
	{Name: "Blur", Value: "blur"},
	{Name: "Sharpen", Value: "sharpen"},
	{Name: "Contrast", Value: "contrast"},
}

// Filters returns the filter catalog.
func Filters() []FilterOption {
	out := make([]FilterOption, len(filters))
	copy(out, filters)
	return out
}

// ── Decorations ──

// Decoration is a bundled sticker. Ref is an asset reference resolvable by
// the asset store.
type Decoration struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Ref  string `json:"ref"`
}

var decorations = []Decoration{
	{ID: "balloon", Name: "Balloon", Ref: "deco:balloon"},
	{ID: "star", Name: "Star", Ref: "deco:star"},
	{ID: "heart", Name: "Heart", Ref: "deco:heart"},
	{ID: "cake", Name: "Cake", Ref: "deco:cake"},
}

// Decorations returns the bundled decoration catalog.
func Decorations() []Decoration {
	out := make([]Decoration, len(decorations))
	copy(out, decorations)
	return out
}

// ── Messages ──

var messages = []string{
	"Wishing you a day filled with joy and laughter! 🎉",
	"Another year older, another year wiser! 🎂",
	"May all your birthday wishes come true! 🌟",
	"Here's to another year of amazing adventures! 🎈",
	"Happy Birthday! Make it grand! 🎊",
	"Celebrating you today! 🥳",
	"May your day be as special as you are! ✨",
	"Cheers to another trip around the sun! 🥂",
}

// DefaultMessage is the text a new card starts with.
const DefaultMessage = "Happy Birthday!"

// QuickMessages returns the canned message list.
func QuickMessages() []string {
	out := make([]string, len(messages))
	copy(out, messages)
	return out
}

// QuickMessage returns the i-th canned message.
func QuickMessage(i int) (string, bool) {
	if i < 0 || i >= len(messages) {
		return "", false
	}
	return messages[i], true
}

// ── Canvas presets ──

// Presets maps preset names to [width, height]. Card presets keep the
// 1:1.3 portrait ratio of the editor canvas.
var Presets = map[string][2]int{
	"small":  {300, 390},
	"phone":  {600, 780},
	"print":  {1200, 1560},
	"square": {1080, 1080},
	"story":  {1080, 1920},
}
