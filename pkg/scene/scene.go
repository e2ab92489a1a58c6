// Package scene holds the editable, ordered layer model of a single card.
//
// A Scene is not safe for concurrent use; callers serialize access (the
// engine session owns one scene behind its own lock). Snapshots are
// immutable copies and may be shared freely.
package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/xob0t/cardforge/pkg/catalog"
)

var (
	ErrLayerNotFound    = errors.New("layer not found")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrInvalidValue     = errors.New("invalid attribute value")
)

// Size is the canvas size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Scene is the mutable card model.
type Scene struct {
	id        string
	template  catalog.Template
	size      Size
	layers    []Layer
	textColor string
	font      string
	version   uint64
}

// New creates an empty scene with the given template and canvas size.
// A zero size falls back to the "small" preset.
func New(tpl catalog.Template, size Size) *Scene {
	if size.Width <= 0 || size.Height <= 0 {
		p := catalog.Presets["small"]
		size = Size{Width: p[0], Height: p[1]}
	}
	return &Scene{
		id:        uuid.NewString(),
		template:  tpl,
		size:      size,
		textColor: catalog.DefaultTextColor(),
		font:      catalog.DefaultFont().Name,
		version:   1,
	}
}

func (s *Scene) ID() string                 { return s.id }
func (s *Scene) Template() catalog.Template { return s.template }
func (s *Scene) Size() Size                 { return s.size }
func (s *Scene) TextColor() string          { return s.textColor }
func (s *Scene) Font() string               { return s.font }

// Version increases on every mutation.
func (s *Scene) Version() uint64 { return s.version }

func (s *Scene) touch() { s.version++ }

// ── Adding layers ──────────────────────────────────────────────

// AddTextLayer appends a text layer using the current color and font selection.
func (s *Scene) AddTextLayer(content string, fontSize float64, anchor Anchor) string {
	if anchor == "" {
		anchor = AnchorCenter
	}
	l := TextLayer{
		ID:       uuid.NewString(),
		Content:  content,
		FontSize: clamp(fontSize, MinFontSize, MaxFontSize),
		Color:    s.textColor,
		Font:     s.font,
		Anchor:   anchor,
		Rev:      1,
	}
	s.layers = append(s.layers, l)
	s.touch()
	return l.ID
}

// AddImageLayer appends an image layer with neutral style. sourceRef is the
// unfiltered asset; it is also painted until a filter replaces AssetRef.
func (s *Scene) AddImageLayer(sourceRef string, anchor Anchor) string {
	if anchor != AnchorBottom {
		anchor = AnchorTop
	}
	l := ImageLayer{
		ID:        uuid.NewString(),
		SourceRef: sourceRef,
		AssetRef:  sourceRef,
		Filter:    "none",
		Scale:     1,
		Anchor:    anchor,
		Rev:       1,
	}
	s.layers = append(s.layers, l)
	s.touch()
	return l.ID
}

// AddDecorationLayer appends a sticker. Without an explicit position it is laid
// out automatically.
func (s *Scene) AddDecorationLayer(assetRef string) string {
	l := DecorationLayer{ID: uuid.NewString(), AssetRef: assetRef, Rev: 1}
	s.layers = append(s.layers, l)
	s.touch()
	return l.ID
}

// AddDecorationLayerAt appends a sticker centered at the relative position (x, y).
func (s *Scene) AddDecorationLayerAt(assetRef string, x, y float64) string {
	l := DecorationLayer{
		ID:       uuid.NewString(),
		AssetRef: assetRef,
		X:        clamp(x, 0, 1),
		Y:        clamp(y, 0, 1),
		Placed:   true,
		Rev:      1,
	}
	s.layers = append(s.layers, l)
	s.touch()
	return l.ID
}

// ── Updating layers ────────────────────────────────────────────

func (s *Scene) index(id string) (int, error) {
	for i, l := range s.layers {
		if l.LayerID() == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrLayerNotFound, id)
}

// UpdateLayerAttribute changes a single attribute of a layer, leaving the others
// untouched. Numeric values are clamped into range rather than rejected.
// A failed update leaves the layer unchanged.
func (s *Scene) UpdateLayerAttribute(id string, attr Attribute, value any) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	var next Layer
	switch l := s.layers[i].(type) {
	case TextLayer:
		err = applyText(&l, attr, value)
		l.Rev++
		next = l
	case ImageLayer:
		err = applyImage(&l, attr, value)
		l.Rev++
		next = l
	case DecorationLayer:
		err = applyDecoration(&l, attr, value)
		l.Rev++
		next = l
	}
	if err != nil {
		return err
	}
	s.layers[i] = next
	s.touch()
	return nil
}

// UpdateLayerAttributes applies several attributes in order. It is atomic:
// if any attribute fails, the layer and the scene version are restored.
func (s *Scene) UpdateLayerAttributes(id string, attrs map[Attribute]any, order []Attribute) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	prev, version := s.layers[i], s.version
	for _, a := range order {
		v, ok := attrs[a]
		if !ok {
			continue
		}
		if err := s.UpdateLayerAttribute(id, a, v); err != nil {
			s.layers[i], s.version = prev, version
			return fmt.Errorf("%s: %w", a, err)
		}
	}
	return nil
}

// ReplaceText replaces the content of a text layer entirely.
func (s *Scene) ReplaceText(id, content string) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	l, ok := s.layers[i].(TextLayer)
	if !ok {
		return fmt.Errorf("%w: %s is not a text layer", ErrUnknownAttribute, id)
	}
	l.Content = content
	l.Rev++
	s.layers[i] = l
	s.touch()
	return nil
}

// RemoveLayer deletes a layer, keeping the order of the rest.
func (s *Scene) RemoveLayer(id string) error {
	i, err := s.index(id)
	if err != nil {
		return err
	}
	s.layers = append(s.layers[:i], s.layers[i+1:]...)
	s.touch()
	return nil
}

// ClearDecorations removes every decoration layer.
func (s *Scene) ClearDecorations() int {
	kept := s.layers[:0]
	removed := 0
	for _, l := range s.layers {
		if l.Kind() == KindDecoration {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	for i := len(kept); i < len(s.layers); i++ {
		s.layers[i] = nil
	}
	s.layers = kept
	if removed > 0 {
		s.touch()
	}
	return removed
}

// ── Scene-wide selection ───────────────────────────────────────

// SetTemplate switches the card template. Layers are kept.
func (s *Scene) SetTemplate(tpl catalog.Template) {
	s.template = tpl
	s.touch()
}

// SetTextColor changes the active text color. It applies to the most
// recently added text layer and to text layers added later.
func (s *Scene) SetTextColor(c string) {
	s.textColor = c
	if i := s.activeIndex(KindText); i >= 0 {
		l := s.layers[i].(TextLayer)
		l.Color = c
		l.Rev++
		s.layers[i] = l
	}
	s.touch()
}

// SetFont changes the active font by descriptor name, with the same scope
// as SetTextColor.
func (s *Scene) SetFont(name string) {
	s.font = name
	if i := s.activeIndex(KindText); i >= 0 {
		l := s.layers[i].(TextLayer)
		l.Font = name
		l.Rev++
		s.layers[i] = l
	}
	s.touch()
}

// ── Queries ────────────────────────────────────────────────────

func (s *Scene) activeIndex(k Kind) int {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if s.layers[i].Kind() == k {
			return i
		}
	}
	return -1
}

// Layer returns a copy of the layer with the given id.
func (s *Scene) Layer(id string) (Layer, error) {
	i, err := s.index(id)
	if err != nil {
		return nil, err
	}
	return s.layers[i], nil
}

// Layers returns a copy of the layers in insertion order.
func (s *Scene) Layers() []Layer {
	return append([]Layer(nil), s.layers...)
}

// ActiveText returns the most recently added text layer.
func (s *Scene) ActiveText() (TextLayer, bool) {
	if i := s.activeIndex(KindText); i >= 0 {
		return s.layers[i].(TextLayer), true
	}
	return TextLayer{}, false
}

// ActiveImage returns the most recently added image layer.
func (s *Scene) ActiveImage() (ImageLayer, bool) {
	if i := s.activeIndex(KindImage); i >= 0 {
		return s.layers[i].(ImageLayer), true
	}
	return ImageLayer{}, false
}

// ── Snapshots ──────────────────────────────────────────────────

// Snapshot is an immutable copy of a scene at one version.
type Snapshot struct {
	ID        string           `json:"id"`
	Version   uint64           `json:"version"`
	Template  catalog.Template `json:"template"`
	Size      Size             `json:"size"`
	TextColor string           `json:"textColor"`
	Font      string           `json:"font"`
	Layers    []Layer          `json:"layers"`
}

// Snapshot copies the current state. Later mutations do not affect it.
func (s *Scene) Snapshot() Snapshot {
	return Snapshot{
		ID:        s.id,
		Version:   s.version,
		Template:  s.template,
		Size:      s.size,
		TextColor: s.textColor,
		Font:      s.font,
		Layers:    s.Layers(),
	}
}
