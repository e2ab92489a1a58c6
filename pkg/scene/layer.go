// layer.go — Layer types held by a scene.
package scene

import "encoding/json"

// Kind identifies the type of a layer.
type Kind string

const (
	KindText       Kind = "text"
	KindImage      Kind = "image"
	KindDecoration Kind = "decoration"
)

// Anchor is a coarse placement directive resolved into a band of the canvas.
type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorCenter Anchor = "center"
	AnchorBottom Anchor = "bottom"
)

// Layer is one addressable visual element. Implementations are value types,
// so a Layer obtained from a scene is a detached copy.
type Layer interface {
	LayerID() string
	Kind() Kind
	Revision() uint64
}

// TextLayer is a block of text.
type TextLayer struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	FontSize float64 `json:"fontSize"`
	Color    string  `json:"color"`
	Font     string  `json:"font"` // font descriptor name
	Anchor   Anchor  `json:"anchor"`
	Rev      uint64  `json:"rev"`
}

func (l TextLayer) LayerID() string  { return l.ID }
func (l TextLayer) Kind() Kind       { return KindText }
func (l TextLayer) Revision() uint64 { return l.Rev }

// ImageLayer is a user photo. SourceRef is the unfiltered pick, AssetRef the
// filtered asset actually painted.
type ImageLayer struct {
	ID           string  `json:"id"`
	SourceRef    string  `json:"sourceRef"`
	AssetRef     string  `json:"assetRef"`
	Filter       string  `json:"filter"`
	Rotation     float64 `json:"rotation"`
	Scale        float64 `json:"scale"`
	BorderRadius float64 `json:"borderRadius"`
	BorderWidth  float64 `json:"borderWidth"`
	BorderColor  string  `json:"borderColor"`
	Anchor       Anchor  `json:"anchor"`
	Rev          uint64  `json:"rev"`
}

func (l ImageLayer) LayerID() string  { return l.ID }
func (l ImageLayer) Kind() Kind       { return KindImage }
func (l ImageLayer) Revision() uint64 { return l.Rev }

// DecorationLayer is a sticker. X and Y are the relative (0..1) center of
// the sticker; unplaced stickers are laid out automatically.
type DecorationLayer struct {
	ID       string  `json:"id"`
	AssetRef string  `json:"assetRef"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Placed   bool    `json:"placed"`
	Rev      uint64  `json:"rev"`
}

func (l DecorationLayer) LayerID() string  { return l.ID }
func (l DecorationLayer) Kind() Kind       { return KindDecoration }
func (l DecorationLayer) Revision() uint64 { return l.Rev }

// ── JSON ──

// Layers encode with their kind so clients can tell them apart.

func (l TextLayer) MarshalJSON() ([]byte, error) {
	type plain TextLayer
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindText, plain(l)})
}

func (l ImageLayer) MarshalJSON() ([]byte, error) {
	type plain ImageLayer
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindImage, plain(l)})
}

func (l DecorationLayer) MarshalJSON() ([]byte, error) {
	type plain DecorationLayer
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindDecoration, plain(l)})
}
