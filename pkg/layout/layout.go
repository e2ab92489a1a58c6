// Package layout resolves a scene snapshot into absolute, paint-ordered
// drawing instructions. Resolution is a pure function of the snapshot: the
// same snapshot always yields the same ResolvedScene.
package layout

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"golang.org/x/image/math/f64"

	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/scene"
)

// Proportions of the editor canvas.
const (
	paddingRatio    = 0.05 // of the short side
	slotWidthRatio  = 0.8  // of the content (or cell) width
	slotHeightRatio = 0.6  // of the canvas width
	slotMaxRatio    = 0.45 // of the content height
	decorationRatio = 1.0 / 6

	// Font sizes are given for a canvas of this width and scale with it.
	referenceWidth = 300.0
)

// Default image border color when a layer carries none.
var defaultImageBorder = color.NRGBA{A: 0xff}

// ── Resolved types ──

// Rect is an axis-aligned rectangle in canvas pixels.
type Rect struct {
	X, Y, W, H float64
}

// Center returns the rectangle's center point.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Inset shrinks the rectangle by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: math.Max(0, r.W-2*d), H: math.Max(0, r.H-2*d)}
}

// ScaleAbout scales the rectangle about its center.
func (r Rect) ScaleAbout(s float64) Rect {
	cx, cy := r.Center()
	w, h := r.W*s, r.H*s
	return Rect{X: cx - w/2, Y: cy - h/2, W: w, H: h}
}

// Background is the template fill plus an optional pattern overlay painted
// above the fill and below all layers.
type Background struct {
	Fill    catalog.Fill `json:"fill"`
	Pattern string       `json:"pattern,omitempty"`
}

// Border is the template frame.
type Border struct {
	Paint catalog.BorderPaint `json:"paint"`
	Width float64             `json:"width"`
}

// Text holds the resolved parameters of a text layer.
type Text struct {
	Content  string       `json:"content"`
	FontSize float64      `json:"fontSize"`
	Font     string       `json:"font"`
	Color    color.NRGBA  `json:"color"`
	Align    scene.Anchor `json:"align"` // vertical alignment inside the item rect
}

// Item is one layer resolved to canvas coordinates.
type Item struct {
	LayerID  string     `json:"layerId"`
	Kind     scene.Kind `json:"kind"`
	Rect     Rect       `json:"rect"` // final footprint before rotation
	Slot     Rect       `json:"slot"` // unscaled placement box
	AssetRef string     `json:"assetRef,omitempty"`

	// Matrix maps slot-local coordinates (origin at the slot's top-left) to
	// the canvas, including rotation and scale about the slot center.
	Matrix f64.Aff3        `json:"matrix"`
	Style  imageproc.Style `json:"style"`
	Text   *Text           `json:"text,omitempty"`
}

// ResolvedScene is the output of Resolve.
type ResolvedScene struct {
	SceneID    string     `json:"sceneId"`
	Version    uint64     `json:"version"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Background Background `json:"background"`
	Border     Border     `json:"border"`
	Content    Rect       `json:"content"`
	Items      []Item     `json:"items"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// ── Resolution ──

// paint buckets. Lower paints first.
const (
	bucketDecoration = iota
	bucketTopImage
	bucketText
	bucketBottomImage
)

type keyed struct {
	bucket int
	seq    int
	item   Item
}

// Resolve computes absolute geometry and paint order for a snapshot.
func Resolve(snap scene.Snapshot) ResolvedScene {
	w, h := float64(snap.Size.Width), float64(snap.Size.Height)
	out := ResolvedScene{
		SceneID: snap.ID,
		Version: snap.Version,
		Width:   snap.Size.Width,
		Height:  snap.Size.Height,
	}

	fill, err := catalog.ParseFill(snap.Template.Background)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("template %q background: %v, using white", snap.Template.Name, err))
		fill = catalog.Fill{Kind: catalog.FillSolid, Color: color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}}
	}
	out.Background = Background{Fill: fill, Pattern: snap.Template.Pattern}
	out.Border = Border{
		Paint: catalog.ParseBorder(snap.Template.BorderColor),
		Width: float64(snap.Template.EffectiveBorderWidth()),
	}

	short := math.Min(w, h)
	pad := math.Round(short * paddingRatio)
	content := Rect{W: w, H: h}.Inset(out.Border.Width + pad)
	out.Content = content

	var texts []scene.TextLayer
	var tops, bottoms []scene.ImageLayer
	var decos []scene.DecorationLayer
	for _, l := range snap.Layers {
		switch v := l.(type) {
		case scene.TextLayer:
			texts = append(texts, v)
		case scene.ImageLayer:
			if v.Anchor == scene.AnchorBottom {
				bottoms = append(bottoms, v)
			} else {
				tops = append(tops, v)
			}
		case scene.DecorationLayer:
			decos = append(decos, v)
		}
	}

	slotH := math.Min(w*slotHeightRatio, content.H*slotMaxRatio)
	gap := pad / 2

	var items []keyed
	textBand := content
	if len(tops) > 0 {
		band := Rect{X: content.X, Y: content.Y, W: content.W, H: slotH}
		items = append(items, imageRow(tops, band, bucketTopImage, &out.Warnings)...)
		textBand.Y += slotH + gap
		textBand.H -= slotH + gap
	}
	if len(bottoms) > 0 {
		band := Rect{X: content.X, Y: content.Y + content.H - slotH, W: content.W, H: slotH}
		items = append(items, imageRow(bottoms, band, bucketBottomImage, &out.Warnings)...)
		textBand.H -= slotH + gap
	}
	if textBand.H <= 0 && len(texts) > 0 {
		out.Warnings = append(out.Warnings, "canvas too small for a text band; text overlaps images")
		textBand = content
	}
	items = append(items, textColumn(texts, textBand, w/referenceWidth, &out.Warnings)...)
	items = append(items, decorationItems(decos, content, short)...)

	// Stable: insertion order survives within a bucket.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].bucket != items[j].bucket {
			return items[i].bucket < items[j].bucket
		}
		return items[i].seq < items[j].seq
	})
	out.Items = make([]Item, len(items))
	for i, k := range items {
		out.Items[i] = k.item
	}
	return out
}

// imageRow splits band horizontally between images in insertion order.
func imageRow(layers []scene.ImageLayer, band Rect, bucket int, warnings *[]string) []keyed {
	cellW := band.W / float64(len(layers))
	out := make([]keyed, 0, len(layers))
	for i, l := range layers {
		cell := Rect{X: band.X + float64(i)*cellW, Y: band.Y, W: cellW, H: band.H}
		slotW := cell.W * slotWidthRatio
		slot := Rect{X: cell.X + (cell.W-slotW)/2, Y: cell.Y, W: slotW, H: cell.H}

		borderColor := defaultImageBorder
		if l.BorderColor != "" {
			c, err := catalog.ParseColor(l.BorderColor)
			if err != nil {
				*warnings = append(*warnings, fmt.Sprintf("layer %s border color: %v", l.ID, err))
			} else {
				borderColor = c
			}
		}
		scale := l.Scale
		if scale == 0 {
			scale = 1
		}

		out = append(out, keyed{bucket: bucket, seq: i, item: Item{
			LayerID:  l.ID,
			Kind:     scene.KindImage,
			Slot:     slot,
			Rect:     slot.ScaleAbout(scale),
			AssetRef: l.AssetRef,
			Matrix:   SlotMatrix(slot, l.Rotation, scale),
			Style: imageproc.Style{
				Rotation:     l.Rotation,
				Scale:        scale,
				BorderRadius: l.BorderRadius,
				BorderWidth:  l.BorderWidth,
				BorderColor:  borderColor,
			},
		}})
	}
	return out
}

// textColumn splits band vertically between text layers. Font sizes are
// scaled to the canvas.
func textColumn(layers []scene.TextLayer, band Rect, scale float64, warnings *[]string) []keyed {
	if len(layers) == 0 {
		return nil
	}
	cellH := band.H / float64(len(layers))
	out := make([]keyed, 0, len(layers))
	for i, l := range layers {
		cell := Rect{X: band.X, Y: band.Y + float64(i)*cellH, W: band.W, H: cellH}
		c, err := catalog.ParseColor(l.Color)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("layer %s text color: %v", l.ID, err))
			c, _ = catalog.ParseColor(catalog.DefaultTextColor())
		}
		align := l.Anchor
		if align == "" {
			align = scene.AnchorCenter
		}
		out = append(out, keyed{bucket: bucketText, seq: i, item: Item{
			LayerID: l.ID,
			Kind:    scene.KindText,
			Slot:    cell,
			Rect:    cell,
			Matrix:  SlotMatrix(cell, 0, 1),
			Text: &Text{
				Content:  l.Content,
				FontSize: l.FontSize * scale,
				Font:     l.Font,
				Color:    c,
				Align:    align,
			},
		}})
	}
	return out
}

// decorationItems places stickers. Placed stickers are centered on their
// relative position within the canvas; unplaced ones fill rows from the
// bottom of the content area upwards.
func decorationItems(layers []scene.DecorationLayer, content Rect, short float64) []keyed {
	side := math.Round(short * decorationRatio)
	perRow := int(math.Max(1, math.Floor(content.W/side)))
	canvasW, canvasH := content.W+2*content.X, content.H+2*content.Y

	out := make([]keyed, 0, len(layers))
	auto := 0
	for i, l := range layers {
		var r Rect
		if l.Placed {
			r = Rect{X: l.X*canvasW - side/2, Y: l.Y*canvasH - side/2, W: side, H: side}
		} else {
			row, col := auto/perRow, auto%perRow
			r = Rect{
				X: content.X + float64(col)*side,
				Y: content.Y + content.H - float64(row+1)*side,
				W: side,
				H: side,
			}
			auto++
		}
		out = append(out, keyed{bucket: bucketDecoration, seq: i, item: Item{
			LayerID:  l.ID,
			Kind:     scene.KindDecoration,
			Slot:     r,
			Rect:     r,
			AssetRef: l.AssetRef,
			Matrix:   SlotMatrix(r, 0, 1),
		}})
	}
	return out
}

// SlotMatrix returns the affine map from slot-local coordinates to the
// canvas: scale and clockwise rotation (degrees) about the slot center.
// The matrix depends only on its arguments, so repeated resolution of the
// same attributes never compounds.
func SlotMatrix(slot Rect, rotation, scale float64) f64.Aff3 {
	cx, cy := slot.Center()
	rad := rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)
	a, b := scale*cos, -scale*sin
	d, e := scale*sin, scale*cos
	// translate(c) · R·S · translate(-w/2, -h/2)
	hx, hy := slot.W/2, slot.H/2
	return f64.Aff3{
		a, b, cx - a*hx - b*hy,
		d, e, cy - d*hx - e*hy,
	}
}

// Apply maps a slot-local point through m.
func Apply(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}
