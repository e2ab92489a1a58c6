// Package cardspec describes cards as JSON documents: a card file lists the
// template, canvas and layers, and an optional data file overrides layer
// content by id without touching layout.
package cardspec

// ── Card types ──

// Card is the top-level structure of a card.json file.
type Card struct {
	Meta      Meta        `json:"meta"`
	Canvas    Canvas      `json:"canvas"`
	Template  string      `json:"template"`  // catalog template name
	TextColor string      `json:"textColor"` // selection applied to new text layers
	Font      string      `json:"font"`      // catalog font name
	Layers    []LayerSpec `json:"layers"`
	Schema    Schema      `json:"schema"`

	// baseDir resolves relative image sources. Set by the loader.
	baseDir string
}

// Meta holds card metadata.
type Meta struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// Canvas defines output dimensions. Preset overrides explicit Width/Height.
type Canvas struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Preset string `json:"preset"`
}

// ── Layer types ──

// LayerSpec is one layer of the card. The id names it for data overrides;
// the engine assigns its own layer ids.
type LayerSpec struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`             // "text", "image" or "decoration"
	ZIndex   int        `json:"zIndex"`           // insertion order (lower first)
	Anchor   string     `json:"anchor,omitempty"` // text: top|center|bottom, image: top|bottom
	X        *float64   `json:"x,omitempty"`      // decoration center, relative 0.0–1.0
	Y        *float64   `json:"y,omitempty"`
	Style    LayerStyle `json:"style"`
	Defaults LayerData  `json:"defaults"`
}

// LayerStyle is the visual state of a layer. Zero values keep the engine
// defaults.
type LayerStyle struct {
	FontSize     float64 `json:"fontSize,omitempty"`
	Color        string  `json:"color,omitempty"`
	Font         string  `json:"font,omitempty"`
	Filter       string  `json:"filter,omitempty"`
	Rotation     float64 `json:"rotation,omitempty"` // degrees clockwise
	Scale        float64 `json:"scale,omitempty"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
	BorderWidth  float64 `json:"borderWidth,omitempty"`
	BorderColor  string  `json:"borderColor,omitempty"`
}

// LayerData holds the content and visibility of a layer. Used both as
// defaults in card.json and as overrides in data.json.
type LayerData struct {
	Visible *bool       `json:"visible,omitempty"` // nil = inherit default (true)
	Text    string      `json:"text,omitempty"`
	Source  string      `json:"source,omitempty"` // file path, URL, "deco:<id>" or "qr:<text>"
	Style   *LayerStyle `json:"style,omitempty"`  // per-layer style override
}

// ── Data types ──

// DataSpec is the top-level structure of data.json.
type DataSpec struct {
	Layers map[string]LayerData `json:"layers"`
}

// ── Schema types ──

// Schema documents which layers a data file may override.
type Schema struct {
	Description string                 `json:"description"`
	Layers      map[string]SchemaLayer `json:"layers"`
}

// SchemaLayer documents one layer's editable fields.
type SchemaLayer struct {
	Description string            `json:"description"`
	Fields      map[string]string `json:"fields"` // field name → description
}

// ── Resolved types ──

// ResolvedLayer is a layer with defaults and overrides merged, ready to be
// added to a scene.
type ResolvedLayer struct {
	ID     string
	Type   string
	ZIndex int
	Anchor string
	X, Y   *float64
	Style  LayerStyle
	Data   LayerData
}
