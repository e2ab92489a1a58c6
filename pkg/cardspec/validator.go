// validator.go — Check cards and data files against the catalogs.
package cardspec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/imageproc"
)

// Validate reports problems in a card as warnings. Nothing here is fatal:
// Apply skips or defaults whatever is flagged.
func Validate(card *Card) []string {
	var warnings []string

	if _, err := catalog.TemplateByName(card.Template); err != nil {
		warnings = append(warnings, fmt.Sprintf("%v, using %s", err, catalog.DefaultTemplate().Name))
	}
	if card.Canvas.Preset != "" {
		if _, ok := catalog.Presets[card.Canvas.Preset]; !ok {
			warnings = append(warnings, fmt.Sprintf("unknown canvas preset %q", card.Canvas.Preset))
		}
	}
	if _, err := catalog.ParseColor(card.TextColor); err != nil {
		warnings = append(warnings, fmt.Sprintf("text color: %v", err))
	}
	if _, ok := catalog.FontByName(card.Font); !ok {
		warnings = append(warnings, fmt.Sprintf("unknown font %q", card.Font))
	}

	seen := make(map[string]struct{}, len(card.Layers))
	for i, l := range card.Layers {
		name := l.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		} else if _, dup := seen[l.ID]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate layer id %q, data overrides hit the first", l.ID))
		}
		seen[l.ID] = struct{}{}

		switch l.Type {
		case "text", "image", "decoration":
		default:
			warnings = append(warnings, fmt.Sprintf("layer %s: unknown type %q, ignored", name, l.Type))
			continue
		}
		if l.Type != "text" && l.Defaults.Source == "" {
			warnings = append(warnings, fmt.Sprintf("layer %s: no source", name))
		}
		if f := l.Style.Filter; f != "" && !imageproc.FilterKind(f).Known() {
			warnings = append(warnings, fmt.Sprintf("layer %s: unknown filter %q", name, f))
		}
		if c := l.Style.Color; c != "" {
			if _, err := catalog.ParseColor(c); err != nil {
				warnings = append(warnings, fmt.Sprintf("layer %s: color: %v", name, err))
			}
		}
	}
	return warnings
}

// ValidateData checks that data.json references only known layer ids.
func ValidateData(data *DataSpec, card *Card) []string {
	if data == nil {
		return nil
	}
	known := make(map[string]struct{}, len(card.Layers))
	for _, l := range card.Layers {
		known[l.ID] = struct{}{}
	}

	var warnings []string
	for id := range data.Layers {
		if _, ok := known[id]; !ok {
			warnings = append(warnings, fmt.Sprintf("data references unknown layer %q, ignored", id))
		}
	}
	sort.Strings(warnings)
	return warnings
}

// FormatSchema returns a human-readable description of the card's schema.
func FormatSchema(card *Card) string {
	if card.Schema.Description == "" && len(card.Schema.Layers) == 0 {
		return "This card has no schema documentation.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Card: %s (v%s) by %s\n", card.Meta.Name, card.Meta.Version, card.Meta.Author)
	if card.Meta.Description != "" {
		b.WriteString(card.Meta.Description + "\n")
	}
	b.WriteString("\n")
	if card.Schema.Description != "" {
		b.WriteString(card.Schema.Description + "\n\n")
	}

	ids := make([]string, 0, len(card.Schema.Layers))
	for id := range card.Schema.Layers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	b.WriteString("Layers:\n")
	for _, id := range ids {
		sl := card.Schema.Layers[id]
		fmt.Fprintf(&b, "\n  [%s] %s\n", id, sl.Description)
		fields := make([]string, 0, len(sl.Fields))
		for f := range sl.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(&b, "    %-12s %s\n", f+":", sl.Fields[f])
		}
	}
	return b.String()
}
