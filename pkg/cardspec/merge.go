// merge.go — Merge data.json overrides onto card layer defaults.
package cardspec

import "sort"

// MergeData combines layer defaults with data overrides. Hidden layers are
// dropped and the rest are ordered by z-index, stable for ties.
func MergeData(card *Card, data *DataSpec) []ResolvedLayer {
	var result []ResolvedLayer

	for _, l := range card.Layers {
		merged := l.Defaults
		if data != nil {
			if over, ok := data.Layers[l.ID]; ok {
				mergeLayerData(&merged, over)
			}
		}
		if merged.Visible != nil && !*merged.Visible {
			continue
		}

		style := l.Style
		if merged.Style != nil {
			mergeLayerStyle(&style, *merged.Style)
		}

		result = append(result, ResolvedLayer{
			ID:     l.ID,
			Type:   l.Type,
			ZIndex: l.ZIndex,
			Anchor: l.Anchor,
			X:      l.X,
			Y:      l.Y,
			Style:  style,
			Data:   merged,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ZIndex < result[j].ZIndex
	})
	return result
}

func mergeLayerData(base *LayerData, over LayerData) {
	if over.Visible != nil {
		base.Visible = over.Visible
	}
	if over.Text != "" {
		base.Text = over.Text
	}
	if over.Source != "" {
		base.Source = over.Source
	}
	if over.Style != nil {
		base.Style = over.Style
	}
}

// mergeLayerStyle applies non-zero style overrides.
func mergeLayerStyle(base *LayerStyle, over LayerStyle) {
	if over.FontSize > 0 {
		base.FontSize = over.FontSize
	}
	if over.Color != "" {
		base.Color = over.Color
	}
	if over.Font != "" {
		base.Font = over.Font
	}
	if over.Filter != "" {
		base.Filter = over.Filter
	}
	if over.Rotation != 0 {
		base.Rotation = over.Rotation
	}
	if over.Scale > 0 {
		base.Scale = over.Scale
	}
	if over.BorderRadius > 0 {
		base.BorderRadius = over.BorderRadius
	}
	if over.BorderWidth > 0 {
		base.BorderWidth = over.BorderWidth
	}
	if over.BorderColor != "" {
		base.BorderColor = over.BorderColor
	}
}
