// text.go — Word wrapping and centered text drawing.
package compositor

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/xob0t/cardforge/pkg/layout"
	"github.com/xob0t/cardforge/pkg/scene"
)

// lineHeightRatio is the line advance as a multiple of the font size.
const lineHeightRatio = 1.3

// drawText renders a text item: wrapped to the item width, each line
// centered horizontally, the block aligned vertically per the item anchor.
func (c *Compositor) drawText(img *image.RGBA, it layout.Item) error {
	t := it.Text
	if t == nil || strings.TrimSpace(t.Content) == "" {
		return nil
	}

	face, err := c.fonts.Face(t.Font, t.FontSize)
	if err != nil {
		return err
	}
	defer face.Close()

	lines := wrapText(t.Content, int(it.Rect.W), face)
	lineHeight := t.FontSize * lineHeightRatio
	blockHeight := lineHeight * float64(len(lines))

	top := it.Rect.Y + (it.Rect.H-blockHeight)/2
	switch t.Align {
	case scene.AnchorTop:
		top = it.Rect.Y
	case scene.AnchorBottom:
		top = it.Rect.Y + it.Rect.H - blockHeight
	}

	m := face.Metrics()
	// Baseline offset that centers ascent+descent inside one line box.
	baseline := (lineHeight + float64(m.Ascent.Ceil()) - float64(m.Descent.Ceil())) / 2

	for i, line := range lines {
		advance := font.MeasureString(face, line).Ceil()
		x := int(it.Rect.X + (it.Rect.W-float64(advance))/2)
		y := int(top + float64(i)*lineHeight + baseline)
		drawString(img, line, x, y, t.Color, face)
	}
	return nil
}

// wrapText breaks text into lines that each fit within maxWidth pixels.
// Explicit newlines start a new line; blank lines are kept.
func wrapText(text string, maxWidth int, face font.Face) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		if maxWidth <= 0 {
			lines = append(lines, strings.Join(words, " "))
			continue
		}

		current := words[0]
		for _, word := range words[1:] {
			test := current + " " + word
			if font.MeasureString(face, test).Ceil() > maxWidth {
				lines = append(lines, current)
				current = word
			} else {
				current = test
			}
		}
		lines = append(lines, current)
	}
	return lines
}

// drawString draws text with its baseline at (x, y).
func drawString(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
