// Package compositor rasterizes a resolved scene into a card image.
// It paints in a fixed order: background, pattern overlay, template frame,
// then layers in resolved paint order. Layers whose assets cannot be opened
// are skipped with a warning; the render itself still succeeds.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/layout"
	"github.com/xob0t/cardforge/pkg/scene"
)

// ErrFontsNotReady is returned when rendering is attempted before the font
// collaborator has signalled readiness.
var ErrFontsNotReady = errors.New("fonts not ready")

// Assets opens decoded images by asset reference.
type Assets interface {
	Open(ctx context.Context, ref string) (image.Image, error)
}

// RenderedCard is the output of one render. It is never cached.
type RenderedCard struct {
	Image        *image.RGBA
	SceneID      string
	SceneVersion uint64
	Warnings     []string
}

// Compositor renders resolved scenes. It holds no per-render state and may
// be shared between goroutines.
type Compositor struct {
	fonts  Fonts
	assets Assets
}

// New creates a compositor backed by the given collaborators.
func New(fonts Fonts, assets Assets) *Compositor {
	return &Compositor{fonts: fonts, assets: assets}
}

// Render paints rs onto a fresh canvas.
func (c *Compositor) Render(ctx context.Context, rs layout.ResolvedScene) (*RenderedCard, error) {
	select {
	case <-c.fonts.Ready():
	default:
		return nil, ErrFontsNotReady
	}
	if rs.Width <= 0 || rs.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", rs.Width, rs.Height)
	}

	log := logrus.WithField("scene_id", rs.SceneID)
	card := &RenderedCard{
		Image:        image.NewRGBA(image.Rect(0, 0, rs.Width, rs.Height)),
		SceneID:      rs.SceneID,
		SceneVersion: rs.Version,
		Warnings:     append([]string(nil), rs.Warnings...),
	}

	if err := drawBackground(card.Image, rs.Background.Fill); err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	known, err := drawPattern(card.Image, rs.Background.Pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", rs.Background.Pattern, err)
	}
	if !known {
		card.Warnings = append(card.Warnings, fmt.Sprintf("unknown pattern %q ignored", rs.Background.Pattern))
	}
	drawBorder(card.Image, rs.Border)

	for _, it := range rs.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry := log.WithField("layer_id", it.LayerID)

		var err error
		switch it.Kind {
		case scene.KindText:
			if err = c.drawText(card.Image, it); err != nil {
				entry = entry.WithField("font", it.Text.Font)
			}
		case scene.KindImage, scene.KindDecoration:
			if err = c.drawAsset(ctx, card.Image, it); err != nil {
				entry = entry.WithField("asset_ref", it.AssetRef)
			}
		}
		if err != nil {
			entry.WithError(err).Warn("layer skipped")
			card.Warnings = append(card.Warnings, fmt.Sprintf("layer %s skipped: %v", it.LayerID, err))
		}
	}

	return card, nil
}

// drawAsset paints an image or decoration layer: the asset is fitted into
// the slot, styled, and centered on the slot center.
func (c *Compositor) drawAsset(ctx context.Context, img *image.RGBA, it layout.Item) error {
	if it.AssetRef == "" {
		return errors.New("layer has no asset")
	}
	src, err := c.assets.Open(ctx, it.AssetRef)
	if err != nil {
		return err
	}

	var out image.Image = fitInto(src, it.Slot.W, it.Slot.H)
	if it.Kind == scene.KindImage {
		out = imageproc.Transform(out, it.Style)
	}

	b := out.Bounds()
	cx, cy := it.Slot.Center()
	at := image.Pt(
		int(math.Round(cx-float64(b.Dx())/2)),
		int(math.Round(cy-float64(b.Dy())/2)),
	)
	draw.Draw(img, b.Sub(b.Min).Add(at), out, b.Min, draw.Over)
	return nil
}

// fitInto scales src to the largest size that fits w×h keeping its aspect
// ratio, up or down.
func fitInto(src image.Image, w, h float64) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || w < 1 || h < 1 {
		return imaging.Clone(src)
	}
	ratio := math.Min(w/float64(b.Dx()), h/float64(b.Dy()))
	nw := max(1, int(math.Round(float64(b.Dx())*ratio)))
	nh := max(1, int(math.Round(float64(b.Dy())*ratio)))
	if nw == b.Dx() && nh == b.Dy() {
		return imaging.Clone(src)
	}
	return imaging.Resize(src, nw, nh, imaging.Lanczos)
}
