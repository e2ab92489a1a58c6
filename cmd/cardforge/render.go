// render.go — Card and quick-mode rendering to a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/cardspec"
	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/engine"
	"github.com/xob0t/cardforge/pkg/export"
	"github.com/xob0t/cardforge/pkg/gallery"
	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/scene"
)

type renderOptions struct {
	output   string
	cardPath string
	dataPath string

	template string
	preset   string
	message  string
	quick    int
	photo    string
	filter   string
	stickers string
	color    string
	font     string

	format  string
	quality int
	save    bool

	fontDir  string
	assetDir string
}

func runRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cardforge", flag.ExitOnError)

	var o renderOptions
	fs.StringVar(&o.output, "o", "", "Output file path")
	fs.StringVar(&o.output, "output", "", "Output file path")
	fs.StringVar(&o.cardPath, "card", "", "Path to card JSON or .cardzip bundle")
	fs.StringVar(&o.dataPath, "data", "", "Path to data.json (optional)")
	fs.StringVar(&o.template, "template", catalog.DefaultTemplate().Name, "Template name")
	fs.StringVar(&o.preset, "preset", "small", "Canvas preset")
	fs.StringVar(&o.message, "message", catalog.DefaultMessage, "Card message")
	fs.IntVar(&o.quick, "quick", -1, "Quick message index")
	fs.StringVar(&o.photo, "photo", "", "Photo file or asset reference")
	fs.StringVar(&o.filter, "filter", "", "Photo filter")
	fs.StringVar(&o.stickers, "stickers", "", "Comma-separated decoration references")
	fs.StringVar(&o.color, "color", "", "Text color")
	fs.StringVar(&o.font, "font", "", "Font name")
	fs.StringVar(&o.format, "format", "", "Output format (default: from extension)")
	fs.IntVar(&o.quality, "quality", export.DefaultQuality, "JPEG quality")
	fs.BoolVar(&o.save, "save", false, "Also save to the gallery")
	fs.StringVar(&o.fontDir, "fonts", os.Getenv("FONT_DIR"), "Directory of TTF/OTF font overrides")
	fs.StringVar(&o.assetDir, "assets", os.Getenv("ASSET_DIR"), "Directory served as dir:<path> assets")
	logLevel := logFlag(fs)

	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setLogLevel(*logLevel); err != nil {
		return err
	}
	if o.output == "" {
		printUsage()
		return fmt.Errorf("output file is required (-o)")
	}

	format := o.format
	if format == "" {
		format = filepath.Ext(o.output)
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	opts := export.Options{Format: f, Quality: o.quality}

	fonts, err := loadFonts(o.fontDir)
	if err != nil {
		return err
	}
	cfg := engine.Config{
		Assets:      newAssets(o.assetDir, true),
		Fonts:       fonts,
		Permissions: engine.AllowAll{},
	}
	if o.save {
		g, err := gallery.GetGallery(ctx)
		if err != nil {
			return err
		}
		cfg.Gallery = g
	}
	s, err := engine.NewSession(cfg)
	if err != nil {
		return err
	}

	if o.cardPath != "" {
		err = buildFromCard(ctx, s, o)
	} else {
		err = buildQuick(ctx, s, o)
	}
	if err != nil {
		return err
	}

	card, err := s.Preview(ctx)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	warn(card.Warnings)

	h, err := s.Export(ctx, opts)
	if err != nil {
		return err
	}
	if err := moveExport(h, o.output); err != nil {
		return err
	}
	fmt.Printf("Done: %s\n", o.output)

	if o.save {
		entry, err := s.Save(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Printf("Saved: %s\n", entry.Location)
	}
	return nil
}

func buildFromCard(ctx context.Context, s *engine.Session, o renderOptions) error {
	card, cleanup, err := cardspec.LoadCard(o.cardPath)
	if err != nil {
		return fmt.Errorf("load card: %w", err)
	}
	defer cleanup()
	warn(cardspec.Validate(card))

	var data *cardspec.DataSpec
	if o.dataPath != "" {
		var warnings []string
		data, warnings, err = cardspec.LoadData(o.dataPath)
		if err != nil {
			return fmt.Errorf("load data: %w", err)
		}
		warn(warnings)
		warn(cardspec.ValidateData(data, card))
	}

	fmt.Printf("Rendering card: %s\n", card.Meta.Name)
	warnings, err := cardspec.Apply(ctx, s, card, cardspec.MergeData(card, data))
	warn(warnings)
	return err
}

func buildQuick(ctx context.Context, s *engine.Session, o renderOptions) error {
	tpl, err := catalog.TemplateByName(o.template)
	if err != nil {
		return err
	}
	dims, ok := catalog.Presets[o.preset]
	if !ok {
		return fmt.Errorf("unknown preset %q", o.preset)
	}
	s.CreateScene(scene.Size{Width: dims[0], Height: dims[1]}, tpl)

	if o.color != "" {
		if err := s.SetTextColor(o.color); err != nil {
			return err
		}
	}
	if o.font != "" {
		if err := s.SetFont(o.font); err != nil {
			return err
		}
	}

	if o.photo != "" {
		id, err := addPhoto(ctx, s, o.photo)
		if err != nil {
			return err
		}
		if o.filter != "" {
			w, err := s.ApplyFilter(ctx, id, imageproc.FilterKind(o.filter))
			warn(w)
			if err != nil {
				return err
			}
		}
	}

	if o.quick >= 0 {
		_, err = s.UseQuickMessage(o.quick)
	} else {
		_, err = s.SetMessage(o.message)
	}
	if err != nil {
		return err
	}

	for _, ref := range strings.Split(o.stickers, ",") {
		if ref = strings.TrimSpace(ref); ref == "" {
			continue
		}
		if !strings.Contains(ref, ":") {
			ref = "deco:" + ref
		}
		if _, err := s.AddDecoration(ref); err != nil {
			return err
		}
	}
	return nil
}

// addPhoto reads a local file, or passes anything else through as an
// asset reference.
func addPhoto(ctx context.Context, s *engine.Session, photo string) (string, error) {
	if data, err := os.ReadFile(photo); err == nil {
		return s.AddImage(ctx, filepath.Base(photo), data, scene.AnchorTop)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read photo: %w", err)
	}
	return s.AddImageRef(ctx, photo, scene.AnchorTop)
}

// moveExport takes ownership of the exported temp file and places it at
// dst, copying when a rename is not possible.
func moveExport(h *export.FileHandle, dst string) error {
	if err := os.Rename(h.Path, dst); err == nil {
		h.Detach()
		return nil
	}
	defer h.Release()

	src, err := h.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("write output: %w", err)
	}
	return out.Close()
}

func warn(warnings []string) {
	for _, w := range warnings {
		logrus.Warn(w)
	}
}
