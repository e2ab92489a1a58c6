// apply.go — Build a session's scene from resolved card layers.
package cardspec

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/engine"
	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/scene"
)

// Apply replaces the session's scene with the card. Layer problems become
// warnings; only a permission denial or a missing scene stops it.
func Apply(ctx context.Context, s *engine.Session, card *Card, layers []ResolvedLayer) ([]string, error) {
	var warnings []string

	tpl, err := catalog.TemplateByName(card.Template)
	if err != nil {
		tpl = catalog.DefaultTemplate()
	}
	w, h := card.Size()
	s.CreateScene(scene.Size{Width: w, Height: h}, tpl)

	if err := s.SetTextColor(card.TextColor); err != nil {
		warnings = append(warnings, err.Error())
	}
	if err := s.SetFont(card.Font); err != nil {
		warnings = append(warnings, err.Error())
	}

	for _, l := range layers {
		var w []string
		var err error
		switch l.Type {
		case "text":
			w, err = applyText(s, l)
		case "image":
			w, err = applyImage(ctx, s, card.baseDir, l)
		case "decoration":
			w, err = applyDecoration(s, card.baseDir, l)
		default:
			continue
		}
		for _, msg := range w {
			warnings = append(warnings, fmt.Sprintf("layer %s: %s", l.ID, msg))
		}
		if err != nil {
			if errors.Is(err, engine.ErrPermissionDenied) || errors.Is(err, engine.ErrNoScene) {
				return warnings, err
			}
			warnings = append(warnings, fmt.Sprintf("layer %s skipped: %v", l.ID, err))
		}
	}
	return warnings, nil
}

// updates applies style attributes in order, collecting failures.
func updates(s *engine.Session, id string, attrs []attrValue) []string {
	var warnings []string
	for _, a := range attrs {
		if err := s.UpdateLayer(id, a.attr, a.value); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", a.attr, err))
		}
	}
	return warnings
}

type attrValue struct {
	attr  scene.Attribute
	value any
}

func applyText(s *engine.Session, l ResolvedLayer) ([]string, error) {
	size := l.Style.FontSize
	if size <= 0 {
		size = engine.DefaultTextSize
	}
	anchor := scene.Anchor(l.Anchor)
	if anchor == "" {
		anchor = scene.AnchorCenter
	}
	id, err := s.AddText(l.Data.Text, size, anchor)
	if err != nil {
		return nil, err
	}

	var attrs []attrValue
	if l.Style.Color != "" {
		attrs = append(attrs, attrValue{scene.AttrColor, l.Style.Color})
	}
	if l.Style.Font != "" {
		attrs = append(attrs, attrValue{scene.AttrFont, l.Style.Font})
	}
	return updates(s, id, attrs), nil
}

func applyImage(ctx context.Context, s *engine.Session, baseDir string, l ResolvedLayer) ([]string, error) {
	anchor := scene.Anchor(l.Anchor)
	var (
		id  string
		err error
	)
	if isRef(l.Data.Source) {
		id, err = s.AddImageRef(ctx, l.Data.Source, anchor)
	} else {
		var data []byte
		data, err = readSource(baseDir, l.Data.Source)
		if err != nil {
			return nil, err
		}
		id, err = s.AddImage(ctx, filepath.Base(l.Data.Source), data, anchor)
	}
	if err != nil {
		return nil, err
	}

	st := l.Style
	var attrs []attrValue
	if st.Rotation != 0 {
		attrs = append(attrs, attrValue{scene.AttrRotation, st.Rotation})
	}
	if st.Scale > 0 {
		attrs = append(attrs, attrValue{scene.AttrScale, st.Scale})
	}
	if st.BorderRadius > 0 {
		attrs = append(attrs, attrValue{scene.AttrBorderRadius, st.BorderRadius})
	}
	if st.BorderWidth > 0 {
		attrs = append(attrs, attrValue{scene.AttrBorderWidth, st.BorderWidth})
	}
	if st.BorderColor != "" {
		attrs = append(attrs, attrValue{scene.AttrBorderColor, st.BorderColor})
	}
	warnings := updates(s, id, attrs)

	if st.Filter != "" && st.Filter != string(imageproc.FilterNone) {
		w, err := s.ApplyFilter(ctx, id, imageproc.FilterKind(st.Filter))
		warnings = append(warnings, w...)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("filter: %v", err))
		}
	}
	return warnings, nil
}

func applyDecoration(s *engine.Session, baseDir string, l ResolvedLayer) ([]string, error) {
	ref := l.Data.Source
	if !isRef(ref) {
		data, err := readSource(baseDir, ref)
		if err != nil {
			return nil, err
		}
		ref = s.Assets().Put(filepath.Base(ref), data, mime.TypeByExtension(filepath.Ext(ref)))
	}

	var err error
	if l.X != nil && l.Y != nil {
		_, err = s.AddDecorationAt(ref, *l.X, *l.Y)
	} else {
		_, err = s.AddDecoration(ref)
	}
	return nil, err
}

// isRef reports whether src is an asset reference ("deco:star", a URL)
// rather than a file path.
func isRef(src string) bool {
	scheme, _, ok := strings.Cut(src, ":")
	return ok && len(scheme) > 1 && !strings.ContainsAny(scheme, `/\.`)
}

func readSource(baseDir, src string) ([]byte, error) {
	if src == "" {
		return nil, errors.New("no source")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("file source %q not allowed without a card directory", src)
	}
	p := src
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return data, nil
}
