// Package engine is the surface a UI shell drives: it owns one scene,
// serializes mutations, gates platform access through permissions and
// runs previews, exports and gallery saves.
package engine

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/assets"
	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/compositor"
	"github.com/xob0t/cardforge/pkg/export"
	"github.com/xob0t/cardforge/pkg/gallery"
	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/layout"
	"github.com/xob0t/cardforge/pkg/scene"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrExportInProgress = errors.New("export already in progress")
	ErrNoScene          = errors.New("no scene created")
	ErrStaleResult      = errors.New("scene changed while the operation ran")
)

// Default font sizes of the two text flows.
const (
	DefaultTextSize   = 24.0 // single-message card text
	DefaultEditorSize = 16.0 // text editor layers
)

// Config wires a session to its collaborators. Nil fields get defaults:
// an in-memory asset library, embedded fonts, AllowAll permissions and an
// in-memory gallery.
type Config struct {
	Assets      assets.Store
	Fonts       compositor.Fonts
	Permissions Permissions
	Gallery     gallery.Gallery
	ExportDir   string
}

// Session is one editing session. All methods are safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	scene *scene.Scene

	assets    assets.Store
	perms     Permissions
	gallery   gallery.Gallery
	comp      *compositor.Compositor
	exportDir string

	exporting atomic.Bool
}

// NewSession creates a session without a scene.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Assets == nil {
		cfg.Assets = assets.NewLibrary()
	}
	if cfg.Fonts == nil {
		fonts, _, err := compositor.LoadFonts("")
		if err != nil {
			return nil, err
		}
		cfg.Fonts = fonts
	}
	if cfg.Permissions == nil {
		cfg.Permissions = AllowAll{}
	}
	if cfg.Gallery == nil {
		cfg.Gallery = gallery.NewMemory()
	}
	return &Session{
		assets:    cfg.Assets,
		perms:     cfg.Permissions,
		gallery:   cfg.Gallery,
		comp:      compositor.New(cfg.Fonts, cfg.Assets),
		exportDir: cfg.ExportDir,
	}, nil
}

// ── Scene lifecycle ──

// CreateScene replaces the current scene with an empty one.
func (s *Session) CreateScene(size scene.Size, tpl catalog.Template) scene.Snapshot {
	sc := scene.New(tpl, size)
	s.mu.Lock()
	s.scene = sc
	snap := sc.Snapshot()
	s.mu.Unlock()
	logrus.WithFields(logrus.Fields{"scene_id": snap.ID, "template": tpl.Name}).Debug("scene created")
	return snap
}

// Snapshot returns an immutable copy of the current scene.
func (s *Session) Snapshot() (scene.Snapshot, error) {
	var snap scene.Snapshot
	err := s.with(func(sc *scene.Scene) error {
		snap = sc.Snapshot()
		return nil
	})
	return snap, err
}

// Layout resolves the current scene.
func (s *Session) Layout() (layout.ResolvedScene, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return layout.ResolvedScene{}, err
	}
	return layout.Resolve(snap), nil
}

func (s *Session) with(fn func(*scene.Scene) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil {
		return ErrNoScene
	}
	return fn(s.scene)
}

// ── Text ──

// SetMessage sets the card message: the active text layer's content is
// replaced, or a text layer is created when there is none.
func (s *Session) SetMessage(content string) (string, error) {
	var id string
	err := s.with(func(sc *scene.Scene) error {
		if l, ok := sc.ActiveText(); ok {
			id = l.ID
			return sc.ReplaceText(id, content)
		}
		id = sc.AddTextLayer(content, DefaultTextSize, scene.AnchorCenter)
		return nil
	})
	return id, err
}

// UseQuickMessage sets the message to the i-th canned message.
func (s *Session) UseQuickMessage(i int) (string, error) {
	msg, ok := catalog.QuickMessage(i)
	if !ok {
		return "", fmt.Errorf("%w: quick message %d", scene.ErrInvalidValue, i)
	}
	return s.SetMessage(msg)
}

// AddText appends a text layer. A zero size uses the text editor default.
func (s *Session) AddText(content string, fontSize float64, anchor scene.Anchor) (string, error) {
	if fontSize <= 0 {
		fontSize = DefaultEditorSize
	}
	var id string
	err := s.with(func(sc *scene.Scene) error {
		id = sc.AddTextLayer(content, fontSize, anchor)
		return nil
	})
	return id, err
}

// SetTextColor selects the text color. It must parse as a color.
func (s *Session) SetTextColor(c string) error {
	if _, err := catalog.ParseColor(c); err != nil {
		return fmt.Errorf("%w: %v", scene.ErrInvalidValue, err)
	}
	return s.with(func(sc *scene.Scene) error {
		sc.SetTextColor(c)
		return nil
	})
}

// SetFont selects a catalog font by name.
func (s *Session) SetFont(name string) error {
	f, ok := catalog.FontByName(name)
	if !ok {
		return fmt.Errorf("%w: unknown font %q", scene.ErrInvalidValue, name)
	}
	return s.with(func(sc *scene.Scene) error {
		sc.SetFont(f.Name)
		return nil
	})
}

// SetTemplate switches the template by catalog name.
func (s *Session) SetTemplate(name string) error {
	tpl, err := catalog.TemplateByName(name)
	if err != nil {
		return err
	}
	return s.with(func(sc *scene.Scene) error {
		sc.SetTemplate(tpl)
		return nil
	})
}

// ── Layers ──

// UpdateLayer changes one attribute of a layer. An image layer's filter
// and asset are only changed through ApplyFilter.
func (s *Session) UpdateLayer(id string, attr scene.Attribute, value any) error {
	return s.with(func(sc *scene.Scene) error {
		if err := filterOwned(sc, id, attr); err != nil {
			return err
		}
		return sc.UpdateLayerAttribute(id, attr, value)
	})
}

// UpdateLayerAttributes changes several attributes of a layer, in name
// order. Either all of them are applied or none is.
func (s *Session) UpdateLayerAttributes(id string, attrs map[scene.Attribute]any) error {
	order := make([]scene.Attribute, 0, len(attrs))
	for a := range attrs {
		order = append(order, a)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	return s.with(func(sc *scene.Scene) error {
		for _, a := range order {
			if err := filterOwned(sc, id, a); err != nil {
				return err
			}
		}
		return sc.UpdateLayerAttributes(id, attrs, order)
	})
}

// filterOwned rejects direct writes to the attributes ApplyFilter keeps in
// step: the filter name and the painted asset of an image layer.
func filterOwned(sc *scene.Scene, id string, attr scene.Attribute) error {
	if attr != scene.AttrFilter && attr != scene.AttrAsset {
		return nil
	}
	l, err := sc.Layer(id)
	if err != nil {
		return err
	}
	if l.Kind() != scene.KindImage {
		return nil
	}
	return fmt.Errorf("%w: %s is set by applying a filter", scene.ErrUnknownAttribute, attr)
}

// RemoveLayer deletes a layer.
func (s *Session) RemoveLayer(id string) error {
	return s.with(func(sc *scene.Scene) error {
		return sc.RemoveLayer(id)
	})
}

// ClearDecorations removes all stickers and reports how many were removed.
func (s *Session) ClearDecorations() (int, error) {
	var n int
	err := s.with(func(sc *scene.Scene) error {
		n = sc.ClearDecorations()
		return nil
	})
	return n, err
}

// AddDecoration appends a sticker by asset reference (e.g. "deco:star").
func (s *Session) AddDecoration(ref string) (string, error) {
	var id string
	err := s.with(func(sc *scene.Scene) error {
		id = sc.AddDecorationLayer(ref)
		return nil
	})
	return id, err
}

// AddDecorationAt appends a sticker centered at a relative position.
func (s *Session) AddDecorationAt(ref string, x, y float64) (string, error) {
	var id string
	err := s.with(func(sc *scene.Scene) error {
		id = sc.AddDecorationLayerAt(ref, x, y)
		return nil
	})
	return id, err
}

// ── Images ──

func (s *Session) require(ctx context.Context, a Access) error {
	ok, err := s.perms.Request(ctx, a)
	if err != nil {
		return fmt.Errorf("request %s access: %w", a, err)
	}
	if !ok {
		logrus.WithField("access", a).Info("access denied")
		return fmt.Errorf("%w: %s", ErrPermissionDenied, a)
	}
	return nil
}

// AddImage stores picked image bytes and appends an image layer for them.
func (s *Session) AddImage(ctx context.Context, name string, data []byte, anchor scene.Anchor) (string, error) {
	if err := s.require(ctx, AccessPhotoLibrary); err != nil {
		return "", err
	}
	mimeType := mime.TypeByExtension(filepath.Ext(name))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	ref := s.assets.Put(name, data, mimeType)
	return s.addImageLayer(ref, anchor)
}

// AddImageRef appends an image layer for an existing asset reference.
func (s *Session) AddImageRef(ctx context.Context, ref string, anchor scene.Anchor) (string, error) {
	if err := s.require(ctx, AccessPhotoLibrary); err != nil {
		return "", err
	}
	return s.addImageLayer(ref, anchor)
}

func (s *Session) addImageLayer(ref string, anchor scene.Anchor) (string, error) {
	var id string
	err := s.with(func(sc *scene.Scene) error {
		id = sc.AddImageLayer(ref, anchor)
		return nil
	})
	return id, err
}

// ApplyFilter filters the source of an image layer into a new lossless
// asset and points the layer at it. If the scene or layer changed while
// the filter ran, the result is dropped and ErrStaleResult returned.
// When the source cannot be fetched or processed the layer falls back to
// the unfiltered source with filter none, and the failure is a warning.
func (s *Session) ApplyFilter(ctx context.Context, layerID string, kind imageproc.FilterKind) ([]string, error) {
	var (
		sceneID string
		layer   scene.ImageLayer
	)
	err := s.with(func(sc *scene.Scene) error {
		l, err := sc.Layer(layerID)
		if err != nil {
			return err
		}
		img, ok := l.(scene.ImageLayer)
		if !ok {
			return fmt.Errorf("%w: filter on %s layer", scene.ErrUnknownAttribute, l.Kind())
		}
		sceneID, layer = sc.ID(), img
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{"scene_id": sceneID, "layer_id": layerID, "asset_ref": layer.SourceRef})
	var warnings []string
	if !kind.Known() {
		warnings = append(warnings, fmt.Sprintf("unsupported filter %q, image left unfiltered", kind))
		kind = imageproc.FilterNone
	}
	ref := layer.SourceRef
	if kind != imageproc.FilterNone {
		var (
			out  []byte
			w    []string
			perr error
		)
		data, err := s.assets.Fetch(ctx, layer.SourceRef)
		if err != nil {
			perr = &imageproc.ProcessingError{Filter: kind, Err: fmt.Errorf("fetch source: %w", err)}
		} else {
			out, w, perr = imageproc.ProcessAsset(data, kind)
		}
		warnings = append(warnings, w...)
		if perr != nil {
			log.WithError(perr).Warn("filter failed, keeping unfiltered source")
			warnings = append(warnings, perr.Error())
			kind = imageproc.FilterNone
		} else {
			ref = s.assets.Put(string(kind)+".png", out, "image/png")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = s.with(func(sc *scene.Scene) error {
		if sc.ID() != sceneID {
			return ErrStaleResult
		}
		cur, err := sc.Layer(layerID)
		if err != nil || cur.Revision() != layer.Rev {
			return ErrStaleResult
		}
		if err := sc.UpdateLayerAttribute(layerID, scene.AttrAsset, ref); err != nil {
			return err
		}
		return sc.UpdateLayerAttribute(layerID, scene.AttrFilter, string(kind))
	})
	if errors.Is(err, ErrStaleResult) {
		log.Debug("discarding stale filter result")
	}
	return warnings, err
}

// ── Output ──

// Preview renders the current scene.
func (s *Session) Preview(ctx context.Context) (*compositor.RenderedCard, error) {
	rs, err := s.Layout()
	if err != nil {
		return nil, err
	}
	return s.comp.Render(ctx, rs)
}

// Export renders and encodes the scene as it was when Export was called.
// Only one export runs at a time.
func (s *Session) Export(ctx context.Context, opts export.Options) (*export.FileHandle, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer s.exporting.Store(false)

	if opts.Dir == "" {
		opts.Dir = s.exportDir
	}
	card, err := s.Preview(ctx)
	if err != nil {
		return nil, err
	}
	h, err := export.Export(ctx, card, opts)
	if err != nil {
		logrus.WithField("scene_id", card.SceneID).WithError(err).Error("export failed")
		return nil, err
	}
	return h, nil
}

// Save exports the scene and hands the file to the gallery.
func (s *Session) Save(ctx context.Context, opts export.Options) (gallery.Entry, error) {
	if err := s.require(ctx, AccessStorage); err != nil {
		return gallery.Entry{}, err
	}
	h, err := s.Export(ctx, opts)
	if err != nil {
		return gallery.Entry{}, err
	}
	entry, err := s.gallery.Save(ctx, h)
	if err != nil {
		h.Release()
		return gallery.Entry{}, fmt.Errorf("save to gallery: %w", err)
	}
	logrus.WithFields(logrus.Fields{"scene_id": h.SceneID, "entry_id": entry.ID}).Info("card saved")
	return entry, nil
}

// Gallery returns the session's gallery.
func (s *Session) Gallery() gallery.Gallery {
	return s.gallery
}

// Assets returns the session's asset store.
func (s *Session) Assets() assets.Store {
	return s.assets
}
