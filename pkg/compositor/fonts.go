// fonts.go — Font registry with embedded Go fonts and TTF overrides.
// Every catalog font descriptor is backed by an embedded Go font family; a
// font directory may replace any of them with a custom TTF/OTF file named
// after the descriptor (e.g. "Pacifico.ttf").
package compositor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/xob0t/cardforge/pkg/catalog"
)

var embeddedFamilies = map[string][]byte{
	catalog.FamilyRegular:    goregular.TTF,
	catalog.FamilyMedium:     gomedium.TTF,
	catalog.FamilyMono:       gomono.TTF,
	catalog.FamilyItalic:     goitalic.TTF,
	catalog.FamilyBoldItalic: gobolditalic.TTF,
	catalog.FamilyBold:       gobold.TTF,
}

// Fonts is the font collaborator the compositor renders with.
type Fonts interface {
	// Ready is closed once faces can be created.
	Ready() <-chan struct{}
	// Face returns a new face for the named descriptor. Callers close it.
	Face(name string, size float64) (font.Face, error)
}

// FontRegistry maps font descriptor names to parsed fonts.
type FontRegistry struct {
	mu       sync.RWMutex
	fonts    map[string]*opentype.Font // keyed by lower-case descriptor name
	fallback *opentype.Font
	dpi      float64

	ready     chan struct{}
	readyOnce sync.Once
}

// NewFontRegistry returns an empty registry that is not yet ready.
func NewFontRegistry() *FontRegistry {
	return &FontRegistry{
		fonts: make(map[string]*opentype.Font),
		dpi:   72,
		ready: make(chan struct{}),
	}
}

// LoadFonts builds a ready registry from the embedded fonts plus any
// overrides found in dir. Unreadable overrides are reported as warnings.
func LoadFonts(dir string) (*FontRegistry, []string, error) {
	r := NewFontRegistry()
	if err := r.LoadEmbedded(); err != nil {
		return nil, nil, err
	}
	var warnings []string
	if dir != "" {
		warnings = r.LoadDir(dir)
	}
	r.MarkReady()
	return r, warnings, nil
}

// LoadEmbedded parses the embedded family of every catalog descriptor.
func (r *FontRegistry) LoadEmbedded() error {
	parsed := make(map[string]*opentype.Font, len(embeddedFamilies))
	for family, data := range embeddedFamilies {
		f, err := opentype.Parse(data)
		if err != nil {
			return fmt.Errorf("failed to parse embedded font %s: %w", family, err)
		}
		parsed[family] = f
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range catalog.Fonts() {
		if f, ok := parsed[d.Family]; ok {
			r.fonts[strings.ToLower(d.Name)] = f
		}
	}
	r.fallback = parsed[catalog.FamilyRegular]
	return nil
}

// LoadDir registers every .ttf/.otf file in dir under its base name.
func (r *FontRegistry) LoadDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{fmt.Sprintf("font directory %q: %v", dir, err)}
	}

	var warnings []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := r.LoadFile(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())), path); err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		logrus.WithField("font", e.Name()).Debug("loaded font override")
	}
	return warnings
}

// LoadFile parses a font file and registers it under name.
func (r *FontRegistry) LoadFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not load font %q: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse font %q: %w", path, err)
	}
	r.mu.Lock()
	r.fonts[strings.ToLower(name)] = f
	r.mu.Unlock()
	return nil
}

// MarkReady signals that fonts are loaded. Safe to call more than once.
func (r *FontRegistry) MarkReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Ready implements Fonts.
func (r *FontRegistry) Ready() <-chan struct{} {
	return r.ready
}

// WaitReady blocks until the registry is ready or ctx is done.
func (r *FontRegistry) WaitReady(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Has reports whether name resolves to a registered font.
func (r *FontRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fonts[strings.ToLower(name)]
	return ok
}

// Face implements Fonts. Unknown names fall back to Go Regular.
func (r *FontRegistry) Face(name string, size float64) (font.Face, error) {
	r.mu.RLock()
	f, ok := r.fonts[strings.ToLower(name)]
	if !ok {
		f = r.fallback
	}
	r.mu.RUnlock()

	if f == nil {
		return nil, ErrFontsNotReady
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     r.dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
