// loader.go — Load card.json files and .cardzip bundles.
package cardspec

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xob0t/cardforge/pkg/catalog"
)

// BundleExt is the extension of zipped cards (card.json plus images).
const BundleExt = ".cardzip"

// LoadCard reads a card.json file or a .cardzip bundle. Bundles are
// extracted to a temporary directory; the returned cleanup removes it.
func LoadCard(path string) (*Card, func(), error) {
	noop := func() {}
	if strings.EqualFold(filepath.Ext(path), BundleExt) {
		return loadBundle(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, noop, fmt.Errorf("read card: %w", err)
	}
	card, err := ParseCard(data, filepath.Dir(path))
	if err != nil {
		return nil, noop, err
	}
	return card, noop, nil
}

// ParseCard decodes card JSON. Relative image sources resolve against
// baseDir; with an empty baseDir only asset references are accepted.
func ParseCard(data []byte, baseDir string) (*Card, error) {
	var card Card
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("parse card JSON: %w", err)
	}
	card.baseDir = baseDir

	if card.Template == "" {
		card.Template = catalog.DefaultTemplate().Name
	}
	if card.TextColor == "" {
		card.TextColor = catalog.DefaultTextColor()
	}
	if card.Font == "" {
		card.Font = catalog.DefaultFont().Name
	}
	for i := range card.Layers {
		applyLayerDefaults(&card.Layers[i])
	}
	return &card, nil
}

// Size returns the canvas size: a known preset wins, then explicit
// dimensions, then the small card preset.
func (c *Card) Size() (int, int) {
	if dims, ok := catalog.Presets[c.Canvas.Preset]; ok {
		return dims[0], dims[1]
	}
	if c.Canvas.Width > 0 && c.Canvas.Height > 0 {
		return c.Canvas.Width, c.Canvas.Height
	}
	dims := catalog.Presets["small"]
	return dims[0], dims[1]
}

// LoadData reads and parses a data.json file. A malformed file is not
// fatal: it is reported as a warning and all defaults apply.
func LoadData(path string) (*DataSpec, []string, error) {
	var warnings []string

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read data.json: %w", err)
	}

	var spec DataSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		warnings = append(warnings, fmt.Sprintf("malformed data.json: %v, using all defaults", err))
		return &DataSpec{Layers: make(map[string]LayerData)}, warnings, nil
	}
	if spec.Layers == nil {
		spec.Layers = make(map[string]LayerData)
	}
	return &spec, warnings, nil
}

// applyLayerDefaults fills in omitted layer fields.
func applyLayerDefaults(l *LayerSpec) {
	if l.Type == "" {
		l.Type = "text"
	}
	if l.Defaults.Visible == nil {
		t := true
		l.Defaults.Visible = &t
	}
}

func loadBundle(path string) (*Card, func(), error) {
	noop := func() {}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, noop, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	tmpDir, err := os.MkdirTemp("", "cardzip-*")
	if err != nil {
		return nil, noop, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := extractZip(&r.Reader, tmpDir); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("extract %s: %w", path, err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "card.json"))
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("read card.json: %w", err)
	}
	card, err := ParseCard(data, tmpDir)
	if err != nil {
		cleanup()
		return nil, noop, err
	}
	return card, cleanup, nil
}

// extractZip extracts all files from r into destDir.
func extractZip(r *zip.Reader, destDir string) error {
	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)

		// Guard against zip slip.
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
