// Package export encodes rendered cards into image files.
//
// All output follows one pipeline: the compositor produces an image, the
// exporter encodes it into a temporary file and hands back a FileHandle.
// The handle owns the file until it is released or handed off to a gallery.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/xob0t/cardforge/pkg/compositor"
)

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	GIF  Format = "gif"
)

// ErrUnknownFormat is returned for format names no encoder handles.
var ErrUnknownFormat = errors.New("unsupported format")

// DefaultQuality is the JPEG quality used when Options.Quality is unset.
const DefaultQuality = 95

var formats = map[Format]struct {
	ext, mime string
	codec     imaging.Format
}{
	PNG:  {".png", "image/png", imaging.PNG},
	JPEG: {".jpg", "image/jpeg", imaging.JPEG},
	BMP:  {".bmp", "image/bmp", imaging.BMP},
	TIFF: {".tiff", "image/tiff", imaging.TIFF},
	GIF:  {".gif", "image/gif", imaging.GIF},
}

// ParseFormat normalizes a format name or file extension. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch s {
	case "":
		return PNG, nil
	case "jpg":
		return JPEG, nil
	case "tif":
		return TIFF, nil
	}
	if _, ok := formats[Format(s)]; ok {
		return Format(s), nil
	}
	return "", fmt.Errorf("%w %q: use png, jpeg, bmp, tiff or gif", ErrUnknownFormat, s)
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return formats[f].ext }

// MIME returns the media type.
func (f Format) MIME() string { return formats[f].mime }

// Options controls an export.
type Options struct {
	Format  Format // default PNG
	Quality int    // JPEG only, 1..100
	Dir     string // temp directory; os.TempDir() when empty
}

// ExportError reports a failed export. The scene is never affected.
type ExportError struct {
	Format Format
	Op     string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %s: %v", e.Format, e.Op, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	enc, ok := formats[f]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return imaging.Encode(w, img, enc.codec, imaging.JPEGQuality(quality))
}

// Export encodes card into a new temporary file. On failure no file is
// left behind.
func Export(ctx context.Context, card *compositor.RenderedCard, opts Options) (*FileHandle, error) {
	f, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, &ExportError{Format: opts.Format, Op: "format", Err: err}
	}
	if card == nil || card.Image == nil {
		return nil, &ExportError{Format: f, Op: "render", Err: fmt.Errorf("no rendered image")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ExportError{Format: f, Op: "start", Err: err}
	}

	out, err := os.CreateTemp(opts.Dir, "card-*"+f.Ext())
	if err != nil {
		return nil, &ExportError{Format: f, Op: "create", Err: err}
	}
	path := out.Name()

	fail := func(op string, err error) (*FileHandle, error) {
		out.Close()
		os.Remove(path)
		return nil, &ExportError{Format: f, Op: op, Err: err}
	}

	if err := Encode(out, card.Image, f, opts.Quality); err != nil {
		return fail("encode", err)
	}
	if err := ctx.Err(); err != nil {
		return fail("encode", err)
	}
	info, err := out.Stat()
	if err != nil {
		return fail("stat", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return nil, &ExportError{Format: f, Op: "close", Err: err}
	}

	return &FileHandle{
		Path:         path,
		Format:       f,
		Size:         info.Size(),
		SceneID:      card.SceneID,
		SceneVersion: card.SceneVersion,
	}, nil
}

// FileHandle is an exported file on local disk.
type FileHandle struct {
	Path         string
	Format       Format
	Size         int64
	SceneID      string
	SceneVersion uint64

	mu       sync.Mutex
	released bool
	detached bool
}

// Name returns a suggested file name for the export.
func (h *FileHandle) Name() string {
	id := h.SceneID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "card"
	}
	return fmt.Sprintf("card-%s-v%d%s", id, h.SceneVersion, h.Format.Ext())
}

// Open opens the exported file for reading.
func (h *FileHandle) Open() (*os.File, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, fmt.Errorf("export %s already released", h.Path)
	}
	return os.Open(h.Path)
}

// Detach transfers ownership of the file to the caller. Release becomes a
// no-op afterwards.
func (h *FileHandle) Detach() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detached = true
	return h.Path
}

// Release removes the temp file unless it has been detached. It is safe to
// call more than once.
func (h *FileHandle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released || h.detached {
		return nil
	}
	h.released = true
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release export: %w", err)
	}
	return nil
}
