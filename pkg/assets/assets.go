// Package assets resolves asset references to decodable images.
//
// A reference is "<scheme>:<key>" (mem:, dir:, qr:, deco:) or an
// http(s) URL. References without a scheme go to the default source.
// The engine does not care how a reference was obtained.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no source holds the referenced asset.
var ErrNotFound = errors.New("asset not found")

// DecodeError reports an asset whose bytes could not be decoded as an image.
type DecodeError struct {
	Ref string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode asset %q: %v", e.Ref, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Source fetches the encoded bytes of an asset by key.
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Store is the asset collaborator used by the engine and compositor.
type Store interface {
	Open(ctx context.Context, ref string) (image.Image, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Put(name string, data []byte, mimeType string) string
}

var _ Store = (*Library)(nil)

// Library routes references to sources by scheme and decodes them.
// It is safe for concurrent use.
type Library struct {
	mu       sync.RWMutex
	sources  map[string]Source
	fallback Source
	memory   *MemoryStore
}

// NewLibrary returns a library with an in-memory source registered under
// "mem" and the bundled decoration and QR sources.
func NewLibrary() *Library {
	mem := NewMemoryStore()
	l := &Library{
		sources: make(map[string]Source),
		memory:  mem,
	}
	l.Register("mem", mem)
	l.Register("deco", NewDecorationSource(0))
	l.Register("qr", NewQRSource(0))
	l.fallback = mem
	return l
}

// Register binds a source to a scheme, replacing any previous binding.
func (l *Library) Register(scheme string, src Source) {
	l.mu.Lock()
	l.sources[strings.ToLower(scheme)] = src
	l.mu.Unlock()
}

// SetDefault sets the source used for references without a scheme.
func (l *Library) SetDefault(src Source) {
	l.mu.Lock()
	l.fallback = src
	l.mu.Unlock()
}

// Memory returns the library's in-memory store.
func (l *Library) Memory() *MemoryStore {
	return l.memory
}

// Put stores data in memory and returns its reference.
func (l *Library) Put(name string, data []byte, mimeType string) string {
	return "mem:" + l.memory.Add(name, data, mimeType)
}

// Fetch returns the raw bytes behind ref.
func (l *Library) Fetch(ctx context.Context, ref string) ([]byte, error) {
	src, key := l.route(ref)
	if src == nil {
		return nil, fmt.Errorf("%w: no source for %q", ErrNotFound, ref)
	}
	data, err := src.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", ref, err)
	}
	return data, nil
}

// Open fetches and decodes ref. Decode failures are returned as *DecodeError.
func (l *Library) Open(ctx context.Context, ref string) (image.Image, error) {
	data, err := l.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		logrus.WithField("asset_ref", ref).WithError(err).Warn("asset could not be decoded")
		return nil, &DecodeError{Ref: ref, Err: err}
	}
	return img, nil
}

// route splits ref into its source and source-local key.
func (l *Library) route(ref string) (Source, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if src, ok := l.sources["http"]; ok {
			return src, ref
		}
		return nil, ""
	}

	if scheme, key, ok := strings.Cut(ref, ":"); ok {
		if src, ok := l.sources[strings.ToLower(scheme)]; ok {
			return src, key
		}
	}
	return l.fallback, ref
}
