// remote.go — Directory and HTTP asset sources.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxRemoteSize bounds downloads from HTTP sources.
const maxRemoteSize = 32 << 20

// DirSource serves files below a root directory.
type DirSource struct {
	root string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Fetch implements Source. Keys are slash-separated paths relative to the root.
func (d *DirSource) Fetch(_ context.Context, key string) ([]byte, error) {
	target := filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(key, "/")))

	// Guard against path traversal.
	if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(d.root)+string(os.PathSeparator)) {
		return nil, fmt.Errorf("illegal asset path %q", key)
	}

	data, err := os.ReadFile(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// HTTPSource downloads assets by URL.
type HTTPSource struct {
	client *http.Client
}

// NewHTTPSource returns a source using client, or a client with a 10s
// timeout when nil.
func NewHTTPSource(client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{client: client}
}

// Fetch implements Source. The key is the full URL.
func (h *HTTPSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize))
}
