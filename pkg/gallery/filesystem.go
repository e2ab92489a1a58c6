package gallery

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/export"
)

// Filesystem saves cards into <base>/BirthdayCards. File names are
// "<entry id>_<export name>".
type Filesystem struct {
	dir string
}

// NewFilesystem creates the album directory under basePath.
func NewFilesystem(basePath string) (*Filesystem, error) {
	dir := filepath.Join(basePath, AlbumName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create album directory: %w", err)
	}
	return &Filesystem{dir: dir}, nil
}

// Save implements Gallery. The export file is moved into the album.
func (s *Filesystem) Save(_ context.Context, h *export.FileHandle) (Entry, error) {
	e := newEntry(h)
	target := filepath.Join(s.dir, e.ID+"_"+e.Name)
	e.Location = target
	log := logrus.WithFields(logrus.Fields{"entry_id": e.ID, "file_path": target})

	if err := os.Rename(h.Path, target); err == nil {
		h.Detach()
		log.Info("Card saved")
		return e, nil
	}

	// Rename fails across devices; copy instead.
	src, err := h.Open()
	if err != nil {
		return Entry{}, err
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return Entry{}, fmt.Errorf("copy export: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return Entry{}, err
	}
	src.Close()
	h.Release()
	log.Info("Card saved")
	return e, nil
}

// List implements Gallery, oldest first.
func (s *Filesystem) List(_ context.Context) ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		e, ok := s.entryFor(f)
		if !ok {
			logrus.WithField("file", f.Name()).Debug("skipping foreign file in album")
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get implements Gallery.
func (s *Filesystem) Get(_ context.Context, id string) ([]byte, Entry, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+"_*"))
	if err != nil || len(matches) == 0 {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	info, err := os.Stat(matches[0])
	if err != nil {
		return nil, Entry{}, err
	}
	e, _ := s.entryFor(statEntry{info})
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, Entry{}, err
	}
	return data, e, nil
}

type dirEntry interface {
	Name() string
	Info() (os.FileInfo, error)
}

type statEntry struct{ os.FileInfo }

func (f statEntry) Info() (os.FileInfo, error) { return f.FileInfo, nil }

func (s *Filesystem) entryFor(f dirEntry) (Entry, bool) {
	id, name, ok := strings.Cut(f.Name(), "_")
	if !ok {
		return Entry{}, false
	}
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return Entry{}, false
	}
	info, err := f.Info()
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		ID:        id,
		Name:      name,
		MIME:      mime.TypeByExtension(filepath.Ext(name)),
		Size:      info.Size(),
		Location:  filepath.Join(s.dir, f.Name()),
		CreatedAt: ulid.Time(parsed.Time()).UTC(),
	}, true
}
