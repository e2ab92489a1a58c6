// Package gallery receives exported card files. Saving a file transfers
// its ownership: after a successful Save the caller must not use the
// export handle again.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/export"
)

// AlbumName is the album (directory or key prefix) cards are saved into.
const AlbumName = "BirthdayCards"

// ErrNotFound is returned when a gallery entry does not exist.
var ErrNotFound = errors.New("gallery entry not found")

// Entry describes a saved card.
type Entry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MIME         string    `json:"mime"`
	Size         int64     `json:"size"`
	Location     string    `json:"location"`
	SceneID      string    `json:"sceneId,omitempty"`
	SceneVersion uint64    `json:"sceneVersion,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Gallery stores exported cards.
type Gallery interface {
	Save(ctx context.Context, h *export.FileHandle) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) ([]byte, Entry, error)
}

func newEntry(h *export.FileHandle) Entry {
	return Entry{
		ID:           ulid.Make().String(),
		Name:         h.Name(),
		MIME:         h.Format.MIME(),
		Size:         h.Size,
		SceneID:      h.SceneID,
		SceneVersion: h.SceneVersion,
		CreatedAt:    time.Now().UTC(),
	}
}

// readHandle reads an export into memory.
func readHandle(h *export.FileHandle) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil && info.Size() > 0 {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return data, nil
}

// GetGallery builds the gallery selected by GALLERY_TYPE:
// "filesystem" (GALLERY_PATH), "sqlite" (GALLERY_DSN), "s3"
// (S3_BUCKET_NAME) or in-memory when unset.
func GetGallery(ctx context.Context) (Gallery, error) {
	galleryType := os.Getenv("GALLERY_TYPE")
	fields := logrus.Fields{"galleryType": galleryType}

	var (
		g   Gallery
		err error
	)
	switch galleryType {
	case "filesystem":
		basePath := os.Getenv("GALLERY_PATH")
		if basePath == "" {
			basePath = "./data"
		}
		fields["basePath"] = basePath
		g, err = NewFilesystem(basePath)
	case "sqlite":
		dsn := os.Getenv("GALLERY_DSN")
		if dsn == "" {
			dsn = "cardforge.db"
		}
		fields["dataSourceName"] = dsn
		g, err = NewSQLite(ctx, dsn)
	case "s3":
		bucket := os.Getenv("S3_BUCKET_NAME")
		if bucket == "" {
			return nil, errors.New("S3_BUCKET_NAME environment variable must be set for s3 gallery type")
		}
		fields["bucketName"] = bucket
		g, err = NewS3FromEnv(ctx, bucket)
	default:
		g = NewMemory()
		fields["galleryType"] = "in-memory"
	}
	if err != nil {
		return nil, err
	}
	logrus.WithFields(fields).Info("Use gallery")
	return g, nil
}
