package gallery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/xob0t/cardforge/pkg/export"
)

// SQLite keeps saved cards as blobs in a single table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dsn.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	stmt := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		album TEXT NOT NULL,
		name TEXT NOT NULL,
		mime TEXT NOT NULL,
		scene_id TEXT,
		scene_version INTEGER,
		data BLOB,
		created_at DATETIME
	);`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cards table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save implements Gallery. The export file is released once stored.
func (s *SQLite) Save(ctx context.Context, h *export.FileHandle) (Entry, error) {
	data, err := readHandle(h)
	if err != nil {
		return Entry{}, err
	}
	e := newEntry(h)
	e.Size = int64(len(data))
	e.Location = "sqlite://" + AlbumName + "/" + e.ID
	log := logrus.WithFields(logrus.Fields{"entry_id": e.ID, "data_length": len(data)})

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO cards (id, album, name, mime, scene_id, scene_version, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, AlbumName, e.Name, e.MIME, e.SceneID, int64(e.SceneVersion), data, e.CreatedAt)
	if err != nil {
		log.WithError(err).Error("Failed to save card")
		return Entry{}, err
	}
	h.Release()
	log.Info("Card saved")
	return e, nil
}

// List implements Gallery, oldest first.
func (s *SQLite) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, mime, scene_id, scene_version, length(data), created_at FROM cards WHERE album = ? ORDER BY id", AlbumName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			version int64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.MIME, &e.SceneID, &version, &e.Size, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.SceneVersion = uint64(version)
		e.Location = "sqlite://" + AlbumName + "/" + e.ID
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get implements Gallery.
func (s *SQLite) Get(ctx context.Context, id string) ([]byte, Entry, error) {
	var (
		e       = Entry{ID: id, Location: "sqlite://" + AlbumName + "/" + id}
		version int64
		data    []byte
		created time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT name, mime, scene_id, scene_version, data, created_at FROM cards WHERE id = ?", id).
		Scan(&e.Name, &e.MIME, &e.SceneID, &version, &data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, Entry{}, err
	}
	e.SceneVersion = uint64(version)
	e.Size = int64(len(data))
	e.CreatedAt = created
	return data, e, nil
}
