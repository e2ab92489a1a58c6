package gallery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/export"
)

type memEntry struct {
	entry Entry
	data  []byte
}

// Memory keeps saved cards in process memory.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemory creates an empty in-memory gallery.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

// Save implements Gallery. The export file is released once copied.
func (m *Memory) Save(_ context.Context, h *export.FileHandle) (Entry, error) {
	data, err := readHandle(h)
	if err != nil {
		return Entry{}, err
	}
	e := newEntry(h)
	e.Size = int64(len(data))
	e.Location = "memory://" + AlbumName + "/" + e.ID

	m.mu.Lock()
	m.entries[e.ID] = memEntry{entry: e, data: data}
	m.mu.Unlock()

	h.Release()
	logrus.WithField("entry_id", e.ID).Debug("card saved to memory gallery")
	return e, nil
}

// List implements Gallery, oldest first.
func (m *Memory) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get implements Gallery.
func (m *Memory) Get(_ context.Context, id string) ([]byte, Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.data, e.entry, nil
}
