// memory.go — In-memory asset store for uploads and processed photos.
package assets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

type asset struct {
	Name string
	Data []byte
	Mime string
}

// Info describes a stored asset without its bytes.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int    `json:"size"`
}

// MemoryStore keeps assets in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string]*asset
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string]*asset)}
}

// Add stores data and returns its id.
func (m *MemoryStore) Add(name string, data []byte, mimeType string) string {
	id := randomID()
	m.mu.Lock()
	m.assets[id] = &asset{Name: name, Data: data, Mime: mimeType}
	m.mu.Unlock()
	return id
}

// Get returns the asset bytes and mime type.
func (m *MemoryStore) Get(id string) ([]byte, string, bool) {
	m.mu.RLock()
	a, ok := m.assets[id]
	m.mu.RUnlock()
	if !ok {
		return nil, "", false
	}
	return a.Data, a.Mime, true
}

// List returns all stored assets ordered by name, then id.
func (m *MemoryStore) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.assets))
	for id, a := range m.assets {
		out = append(out, Info{ID: id, Name: a.Name, Mime: a.Mime, Size: len(a.Data)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Remove deletes an asset. Removing an unknown id is a no-op.
func (m *MemoryStore) Remove(id string) {
	m.mu.Lock()
	delete(m.assets, id)
	m.mu.Unlock()
}

// Fetch implements Source.
func (m *MemoryStore) Fetch(_ context.Context, id string) ([]byte, error) {
	data, _, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: mem:%s", ErrNotFound, id)
	}
	return data, nil
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
