package record

import (
	"context"
	"sync"
)

// Backend persists one collection. Save replaces the whole persisted state;
// a concurrent Load observes either the previous or the new state, never a mix.
// Load returns ErrNoState when nothing has been saved yet.
type Backend interface {
	Load(ctx context.Context) (*Collection, error)
	Save(ctx context.Context, c *Collection) error
}

// MemoryBackend keeps the encoded document in memory. It is safe for
// concurrent use and shares nothing with the collections it returns.
type MemoryBackend struct {
	schema Schema

	mu  sync.RWMutex
	doc []byte
}

func NewMemoryBackend(s Schema) *MemoryBackend {
	return &MemoryBackend{schema: s}
}

func (m *MemoryBackend) Load(_ context.Context) (*Collection, error) {
	m.mu.RLock()
	doc := m.doc
	m.mu.RUnlock()
	if doc == nil {
		return nil, ErrNoState
	}
	return Decode(m.schema, doc)
}

func (m *MemoryBackend) Save(_ context.Context, c *Collection) error {
	doc, err := Encode(m.schema, c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.doc = doc
	m.mu.Unlock()
	return nil
}

// Document returns the last saved document, or nil.
func (m *MemoryBackend) Document() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil
	}
	out := make([]byte, len(m.doc))
	copy(out, m.doc)
	return out
}
