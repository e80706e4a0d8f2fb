package credstore

import (
	"context"
	"sync"

	"github.com/jackfish212/remotefs/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps credentials in process memory.
type MemoryStore struct {
	name string
	mu   sync.Mutex
	c    types.Credentials
	ok   bool
}

func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name}
}

func (m *MemoryStore) Name() string { return m.name }

func (m *MemoryStore) Load(context.Context) (types.Credentials, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c, m.ok, nil
}

func (m *MemoryStore) Save(_ context.Context, c types.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c, m.ok = c, true
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c, m.ok = types.Credentials{}, false
	return nil
}
