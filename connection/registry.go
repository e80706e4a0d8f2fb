package connection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrAlreadyRegistered = errors.New("connection: workspace already registered")

// Registry keys Managers by workspace, for hosts that keep one session per
// workspace.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]*Manager
}

func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]*Manager)}
}

// Add registers m under id.
func (r *Registry) Add(id string, m *Manager) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("connection: empty workspace id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.managers[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	r.managers[id] = m
	return nil
}

func (r *Registry) Get(id string) (*Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[id]
	return m, ok
}

// Remove unregisters id and closes its session. Stored credentials are
// kept.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	m, ok := r.managers[id]
	delete(r.managers, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("connection: workspace %s not registered", id)
	}
	return m.Close(ctx)
}

// IDs returns the registered workspace ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.managers))
	for id := range r.managers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
