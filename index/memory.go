// Package index keeps an in-memory set of known paths, fed by Facade
// mutations, and answers substring searches over it.
package index

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/connection"
	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
)

var (
	_ types.IndexHook      = (*Memory)(nil)
	_ connection.Registrar = (*Memory)(nil)
)

// Memory is a path index. It can be installed as a Facade's IndexHook,
// registered as a collaborator (it then follows the Facade's watch
// events), or both.
type Memory struct {
	mu       sync.RWMutex
	paths    map[string]struct{}
	watchers map[*remotefs.Facade]*remotefs.Watcher
	wg       sync.WaitGroup
}

func NewMemory() *Memory {
	return &Memory{
		paths:    make(map[string]struct{}),
		watchers: make(map[*remotefs.Facade]*remotefs.Watcher),
	}
}

func (m *Memory) OnCreated(_ context.Context, path string) error {
	m.add(remotefs.CleanPath(path))
	return nil
}

func (m *Memory) OnDeleted(_ context.Context, path string) error {
	m.remove(remotefs.CleanPath(path))
	return nil
}

// OnRenamed moves path and everything below it.
func (m *Memory) OnRenamed(_ context.Context, oldPath, newPath string) error {
	oldPath, newPath = remotefs.CleanPath(oldPath), remotefs.CleanPath(newPath)
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.paths {
		if p == oldPath {
			delete(m.paths, p)
			m.paths[newPath] = struct{}{}
		} else if strings.HasPrefix(p, oldPath+"/") {
			delete(m.paths, p)
			m.paths[newPath+p[len(oldPath):]] = struct{}{}
		}
	}
	m.paths[newPath] = struct{}{}
	return nil
}

// Search returns the indexed paths whose final segment contains q,
// case-insensitively, in sorted order.
func (m *Memory) Search(q string) []string {
	q = strings.ToLower(q)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for p := range m.paths {
		name := p[strings.LastIndexByte(p, '/')+1:]
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.paths)
}

// Register starts following f's change events.
func (m *Memory) Register(_ context.Context, f *remotefs.Facade) error {
	w := f.Watch("/", remotefs.EventAll)
	m.mu.Lock()
	if old, ok := m.watchers[f]; ok {
		old.Close()
	}
	m.watchers[f] = w
	m.mu.Unlock()

	m.wg.Add(1)
	go m.follow(f.ID(), w)
	return nil
}

// Unregister stops following f. Indexed paths are kept.
func (m *Memory) Unregister(_ context.Context, f *remotefs.Facade) error {
	m.mu.Lock()
	w, ok := m.watchers[f]
	delete(m.watchers, f)
	m.mu.Unlock()
	if ok {
		w.Close()
	}
	return nil
}

// Wait blocks until every follower goroutine has exited.
func (m *Memory) Wait() { m.wg.Wait() }

func (m *Memory) follow(id string, w *remotefs.Watcher) {
	defer m.wg.Done()
	log := logrus.WithField("facade", id)
	log.Debug("index: following facade")
	for {
		select {
		case ev := <-w.Events():
			m.apply(ev)
		case <-w.Done():
			log.Debug("index: stopped following facade")
			return
		}
	}
}

func (m *Memory) apply(ev types.WatchEvent) {
	if ev.Type == types.EventDelete {
		m.remove(ev.Path)
		return
	}
	m.add(ev.Path)
}

func (m *Memory) add(p string) {
	m.mu.Lock()
	m.paths[p] = struct{}{}
	m.mu.Unlock()
}

func (m *Memory) remove(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.paths {
		if k == p || strings.HasPrefix(k, p+"/") {
			delete(m.paths, k)
		}
	}
}
