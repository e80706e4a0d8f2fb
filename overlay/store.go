// Package overlay holds files and directories that exist only in this
// process. Entries are never sent to the remote and live until the process
// exits.
package overlay

import (
	"bytes"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackfish212/remotefs/metrics"
	"github.com/sirupsen/logrus"
)

// Entry is one virtual file or directory.
type Entry struct {
	Path    string
	Content []byte
	IsDir   bool
	ModTime time.Time
	// Implicit is set on directories synthesized by Lookup and Children
	// because entries exist below them.
	Implicit bool
}

// Name returns the last path segment.
func (e Entry) Name() string {
	return path.Base(e.Path)
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items map[string]*Entry
	now   func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{items: make(map[string]*Entry), now: time.Now}
}

// Put creates or replaces the entry at p. The stored ModTime never moves
// backwards for a given path, even if the clock does.
func (s *Store) Put(p string, content []byte, isDir bool) Entry {
	p = normPath(p)
	var data []byte
	if !isDir {
		data = bytes.Clone(content)
		if data == nil {
			data = []byte{}
		}
	}

	s.mu.Lock()
	mod := s.now()
	if prev, ok := s.items[p]; ok && mod.Before(prev.ModTime) {
		mod = prev.ModTime
	}
	e := &Entry{Path: p, Content: data, IsDir: isDir, ModTime: mod}
	s.items[p] = e
	n := len(s.items)
	s.mu.Unlock()

	metrics.SetOverlayEntries(n)
	logrus.WithFields(logrus.Fields{"path": p, "size": len(data), "dir": isDir}).Debug("overlay: put")
	return *e
}

// Get returns the entry stored exactly at p.
func (s *Store) Get(p string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[normPath(p)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Has reports whether an entry is stored exactly at p.
func (s *Store) Has(p string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[normPath(p)]
	return ok
}

// Lookup is Get plus implicit directories: a path with stored entries below
// it resolves to a directory even when nothing was stored at the path itself.
func (s *Store) Lookup(p string) (Entry, bool) {
	p = normPath(p)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.items[p]; ok {
		return *e, true
	}
	prefix := dirPrefix(p)
	var latest time.Time
	found := false
	for k, e := range s.items {
		if strings.HasPrefix(k, prefix) {
			found = true
			if e.ModTime.After(latest) {
				latest = e.ModTime
			}
		}
	}
	if !found {
		return Entry{}, false
	}
	return Entry{Path: p, IsDir: true, ModTime: latest, Implicit: true}, true
}

// Children returns the direct children of dir sorted by name. Deeper
// entries surface as implicit directories.
func (s *Store) Children(dir string) []Entry {
	dir = normPath(dir)
	prefix := dirPrefix(dir)

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]int)
	var out []Entry
	for k, e := range s.items {
		if k == dir || !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := k[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name := rest[:i]
			if idx, ok := seen[name]; ok {
				if e.ModTime.After(out[idx].ModTime) && out[idx].Implicit {
					out[idx].ModTime = e.ModTime
				}
				continue
			}
			seen[name] = len(out)
			out = append(out, Entry{Path: prefix + name, IsDir: true, ModTime: e.ModTime, Implicit: true})
			continue
		}
		if idx, ok := seen[rest]; ok {
			out[idx] = *e
			continue
		}
		seen[rest] = len(out)
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func normPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean("/" + p)
}

func dirPrefix(dir string) string {
	if dir == "/" {
		return "/"
	}
	return dir + "/"
}
