// Package merge combines remote listings with the virtual overlay.
//
// Listings put remote entries first, in server order, then virtual entries
// whose names the remote did not already return. Point lookups go the other
// way: a virtual entry at a path shadows whatever the remote holds there.
package merge

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jackfish212/remotefs/overlay"
	"github.com/jackfish212/remotefs/types"
)

// Engine merges one remote with one overlay store.
type Engine struct {
	remote  types.Lister
	overlay *overlay.Store
}

// New creates an Engine.
func New(remote types.Lister, store *overlay.Store) *Engine {
	return &Engine{remote: remote, overlay: store}
}

// List returns the merged children of dir. dir is an absolute facade path.
//
// Names are unique: the first remote row of a name wins, then any virtual
// child the remote does not already list.
//
// When the remote reports dir as missing but the overlay holds it, the
// virtual children alone are returned.
func (m *Engine) List(ctx context.Context, dir string) ([]types.Entry, error) {
	dir = cleanPath(dir)

	remote, err := m.remote.List(ctx, relPath(dir))
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		if _, ok := m.overlay.Lookup(dir); !ok && dir != "/" {
			return nil, err
		}
		remote = nil
	}

	entries := make([]types.Entry, 0, len(remote))
	seen := make(map[string]bool, len(remote))
	for _, re := range remote {
		if seen[re.Name] {
			continue
		}
		entries = append(entries, FromRemote(dir, re))
		seen[re.Name] = true
	}
	for _, ve := range m.overlay.Children(dir) {
		name := ve.Name()
		if seen[name] {
			continue
		}
		entries = append(entries, FromVirtual(ve))
		seen[name] = true
	}
	return entries, nil
}

// Resolve finds the entry at p, preferring the overlay.
func (m *Engine) Resolve(ctx context.Context, p string) (*types.Entry, error) {
	p = cleanPath(p)
	if ve, ok := m.overlay.Lookup(p); ok {
		e := FromVirtual(ve)
		return &e, nil
	}
	if p == "/" {
		return &types.Entry{Name: "/", Path: "/", IsDir: true}, nil
	}

	parent, name := path.Split(p)
	entries, err := m.List(ctx, parent)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", types.ErrNotFound, p)
		}
		return nil, err
	}
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", types.ErrNotFound, p)
}

// FromRemote converts a listing row found in dir.
func FromRemote(dir string, re types.RemoteEntry) types.Entry {
	e := types.Entry{
		Name:     re.Name,
		Path:     path.Join(dir, re.Name),
		IsDir:    re.IsDir,
		Modified: re.ModTime(),
		Source:   types.SourceRemote,
		Meta:     map[string]string{},
	}
	if n, ok := re.SizeBytes(); ok && !re.IsDir {
		e.Size = n
	}
	if re.Type != "" {
		e.Meta["type"] = re.Type
		if !re.IsDir && strings.Contains(re.Type, "/") {
			e.MimeType = re.Type
		}
	}
	if re.Href != "" {
		e.Meta["href"] = re.Href
	}
	if e.MimeType == "" && !e.IsDir {
		e.MimeType = mime.TypeByExtension(path.Ext(re.Name))
	}
	return e
}

// FromVirtual converts an overlay entry.
func FromVirtual(ve overlay.Entry) types.Entry {
	e := types.Entry{
		Name:     path.Base(ve.Path),
		Path:     ve.Path,
		IsDir:    ve.IsDir,
		Size:     int64(len(ve.Content)),
		Modified: ve.ModTime,
		Source:   types.SourceVirtual,
	}
	if !ve.IsDir {
		e.MimeType = mimetype.Detect(ve.Content).String()
	}
	return e
}

func cleanPath(p string) string {
	return path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
}

// relPath converts an absolute facade path to the remote's project-relative
// form.
func relPath(p string) string {
	return strings.TrimPrefix(cleanPath(p), "/")
}
