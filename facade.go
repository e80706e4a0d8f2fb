package remotefs

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackfish212/remotefs/merge"
	"github.com/jackfish212/remotefs/metrics"
	"github.com/jackfish212/remotefs/overlay"
	"github.com/sirupsen/logrus"
)

// Facade is the unified filesystem over one remote session and the shared
// virtual overlay. It holds no per-call state; every operation goes to the
// remote or the overlay.
type Facade struct {
	id       string
	remote   Remote
	overlay  *overlay.Store
	merge    *merge.Engine
	hub      *watchHub
	hook     IndexHook
	prefixes []string
	closed   atomic.Bool
}

// Option configures a Facade.
type Option func(*Facade)

// WithVirtualPrefixes marks path prefixes whose writes and directory
// creations stay in the overlay and never reach the remote.
func WithVirtualPrefixes(prefixes ...string) Option {
	return func(f *Facade) {
		for _, p := range prefixes {
			if p = strings.TrimSpace(p); p != "" {
				f.prefixes = append(f.prefixes, CleanPath(p))
			}
		}
	}
}

// WithIndexHook sets the collaborator notified after mutations.
func WithIndexHook(h IndexHook) Option {
	return func(f *Facade) { f.hook = h }
}

// New creates a Facade over remote and store.
func New(remote Remote, store *overlay.Store, opts ...Option) *Facade {
	f := &Facade{
		id:      uuid.NewString(),
		remote:  remote,
		overlay: store,
		merge:   merge.New(remote, store),
		hub:     newWatchHub(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID identifies this Facade instance. A reconnect produces a new ID.
func (f *Facade) ID() string { return f.id }

// Close detaches the Facade. Later operations fail with ErrClosed and all
// watchers are closed.
func (f *Facade) Close() error {
	if f.closed.CompareAndSwap(false, true) {
		f.hub.closeAll()
		logrus.WithField("facade", f.id).Debug("remotefs: facade closed")
	}
	return nil
}

// Closed reports whether Close has been called.
func (f *Facade) Closed() bool { return f.closed.Load() }

// Watch creates a Watcher that receives events for paths under prefix
// matching the given event mask. Use "/" or "" to watch all paths.
func (f *Facade) Watch(prefix string, mask EventType) *Watcher {
	return f.hub.watch(prefix, mask)
}

// IsVirtual reports whether p lies under a virtual-only prefix.
func (f *Facade) IsVirtual(p string) bool {
	p = CleanPath(p)
	for _, prefix := range f.prefixes {
		if prefix == "/" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// Stat returns entry metadata.
func (f *Facade) Stat(ctx context.Context, path string) (e *Entry, err error) {
	defer observe("stat", &err)
	if err := f.check(); err != nil {
		return nil, err
	}
	path = CleanPath(path)
	if path == "/" {
		return &Entry{Name: "/", Path: "/", IsDir: true}, nil
	}
	return f.merge.Resolve(ctx, path)
}

// List returns the merged entries of a directory.
func (f *Facade) List(ctx context.Context, path string) (entries []Entry, err error) {
	defer observe("list", &err)
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.merge.List(ctx, CleanPath(path))
}

// ReadFile returns the content of a file, preferring the overlay.
func (f *Facade) ReadFile(ctx context.Context, path string) (data []byte, err error) {
	defer observe("read", &err)
	if err := f.check(); err != nil {
		return nil, err
	}
	path = CleanPath(path)
	if ve, ok := f.overlay.Lookup(path); ok {
		if ve.IsDir {
			return nil, fmt.Errorf("%w: %s", ErrIsDir, path)
		}
		return bytes.Clone(ve.Content), nil
	}
	return f.remote.ReadBytes(ctx, remotePath(path))
}

// WriteFile creates or replaces a file. Paths under a virtual prefix are
// stored in the overlay only.
func (f *Facade) WriteFile(ctx context.Context, path string, data []byte) (err error) {
	defer observe("write", &err)
	if err := f.check(); err != nil {
		return err
	}
	path = CleanPath(path)
	parent, name := SplitParent(path)
	if name == "" {
		return fmt.Errorf("%w: cannot write to %s", ErrIsDir, path)
	}

	if f.IsVirtual(path) {
		f.overlay.Put(path, data, false)
	} else if err := f.remote.Put(ctx, name, data, parent); err != nil {
		return err
	}

	f.notify("created", path, func(h IndexHook) error { return h.OnCreated(ctx, path) })
	f.hub.emit(EventChange, path)
	return nil
}

// CreateDirectory creates a directory, in the overlay for virtual paths.
func (f *Facade) CreateDirectory(ctx context.Context, path string) (err error) {
	defer observe("mkdir", &err)
	if err := f.check(); err != nil {
		return err
	}
	path = CleanPath(path)
	parent, name := SplitParent(path)
	if name == "" {
		return nil
	}

	if f.IsVirtual(path) {
		f.overlay.Put(path, nil, true)
	} else if err := f.remote.Mkdir(ctx, name, parent); err != nil {
		return err
	}

	f.notify("created", path, func(h IndexHook) error { return h.OnCreated(ctx, path) })
	f.hub.emit(EventCreate, path)
	return nil
}

// Delete removes a remote file or directory. Virtual entries cannot be
// deleted.
func (f *Facade) Delete(ctx context.Context, path string) (err error) {
	defer observe("delete", &err)
	if err := f.check(); err != nil {
		return err
	}
	path = CleanPath(path)
	if f.IsVirtual(path) {
		return fmt.Errorf("%w: delete of virtual path %s", ErrNotSupported, path)
	}
	parent, name := SplitParent(path)
	if name == "" {
		return fmt.Errorf("%w: delete of root", ErrNotSupported)
	}
	if err := f.remote.Remove(ctx, name, parent); err != nil {
		return err
	}

	f.notify("deleted", path, func(h IndexHook) error { return h.OnDeleted(ctx, path) })
	f.hub.emit(EventDelete, path)
	return nil
}

// Rename renames an entry within its directory.
func (f *Facade) Rename(ctx context.Context, oldPath, newPath string) (err error) {
	defer observe("rename", &err)
	if err := f.check(); err != nil {
		return err
	}
	oldPath = CleanPath(oldPath)
	newPath = CleanPath(newPath)
	if f.IsVirtual(oldPath) || f.IsVirtual(newPath) {
		return fmt.Errorf("%w: rename of virtual path %s", ErrNotSupported, oldPath)
	}
	oldParent, oldName := SplitParent(oldPath)
	newParent, newName := SplitParent(newPath)
	if oldName == "" || newName == "" {
		return fmt.Errorf("%w: rename of root", ErrNotSupported)
	}
	if oldParent != newParent {
		return fmt.Errorf("%w: move across directories (%s → %s)", ErrNotSupported, oldPath, newPath)
	}
	if oldName == newName {
		return nil
	}
	if err := f.remote.Rename(ctx, oldName, newName, oldParent); err != nil {
		return err
	}

	f.notify("renamed", newPath, func(h IndexHook) error { return h.OnRenamed(ctx, oldPath, newPath) })
	f.hub.emit(EventDelete, oldPath)
	f.hub.emitRename(EventCreate, newPath, oldPath)
	return nil
}

func (f *Facade) check() error {
	if f.closed.Load() {
		return ErrClosed
	}
	return nil
}

// notify calls the index hook, logging instead of returning its error.
func (f *Facade) notify(what, path string, call func(IndexHook) error) {
	if f.hook == nil {
		return
	}
	if err := call(f.hook); err != nil {
		logrus.WithFields(logrus.Fields{
			"event": what,
			"path":  path,
			"error": err,
		}).Warn("remotefs: index hook failed")
	}
}

func observe(op string, errp *error) {
	metrics.RecordFacadeOp(op, *errp)
}
