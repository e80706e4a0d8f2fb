// Package types defines the data model, sentinel errors and collaborator
// interfaces shared by the remotefs packages.
package types

import "context"

// Lister lists a remote directory. Paths are relative to the project root
// and carry no leading separator.
type Lister interface {
	List(ctx context.Context, path string) ([]RemoteEntry, error)
}

// Remote is the full remote directory client surface used by the facade.
// Mutations address an item by name within a parent directory.
type Remote interface {
	Lister
	ReadBytes(ctx context.Context, path string) ([]byte, error)
	Mkdir(ctx context.Context, name, parent string) error
	Put(ctx context.Context, name string, data []byte, parent string) error
	Remove(ctx context.Context, name, parent string) error
	Rename(ctx context.Context, oldName, newName, parent string) error
}

// IndexHook is notified after successful mutations. Implementations must not
// assume the notification is delivered for every change; errors are logged
// by the caller and otherwise ignored.
type IndexHook interface {
	OnCreated(ctx context.Context, path string) error
	OnDeleted(ctx context.Context, path string) error
	OnRenamed(ctx context.Context, oldPath, newPath string) error
}
