// Package remotefs presents a remote file server that only speaks
// browser-style HTML listings, together with an in-process virtual overlay,
// as one hierarchical filesystem.
//
// The Facade is the entry point. Reads consult the overlay first; listings
// merge remote rows with virtual children; writes and directory creations
// under a virtual prefix stay in the overlay, everything else goes to the
// remote. Mutations notify an IndexHook and emit watch events.
package remotefs

import "github.com/jackfish212/remotefs/types"

type (
	Entry       = types.Entry
	RemoteEntry = types.RemoteEntry
	Credentials = types.Credentials
	Protocol    = types.Protocol
	Remote      = types.Remote
	IndexHook   = types.IndexHook
	WatchEvent  = types.WatchEvent
	EventType   = types.EventType
)

const (
	ProtocolHTTP   = types.ProtocolHTTP
	ProtocolWebDAV = types.ProtocolWebDAV
)

const (
	EventCreate = types.EventCreate
	EventChange = types.EventChange
	EventDelete = types.EventDelete
	EventAll    = types.EventAll
)

var (
	ErrNotFound     = types.ErrNotFound
	ErrUnavailable  = types.ErrUnavailable
	ErrAuthFailure  = types.ErrAuthFailure
	ErrTransport    = types.ErrTransport
	ErrNotSupported = types.ErrNotSupported
	ErrIsDir        = types.ErrIsDir
	ErrClosed       = types.ErrClosed
	ErrNotConnected = types.ErrNotConnected
)
