package types

import "errors"

var (
	ErrNotFound     = errors.New("remotefs: not found")
	ErrUnavailable  = errors.New("remotefs: remote operation failed")
	ErrAuthFailure  = errors.New("remotefs: authentication failed")
	ErrTransport    = errors.New("remotefs: transport failure")
	ErrNotSupported = errors.New("remotefs: operation not supported")
	ErrIsDir        = errors.New("remotefs: is a directory")
	ErrClosed       = errors.New("remotefs: filesystem closed")
	ErrNotConnected = errors.New("remotefs: not connected")
)
