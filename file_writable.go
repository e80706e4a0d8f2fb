package remotefs

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// fileWriter buffers writes and stores the file on Close.
type fileWriter struct {
	ctx    context.Context
	f      *Facade
	path   string
	buf    bytes.Buffer
	closed bool
}

var errWriterClosed = errors.New("remotefs: write on closed file")

// Create returns a writer for path. Nothing is stored until Close, which
// calls WriteFile with everything written so far.
func (f *Facade) Create(ctx context.Context, path string) io.WriteCloser {
	return &fileWriter{ctx: ctx, f: f, path: CleanPath(path)}
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}
	return w.buf.Write(p)
}

func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.WriteFile(w.ctx, w.path, w.buf.Bytes())
}

// Name returns the base name of the file being written.
func (w *fileWriter) Name() string { return baseName(w.path) }
