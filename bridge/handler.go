package bridge

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/connection"
	"github.com/jackfish212/remotefs/types"
)

var _ Handler = (*sessionHandler)(nil)

var errBadParams = errors.New("bridge: invalid params")

// errSessionChanged is returned when the session was replaced while a file
// operation was in flight; its result belongs to a discarded Facade.
var errSessionChanged = fmt.Errorf("%w: session changed during request", types.ErrNotConnected)

type sessionHandler struct {
	mgr *connection.Manager
}

func (h *sessionHandler) Connect(ctx context.Context, c ConnectCommand) (any, error) {
	proto, err := types.ParseProtocol(c.Protocol)
	if err != nil {
		return nil, err
	}
	err = h.mgr.ConnectCredentials(ctx, types.Credentials{
		BaseURL:  c.URL,
		Username: c.Username,
		Password: c.Password,
		Protocol: proto,
		Project:  c.Project,
	})
	if err != nil {
		return nil, err
	}
	return h.status(), nil
}

func (h *sessionHandler) Disconnect(ctx context.Context, _ DisconnectCommand) (any, error) {
	if err := h.mgr.Disconnect(ctx); err != nil {
		return nil, err
	}
	return h.status(), nil
}

func (h *sessionHandler) Reconnect(ctx context.Context, _ ReconnectCommand) (any, error) {
	if err := h.mgr.AutoReconnect(ctx); err != nil {
		return nil, err
	}
	return h.status(), nil
}

func (h *sessionHandler) Status(context.Context, StatusCommand) (any, error) {
	return h.status(), nil
}

func (h *sessionHandler) Stat(ctx context.Context, c StatCommand) (any, error) {
	return onCurrent(h.mgr, func(f *remotefs.Facade) (any, error) {
		e, err := f.Stat(ctx, c.Path)
		if err != nil {
			return nil, err
		}
		return toEntryResult(*e), nil
	})
}

func (h *sessionHandler) List(ctx context.Context, c ListCommand) (any, error) {
	return onCurrent(h.mgr, func(f *remotefs.Facade) (any, error) {
		entries, err := f.List(ctx, c.Path)
		if err != nil {
			return nil, err
		}
		out := make([]entryResult, 0, len(entries))
		for _, e := range entries {
			out = append(out, toEntryResult(e))
		}
		return map[string]any{"path": remotefs.CleanPath(c.Path), "entries": out}, nil
	})
}

func (h *sessionHandler) Read(ctx context.Context, c ReadCommand) (any, error) {
	return onCurrent(h.mgr, func(f *remotefs.Facade) (any, error) {
		data, err := f.ReadFile(ctx, c.Path)
		if err != nil {
			return nil, err
		}
		r := readResult{Path: remotefs.CleanPath(c.Path), Content: string(data), Encoding: "utf-8"}
		if !utf8.Valid(data) {
			r.Content, r.Encoding = base64.StdEncoding.EncodeToString(data), "base64"
		}
		return r, nil
	})
}

func (h *sessionHandler) Write(ctx context.Context, c WriteCommand) (any, error) {
	data := []byte(c.Content)
	switch c.Encoding {
	case "", "utf-8":
	case "base64":
		var err error
		if data, err = base64.StdEncoding.DecodeString(c.Content); err != nil {
			return nil, fmt.Errorf("%w: content: %v", errBadParams, err)
		}
	default:
		return nil, fmt.Errorf("%w: encoding %q", errBadParams, c.Encoding)
	}
	return onCurrent(h.mgr, func(f *remotefs.Facade) (any, error) {
		return nil, f.WriteFile(ctx, c.Path, data)
	})
}

func (h *sessionHandler) Mkdir(ctx context.Context, c MkdirCommand) (any, error) {
	return onCurrent(h.mgr, func(f *remotefs.Facade) (any, error) {
		return nil, f.CreateDirectory(ctx, c.Path)
	})
}

func (h *sessionHandler) Delete(ctx context.Context, c DeleteCommand) (any, error) {
	return onCurrent(h.mgr, func(f *remotefs.Facade) (any, error) {
		return nil, f.Delete(ctx, c.Path)
	})
}

func (h *sessionHandler) Rename(ctx context.Context, c RenameCommand) (any, error) {
	return onCurrent(h.mgr, func(f *remotefs.Facade) (any, error) {
		return nil, f.Rename(ctx, c.From, c.To)
	})
}

func (h *sessionHandler) status() statusResult {
	st := h.mgr.State()
	r := statusResult{State: st.Kind.String(), Message: st.Message}
	if err := h.mgr.LastError(); err != nil {
		r.LastError = err.Error()
	}
	if s, ok := h.mgr.Session(); ok {
		r.BaseURL = s.Credentials.BaseURL
		r.Username = s.Credentials.Username
		r.Project = s.Credentials.Project
		r.SessionID = s.ID
		r.FacadeID = s.Facade.ID()
		started := s.Started
		r.Started = &started
	}
	return r
}

// onCurrent runs op on the current Facade and drops its result if the
// session was replaced in the meantime.
func onCurrent(mgr *connection.Manager, op func(*remotefs.Facade) (any, error)) (any, error) {
	f := mgr.Facade()
	if f == nil {
		return nil, types.ErrNotConnected
	}
	res, err := op(f)
	if !mgr.IsCurrent(f) {
		return nil, errSessionChanged
	}
	return res, err
}

func toEntryResult(e types.Entry) entryResult {
	r := entryResult{
		Name:     e.Name,
		Path:     e.Path,
		IsDir:    e.IsDir,
		Size:     e.Size,
		MimeType: e.MimeType,
		Source:   e.Source.String(),
		Meta:     e.Meta,
	}
	if !e.Modified.IsZero() {
		m := e.Modified
		r.Modified = &m
	}
	return r
}
