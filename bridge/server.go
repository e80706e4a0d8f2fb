// Package bridge exposes a connection.Manager over line-delimited JSON-RPC
// 2.0 on stdio. Every request decodes into one typed Command; Facade change
// events are pushed to the client as notifications.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/connection"
	"github.com/jackfish212/remotefs/types"
	"github.com/sirupsen/logrus"
)

// Server reads requests from in and writes responses and notifications to
// out.
type Server struct {
	mgr     *connection.Manager
	handler Handler
	info    remotefs.VersionInfo

	wmu sync.Mutex
	enc *json.Encoder

	fmu     sync.Mutex
	watcher *remotefs.Watcher
	wg      sync.WaitGroup
}

// New creates a Server driving mgr.
func New(mgr *connection.Manager) *Server {
	return &Server{
		mgr:     mgr,
		handler: &sessionHandler{mgr: mgr},
		info:    remotefs.GetVersionInfo(),
	}
}

// Run serves until in is exhausted or ctx is cancelled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)
	s.enc = json.NewEncoder(out)

	logrus.WithField("version", s.info.Version).Info("bridge: started")

	unsubscribe := s.mgr.OnStateChange(func(st connection.State) {
		if st.Kind == connection.Connected {
			s.follow(s.mgr.Facade())
		}
	})
	s.follow(s.mgr.Facade())
	defer func() {
		unsubscribe()
		s.follow(nil)
		s.wg.Wait()
	}()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			logrus.Info("bridge: context cancelled")
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			logrus.WithField("error", err).Warn("bridge: invalid JSON-RPC message")
			if err := s.write(&jsonRPCResponse{
				JSONRPC: "2.0",
				Error:   &jsonRPCError{Code: errCodeParse, Message: "Parse error"},
			}); err != nil {
				return err
			}
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			continue
		}
		if err := s.write(resp); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stdin read error: %w", err)
	}
	logrus.Info("bridge: stdin closed, shutting down")
	return nil
}

func (s *Server) dispatch(ctx context.Context, req *jsonRPCRequest) *jsonRPCResponse {
	switch req.Method {
	case "":
		if req.ID == nil {
			return nil
		}
		return &jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &jsonRPCError{Code: errCodeInvalidRequest, Message: "missing method"}}
	case "ping":
		return &jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}
	case "version":
		return &jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]string{
			"version":   s.info.Version,
			"goVersion": s.info.GoVersion,
			"platform":  s.info.Platform,
		}}
	}

	cmd, err := Decode(req.Method, req.Params)
	if err != nil {
		var unknown errUnknownMethod
		code := errCodeInvalidParams
		if errors.As(err, &unknown) {
			code = errCodeMethodNotFound
			logrus.WithField("method", req.Method).Debug("bridge: unknown method")
		}
		if req.ID == nil {
			return nil
		}
		return &jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &jsonRPCError{Code: code, Message: err.Error()}}
	}

	result, err := cmd.dispatch(ctx, s.handler)
	if req.ID == nil {
		return nil
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"method": req.Method, "error": err}).Debug("bridge: command failed")
		return &jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &jsonRPCError{Code: codeFor(err), Message: err.Error()}}
	}
	if result == nil {
		result = map[string]any{}
	}
	return &jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *Server) write(v any) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

// follow forwards f's change events, replacing any previous subscription.
// A nil f only stops forwarding.
func (s *Server) follow(f *remotefs.Facade) {
	s.fmu.Lock()
	defer s.fmu.Unlock()
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if f == nil {
		return
	}
	w := f.Watch("/", remotefs.EventAll)
	s.watcher = w
	s.wg.Add(1)
	go s.forward(w)
}

func (s *Server) forward(w *remotefs.Watcher) {
	defer s.wg.Done()
	for {
		select {
		case ev := <-w.Events():
			s.notify(ev)
		case <-w.Done():
			for {
				select {
				case ev := <-w.Events():
					s.notify(ev)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) notify(ev types.WatchEvent) {
	err := s.write(&jsonRPCNotification{
		JSONRPC: "2.0",
		Method:  methodChanged,
		Params: changedParams{
			Type:    ev.Type.String(),
			Path:    ev.Path,
			OldPath: ev.OldPath,
			Time:    ev.Time,
		},
	})
	if err != nil {
		logrus.WithField("error", err).Warn("bridge: failed to send change notification")
	}
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return errCodeNotFound
	case errors.Is(err, types.ErrUnavailable):
		return errCodeUnavailable
	case errors.Is(err, types.ErrAuthFailure):
		return errCodeAuthFailure
	case errors.Is(err, types.ErrTransport):
		return errCodeTransport
	case errors.Is(err, types.ErrNotConnected), errors.Is(err, types.ErrClosed):
		return errCodeNotConnected
	case errors.Is(err, types.ErrNotSupported), errors.Is(err, types.ErrIsDir), errors.Is(err, errBadParams):
		return errCodeInvalidParams
	}
	return errCodeInternal
}
