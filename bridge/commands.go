package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// Command is one decoded request. Each variant dispatches to exactly one
// Handler method.
type Command interface {
	Method() string
	dispatch(ctx context.Context, h Handler) (any, error)
}

// Handler executes commands. Adding a Command variant adds a method here.
type Handler interface {
	Connect(ctx context.Context, c ConnectCommand) (any, error)
	Disconnect(ctx context.Context, c DisconnectCommand) (any, error)
	Reconnect(ctx context.Context, c ReconnectCommand) (any, error)
	Status(ctx context.Context, c StatusCommand) (any, error)
	Stat(ctx context.Context, c StatCommand) (any, error)
	List(ctx context.Context, c ListCommand) (any, error)
	Read(ctx context.Context, c ReadCommand) (any, error)
	Write(ctx context.Context, c WriteCommand) (any, error)
	Mkdir(ctx context.Context, c MkdirCommand) (any, error)
	Delete(ctx context.Context, c DeleteCommand) (any, error)
	Rename(ctx context.Context, c RenameCommand) (any, error)
}

type ConnectCommand struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Protocol string `json:"protocol,omitempty"`
	Project  string `json:"project,omitempty"`
}

type DisconnectCommand struct{}

type ReconnectCommand struct{}

type StatusCommand struct{}

type StatCommand struct {
	Path string `json:"path"`
}

type ListCommand struct {
	Path string `json:"path"`
}

type ReadCommand struct {
	Path string `json:"path"`
}

// WriteCommand carries text content, or base64 when Encoding is "base64".
type WriteCommand struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding,omitempty"`
}

type MkdirCommand struct {
	Path string `json:"path"`
}

type DeleteCommand struct {
	Path string `json:"path"`
}

type RenameCommand struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (ConnectCommand) Method() string    { return "connect" }
func (DisconnectCommand) Method() string { return "disconnect" }
func (ReconnectCommand) Method() string  { return "reconnect" }
func (StatusCommand) Method() string     { return "status" }
func (StatCommand) Method() string       { return "fs/stat" }
func (ListCommand) Method() string       { return "fs/list" }
func (ReadCommand) Method() string       { return "fs/read" }
func (WriteCommand) Method() string      { return "fs/write" }
func (MkdirCommand) Method() string      { return "fs/mkdir" }
func (DeleteCommand) Method() string     { return "fs/delete" }
func (RenameCommand) Method() string     { return "fs/rename" }

func (c ConnectCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Connect(ctx, c)
}
func (c DisconnectCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Disconnect(ctx, c)
}
func (c ReconnectCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Reconnect(ctx, c)
}
func (c StatusCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Status(ctx, c)
}
func (c StatCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Stat(ctx, c)
}
func (c ListCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.List(ctx, c)
}
func (c ReadCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Read(ctx, c)
}
func (c WriteCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Write(ctx, c)
}
func (c MkdirCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Mkdir(ctx, c)
}
func (c DeleteCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Delete(ctx, c)
}
func (c RenameCommand) dispatch(ctx context.Context, h Handler) (any, error) {
	return h.Rename(ctx, c)
}

// errUnknownMethod is returned by Decode for methods with no variant.
type errUnknownMethod string

func (e errUnknownMethod) Error() string { return "unknown method: " + string(e) }

// Decode builds the Command for method from its JSON params.
func Decode(method string, params json.RawMessage) (Command, error) {
	switch method {
	case "connect":
		return decodeInto[ConnectCommand](params)
	case "disconnect":
		return DisconnectCommand{}, nil
	case "reconnect":
		return ReconnectCommand{}, nil
	case "status":
		return StatusCommand{}, nil
	case "fs/stat":
		return decodeInto[StatCommand](params)
	case "fs/list":
		return decodeInto[ListCommand](params)
	case "fs/read":
		return decodeInto[ReadCommand](params)
	case "fs/write":
		return decodeInto[WriteCommand](params)
	case "fs/mkdir":
		return decodeInto[MkdirCommand](params)
	case "fs/delete":
		return decodeInto[DeleteCommand](params)
	case "fs/rename":
		return decodeInto[RenameCommand](params)
	}
	return nil, errUnknownMethod(method)
}

func decodeInto[T Command](params json.RawMessage) (Command, error) {
	var c T
	if len(params) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(params, &c); err != nil {
		return nil, fmt.Errorf("invalid params for %s: %w", c.Method(), err)
	}
	return c, nil
}
