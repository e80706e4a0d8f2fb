package bridge

import (
	"encoding/json"
	"time"
)

// ─── JSON-RPC 2.0 ───

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC error codes
const (
	errCodeParse          = -32700
	errCodeInvalidRequest = -32600
	errCodeMethodNotFound = -32601
	errCodeInvalidParams  = -32602
	errCodeInternal       = -32603

	errCodeNotFound     = -32001
	errCodeUnavailable  = -32002
	errCodeAuthFailure  = -32003
	errCodeTransport    = -32004
	errCodeNotConnected = -32005
)

const methodChanged = "notifications/changed"

// ─── Results ───

type entryResult struct {
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	IsDir    bool              `json:"isDir"`
	Size     int64             `json:"size"`
	MimeType string            `json:"mimeType,omitempty"`
	Modified *time.Time        `json:"modified,omitempty"`
	Source   string            `json:"source"`
	Meta     map[string]string `json:"meta,omitempty"`
}

type statusResult struct {
	State     string     `json:"state"`
	Message   string     `json:"message,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	BaseURL   string     `json:"baseUrl,omitempty"`
	Username  string     `json:"username,omitempty"`
	Project   string     `json:"project,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	FacadeID  string     `json:"facadeId,omitempty"`
	Started   *time.Time `json:"started,omitempty"`
}

type readResult struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type changedParams struct {
	Type    string    `json:"type"`
	Path    string    `json:"path"`
	OldPath string    `json:"oldPath,omitempty"`
	Time    time.Time `json:"time"`
}
