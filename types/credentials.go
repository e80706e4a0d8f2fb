package types

import (
	"fmt"
	"strings"
)

// Protocol selects the URL scope used on the remote server.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolWebDAV Protocol = "webdav"
)

// Scope returns the first URL path segment the server expects for this
// protocol.
func (p Protocol) Scope() string {
	if p == ProtocolWebDAV {
		return "dav"
	}
	return "files"
}

// ParseProtocol accepts "http", "plainHttp", "webdav" and "webdavLike"
// case-insensitively. The empty string maps to ProtocolHTTP.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "http", "plainhttp":
		return ProtocolHTTP, nil
	case "webdav", "webdavlike", "dav":
		return ProtocolWebDAV, nil
	}
	return "", fmt.Errorf("%w: protocol %q", ErrNotSupported, s)
}

// Credentials identify one remote session.
type Credentials struct {
	BaseURL  string   `json:"baseUrl"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Protocol Protocol `json:"protocol"`
	Project  string   `json:"project,omitempty"`
}

// IsZero reports whether no server is configured.
func (c Credentials) IsZero() bool {
	return c.BaseURL == ""
}

// String renders the credentials without the password.
func (c Credentials) String() string {
	s := c.Username + "@" + c.BaseURL
	if c.Project != "" {
		s += " [" + c.Project + "]"
	}
	return s
}
