package connection

import (
	"time"

	"github.com/jackfish212/remotefs"
	"github.com/jackfish212/remotefs/types"
)

// Kind enumerates the connection states.
type Kind int

const (
	Disconnected Kind = iota
	Connecting
	Connected
	Error
)

func (k Kind) String() string {
	switch k {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	}
	return "unknown"
}

// State is the Manager's connection state. Message is set for Error.
type State struct {
	Kind    Kind
	Message string
}

func (s State) String() string {
	if s.Message == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + ": " + s.Message
}

// Session is one authenticated binding of credentials to a Facade.
type Session struct {
	ID          string
	Credentials types.Credentials
	Facade      *remotefs.Facade
	Started     time.Time
}
