// Package transport defines the contract between push workers and the
// protocol specific code that keeps a server connection idling.
package transport

import (
	"context"
	"errors"
)

// ErrIdleNotSupported is returned by a Connector when the server cannot push.
var ErrIdleNotSupported = errors.New("server does not support IDLE")

// EventType identifies what ended an idle wait.
type EventType int

const (
	// EventRefresh means the idle period elapsed without news and should be re-issued.
	EventRefresh EventType = iota
	// EventNewMail means the server announced new messages.
	EventNewMail
)

func (t EventType) String() string {
	switch t {
	case EventRefresh:
		return "refresh"
	case EventNewMail:
		return "new-mail"
	default:
		return "unknown"
	}
}

// Event is the outcome of one idle wait.
type Event struct {
	Type     EventType
	Folder   string
	Messages uint32
}

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks github.com/mailpush/pushd/internal/transport Connector,Session

// Connector opens push sessions. Connect must abort promptly when ctx is
// cancelled and must not leave a connection open when it returns an error.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// Session is an authenticated connection with a push folder selected.
type Session interface {
	// Idle blocks until the server reports new mail, the refresh period
	// elapses, the connection fails, or ctx is cancelled.
	Idle(ctx context.Context) (Event, error)
	// Close releases the connection. It is safe to call more than once.
	Close() error
}
