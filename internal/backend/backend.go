// Package backend resolves the protocol backend of an account and tells the
// push orchestrator whether that backend can push.
package backend

import (
	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/credential"
	"github.com/mailpush/pushd/internal/imap"
	"github.com/mailpush/pushd/internal/transport"
)

//go:generate mockgen -destination=mocks/mock_backend.go -package=mocks github.com/mailpush/pushd/internal/backend Backend

// Backend is the protocol implementation bound to one account's server settings.
type Backend interface {
	Type() string
	// IsPushCapable reports whether the backend supports server initiated new mail notification.
	IsPushCapable() bool
	// PushConnector returns the transport used by push workers, or nil when push is unsupported.
	PushConnector() transport.Connector
}

// Factory builds a backend for an account.
type Factory func(acc account.Account) (Backend, error)

type imapBackend struct {
	connector *imap.Connector
}

func (b *imapBackend) Type() string                       { return account.ServerTypeIMAP }
func (b *imapBackend) IsPushCapable() bool                { return true }
func (b *imapBackend) PushConnector() transport.Connector { return b.connector }

// NewIMAPFactory returns a factory producing push capable IMAP backends.
func NewIMAPFactory(passwords credential.Provider, opts ...imap.Option) Factory {
	return func(acc account.Account) (Backend, error) {
		return &imapBackend{connector: imap.NewConnector(acc, passwords, opts...)}, nil
	}
}

// pollOnlyBackend is used for protocols without a push mechanism.
type pollOnlyBackend struct {
	serverType string
}

func (b *pollOnlyBackend) Type() string                       { return b.serverType }
func (b *pollOnlyBackend) IsPushCapable() bool                { return false }
func (b *pollOnlyBackend) PushConnector() transport.Connector { return nil }

// NewPollOnlyFactory returns a factory for backends that can only be polled, such as POP3.
func NewPollOnlyFactory() Factory {
	return func(acc account.Account) (Backend, error) {
		return &pollOnlyBackend{serverType: acc.Incoming.Type}, nil
	}
}
