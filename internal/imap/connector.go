// Package imap implements transport.Connector on top of go-imap v2. A session
// logs in, selects the push folder read-only and then waits in IDLE, turning
// EXISTS updates into new mail events.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/credential"
	"github.com/mailpush/pushd/internal/transport"
)

const (
	// DefaultIdleRefresh re-issues IDLE before the 29 minute limit of RFC 2177.
	DefaultIdleRefresh = 25 * time.Minute
	// DefaultDialTimeout bounds TCP connect and TLS handshake.
	DefaultDialTimeout = 30 * time.Second

	logoutTimeout = 5 * time.Second
)

// Option configures a Connector.
type Option func(*Connector)

// WithIdleRefresh sets how long a single IDLE command may run.
func WithIdleRefresh(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.idleRefresh = d
		}
	}
}

// WithDialTimeout sets the connect timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithTLSConfig overrides the TLS configuration used for ssl and starttls.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Connector) {
		c.tlsConfig = cfg
	}
}

// WithDebugWriter dumps the raw protocol exchange to w.
func WithDebugWriter(w io.Writer) Option {
	return func(c *Connector) {
		c.debug = w
	}
}

// Connector dials one account's IMAP server.
type Connector struct {
	accountUUID string
	settings    account.ServerSettings
	passwords   credential.Provider

	idleRefresh time.Duration
	dialTimeout time.Duration
	tlsConfig   *tls.Config
	debug       io.Writer
}

// NewConnector creates a connector for an account.
func NewConnector(acc account.Account, passwords credential.Provider, opts ...Option) *Connector {
	c := &Connector{
		accountUUID: acc.UUID,
		settings:    acc.Incoming,
		passwords:   passwords,
		idleRefresh: DefaultIdleRefresh,
		dialTimeout: DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tlsConfig == nil {
		c.tlsConfig = &tls.Config{
			ServerName: c.settings.Host,
			MinVersion: tls.VersionTLS12,
		}
	}
	return c
}

// Address returns host:port of the server.
func (c *Connector) Address() string {
	return net.JoinHostPort(c.settings.Host, strconv.Itoa(c.settings.Port))
}

// Connect dials, authenticates and selects the push folder. Cancelling ctx
// closes the socket, which aborts whatever step is in progress.
func (c *Connector) Connect(ctx context.Context) (transport.Session, error) {
	password, err := c.passwords.Password(c.accountUUID)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: c.dialTimeout, KeepAlive: 30 * time.Second}
	raw, err := dialer.DialContext(ctx, "tcp", c.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.Address(), err)
	}

	// Closing the socket is the only way to interrupt a blocked protocol step.
	stopWatch := context.AfterFunc(ctx, func() { _ = raw.Close() })

	s := &session{
		folder:  c.settings.PushFolder(),
		refresh: c.idleRefresh,
		newMail: make(chan uint32, 1),
	}

	client, conn, err := c.handshake(ctx, raw, s.handler())
	if err == nil {
		s.client = client
		s.conn = conn
		err = s.open(c.settings.Username, password)
	}

	if !stopWatch() {
		// ctx fired; the socket is already closed.
		if s.client != nil {
			_ = s.client.Close()
		}
		return nil, fmt.Errorf("connect to %s aborted: %w", c.Address(), context.Cause(ctx))
	}
	if err != nil {
		if s.client != nil {
			_ = s.client.Close()
		}
		_ = raw.Close()
		return nil, err
	}
	return s, nil
}

func (c *Connector) handshake(
	ctx context.Context,
	raw net.Conn,
	handler *imapclient.UnilateralDataHandler,
) (*imapclient.Client, net.Conn, error) {
	opts := &imapclient.Options{
		TLSConfig:             c.tlsConfig,
		UnilateralDataHandler: handler,
		DebugWriter:           c.debug,
	}

	switch c.settings.Security {
	case account.SecuritySSL:
		tlsConn := tls.Client(raw, c.tlsConfig)
		hsCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
		if err := tlsConn.HandshakeContext(hsCtx); err != nil {
			return nil, nil, fmt.Errorf("TLS handshake with %s failed: %w", c.Address(), err)
		}
		return imapclient.New(tlsConn, opts), tlsConn, nil
	case account.SecuritySTARTTLS:
		client, err := imapclient.NewStartTLS(raw, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("STARTTLS with %s failed: %w", c.Address(), err)
		}
		return client, raw, nil
	default:
		return imapclient.New(raw, opts), raw, nil
	}
}

type session struct {
	client  *imapclient.Client
	conn    net.Conn
	folder  string
	refresh time.Duration

	messages  atomic.Uint32
	newMail   chan uint32
	idling    atomic.Bool
	closeOnce sync.Once
}

func (s *session) handler() *imapclient.UnilateralDataHandler {
	return &imapclient.UnilateralDataHandler{
		Expunge: func(uint32) {
			for {
				n := s.messages.Load()
				if n == 0 || s.messages.CompareAndSwap(n, n-1) {
					return
				}
			}
		},
		Mailbox: func(data *imapclient.UnilateralDataMailbox) {
			if data.NumMessages == nil {
				return
			}
			n := *data.NumMessages
			if prev := s.messages.Swap(n); n <= prev {
				return
			}
			select {
			case s.newMail <- n:
			default:
				// A notification is already pending; replace it with the newest count.
				select {
				case <-s.newMail:
				default:
				}
				select {
				case s.newMail <- n:
				default:
				}
			}
		},
	}
}

func (s *session) open(username, password string) error {
	if err := s.client.WaitGreeting(); err != nil {
		return fmt.Errorf("failed to read server greeting: %w", err)
	}
	if err := s.client.Login(username, password).Wait(); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if !s.client.Caps().Has(imap.CapIdle) {
		return transport.ErrIdleNotSupported
	}
	data, err := s.client.Select(s.folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return fmt.Errorf("failed to select %s: %w", s.folder, err)
	}
	s.messages.Store(data.NumMessages)
	return nil
}

// Idle runs one IDLE command.
func (s *session) Idle(ctx context.Context) (transport.Event, error) {
	// Updates received between two IDLE commands are reported right away.
	select {
	case n := <-s.newMail:
		return transport.Event{Type: transport.EventNewMail, Folder: s.folder, Messages: n}, nil
	default:
	}

	idleCmd, err := s.client.Idle()
	if err != nil {
		return transport.Event{}, fmt.Errorf("failed to start IDLE: %w", err)
	}
	s.idling.Store(true)

	done := make(chan error, 1)
	go func() { done <- idleCmd.Wait() }()

	timer := time.NewTimer(s.refresh)
	defer timer.Stop()

	var ev transport.Event
	select {
	case n := <-s.newMail:
		ev = transport.Event{Type: transport.EventNewMail, Folder: s.folder, Messages: n}
	case <-timer.C:
		ev = transport.Event{Type: transport.EventRefresh, Folder: s.folder}
	case err := <-done:
		if err == nil {
			err = errors.New("server terminated IDLE")
		}
		return transport.Event{}, fmt.Errorf("IDLE ended: %w", err)
	case <-ctx.Done():
		// Close() tears the connection down, which unblocks the waiter.
		return transport.Event{}, ctx.Err()
	}

	if err := idleCmd.Close(); err != nil {
		return transport.Event{}, fmt.Errorf("failed to end IDLE: %w", err)
	}
	select {
	case err := <-done:
		if err != nil {
			return transport.Event{}, fmt.Errorf("IDLE completed with error: %w", err)
		}
	case <-ctx.Done():
		return transport.Event{}, ctx.Err()
	}
	s.idling.Store(false)
	return ev, nil
}

// Close logs out politely, bounded by a short deadline, then closes the socket.
// A session abandoned in the middle of IDLE skips the logout.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if !s.idling.Load() {
			_ = s.conn.SetDeadline(time.Now().Add(logoutTimeout))
			_ = s.client.Logout().Wait()
		}
		if closeErr := s.client.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = fmt.Errorf("failed to close connection: %w", closeErr)
		}
	})
	return err
}
