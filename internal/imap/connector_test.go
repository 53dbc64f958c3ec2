package imap

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/transport"
)

const (
	testUser     = "alice"
	testPassword = "wonderland"
)

type staticPasswords map[string]string

func (p staticPasswords) Password(uuid string) (string, error) {
	if pw, ok := p[uuid]; ok {
		return pw, nil
	}
	return "", errors.New("no password")
}

func startServer(t *testing.T) (string, int) {
	t.Helper()

	mem := imapmemserver.New()
	user := imapmemserver.NewUser(testUser, testPassword)
	require.NoError(t, user.Create("INBOX", nil))
	mem.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
			imap.CapIdle:      {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func testAccount(host string, port int) account.Account {
	return account.Account{
		UUID:           "11111111-1111-1111-1111-111111111111",
		FolderPushMode: account.FolderModeAll,
		Incoming: account.ServerSettings{
			Type:     account.ServerTypeIMAP,
			Host:     host,
			Port:     port,
			Security: account.SecurityNone,
			Username: testUser,
		},
	}
}

func TestConnectAndRefresh(t *testing.T) {
	t.Parallel()

	host, port := startServer(t)
	acc := testAccount(host, port)
	c := NewConnector(acc, staticPasswords{acc.UUID: testPassword}, WithIdleRefresh(100*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := c.Connect(ctx)
	require.NoError(t, err)
	defer sess.Close()

	ev, err := sess.Idle(ctx)
	require.NoError(t, err)
	assert.Equal(t, transport.EventRefresh, ev.Type)
	assert.Equal(t, account.DefaultPushFolder, ev.Folder)

	// The session is reusable after a refresh.
	ev, err = sess.Idle(ctx)
	require.NoError(t, err)
	assert.Equal(t, transport.EventRefresh, ev.Type)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close(), "close is idempotent")
}

func TestIdleReportsNewMail(t *testing.T) {
	t.Parallel()

	host, port := startServer(t)
	acc := testAccount(host, port)
	c := NewConnector(acc, staticPasswords{acc.UUID: testPassword}, WithIdleRefresh(5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := c.Connect(ctx)
	require.NoError(t, err)
	defer sess.Close()

	type result struct {
		ev  transport.Event
		err error
	}
	results := make(chan result, 1)
	go func() {
		ev, err := sess.Idle(ctx)
		results <- result{ev, err}
	}()

	appendMessage(t, host, port)

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, transport.EventNewMail, r.ev.Type)
		assert.EqualValues(t, 1, r.ev.Messages)
	case <-ctx.Done():
		t.Fatal("no new mail event received")
	}
}

func appendMessage(t *testing.T, host string, port int) {
	t.Helper()

	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	require.NoError(t, err)
	client := imapclient.New(conn, nil)
	defer client.Close()

	require.NoError(t, client.Login(testUser, testPassword).Wait())

	msg := []byte("From: bob@example.com\r\nSubject: hi\r\n\r\nhello\r\n")
	cmd := client.Append("INBOX", int64(len(msg)), nil)
	_, err = cmd.Write(msg)
	require.NoError(t, err)
	require.NoError(t, cmd.Close())
	_, err = cmd.Wait()
	require.NoError(t, err)
}

func TestIdleStopsOnCancel(t *testing.T) {
	t.Parallel()

	host, port := startServer(t)
	acc := testAccount(host, port)
	c := NewConnector(acc, staticPasswords{acc.UUID: testPassword}, WithIdleRefresh(time.Minute))

	sess, err := c.Connect(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = sess.Idle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, sess.Close())
}

func TestConnectFailures(t *testing.T) {
	t.Parallel()

	host, port := startServer(t)

	tests := []struct {
		name      string
		passwords staticPasswords
		ctx       func() (context.Context, context.CancelFunc)
		wantErr   error
	}{
		{
			name:      "wrong password",
			passwords: staticPasswords{"11111111-1111-1111-1111-111111111111": "nope"},
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 5*time.Second)
			},
		},
		{
			name:      "missing password",
			passwords: staticPasswords{},
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 5*time.Second)
			},
		},
		{
			name:      "cancelled before dialing",
			passwords: staticPasswords{"11111111-1111-1111-1111-111111111111": testPassword},
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := tt.ctx()
			defer cancel()

			c := NewConnector(testAccount(host, port), tt.passwords)
			sess, err := c.Connect(ctx)
			require.Error(t, err)
			assert.Nil(t, sess)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
