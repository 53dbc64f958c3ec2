package backend

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/backend/mocks"
	"github.com/mailpush/pushd/internal/credential"
)

func imapAccount(uuid, host string) account.Account {
	return account.Account{
		UUID:           uuid,
		FolderPushMode: account.FolderModeAll,
		Incoming: account.ServerSettings{
			Type:     account.ServerTypeIMAP,
			Host:     host,
			Port:     993,
			Security: account.SecuritySSL,
		},
	}
}

type changeRecorder struct {
	mu      sync.Mutex
	changed []string
}

func (r *changeRecorder) record(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, uuid)
}

func (r *changeRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changed...)
}

func TestFactoriesCapability(t *testing.T) {
	t.Parallel()

	m := NewManager(map[string]Factory{
		account.ServerTypeIMAP: NewIMAPFactory(credential.FileOverrides{}),
		account.ServerTypePOP3: NewPollOnlyFactory(),
	})

	imapBackend, err := m.GetBackend(imapAccount("a", "imap.example.com"))
	require.NoError(t, err)
	assert.True(t, imapBackend.IsPushCapable())
	assert.NotNil(t, imapBackend.PushConnector())
	assert.Equal(t, account.ServerTypeIMAP, imapBackend.Type())

	pop := imapAccount("b", "pop.example.com")
	pop.Incoming.Type = account.ServerTypePOP3
	popBackend, err := m.GetBackend(pop)
	require.NoError(t, err)
	assert.False(t, popBackend.IsPushCapable())
	assert.Nil(t, popBackend.PushConnector())
}

func TestGetBackendUnknownType(t *testing.T) {
	t.Parallel()

	m := NewManager(map[string]Factory{})
	_, err := m.GetBackend(imapAccount("a", "imap.example.com"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backend for server type")
}

func TestGetBackendFactoryError(t *testing.T) {
	t.Parallel()

	m := NewManager(map[string]Factory{
		account.ServerTypeIMAP: func(account.Account) (Backend, error) { return nil, errors.New("boom") },
	})
	_, err := m.GetBackend(imapAccount("a", "imap.example.com"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestGetBackendCachesAndDetectsChange(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	created := 0
	m := NewManager(map[string]Factory{
		account.ServerTypeIMAP: func(account.Account) (Backend, error) {
			created++
			return mocks.NewMockBackend(ctrl), nil
		},
	})
	rec := &changeRecorder{}
	m.AddListener(rec.record)

	acc := imapAccount("a", "imap.example.com")
	first, err := m.GetBackend(acc)
	require.NoError(t, err)
	again, err := m.GetBackend(acc)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, created)
	assert.Empty(t, rec.get())

	acc.Incoming.Host = "imap2.example.com"
	replaced, err := m.GetBackend(acc)
	require.NoError(t, err)
	assert.NotSame(t, first, replaced)
	assert.Equal(t, 2, created)
	assert.Equal(t, []string{"a"}, rec.get())
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	m := NewManager(map[string]Factory{account.ServerTypeIMAP: NewPollOnlyFactory()})
	rec := &changeRecorder{}
	remove := m.AddListener(rec.record)

	a := imapAccount("a", "imap.example.com")
	b := imapAccount("b", "imap.example.com")
	c := imapAccount("c", "imap.example.com")
	for _, acc := range []account.Account{a, b, c} {
		_, err := m.GetBackend(acc)
		require.NoError(t, err)
	}

	// a unchanged, b modified, c removed.
	b.Incoming.Port = 143
	m.Refresh([]account.Account{a, b})
	assert.ElementsMatch(t, []string{"b", "c"}, rec.get())

	remove()
	m.Refresh(nil)
	assert.Len(t, rec.get(), 2, "removed listener is not notified")
}
