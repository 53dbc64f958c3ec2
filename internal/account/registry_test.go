package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/account/mocks"
)

func testAccount(uuid, name string) account.Account {
	return account.Account{
		UUID:           uuid,
		Name:           name,
		FolderPushMode: account.FolderModeAll,
		Incoming: account.ServerSettings{
			Type:     account.ServerTypeIMAP,
			Host:     "imap.example.com",
			Port:     993,
			Security: account.SecuritySSL,
		},
	}
}

func TestRegistryGetAccountsSorted(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().ListAccounts(gomock.Any()).Return([]account.Account{
		testAccount("22222222-2222-2222-2222-222222222222", "Work"),
		testAccount("11111111-1111-1111-1111-111111111111", "Home"),
	}, nil)

	reg := account.NewRegistry(store)
	accounts, err := reg.GetAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Home", accounts[0].Name)
	assert.Equal(t, "Work", accounts[1].Name)
}

func TestRegistrySaveNotifiesListeners(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	acc := testAccount("11111111-1111-1111-1111-111111111111", "Home")
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().UpsertAccount(gomock.Any(), acc).Return(nil).Times(2)

	reg := account.NewRegistry(store)

	calls := 0
	remove := reg.AddListener(func() { calls++ })

	require.NoError(t, reg.SaveAccount(context.Background(), acc))
	assert.Equal(t, 1, calls)

	remove()
	require.NoError(t, reg.SaveAccount(context.Background(), acc))
	assert.Equal(t, 1, calls, "removed listener must not be called")
}

func TestRegistrySaveDefaultsPushMode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	acc := testAccount("11111111-1111-1111-1111-111111111111", "Home")
	acc.FolderPushMode = ""

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().UpsertAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, saved account.Account) error {
			assert.Equal(t, account.FolderModeNone, saved.FolderPushMode)
			return nil
		})

	reg := account.NewRegistry(store)
	require.NoError(t, reg.SaveAccount(context.Background(), acc))
}

func TestRegistrySaveErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		acc       account.Account
		setupMock func(*mocks.MockStore)
		wantErr   string
	}{
		{
			name:      "invalid account is rejected before the store",
			acc:       testAccount("not-a-uuid", "Broken"),
			setupMock: func(m *mocks.MockStore) { m.EXPECT().UpsertAccount(gomock.Any(), gomock.Any()).Times(0) },
			wantErr:   "invalid account",
		},
		{
			name: "store failure is wrapped",
			acc:  testAccount("11111111-1111-1111-1111-111111111111", "Home"),
			setupMock: func(m *mocks.MockStore) {
				m.EXPECT().UpsertAccount(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
			},
			wantErr: "failed to save account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mocks.NewMockStore(ctrl)
			tt.setupMock(store)

			reg := account.NewRegistry(store)
			notified := false
			reg.AddListener(func() { notified = true })

			err := reg.SaveAccount(context.Background(), tt.acc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, notified)
		})
	}
}

func TestRegistryGetAccountNotFound(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().GetAccount(gomock.Any(), "missing").Return(nil, account.ErrAccountNotFound)

	reg := account.NewRegistry(store)
	_, err := reg.GetAccount(context.Background(), "missing")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestRegistryDeleteNotifies(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	store.EXPECT().DeleteAccount(gomock.Any(), "11111111-1111-1111-1111-111111111111").Return(nil)

	reg := account.NewRegistry(store)
	notified := false
	reg.AddListener(func() { notified = true })

	require.NoError(t, reg.DeleteAccount(context.Background(), "11111111-1111-1111-1111-111111111111"))
	assert.True(t, notified)
}

func TestRegistryReloadNotifies(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := account.NewRegistry(mocks.NewMockStore(ctrl))
	calls := 0
	remove := reg.AddListener(func() { calls++ })

	reg.Reload()
	remove()
	reg.Reload()

	assert.Equal(t, 1, calls)
}
