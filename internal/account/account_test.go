package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAccount() Account {
	return Account{
		UUID:           "0b8c1a4e-5d6f-4b7a-9c2d-3e4f5a6b7c8d",
		Name:           "Work",
		Email:          "me@example.com",
		FolderPushMode: FolderModeAll,
		Incoming: ServerSettings{
			Type:     ServerTypeIMAP,
			Host:     "imap.example.com",
			Port:     993,
			Security: SecuritySSL,
			Username: "me",
		},
	}
}

func TestParseFolderMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    FolderMode
		wantErr bool
	}{
		{input: "", want: FolderModeNone},
		{input: "none", want: FolderModeNone},
		{input: "ALL", want: FolderModeAll},
		{input: "firstClass", want: FolderModeFirstClass},
		{input: "first-and-second-class", want: FolderModeFirstAndSecondClass},
		{input: "NOT_SECOND_CLASS", want: FolderModeNotSecondClass},
		{input: "sometimes", want: FolderModeNone, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFolderMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPushEnabled(t *testing.T) {
	t.Parallel()

	acc := validAccount()
	assert.True(t, acc.IsPushEnabled())

	acc.FolderPushMode = FolderModeNone
	assert.False(t, acc.IsPushEnabled())

	acc.FolderPushMode = ""
	assert.False(t, acc.IsPushEnabled())
}

func TestServerSettingsKey(t *testing.T) {
	t.Parallel()

	a := validAccount().Incoming
	b := validAccount().Incoming
	assert.Equal(t, a.Key(), b.Key())

	b.Host = "IMAP.example.com"
	assert.Equal(t, a.Key(), b.Key(), "host comparison is case insensitive")

	b.Port = 143
	assert.NotEqual(t, a.Key(), b.Key())

	c := validAccount().Incoming
	c.Folders = []string{"INBOX", "Work"}
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestPushFolder(t *testing.T) {
	t.Parallel()

	s := validAccount().Incoming
	assert.Equal(t, DefaultPushFolder, s.PushFolder())

	s.Folders = []string{"Lists/Go", "INBOX"}
	assert.Equal(t, "Lists/Go", s.PushFolder())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Account)
		wantErr string
	}{
		{name: "valid", mutate: func(*Account) {}},
		{name: "bad uuid", mutate: func(a *Account) { a.UUID = "nope" }, wantErr: "invalid uuid"},
		{name: "bad type", mutate: func(a *Account) { a.Incoming.Type = "ews" }, wantErr: "unsupported server type"},
		{name: "bad security", mutate: func(a *Account) { a.Incoming.Security = "tls1.0" }, wantErr: "unsupported connection security"},
		{name: "missing host", mutate: func(a *Account) { a.Incoming.Host = "" }, wantErr: "incoming host is required"},
		{name: "bad port", mutate: func(a *Account) { a.Incoming.Port = 70000 }, wantErr: "invalid incoming port"},
		{name: "bad push mode", mutate: func(a *Account) { a.FolderPushMode = "SOME" }, wantErr: "unknown folder push mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			acc := validAccount()
			tt.mutate(&acc)
			err := acc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewUUID(t *testing.T) {
	t.Parallel()

	acc := validAccount()
	acc.UUID = NewUUID()
	assert.NoError(t, acc.Validate())
	assert.NotEqual(t, acc.UUID, NewUUID())
}
