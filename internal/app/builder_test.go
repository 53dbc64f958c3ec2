package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailpush/pushd/internal/config"
	"github.com/mailpush/pushd/internal/connectivity"
)

type staticPasswords string

func (p staticPasswords) Password(string) (string, error) { return string(p), nil }

func offlineProbe(context.Context) (string, error) {
	return "", connectivity.ErrNoNetwork
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:      dir,
		SystemPolicy: &config.SystemPolicyConfig{Path: filepath.Join(dir, "policy", "policy.yaml")},
		API:          &config.APIConfig{Disabled: true},
	}
}

func testOptions(t *testing.T, cfg *config.Config, extra ...PushAppOptions) []PushAppOptions {
	t.Helper()
	return append([]PushAppOptions{
		WithConfig(cfg),
		WithStorage(newMemoryStore(t)),
		WithPasswords(staticPasswords("secret")),
		WithConnectivityProbe(offlineProbe),
	}, extra...)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "port only", address: ":8089", want: ":8089"},
		{name: "localhost", address: "localhost:9000", want: "localhost:9000"},
		{name: "ipv4", address: "127.0.0.1:0", want: "127.0.0.1:0"},
		{name: "empty disables", address: "", want: ""},
		{name: "missing port", address: "127.0.0.1", wantErr: true},
		{name: "bad port", address: ":http-alt", wantErr: true},
		{name: "bad host", address: "example.com:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &pushAppConfig{}
			err := WithAddress(tt.address)(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, cfg.addressSet)
			assert.Equal(t, tt.want, cfg.address)
		})
	}
}

func TestBaseConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := baseConfig()
	require.NoError(t, err)
	assert.NotNil(t, cfg.config)
	assert.Equal(t, config.DefaultAPIAddress, cfg.address)
	assert.Equal(t, defaultRequestTimeout, cfg.requestTimeout)

	cfg, err = baseConfig(WithConfig(&config.Config{API: &config.APIConfig{Address: ":9999"}}))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.address)

	cfg, err = baseConfig(WithConfig(&config.Config{API: &config.APIConfig{Address: ":9999"}}), WithAddress(""))
	require.NoError(t, err)
	assert.Empty(t, cfg.address)
}

func TestWithStorageNil(t *testing.T) {
	t.Parallel()

	_, err := baseConfig(WithStorage(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage cannot be nil")
}

func TestNewPushApp(t *testing.T) {
	t.Parallel()

	t.Run("api disabled", func(t *testing.T) {
		t.Parallel()
		app, err := NewPushApp(context.Background(), testOptions(t, testConfig(t))...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(defaultWriteTimeout) })

		assert.Nil(t, app.GetHTTPServer())
		assert.NotNil(t, app.Components().Controller)
		assert.Empty(t, app.Components().Controller.RunningAccounts())
	})

	t.Run("api enabled", func(t *testing.T) {
		t.Parallel()
		app, err := NewPushApp(context.Background(), testOptions(t, testConfig(t), WithAddress("127.0.0.1:0"))...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(defaultWriteTimeout) })

		server := app.GetHTTPServer()
		require.NotNil(t, server)
		assert.Equal(t, "127.0.0.1:0", server.Addr)
		assert.Equal(t, defaultReadTimeout, server.ReadTimeout)
		assert.Implements(t, (*http.Handler)(nil), server.Handler)
	})

	t.Run("configured accounts are seeded", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig(t)
		cfg.Accounts = []config.AccountConfig{imapAccountConfig(workUUID, "ALL")}

		app, err := NewPushApp(context.Background(), testOptions(t, cfg)...)
		require.NoError(t, err)
		t.Cleanup(func() { _ = app.Stop(defaultWriteTimeout) })

		accounts, err := app.Components().Accounts.GetAccounts(context.Background())
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.True(t, accounts[0].IsPushEnabled())
	})
}
