package notification

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStatusPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", StatusFileName)
	persistence := NewFileStatusPersistence(path)
	ctx := context.Background()

	running := func() []string { return []string{"acc-1", "acc-2"} }
	require.NoError(t, FileSink(persistence, running).Handle(ctx, StateWaitingForNetwork))

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "temporary file must be renamed away")

	loaded, err := persistence.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateWaitingForNetwork, loaded.State)
	assert.Equal(t, StateWaitingForNetwork.Message(), loaded.Message)
	assert.Equal(t, os.Getpid(), loaded.PID)
	assert.Equal(t, []string{"acc-1", "acc-2"}, loaded.Accounts)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestFileStatusPersistence_LoadNonExistent(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(filepath.Join(t.TempDir(), StatusFileName))
	loaded, err := persistence.LoadStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, loaded.State)
}

func TestFileStatusPersistence_LoadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), StatusFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStatusPersistence(path).LoadStatus(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal status")
}
