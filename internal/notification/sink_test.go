package notification_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/mailpush/pushd/internal/notification"
	"github.com/mailpush/pushd/internal/notification/mocks"
	"github.com/mailpush/pushd/internal/versions"
)

func TestFileSinkPropagatesErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	persistence := mocks.NewMockStatusPersistence(ctrl)
	persistence.EXPECT().SaveStatus(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, status *notification.Status) error {
			assert.Equal(t, notification.StateListening, status.State)
			assert.Equal(t, notification.StateListening.Message(), status.Message)
			assert.Empty(t, status.Accounts)
			assert.Equal(t, versions.GetVersionInfo().Version, status.Version)
			return errors.New("read-only file system")
		})

	err := notification.FileSink(persistence, nil).Handle(context.Background(), notification.StateListening)
	assert.Error(t, err)
}

func TestLogSink(t *testing.T) {
	t.Parallel()

	assert.NoError(t, notification.LogSink().Handle(context.Background(), notification.StateWaitingForNetwork))
}
