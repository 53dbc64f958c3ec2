package presence_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/mailpush/pushd/internal/connectivity"
	"github.com/mailpush/pushd/internal/presence"
	"github.com/mailpush/pushd/internal/presence/mocks"
)

type presenceMocks struct {
	keepAlive    *mocks.MockService
	bootHook     *mocks.MockService
	connectivity *mocks.MockConnectivityMonitor
	autoSync     *mocks.MockAutoSyncSource
	alarms       *mocks.MockAlarmSource
}

func newController(t *testing.T) (*presence.Controller, presenceMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := presenceMocks{
		keepAlive:    mocks.NewMockService(ctrl),
		bootHook:     mocks.NewMockService(ctrl),
		connectivity: mocks.NewMockConnectivityMonitor(ctrl),
		autoSync:     mocks.NewMockAutoSyncSource(ctrl),
		alarms:       mocks.NewMockAlarmSource(ctrl),
	}
	c := presence.New(presence.Config{
		KeepAlive:    m.keepAlive,
		BootHook:     m.bootHook,
		Connectivity: m.connectivity,
		AutoSync:     m.autoSync,
		Alarms:       m.alarms,
	})
	return c, m
}

func noopListeners() presence.Listeners {
	return presence.Listeners{
		OnConnectivityChanged:    func() {},
		OnConnectivityLost:       func() {},
		OnAutoSyncChanged:        func() {},
		OnAlarmPermissionGranted: func() {},
	}
}

func TestController_Activate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		respectAutoSync bool
		alarmsAllowed   bool
	}{
		{name: "follow system, alarms allowed", respectAutoSync: true, alarmsAllowed: true},
		{name: "ignore system, alarms allowed", respectAutoSync: false, alarmsAllowed: true},
		{name: "follow system, alarms missing", respectAutoSync: true, alarmsAllowed: false},
		{name: "ignore system, alarms missing", respectAutoSync: false, alarmsAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, m := newController(t)
			c.Bind(noopListeners())

			m.keepAlive.EXPECT().Start().Return(nil)
			m.bootHook.EXPECT().Start().Return(nil)
			m.autoSync.EXPECT().RespectSystemAutoSync().Return(tt.respectAutoSync)
			if tt.respectAutoSync {
				m.autoSync.EXPECT().RegisterListener(gomock.Any())
			} else {
				m.autoSync.EXPECT().UnregisterListener()
			}
			m.connectivity.EXPECT().AddListener(gomock.Not(gomock.Nil()))
			m.connectivity.EXPECT().Start().Return(nil)
			m.alarms.EXPECT().CanScheduleExactAlarms().Return(tt.alarmsAllowed)
			if tt.alarmsAllowed {
				m.alarms.EXPECT().UnregisterListener()
			} else {
				m.alarms.EXPECT().RegisterListener(gomock.Any())
			}

			c.Activate()
			assert.True(t, c.Active())
		})
	}
}

func TestController_Deactivate(t *testing.T) {
	t.Parallel()

	c, m := newController(t)
	c.Bind(noopListeners())

	var added *connectivity.Listener
	m.keepAlive.EXPECT().Start().Return(nil)
	m.bootHook.EXPECT().Start().Return(nil)
	m.autoSync.EXPECT().RespectSystemAutoSync().Return(false)
	m.autoSync.EXPECT().UnregisterListener()
	m.connectivity.EXPECT().AddListener(gomock.Any()).Do(func(l *connectivity.Listener) { added = l })
	m.connectivity.EXPECT().Start().Return(nil)
	m.alarms.EXPECT().CanScheduleExactAlarms().Return(true)
	m.alarms.EXPECT().UnregisterListener()
	c.Activate()

	m.keepAlive.EXPECT().Stop().Return(nil).Times(2)
	m.bootHook.EXPECT().Stop().Return(nil).Times(2)
	m.autoSync.EXPECT().UnregisterListener().Times(2)
	m.connectivity.EXPECT().RemoveListener(gomock.Any()).Do(func(l *connectivity.Listener) {
		assert.Same(t, added, l, "the registered listener is the one removed")
	}).Times(2)
	m.connectivity.EXPECT().Stop().Times(2)
	m.alarms.EXPECT().UnregisterListener().Times(2)

	c.Deactivate()
	assert.False(t, c.Active())
	c.Deactivate()
	assert.False(t, c.Active())
}

func TestController_FanOutErrorsAreIsolated(t *testing.T) {
	t.Parallel()

	c, m := newController(t)
	c.Bind(noopListeners())

	m.keepAlive.EXPECT().Start().Return(presence.ErrAlreadyActive)
	m.bootHook.EXPECT().Start().Return(errors.New("read-only file system"))
	m.autoSync.EXPECT().RespectSystemAutoSync().Return(true)
	m.autoSync.EXPECT().RegisterListener(gomock.Any())
	m.connectivity.EXPECT().AddListener(gomock.Any())
	m.connectivity.EXPECT().Start().Return(errors.New("probe failed"))
	m.alarms.EXPECT().CanScheduleExactAlarms().Return(true)
	m.alarms.EXPECT().UnregisterListener()

	c.Activate()
	assert.True(t, c.Active())
}

func TestController_ListenersReachOrchestrator(t *testing.T) {
	t.Parallel()

	c, m := newController(t)

	var changed, lost, autoSync, granted int
	c.Bind(presence.Listeners{
		OnConnectivityChanged:    func() { changed++ },
		OnConnectivityLost:       func() { lost++ },
		OnAutoSyncChanged:        func() { autoSync++ },
		OnAlarmPermissionGranted: func() { granted++ },
	})

	m.keepAlive.EXPECT().Start().Return(nil)
	m.bootHook.EXPECT().Start().Return(nil)
	m.autoSync.EXPECT().RespectSystemAutoSync().Return(true)
	m.autoSync.EXPECT().RegisterListener(gomock.Any()).Do(func(l func()) { l() })
	m.connectivity.EXPECT().AddListener(gomock.Any()).Do(func(l *connectivity.Listener) {
		l.OnChanged()
		l.OnLost()
	})
	m.connectivity.EXPECT().Start().Return(nil)
	m.alarms.EXPECT().CanScheduleExactAlarms().Return(false)
	m.alarms.EXPECT().RegisterListener(gomock.Any()).Do(func(l func()) { l() })

	c.Activate()

	assert.Equal(t, 1, changed)
	assert.Equal(t, 1, lost)
	assert.Equal(t, 1, autoSync)
	assert.Equal(t, 1, granted)
}

func TestController_NilServices(t *testing.T) {
	t.Parallel()

	c := presence.New(presence.Config{})
	c.Bind(noopListeners())
	assert.NotPanics(t, func() {
		c.Activate()
		c.Deactivate()
	})
}
