// Package desktop shows the push status as a freedesktop.org notification
// that stays on screen while push is wanted and offers a "Disable push" action.
package desktop

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = dbus.ObjectPath("/org/freedesktop/Notifications")

	appName = "pushd"
	appIcon = "mail-send-receive"
)

//go:generate mockgen -destination=mocks/mock_server.go -package=mocks -source=server.go Server

// Server is the notification daemon on the session bus.
type Server interface {
	// Notify shows a notification, replacing replacesID when it is not zero,
	// and returns the id of the shown notification.
	Notify(replacesID uint32, summary, body string, actions []string) (uint32, error)
	CloseNotification(id uint32) error
	// Actions delivers invoked actions until ctx is done.
	Actions(ctx context.Context) (<-chan Action, error)
	Close() error
}

// Action is an ActionInvoked signal.
type Action struct {
	ID  uint32
	Key string
}

type sessionServer struct {
	conn *dbus.Conn
}

// Connect opens a private session bus connection.
func Connect() (Server, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &sessionServer{conn: conn}, nil
}

func (s *sessionServer) Notify(replacesID uint32, summary, body string, actions []string) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(byte(0)),
		"resident": dbus.MakeVariant(true),
	}
	var id uint32
	call := s.conn.Object(busName, objectPath).Call(busName+".Notify", 0,
		appName, replacesID, appIcon, summary, body, actions, hints, int32(0))
	if call.Err != nil {
		return 0, fmt.Errorf("failed to show notification: %w", call.Err)
	}
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to read notification id: %w", err)
	}
	return id, nil
}

func (s *sessionServer) CloseNotification(id uint32) error {
	return s.conn.Object(busName, objectPath).Call(busName+".CloseNotification", 0, id).Err
}

func (s *sessionServer) Actions(ctx context.Context) (<-chan Action, error) {
	matches := []dbus.MatchOption{
		dbus.WithMatchInterface(busName),
		dbus.WithMatchMember("ActionInvoked"),
	}
	if err := s.conn.AddMatchSignal(matches...); err != nil {
		return nil, fmt.Errorf("failed to subscribe to notification actions: %w", err)
	}

	signals := make(chan *dbus.Signal, 10)
	s.conn.Signal(signals)

	out := make(chan Action)
	go func() {
		defer close(out)
		defer func() {
			s.conn.RemoveSignal(signals)
			_ = s.conn.RemoveMatchSignal(matches...)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if len(sig.Body) != 2 {
					continue
				}
				id, ok := sig.Body[0].(uint32)
				key, ok2 := sig.Body[1].(string)
				if !ok || !ok2 {
					continue
				}
				select {
				case out <- Action{ID: id, Key: key}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *sessionServer) Close() error {
	return s.conn.Close()
}
