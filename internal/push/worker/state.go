package worker

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned by Transition for edges the state machine does not have.
var ErrInvalidTransition = errors.New("invalid worker state transition")

// State is the lifecycle state of a worker.
type State int

const (
	// StateIdle is the state of a constructed worker that was never started.
	StateIdle State = iota
	// StateConnecting covers dial, authentication and folder selection.
	StateConnecting
	// StateListening means a session is open and waiting for new mail.
	StateListening
	// StateBackoff means the last attempt failed and a retry is scheduled.
	StateBackoff
	// StateStopped is terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListening:
		return "listening"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event drives the state machine.
type Event int

const (
	// EventStart is raised by Start.
	EventStart Event = iota
	// EventConnected is raised when a session is ready.
	EventConnected
	// EventFailure is raised on any connect or I/O error.
	EventFailure
	// EventBackoffElapsed is raised when the retry delay is over.
	EventBackoffElapsed
	// EventReconnect is raised by Reconnect.
	EventReconnect
	// EventStop is raised by Stop.
	EventStop
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventConnected:
		return "connected"
	case EventFailure:
		return "failure"
	case EventBackoffElapsed:
		return "backoff-elapsed"
	case EventReconnect:
		return "reconnect"
	case EventStop:
		return "stop"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Transition returns the state reached from `from` on `ev`.
func Transition(from State, ev Event) (State, error) {
	if ev == EventStop && from != StateStopped {
		return StateStopped, nil
	}

	switch from {
	case StateIdle:
		if ev == EventStart {
			return StateConnecting, nil
		}
	case StateConnecting:
		switch ev {
		case EventConnected:
			return StateListening, nil
		case EventFailure:
			return StateBackoff, nil
		case EventReconnect:
			return StateConnecting, nil
		}
	case StateListening:
		switch ev {
		case EventFailure:
			return StateBackoff, nil
		case EventReconnect:
			return StateConnecting, nil
		}
	case StateBackoff:
		switch ev {
		case EventBackoffElapsed, EventReconnect:
			return StateConnecting, nil
		}
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
}
