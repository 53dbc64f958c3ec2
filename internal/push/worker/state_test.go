package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	t.Parallel()

	valid := []struct {
		from State
		ev   Event
		to   State
	}{
		{StateIdle, EventStart, StateConnecting},
		{StateConnecting, EventConnected, StateListening},
		{StateConnecting, EventFailure, StateBackoff},
		{StateConnecting, EventReconnect, StateConnecting},
		{StateListening, EventFailure, StateBackoff},
		{StateListening, EventReconnect, StateConnecting},
		{StateBackoff, EventBackoffElapsed, StateConnecting},
		{StateBackoff, EventReconnect, StateConnecting},
		{StateIdle, EventStop, StateStopped},
		{StateConnecting, EventStop, StateStopped},
		{StateListening, EventStop, StateStopped},
		{StateBackoff, EventStop, StateStopped},
	}
	for _, tt := range valid {
		t.Run(tt.from.String()+"/"+tt.ev.String(), func(t *testing.T) {
			t.Parallel()

			got, err := Transition(tt.from, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}

	invalid := []struct {
		from State
		ev   Event
	}{
		{StateIdle, EventConnected},
		{StateIdle, EventReconnect},
		{StateConnecting, EventStart},
		{StateConnecting, EventBackoffElapsed},
		{StateListening, EventConnected},
		{StateListening, EventBackoffElapsed},
		{StateBackoff, EventConnected},
		{StateBackoff, EventFailure},
		{StateStopped, EventStart},
		{StateStopped, EventStop},
		{StateStopped, EventReconnect},
	}
	for _, tt := range invalid {
		t.Run("invalid "+tt.from.String()+"/"+tt.ev.String(), func(t *testing.T) {
			t.Parallel()

			got, err := Transition(tt.from, tt.ev)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, got)
		})
	}
}

func TestStateAndEventStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "listening", StateListening.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.Equal(t, "backoff-elapsed", EventBackoffElapsed.String())
	assert.Equal(t, "event(42)", Event(42).String())
}
