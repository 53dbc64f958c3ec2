// Package notification derives the coarse push status shown to the user and
// publishes it to status consumers.
package notification

// State is the single user visible push status.
type State string

const (
	// StateDisabled means no account wants push.
	StateDisabled State = "Disabled"
	// StateWaitingForBackgroundSync means the system switched background sync off.
	StateWaitingForBackgroundSync State = "WaitingForBackgroundSync"
	// StateWaitingForNetwork means push is wanted but there is no network.
	StateWaitingForNetwork State = "WaitingForNetwork"
	// StateAlarmPermissionMissing means the exact alarm permission has not been granted.
	StateAlarmPermissionMissing State = "AlarmPermissionMissing"
	// StateListening means at least one push connection is running.
	StateListening State = "Listening"
)

// Message returns the text shown in status output.
func (s State) Message() string {
	switch s {
	case StateListening:
		return "Listening for new mail"
	case StateWaitingForBackgroundSync:
		return "Waiting for background sync to be enabled"
	case StateWaitingForNetwork:
		return "Waiting for network"
	case StateAlarmPermissionMissing:
		return "Permission to schedule exact alarms is missing"
	case StateDisabled:
		return "Push is disabled"
	default:
		return "Unknown"
	}
}

// Inputs are the facts a reconciliation pass knows when it derives the state.
type Inputs struct {
	// PushAccountsConfigured is true when the real desired set is non-empty.
	PushAccountsConfigured         bool
	BackgroundSyncDisabledBySystem bool
	NetworkUnavailable             bool
	AlarmPermissionMissing         bool
	// WorkersRunning is true when the running table is non-empty after the diff.
	WorkersRunning bool
}

// Derive picks the state. Systemic blockers win over per-app ones: an empty
// desired set first, then system background sync, network, alarm permission.
func Derive(in Inputs) State {
	switch {
	case !in.PushAccountsConfigured:
		return StateDisabled
	case in.BackgroundSyncDisabledBySystem:
		return StateWaitingForBackgroundSync
	case in.NetworkUnavailable:
		return StateWaitingForNetwork
	case in.AlarmPermissionMissing:
		return StateAlarmPermissionMissing
	case in.WorkersRunning:
		return StateListening
	default:
		return StateDisabled
	}
}
