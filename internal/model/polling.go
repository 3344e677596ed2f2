package model

// PollingState is the polling session information shared with consumers.
type PollingState struct {
	IsPolling          bool
	CurrentPollingTask string
}

// SessionState is the state of a polling session.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateStarting  SessionState = "starting"
	SessionStateActive    SessionState = "active"
	SessionStateSucceeded SessionState = "succeeded"
	SessionStateFailed    SessionState = "failed"
	SessionStateTimedOut  SessionState = "timed_out"
	SessionStateStopped   SessionState = "stopped"
)

// IsRunning returns true if the session still owns the polling loop.
func (s SessionState) IsRunning() bool {
	return s == SessionStateStarting || s == SessionStateActive
}
