package call

import (
	"errors"
	"fmt"
	"strings"
)

// State is the lifecycle phase of the single call session.
type State string

const (
	StateIdle    State = "idle"
	StateDialing State = "dialing"
	StateActive  State = "active"
	StateEnding  State = "ending"
)

// ErrInvalidTransition marks a lifecycle event that does not apply to the
// session's current state. The session is left untouched.
var ErrInvalidTransition = errors.New("invalid call state transition")

// TransitionError reports a rejected lifecycle event.
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Session is the one call record a controller owns. The connection id is
// non-empty exactly while the state is active or ending.
type Session struct {
	state        State
	connectionID string
	targetNumber string
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

func (s *Session) State() State { return s.state }

func (s *Session) ConnectionID() string { return s.connectionID }

func (s *Session) TargetNumber() string { return s.targetNumber }

// BeginDial moves idle -> dialing. The target number is retained for display
// until the session returns to idle.
func (s *Session) BeginDial(target string) error {
	if s.state != StateIdle {
		return &TransitionError{From: s.state, Event: "start a call"}
	}
	if strings.TrimSpace(target) == "" {
		return &TransitionError{From: s.state, Event: "dial an empty number"}
	}
	s.state = StateDialing
	s.targetNumber = target
	return nil
}

// Connect moves dialing -> active once the service has issued a connection id.
func (s *Session) Connect(connectionID string) error {
	if s.state != StateDialing {
		return &TransitionError{From: s.state, Event: "connect"}
	}
	if strings.TrimSpace(connectionID) == "" {
		return &TransitionError{From: s.state, Event: "connect without a connection id"}
	}
	s.state = StateActive
	s.connectionID = connectionID
	return nil
}

// FailDial moves dialing -> idle after a failed start attempt.
func (s *Session) FailDial() error {
	if s.state != StateDialing {
		return &TransitionError{From: s.state, Event: "fail dial"}
	}
	s.state = StateIdle
	s.targetNumber = ""
	return nil
}

// BeginHangup moves active -> ending in response to a stop intent.
func (s *Session) BeginHangup() error {
	if s.state != StateActive {
		return &TransitionError{From: s.state, Event: "hang up"}
	}
	s.state = StateEnding
	return nil
}

// Finish moves ending -> idle once the stop attempt has resolved, success or
// failure. The connection id and target number are cleared.
func (s *Session) Finish() error {
	if s.state != StateEnding {
		return &TransitionError{From: s.state, Event: "finish"}
	}
	s.state = StateIdle
	s.connectionID = ""
	s.targetNumber = ""
	return nil
}

// Snapshot is a value copy of the session for API consumers.
type Snapshot struct {
	State        State  `json:"state"`
	ConnectionID string `json:"connection_id,omitempty"`
	TargetNumber string `json:"target_number,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		State:        s.state,
		ConnectionID: s.connectionID,
		TargetNumber: s.targetNumber,
	}
}
