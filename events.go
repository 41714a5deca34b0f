package interactive

import "github.com/streamspace-dev/interactive-go/internal/errs"

// InteractivityState is the lifecycle phase of the client facade.
type InteractivityState int

const (
	InteractivityNotInitialized InteractivityState = iota
	InteractivityInitializing
	InteractivityShortCodeRequired
	InteractivityInitialized
	InteractivityPending
	InteractivityEnabled
	InteractivityDisabled
)

// String returns the log-friendly name of the state.
func (s InteractivityState) String() string {
	switch s {
	case InteractivityNotInitialized:
		return "not_initialized"
	case InteractivityInitializing:
		return "initializing"
	case InteractivityShortCodeRequired:
		return "short_code_required"
	case InteractivityInitialized:
		return "initialized"
	case InteractivityPending:
		return "interactivity_pending"
	case InteractivityEnabled:
		return "interactivity_enabled"
	case InteractivityDisabled:
		return "interactivity_disabled"
	default:
		return "unknown"
	}
}

// ErrorKind re-exports the error classification for host use.
type ErrorKind = errs.Kind

// Error kinds surfaced in ErrorEvent.
const (
	ErrorDiscoveryFailure    = errs.KindDiscoveryFailure
	ErrorAuthFailure         = errs.KindAuthFailure
	ErrorTokenInvalid        = errs.KindTokenInvalid
	ErrorProtocol            = errs.KindProtocolError
	ErrorProjectInaccessible = errs.KindProjectInaccessible
	ErrorDuplicateSession    = errs.KindDuplicateSession
	ErrorTransportBroken     = errs.KindTransportBroken
	ErrorReply               = errs.KindReplyError
	ErrorMisuse              = errs.KindMisuseError
)

// ErrorEvent is a non-fatal error surfaced to the host.
type ErrorEvent struct {
	Kind    ErrorKind
	Code    int
	Message string
	Path    string
}

// StateChangedEvent reports an interactivity state transition.
type StateChangedEvent struct {
	Previous InteractivityState
	State    InteractivityState
}

// ParticipantStateChangedEvent reports a viewer joining, leaving, or having
// input toggled.
type ParticipantStateChangedEvent struct {
	Participant Participant
	State       ParticipantState
}

// ButtonEvent is a discrete button press or release from a viewer.
type ButtonEvent struct {
	ControlID     string
	Participant   Participant
	TransactionID string
	Pressed       bool
	Cost          uint32
}

// JoystickEvent is a joystick coordinate sample from a viewer.
type JoystickEvent struct {
	ControlID   string
	Participant Participant
	X           float64
	Y           float64
}

// MessageEvent carries the method name and the raw params of a server push
// the protocol engine did not recognize, for hosts speaking
// project-specific methods.
type MessageEvent struct {
	Method string
	Raw    string
}
