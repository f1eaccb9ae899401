package settlement

// State is one node of the client-side settlement state machine. Exactly
// one state is active at a time; mis-ordered events (an event that does
// not apply to the current state) are ignored rather than treated as
// errors, so the session tolerates the Server replaying an event it has
// already applied.
type State string

const (
	StateIdle            State = "idle"
	StateRegistered      State = "registered"
	StateSigningStart    State = "signing_start"
	StateNoncesGenerated State = "nonces_generated"
	StateFinalizing      State = "finalizing"
	StateFinalized       State = "finalized"
	StateFailed          State = "failed"
)

// acceptedEvent reports whether the state machine currently accepts the
// named event kind. Any event accepted in the "any" row of the transition
// table (Failed) is accepted regardless of state.
func acceptedEvent(s State, kind eventKind) bool {
	if kind == eventKindFailed {
		return true
	}
	switch s {
	case StateRegistered:
		return kind == eventKindSigningStart
	case StateSigningStart:
		return kind == eventKindSigningNoncesGenerated
	case StateNoncesGenerated:
		return kind == eventKindFinalization
	case StateFinalizing:
		return kind == eventKindFinalized
	default:
		return false
	}
}

type eventKind int

const (
	eventKindSigningStart eventKind = iota
	eventKindSigningNoncesGenerated
	eventKindFinalization
	eventKindFinalized
	eventKindFailed
)
