package types

// Status is a point-in-time view of a session for status queries.
type Status struct {
	SessionID string       `json:"session_id"`
	Protocol  Protocol     `json:"protocol"`
	Role      Role         `json:"role"`
	Phase     Phase        `json:"phase"`
	Channel   ChannelState `json:"channel"`
	ICEState  string       `json:"ice_state,omitempty"`
	Keys      KeyMode      `json:"keys"`

	LocalKeyFingerprint  string `json:"local_key_fingerprint,omitempty"`
	RemoteKeyFingerprint string `json:"remote_key_fingerprint,omitempty"`
	SharedKeyFingerprint string `json:"shared_key_fingerprint,omitempty"`
}

// Encrypted reports whether outgoing messages are sealed under some key.
func (s Status) Encrypted() bool { return s.Keys != KeyNone }

// EventKind classifies session events.
type EventKind int

const (
	EventPhaseChanged EventKind = iota
	EventEnvelopeReady
	EventChannelOpen
	EventMessage
	EventChannelClosed
	EventConnectivity
	EventError
)

// Event is emitted by a session to its subscribers.
type Event struct {
	Kind     EventKind
	Phase    Phase
	Envelope string
	Message  *ChatMessage
	State    string
	Err      error
}

// ChannelEvents receives callbacks from a transport. Nil fields are skipped.
type ChannelEvents struct {
	OnOpen        func()
	OnMessage     func(data []byte)
	OnClose       func()
	OnStateChange func(state string)
}
