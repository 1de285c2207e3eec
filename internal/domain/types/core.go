package types

import "fmt"

// Role is the part a peer plays in the handshake. It is set once per session.
type Role int

const (
	RoleUninitiated Role = iota
	RoleInitiator
	RoleResponder
)

// String returns the lower-case role name.
func (r Role) String() string {
	switch r {
	case RoleUninitiated:
		return "uninitiated"
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Phase is the signaling phase of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitiating
	PhaseAwaitingAnswer
	PhaseAwaitingOffer
	PhaseAnswering
	PhaseConnected
	// PhaseFailed is entered when the connectivity collaborator fails after
	// local state was already committed. The session must be restarted.
	PhaseFailed
)

// String returns the phase name used in status output.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitiating:
		return "initiating"
	case PhaseAwaitingAnswer:
		return "awaiting-answer"
	case PhaseAwaitingOffer:
		return "awaiting-offer"
	case PhaseAnswering:
		return "answering"
	case PhaseConnected:
		return "connected"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Protocol selects the envelope variant spoken by a build.
type Protocol string

const (
	// ProtocolDH carries the descriptor and an ECDH public key.
	ProtocolDH Protocol = "dh"
	// ProtocolPlain carries the raw descriptor only.
	ProtocolPlain Protocol = "plain"
)

// ParseProtocol maps a configuration string onto a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolDH, ProtocolPlain:
		return Protocol(s), nil
	case "":
		return ProtocolDH, nil
	default:
		return "", fmt.Errorf("unknown protocol %q (want %q or %q)", s, ProtocolDH, ProtocolPlain)
	}
}

// KeyMode reports how the session key came to be.
type KeyMode int

const (
	KeyNone KeyMode = iota
	// KeyShared is a key both peers derived through key agreement.
	KeyShared
	// KeyStandalone is a key generated locally without agreement. The peer
	// does not hold it and cannot decrypt anything sealed under it.
	KeyStandalone
)

// String returns the key mode name.
func (k KeyMode) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeyShared:
		return "shared"
	case KeyStandalone:
		return "standalone"
	default:
		return fmt.Sprintf("keymode(%d)", int(k))
	}
}

// ChannelState is the lifecycle of the data channel.
type ChannelState int

const (
	ChannelPending ChannelState = iota
	ChannelOpen
	ChannelClosed
)

// String returns the channel state name.
func (c ChannelState) String() string {
	switch c {
	case ChannelPending:
		return "pending"
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}
