// Package negotiation drives the two-role signaling handshake.
//
// Initiator: Idle -> Initiating -> AwaitingAnswer -> Connected.
// Responder: Idle -> AwaitingOffer -> Answering -> Connected.
//
// A Machine is fed discrete inputs (CreateSession, ReceiveEnvelope,
// OnChannelOpen) and reports phase changes to observers. Inputs are
// serialized. Snapshot never waits behind an input that is blocked on
// candidate gathering.
//
// Each session applies exactly one remote descriptor. Re-applying it fails
// with ErrAlreadyApplied and leaves the derived key untouched. Envelopes that
// do not fit the current role and phase fail with ErrUnexpectedMessage and
// change nothing. If the connectivity collaborator fails after the machine
// has committed to a transition, the session moves to PhaseFailed and must be
// replaced.
package negotiation
