package domain

import (
	interfaces "synapse/internal/domain/interfaces"
	types "synapse/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Role              = types.Role
	Phase             = types.Phase
	Protocol          = types.Protocol
	KeyMode           = types.KeyMode
	ChannelState      = types.ChannelState
	DescriptorKind    = types.DescriptorKind
	SessionDescriptor = types.SessionDescriptor
	JWK               = types.JWK
	Variant           = types.Variant
	Envelope          = types.Envelope
	Direction         = types.Direction
	ChatMessage       = types.ChatMessage
	Status            = types.Status
	EventKind         = types.EventKind
	Event             = types.Event
	ChannelEvents     = types.ChannelEvents
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Negotiator      = interfaces.Negotiator
	Channel         = interfaces.Channel
	Transport       = interfaces.Transport
	TranscriptStore = interfaces.TranscriptStore
	SessionService  = interfaces.SessionService
	MessageService  = interfaces.MessageService
)

const (
	RoleUninitiated = types.RoleUninitiated
	RoleInitiator   = types.RoleInitiator
	RoleResponder   = types.RoleResponder

	PhaseIdle           = types.PhaseIdle
	PhaseInitiating     = types.PhaseInitiating
	PhaseAwaitingAnswer = types.PhaseAwaitingAnswer
	PhaseAwaitingOffer  = types.PhaseAwaitingOffer
	PhaseAnswering      = types.PhaseAnswering
	PhaseConnected      = types.PhaseConnected
	PhaseFailed         = types.PhaseFailed

	ProtocolDH    = types.ProtocolDH
	ProtocolPlain = types.ProtocolPlain

	KeyNone       = types.KeyNone
	KeyShared     = types.KeyShared
	KeyStandalone = types.KeyStandalone

	ChannelPending = types.ChannelPending
	ChannelOpen    = types.ChannelOpen
	ChannelClosed  = types.ChannelClosed

	DescriptorOffer  = types.DescriptorOffer
	DescriptorAnswer = types.DescriptorAnswer

	VariantDescriptorOnly = types.VariantDescriptorOnly
	VariantWithKey        = types.VariantWithKey

	DirectionLocal  = types.DirectionLocal
	DirectionRemote = types.DirectionRemote
	DirectionSystem = types.DirectionSystem

	EventPhaseChanged  = types.EventPhaseChanged
	EventEnvelopeReady = types.EventEnvelopeReady
	EventChannelOpen   = types.EventChannelOpen
	EventMessage       = types.EventMessage
	EventChannelClosed = types.EventChannelClosed
	EventConnectivity  = types.EventConnectivity
	EventError         = types.EventError
)

// ParseProtocol maps a configuration string onto a Protocol.
var ParseProtocol = types.ParseProtocol
