package interfaces

import (
	"context"

	domaintypes "synapse/internal/domain/types"
)

// Negotiator is the connectivity collaborator. Descriptors it returns are
// final: implementations wait for candidate collection before returning.
type Negotiator interface {
	CreateOffer(ctx context.Context) (domaintypes.SessionDescriptor, error)
	ApplyRemote(ctx context.Context, remote domaintypes.SessionDescriptor) error
	CreateAnswer(ctx context.Context) (domaintypes.SessionDescriptor, error)
}

// Channel carries application messages once open. Send after close fails
// and is never retried.
type Channel interface {
	Send(data []byte) error
	State() domaintypes.ChannelState
	Close() error
}

// Transport is a Negotiator whose negotiated channel is exposed directly.
type Transport interface {
	Negotiator
	Channel
	SetEvents(events domaintypes.ChannelEvents)
}
