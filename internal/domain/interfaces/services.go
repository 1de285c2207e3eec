package interfaces

import (
	"context"

	domaintypes "synapse/internal/domain/types"
)

// SessionService is the caller-owned chat session: negotiation, key
// agreement and the encrypted channel behind one object.
type SessionService interface {
	StartSession(ctx context.Context) (string, error)
	AcceptEnvelope(ctx context.Context, text string) (string, error)
	Send(text string) (domaintypes.ChatMessage, error)
	Status() domaintypes.Status
	Subscribe(fn func(domaintypes.Event))
	Close() error
}

// MessageService turns chat text into wire tokens and back.
type MessageService interface {
	Outgoing(text string) (token string, message domaintypes.ChatMessage, err error)
	Incoming(data []byte) domaintypes.ChatMessage
}
