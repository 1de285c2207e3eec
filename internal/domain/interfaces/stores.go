package interfaces

import domaintypes "synapse/internal/domain/types"

// TranscriptStore keeps a passphrase-sealed record of chat lines.
type TranscriptStore interface {
	AppendMessages(passphrase string, messages ...domaintypes.ChatMessage) error
	LoadMessages(passphrase string) ([]domaintypes.ChatMessage, error)
}
