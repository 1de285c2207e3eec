package types

import "time"

// Direction tells who produced a chat line.
type Direction string

const (
	DirectionLocal  Direction = "local"
	DirectionRemote Direction = "remote"
	DirectionSystem Direction = "system"
)

// ChatMessage is a line shown in the conversation and kept in the transcript.
type ChatMessage struct {
	SessionID string    `json:"session_id"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
	// Placeholder is set when Text stands in for a message that could not
	// be decrypted. It is never set for a genuinely empty message.
	Placeholder bool      `json:"placeholder,omitempty"`
	At          time.Time `json:"at"`

	Err error `json:"-"`
}
