// Package message turns chat text into wire tokens and back.
//
// It seals outgoing text under the session key (or emits the no-key
// sentinel) and opens incoming tokens into ChatMessage values, substituting
// a visible placeholder when a token cannot be decrypted.
package message
