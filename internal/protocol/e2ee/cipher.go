package e2ee

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"synapse/internal/crypto"
	"synapse/internal/protocol/keyagreement"
)

// Sentinel is sent in place of ciphertext when no key was available.
const Sentinel = "[E2EE_ERROR: NO KEY]"

var (
	ErrNoKey                = errors.New("no encryption key")
	ErrSentinel             = errors.New("sender had no encryption key")
	ErrAuthenticationFailed = errors.New("message authentication failed")
	ErrMalformed            = errors.New("malformed ciphertext")
)

// Seal encrypts plaintext with a fresh random nonce. A nil key yields the
// Sentinel token and no error.
func Seal(key *keyagreement.SharedKey, plaintext []byte) (string, error) {
	if key == nil {
		return Sentinel, nil
	}
	aead, err := key.AEAD()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	return crypto.B64(aead.Seal(nonce, nonce, plaintext, nil)), nil
}

// Open decrypts a token produced by Seal. With a nil key the token is
// returned unchanged alongside ErrNoKey so callers can still display it.
func Open(key *keyagreement.SharedKey, token string) ([]byte, error) {
	if key == nil {
		return []byte(token), ErrNoKey
	}
	token = strings.TrimSpace(token)
	if token == Sentinel {
		return nil, ErrSentinel
	}
	blob, err := crypto.UnB64(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	aead, err := key.AEAD()
	if err != nil {
		return nil, err
	}
	if len(blob) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(blob))
	}
	nonce, ct := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	if pt == nil {
		pt = []byte{}
	}
	return pt, nil
}

// Placeholder is the inline text shown instead of a message that could not
// be decrypted. It is never empty.
func Placeholder(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSentinel):
		return "[peer sent a message without an encryption key]"
	case errors.Is(err, ErrAuthenticationFailed):
		return "[message failed authentication: wrong key or tampered]"
	case errors.Is(err, ErrMalformed):
		return "[unreadable message]"
	case errors.Is(err, ErrNoKey):
		return "[no key to decrypt message]"
	default:
		return "[decryption error: " + err.Error() + "]"
	}
}
