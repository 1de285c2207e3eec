package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	KeyBytes   = 32
	NonceBytes = 12
)

// Suite names the authenticated cipher used for chat messages.
type Suite string

const (
	SuiteAESGCM           Suite = "aes-256-gcm"
	SuiteChaCha20Poly1305 Suite = "chacha20-poly1305"
)

// ParseSuite maps a configuration string onto a Suite. Empty selects AES-256-GCM.
func ParseSuite(s string) (Suite, error) {
	switch Suite(s) {
	case "":
		return SuiteAESGCM, nil
	case SuiteAESGCM, SuiteChaCha20Poly1305:
		return Suite(s), nil
	default:
		return "", fmt.Errorf("unknown cipher suite %q", s)
	}
}

// NewAEAD builds the AEAD for suite s. Both suites use a 12-byte nonce.
func NewAEAD(s Suite, key []byte) (cipher.AEAD, error) {
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("%s: want %d-byte key, got %d", s, KeyBytes, len(key))
	}
	switch s {
	case SuiteAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case SuiteChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("unknown cipher suite %q", s)
	}
}
