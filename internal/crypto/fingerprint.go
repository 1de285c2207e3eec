package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"synapse/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// FingerprintJWK fingerprints the uncompressed point encoded by k.
func FingerprintJWK(k domain.JWK) (string, error) {
	pub, err := ImportJWK(k)
	if err != nil {
		return "", err
	}
	return Fingerprint(pub.Bytes()), nil
}
