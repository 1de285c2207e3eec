// Package crypto exposes the minimal primitives used by synapse.
//
// Contents
//
//   - P-256 key generation and WebCrypto-compatible JWK export/import
//     (GenerateP256, ExportJWK, ImportJWK)
//   - AEAD construction for the supported message suites (Suite, NewAEAD)
//   - Short fingerprints for display/logging (Fingerprint, FingerprintJWK)
//   - Standard base64 helpers for the wire format (B64, UnB64)
//
// # Notes
//
// Private keys never leave *ecdh.PrivateKey values. Only public material is
// ever converted to a JWK. Callers should treat derived secrets as sensitive
// and rely on memzero.Zero when practical to reduce lifetime in memory.
package crypto
