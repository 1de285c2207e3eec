// Package keyagreement derives the per-session message key.
//
// Each peer generates one ephemeral P-256 key pair per session, exports the
// public half as a JWK inside its envelope, and combines its private key with
// the peer's public key. Honest peers obtain bit-identical SharedKey values.
//
// The key schedule is selectable. KDFHKDF runs HKDF-SHA256 over the ECDH
// secret and binds the result to the cipher suite. KDFRaw uses the secret as
// is, which is what a browser peer gets from deriveKey.
package keyagreement
