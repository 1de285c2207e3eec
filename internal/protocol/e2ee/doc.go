// Package e2ee seals chat messages under the session key.
//
// Wire form: one standard base64 token per message, decoding to
// nonce(12) || ciphertext||tag. The literal Sentinel token means the sender
// had no key. It is recognised before any authentication is attempted.
//
// KeyGate holds the session key. It is written once and read freely after,
// so sends that race key agreement see "no key" rather than a partial key.
package e2ee
