// Package store keeps an optional, passphrase-sealed chat transcript.
//
// The transcript is a line-oriented file. The first line is a header with
// the scrypt salt and parameters plus a check value that detects a wrong
// passphrase. Every further line is one chat message sealed with
// XChaCha20-Poly1305 under the scrypt-derived key, with the salt as
// associated data. Appends never rewrite earlier lines.
//
// Only chat text is stored. Session keys never reach disk.
package store
