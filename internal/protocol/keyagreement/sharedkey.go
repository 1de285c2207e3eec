package keyagreement

import (
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"

	"synapse/internal/crypto"
	"synapse/internal/util/memzero"
)

var errKeyNotSerializable = errors.New("shared key is not serializable")

// SharedKey is the symmetric key for one session. It is immutable once
// derived and is never written to the wire or to disk.
type SharedKey struct {
	suite    crypto.Suite
	material []byte
}

func newSharedKey(s crypto.Suite, material []byte) *SharedKey {
	return &SharedKey{suite: s, material: material}
}

// Suite returns the cipher suite the key is bound to.
func (k *SharedKey) Suite() crypto.Suite { return k.suite }

// Bytes returns a copy of the key material.
func (k *SharedKey) Bytes() []byte {
	out := make([]byte, len(k.material))
	copy(out, k.material)
	return out
}

// Equal compares two keys in constant time.
func (k *SharedKey) Equal(o *SharedKey) bool {
	if k == nil || o == nil {
		return k == o
	}
	return k.suite == o.suite && subtle.ConstantTimeCompare(k.material, o.material) == 1
}

// Fingerprint is a short hash humans can compare out of band.
func (k *SharedKey) Fingerprint() string { return crypto.Fingerprint(k.material) }

// AEAD builds the authenticated cipher for this key.
func (k *SharedKey) AEAD() (cipher.AEAD, error) { return crypto.NewAEAD(k.suite, k.material) }

// String never prints key material.
func (k *SharedKey) String() string {
	return fmt.Sprintf("SharedKey(%s, fp=%s)", k.suite, k.Fingerprint())
}

// MarshalJSON refuses to serialize the key.
func (k *SharedKey) MarshalJSON() ([]byte, error) { return nil, errKeyNotSerializable }

// Wipe zeroes the key material. The key is unusable afterwards.
func (k *SharedKey) Wipe() { memzero.Zero(k.material) }
