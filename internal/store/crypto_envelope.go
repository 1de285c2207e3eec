package store

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the transcript format stored on disk.
	transcriptFormatVersion = 1
)

var (
	// Returned when the passphrase is incorrect or a record has been modified / corrupted.
	errWrongPassphrase = errors.New("wrong passphrase or corrupted transcript")
)

// header is the first line of a transcript file.
type header struct {
	V     int    `json:"v"`
	Salt  []byte `json:"salt"`
	N     int    `json:"scrypt_N"`
	R     int    `json:"scrypt_r"`
	P     int    `json:"scrypt_p"`
	Check []byte `json:"check"`
}

// record is one sealed transcript line.
type record struct {
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// newHeader picks a fresh salt and returns the header with its derived key.
func newHeader(passphrase string, N, r, p int) (header, []byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:] /* #nosec G404 */); err != nil {
		return header{}, nil, err
	}
	h := header{V: transcriptFormatVersion, Salt: salt[:], N: N, R: r, P: p}
	key, err := scrypt.Key([]byte(passphrase), h.Salt, N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return header{}, nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return header{}, nil, err
	}
	var nonce [chacha20poly1305.NonceSizeX]byte // zero nonce; reserved for the check value
	h.Check = aead.Seal(nil, nonce[:], nil, h.Salt)
	return h, key, nil
}

// key derives the transcript key from passphrase and verifies it.
func (h header) key(passphrase string) ([]byte, error) {
	if h.V > transcriptFormatVersion {
		return nil, fmt.Errorf("unsupported transcript version %d", h.V)
	}
	key, err := scrypt.Key([]byte(passphrase), h.Salt, h.N, h.R, h.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSizeX]byte
	want := aead.Seal(nil, nonce[:], nil, h.Salt)
	if subtle.ConstantTimeCompare(want, h.Check) != 1 {
		return nil, errWrongPassphrase
	}
	return key, nil
}

// seal encrypts raw with a random nonce.
func seal(key []byte, h header, raw []byte) (record, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return record{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return record{}, err
	}
	return record{Nonce: nonce, Cipher: aead.Seal(nil, nonce, raw, h.Salt)}, nil
}

// open decrypts one record.
func open(key []byte, h header, rec record) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(rec.Nonce) != aead.NonceSize() {
		return nil, errWrongPassphrase
	}
	pt, err := aead.Open(nil, rec.Nonce, rec.Cipher, h.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
