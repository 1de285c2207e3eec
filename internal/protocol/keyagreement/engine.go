package keyagreement

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/hkdf"

	"synapse/internal/crypto"
	"synapse/internal/domain"
	"synapse/internal/util/memzero"
)

var (
	ErrNoLocalKeyPair   = errors.New("no local key pair")
	ErrInvalidRemoteKey = errors.New("invalid remote public key")
	ErrKeyPairExists    = errors.New("key pair already generated for this session")
)

// KDF selects how the ECDH secret becomes the message key.
type KDF string

const (
	KDFHKDF KDF = "hkdf-sha256"
	KDFRaw  KDF = "raw"
)

const hkdfInfoPrefix = "synapse/v2 "

// ParseKDF maps a configuration string onto a KDF. Empty selects HKDF.
func ParseKDF(s string) (KDF, error) {
	switch KDF(s) {
	case "":
		return KDFHKDF, nil
	case KDFHKDF, KDFRaw:
		return KDF(s), nil
	default:
		return "", fmt.Errorf("unknown key schedule %q", s)
	}
}

// KeyPair is the session's ephemeral key pair. Only Public is ever exported.
type KeyPair struct {
	Private *ecdh.PrivateKey
	Public  domain.JWK
}

// Engine holds the local key pair for one session.
type Engine struct {
	suite crypto.Suite
	kdf   KDF

	mu   sync.Mutex
	pair *KeyPair
}

// NewEngine returns an engine that derives keys for suite using kdf.
func NewEngine(suite crypto.Suite, kdf KDF) *Engine {
	return &Engine{suite: suite, kdf: kdf}
}

// Generate creates the session key pair. It may be called once.
func (e *Engine) Generate() (KeyPair, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pair != nil {
		return KeyPair{}, ErrKeyPairExists
	}
	priv, err := crypto.GenerateP256()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate P-256 key: %w", err)
	}
	pub, err := crypto.ExportJWK(priv.PublicKey())
	if err != nil {
		return KeyPair{}, err
	}
	e.pair = &KeyPair{Private: priv, Public: pub}

	logrus.WithFields(logrus.Fields{
		"package":     "keyagreement",
		"function":    "Generate",
		"fingerprint": crypto.Fingerprint(priv.PublicKey().Bytes()),
	}).Debug("generated session key pair")
	return *e.pair, nil
}

// PublicKey returns the exported local public key.
func (e *Engine) PublicKey() (domain.JWK, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pair == nil {
		return domain.JWK{}, ErrNoLocalKeyPair
	}
	return e.pair.Public, nil
}

// Derive combines the local private key with remote.
func (e *Engine) Derive(remote domain.JWK) (*SharedKey, error) {
	e.mu.Lock()
	pair := e.pair
	e.mu.Unlock()

	if pair == nil {
		return nil, ErrNoLocalKeyPair
	}
	return Derive(pair.Private, remote, e.suite, e.kdf)
}

// ValidateRemote checks that remote imports as a P-256 public key.
func ValidateRemote(remote domain.JWK) error {
	if _, err := crypto.ImportJWK(remote); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRemoteKey, err)
	}
	return nil
}

// Derive computes the shared key from local and the peer's exported key.
func Derive(local *ecdh.PrivateKey, remote domain.JWK, suite crypto.Suite, kdf KDF) (*SharedKey, error) {
	if local == nil {
		return nil, ErrNoLocalKeyPair
	}
	pub, err := crypto.ImportJWK(remote)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRemoteKey, err)
	}
	secret, err := local.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRemoteKey, err)
	}

	var material []byte
	switch kdf {
	case KDFRaw:
		material = secret
	case KDFHKDF, "":
		defer memzero.Zero(secret)
		material = make([]byte, crypto.KeyBytes)
		r := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfoPrefix+string(suite)))
		if _, err := io.ReadFull(r, material); err != nil {
			return nil, fmt.Errorf("hkdf: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown key schedule %q", kdf)
	}

	key := newSharedKey(suite, material)
	logrus.WithFields(logrus.Fields{
		"package":     "keyagreement",
		"function":    "Derive",
		"kdf":         string(kdf),
		"suite":       string(suite),
		"fingerprint": key.Fingerprint(),
	}).Debug("derived shared key")
	return key, nil
}

// GenerateSymmetric returns a random key not agreed with anyone.
func GenerateSymmetric(suite crypto.Suite) (*SharedKey, error) {
	material := make([]byte, crypto.KeyBytes)
	if _, err := rand.Read(material); err != nil {
		return nil, err
	}
	return newSharedKey(suite, material), nil
}
