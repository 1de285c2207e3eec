package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"synapse/internal/domain"
)

const (
	jwkKeyType = "EC"
	jwkCurve   = "P-256"

	p256CoordBytes = 32
)

var (
	errUnsupportedKeyType = errors.New("unsupported key type")
	errUnsupportedCurve   = errors.New("unsupported curve")
)

// GenerateP256 returns a fresh P-256 key pair for ECDH.
func GenerateP256() (*ecdh.PrivateKey, error) {
	return ecdh.P256().GenerateKey(rand.Reader)
}

// ExportJWK renders pub the way WebCrypto exportKey("jwk") does.
func ExportJWK(pub *ecdh.PublicKey) (domain.JWK, error) {
	if pub == nil || pub.Curve() != ecdh.P256() {
		return domain.JWK{}, errUnsupportedCurve
	}
	// Uncompressed SEC 1 point: 0x04 || X || Y.
	b := pub.Bytes()
	if len(b) != 1+2*p256CoordBytes || b[0] != 4 {
		return domain.JWK{}, fmt.Errorf("unexpected point encoding (%d bytes)", len(b))
	}
	return domain.JWK{
		Crv:    jwkCurve,
		Ext:    true,
		KeyOps: []string{},
		Kty:    jwkKeyType,
		X:      base64.RawURLEncoding.EncodeToString(b[1 : 1+p256CoordBytes]),
		Y:      base64.RawURLEncoding.EncodeToString(b[1+p256CoordBytes:]),
	}, nil
}

// ImportJWK parses k into a P-256 public key. The point is checked to be on
// the curve.
func ImportJWK(k domain.JWK) (*ecdh.PublicKey, error) {
	if k.Kty != jwkKeyType {
		return nil, fmt.Errorf("%w %q", errUnsupportedKeyType, k.Kty)
	}
	if k.Crv != jwkCurve {
		return nil, fmt.Errorf("%w %q", errUnsupportedCurve, k.Crv)
	}
	x, err := decodeCoord("x", k.X)
	if err != nil {
		return nil, err
	}
	y, err := decodeCoord("y", k.Y)
	if err != nil {
		return nil, err
	}
	point := make([]byte, 0, 1+2*p256CoordBytes)
	point = append(point, 4)
	point = append(point, x...)
	point = append(point, y...)
	return ecdh.P256().NewPublicKey(point)
}

func decodeCoord(name, s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("jwk %s: %w", name, err)
	}
	if len(b) != p256CoordBytes {
		return nil, fmt.Errorf("jwk %s: want %d bytes, got %d", name, p256CoordBytes, len(b))
	}
	return b, nil
}
