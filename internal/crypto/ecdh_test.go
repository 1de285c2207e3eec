package crypto_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse/internal/crypto"
	"synapse/internal/domain"
)

func TestExportJWK_WebCryptoLayout(t *testing.T) {
	priv, err := crypto.GenerateP256()
	require.NoError(t, err)

	jwk, err := crypto.ExportJWK(priv.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, "EC", jwk.Kty)
	assert.Equal(t, "P-256", jwk.Crv)
	assert.True(t, jwk.Ext)
	assert.Len(t, jwk.X, 43)
	assert.Len(t, jwk.Y, 43)

	raw, err := json.Marshal(jwk)
	require.NoError(t, err)
	// Field order must match what browsers emit.
	assert.True(t, strings.HasPrefix(string(raw), `{"crv":"P-256","ext":true,"key_ops":[],"kty":"EC","x":"`), string(raw))
}

func TestImportJWK_RoundTrip(t *testing.T) {
	priv, err := crypto.GenerateP256()
	require.NoError(t, err)
	jwk, err := crypto.ExportJWK(priv.PublicKey())
	require.NoError(t, err)

	pub, err := crypto.ImportJWK(jwk)
	require.NoError(t, err)
	assert.True(t, pub.Equal(priv.PublicKey()))

	// Padded coordinates are tolerated.
	jwk.X += "="
	_, err = crypto.ImportJWK(jwk)
	require.NoError(t, err)
}

func TestImportJWK_Rejects(t *testing.T) {
	priv, err := crypto.GenerateP256()
	require.NoError(t, err)
	good, err := crypto.ExportJWK(priv.PublicKey())
	require.NoError(t, err)

	cases := map[string]func(k *domain.JWK){
		"kty":       func(k *domain.JWK) { k.Kty = "OKP" },
		"crv":       func(k *domain.JWK) { k.Crv = "P-384" },
		"base64":    func(k *domain.JWK) { k.X = "!!!" },
		"short":     func(k *domain.JWK) { k.Y = k.Y[:20] },
		"off-curve": func(k *domain.JWK) { k.Y = k.X },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			bad := good
			mutate(&bad)
			_, err := crypto.ImportJWK(bad)
			assert.Error(t, err)
		})
	}
}

func TestFingerprintJWK_Stable(t *testing.T) {
	priv, err := crypto.GenerateP256()
	require.NoError(t, err)
	jwk, err := crypto.ExportJWK(priv.PublicKey())
	require.NoError(t, err)

	fp, err := crypto.FingerprintJWK(jwk)
	require.NoError(t, err)
	assert.Len(t, fp, 20)
	assert.Equal(t, crypto.Fingerprint(priv.PublicKey().Bytes()), fp)
}

func TestNewAEAD_Suites(t *testing.T) {
	key := make([]byte, crypto.KeyBytes)
	for _, s := range []crypto.Suite{crypto.SuiteAESGCM, crypto.SuiteChaCha20Poly1305} {
		aead, err := crypto.NewAEAD(s, key)
		require.NoError(t, err, s)
		assert.Equal(t, crypto.NonceBytes, aead.NonceSize(), s)
	}

	_, err := crypto.NewAEAD(crypto.SuiteAESGCM, key[:16])
	assert.Error(t, err)
	_, err = crypto.ParseSuite("rot13")
	assert.Error(t, err)

	s, err := crypto.ParseSuite("")
	require.NoError(t, err)
	assert.Equal(t, crypto.SuiteAESGCM, s)
}
