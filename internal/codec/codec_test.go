package codec_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse/internal/codec"
	"synapse/internal/domain"
)

const sampleSDP = "v=0\r\no=- 4611731400430051336 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

func sampleKey() *domain.JWK {
	return &domain.JWK{
		Crv:    "P-256",
		Ext:    true,
		KeyOps: []string{},
		Kty:    "EC",
		X:      "f83OJ3D2xF1Bg8vub9tLe1gHMzV76e8Tus9uPHvRVEU",
		Y:      "x_FEzRu9m36HLN_tue659LNpXW6pCyStikYjKIWI5a0",
	}
}

func offer() domain.SessionDescriptor {
	return domain.SessionDescriptor{Kind: domain.DescriptorOffer, SDP: sampleSDP}
}

func TestEncodeDecode_DH(t *testing.T) {
	c := codec.New(domain.ProtocolDH, true)
	env := domain.Envelope{Descriptor: offer(), PublicKey: sampleKey()}

	text, err := c.Encode(env)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "{\n  \"sdp\": {\n    \"type\": \"offer\""), text)
	assert.Contains(t, text, `"dhKey": {`)

	again, err := c.Encode(env)
	require.NoError(t, err)
	assert.Equal(t, text, again, "encoding must be deterministic")

	got, err := c.Decode("\n\t" + text + "  \n")
	require.NoError(t, err)
	assert.Equal(t, domain.VariantWithKey, got.Variant())
	assert.True(t, got.Descriptor.Equal(env.Descriptor))
	assert.Equal(t, *env.PublicKey, *got.PublicKey)
}

func TestEncodeDecode_Plain(t *testing.T) {
	c := codec.New(domain.ProtocolPlain, true)
	env := domain.Envelope{Descriptor: domain.SessionDescriptor{Kind: domain.DescriptorAnswer, SDP: sampleSDP}}

	text, err := c.Encode(env)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "{\n  \"type\": \"answer\""), text)

	got, err := c.Decode(text)
	require.NoError(t, err)
	assert.Equal(t, domain.VariantDescriptorOnly, got.Variant())
	assert.True(t, got.Descriptor.Equal(env.Descriptor))
}

func TestEncode_StrictDHRequiresKey(t *testing.T) {
	_, err := codec.New(domain.ProtocolDH, true).Encode(domain.Envelope{Descriptor: offer()})
	assert.ErrorIs(t, err, codec.ErrMissingField)

	text, err := codec.New(domain.ProtocolDH, false).Encode(domain.Envelope{Descriptor: offer()})
	require.NoError(t, err)
	assert.NotContains(t, text, "dhKey")
}

func TestEncode_RejectsBadDescriptor(t *testing.T) {
	c := codec.New(domain.ProtocolPlain, true)
	_, err := c.Encode(domain.Envelope{Descriptor: domain.SessionDescriptor{Kind: "pranswer", SDP: sampleSDP}})
	assert.ErrorIs(t, err, codec.ErrMalformed)
	_, err = c.Encode(domain.Envelope{Descriptor: domain.SessionDescriptor{Kind: domain.DescriptorOffer}})
	assert.ErrorIs(t, err, codec.ErrMalformed)
}

func TestDecode_Errors(t *testing.T) {
	dh := codec.New(domain.ProtocolDH, true)
	plain := codec.New(domain.ProtocolPlain, true)

	cases := []struct {
		name  string
		c     codec.Codec
		input string
		want  error
	}{
		{"empty", dh, "   ", codec.ErrMalformed},
		{"syntax", dh, `{"sdp": `, codec.ErrMalformed},
		{"array", dh, `[1,2]`, codec.ErrMalformed},
		{"null", dh, `null`, codec.ErrMalformed},
		{"no descriptor", dh, `{"dhKey": {}}`, codec.ErrMissingField},
		{"null descriptor", dh, `{"sdp": null, "dhKey": {}}`, codec.ErrMissingField},
		{"unknown type", dh, `{"sdp": {"type": "rollback", "sdp": "v=0"}, "dhKey": {}}`, codec.ErrMalformed},
		{"nested missing type", dh, `{"sdp": {"sdp": "v=0"}, "dhKey": {}}`, codec.ErrMissingField},
		{"key not object", dh, `{"sdp": {"type": "offer", "sdp": "v=0"}, "dhKey": "abc"}`, codec.ErrMalformed},
		{"strict dh without key", dh, `{"sdp": {"type": "offer", "sdp": "v=0"}}`, codec.ErrMissingField},
		{"strict dh given plain shape", dh, `{"type": "offer", "sdp": "v=0"}`, codec.ErrMissingField},
		{"strict plain given dh shape", plain, `{"sdp": {"type": "offer", "sdp": "v=0"}, "dhKey": {}}`, codec.ErrMissingField},
		{"plain missing type", plain, `{"sdp": "v=0"}`, codec.ErrMissingField},
		{"plain type not string", plain, `{"type": 7, "sdp": "v=0"}`, codec.ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.c.Decode(tc.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestDecode_Lenient(t *testing.T) {
	dh := codec.New(domain.ProtocolDH, false)

	env, err := dh.Decode(`{"sdp": {"type": "offer", "sdp": "v=0"}}`)
	require.NoError(t, err)
	assert.Equal(t, domain.VariantDescriptorOnly, env.Variant())

	env, err = dh.Decode(`{"type": "answer", "sdp": "v=0"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.DescriptorAnswer, env.Descriptor.Kind)
	assert.Nil(t, env.PublicKey)

	plain := codec.New(domain.ProtocolPlain, false)
	env, err = plain.Decode(`{"sdp": {"type": "offer", "sdp": "v=0"}, "dhKey": {"kty": "EC"}}`)
	require.NoError(t, err)
	assert.Equal(t, domain.DescriptorOffer, env.Descriptor.Kind)
	assert.Nil(t, env.PublicKey, "plain codec never surfaces key material")
}

func TestCompact(t *testing.T) {
	text, err := codec.New(domain.ProtocolDH, true).Encode(domain.Envelope{Descriptor: offer(), PublicKey: sampleKey()})
	require.NoError(t, err)

	small, err := codec.Compact(text)
	require.NoError(t, err)
	assert.NotContains(t, small, "\n  ")
	assert.Less(t, len(small), len(text))

	_, err = codec.Compact("{")
	assert.ErrorIs(t, err, codec.ErrMalformed)
}
