package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse/internal/crypto"
	"synapse/internal/domain"
	"synapse/internal/protocol/e2ee"
	"synapse/internal/protocol/keyagreement"
	"synapse/internal/services/message"
)

type fixedKey struct{ k *keyagreement.SharedKey }

func (f fixedKey) Key() *keyagreement.SharedKey { return f.k }

func TestOutgoingIncoming(t *testing.T) {
	k, err := keyagreement.GenerateSymmetric(crypto.SuiteAESGCM)
	require.NoError(t, err)
	a := message.New(fixedKey{k}, "s1")
	b := message.New(fixedKey{k}, "s2")

	token, msg, err := a.Outgoing("hello")
	require.NoError(t, err)
	assert.NotEqual(t, "hello", token)
	assert.Equal(t, domain.DirectionLocal, msg.Direction)
	assert.Equal(t, "s1", msg.SessionID)
	assert.NoError(t, msg.Err)

	got := b.Incoming([]byte(token))
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, domain.DirectionRemote, got.Direction)
	assert.False(t, got.Placeholder)
	assert.NoError(t, got.Err)
}

func TestEmptyMessageIsNotAPlaceholder(t *testing.T) {
	k, err := keyagreement.GenerateSymmetric(crypto.SuiteAESGCM)
	require.NoError(t, err)
	svc := message.New(fixedKey{k}, "s")

	token, _, err := svc.Outgoing("")
	require.NoError(t, err)
	got := svc.Incoming([]byte(token))
	assert.Equal(t, "", got.Text)
	assert.False(t, got.Placeholder)

	other, err := keyagreement.GenerateSymmetric(crypto.SuiteAESGCM)
	require.NoError(t, err)
	bad := message.New(fixedKey{other}, "s").Incoming([]byte(token))
	assert.True(t, bad.Placeholder)
	assert.NotEmpty(t, bad.Text)
	assert.ErrorIs(t, bad.Err, e2ee.ErrAuthenticationFailed)
}

func TestNoKey(t *testing.T) {
	svc := message.New(fixedKey{}, "s")

	token, msg, err := svc.Outgoing("hi")
	require.NoError(t, err)
	assert.Equal(t, e2ee.Sentinel, token)
	assert.ErrorIs(t, msg.Err, e2ee.ErrNoKey)

	got := svc.Incoming([]byte("opaque"))
	assert.Equal(t, "opaque", got.Text)
	assert.ErrorIs(t, got.Err, e2ee.ErrNoKey)

	k, err := keyagreement.GenerateSymmetric(crypto.SuiteAESGCM)
	require.NoError(t, err)
	got = message.New(fixedKey{k}, "s").Incoming([]byte(token))
	assert.True(t, got.Placeholder)
	assert.ErrorIs(t, got.Err, e2ee.ErrSentinel)
}
