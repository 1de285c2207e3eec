package session_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse/internal/channel"
	"synapse/internal/domain"
	"synapse/internal/protocol/negotiation"
	"synapse/internal/services/session"
	"synapse/internal/store"
)

// inbox collects a session's events.
type inbox struct {
	mu     sync.Mutex
	events []domain.Event
	msgs   chan domain.ChatMessage
	open   chan struct{}
	closed chan struct{}
}

func watch(s *session.Service) *inbox {
	in := &inbox{
		msgs:   make(chan domain.ChatMessage, 32),
		open:   make(chan struct{}, 1),
		closed: make(chan struct{}, 1),
	}
	s.Subscribe(func(ev domain.Event) {
		in.mu.Lock()
		in.events = append(in.events, ev)
		in.mu.Unlock()
		switch ev.Kind {
		case domain.EventMessage:
			in.msgs <- *ev.Message
		case domain.EventChannelOpen:
			in.open <- struct{}{}
		case domain.EventChannelClosed:
			in.closed <- struct{}{}
		}
	})
	return in
}

func (in *inbox) next(t *testing.T, dir domain.Direction) domain.ChatMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-in.msgs:
			if m.Direction == dir {
				return m
			}
		case <-deadline:
			t.Fatalf("no %s message", dir)
			return domain.ChatMessage{}
		}
	}
}

func await(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func handshake(t *testing.T, opts session.Options) (*session.Service, *inbox, *session.Service, *inbox) {
	t.Helper()
	ctx := context.Background()
	hub := channel.NewHub()
	alice := session.New(opts, hub.NewTransport())
	bob := session.New(opts, hub.NewTransport())
	ia, ib := watch(alice), watch(bob)

	offer, err := alice.StartSession(ctx)
	require.NoError(t, err)
	answer, err := bob.AcceptEnvelope(ctx, offer)
	require.NoError(t, err)
	reply, err := alice.AcceptEnvelope(ctx, answer)
	require.NoError(t, err)
	require.Empty(t, reply)

	await(t, ia.open, "alice open")
	await(t, ib.open, "bob open")
	return alice, ia, bob, ib
}

func TestSession_EncryptedChat(t *testing.T) {
	alice, ia, bob, ib := handshake(t, session.Options{Protocol: domain.ProtocolDH, Strict: true})
	defer alice.Close()

	sa, sb := alice.Status(), bob.Status()
	assert.Equal(t, domain.PhaseConnected, sa.Phase)
	assert.Equal(t, domain.RoleInitiator, sa.Role)
	assert.Equal(t, domain.RoleResponder, sb.Role)
	assert.Equal(t, domain.KeyShared, sa.Keys)
	assert.True(t, sa.Encrypted())
	assert.NotEmpty(t, sa.SharedKeyFingerprint)
	assert.Equal(t, sa.SharedKeyFingerprint, sb.SharedKeyFingerprint)
	assert.Equal(t, sa.LocalKeyFingerprint, sb.RemoteKeyFingerprint)
	assert.Equal(t, sb.LocalKeyFingerprint, sa.RemoteKeyFingerprint)

	sys := ia.next(t, domain.DirectionSystem)
	assert.Contains(t, sys.Text, "connection established")

	sent, err := alice.Send("hello bob")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionLocal, sent.Direction)

	got := ib.next(t, domain.DirectionRemote)
	assert.Equal(t, "hello bob", got.Text)
	assert.False(t, got.Placeholder)

	_, err = bob.Send("")
	require.NoError(t, err)
	empty := ia.next(t, domain.DirectionRemote)
	assert.Equal(t, "", empty.Text)
	assert.False(t, empty.Placeholder)
	assert.NoError(t, empty.Err)
}

func TestSession_PlainProtocolCannotDecrypt(t *testing.T) {
	alice, _, bob, ib := handshake(t, session.Options{Protocol: domain.ProtocolPlain, Strict: true})
	defer alice.Close()

	assert.Equal(t, domain.KeyStandalone, alice.Status().Keys)
	assert.NotEqual(t, alice.Status().SharedKeyFingerprint, bob.Status().SharedKeyFingerprint)

	_, err := alice.Send("can you read this")
	require.NoError(t, err)
	got := ib.next(t, domain.DirectionRemote)
	assert.True(t, got.Placeholder)
	assert.NotEqual(t, "can you read this", got.Text)
	assert.Error(t, got.Err)
}

func TestSession_SendBeforeOpenAndAfterClose(t *testing.T) {
	hub := channel.NewHub()
	s := session.New(session.Options{}, hub.NewTransport())
	in := watch(s)

	_, err := s.Send("too early")
	assert.ErrorIs(t, err, channel.ErrNotOpen)
	sys := in.next(t, domain.DirectionSystem)
	assert.Equal(t, "connection not open yet", sys.Text)

	alice, _, bob, ib := handshake(t, session.Options{Protocol: domain.ProtocolDH, Strict: true})
	require.NoError(t, alice.Close())
	await(t, ib.closed, "bob closed")

	_, err = alice.Send("late")
	assert.ErrorIs(t, err, channel.ErrClosed)
	_, err = bob.Send("late")
	assert.ErrorIs(t, err, channel.ErrClosed)
	assert.Equal(t, domain.ChannelClosed, bob.Status().Channel)
}

func TestSession_ProtocolErrorsSurface(t *testing.T) {
	ctx := context.Background()
	hub := channel.NewHub()
	s := session.New(session.Options{Protocol: domain.ProtocolDH, Strict: true}, hub.NewTransport())

	var errs []error
	s.Subscribe(func(ev domain.Event) {
		if ev.Kind == domain.EventError {
			errs = append(errs, ev.Err)
		}
	})

	other := session.New(session.Options{Protocol: domain.ProtocolDH, Strict: true}, hub.NewTransport())
	offer, err := other.StartSession(ctx)
	require.NoError(t, err)
	answer, err := session.New(session.Options{Protocol: domain.ProtocolDH, Strict: true}, hub.NewTransport()).AcceptEnvelope(ctx, offer)
	require.NoError(t, err)

	_, err = s.AcceptEnvelope(ctx, answer)
	assert.ErrorIs(t, err, negotiation.ErrUnexpectedMessage)
	assert.Equal(t, domain.PhaseIdle, s.Status().Phase)
	require.Len(t, errs, 1)
}

func TestSession_Transcript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.enc")
	ts := store.NewTranscriptFileStore(path)
	alice, ia, bob, ib := handshake(t, session.Options{
		Protocol:   domain.ProtocolDH,
		Strict:     true,
		Transcript: ts,
		Passphrase: "pw",
	})
	defer alice.Close()

	_, err := alice.Send("remember me")
	require.NoError(t, err)
	ib.next(t, domain.DirectionRemote)
	_, err = bob.Send("noted")
	require.NoError(t, err)
	ia.next(t, domain.DirectionRemote)

	msgs, err := store.NewTranscriptFileStore(path).LoadMessages("pw")
	require.NoError(t, err)
	var texts []string
	for _, m := range msgs {
		if m.Direction != domain.DirectionSystem {
			texts = append(texts, m.Text)
		}
	}
	// Both sessions share the file here, so each line appears twice.
	assert.Contains(t, texts, "remember me")
	assert.Contains(t, texts, "noted")
}

func TestSession_CloseWhileSending(t *testing.T) {
	alice, _, bob, ib := handshake(t, session.Options{Protocol: domain.ProtocolDH, Strict: true})
	defer bob.Close()
	require.NotEmpty(t, alice.Status().SharedKeyFingerprint)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := alice.Send("racing"); err != nil {
					assert.ErrorIs(t, err, channel.ErrClosed)
				}
			}
		}()
	}
	require.NoError(t, alice.Close())
	wg.Wait()
	await(t, ib.closed, "bob closed")

	assert.Empty(t, alice.Status().SharedKeyFingerprint)
	assert.NotEmpty(t, bob.Status().SharedKeyFingerprint)
	require.NoError(t, alice.Close())

	_, err := alice.Send("after close")
	assert.ErrorIs(t, err, channel.ErrClosed)
}

func TestSession_NoDeliveryAfterClose(t *testing.T) {
	alice, _, bob, ib := handshake(t, session.Options{Protocol: domain.ProtocolDH, Strict: true})
	defer alice.Close()

	require.NoError(t, bob.Close())
	await(t, ib.closed, "bob closed")
	_, _ = alice.Send("into the void")

	time.Sleep(50 * time.Millisecond)
	ib.mu.Lock()
	defer ib.mu.Unlock()
	for _, ev := range ib.events {
		if ev.Kind == domain.EventMessage {
			assert.NotEqual(t, domain.DirectionRemote, ev.Message.Direction)
		}
	}
}
