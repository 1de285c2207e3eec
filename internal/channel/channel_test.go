package channel_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synapse/internal/channel"
	"synapse/internal/domain"
)

type recorder struct {
	mu     sync.Mutex
	opens  int
	closes int
	msgs   []string
	open   chan struct{}
	closed chan struct{}
}

func newRecorder() *recorder {
	return &recorder{open: make(chan struct{}, 4), closed: make(chan struct{}, 4)}
}

func (r *recorder) events() domain.ChannelEvents {
	return domain.ChannelEvents{
		OnOpen: func() {
			r.mu.Lock()
			r.opens++
			r.mu.Unlock()
			r.open <- struct{}{}
		},
		OnMessage: func(b []byte) {
			r.mu.Lock()
			r.msgs = append(r.msgs, string(b))
			r.mu.Unlock()
		},
		OnClose: func() {
			r.mu.Lock()
			r.closes++
			r.mu.Unlock()
			r.closed <- struct{}{}
		},
	}
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func wait(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func connect(t *testing.T) (*channel.MemoryTransport, *recorder, *channel.MemoryTransport, *recorder) {
	t.Helper()
	ctx := context.Background()
	hub := channel.NewHub()
	a, b := hub.NewTransport(), hub.NewTransport()
	ra, rb := newRecorder(), newRecorder()
	a.SetEvents(ra.events())
	b.SetEvents(rb.events())

	offer, err := a.CreateOffer(ctx)
	require.NoError(t, err)
	require.NoError(t, b.ApplyRemote(ctx, offer))
	answer, err := b.CreateAnswer(ctx)
	require.NoError(t, err)
	require.NoError(t, a.ApplyRemote(ctx, answer))

	wait(t, ra.open, "open a")
	wait(t, rb.open, "open b")
	return a, ra, b, rb
}

func TestMemory_SendBeforeOpen(t *testing.T) {
	hub := channel.NewHub()
	a := hub.NewTransport()
	assert.Equal(t, domain.ChannelPending, a.State())
	assert.ErrorIs(t, a.Send([]byte("x")), channel.ErrNotOpen)
}

func TestMemory_ExchangeInOrder(t *testing.T) {
	a, ra, b, rb := connect(t)
	assert.Equal(t, domain.ChannelOpen, a.State())
	assert.Equal(t, domain.ChannelOpen, b.State())

	for _, m := range []string{"one", "two", "three"} {
		require.NoError(t, a.Send([]byte(m)))
	}
	require.NoError(t, b.Send([]byte("back")))

	assert.Eventually(t, func() bool { return len(rb.messages()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(ra.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, rb.messages())
	assert.Equal(t, []string{"back"}, ra.messages())
}

func TestMemory_CloseIsTerminal(t *testing.T) {
	a, ra, b, rb := connect(t)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, domain.ChannelClosed, a.State())
	assert.ErrorIs(t, a.Send([]byte("late")), channel.ErrClosed)

	wait(t, ra.closed, "close a")
	wait(t, rb.closed, "close b")
	assert.ErrorIs(t, b.Send([]byte("late")), channel.ErrClosed)

	ra.mu.Lock()
	defer ra.mu.Unlock()
	assert.Equal(t, 1, ra.opens)
	assert.Equal(t, 1, ra.closes)
}

func TestMemory_Errors(t *testing.T) {
	ctx := context.Background()
	hub := channel.NewHub()
	a := hub.NewTransport()

	err := a.ApplyRemote(ctx, domain.SessionDescriptor{Kind: domain.DescriptorOffer, SDP: "v=0"})
	assert.ErrorIs(t, err, channel.ErrUnknownPeer)

	_, err = a.CreateAnswer(ctx)
	assert.Error(t, err)

	offer, err := a.CreateOffer(ctx)
	require.NoError(t, err)
	assert.Error(t, a.ApplyRemote(ctx, offer))
	assert.True(t, strings.HasPrefix(offer.SDP, "memory:"))
}

func TestPeerTransport_Lifecycle(t *testing.T) {
	pt := channel.NewPeerTransport(channel.Options{})
	assert.Equal(t, domain.ChannelPending, pt.State())
	assert.ErrorIs(t, pt.Send([]byte("x")), channel.ErrNotOpen)

	require.NoError(t, pt.Close())
	require.NoError(t, pt.Close())
	assert.Equal(t, domain.ChannelClosed, pt.State())
	assert.ErrorIs(t, pt.Send([]byte("x")), channel.ErrClosed)

	_, err := pt.CreateOffer(context.Background())
	assert.ErrorIs(t, err, channel.ErrClosed)
}

func TestPeerTransport_OfferIsFinal(t *testing.T) {
	if testing.Short() {
		t.Skip("gathers host candidates")
	}
	pt := channel.NewPeerTransport(channel.Options{GatherTimeout: 2 * time.Second})
	defer pt.Close()

	offer, err := pt.CreateOffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DescriptorOffer, offer.Kind)
	assert.Contains(t, offer.SDP, "a=ice-ufrag:")
	assert.Contains(t, offer.SDP, "webrtc-datachannel")
}
