package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"synapse/internal/domain"
)

const memorySDPPrefix = "memory:"

var ErrUnknownPeer = errors.New("no transport with that descriptor")

// Hub connects MemoryTransports created from it. Descriptors name the
// transport that produced them, so they can be copied between sessions
// exactly like real ones.
type Hub struct {
	mu    sync.Mutex
	peers map[string]*MemoryTransport
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{peers: make(map[string]*MemoryTransport)}
}

// NewTransport registers a fresh transport.
func (h *Hub) NewTransport() *MemoryTransport {
	t := &MemoryTransport{hub: h, id: uuid.NewString(), q: newSerial()}
	h.mu.Lock()
	h.peers[t.id] = t
	h.mu.Unlock()
	return t
}

func (h *Hub) lookup(sdp string) (*MemoryTransport, error) {
	id, ok := strings.CutPrefix(sdp, memorySDPPrefix)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeer, sdp)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.peers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeer, id)
	}
	return t, nil
}

// MemoryTransport is an in-process Transport. Callbacks run on a per
// transport goroutine in the order events happened.
type MemoryTransport struct {
	hub *Hub
	id  string
	lc  lifecycle
	q   *serial

	mu      sync.Mutex
	offerer *MemoryTransport
	peer    *MemoryTransport
	offered bool
}

// SetEvents installs the channel callbacks.
func (t *MemoryTransport) SetEvents(ev domain.ChannelEvents) { t.lc.setEvents(ev) }

// State returns the channel state.
func (t *MemoryTransport) State() domain.ChannelState { return t.lc.State() }

func (t *MemoryTransport) descriptor(kind domain.DescriptorKind) domain.SessionDescriptor {
	return domain.SessionDescriptor{Kind: kind, SDP: memorySDPPrefix + t.id}
}

// CreateOffer returns an offer naming this transport.
func (t *MemoryTransport) CreateOffer(ctx context.Context) (domain.SessionDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescriptor{}, err
	}
	if t.lc.State() == domain.ChannelClosed {
		return domain.SessionDescriptor{}, ErrClosed
	}
	t.mu.Lock()
	t.offered = true
	t.mu.Unlock()
	return t.descriptor(domain.DescriptorOffer), nil
}

// ApplyRemote records an offer, or connects both ends on an answer.
func (t *MemoryTransport) ApplyRemote(ctx context.Context, remote domain.SessionDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	other, err := t.hub.lookup(remote.SDP)
	if err != nil {
		return err
	}
	if other == t {
		return errors.New("cannot connect a transport to itself")
	}

	switch remote.Kind {
	case domain.DescriptorOffer:
		t.mu.Lock()
		t.offerer = other
		t.mu.Unlock()
		return nil
	case domain.DescriptorAnswer:
		t.mu.Lock()
		if !t.offered {
			t.mu.Unlock()
			return errors.New("answer applied without a local offer")
		}
		t.peer = other
		t.mu.Unlock()

		other.link(t)
		t.q.post(t.lc.opened)
		return nil
	default:
		return fmt.Errorf("unknown descriptor type %q", remote.Kind)
	}
}

func (t *MemoryTransport) link(offerer *MemoryTransport) {
	t.mu.Lock()
	ok := t.offerer == offerer
	if ok {
		t.peer = offerer
	}
	t.mu.Unlock()
	if ok {
		t.q.post(t.lc.opened)
	}
}

// CreateAnswer answers the applied offer.
func (t *MemoryTransport) CreateAnswer(ctx context.Context) (domain.SessionDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionDescriptor{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.offerer == nil {
		return domain.SessionDescriptor{}, errors.New("no remote offer applied")
	}
	return t.descriptor(domain.DescriptorAnswer), nil
}

// Send queues data for the peer.
func (t *MemoryTransport) Send(data []byte) error {
	if err := t.lc.checkSend(); err != nil {
		return err
	}
	t.mu.Lock()
	peer := t.peer
	t.mu.Unlock()
	if peer == nil {
		return ErrNotOpen
	}
	msg := append([]byte(nil), data...)
	peer.q.post(func() { peer.lc.message(msg) })
	return nil
}

// Close closes this end at once and the peer's end asynchronously.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	peer := t.peer
	t.mu.Unlock()

	if t.lc.closed() && peer != nil {
		peer.q.post(func() { peer.lc.closed() })
	}
	return nil
}

// serial runs posted funcs one at a time, in order, on its own goroutine.
type serial struct {
	mu      sync.Mutex
	pending []func()
	running bool
}

func newSerial() *serial { return &serial{} }

func (s *serial) post(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	go s.drain()
}

func (s *serial) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		fn := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()
		fn()
	}
}
