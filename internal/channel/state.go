package channel

import (
	"errors"
	"sync"

	"synapse/internal/domain"
)

var (
	ErrClosed  = errors.New("channel closed")
	ErrNotOpen = errors.New("channel not open yet")
)

// lifecycle tracks pending -> open -> closed and fires each callback at most
// once. Callbacks run outside the lock.
type lifecycle struct {
	mu     sync.Mutex
	state  domain.ChannelState
	events domain.ChannelEvents
}

func (l *lifecycle) setEvents(ev domain.ChannelEvents) {
	l.mu.Lock()
	l.events = ev
	l.mu.Unlock()
}

func (l *lifecycle) State() domain.ChannelState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *lifecycle) opened() {
	l.mu.Lock()
	if l.state != domain.ChannelPending {
		l.mu.Unlock()
		return
	}
	l.state = domain.ChannelOpen
	fn := l.events.OnOpen
	l.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// closed reports whether this call performed the transition.
func (l *lifecycle) closed() bool {
	l.mu.Lock()
	if l.state == domain.ChannelClosed {
		l.mu.Unlock()
		return false
	}
	l.state = domain.ChannelClosed
	fn := l.events.OnClose
	l.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

func (l *lifecycle) message(data []byte) {
	l.mu.Lock()
	if l.state != domain.ChannelOpen {
		l.mu.Unlock()
		return
	}
	fn := l.events.OnMessage
	l.mu.Unlock()

	if fn != nil {
		fn(data)
	}
}

func (l *lifecycle) connectivity(state string) {
	l.mu.Lock()
	fn := l.events.OnStateChange
	l.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}

func (l *lifecycle) checkSend() error {
	switch l.State() {
	case domain.ChannelOpen:
		return nil
	case domain.ChannelClosed:
		return ErrClosed
	default:
		return ErrNotOpen
	}
}
