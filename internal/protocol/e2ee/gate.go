package e2ee

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"synapse/internal/protocol/keyagreement"
)

var ErrKeyInstalled = errors.New("session key already installed")

// KeyGate publishes the session key exactly once.
type KeyGate struct {
	key   atomic.Pointer[keyagreement.SharedKey]
	once  sync.Once
	ready chan struct{}
}

// NewKeyGate returns an empty gate.
func NewKeyGate() *KeyGate {
	return &KeyGate{ready: make(chan struct{})}
}

// Install sets the key. Only the first call succeeds.
func (g *KeyGate) Install(k *keyagreement.SharedKey) error {
	if k == nil {
		return errors.New("nil key")
	}
	installed := false
	g.once.Do(func() {
		g.key.Store(k)
		close(g.ready)
		installed = true
	})
	if !installed {
		return ErrKeyInstalled
	}
	return nil
}

// Key returns the installed key or nil.
func (g *KeyGate) Key() *keyagreement.SharedKey { return g.key.Load() }

// Ready is closed once a key is installed.
func (g *KeyGate) Ready() <-chan struct{} { return g.ready }

// Wait blocks until a key is installed or ctx is done.
func (g *KeyGate) Wait(ctx context.Context) (*keyagreement.SharedKey, error) {
	select {
	case <-g.ready:
		return g.Key(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
