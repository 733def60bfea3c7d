// Package vault implements the custodial savings vault service.
package vault

import "sync"

// Guard is the admission control wrapping every state-mutating entry
// point. It combines a non-reentrant execution lock with the circuit
// breaker: an attempt to enter while an operation is in flight fails
// immediately instead of queuing, and pausable entry points are refused
// while the breaker is tripped.
//
// The lock is held for the operation's full duration, including the
// external calls it brackets; release happens through the returned
// closure so no exit path can leak it.
type Guard struct {
	lock sync.Mutex // execution lock, acquired via TryLock only

	mu     sync.RWMutex
	paused bool
}

// NewGuard creates a guard in the Active state.
func NewGuard() *Guard {
	return &Guard{}
}

// Enter acquires the execution lock for a non-pausable operation
// (claim, fee sweep). The returned release must be deferred.
func (g *Guard) Enter() (func(), error) {
	if !g.lock.TryLock() {
		return nil, ErrReentrantCall
	}
	return g.lock.Unlock, nil
}

// EnterPausable acquires the execution lock for deposit/withdraw, which
// additionally require the Active state.
func (g *Guard) EnterPausable() (func(), error) {
	if !g.lock.TryLock() {
		return nil, ErrReentrantCall
	}
	if g.Paused() {
		g.lock.Unlock()
		return nil, ErrVaultPaused
	}
	return g.lock.Unlock, nil
}

// Paused reports the circuit breaker state.
func (g *Guard) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

// Pause trips the breaker. Returns false if it was already tripped.
func (g *Guard) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return false
	}
	g.paused = true
	return true
}

// Unpause resets the breaker. Returns false if it was not tripped.
func (g *Guard) Unpause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return false
	}
	g.paused = false
	return true
}
