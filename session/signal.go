// Package session reconciles token state from every substrate into one
// canonical signal, and owns the OAuth redirect-return path for non-browser
// embedders.
package session

import (
	"sync"

	"github.com/dinetap/dinetap-go/token"
)

// Kind is the canonical session state.
type Kind string

const (
	// Authenticated means a readable, unexpired bearer token is held.
	Authenticated Kind = "authenticated"
	// Opaque means an HTTP-only server session is inferred but no readable
	// token exists.
	Opaque Kind = "opaque"
	// Anonymous means no session evidence at all.
	Anonymous Kind = "anonymous"
)

// State is the session signal consumed by the rest of the application.
type State struct {
	Kind    Kind
	Subject string
	Role    token.Role
}

// Signal holds the current session state and fans out changes to subscribers.
// It is recomputed on bootstrap and after every refresh outcome.
type Signal struct {
	mu   sync.Mutex
	cur  State
	subs map[int]func(State)
	next int
}

// NewSignal starts anonymous.
func NewSignal() *Signal {
	return &Signal{
		cur:  State{Kind: Anonymous},
		subs: make(map[int]func(State)),
	}
}

// Current returns the latest state.
func (s *Signal) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Set replaces the state and notifies subscribers.
func (s *Signal) Set(state State) {
	s.mu.Lock()
	s.cur = state
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// Invalidate drops to anonymous. Called after a failed refresh; it performs
// no redirect or teardown of its own, subscribers decide what happens next.
func (s *Signal) Invalidate() {
	s.Set(State{Kind: Anonymous})
}

// Subscribe registers fn for state changes and returns a cancel function.
func (s *Signal) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
