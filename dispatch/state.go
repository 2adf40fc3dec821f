package dispatch

import (
	"sync/atomic"
	"time"
)

// State is the process-wide bot state shared by the dispatcher, the error
// translator, and commands.
type State struct {
	// Owner is the user ID of the bot owner. It may be empty.
	Owner string
	// Start is the time the bot started.
	Start time.Time

	unavailable atomic.Bool
}

// NewState creates a state in which the bot is available.
func NewState(owner string) *State {
	return &State{Owner: owner, Start: time.Now()}
}

// Available reports whether the bot responds to users other than the owner.
func (s *State) Available() bool {
	return !s.unavailable.Load()
}

// SetAvailable sets whether the bot responds to users other than the owner.
func (s *State) SetAvailable(v bool) {
	s.unavailable.Store(!v)
}

// Toggle flips availability and returns the new value.
func (s *State) Toggle() bool {
	for {
		old := s.unavailable.Load()
		if s.unavailable.CompareAndSwap(old, !old) {
			return old
		}
	}
}

// IsOwner reports whether a user is the bot owner.
func (s *State) IsOwner(user string) bool {
	return s.Owner != "" && user == s.Owner
}
