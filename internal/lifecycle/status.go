// Package lifecycle holds the finite state machine shared by the orchestrator
// and the editor adapters.
//
// A component starts Uninitialized, moves through Initializing to
// Initialized, and can be destroyed from any state. Destroyed is terminal and
// Initialized is never reset.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/conneroisu/exhibit/internal/errors"
)

// State is one lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initializing
	Initialized
	Destroying
	Destroyed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	case Destroying:
		return "destroying"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// transitions lists every permitted move. A failed initialization returns
// to Uninitialized so that destruction can follow.
var transitions = map[State][]State{
	Uninitialized: {Initializing, Destroying},
	Initializing:  {Initialized, Uninitialized, Destroying},
	Initialized:   {Destroying},
	Destroying:    {Destroyed},
}

// Status is the lifecycle state of one component instance.
type Status struct {
	mu          sync.RWMutex
	state       State
	initialized bool
}

// NewStatus returns a status in the Uninitialized state.
func NewStatus() *Status {
	return &Status{state: Uninitialized}
}

// State returns the current state.
func (s *Status) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Transition moves to the given state or fails with a lifecycle error when
// the move is not permitted.
func (s *Status) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			if to == Initialized {
				s.initialized = true
			}
			return nil
		}
	}

	return errors.NewLifecycleError(
		errors.ErrCodeInvalidTransition,
		fmt.Sprintf("cannot move from %s to %s", s.state, to),
	)
}

// IsInitialized reports whether initialization has completed at some point.
// It stays true while the component is being destroyed.
func (s *Status) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized && s.state != Destroyed
}

// IsGettingInitialized reports whether initialization is in progress.
func (s *Status) IsGettingInitialized() bool {
	return s.State() == Initializing
}

// IsGettingDestroyed reports whether destruction is in progress.
func (s *Status) IsGettingDestroyed() bool {
	return s.State() == Destroying
}

// IsDestroyed reports whether the component reached the terminal state.
func (s *Status) IsDestroyed() bool {
	return s.State() == Destroyed
}
