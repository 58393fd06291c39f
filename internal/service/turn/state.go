// Package turn runs the interview turn loop: it owns whose turn it is and
// sequences playback, capture and dialogue calls.
package turn

import (
	"errors"
	"fmt"
	"sync"
)

// State is the turn state. Exactly one holds at any instant.
type State int

const (
	// StateIdle - no session yet, or the reset failed.
	StateIdle State = iota
	// StateSpeaking - a question is playing.
	StateSpeaking
	// StateListening - capture is on, waiting for the candidate to submit.
	StateListening
	// StateSubmitting - one turn request is outstanding.
	StateSubmitting
	// StateEnded - terminal. No capture or playback starts from here.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSpeaking:
		return "SPEAKING"
	case StateListening:
		return "LISTENING"
	case StateSubmitting:
		return "SUBMITTING"
	case StateEnded:
		return "ENDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for StateEnded.
func (s State) IsTerminal() bool {
	return s == StateEnded
}

// Status is the candidate-facing indicator for the state.
func (s State) Status() string {
	switch s {
	case StateSpeaking:
		return "Speaking"
	case StateListening:
		return "Listening"
	case StateSubmitting:
		return "Processing"
	default:
		return "Idle"
	}
}

// transitions is the complete table of allowed moves. Listening to Listening
// re-arms capture after an empty submit.
var transitions = map[State][]State{
	StateIdle:       {StateSpeaking},
	StateSpeaking:   {StateListening},
	StateListening:  {StateSubmitting, StateListening},
	StateSubmitting: {StateSpeaking, StateListening, StateEnded},
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	ErrInvalidTransition = errors.New("invalid turn transition")
	ErrSessionEnded      = errors.New("interview session has ended")
)

// Machine holds the current state and rejects moves absent from the table.
// Thread-safe for concurrent access.
//
//	IDLE → SPEAKING → LISTENING → SUBMITTING → SPEAKING | LISTENING | ENDED
type Machine struct {
	mu    sync.RWMutex
	state State
}

// NewMachine creates a machine in StateIdle.
func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Is reports whether the current state is s.
func (m *Machine) Is(s State) bool {
	return m.State() == s
}

// Transition moves to the given state and returns the previous one.
func (m *Machine) Transition(to State) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state
	if from.IsTerminal() {
		return from, ErrSessionEnded
	}
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = to
	return from, nil
}
