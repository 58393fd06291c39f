package turn

import (
	"errors"
	"sync"
	"testing"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateSpeaking, "SPEAKING"},
		{StateListening, "LISTENING"},
		{StateSubmitting, "SUBMITTING"},
		{StateEnded, "ENDED"},
		{State(42), "UNKNOWN(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestState_Status(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateSpeaking, "Speaking"},
		{StateListening, "Listening"},
		{StateSubmitting, "Processing"},
		{StateEnded, "Idle"},
	}

	for _, tt := range tests {
		if got := tt.state.Status(); got != tt.want {
			t.Errorf("%s.Status() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestState_IsTerminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateSpeaking, StateListening, StateSubmitting} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !StateEnded.IsTerminal() {
		t.Error("ENDED should be terminal")
	}
}

func TestCanTransition_Exhaustive(t *testing.T) {
	allowed := map[[2]State]bool{
		{StateIdle, StateSpeaking}:        true,
		{StateSpeaking, StateListening}:   true,
		{StateListening, StateSubmitting}: true,
		{StateListening, StateListening}:  true,
		{StateSubmitting, StateSpeaking}:  true,
		{StateSubmitting, StateListening}: true,
		{StateSubmitting, StateEnded}:     true,
	}
	all := []State{StateIdle, StateSpeaking, StateListening, StateSubmitting, StateEnded}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]State{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestMachine_HappyPath(t *testing.T) {
	m := NewMachine()
	if m.State() != StateIdle {
		t.Fatalf("expected IDLE, got %s", m.State())
	}

	path := []State{StateSpeaking, StateListening, StateSubmitting, StateSpeaking, StateListening, StateSubmitting, StateEnded}
	prev := StateIdle
	for _, to := range path {
		from, err := m.Transition(to)
		if err != nil {
			t.Fatalf("%s -> %s: unexpected error: %v", prev, to, err)
		}
		if from != prev {
			t.Errorf("expected previous state %s, got %s", prev, from)
		}
		prev = to
	}
	if !m.Is(StateEnded) {
		t.Errorf("expected ENDED, got %s", m.State())
	}
}

func TestMachine_RejectsInvalid(t *testing.T) {
	m := NewMachine()

	if _, err := m.Transition(StateListening); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("IDLE -> LISTENING: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := m.Transition(StateSubmitting); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("IDLE -> SUBMITTING: expected ErrInvalidTransition, got %v", err)
	}
	if m.State() != StateIdle {
		t.Errorf("rejected transitions must not change state, got %s", m.State())
	}
}

func TestMachine_EndedIsTerminal(t *testing.T) {
	m := NewMachine()
	for _, s := range []State{StateSpeaking, StateListening, StateSubmitting, StateEnded} {
		if _, err := m.Transition(s); err != nil {
			t.Fatal(err)
		}
	}

	for _, to := range []State{StateIdle, StateSpeaking, StateListening, StateSubmitting, StateEnded} {
		if _, err := m.Transition(to); !errors.Is(err, ErrSessionEnded) {
			t.Errorf("ENDED -> %s: expected ErrSessionEnded, got %v", to, err)
		}
	}
}

func TestMachine_ConcurrentReads(t *testing.T) {
	m := NewMachine()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.State()
			}
		}()
	}
	m.Transition(StateSpeaking)
	wg.Wait()
}

func TestGenerator_Next(t *testing.T) {
	g := NewGenerator()
	if got := g.Next("s-1"); got != "s-1-turn-1" {
		t.Errorf("unexpected id %s", got)
	}
	if got := g.Next("s-1"); got != "s-1-turn-2" {
		t.Errorf("unexpected id %s", got)
	}
}
