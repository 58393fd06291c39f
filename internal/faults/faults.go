// Package faults defines the error taxonomy shared by the interview session components.
//
// Faults fall into three groups:
//   - PreconditionError: fatal before anything starts, blocks camera and microphone acquisition.
//   - NetworkFault: fatal for the session reset, recoverable for a turn.
//   - CaptureFault, PlaybackFault: absorbed locally and turned into state transitions.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// PreconditionError reports identifiers that must be supplied before a session can start.
type PreconditionError struct {
	Missing []string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("missing required session parameters: %s", strings.Join(e.Missing, ", "))
}

// CheckRequired returns a PreconditionError naming every empty value, or nil.
// Pairs are given as name, value, name, value, ...
func CheckRequired(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &PreconditionError{Missing: missing}
}

// CaptureFault reports that speech recognition could not be restarted.
type CaptureFault struct {
	Attempts int
	Err      error
}

func (e *CaptureFault) Error() string {
	return fmt.Sprintf("speech capture failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *CaptureFault) Unwrap() error { return e.Err }

// PlaybackFault reports a synthesis engine error. It never ends a session.
type PlaybackFault struct {
	Err error
}

func (e *PlaybackFault) Error() string {
	return fmt.Sprintf("speech playback failed: %v", e.Err)
}

func (e *PlaybackFault) Unwrap() error { return e.Err }

// Dialogue operations.
const (
	OpReset = "reset"
	OpTurn  = "turn"
)

// NetworkFault reports a failed dialogue round-trip.
type NetworkFault struct {
	Op  string
	Err error
}

func (e *NetworkFault) Error() string {
	return fmt.Sprintf("dialogue %s failed: %v", e.Op, e.Err)
}

func (e *NetworkFault) Unwrap() error { return e.Err }

// Fatal reports whether the session cannot continue after this fault.
func (e *NetworkFault) Fatal() bool {
	return e.Op == OpReset
}

// IsFatal reports whether err ends a session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pre *PreconditionError
	if errors.As(err, &pre) {
		return true
	}
	var nf *NetworkFault
	if errors.As(err, &nf) {
		return nf.Fatal()
	}
	return false
}
