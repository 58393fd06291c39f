// Package schema validates dialogue responses and outbound events before use.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"ai-interview-session-service/internal/models"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid payload")

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks the required fields of a known payload type.
// Unknown types are accepted as-is.
func (v *Validator) Validate(payload any) error {
	switch p := payload.(type) {
	case models.ResetResponse:
		return v.validateReset(&p)
	case *models.ResetResponse:
		return v.validateReset(p)
	case models.TurnResponse:
		return v.validateTurn(&p)
	case *models.TurnResponse:
		return v.validateTurn(p)
	case models.SessionEvent:
		return requireFields("session event", "eventType", p.EventType, "sessionId", p.SessionID)
	case models.TurnEvent:
		return requireFields("turn event", "eventType", p.EventType, "sessionId", p.SessionID, "turnId", p.TurnID)
	default:
		return nil
	}
}

func (v *Validator) validateReset(r *models.ResetResponse) error {
	if r == nil {
		return fmt.Errorf("%w: nil reset response", ErrInvalid)
	}
	if !r.Reset {
		return fmt.Errorf("%w: reset response not acknowledged", ErrInvalid)
	}
	return requireFields("reset response", "response", r.Response)
}

func (v *Validator) validateTurn(r *models.TurnResponse) error {
	if r == nil {
		return fmt.Errorf("%w: nil turn response", ErrInvalid)
	}
	if r.QuestionCount < 0 {
		return fmt.Errorf("%w: negative question_count %d", ErrInvalid, r.QuestionCount)
	}
	return requireFields("turn response", "response", r.Response)
}

func requireFields(kind string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s missing %s", ErrInvalid, kind, pairs[i])
		}
	}
	return nil
}
