// Package stt defines the speech recognition capability used by speech capture.
package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is reported through OnError when the engine heard nothing
// before its speech-start timeout. Callers treat it as transient.
var ErrNoSpeech = errors.New("no speech detected")

// Callback receives results from one recognition session.
type Callback interface {
	// OnPartial is called with an interim hypothesis.
	OnPartial(text string)

	// OnFinal is called with a finalized fragment.
	OnFinal(text string, confidence float64)

	// OnError is called when the engine fails or hears nothing.
	OnError(err error)

	// OnEnd is called exactly once when the session stops, for any reason.
	OnEnd()
}

// Recognizer is a continuous speech recognition engine. Only one session is
// active at a time; Start on a running recognizer returns ErrBusy.
type Recognizer interface {
	// Start begins a recognition session delivering results to cb.
	Start(ctx context.Context, cb Callback) error

	// Stop ends the current session. OnEnd fires once the session winds down.
	Stop() error
}

// ErrBusy is returned by Start while a session is still running.
var ErrBusy = errors.New("recognizer already running")

// AudioSource yields raw LINEAR16 audio chunks for a recognizer.
// The channel is closed when ctx is done or the source is exhausted.
type AudioSource interface {
	Open(ctx context.Context) (<-chan []byte, error)
}
