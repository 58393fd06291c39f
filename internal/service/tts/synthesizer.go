// Package tts defines the speech synthesis capability used for question playback.
package tts

import "context"

// Utterance is one piece of text to speak.
type Utterance struct {
	Text string
	Lang string
	Rate float64
}

// Callback receives the engine's completion signals. Engines may call
// neither, one or both; playback resolves on the first.
type Callback interface {
	OnDone()
	OnError(err error)
}

// Synthesizer is a speech synthesis engine that plays one utterance at a time.
type Synthesizer interface {
	// Speak starts playing u. It returns once playback has started.
	Speak(ctx context.Context, u Utterance, cb Callback) error

	// Cancel stops the current utterance, if any.
	Cancel() error
}
