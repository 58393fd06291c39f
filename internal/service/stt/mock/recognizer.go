// Package mock provides a scripted recognizer for running interviews without
// a microphone or cloud credentials. Each session speaks one scripted answer
// with progressive partials and a single final, then idles until stopped.
package mock

import (
	"context"
	"sync"
	"time"

	"ai-interview-session-service/internal/service/stt"
)

// Utterance is one scripted answer.
type Utterance struct {
	Partials   []string
	Final      string
	Confidence float64
}

// DefaultUtterances cycles through typical candidate answers.
var DefaultUtterances = []Utterance{
	{
		Partials:   []string{"I have", "I have five years", "I have five years of experience"},
		Final:      "I have five years of experience building backend services",
		Confidence: 0.94,
	},
	{
		Partials:   []string{"The hardest", "The hardest problem was"},
		Final:      "The hardest problem was migrating a live database without downtime",
		Confidence: 0.91,
	},
	{
		Partials:   []string{"I usually", "I usually start by"},
		Final:      "I usually start by writing down the failure modes",
		Confidence: 0.89,
	},
	{
		Partials:   []string{"Thank you"},
		Final:      "Thank you, that is all from me",
		Confidence: 0.97,
	},
}

// Recognizer implements stt.Recognizer with scripted results.
type Recognizer struct {
	Utterances []Utterance
	// Step is the delay before each partial and the final.
	Step time.Duration
	// NoSpeechAfter, when positive, ends an idle session with stt.ErrNoSpeech.
	NoSpeechAfter time.Duration

	mu      sync.Mutex
	next    int
	running bool
	stop    chan struct{}
	starts  int
}

// New creates a recognizer over DefaultUtterances.
func New() *Recognizer {
	return &Recognizer{
		Utterances: DefaultUtterances,
		Step:       300 * time.Millisecond,
	}
}

// Start begins a session that plays the next scripted utterance.
func (r *Recognizer) Start(ctx context.Context, cb stt.Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return stt.ErrBusy
	}
	r.running = true
	r.starts++
	r.stop = make(chan struct{})

	var utt Utterance
	if len(r.Utterances) > 0 {
		utt = r.Utterances[r.next%len(r.Utterances)]
		r.next++
	}

	go r.run(ctx, r.stop, utt, cb)
	return nil
}

// Stop ends the running session.
func (r *Recognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	return nil
}

// Starts returns how many sessions have been started.
func (r *Recognizer) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *Recognizer) run(ctx context.Context, stop <-chan struct{}, utt Utterance, cb stt.Callback) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.stop = nil
		r.mu.Unlock()
		cb.OnEnd()
	}()

	wait := func(d time.Duration) bool {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			return true
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		}
	}

	for _, p := range utt.Partials {
		if !wait(r.Step) {
			return
		}
		cb.OnPartial(p)
	}
	if utt.Final != "" {
		if !wait(r.Step) {
			return
		}
		cb.OnFinal(utt.Final, utt.Confidence)
	}

	if r.NoSpeechAfter > 0 {
		if wait(r.NoSpeechAfter) {
			cb.OnError(stt.ErrNoSpeech)
		}
		return
	}
	select {
	case <-stop:
	case <-ctx.Done():
	}
}
