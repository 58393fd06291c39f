// Package mock provides a console synthesizer that prints questions and
// simulates speaking time.
package mock

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"ai-interview-session-service/internal/service/tts"
)

// Synthesizer implements tts.Synthesizer by writing text to Out and
// completing after a duration proportional to the word count.
type Synthesizer struct {
	Out          io.Writer
	WordDuration time.Duration
	// Silent suppresses completion callbacks, as an engine that never fires.
	Silent bool

	mu      sync.Mutex
	cancel  chan struct{}
	spoken  []string
	cancels int
}

// New creates a synthesizer writing to out.
func New(out io.Writer) *Synthesizer {
	return &Synthesizer{
		Out:          out,
		WordDuration: 250 * time.Millisecond,
	}
}

// Speak prints the utterance and schedules OnDone.
func (s *Synthesizer) Speak(ctx context.Context, u tts.Utterance, cb tts.Callback) error {
	s.mu.Lock()
	if s.cancel != nil {
		close(s.cancel)
	}
	stop := make(chan struct{})
	s.cancel = stop
	s.spoken = append(s.spoken, u.Text)
	s.mu.Unlock()

	if s.Out != nil {
		if _, err := fmt.Fprintf(s.Out, "\n[interviewer] %s\n", u.Text); err != nil {
			return err
		}
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(u.Text))
	d := time.Duration(float64(time.Duration(words)*s.WordDuration) / rate)

	go func() {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-stop:
			return
		case <-ctx.Done():
			return
		}

		s.mu.Lock()
		if s.cancel == stop {
			s.cancel = nil
		}
		s.mu.Unlock()

		if !s.Silent {
			cb.OnDone()
		}
	}()
	return nil
}

// Cancel stops the current utterance without a callback.
func (s *Synthesizer) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		close(s.cancel)
		s.cancel = nil
		s.cancels++
	}
	return nil
}

// Spoken returns every text passed to Speak.
func (s *Synthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.spoken...)
}
