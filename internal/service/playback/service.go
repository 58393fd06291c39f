// Package playback speaks interview questions and guarantees exactly one
// settle signal per utterance.
package playback

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/faults"
	"ai-interview-session-service/internal/observability/metrics"
	"ai-interview-session-service/internal/service/tts"
)

// Outcome is how an utterance settled.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomeError
	OutcomeTimeout
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// CaptureControl is the part of speech capture playback needs.
type CaptureControl interface {
	Deactivate()
}

// Options configure the voice and the fallback timer.
type Options struct {
	Lang         string
	Rate         float64
	BaseDelay    time.Duration
	PerCharDelay time.Duration
}

// DefaultOptions returns an en-GB voice at rate 1.1 with a 2s + 100ms/char fallback.
func DefaultOptions() Options {
	return Options{
		Lang:         "en-GB",
		Rate:         1.1,
		BaseDelay:    2 * time.Second,
		PerCharDelay: 100 * time.Millisecond,
	}
}

// Fallback is the time after which an utterance of text settles as a timeout.
func (o Options) Fallback(text string) time.Duration {
	return o.BaseDelay + time.Duration(utf8.RuneCountInString(text))*o.PerCharDelay
}

// Service is the speech playback service.
type Service struct {
	synth   tts.Synthesizer
	capture CaptureControl
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	current *token
	seq     uint64
}

// New creates a playback service. capture may be nil.
func New(synth tts.Synthesizer, capture CaptureControl, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		synth:   synth,
		capture: capture,
		opts:    opts,
		logger:  logger,
		metrics: metrics.DefaultMetrics,
	}
}

// Speak cancels any current utterance, deactivates capture and plays text.
// onSettled is called exactly once, unless the utterance is superseded or
// stopped first, in which case it is never called.
func (s *Service) Speak(ctx context.Context, text string, onSettled func(Outcome)) {
	tok := &token{svc: s, onSettled: onSettled}

	s.mu.Lock()
	prev := s.current
	s.seq++
	tok.id = s.seq
	s.current = tok
	s.mu.Unlock()

	if prev != nil {
		prev.abandon()
		s.cancelEngine()
	}
	if s.capture != nil {
		s.capture.Deactivate()
	}

	if strings.TrimSpace(text) == "" {
		tok.resolve(OutcomeComplete, true)
		return
	}

	tok.arm(s.opts.Fallback(text))

	u := tts.Utterance{Text: text, Lang: s.opts.Lang, Rate: s.opts.Rate}
	if err := s.synth.Speak(ctx, u, &engineCallback{tok: tok}); err != nil {
		s.logger.Warn().Err(&faults.PlaybackFault{Err: err}).Msg("Synthesis failed to start")
		tok.resolve(OutcomeError, true)
		return
	}
	s.logger.Debug().Uint64("utterance", tok.id).Int("chars", len(text)).Msg("Playback started")
}

// Skip cancels playback and settles the current utterance as complete.
func (s *Service) Skip() {
	s.mu.Lock()
	tok := s.current
	s.mu.Unlock()
	if tok == nil {
		return
	}
	if tok.resolve(OutcomeComplete, true) {
		s.cancelEngine()
	}
}

// Stop cancels playback without settling.
func (s *Service) Stop() {
	s.mu.Lock()
	tok := s.current
	s.current = nil
	s.mu.Unlock()
	if tok != nil {
		tok.abandon()
		s.cancelEngine()
	}
}

// Speaking reports whether an utterance is unsettled.
func (s *Service) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Service) cancelEngine() {
	if err := s.synth.Cancel(); err != nil {
		s.logger.Debug().Err(err).Msg("Synthesis cancel failed")
	}
}

func (s *Service) release(tok *token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == tok {
		s.current = nil
	}
}

// token is the one-shot completion of a single utterance.
type token struct {
	svc       *Service
	id        uint64
	onSettled func(Outcome)
	once      sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

func (t *token) arm(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		t.resolve(OutcomeTimeout, false)
	})
}

func (t *token) disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

// resolve settles the token. Only the first call wins. With async set the
// callback runs on its own goroutine so callers never block on it.
func (t *token) resolve(o Outcome, async bool) bool {
	won := false
	t.once.Do(func() { won = true })
	if !won {
		return false
	}
	t.disarm()
	t.svc.release(t)
	t.svc.metrics.RecordPlayback(o.String())
	t.svc.logger.Debug().Uint64("utterance", t.id).Str("outcome", o.String()).Msg("Playback settled")

	if t.onSettled != nil {
		if async {
			go t.onSettled(o)
		} else {
			t.onSettled(o)
		}
	}
	return true
}

func (t *token) abandon() {
	t.once.Do(func() {})
	t.disarm()
}

type engineCallback struct {
	tok *token
}

func (c *engineCallback) OnDone() {
	c.tok.resolve(OutcomeComplete, false)
}

func (c *engineCallback) OnError(err error) {
	c.tok.svc.logger.Warn().Err(&faults.PlaybackFault{Err: err}).Msg("Synthesis error, settling utterance")
	c.tok.resolve(OutcomeError, false)
}
