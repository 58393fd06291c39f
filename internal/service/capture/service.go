// Package capture accumulates finalized speech transcript for the current
// answer and keeps recognition running while the candidate is expected to speak.
package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/faults"
	"ai-interview-session-service/internal/observability/logging"
	"ai-interview-session-service/internal/observability/metrics"
	"ai-interview-session-service/internal/service/stt"
)

// Restart reasons recorded in metrics.
const (
	ReasonEnded    = "ended"
	ReasonNoSpeech = "no_speech"
	ReasonRetry    = "retry"
)

// PlaybackMonitor reports whether question playback is underway.
type PlaybackMonitor interface {
	Speaking() bool
}

// Options tune restart behaviour.
type Options struct {
	// RestartDelay is the wait before retrying a failed start.
	RestartDelay time.Duration
	// RestartRetries is how many failed starts are retried before a CaptureFault.
	RestartRetries int
}

// DefaultOptions retries once after 500ms.
func DefaultOptions() Options {
	return Options{RestartDelay: 500 * time.Millisecond, RestartRetries: 1}
}

// Service is the speech capture service.
//
// Each engine session is tagged with a generation. Activate, Deactivate and
// every restart advance the generation, so callbacks from an older session
// are dropped and a session is restarted at most once.
type Service struct {
	rec     stt.Recognizer
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	ctx        context.Context
	active     bool
	gen        uint64
	running    bool
	runningGen uint64
	pending    bool
	attempts   int
	retry      *time.Timer
	fragments  []string

	playback     PlaybackMonitor
	onFault      func(error)
	onTranscript func(string)
}

// New creates a capture service over rec.
func New(rec stt.Recognizer, opts Options, logger zerolog.Logger) *Service {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultOptions().RestartDelay
	}
	if opts.RestartRetries < 0 {
		opts.RestartRetries = 0
	}
	return &Service{
		rec:     rec,
		opts:    opts,
		logger:  logger,
		metrics: metrics.DefaultMetrics,
		ctx:     context.Background(),
	}
}

// SetPlaybackMonitor suppresses restarts while playback is underway.
func (s *Service) SetPlaybackMonitor(m PlaybackMonitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback = m
}

// SetFaultHandler registers the receiver of *faults.CaptureFault.
func (s *Service) SetFaultHandler(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFault = fn
}

// SetTranscriptListener is called with the full transcript after each final fragment.
func (s *Service) SetTranscriptListener(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTranscript = fn
}

// Activate starts capture. Calling it while active does nothing.
func (s *Service) Activate(ctx context.Context) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.gen++
	s.attempts = 0
	s.ctx = ctx
	gen := s.gen
	s.mu.Unlock()

	s.logger.Debug().Uint64("generation", gen).Msg("Capture activated")
	s.launch(gen)
}

// Deactivate stops capture. Fragments are kept until Clear.
func (s *Service) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	s.pending = false
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	running := s.running
	s.mu.Unlock()

	if running {
		if err := s.rec.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to stop recognizer")
		}
	}
	s.logger.Debug().Msg("Capture deactivated")
}

// Active reports whether capture is logically on.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Transcript returns the finalized fragments joined by spaces.
func (s *Service) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.fragments, " ")
}

// Clear empties the accumulator.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = nil
}

// launch starts an engine session for gen unless it is stale. If the previous
// session has not ended yet the start is deferred to its OnEnd.
func (s *Service) launch(gen uint64) {
	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.running = true
	s.runningGen = gen
	ctx := s.ctx
	s.mu.Unlock()

	err := s.rec.Start(ctx, &session{svc: s, gen: gen})
	if err == nil {
		s.mu.Lock()
		stale := s.running && s.runningGen == gen && gen != s.gen
		s.mu.Unlock()
		if stale {
			// Deactivated while starting.
			if err := s.rec.Stop(); err != nil {
				s.logger.Warn().Err(err).Uint64("generation", gen).Msg("Failed to stop recognizer deactivated while starting")
			}
		}
		return
	}

	s.mu.Lock()
	if s.runningGen == gen {
		s.running = false
	}
	s.mu.Unlock()
	s.failed(gen, err)
}

// failed counts a failed start and either schedules a retry or raises a CaptureFault.
func (s *Service) failed(gen uint64, err error) {
	s.mu.Lock()
	if !s.active || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.attempts++
	if s.attempts > s.opts.RestartRetries {
		attempts := s.attempts
		s.active = false
		s.gen++
		onFault := s.onFault
		s.mu.Unlock()

		fault := &faults.CaptureFault{Attempts: attempts, Err: err}
		s.metrics.RecordCaptureFault()
		s.logger.Error().Err(err).Int("attempts", attempts).Msg("Capture restart exhausted")
		if onFault != nil {
			onFault(fault)
		}
		return
	}

	s.gen++
	next := s.gen
	s.retry = time.AfterFunc(s.opts.RestartDelay, func() {
		s.metrics.RecordCaptureRestart(ReasonRetry)
		s.launch(next)
	})
	s.mu.Unlock()

	s.logger.Warn().Err(err).Dur("delay", s.opts.RestartDelay).Msg("Capture start failed, retrying")
}

func (s *Service) final(gen uint64, text string) {
	text = strings.TrimSpace(text)
	s.mu.Lock()
	if !s.active || gen != s.gen || text == "" {
		s.mu.Unlock()
		return
	}
	s.fragments = append(s.fragments, text)
	s.attempts = 0
	transcript := strings.Join(s.fragments, " ")
	listener := s.onTranscript
	s.mu.Unlock()

	s.metrics.RecordFragment("final")
	s.logger.Debug().Str("text", logging.Preview(text, 40)).Msg("Final fragment")
	if listener != nil {
		listener(transcript)
	}
}

func (s *Service) ended(sess *session) {
	s.mu.Lock()
	if s.running && s.runningGen == sess.gen {
		s.running = false
	}

	if s.pending {
		s.pending = false
		active, gen := s.active, s.gen
		s.mu.Unlock()
		if active {
			s.launch(gen)
		}
		return
	}

	if !s.active || sess.gen != s.gen {
		s.mu.Unlock()
		return
	}
	pb := s.playback
	s.mu.Unlock()

	if pb != nil && pb.Speaking() {
		s.mu.Lock()
		if sess.gen == s.gen {
			s.active = false
			s.gen++
		}
		s.mu.Unlock()
		s.logger.Debug().Msg("Recognition ended during playback, not restarting")
		return
	}
	if sess.err != nil {
		s.failed(sess.gen, sess.err)
		return
	}

	s.mu.Lock()
	if !s.active || sess.gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	next := s.gen
	s.mu.Unlock()

	reason := ReasonEnded
	if sess.noSpeech {
		reason = ReasonNoSpeech
	}
	s.metrics.RecordCaptureRestart(reason)
	s.logger.Debug().Str("reason", reason).Msg("Restarting recognition")
	s.launch(next)
}

// session adapts engine callbacks for one generation.
type session struct {
	svc *Service
	gen uint64

	mu       sync.Mutex
	noSpeech bool
	err      error
}

func (c *session) OnPartial(text string) {
	c.svc.metrics.RecordFragment("interim")
}

func (c *session) OnFinal(text string, confidence float64) {
	c.svc.final(c.gen, text)
}

func (c *session) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if errors.Is(err, stt.ErrNoSpeech) {
		c.noSpeech = true
		return
	}
	c.err = err
}

func (c *session) OnEnd() {
	c.mu.Lock()
	snap := &session{gen: c.gen, noSpeech: c.noSpeech, err: c.err}
	c.mu.Unlock()
	c.svc.ended(snap)
}
