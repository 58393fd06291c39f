package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/faults"
	"ai-interview-session-service/internal/models"
	"ai-interview-session-service/internal/observability/logging"
	"ai-interview-session-service/internal/observability/metrics"
	"ai-interview-session-service/internal/service/playback"
)

var (
	ErrNotStarted     = errors.New("interview session not started")
	ErrAlreadyStarted = errors.New("interview session already started")
	ErrClosed         = errors.New("interview session closed")
	// ErrEmptyAnswer is returned when a submit found nothing to send. Listening
	// is re-armed; it is not a fault.
	ErrEmptyAnswer = errors.New("empty answer")
)

// Session outcomes recorded in metrics and events.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)

// Dialogue is the remote dialogue service.
type Dialogue interface {
	ResetSession(ctx context.Context, jobID, candidateID string) (*models.ResetResponse, error)
	SubmitTurn(ctx context.Context, req models.TurnRequest) (*models.TurnResponse, error)
}

// SpeechCapture accumulates the candidate's answer.
type SpeechCapture interface {
	Activate(ctx context.Context)
	Deactivate()
	Transcript() string
	Clear()
	SetFaultHandler(fn func(error))
	SetTranscriptListener(fn func(string))
}

// SpeechPlayback speaks questions.
type SpeechPlayback interface {
	Speak(ctx context.Context, text string, onSettled func(playback.Outcome))
	Skip()
	Stop()
	Speaking() bool
}

// MediaCapture samples proctoring frames for the whole session.
type MediaCapture interface {
	Activate(ctx context.Context, jobID, candidateID string) error
	Deactivate()
}

// EventPublisher receives session and turn events.
type EventPublisher interface {
	PublishSession(ctx context.Context, ev models.SessionEvent) error
	PublishTurn(ctx context.Context, ev models.TurnEvent) error
}

// Params are supplied by whoever opens the interview.
type Params struct {
	JobID       string
	CandidateID string
	JobTitle    string
}

type Options struct {
	MaxQuestions int
	// EndDelay is how long the closing text stays up before Navigate.
	EndDelay time.Duration
	// Countdown is the displayed interview timer. It never ends the session.
	Countdown time.Duration
	// Navigate is called on the loop once the end delay has passed. It must
	// not call Close; wait on Done instead.
	Navigate func()
}

func DefaultOptions() Options {
	return Options{
		MaxQuestions: models.DefaultMaxQuestions,
		EndDelay:     10 * time.Second,
		Countdown:    10 * time.Minute,
	}
}

// Snapshot is the user-visible view of the session.
type Snapshot struct {
	SessionID        string `json:"sessionId"`
	State            string `json:"state"`
	Status           string `json:"status"`
	JobID            string `json:"jobId"`
	CandidateID      string `json:"candidateId"`
	CandidateName    string `json:"candidateName"`
	JobTitle         string `json:"jobTitle"`
	Question         string `json:"question"`
	LastAnswer       string `json:"lastAnswer"`
	Transcript       string `json:"transcript"`
	QuestionCount    int    `json:"questionCount"`
	MaxQuestions     int    `json:"maxQuestions"`
	LastIntent       string `json:"lastIntent"`
	Ended            bool   `json:"ended"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Error            string `json:"error,omitempty"`
	CaptureFault     bool   `json:"captureFault"`
}

// Controller drives one interview session.
//
// All state changes run on a single loop goroutine. Engine callbacks, timers
// and dialogue responses are posted to the loop as closures; once Close has
// been called nothing posted is run, so late responses cannot mutate state.
type Controller struct {
	dialogue  Dialogue
	capture   SpeechCapture
	playback  SpeechPlayback
	media     MediaCapture
	publisher EventPublisher
	opts      Options
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	ids       *Generator
	machine   *Machine

	inbox    chan func()
	stop     chan struct{}
	loopDone chan struct{}
	done     chan struct{}

	lifecycle sync.Mutex
	started   bool
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	doneOnce  sync.Once

	// Owned by the loop.
	phase    uint64
	turnSeq  uint64
	navTimer *time.Timer

	mu           sync.RWMutex
	session      models.InterviewSession
	question     string
	lastAnswer   string
	transcript   string
	startedAt    time.Time
	err          error
	captureFault bool

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewController wires the components of one session. publisher may be nil.
func NewController(d Dialogue, c SpeechCapture, p SpeechPlayback, m MediaCapture, publisher EventPublisher, opts Options, logger zerolog.Logger) *Controller {
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = models.DefaultMaxQuestions
	}
	return &Controller{
		dialogue:  d,
		capture:   c,
		playback:  p,
		media:     m,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics.DefaultMetrics,
		ids:       NewGenerator(),
		machine:   NewMachine(),
		inbox:     make(chan func(), 64),
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
		done:      make(chan struct{}),
		ctx:       context.Background(),
		subs:      make(map[int]func(Snapshot)),
	}
}

// Start checks the preconditions, starts frame sampling and issues the reset.
// A PreconditionError means nothing was acquired.
func (c *Controller) Start(ctx context.Context, p Params) error {
	if err := faults.CheckRequired("jobId", p.JobID, "candidateId", p.CandidateID, "jobTitle", p.JobTitle); err != nil {
		return err
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)

	sessionID := uuid.NewString()
	c.logger = logging.WithSession(c.logger, sessionID, p.JobID, p.CandidateID)

	c.mu.Lock()
	c.session = models.InterviewSession{
		SessionID:   sessionID,
		JobID:       p.JobID,
		CandidateID: p.CandidateID,
		JobTitle:    p.JobTitle,
	}
	c.startedAt = time.Now()
	c.mu.Unlock()

	c.capture.SetFaultHandler(func(err error) {
		c.post(func() { c.onCaptureFault(err) })
	})
	c.capture.SetTranscriptListener(func(text string) {
		c.post(func() { c.onTranscript(text) })
	})

	if err := c.media.Activate(c.ctx, p.JobID, p.CandidateID); err != nil {
		c.logger.Warn().Err(err).Msg("Frame sampling unavailable, continuing without it")
	}

	go c.loop()

	c.metrics.RecordSessionStart()
	c.publishSession(c.ctx, models.EventSessionStarted, "")
	c.logger.Info().Str("jobTitle", p.JobTitle).Msg("Interview session started")

	c.post(c.reset)
	return nil
}

// SubmitAnswer sends the accumulated transcript. Outside Listening it returns
// ErrInvalidTransition, or ErrSessionEnded once ended, and changes nothing.
func (c *Controller) SubmitAnswer() error {
	return c.call(c.submit)
}

// SkipPlayback ends the current question playback and starts listening.
func (c *Controller) SkipPlayback() error {
	return c.call(func() error {
		if st := c.machine.State(); st != StateSpeaking {
			return fmt.Errorf("%w: skip while %s", ErrInvalidTransition, st)
		}
		c.playback.Skip()
		c.onPlaybackSettled(c.phase, playback.OutcomeComplete)
		return nil
	})
}

// Close tears the session down: playback, capture and frame sampling stop and
// any outstanding dialogue call is abandoned. Safe to call more than once.
func (c *Controller) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.stop)
	if !c.started {
		c.finish()
		return
	}

	c.cancel()
	<-c.loopDone

	c.playback.Stop()
	c.capture.Deactivate()
	c.media.Deactivate()
	if c.navTimer != nil {
		c.navTimer.Stop()
	}

	c.mu.RLock()
	ended, failed, count := c.session.Ended, c.err != nil, c.session.QuestionCount
	c.mu.RUnlock()
	if !ended && !failed {
		c.metrics.RecordSessionEnd(OutcomeAbandoned, count)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		c.publishSession(ctx, models.EventSessionEnded, OutcomeAbandoned)
		cancel()
	}
	c.logger.Info().Bool("ended", ended).Int("questionCount", count).Msg("Interview session closed")
	c.finish()
}

// Done is closed when the session is over: navigation after the end delay,
// a failed reset, or Close.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Err returns the fatal error that stopped the session, if any.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Controller) State() State {
	return c.machine.State()
}

func (c *Controller) Snapshot() Snapshot {
	st := c.machine.State()

	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		SessionID:     c.session.SessionID,
		State:         st.String(),
		Status:        st.Status(),
		JobID:         c.session.JobID,
		CandidateID:   c.session.CandidateID,
		CandidateName: c.session.CandidateName,
		JobTitle:      c.session.JobTitle,
		Question:      c.question,
		LastAnswer:    c.lastAnswer,
		Transcript:    c.transcript,
		QuestionCount: c.session.QuestionCount,
		MaxQuestions:  c.opts.MaxQuestions,
		LastIntent:    c.session.LastIntent,
		Ended:         c.session.Ended,
		CaptureFault:  c.captureFault,
	}
	if !c.startedAt.IsZero() {
		if left := c.opts.Countdown - time.Since(c.startedAt); left > 0 {
			snap.RemainingSeconds = int(left.Seconds())
		}
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}
	return snap
}

// Subscribe registers fn for every snapshot change. The returned func removes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case <-c.stop:
			return
		case fn := <-c.inbox:
			select {
			case <-c.stop:
				return
			default:
			}
			fn()
		}
	}
}

// post queues fn on the loop. It reports false once the session is closed.
func (c *Controller) post(fn func()) bool {
	select {
	case <-c.stop:
		return false
	case c.inbox <- fn:
		return true
	}
}

// call runs fn on the loop and waits for its result.
func (c *Controller) call(fn func() error) error {
	c.lifecycle.Lock()
	started, closed := c.started, c.closed
	c.lifecycle.Unlock()
	if closed {
		return ErrClosed
	}
	if !started {
		return ErrNotStarted
	}

	res := make(chan error, 1)
	if !c.post(func() { res <- fn() }) {
		return ErrClosed
	}
	select {
	case err := <-res:
		return err
	case <-c.loopDone:
		select {
		case err := <-res:
			return err
		default:
			return ErrClosed
		}
	}
}

func (c *Controller) reset() {
	c.mu.RLock()
	jobID, candidateID := c.session.JobID, c.session.CandidateID
	c.mu.RUnlock()

	ctx := c.ctx
	go func() {
		resp, err := c.dialogue.ResetSession(ctx, jobID, candidateID)
		c.post(func() { c.onReset(resp, err) })
	}()
}

func (c *Controller) onReset(resp *models.ResetResponse, err error) {
	if !c.machine.Is(StateIdle) {
		return
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("Session reset failed")
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		c.metrics.RecordSessionEnd(OutcomeFailed, 0)
		c.publishSession(c.ctx, models.EventSessionFailed, err.Error())
		c.notify()
		c.finish()
		return
	}

	c.mu.Lock()
	c.session.CandidateName = resp.CandidateName
	c.session.QuestionCount = 0
	c.question = resp.Response
	c.mu.Unlock()

	if !c.transition(StateSpeaking) {
		return
	}
	c.logger.Info().Str("candidateName", resp.CandidateName).Msg("Session reset, asking first question")
	c.speak(resp.Response)
	c.notify()
}

// speak plays text as the question of a new speaking phase.
func (c *Controller) speak(text string) {
	c.phase++
	phase := c.phase
	c.playback.Speak(c.ctx, text, func(o playback.Outcome) {
		c.post(func() { c.onPlaybackSettled(phase, o) })
	})
}

// onPlaybackSettled moves Speaking to Listening once per phase, whatever the outcome.
func (c *Controller) onPlaybackSettled(phase uint64, o playback.Outcome) {
	if phase != c.phase || !c.machine.Is(StateSpeaking) {
		return
	}
	if o != playback.OutcomeComplete {
		c.logger.Debug().Str("outcome", o.String()).Msg("Playback settled without completion")
	}
	if !c.transition(StateListening) {
		return
	}

	c.capture.Clear()
	c.mu.Lock()
	c.transcript = ""
	c.mu.Unlock()
	c.capture.Activate(c.ctx)
	c.notify()
}

func (c *Controller) submit() error {
	st := c.machine.State()
	if st.IsTerminal() {
		return ErrSessionEnded
	}
	if st != StateListening {
		return fmt.Errorf("%w: submit while %s", ErrInvalidTransition, st)
	}

	answer := strings.TrimSpace(c.capture.Transcript())
	if answer == "" {
		c.transition(StateListening)
		c.capture.Activate(c.ctx)
		return ErrEmptyAnswer
	}

	c.capture.Deactivate()
	if !c.transition(StateSubmitting) {
		return ErrInvalidTransition
	}

	c.turnSeq++
	c.mu.Lock()
	c.lastAnswer = answer
	c.transcript = answer
	sess := c.session
	question := c.question
	c.mu.Unlock()

	t := pendingTurn{
		seq:      c.turnSeq,
		id:       c.ids.Next(sess.SessionID),
		question: question,
		answer:   answer,
		sent:     time.Now(),
	}
	req := models.TurnRequest{
		Message:       answer,
		JobID:         sess.JobID,
		CandidateID:   sess.CandidateID,
		CandidateName: sess.CandidateName,
	}
	c.logger.Info().Str("turnId", t.id).Str("answer", logging.Preview(answer, 40)).Msg("Submitting answer")

	ctx := c.ctx
	go func() {
		resp, err := c.dialogue.SubmitTurn(ctx, req)
		c.post(func() { c.onTurn(t, resp, err) })
	}()
	c.notify()
	return nil
}

type pendingTurn struct {
	seq      uint64
	id       string
	question string
	answer   string
	sent     time.Time
}

func (c *Controller) onTurn(t pendingTurn, resp *models.TurnResponse, err error) {
	if t.seq != c.turnSeq || !c.machine.Is(StateSubmitting) {
		return
	}
	latency := time.Since(t.sent)
	log := logging.WithTurn(c.logger, t.id)

	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()

	ev := models.TurnEvent{
		SessionID:   sess.SessionID,
		TurnID:      t.id,
		JobID:       sess.JobID,
		CandidateID: sess.CandidateID,
		Question:    t.question,
		Answer:      t.answer,
		LatencyMs:   latency.Milliseconds(),
		Timestamp:   time.Now().UnixMilli(),
	}

	if err != nil {
		log.Warn().Err(err).Msg("Turn failed, listening again")
		c.metrics.RecordTurn("failed", latency.Seconds())
		ev.EventType = models.EventTurnFailed
		ev.QuestionCount = sess.QuestionCount
		ev.Error = err.Error()
		c.publishTurn(ev)

		if c.transition(StateListening) {
			c.capture.Clear()
			c.mu.Lock()
			c.transcript = ""
			c.mu.Unlock()
			c.capture.Activate(c.ctx)
		}
		c.notify()
		return
	}

	count := sess.QuestionCount + 1
	terminal := resp.Terminates(c.opts.MaxQuestions) || count >= c.opts.MaxQuestions

	ev.EventType = models.EventTurnCompleted
	ev.Intent = resp.Intent
	ev.QuestionCount = count
	ev.Terminal = terminal
	c.metrics.RecordTurn(OutcomeCompleted, latency.Seconds())
	c.publishTurn(ev)

	if terminal {
		c.end(resp, count, log)
		return
	}

	c.mu.Lock()
	c.session.QuestionCount = count
	c.session.LastIntent = resp.Intent
	c.question = resp.Response
	c.lastAnswer = ""
	c.transcript = ""
	c.mu.Unlock()

	if !c.transition(StateSpeaking) {
		return
	}
	c.capture.Clear()
	log.Info().Str("intent", resp.Intent).Int("questionCount", count).Msg("Next question")
	c.speak(resp.Response)
	c.notify()
}

// end enters Ended, plays the closing text and schedules navigation.
func (c *Controller) end(resp *models.TurnResponse, count int, log zerolog.Logger) {
	c.mu.Lock()
	c.session.QuestionCount = count
	c.session.LastIntent = resp.Intent
	c.session.Ended = true
	c.question = resp.Response
	c.lastAnswer = ""
	c.mu.Unlock()

	if !c.transition(StateEnded) {
		return
	}
	c.capture.Deactivate()
	c.phase++
	c.playback.Speak(c.ctx, resp.Response, nil)

	c.navTimer = time.AfterFunc(c.opts.EndDelay, func() {
		c.post(c.navigate)
	})

	c.metrics.RecordSessionEnd(OutcomeCompleted, count)
	c.publishSession(c.ctx, models.EventSessionEnded, OutcomeCompleted)
	log.Info().
		Str("intent", resp.Intent).
		Int("questionCount", count).
		Bool("interviewEnded", resp.InterviewEnded).
		Msg("Interview ended")
	c.notify()
}

func (c *Controller) navigate() {
	c.logger.Info().Msg("Leaving interview")
	if c.opts.Navigate != nil {
		c.opts.Navigate()
	}
	c.finish()
}

func (c *Controller) onCaptureFault(err error) {
	if c.machine.State().IsTerminal() {
		return
	}
	c.logger.Error().Err(err).Msg("Speech capture unavailable")
	c.mu.Lock()
	c.captureFault = true
	c.mu.Unlock()
	c.publishSession(c.ctx, models.EventCaptureFault, err.Error())
	c.notify()
}

func (c *Controller) onTranscript(text string) {
	if !c.machine.Is(StateListening) {
		return
	}
	c.mu.Lock()
	c.transcript = text
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) transition(to State) bool {
	from, err := c.machine.Transition(to)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rejected turn transition")
		return false
	}
	c.metrics.RecordTransition(from.String(), to.String())
	c.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Turn transition")
	return true
}

func (c *Controller) notify() {
	snap := c.Snapshot()

	c.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Controller) publishSession(ctx context.Context, eventType, reason string) {
	if c.publisher == nil {
		return
	}
	c.mu.RLock()
	ev := models.SessionEvent{
		EventType:     eventType,
		SessionID:     c.session.SessionID,
		JobID:         c.session.JobID,
		CandidateID:   c.session.CandidateID,
		CandidateName: c.session.CandidateName,
		QuestionCount: c.session.QuestionCount,
		LastIntent:    c.session.LastIntent,
		Reason:        reason,
		Timestamp:     time.Now().UnixMilli(),
	}
	c.mu.RUnlock()
	if err := c.publisher.PublishSession(ctx, ev); err != nil {
		c.logger.Warn().Err(err).Str("eventType", eventType).Msg("Failed to publish session event")
	}
}

func (c *Controller) publishTurn(ev models.TurnEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishTurn(c.ctx, ev); err != nil {
		c.logger.Warn().Err(err).Str("eventType", ev.EventType).Msg("Failed to publish turn event")
	}
}
