// Package dialogue calls the remote dialogue-management service: one call to
// reset a session and one per submitted answer.
package dialogue

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/faults"
	"ai-interview-session-service/internal/models"
	"ai-interview-session-service/internal/observability/logging"
	"ai-interview-session-service/internal/observability/metrics"
	"ai-interview-session-service/internal/schema"
)

// Poster is the transport used for dialogue calls.
type Poster interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

// Client is the dialogue client. It does not serialize calls.
type Client struct {
	poster    Poster
	path      string
	timeout   time.Duration
	validator *schema.Validator
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// New creates a client posting to path. A zero timeout leaves calls unbounded.
func New(poster Poster, path string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		poster:    poster,
		path:      path,
		timeout:   timeout,
		validator: schema.New(),
		logger:    logger,
		metrics:   metrics.DefaultMetrics,
	}
}

// ResetSession starts a fresh dialogue and returns the first question.
// Every failure is a fatal *faults.NetworkFault.
func (c *Client) ResetSession(ctx context.Context, jobID, candidateID string) (*models.ResetResponse, error) {
	req := models.ResetRequest{Reset: true, JobID: jobID, CandidateID: candidateID}
	var resp models.ResetResponse

	if err := c.call(ctx, faults.OpReset, req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("jobId", jobID).
		Str("candidateId", candidateID).
		Str("candidateName", resp.CandidateName).
		Msg("Dialogue session reset")
	return &resp, nil
}

// SubmitTurn sends one answer and returns the next question or closing text.
// Every failure is a recoverable *faults.NetworkFault.
func (c *Client) SubmitTurn(ctx context.Context, req models.TurnRequest) (*models.TurnResponse, error) {
	var resp models.TurnResponse

	if err := c.call(ctx, faults.OpTurn, req, &resp); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("jobId", req.JobID).
		Str("answer", logging.Preview(req.Message, 60)).
		Str("intent", resp.Intent).
		Int("questionCount", resp.QuestionCount).
		Bool("interviewEnded", resp.InterviewEnded).
		Msg("Turn submitted")
	return &resp, nil
}

func (c *Client) call(ctx context.Context, op string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.poster.PostJSON(ctx, c.path, in, out)
	if err == nil {
		err = c.validator.Validate(out)
	}
	c.metrics.RecordDialogue(op, err, time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Msg("Dialogue call failed")
		return &faults.NetworkFault{Op: op, Err: err}
	}
	return nil
}
