// Package media samples the candidate's camera on a fixed period and uploads
// frames for proctoring, independently of the interview turn loop.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/faults"
	"ai-interview-session-service/internal/models"
	"ai-interview-session-service/internal/observability/metrics"
	"ai-interview-session-service/internal/service/camera"
)

// Options configure sampling and upload.
type Options struct {
	Interval      time.Duration
	JPEGQuality   int
	QueueSize     int
	UploadTimeout time.Duration
}

// DefaultOptions samples every 5s at JPEG quality 80.
func DefaultOptions() Options {
	return Options{
		Interval:      5 * time.Second,
		JPEGQuality:   80,
		QueueSize:     4,
		UploadTimeout: 15 * time.Second,
	}
}

// Pipeline is the media capture pipeline. At most one activation is live.
type Pipeline struct {
	device   camera.Device
	preview  camera.Preview
	uploader Uploader
	opts     Options
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// ops serializes Activate and Deactivate.
	ops sync.Mutex

	mu     sync.Mutex
	stream camera.Stream
	queue  *Queue
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPipeline creates a pipeline. preview may be nil.
func NewPipeline(device camera.Device, preview camera.Preview, uploader Uploader, opts Options, logger zerolog.Logger) *Pipeline {
	if preview == nil {
		preview = camera.NopPreview{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultOptions().JPEGQuality
	}
	return &Pipeline{
		device:   device,
		preview:  preview,
		uploader: uploader,
		opts:     opts,
		logger:   logger,
		metrics:  metrics.DefaultMetrics,
		now:      time.Now,
	}
}

// Activate tears down any previous stream, acquires a video-only stream,
// attaches the preview and starts sampling once the stream is ready.
// Both identifiers are required; without them nothing is acquired.
func (p *Pipeline) Activate(ctx context.Context, jobID, candidateID string) error {
	if err := faults.CheckRequired("jobId", jobID, "candidateId", candidateID); err != nil {
		return err
	}

	p.ops.Lock()
	defer p.ops.Unlock()

	p.teardown()

	stream, err := p.device.Acquire(ctx, camera.VideoOnly())
	if err != nil {
		return fmt.Errorf("acquire camera: %w", err)
	}
	p.preview.Attach(stream)

	sctx, cancel := context.WithCancel(ctx)
	queue := NewQueue(p.opts.QueueSize, p.uploader, p.opts.UploadTimeout, p.logger)
	done := make(chan struct{})

	p.mu.Lock()
	p.stream = stream
	p.queue = queue
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.run(sctx, done, stream, queue, jobID, candidateID)

	p.logger.Info().Str("jobId", jobID).Str("candidateId", candidateID).Msg("Media capture activated")
	return nil
}

// Deactivate stops the sampler, stops all tracks and detaches the preview.
func (p *Pipeline) Deactivate() {
	p.ops.Lock()
	defer p.ops.Unlock()
	p.teardown()
}

func (p *Pipeline) teardown() {
	p.mu.Lock()
	stream, queue, cancel, done := p.stream, p.queue, p.cancel, p.done
	p.stream, p.queue, p.cancel, p.done = nil, nil, nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	stream.Stop()
	p.preview.Detach()
	queue.Close()

	p.logger.Info().Msg("Media capture deactivated")
}

// Active reports whether a stream is held.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}

func (p *Pipeline) run(ctx context.Context, done chan struct{}, stream camera.Stream, queue *Queue, jobID, candidateID string) {
	defer close(done)

	select {
	case <-stream.Ready():
	case <-ctx.Done():
		return
	}
	dims := stream.Dimensions()
	if !dims.Usable() {
		p.logger.Warn().Msg("Camera ready without usable dimensions, sampler not started")
		return
	}
	p.logger.Debug().Int("width", dims.Width).Int("height", dims.Height).Msg("Frame sampler started")

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample(stream, queue, jobID, candidateID)
		}
	}
}

// sample captures, encodes and enqueues one frame. Never blocks on upload.
func (p *Pipeline) sample(stream camera.Stream, queue *Queue, jobID, candidateID string) {
	if !stream.Active() {
		return
	}
	img, err := stream.Frame()
	if err != nil {
		p.metrics.RecordFrameDropped("capture")
		p.logger.Debug().Err(err).Msg("Frame capture failed")
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.opts.JPEGQuality}); err != nil {
		p.metrics.RecordFrameDropped("encode")
		p.logger.Warn().Err(err).Msg("Frame encode failed")
		return
	}
	p.metrics.RecordFrameSampled(buf.Len())

	queue.Submit(models.FrameSample{
		Image:       buf.Bytes(),
		Timestamp:   p.now(),
		JobID:       jobID,
		CandidateID: candidateID,
	})
}
