package media

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/models"
	"ai-interview-session-service/internal/observability/metrics"
)

// Uploader sends one frame to the backend.
type Uploader interface {
	Upload(ctx context.Context, f models.FrameSample) error
}

// Queue is a bounded best-effort upload queue drained by one worker.
// Submit never blocks: when the buffer is full the frame is dropped.
type Queue struct {
	tasks    chan models.FrameSample
	uploader Uploader
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts a queue holding up to size pending frames.
func NewQueue(size int, uploader Uploader, timeout time.Duration, logger zerolog.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:    make(chan models.FrameSample, size),
		uploader: uploader,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics.DefaultMetrics,
		ctx:      ctx,
		cancel:   cancel,
	}
	q.wg.Add(1)
	go q.work()
	return q
}

// Submit enqueues f and reports whether it was accepted.
func (q *Queue) Submit(f models.FrameSample) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.RecordFrameDropped("closed")
		return false
	}
	select {
	case q.tasks <- f:
		return true
	default:
		q.metrics.RecordFrameDropped("queue_full")
		return false
	}
}

// Close stops accepting frames and abandons pending and in-flight uploads.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	q.cancel()
}

// Wait blocks until the worker has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) work() {
	defer q.wg.Done()
	for f := range q.tasks {
		if q.ctx.Err() != nil {
			q.metrics.RecordFrameDropped("closed")
			continue
		}
		q.upload(f)
	}
}

func (q *Queue) upload(f models.FrameSample) {
	ctx := q.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(q.ctx, q.timeout)
		defer cancel()
	}

	start := time.Now()
	err := q.uploader.Upload(ctx, f)
	q.metrics.RecordFrameUpload(err)
	if err != nil {
		q.logger.Warn().Err(err).Str("frame", f.Filename()).Msg("Frame upload failed")
		return
	}
	q.logger.Debug().
		Str("frame", f.Filename()).
		Int("bytes", len(f.Image)).
		Dur("took", time.Since(start)).
		Msg("Frame uploaded")
}
