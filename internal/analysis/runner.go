// Package analysis runs video analysis jobs on a fixed pool of workers fed by
// a bounded queue.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/metrics"
)

var (
	ErrQueueFull = errors.New("analysis queue is full")
	ErrStopped   = errors.New("analysis runner is stopped")
)

// Job identifies one video to analyze.
type Job struct {
	OrganizationID uuid.UUID
	VideoID        uuid.UUID
}

// Handler processes one job. ctx carries the per-job timeout.
type Handler func(ctx context.Context, job Job) error

type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Runner owns the worker goroutines. Submit never blocks: a full queue is
// reported to the caller instead of stalling the HTTP request.
type Runner struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	queue   chan Job
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

func NewRunner(cfg Config, log *slog.Logger, m *metrics.Metrics) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:     cfg,
		log:     log,
		metrics: m,
		queue:   make(chan Job, cfg.QueueSize),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. It may be called once.
func (r *Runner) Start(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(i, handler)
	}
	r.log.Info("Analysis runner started",
		slog.Int("workers", r.cfg.Workers),
		slog.Int("queue_size", r.cfg.QueueSize),
		slog.Duration("timeout", r.cfg.Timeout))
}

// Submit enqueues a video for analysis.
func (r *Runner) Submit(job Job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrStopped
	}

	select {
	case r.queue <- job:
		r.metrics.SetAnalysisQueueDepth(len(r.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new work, lets the workers drain the queue and waits for
// them. If ctx expires first the in-flight jobs are cancelled; Stop still
// waits for every worker to return.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.queue)
	started := r.started
	r.mu.Unlock()

	if !started {
		r.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("analysis runner stopped before the queue drained: %w", ctx.Err())
	}
}

func (r *Runner) work(worker int, handler Handler) {
	defer r.wg.Done()
	for job := range r.queue {
		r.metrics.SetAnalysisQueueDepth(len(r.queue))
		r.run(worker, handler, job)
	}
}

func (r *Runner) run(worker int, handler Handler, job Job) {
	ctx := r.baseCtx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Analysis job panicked",
				slog.Int("worker", worker),
				slog.String("video_id", job.VideoID.String()),
				slog.Any("panic", p))
		}
	}()

	start := time.Now()
	if err := handler(ctx, job); err != nil {
		r.log.Warn("Analysis job failed",
			slog.Int("worker", worker),
			slog.String("video_id", job.VideoID.String()),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		return
	}
	r.log.Debug("Analysis job finished",
		slog.Int("worker", worker),
		slog.String("video_id", job.VideoID.String()),
		slog.Duration("elapsed", time.Since(start)))
}
