package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used when no positive concurrency is configured.
const DefaultConcurrency = 4

// BatchResult is the outcome of one job.
type BatchResult[In, Out any] struct {
	// Index is the position of Input in the submitted slice.
	Index int
	Input In
	Value Out

	// Err is the job's error, or the context error for jobs never started.
	Err error
}

// BatchProcessor runs a job function over many inputs concurrently.
// A failing job does not cancel the others.
type BatchProcessor[In, Out any] struct {
	job         func(ctx context.Context, in In) (Out, error)
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*batchSettings)

type batchSettings struct {
	concurrency int
	logger      *slog.Logger
}

// WithBatchLogger sets the logger. The default is slog.Default().
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(s *batchSettings) {
		s.logger = logger
	}
}

// WithConcurrency sets the maximum number of jobs running at once.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(s *batchSettings) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor for job.
func NewBatchProcessor[In, Out any](job func(ctx context.Context, in In) (Out, error), opts ...BatchOption) *BatchProcessor[In, Out] {
	s := batchSettings{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return &BatchProcessor[In, Out]{job: job, concurrency: s.concurrency, logger: s.logger}
}

// ProcessBatchWithCallback runs the job over inputs and calls callback once
// per input as jobs finish. Jobs not started before ctx is cancelled report
// ctx.Err(). callback may be called from several goroutines
// at once but never twice for the same index.
func (bp *BatchProcessor[In, Out]) ProcessBatchWithCallback(ctx context.Context, inputs []In, callback func(BatchResult[In, Out])) {
	bp.logger.Info("starting batch", "total", len(inputs), "concurrency", bp.concurrency)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			result := BatchResult[In, Out]{Index: i, Input: in}
			if err := ctx.Err(); err != nil {
				result.Err = err
				callback(result)
				return nil
			}

			result.Value, result.Err = bp.job(ctx, in)
			if result.Err != nil {
				bp.logger.Warn("batch job failed", "index", i+1, "total", len(inputs), "error", result.Err)
			}
			callback(result)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // jobs never return errors to the group

	bp.logger.Info("batch complete", "total", len(inputs), "elapsed", time.Since(start))
}
