package pipeline

import (
	"context"
	"errors"
	"log/slog"
)

// Step is one stage of a Pipeline.
type Step[T any] interface {
	// Do processes item. A returned error is logged and, unless the
	// pipeline continues on error, stops the remaining steps.
	Do(ctx context.Context, item T) error

	// Name identifies the step in logs.
	Name() string
}

// StepFunc adapts a function to the Step interface.
type StepFunc[T any] struct {
	name string
	fn   func(ctx context.Context, item T) error
}

// NewStep returns a Step named name that calls fn.
func NewStep[T any](name string, fn func(ctx context.Context, item T) error) StepFunc[T] {
	return StepFunc[T]{name: name, fn: fn}
}

// Do implements Step.
func (s StepFunc[T]) Do(ctx context.Context, item T) error {
	return s.fn(ctx, item)
}

// Name implements Step.
func (s StepFunc[T]) Name() string {
	return s.name
}

// Pipeline executes steps in the order they were added.
type Pipeline[T any] struct {
	steps           []Step[T]
	logger          *slog.Logger
	continueOnError bool
	atomic          bool
}

// Option configures a Pipeline.
type Option func(*settings)

type settings struct {
	logger          *slog.Logger
	continueOnError bool
	atomic          bool
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithContinueOnError runs the remaining steps after a step fails. All
// step errors are then returned joined.
func WithContinueOnError(continueOnError bool) Option {
	return func(s *settings) {
		s.continueOnError = continueOnError
	}
}

// WithAtomic runs every step even when the context is cancelled part way,
// so that an item is either fully processed or not started.
func WithAtomic(atomic bool) Option {
	return func(s *settings) {
		s.atomic = atomic
	}
}

// New creates an empty Pipeline.
func New[T any](opts ...Option) *Pipeline[T] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return &Pipeline[T]{
		logger:          s.logger,
		continueOnError: s.continueOnError,
		atomic:          s.atomic,
	}
}

// AddSteps appends several steps.
func (p *Pipeline[T]) AddSteps(steps ...Step[T]) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps over item. Unless the pipeline is atomic, it
// checks for cancellation before each step and returns ctx.Err() once the
// context is done.
func (p *Pipeline[T]) Execute(ctx context.Context, item T) error {
	var errs []error
	for _, step := range p.steps {
		if !p.atomic {
			if err := ctx.Err(); err != nil {
				p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
				return err
			}
		}

		if err := step.Do(ctx, item); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "error", err)
			if !p.continueOnError {
				return err
			}
			errs = append(errs, err)
			continue
		}
		p.logger.Debug("step completed", "step", step.Name())
	}
	return errors.Join(errs...)
}

// StepNames returns the step names in execution order.
func (p *Pipeline[T]) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
