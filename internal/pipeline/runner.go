// Package pipeline runs ordered, individually retried steps and records
// the outcome of each one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-ai/internal/domain"
)

const minBackoff = time.Millisecond

// Step outcomes as logged and counted.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Policy controls how often a failing step is retried.
type Policy struct {
	MaxRetries uint64
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Step is one unit of a pipeline run.
type Step struct {
	Name   string
	Policy Policy
	// BestEffort steps log their failure and let the run continue.
	BestEffort bool
	// When, if set, is consulted before the step runs; false skips it.
	When func() bool
	Run  func(ctx context.Context) error
}

// Recorder receives step and run outcomes.
type Recorder interface {
	RecordStep(pipeline, step, outcome string, duration time.Duration)
	RecordRun(pipeline, outcome string)
}

// StepError reports which step stopped a run.
type StepError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err should stop retries immediately.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Runner executes steps for one named pipeline.
type Runner struct {
	name     string
	logger   *zap.Logger
	recorder Recorder
}

// NewRunner builds a runner. recorder may be nil.
func NewRunner(name string, logger *zap.Logger, recorder Recorder) *Runner {
	return &Runner{name: name, logger: logger.With(zap.String("pipeline", name)), recorder: recorder}
}

// Name returns the pipeline name.
func (r *Runner) Name() string { return r.name }

// Execute runs steps in order. It stops at the first failing step that is
// not best-effort and returns a *StepError for it.
func (r *Runner) Execute(ctx context.Context, runID string, steps []Step) error {
	logger := r.logger.With(zap.String("run_id", runID))
	for _, step := range steps {
		if err := r.runStep(ctx, logger, step); err != nil {
			if step.BestEffort {
				continue
			}
			r.recordRun(OutcomeFailed)
			return err
		}
	}
	r.recordRun(OutcomeSuccess)
	return nil
}

func (r *Runner) runStep(ctx context.Context, logger *zap.Logger, step Step) error {
	if step.When != nil && !step.When() {
		r.recordStep(step.Name, OutcomeSkipped, 0)
		logger.Info("step skipped", zap.String("step", step.Name), zap.String("outcome", OutcomeSkipped))
		return nil
	}
	start := time.Now()
	attempts := 0
	err := retry.Do(ctx, backoffFor(step.Policy), func(ctx context.Context) error {
		attempts++
		err := step.Run(ctx)
		if err == nil || IsPermanent(err) {
			return err
		}
		logger.Debug("step attempt failed",
			zap.String("step", step.Name),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		return retry.RetryableError(err)
	})
	elapsed := time.Since(start)

	fields := []zap.Field{
		zap.String("step", step.Name),
		zap.Int("attempts", attempts),
		zap.Duration("duration", elapsed),
	}
	if err == nil {
		r.recordStep(step.Name, OutcomeSuccess, elapsed)
		logger.Info("step completed", append(fields, zap.String("outcome", OutcomeSuccess))...)
		return nil
	}

	outcome := OutcomeFailed
	if step.BestEffort {
		outcome = OutcomeSkipped
	}
	r.recordStep(step.Name, outcome, elapsed)
	fields = append(fields, zap.String("outcome", outcome), zap.Error(err))
	if step.BestEffort {
		logger.Warn("best-effort step failed", fields...)
	} else {
		logger.Error("step failed", fields...)
	}
	return &StepError{Step: step.Name, Attempts: attempts, Err: err}
}

func backoffFor(p Policy) retry.Backoff {
	base := p.Backoff
	if base < minBackoff {
		base = minBackoff
	}
	b := retry.NewExponential(base)
	if p.MaxBackoff > 0 {
		b = retry.WithCappedDuration(p.MaxBackoff, b)
	}
	return retry.WithMaxRetries(p.MaxRetries, b)
}

func (r *Runner) recordStep(step, outcome string, d time.Duration) {
	if r.recorder != nil {
		r.recorder.RecordStep(r.name, step, outcome, d)
	}
}

func (r *Runner) recordRun(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordRun(r.name, outcome)
	}
}
