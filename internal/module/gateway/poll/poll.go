// Package poll drives asynchronous vendor jobs to a terminal state.
package poll

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/retry"
)

// State is the job state observed by one probe.
type State int

const (
	StateQueued State = iota
	StateInProgress
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observation is what a probe learned about the job.
type Observation[T any] struct {
	State         State
	QueuePosition *int
	Message       string
	// Result is required when State is StateCompleted.
	Result *T
	// Reason describes a failed job.
	Reason string
}

// Probe issues one status request.
type Probe[T any] func(ctx context.Context) (Observation[T], error)

// OutcomeState is how a run ended without error.
type OutcomeState string

const (
	OutcomeCompleted OutcomeState = "completed"
	OutcomeTimedOut  OutcomeState = "timed_out"
)

// Outcome is the result of Run.
type Outcome[T any] struct {
	State    OutcomeState
	Result   *T
	Attempts int
	Progress int
}

// IntervalPolicy chooses the wait before the next probe.
type IntervalPolicy func(State) time.Duration

// Fixed waits d between every probe.
func Fixed(d time.Duration) IntervalPolicy {
	return func(State) time.Duration { return d }
}

// ByPhase waits queued while the job is queued and running otherwise.
func ByPhase(queued, running time.Duration) IntervalPolicy {
	return func(s State) time.Duration {
		if s == StateQueued {
			return queued
		}
		return running
	}
}

// Options configures Run.
type Options struct {
	Provider         media.ProviderID
	MaxAttempts      int
	ExpectedAttempts int
	Interval         IntervalPolicy

	// QueuedProgress pins the reported progress while queued. Zero uses the heuristic.
	QueuedProgress int

	// Retryer absorbs transient probe failures. Nil uses retry.DefaultPolicy.
	Retryer *retry.Retryer

	OnProgress media.ProgressFunc
	// OnAttempt is called before each probe.
	OnAttempt func(attempt int)
	Logger    *zap.Logger
}

const (
	defaultMaxAttempts      = 120
	defaultExpectedAttempts = 40
	defaultInterval         = 3 * time.Second
)

// Run probes until the job completes, fails, the attempt budget runs out, or ctx ends.
// Running out of attempts is not an error: the outcome state is OutcomeTimedOut.
func Run[T any](ctx context.Context, opts Options, probe Probe[T]) (Outcome[T], error) {
	opts = withDefaults(opts)
	logger := opts.Logger.With(zap.String("provider", string(opts.Provider)))

	var (
		out       = Outcome[T]{}
		displayed = 0
	)

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt)
		}

		obs, err := retry.DoValue(ctx, opts.Retryer, func(ctx context.Context) (Observation[T], error) {
			return probe(ctx)
		})
		out.Attempts = attempt + 1
		if err != nil {
			logger.Warn("Status probe failed", zap.Int("attempt", attempt), zap.Error(err))
			return out, err
		}

		progress := progressFor(obs.State, attempt, opts)
		if progress < displayed {
			progress = displayed
		}
		displayed = progress
		out.Progress = progress

		logger.Debug("Status probed",
			zap.Int("attempt", attempt),
			zap.Stringer("state", obs.State),
			zap.Int("progress", progress),
		)

		if phase, ok := phaseOf(obs.State); ok && opts.OnProgress != nil {
			opts.OnProgress(media.ProgressStatus{
				Phase:         phase,
				QueuePosition: obs.QueuePosition,
				Progress:      progress,
				Message:       obs.Message,
			})
		}

		switch obs.State {
		case StateCompleted:
			if obs.Result == nil {
				return out, &media.UnknownError{
					Provider: opts.Provider,
					Raw:      "job reported completed without a result",
					Err:      media.ErrInconsistentState,
				}
			}
			out.State = OutcomeCompleted
			out.Result = obs.Result
			return out, nil
		case StateFailed:
			reason := obs.Reason
			if reason == "" {
				reason = "task failed"
			}
			return out, &media.ProviderError{Provider: opts.Provider, Message: reason, Err: media.ErrTaskFailed}
		}

		if attempt == opts.MaxAttempts-1 {
			break
		}
		if err := sleep(ctx, opts.Interval(obs.State)); err != nil {
			return out, err
		}
	}

	logger.Warn("Polling gave up, job may still be running", zap.Int("attempts", out.Attempts))
	out.State = OutcomeTimedOut
	return out, nil
}

func withDefaults(opts Options) Options {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.ExpectedAttempts <= 0 {
		opts.ExpectedAttempts = defaultExpectedAttempts
	}
	if opts.Interval == nil {
		opts.Interval = Fixed(defaultInterval)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Retryer == nil {
		opts.Retryer = retry.New(nil, opts.Logger)
	}
	return opts
}

func progressFor(s State, attempt int, opts Options) int {
	switch {
	case s == StateCompleted:
		return 100
	case s == StateQueued && opts.QueuedProgress > 0:
		return opts.QueuedProgress
	default:
		return CalculateProgress(attempt, opts.ExpectedAttempts)
	}
}

func phaseOf(s State) (media.Phase, bool) {
	switch s {
	case StateQueued:
		return media.PhaseQueued, true
	case StateInProgress:
		return media.PhaseInProgress, true
	case StateCompleted:
		return media.PhaseCompleted, true
	default:
		return "", false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
