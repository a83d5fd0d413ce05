package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/retry"
)

type result struct{ URL string }

// scripted replays a fixed sequence of probe responses; the last one repeats.
func scripted(steps ...func() (Observation[result], error)) (Probe[result], *int) {
	calls := 0
	return func(context.Context) (Observation[result], error) {
		i := calls
		if i >= len(steps) {
			i = len(steps) - 1
		}
		calls++
		return steps[i]()
	}, &calls
}

func obs(s State) func() (Observation[result], error) {
	return func() (Observation[result], error) { return Observation[result]{State: s}, nil }
}

func done(url string) func() (Observation[result], error) {
	return func() (Observation[result], error) {
		return Observation[result]{State: StateCompleted, Result: &result{URL: url}}, nil
	}
}

func fail(err error) func() (Observation[result], error) {
	return func() (Observation[result], error) { return Observation[result]{}, err }
}

func noRetry() *retry.Retryer {
	return retry.New(&retry.Policy{MaxRetries: 0}, zap.NewNop())
}

func TestCalculateProgress(t *testing.T) {
	tests := []struct {
		current, expected int
		want              int
	}{
		{0, 4, 0},
		{1, 4, 41},
		{2, 4, 71},
		{3, 4, 89},
		{4, 4, 95},
		{5, 4, 96},
		{6, 4, 97},
		{100, 4, 98},
		{0, 40, 0},
		{20, 40, 71},
		{40, 40, 95},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateProgress(tt.current, tt.expected), "current=%d expected=%d", tt.current, tt.expected)
	}
}

func TestCalculateProgress_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		expected := rapid.IntRange(1, 300).Draw(t, "expected")
		a := rapid.IntRange(0, 2000).Draw(t, "a")
		b := rapid.IntRange(a, 2000).Draw(t, "b")

		pa := CalculateProgress(a, expected)
		pb := CalculateProgress(b, expected)
		if pa < 0 || pb > 99 {
			t.Fatalf("progress out of bounds: %d, %d", pa, pb)
		}
		if pb < pa {
			t.Fatalf("progress decreased: f(%d)=%d > f(%d)=%d", a, pa, b, pb)
		}
		if b <= expected && pb > 95 {
			t.Fatalf("progress within budget exceeded 95: %d", pb)
		}
	})
}

func TestRun_SubmitThenPoll(t *testing.T) {
	probe, calls := scripted(obs(StateQueued), obs(StateInProgress), obs(StateInProgress), done("R"))

	var seen []int
	var phases []media.Phase
	out, err := Run(context.Background(), Options{
		Provider:         media.ProviderFal,
		MaxAttempts:      10,
		ExpectedAttempts: 4,
		Interval:         Fixed(0),
		QueuedProgress:   5,
		Retryer:          noRetry(),
		OnProgress: func(s media.ProgressStatus) {
			seen = append(seen, s.Progress)
			phases = append(phases, s.Phase)
		},
	}, probe)

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, out.State)
	assert.Equal(t, "R", out.Result.URL)
	assert.Equal(t, 4, *calls)
	assert.Equal(t, []int{5, 41, 71, 100}, seen)
	assert.Equal(t, []media.Phase{media.PhaseQueued, media.PhaseInProgress, media.PhaseInProgress, media.PhaseCompleted}, phases)
}

func TestRun_TimedOut(t *testing.T) {
	probe, calls := scripted(obs(StateInProgress))

	out, err := Run(context.Background(), Options{
		MaxAttempts: 3,
		Interval:    Fixed(0),
		Retryer:     noRetry(),
	}, probe)

	require.NoError(t, err)
	assert.Equal(t, OutcomeTimedOut, out.State)
	assert.Nil(t, out.Result)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 3, out.Attempts)
}

func TestRun_Failed(t *testing.T) {
	probe, _ := scripted(obs(StateQueued), func() (Observation[result], error) {
		return Observation[result]{State: StateFailed, Reason: "content policy"}, nil
	})

	_, err := Run(context.Background(), Options{Provider: media.ProviderKIE, Interval: Fixed(0), Retryer: noRetry()}, probe)

	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrTaskFailed)
	var provErr *media.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "content policy", provErr.Message)
	assert.Equal(t, media.ProviderKIE, provErr.Provider)
}

func TestRun_CompletedWithoutResult(t *testing.T) {
	probe, _ := scripted(obs(StateCompleted))

	_, err := Run(context.Background(), Options{Interval: Fixed(0), Retryer: noRetry()}, probe)

	assert.ErrorIs(t, err, media.ErrInconsistentState)
}

func TestRun_TransientProbeErrorsRetried(t *testing.T) {
	transient := &media.NetworkError{Provider: media.ProviderPPIO, Err: errors.New("reset")}
	probe, calls := scripted(fail(transient), obs(StateInProgress), fail(transient), done("ok"))

	out, err := Run(context.Background(), Options{
		Interval: Fixed(0),
		Retryer:  retry.New(&retry.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}, nil),
	}, probe)

	require.NoError(t, err)
	assert.Equal(t, "ok", out.Result.URL)
	assert.Equal(t, 4, *calls)
	assert.Equal(t, 2, out.Attempts)
}

func TestRun_PermanentProbeErrorAborts(t *testing.T) {
	permanent := &media.ProviderError{Provider: media.ProviderPPIO, Status: 401, Message: "unauthorized"}
	probe, calls := scripted(obs(StateInProgress), fail(permanent))

	_, err := Run(context.Background(), Options{Interval: Fixed(0)}, probe)

	assert.Same(t, permanent, err)
	assert.Equal(t, 2, *calls)
}

func TestRun_ContextCanceled(t *testing.T) {
	t.Run("before first probe", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		probe, calls := scripted(obs(StateQueued))

		_, err := Run(ctx, Options{Interval: Fixed(time.Hour)}, probe)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, *calls)
	})

	t.Run("while waiting", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		probe, calls := scripted(obs(StateQueued))

		_, err := Run(ctx, Options{Interval: Fixed(time.Hour)}, probe)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, *calls)
	})
}

func TestRun_DisplayedProgressNeverDecreases(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "n")
		states := make([]func() (Observation[result], error), n)
		for i := range states {
			if rapid.Bool().Draw(t, "queued") {
				states[i] = obs(StateQueued)
			} else {
				states[i] = obs(StateInProgress)
			}
		}
		probe, _ := scripted(states...)

		var seen []int
		_, err := Run(context.Background(), Options{
			MaxAttempts:      n,
			ExpectedAttempts: rapid.IntRange(1, 10).Draw(t, "expected"),
			QueuedProgress:   5,
			Interval:         Fixed(0),
			Retryer:          noRetry(),
			OnProgress:       func(s media.ProgressStatus) { seen = append(seen, s.Progress) },
		}, probe)
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(seen); i++ {
			if seen[i] < seen[i-1] {
				t.Fatalf("progress decreased: %v", seen)
			}
		}
		for _, p := range seen {
			if p < 0 || p > 99 {
				t.Fatalf("progress out of range: %v", seen)
			}
		}
	})
}

func TestIntervalPolicies(t *testing.T) {
	p := ByPhase(2*time.Second, time.Second)
	assert.Equal(t, 2*time.Second, p(StateQueued))
	assert.Equal(t, time.Second, p(StateInProgress))
	assert.Equal(t, 3*time.Second, Fixed(3*time.Second)(StateQueued))
}

func TestRun_OnAttempt(t *testing.T) {
	probe, _ := scripted(obs(StateInProgress), done("x"))
	var attempts []int

	_, err := Run(context.Background(), Options{
		Interval:  Fixed(0),
		Retryer:   noRetry(),
		OnAttempt: func(a int) { attempts = append(attempts, a) },
	}, probe)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestEstimateTable(t *testing.T) {
	table := NewEstimateTable(20,
		Estimate{"z-image/turbo", 5},
		Estimate{"seedream/v4", 30},
		Estimate{"nano-banana-pro", 30},
		Estimate{"nano-banana", 10},
		Estimate{"veo", 60},
	)

	tests := []struct {
		model string
		want  int
	}{
		{"fal-ai/z-image/turbo", 5},
		{"fal-ai/bytedance/seedream/v4/edit", 30},
		{"fal-ai/nano-banana-pro", 30},
		{"fal-ai/nano-banana", 10},
		{"fal-ai/veo3.1/fast", 60},
		{"unknown", 20},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, table.For(tt.model))
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "queued", StateQueued.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
