package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/utils/requestctx"
)

const instrumentationName = "github.com/uniedit/mediagen/internal/domain/media"

// MetricsRecorder receives gateway measurements.
type MetricsRecorder interface {
	RecordGeneration(provider, kind, status string, duration time.Duration)
	SetPendingTasks(n int)
}

// Domain is the gateway entry point. It resolves adapters per provider and
// stashes jobs that can be resumed or polled later.
type Domain struct {
	factory AdapterFactory
	tasks   TaskStore
	metrics MetricsRecorder
	config  *Config
	logger  *zap.Logger
	tracer  trace.Tracer

	mu       sync.RWMutex
	adapters map[ProviderID]Adapter
}

// NewDomain creates a new gateway domain. tasks and metrics may be nil.
func NewDomain(
	factory AdapterFactory,
	tasks TaskStore,
	metrics MetricsRecorder,
	config *Config,
	logger *zap.Logger,
) *Domain {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Domain{
		factory:  factory,
		tasks:    tasks,
		metrics:  metrics,
		config:   config,
		logger:   logger.With(zap.String("component", "media_gateway")),
		tracer:   otel.Tracer(instrumentationName),
		adapters: make(map[ProviderID]Adapter),
	}
}

// Adapter returns the cached adapter for a provider, creating it on first use.
func (d *Domain) Adapter(id ProviderID) (Adapter, error) {
	d.mu.RLock()
	a, ok := d.adapters[id]
	d.mu.RUnlock()
	if ok {
		return a, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.adapters[id]; ok {
		return a, nil
	}
	a, err := d.factory.Create(id, d.config.Providers[id])
	if err != nil {
		return nil, err
	}
	d.adapters[id] = a
	return a, nil
}

// Providers lists the providers the gateway can serve.
func (d *Domain) Providers() []ProviderID {
	return d.factory.Providers()
}

// GenerateImage generates images through the given provider.
func (d *Domain) GenerateImage(ctx context.Context, provider ProviderID, params *ImageParams) (*ImageResult, error) {
	if params == nil || strings.TrimSpace(params.Prompt) == "" {
		return nil, NewValidationError(ErrInvalidInput, "prompt is required")
	}
	ctx, span, done := d.begin(ctx, "GenerateImage", provider, KindImage, params.Model, params.Options)

	result, err := d.generateImage(ctx, provider, params)
	status := resultStatusLabel(err, func() ResultStatus { return result.Status })
	done(status, err)
	span.End()
	if err != nil {
		return nil, err
	}

	if result.Status == ResultTimeout {
		d.stash(ctx, &PendingTask{
			Provider:  provider,
			Kind:      KindImage,
			RequestID: result.RequestID,
			ModelID:   result.ModelID,
			TaskID:    result.TaskID,
		})
	}
	return result, nil
}

func (d *Domain) generateImage(ctx context.Context, provider ProviderID, params *ImageParams) (*ImageResult, error) {
	adapter, err := d.Adapter(provider)
	if err != nil {
		return nil, err
	}
	return adapter.GenerateImage(ctx, params)
}

// GenerateVideo generates a video through the given provider.
func (d *Domain) GenerateVideo(ctx context.Context, provider ProviderID, params *VideoParams) (*VideoResult, error) {
	if params == nil || (strings.TrimSpace(params.Prompt) == "" && len(params.Images) == 0 && len(params.Videos) == 0) {
		return nil, NewValidationError(ErrInvalidInput, "prompt or reference media is required")
	}
	ctx, span, done := d.begin(ctx, "GenerateVideo", provider, KindVideo, params.Model, params.Options)

	result, err := d.generateVideo(ctx, provider, params)
	status := resultStatusLabel(err, func() ResultStatus { return result.Status })
	done(status, err)
	span.End()
	if err != nil {
		return nil, err
	}

	if result.Status == ResultQueued || result.Status == ResultTimeout {
		d.stash(ctx, &PendingTask{
			Provider:  provider,
			Kind:      KindVideo,
			TaskID:    result.TaskID,
			RequestID: result.RequestID,
			ModelID:   result.ModelID,
		})
	}
	return result, nil
}

func (d *Domain) generateVideo(ctx context.Context, provider ProviderID, params *VideoParams) (*VideoResult, error) {
	adapter, err := d.Adapter(provider)
	if err != nil {
		return nil, err
	}
	return adapter.GenerateVideo(ctx, params)
}

// GenerateAudio synthesizes audio through the given provider.
func (d *Domain) GenerateAudio(ctx context.Context, provider ProviderID, params *AudioParams) (*AudioResult, error) {
	if params == nil || strings.TrimSpace(params.Text) == "" {
		return nil, NewValidationError(ErrInvalidInput, "text is required")
	}
	ctx, span, done := d.begin(ctx, "GenerateAudio", provider, KindAudio, params.Model, params.Options)
	defer span.End()

	adapter, err := d.Adapter(provider)
	if err != nil {
		done("error", err)
		return nil, err
	}
	result, err := adapter.GenerateAudio(ctx, params)
	if err != nil {
		done("error", err)
		return nil, err
	}
	done(string(result.Status), nil)
	return result, nil
}

// CheckStatus probes a provider task. Terminal tasks are dropped from the stash.
func (d *Domain) CheckStatus(ctx context.Context, provider ProviderID, taskID string) (*TaskStatus, error) {
	if taskID == "" {
		return nil, NewValidationError(ErrInvalidInput, "task id is required")
	}
	ctx, span := d.tracer.Start(ctx, "media.CheckStatus", trace.WithAttributes(
		attribute.String("media.provider", string(provider)),
		attribute.String("media.task_id", taskID),
	))
	defer span.End()

	adapter, err := d.Adapter(provider)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	status, err := adapter.CheckStatus(ctx, taskID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("media.state", string(status.State)))

	if status.State.IsTerminal() {
		d.unstash(ctx, string(provider)+":"+taskID)
	}
	return status, nil
}

// ResumeImage continues polling an image job that previously timed out.
func (d *Domain) ResumeImage(ctx context.Context, provider ProviderID, requestID, modelID string, onProgress ProgressFunc) (*ImageResult, error) {
	if requestID == "" || modelID == "" {
		return nil, NewValidationError(ErrInvalidInput, "request id and model id are required")
	}
	ctx, span, done := d.begin(ctx, "ResumeImage", provider, KindImage, modelID, nil)

	result, err := d.resumeImage(ctx, provider, requestID, modelID, onProgress)
	status := resultStatusLabel(err, func() ResultStatus { return result.Status })
	done(status, err)
	span.End()
	if err != nil {
		return nil, err
	}

	if result.Status == ResultCompleted {
		d.unstash(ctx, string(provider)+":"+requestID)
	}
	return result, nil
}

func (d *Domain) resumeImage(ctx context.Context, provider ProviderID, requestID, modelID string, onProgress ProgressFunc) (*ImageResult, error) {
	adapter, err := d.Adapter(provider)
	if err != nil {
		return nil, err
	}
	resumer, ok := adapter.(ImageResumer)
	if !ok {
		return nil, NewValidationError(ErrUnsupportedCapability, "%s cannot resume image jobs", provider)
	}
	return resumer.ResumeImage(ctx, requestID, modelID, onProgress)
}

// PendingTasks lists stashed tasks.
func (d *Domain) PendingTasks(ctx context.Context) ([]*PendingTask, error) {
	if d.tasks == nil {
		return nil, nil
	}
	tasks, err := d.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	if d.metrics != nil {
		d.metrics.SetPendingTasks(len(tasks))
	}
	return tasks, nil
}

// begin opens a span and returns a completion hook that logs and records metrics.
func (d *Domain) begin(ctx context.Context, op string, provider ProviderID, kind Kind, model string, opts ModelOptions) (context.Context, trace.Span, func(status string, err error)) {
	callID := requestctx.RequestIDOr(ctx, uuid.NewString)
	ctx, span := d.tracer.Start(ctx, "media."+op, trace.WithAttributes(
		attribute.String("media.provider", string(provider)),
		attribute.String("media.kind", string(kind)),
		attribute.String("media.model", model),
		attribute.String("media.call_id", callID),
	))
	logger := d.logger.With(
		zap.String("call_id", callID),
		zap.String("provider", string(provider)),
		zap.String("kind", string(kind)),
		zap.String("model", model),
	)
	logger.Debug("Generation started", zap.String("op", op), zap.String("options", describeOptions(opts)))
	start := time.Now()

	return ctx, span, func(status string, err error) {
		elapsed := time.Since(start)
		if d.metrics != nil {
			d.metrics.RecordGeneration(string(provider), string(kind), status, elapsed)
		}
		span.SetAttributes(attribute.String("media.status", status))
		if err != nil {
			recordSpanError(span, err)
			if IsValidation(err) {
				logger.Info("Generation rejected", zap.String("op", op), zap.Error(err))
			} else {
				logger.Warn("Generation failed", zap.String("op", op), zap.Duration("elapsed", elapsed), zap.Error(err))
			}
			return
		}
		logger.Info("Generation finished", zap.String("op", op), zap.String("status", status), zap.Duration("elapsed", elapsed))
	}
}

func (d *Domain) stash(ctx context.Context, task *PendingTask) {
	if d.tasks == nil || !d.config.StashTimedOut {
		return
	}
	if task.TaskID == "" && task.RequestID == "" {
		return
	}
	task.CreatedAt = time.Now()
	if err := d.tasks.Save(ctx, task); err != nil {
		d.logger.Warn("Failed to stash pending task", zap.String("key", task.Key()), zap.Error(err))
	}
}

func (d *Domain) unstash(ctx context.Context, key string) {
	if d.tasks == nil {
		return
	}
	if err := d.tasks.Delete(ctx, key); err != nil && !errors.Is(err, ErrTaskNotFound) {
		d.logger.Warn("Failed to drop pending task", zap.String("key", key), zap.Error(err))
	}
}

func resultStatusLabel(err error, status func() ResultStatus) string {
	if err != nil {
		return "error"
	}
	return string(status())
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
