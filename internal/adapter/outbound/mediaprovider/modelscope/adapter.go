// Package modelscope adapts the ModelScope inference API to the media capability contract.
package modelscope

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
	"github.com/uniedit/mediagen/internal/module/gateway/normalize"
	"github.com/uniedit/mediagen/internal/module/gateway/parse"
	"github.com/uniedit/mediagen/internal/module/gateway/poll"
	"github.com/uniedit/mediagen/internal/module/gateway/retry"
	"github.com/uniedit/mediagen/internal/module/gateway/route"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
)

const (
	// BaseURL is the ModelScope inference host.
	BaseURL = "https://api-inference.modelscope.cn"

	tasksPath       = "/v1/tasks/"
	pollInterval    = 3 * time.Second
	maxPollAttempts = 120
	expectedPolls   = 40
)

var (
	submitHeaders = http.Header{"X-ModelScope-Async-Mode": {"true"}}
	statusHeaders = http.Header{"X-ModelScope-Task-Type": {"image_generation"}}
)

var errorMessage = normalize.Chain(normalize.Fields("errors.message", "message", "error"), normalize.Default)

// Adapter talks to ModelScope. It only generates images.
type Adapter struct {
	client   *transport.Client
	images   *route.Router[imageInput]
	retryer  *retry.Retryer
	interval poll.IntervalPolicy
	attempts int
	deps     providerkit.Deps
	logger   *zap.Logger
}

// New creates a ModelScope adapter.
func New(cfg media.ClientConfig, deps providerkit.Deps) (*Adapter, error) {
	if err := providerkit.RequireKey(media.ProviderModelScope, cfg); err != nil {
		return nil, err
	}
	deps = deps.WithDefaults()
	return &Adapter{
		client:   providerkit.NewClient(media.ProviderModelScope, cfg, BaseURL, transport.Bearer, deps),
		images:   imageRoutes(),
		retryer:  providerkit.PollRetryer(cfg, deps.Logger),
		interval: poll.Fixed(pollInterval),
		attempts: maxPollAttempts,
		deps:     deps,
		logger:   deps.Logger.With(zap.String("provider", string(media.ProviderModelScope))),
	}, nil
}

func (a *Adapter) Provider() media.ProviderID { return media.ProviderModelScope }

// GenerateImage submits an async generation. Without a progress callback it returns the task id at once.
func (a *Adapter) GenerateImage(ctx context.Context, params *media.ImageParams) (*media.ImageResult, error) {
	rt, err := a.images.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(imageInput{Params: params, Stage: a.stager(ctx), Shape: providerkit.ShapeOf(ctx, a.deps.Inspector)})
	if err != nil {
		return nil, normalize.Error(media.ProviderModelScope, err, errorMessage)
	}

	body, err := a.client.PostJSON(ctx, req.Endpoint, req.Payload, submitHeaders)
	if err != nil {
		return nil, normalize.Error(media.ProviderModelScope, fmt.Errorf("submit %s: %w", req.CanonicalModelID, err), errorMessage)
	}
	// Some models answer inline instead of queueing.
	if urls := parse.FirstMedia(body, media.KindImage, "images", "output_images"); len(urls) > 0 {
		return &media.ImageResult{URL: parse.Join(urls), Base64Data: parse.Base64Of(urls), Status: media.ResultCompleted, ModelID: req.CanonicalModelID}, nil
	}
	taskID := gjson.GetBytes(body, "task_id").String()
	if taskID == "" {
		return nil, parse.NoOutput(media.ProviderModelScope, body)
	}
	a.logger.Info("Task submitted", zap.String("model", req.CanonicalModelID), zap.String("task_id", taskID))

	if params.OnProgress == nil {
		return &media.ImageResult{Status: media.ResultQueued, TaskID: taskID, RequestID: taskID, ModelID: req.CanonicalModelID}, nil
	}
	return a.pollImage(ctx, taskID, req.CanonicalModelID, params.OnProgress)
}

// ResumeImage continues polling a task that timed out.
func (a *Adapter) ResumeImage(ctx context.Context, requestID, modelID string, onProgress media.ProgressFunc) (*media.ImageResult, error) {
	return a.pollImage(ctx, requestID, modelID, onProgress)
}

func (a *Adapter) GenerateVideo(context.Context, *media.VideoParams) (*media.VideoResult, error) {
	return nil, providerkit.Unsupported(media.ProviderModelScope, media.KindVideo)
}

func (a *Adapter) GenerateAudio(context.Context, *media.AudioParams) (*media.AudioResult, error) {
	return nil, providerkit.Unsupported(media.ProviderModelScope, media.KindAudio)
}

// CheckStatus reads one task.
func (a *Adapter) CheckStatus(ctx context.Context, taskID string) (*media.TaskStatus, error) {
	if taskID == "" {
		return nil, media.NewValidationError(media.ErrInvalidInput, "modelscope task id is required")
	}
	body, err := a.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	status := &media.TaskStatus{TaskID: taskID}
	switch gjson.GetBytes(body, "task_status").String() {
	case "SUCCEED":
		urls := parse.FirstMedia(body, media.KindImage, "output_images")
		if len(urls) == 0 {
			return nil, parse.NoOutput(media.ProviderModelScope, body)
		}
		status.State = media.TaskSucceeded
		status.Progress = providerkit.Progress(100)
		status.Image = &media.ImageResult{URL: parse.Join(urls), Base64Data: parse.Base64Of(urls), Status: media.ResultCompleted, TaskID: taskID, RequestID: taskID}
	case "FAILED":
		status.State = media.TaskFailed
		status.Message = failure(body)
	case "PENDING", "QUEUED":
		status.State = media.TaskQueued
	default:
		status.State = media.TaskProcessing
	}
	return status, nil
}

func (a *Adapter) task(ctx context.Context, taskID string) ([]byte, error) {
	body, err := a.client.GetJSON(ctx, tasksPath+taskID, nil, statusHeaders)
	if err != nil {
		return nil, normalize.Error(media.ProviderModelScope, err, errorMessage)
	}
	return body, nil
}

func (a *Adapter) pollImage(ctx context.Context, taskID, modelID string, onProgress media.ProgressFunc) (*media.ImageResult, error) {
	opts := a.deps.PollOptions(media.ProviderModelScope, a.retryer, onProgress)
	opts.MaxAttempts = a.attempts
	opts.ExpectedAttempts = expectedPolls
	opts.Interval = a.interval

	out, err := poll.Run[[]string](ctx, opts, func(ctx context.Context) (poll.Observation[[]string], error) {
		var obs poll.Observation[[]string]
		body, err := a.task(ctx, taskID)
		if err != nil {
			return obs, err
		}
		switch gjson.GetBytes(body, "task_status").String() {
		case "SUCCEED":
			urls := parse.FirstMedia(body, media.KindImage, "output_images")
			if len(urls) == 0 {
				return obs, parse.NoOutput(media.ProviderModelScope, body)
			}
			obs.State = poll.StateCompleted
			obs.Result = &urls
			obs.Message = "Completed"
		case "FAILED":
			obs.State = poll.StateFailed
			obs.Reason = failure(body)
		case "PENDING", "QUEUED":
			obs.State = poll.StateQueued
			obs.Message = "Queued"
		default:
			obs.State = poll.StateInProgress
			obs.Message = "Generating"
		}
		return obs, nil
	})
	if err != nil {
		return nil, err
	}
	res := &media.ImageResult{TaskID: taskID, RequestID: taskID, ModelID: modelID}
	if out.State == poll.OutcomeTimedOut {
		res.Status = media.ResultTimeout
		res.Message = "timed out waiting for the task, it is still running"
		return res, nil
	}
	res.URL = parse.Join(*out.Result)
	res.Base64Data = parse.Base64Of(*out.Result)
	res.Status = media.ResultCompleted
	return res, nil
}

func failure(body []byte) string {
	return parse.FirstString(body, "errors.message", "message")
}

// stager uploads inline references when an uploader is available. ModelScope only reads URLs.
func (a *Adapter) stager(ctx context.Context) providerkit.Stager {
	return providerkit.StageWith(ctx, mediaref.PolicyUpload, a.deps.Uploader)
}

var (
	_ media.Adapter      = (*Adapter)(nil)
	_ media.ImageResumer = (*Adapter)(nil)
)
