// Package fal adapts the fal.ai queue API to the media capability contract.
package fal

import (
	"context"
	"fmt"
	"strings"
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
	// QueueBaseURL is the fal queue host.
	QueueBaseURL = "https://queue.fal.run"
	// SyncBaseURL serves synchronous runs.
	SyncBaseURL = "https://fal.run"

	maxPollAttempts = 300
	queuedProgress  = 5
)

var errorMessage = normalize.Chain(normalize.FalDetail, normalize.Fields("message", "error"))

var estimates = poll.NewEstimateTable(20,
	poll.Estimate{Match: "z-image/turbo", Attempts: 5},
	poll.Estimate{Match: "seedream/v4", Attempts: 30},
	poll.Estimate{Match: "nano-banana-pro", Attempts: 30},
	poll.Estimate{Match: "nano-banana", Attempts: 10},
	poll.Estimate{Match: "sora-2", Attempts: 50},
	poll.Estimate{Match: "sora2", Attempts: 50},
	poll.Estimate{Match: "veo", Attempts: 60},
	poll.Estimate{Match: "kling-video/v2.6", Attempts: 45},
	poll.Estimate{Match: "kling-video", Attempts: 40},
	poll.Estimate{Match: "kling-image", Attempts: 25},
)

// Adapter talks to fal. It is safe for concurrent use.
type Adapter struct {
	queue    *transport.Client
	sync     *transport.Client
	images   *route.Router[imageInput]
	videos   *route.Router[videoInput]
	retryer  *retry.Retryer
	interval poll.IntervalPolicy
	attempts int
	deps     providerkit.Deps
	logger   *zap.Logger
}

// New creates a fal adapter. A custom cfg.BaseURL serves both the queue and sync runs.
func New(cfg media.ClientConfig, deps providerkit.Deps) (*Adapter, error) {
	if err := providerkit.RequireKey(media.ProviderFal, cfg); err != nil {
		return nil, err
	}
	deps = deps.WithDefaults()
	return &Adapter{
		queue:    providerkit.NewClient(media.ProviderFal, cfg, QueueBaseURL, transport.KeyAuth, deps),
		sync:     providerkit.NewClient(media.ProviderFal, cfg, SyncBaseURL, transport.KeyAuth, deps),
		images:   imageRoutes(),
		videos:   videoRoutes(),
		retryer:  providerkit.PollRetryer(cfg, deps.Logger),
		interval: poll.ByPhase(2*time.Second, time.Second),
		attempts: maxPollAttempts,
		deps:     deps,
		logger:   deps.Logger.With(zap.String("provider", string(media.ProviderFal))),
	}, nil
}

func (a *Adapter) Provider() media.ProviderID { return media.ProviderFal }

// GenerateImage submits an image job and polls it. SyncMode uses the synchronous host instead.
func (a *Adapter) GenerateImage(ctx context.Context, params *media.ImageParams) (*media.ImageResult, error) {
	rt, err := a.images.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(imageInput{Params: params, Stage: a.stager(ctx), Shape: a.shape(ctx)})
	if err != nil {
		return nil, normalize.Error(media.ProviderFal, err, errorMessage)
	}
	a.logger.Debug("Built image request", zap.String("route", rt.Name), zap.String("endpoint", req.Endpoint))

	if params.SyncMode {
		return a.runImageSync(ctx, req)
	}
	requestID, err := a.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.pollImage(ctx, requestID, req.CanonicalModelID, params.OnProgress)
}

// ResumeImage continues polling an image job that timed out.
func (a *Adapter) ResumeImage(ctx context.Context, requestID, modelID string, onProgress media.ProgressFunc) (*media.ImageResult, error) {
	return a.pollImage(ctx, requestID, modelID, onProgress)
}

// GenerateVideo submits a video job. Without a progress callback it returns the task id at once.
func (a *Adapter) GenerateVideo(ctx context.Context, params *media.VideoParams) (*media.VideoResult, error) {
	rt, err := a.videos.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(videoInput{Params: params, Stage: a.stager(ctx), Shape: a.shape(ctx)})
	if err != nil {
		return nil, normalize.Error(media.ProviderFal, err, errorMessage)
	}
	a.logger.Debug("Built video request", zap.String("route", rt.Name), zap.String("endpoint", req.Endpoint))

	requestID, err := a.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	taskID := req.CanonicalModelID + ":" + requestID
	base := media.VideoResult{TaskID: taskID, RequestID: requestID, ModelID: req.CanonicalModelID}
	if params.OnProgress == nil {
		base.Status = media.ResultQueued
		return &base, nil
	}

	out, err := poll.Run[string](ctx, a.pollOptions(req.CanonicalModelID, params.OnProgress), func(ctx context.Context) (poll.Observation[string], error) {
		return probe(ctx, a, req.CanonicalModelID, requestID, videoOutput)
	})
	if err != nil {
		return nil, err
	}
	if out.State == poll.OutcomeTimedOut {
		base.Status = media.ResultTimeout
		return &base, nil
	}
	saved := parse.PersistAll(ctx, a.deps.Persister, []string{*out.Result}, media.KindVideo, a.logger)
	base.URL = saved.URL
	base.FilePath = saved.FilePath
	base.Status = media.ResultCompleted
	return &base, nil
}

func (a *Adapter) GenerateAudio(context.Context, *media.AudioParams) (*media.AudioResult, error) {
	return nil, providerkit.Unsupported(media.ProviderFal, media.KindAudio)
}

// CheckStatus probes "<model>:<requestId>". Completed jobs carry the remote result.
func (a *Adapter) CheckStatus(ctx context.Context, taskID string) (*media.TaskStatus, error) {
	i := strings.LastIndex(taskID, ":")
	if i <= 0 || i == len(taskID)-1 {
		return nil, media.NewValidationError(media.ErrInvalidInput, "fal task id %q must be model:requestId", taskID)
	}
	modelID, requestID := taskID[:i], taskID[i+1:]

	body, err := a.queue.GetJSON(ctx, statusPath(modelID, requestID), nil)
	if err != nil {
		return nil, normalize.Error(media.ProviderFal, err, errorMessage)
	}
	status := &media.TaskStatus{TaskID: taskID}
	switch gjson.GetBytes(body, "status").String() {
	case "COMPLETED":
		result, err := a.queue.GetJSON(ctx, resultPath(modelID, requestID), nil)
		if err != nil {
			return nil, normalize.Error(media.ProviderFal, err, errorMessage)
		}
		status.State = media.TaskSucceeded
		status.Progress = providerkit.Progress(100)
		if urls := parse.FirstURLs(result, "data.video", "video"); len(urls) > 0 {
			status.Video = &media.VideoResult{URL: urls[0], Status: media.ResultCompleted, TaskID: taskID, RequestID: requestID, ModelID: modelID}
		} else if urls, ok := imageOutput(result); ok {
			status.Image = &media.ImageResult{URL: parse.Join(urls), Base64Data: parse.Base64Of(urls), Status: media.ResultCompleted, RequestID: requestID, ModelID: modelID}
		} else {
			return nil, parse.NoOutput(media.ProviderFal, result)
		}
	case "FAILED", "ERROR":
		status.State = media.TaskFailed
		status.Message = gjson.GetBytes(body, "error").String()
	default:
		status.State = media.TaskProcessing
	}
	return status, nil
}

func (a *Adapter) runImageSync(ctx context.Context, req route.Request) (*media.ImageResult, error) {
	body, err := a.sync.PostJSON(ctx, req.Endpoint, req.Payload)
	if err != nil {
		return nil, normalize.Error(media.ProviderFal, fmt.Errorf("run %s: %w", req.Endpoint, err), errorMessage)
	}
	urls, ok := imageOutput(body)
	if !ok {
		return nil, parse.NoOutput(media.ProviderFal, body)
	}
	return &media.ImageResult{URL: parse.Join(urls), Base64Data: parse.Base64Of(urls), Status: media.ResultCompleted, ModelID: req.CanonicalModelID}, nil
}

func (a *Adapter) submit(ctx context.Context, req route.Request) (string, error) {
	body, err := a.queue.PostJSON(ctx, req.Endpoint, req.Payload)
	if err != nil {
		return "", normalize.Error(media.ProviderFal, fmt.Errorf("submit %s: %w", req.Endpoint, err), errorMessage)
	}
	requestID := gjson.GetBytes(body, "request_id").String()
	if requestID == "" {
		return "", &media.UnknownError{Provider: media.ProviderFal, Raw: string(body), Err: media.ErrInconsistentState}
	}
	a.logger.Info("Job submitted", zap.String("endpoint", req.Endpoint), zap.String("request_id", requestID))
	return requestID, nil
}

func (a *Adapter) pollImage(ctx context.Context, requestID, modelID string, onProgress media.ProgressFunc) (*media.ImageResult, error) {
	out, err := poll.Run[[]string](ctx, a.pollOptions(modelID, onProgress), func(ctx context.Context) (poll.Observation[[]string], error) {
		return probe(ctx, a, modelID, requestID, imageOutput)
	})
	if err != nil {
		return nil, err
	}
	if out.State == poll.OutcomeTimedOut {
		return &media.ImageResult{
			Status:    media.ResultTimeout,
			RequestID: requestID,
			ModelID:   modelID,
			Message:   "timed out waiting for the job, it is still running",
		}, nil
	}
	return &media.ImageResult{URL: parse.Join(*out.Result), Base64Data: parse.Base64Of(*out.Result), Status: media.ResultCompleted, RequestID: requestID, ModelID: modelID}, nil
}

func (a *Adapter) pollOptions(modelID string, onProgress media.ProgressFunc) poll.Options {
	opts := a.deps.PollOptions(media.ProviderFal, a.retryer, onProgress)
	opts.MaxAttempts = a.attempts
	opts.ExpectedAttempts = estimates.For(modelID)
	opts.QueuedProgress = queuedProgress
	opts.Interval = a.interval
	return opts
}

// probe reads the queue status and, once completed, the result.
func probe[T any](ctx context.Context, a *Adapter, modelID, requestID string, extract func([]byte) (T, bool)) (poll.Observation[T], error) {
	var obs poll.Observation[T]
	body, err := a.queue.GetJSON(ctx, statusPath(modelID, requestID), nil)
	if err != nil {
		return obs, normalize.Error(media.ProviderFal, err, errorMessage)
	}

	switch gjson.GetBytes(body, "status").String() {
	case "IN_QUEUE":
		obs.State = poll.StateQueued
		obs.Message = "Queued"
		if pos := gjson.GetBytes(body, "queue_position"); pos.Exists() {
			n := int(pos.Int())
			obs.QueuePosition = &n
			obs.Message = fmt.Sprintf("Queued, %d ahead", n)
		}
	case "COMPLETED":
		result, err := a.queue.GetJSON(ctx, resultPath(modelID, requestID), nil)
		if err != nil {
			return obs, normalize.Error(media.ProviderFal, err, errorMessage)
		}
		out, ok := extract(result)
		if !ok {
			return obs, parse.NoOutput(media.ProviderFal, result)
		}
		obs.State = poll.StateCompleted
		obs.Result = &out
		obs.Message = "Completed"
	case "FAILED", "ERROR":
		obs.State = poll.StateFailed
		obs.Reason = gjson.GetBytes(body, "error").String()
	default:
		obs.State = poll.StateInProgress
		obs.Message = "Generating"
		if logs := gjson.GetBytes(body, "logs").Array(); len(logs) > 0 {
			if msg := logs[len(logs)-1].Get("message").String(); msg != "" {
				obs.Message = msg
			}
		}
	}
	return obs, nil
}

func imageOutput(body []byte) ([]string, bool) {
	urls := parse.FirstMedia(body, media.KindImage, "data.images", "images")
	return urls, len(urls) > 0
}

func videoOutput(body []byte) (string, bool) {
	urls := parse.FirstURLs(body, "data.video", "video")
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

func (a *Adapter) stager(ctx context.Context) providerkit.Stager {
	policy := mediaref.PolicyDataURI
	if a.deps.Uploader != nil && a.deps.Uploader.Available() {
		policy = mediaref.PolicyUpload
	}
	return providerkit.StageWith(ctx, policy, a.deps.Uploader)
}

func (a *Adapter) shape(ctx context.Context) providerkit.Shape {
	return providerkit.ShapeOf(ctx, a.deps.Inspector)
}

func statusPath(modelID, requestID string) string {
	return modelID + "/requests/" + requestID + "/status"
}

func resultPath(modelID, requestID string) string {
	return modelID + "/requests/" + requestID
}

var (
	_ media.Adapter      = (*Adapter)(nil)
	_ media.ImageResumer = (*Adapter)(nil)
)
