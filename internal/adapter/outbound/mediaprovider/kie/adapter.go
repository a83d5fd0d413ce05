// Package kie adapts the KIE jobs API to the media capability contract.
package kie

import (
	"context"
	"fmt"
	"net/url"
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
	"github.com/uniedit/mediagen/internal/module/gateway/upload"
)

const (
	// BaseURL is the KIE API root.
	BaseURL = "https://api.kie.ai"

	createTaskPath  = "/api/v1/jobs/createTask"
	recordInfoPath  = "/api/v1/jobs/recordInfo"
	pollInterval    = 3 * time.Second
	maxPollAttempts = 200
	codeOK          = 200
)

var errorMessage = normalize.Fields("msg", "message", "error")

var estimates = poll.NewEstimateTable(40,
	poll.Estimate{Match: "nano-banana-pro", Attempts: 30},
)

// Adapter talks to KIE. It is safe for concurrent use.
type Adapter struct {
	client   *transport.Client
	uploader media.Uploader
	images   *route.Router[imageInput]
	videos   *route.Router[videoInput]
	retryer  *retry.Retryer
	interval poll.IntervalPolicy
	attempts int
	deps     providerkit.Deps
	logger   *zap.Logger
}

// New creates a KIE adapter. Without a shared uploader, references go to the KIE file host with the same key.
func New(cfg media.ClientConfig, deps providerkit.Deps) (*Adapter, error) {
	if err := providerkit.RequireKey(media.ProviderKIE, cfg); err != nil {
		return nil, err
	}
	deps = deps.WithDefaults()

	uploader := deps.Uploader
	if uploader == nil {
		uploadCfg := media.ClientConfig{APIKey: cfg.APIKey, BreakerFailures: cfg.BreakerFailures, BreakerTimeout: cfg.BreakerTimeout}
		uploader = upload.NewKIEStream(providerkit.NewClient(media.ProviderKIE, uploadCfg, upload.KIEUploadBaseURL, transport.Bearer, deps), deps.Logger)
	}
	return &Adapter{
		client:   providerkit.NewClient(media.ProviderKIE, cfg, BaseURL, transport.Bearer, deps),
		uploader: uploader,
		images:   imageRoutes(),
		videos:   videoRoutes(),
		retryer:  providerkit.PollRetryer(cfg, deps.Logger),
		interval: poll.Fixed(pollInterval),
		attempts: maxPollAttempts,
		deps:     deps,
		logger:   deps.Logger.With(zap.String("provider", string(media.ProviderKIE))),
	}, nil
}

func (a *Adapter) Provider() media.ProviderID { return media.ProviderKIE }

// GenerateImage creates an image task. Without a progress callback it returns the task id at once.
func (a *Adapter) GenerateImage(ctx context.Context, params *media.ImageParams) (*media.ImageResult, error) {
	rt, err := a.images.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(imageInput{Params: params, Stage: a.stager(ctx), Shape: a.shape(ctx)})
	if err != nil {
		return nil, normalize.Error(media.ProviderKIE, err, errorMessage)
	}
	taskID, err := a.createTask(ctx, req)
	if err != nil {
		return nil, err
	}
	if params.OnProgress == nil {
		return &media.ImageResult{Status: media.ResultQueued, TaskID: taskID, RequestID: taskID, ModelID: req.CanonicalModelID}, nil
	}
	return a.pollImage(ctx, taskID, req.CanonicalModelID, params.OnProgress)
}

// ResumeImage continues polling an image task that timed out.
func (a *Adapter) ResumeImage(ctx context.Context, requestID, modelID string, onProgress media.ProgressFunc) (*media.ImageResult, error) {
	return a.pollImage(ctx, requestID, modelID, onProgress)
}

// GenerateVideo creates a video task. Without a progress callback it returns the task id at once.
func (a *Adapter) GenerateVideo(ctx context.Context, params *media.VideoParams) (*media.VideoResult, error) {
	rt, err := a.videos.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(videoInput{Params: params, Stage: a.stager(ctx), Shape: a.shape(ctx)})
	if err != nil {
		return nil, normalize.Error(media.ProviderKIE, err, errorMessage)
	}
	taskID, err := a.createTask(ctx, req)
	if err != nil {
		return nil, err
	}

	base := media.VideoResult{TaskID: taskID, RequestID: taskID, ModelID: req.CanonicalModelID}
	if params.OnProgress == nil {
		base.Status = media.ResultQueued
		return &base, nil
	}
	out, err := poll.Run[[]string](ctx, a.pollOptions(req.CanonicalModelID, params.OnProgress), func(ctx context.Context) (poll.Observation[[]string], error) {
		return a.probe(ctx, taskID)
	})
	if err != nil {
		return nil, err
	}
	if out.State == poll.OutcomeTimedOut {
		base.Status = media.ResultTimeout
		return &base, nil
	}
	saved := parse.PersistAll(ctx, a.deps.Persister, (*out.Result)[:1], media.KindVideo, a.logger)
	base.URL = saved.URL
	base.FilePath = saved.FilePath
	base.Status = media.ResultCompleted
	return &base, nil
}

func (a *Adapter) GenerateAudio(context.Context, *media.AudioParams) (*media.AudioResult, error) {
	return nil, providerkit.Unsupported(media.ProviderKIE, media.KindAudio)
}

// CheckStatus reads one task. Completed tasks carry the remote result.
func (a *Adapter) CheckStatus(ctx context.Context, taskID string) (*media.TaskStatus, error) {
	if taskID == "" {
		return nil, media.NewValidationError(media.ErrInvalidInput, "kie task id is required")
	}
	data, err := a.recordInfo(ctx, taskID)
	if err != nil {
		return nil, err
	}

	status := &media.TaskStatus{TaskID: taskID}
	switch data.Get("state").String() {
	case "waiting", "queuing":
		status.State = media.TaskQueued
	case "success":
		urls := resultURLs(data)
		if len(urls) == 0 {
			return nil, parse.NoOutput(media.ProviderKIE, []byte(data.Raw))
		}
		status.State = media.TaskSucceeded
		status.Progress = providerkit.Progress(100)
		model := data.Get("model").String()
		if isVideoModel(model) {
			status.Video = &media.VideoResult{URL: urls[0], Status: media.ResultCompleted, TaskID: taskID, ModelID: model}
		} else {
			status.Image = &media.ImageResult{URL: parse.Join(urls), Status: media.ResultCompleted, TaskID: taskID, RequestID: taskID, ModelID: model}
		}
	case "fail":
		status.State = media.TaskFailed
		status.Message = data.Get("failMsg").String()
	default:
		status.State = media.TaskProcessing
	}
	return status, nil
}

func (a *Adapter) createTask(ctx context.Context, req route.Request) (string, error) {
	body, err := a.client.PostJSON(ctx, req.Endpoint, req.Payload)
	if err != nil {
		return "", normalize.Error(media.ProviderKIE, fmt.Errorf("create task %s: %w", req.CanonicalModelID, err), errorMessage)
	}
	if code := int(gjson.GetBytes(body, "code").Int()); code != codeOK {
		return "", normalize.Envelope(media.ProviderKIE, code, gjson.GetBytes(body, "msg").String(), "create task failed")
	}
	taskID := gjson.GetBytes(body, "data.taskId").String()
	if taskID == "" {
		return "", &media.UnknownError{Provider: media.ProviderKIE, Raw: string(body), Err: media.ErrInconsistentState}
	}
	a.logger.Info("Task created", zap.String("model", req.CanonicalModelID), zap.String("task_id", taskID))
	return taskID, nil
}

func (a *Adapter) recordInfo(ctx context.Context, taskID string) (gjson.Result, error) {
	body, err := a.client.GetJSON(ctx, recordInfoPath, url.Values{"taskId": {taskID}})
	if err != nil {
		return gjson.Result{}, normalize.Error(media.ProviderKIE, err, errorMessage)
	}
	if code := int(gjson.GetBytes(body, "code").Int()); code != codeOK {
		return gjson.Result{}, normalize.Envelope(media.ProviderKIE, code, gjson.GetBytes(body, "msg").String(), "query task failed")
	}
	return gjson.GetBytes(body, "data"), nil
}

func (a *Adapter) probe(ctx context.Context, taskID string) (poll.Observation[[]string], error) {
	var obs poll.Observation[[]string]
	data, err := a.recordInfo(ctx, taskID)
	if err != nil {
		return obs, err
	}
	switch data.Get("state").String() {
	case "waiting", "queuing":
		obs.State = poll.StateQueued
		obs.Message = "Queued"
	case "success":
		urls := resultURLs(data)
		if len(urls) == 0 {
			return obs, parse.NoOutput(media.ProviderKIE, []byte(data.Raw))
		}
		obs.State = poll.StateCompleted
		obs.Result = &urls
		obs.Message = "Completed"
	case "fail":
		obs.State = poll.StateFailed
		obs.Reason = data.Get("failMsg").String()
	default:
		obs.State = poll.StateInProgress
		obs.Message = "Generating"
	}
	return obs, nil
}

func (a *Adapter) pollImage(ctx context.Context, taskID, modelID string, onProgress media.ProgressFunc) (*media.ImageResult, error) {
	out, err := poll.Run[[]string](ctx, a.pollOptions(modelID, onProgress), func(ctx context.Context) (poll.Observation[[]string], error) {
		return a.probe(ctx, taskID)
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
	saved := parse.PersistAll(ctx, a.deps.Persister, *out.Result, media.KindImage, a.logger)
	res.URL = saved.URL
	res.FilePath = saved.FilePath
	res.Status = media.ResultCompleted
	return res, nil
}

func (a *Adapter) pollOptions(modelID string, onProgress media.ProgressFunc) poll.Options {
	opts := a.deps.PollOptions(media.ProviderKIE, a.retryer, onProgress)
	opts.MaxAttempts = a.attempts
	opts.ExpectedAttempts = estimates.For(modelID)
	opts.Interval = a.interval
	return opts
}

// resultURLs reads resultUrls from the JSON string in resultJson.
func resultURLs(data gjson.Result) []string {
	embedded := parse.Embedded([]byte(data.Raw), "resultJson")
	if embedded == nil {
		return nil
	}
	return parse.FirstURLs(embedded, "resultUrls")
}

func isVideoModel(model string) bool {
	return strings.Contains(model, "video") || strings.Contains(model, "motion-control")
}

func (a *Adapter) stager(ctx context.Context) providerkit.Stager {
	return providerkit.StageWith(ctx, mediaref.PolicyUpload, a.uploader)
}

func (a *Adapter) shape(ctx context.Context) providerkit.Shape {
	return providerkit.ShapeOf(ctx, a.deps.Inspector)
}

var (
	_ media.Adapter      = (*Adapter)(nil)
	_ media.ImageResumer = (*Adapter)(nil)
)
