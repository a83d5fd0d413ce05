// Package ppio adapts the PPIO model API to the media capability contract.
package ppio

import (
	"context"
	"fmt"
	"net/url"
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
	// BaseURL is the PPIO API root.
	BaseURL = "https://api.ppinfra.com/v3"

	statusEndpoint  = "/async/task-result"
	pollInterval    = 3 * time.Second
	maxPollAttempts = 120
)

// Task states reported by the async result endpoint.
const (
	stateQueued     = "TASK_STATUS_QUEUED"
	stateProcessing = "TASK_STATUS_PROCESSING"
	stateSucceeded  = "TASK_STATUS_SUCCEEDED"
	stateSucceed    = "TASK_STATUS_SUCCEED"
	stateFailed     = "TASK_STATUS_FAILED"
)

var errorMessage = normalize.WithDetails(normalize.Default)

var estimates = poll.NewEstimateTable(40)

// Adapter talks to PPIO. It is safe for concurrent use.
type Adapter struct {
	client   *transport.Client
	images   *route.Router[imageInput]
	videos   *route.Router[videoInput]
	audio    *route.Router[audioInput]
	retryer  *retry.Retryer
	interval poll.IntervalPolicy
	attempts int
	deps     providerkit.Deps
	logger   *zap.Logger
}

// New creates a PPIO adapter.
func New(cfg media.ClientConfig, deps providerkit.Deps) (*Adapter, error) {
	if err := providerkit.RequireKey(media.ProviderPPIO, cfg); err != nil {
		return nil, err
	}
	deps = deps.WithDefaults()
	return &Adapter{
		client:   providerkit.NewClient(media.ProviderPPIO, cfg, BaseURL, transport.Bearer, deps),
		images:   imageRoutes(),
		videos:   videoRoutes(),
		audio:    audioRoutes(),
		retryer:  providerkit.PollRetryer(cfg, deps.Logger),
		interval: poll.Fixed(pollInterval),
		attempts: maxPollAttempts,
		deps:     deps,
		logger:   deps.Logger.With(zap.String("provider", string(media.ProviderPPIO))),
	}, nil
}

func (a *Adapter) Provider() media.ProviderID { return media.ProviderPPIO }

// GenerateImage runs a synchronous image request.
func (a *Adapter) GenerateImage(ctx context.Context, params *media.ImageParams) (*media.ImageResult, error) {
	rt, err := a.images.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(imageInput{Params: params, Stage: a.stager(ctx), Shape: a.shape(ctx)})
	if err != nil {
		return nil, normalize.Error(media.ProviderPPIO, err, errorMessage)
	}

	body, err := a.client.PostJSON(ctx, req.Endpoint, req.Payload)
	if err != nil {
		return nil, normalize.Error(media.ProviderPPIO, fmt.Errorf("run %s: %w", req.Endpoint, err), errorMessage)
	}
	urls, ok := imageOutput(body)
	if !ok {
		return nil, parse.NoOutput(media.ProviderPPIO, body)
	}
	return &media.ImageResult{URL: parse.Join(urls), Base64Data: parse.Base64Of(urls), Status: media.ResultCompleted, ModelID: req.CanonicalModelID}, nil
}

// GenerateVideo submits an async video task. Without a progress callback it returns the task id at once.
func (a *Adapter) GenerateVideo(ctx context.Context, params *media.VideoParams) (*media.VideoResult, error) {
	rt, err := a.videos.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(videoInput{Params: params, Stage: a.stager(ctx), Shape: a.shape(ctx)})
	if err != nil {
		return nil, normalize.Error(media.ProviderPPIO, err, errorMessage)
	}
	a.logger.Debug("Built video request", zap.String("route", rt.Name), zap.String("endpoint", req.Endpoint))

	body, err := a.client.PostJSON(ctx, req.Endpoint, req.Payload)
	if err != nil {
		return nil, normalize.Error(media.ProviderPPIO, fmt.Errorf("submit %s: %w", req.Endpoint, err), errorMessage)
	}
	taskID := gjson.GetBytes(body, "task_id").String()
	if taskID == "" {
		return nil, &media.UnknownError{Provider: media.ProviderPPIO, Raw: string(body), Err: media.ErrInconsistentState}
	}
	a.logger.Info("Task submitted", zap.String("endpoint", req.Endpoint), zap.String("task_id", taskID))

	base := media.VideoResult{TaskID: taskID, ModelID: req.CanonicalModelID}
	if params.OnProgress == nil {
		base.Status = media.ResultQueued
		return &base, nil
	}

	opts := a.deps.PollOptions(media.ProviderPPIO, a.retryer, params.OnProgress)
	opts.MaxAttempts = a.attempts
	opts.ExpectedAttempts = estimates.For(req.CanonicalModelID)
	opts.Interval = a.interval
	out, err := poll.Run[string](ctx, opts, func(ctx context.Context) (poll.Observation[string], error) {
		return a.probe(ctx, taskID)
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

// GenerateAudio runs a synchronous speech request and saves the clip locally when possible.
func (a *Adapter) GenerateAudio(ctx context.Context, params *media.AudioParams) (*media.AudioResult, error) {
	rt, err := a.audio.Resolve(params.Model)
	if err != nil {
		return nil, err
	}
	req, err := rt.Build(audioInput{Params: params, Stage: a.stager(ctx), Shape: a.shape(ctx)})
	if err != nil {
		return nil, normalize.Error(media.ProviderPPIO, err, errorMessage)
	}

	body, err := a.client.PostJSON(ctx, req.Endpoint, req.Payload)
	if err != nil {
		return nil, normalize.Error(media.ProviderPPIO, fmt.Errorf("run %s: %w", req.Endpoint, err), errorMessage)
	}
	u, ok := audioOutput(body)
	if !ok {
		return nil, parse.NoOutput(media.ProviderPPIO, body)
	}
	saved := parse.PersistAll(ctx, a.deps.Persister, []string{u}, media.KindAudio, a.logger)
	return &media.AudioResult{URL: saved.URL, Base64Data: parse.Base64Of([]string{u}), FilePath: saved.FilePath, Status: media.ResultCompleted}, nil
}

// CheckStatus reads one task. Completed tasks carry the remote result.
func (a *Adapter) CheckStatus(ctx context.Context, taskID string) (*media.TaskStatus, error) {
	if taskID == "" {
		return nil, media.NewValidationError(media.ErrInvalidInput, "ppio task id is required")
	}
	body, err := a.fetch(ctx, taskID)
	if err != nil {
		return nil, err
	}

	task := gjson.GetBytes(body, "task")
	status := &media.TaskStatus{TaskID: providerkit.Or(task.Get("task_id").String(), taskID)}
	if pct := task.Get("progress_percent"); pct.Exists() {
		status.Progress = providerkit.Progress(int(pct.Int()))
	}
	switch task.Get("status").String() {
	case stateSucceeded, stateSucceed:
		status.State = media.TaskSucceeded
		status.Progress = providerkit.Progress(100)
		switch {
		case gjson.GetBytes(body, "images.#").Int() > 0:
			urls, _ := imageOutput(body)
			status.Image = &media.ImageResult{URL: parse.Join(urls), Base64Data: parse.Base64Of(urls), Status: media.ResultCompleted}
		case gjson.GetBytes(body, "videos.#").Int() > 0:
			u, _ := videoOutput(body)
			status.Video = &media.VideoResult{URL: u, Status: media.ResultCompleted, TaskID: taskID}
		case gjson.GetBytes(body, "audios.#").Int() > 0:
			u, _ := audioOutput(body)
			status.Audio = &media.AudioResult{URL: u, Base64Data: parse.Base64Of([]string{u}), Status: media.ResultCompleted, TaskID: taskID}
		}
	case stateFailed:
		status.State = media.TaskFailed
		status.Message = task.Get("reason").String()
	case stateQueued:
		status.State = media.TaskQueued
	default:
		status.State = media.TaskProcessing
	}
	return status, nil
}

func (a *Adapter) fetch(ctx context.Context, taskID string) ([]byte, error) {
	body, err := a.client.GetJSON(ctx, statusEndpoint, url.Values{"task_id": {taskID}})
	if err != nil {
		return nil, normalize.Error(media.ProviderPPIO, err, errorMessage)
	}
	return body, nil
}

func (a *Adapter) probe(ctx context.Context, taskID string) (poll.Observation[string], error) {
	var obs poll.Observation[string]
	body, err := a.fetch(ctx, taskID)
	if err != nil {
		return obs, err
	}
	task := gjson.GetBytes(body, "task")
	switch task.Get("status").String() {
	case stateQueued:
		obs.State = poll.StateQueued
		obs.Message = "Queued"
	case stateSucceeded, stateSucceed:
		u, ok := videoOutput(body)
		if !ok {
			return obs, parse.NoOutput(media.ProviderPPIO, body)
		}
		obs.State = poll.StateCompleted
		obs.Result = &u
		obs.Message = "Completed"
	case stateFailed:
		obs.State = poll.StateFailed
		obs.Reason = task.Get("reason").String()
	default:
		obs.State = poll.StateInProgress
		obs.Message = "Generating"
	}
	return obs, nil
}

func imageOutput(body []byte) ([]string, bool) {
	urls := parse.FirstMedia(body, media.KindImage, "images")
	return urls, len(urls) > 0
}

func videoOutput(body []byte) (string, bool) {
	u := parse.FirstString(body, "videos.0.video_url")
	return u, u != ""
}

func audioOutput(body []byte) (string, bool) {
	urls := parse.FirstMedia(body, media.KindAudio, "audio", "audios.0.audio_url")
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

// stager forwards remote URLs and wraps inline bytes as data URIs. Routes needing raw base64 strip the prefix.
func (a *Adapter) stager(ctx context.Context) providerkit.Stager {
	return providerkit.StageWith(ctx, mediaref.PolicyDataURI, nil)
}

func (a *Adapter) shape(ctx context.Context) providerkit.Shape {
	return providerkit.ShapeOf(ctx, a.deps.Inspector)
}

var _ media.Adapter = (*Adapter)(nil)
