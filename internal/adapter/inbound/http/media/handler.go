// Package mediahttp exposes the media gateway over HTTP.
package mediahttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
)

// Gateway is the subset of the media domain the handler calls.
type Gateway interface {
	Providers() []media.ProviderID
	GenerateImage(ctx context.Context, provider media.ProviderID, params *media.ImageParams) (*media.ImageResult, error)
	GenerateVideo(ctx context.Context, provider media.ProviderID, params *media.VideoParams) (*media.VideoResult, error)
	GenerateAudio(ctx context.Context, provider media.ProviderID, params *media.AudioParams) (*media.AudioResult, error)
	CheckStatus(ctx context.Context, provider media.ProviderID, taskID string) (*media.TaskStatus, error)
	ResumeImage(ctx context.Context, provider media.ProviderID, requestID, modelID string, onProgress media.ProgressFunc) (*media.ImageResult, error)
	PendingTasks(ctx context.Context) ([]*media.PendingTask, error)
}

// Handler handles media HTTP requests.
type Handler struct {
	gateway Gateway
	logger  *zap.Logger
}

// NewHandler creates a new media handler.
func NewHandler(gateway Gateway, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gateway: gateway, logger: logger}
}

// RegisterRoutes registers media routes under r.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	mediaGroup := r.Group("/media")
	{
		mediaGroup.GET("/providers", h.ListProviders)
		mediaGroup.GET("/tasks", h.ListPendingTasks)

		provider := mediaGroup.Group("/:provider")
		provider.POST("/images", h.GenerateImage)
		provider.POST("/images/resume", h.ResumeImage)
		provider.POST("/videos", h.GenerateVideo)
		provider.POST("/audio", h.GenerateAudio)
		provider.GET("/tasks/:task_id", h.GetTask)
	}
}

type imageRequest struct {
	media.ImageParams
	OptionsType string          `json:"options_type"`
	Options     json.RawMessage `json:"options"`
}

type videoRequest struct {
	media.VideoParams
	OptionsType string          `json:"options_type"`
	Options     json.RawMessage `json:"options"`
}

type audioRequest struct {
	media.AudioParams
	OptionsType string          `json:"options_type"`
	Options     json.RawMessage `json:"options"`
}

type resumeRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	ModelID   string `json:"model_id" binding:"required"`
}

type providersResponse struct {
	Providers []media.ProviderID `json:"providers"`
}

type pendingTasksResponse struct {
	Tasks []*media.PendingTask `json:"tasks"`
}

// GenerateImage handles image generation requests.
//
//	@Summary		Generate image
//	@Description	Runs a text-to-image or image-to-image job on one provider. Queued jobs answer 202.
//	@Tags			Media
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string			true	"Provider id"	Enums(fal, kie, ppio, modelscope)
//	@Param			stream		query		bool			false	"Stream progress as server-sent events"
//	@Param			request		body		imageRequest	true	"Image request"
//	@Success		200			{object}	media.ImageResult
//	@Success		202			{object}	media.ImageResult	"Queued, resume with request_id"
//	@Failure		400			{object}	errorResponse	"Invalid request"
//	@Failure		422			{object}	errorResponse	"Unsupported model or capability"
//	@Failure		502			{object}	errorResponse	"Provider error"
//	@Failure		503			{object}	errorResponse	"Provider not configured"
//	@Failure		504			{object}	errorResponse	"Timed out"
//	@Router			/media/{provider}/images [post]
func (h *Handler) GenerateImage(c *gin.Context) {
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	opts, err := media.DecodeOptions(req.OptionsType, req.Options)
	if err != nil {
		handleError(c, err)
		return
	}
	params := req.ImageParams
	params.Options = opts

	h.run(c, func(ctx context.Context, onProgress media.ProgressFunc) (any, media.ResultStatus, error) {
		params.OnProgress = onProgress
		res, err := h.gateway.GenerateImage(ctx, provider(c), &params)
		if err != nil {
			return nil, "", err
		}
		return res, res.Status, nil
	})
}

// ResumeImage continues a timed-out image job.
//
//	@Summary		Resume image job
//	@Tags			Media
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string			true	"Provider id"	Enums(fal, kie, ppio, modelscope)
//	@Param			stream		query		bool			false	"Stream progress as server-sent events"
//	@Param			request		body		resumeRequest	true	"Stashed job"
//	@Success		200			{object}	media.ImageResult
//	@Success		202			{object}	media.ImageResult	"Still queued"
//	@Failure		400			{object}	errorResponse	"Invalid request"
//	@Failure		422			{object}	errorResponse	"Unsupported model or capability"
//	@Failure		502			{object}	errorResponse	"Provider error"
//	@Failure		503			{object}	errorResponse	"Provider not configured"
//	@Failure		504			{object}	errorResponse	"Timed out"
//	@Router			/media/{provider}/images/resume [post]
func (h *Handler) ResumeImage(c *gin.Context) {
	var req resumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.run(c, func(ctx context.Context, onProgress media.ProgressFunc) (any, media.ResultStatus, error) {
		res, err := h.gateway.ResumeImage(ctx, provider(c), req.RequestID, req.ModelID, onProgress)
		if err != nil {
			return nil, "", err
		}
		return res, res.Status, nil
	})
}

// GenerateVideo handles video generation requests.
//
//	@Summary		Generate video
//	@Tags			Media
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string			true	"Provider id"	Enums(fal, kie, ppio, modelscope)
//	@Param			stream		query		bool			false	"Stream progress as server-sent events"
//	@Param			request		body		videoRequest	true	"Video request"
//	@Success		200			{object}	media.VideoResult
//	@Success		202			{object}	media.VideoResult	"Queued, poll with task_id"
//	@Failure		400			{object}	errorResponse	"Invalid request"
//	@Failure		422			{object}	errorResponse	"Unsupported model or capability"
//	@Failure		502			{object}	errorResponse	"Provider error"
//	@Failure		503			{object}	errorResponse	"Provider not configured"
//	@Failure		504			{object}	errorResponse	"Timed out"
//	@Router			/media/{provider}/videos [post]
func (h *Handler) GenerateVideo(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	opts, err := media.DecodeOptions(req.OptionsType, req.Options)
	if err != nil {
		handleError(c, err)
		return
	}
	params := req.VideoParams
	params.Options = opts

	h.run(c, func(ctx context.Context, onProgress media.ProgressFunc) (any, media.ResultStatus, error) {
		params.OnProgress = onProgress
		res, err := h.gateway.GenerateVideo(ctx, provider(c), &params)
		if err != nil {
			return nil, "", err
		}
		return res, res.Status, nil
	})
}

// GenerateAudio handles speech synthesis requests.
//
//	@Summary		Synthesize speech
//	@Tags			Media
//	@Accept			json
//	@Produce		json
//	@Param			provider	path		string			true	"Provider id"	Enums(fal, kie, ppio, modelscope)
//	@Param			stream		query		bool			false	"Stream progress as server-sent events"
//	@Param			request		body		audioRequest	true	"Speech request"
//	@Success		200			{object}	media.AudioResult
//	@Failure		400			{object}	errorResponse	"Invalid request"
//	@Failure		422			{object}	errorResponse	"Unsupported model or capability"
//	@Failure		502			{object}	errorResponse	"Provider error"
//	@Failure		503			{object}	errorResponse	"Provider not configured"
//	@Failure		504			{object}	errorResponse	"Timed out"
//	@Router			/media/{provider}/audio [post]
func (h *Handler) GenerateAudio(c *gin.Context) {
	var req audioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	opts, err := media.DecodeOptions(req.OptionsType, req.Options)
	if err != nil {
		handleError(c, err)
		return
	}
	params := req.AudioParams
	params.Options = opts

	h.run(c, func(ctx context.Context, onProgress media.ProgressFunc) (any, media.ResultStatus, error) {
		params.OnProgress = onProgress
		res, err := h.gateway.GenerateAudio(ctx, provider(c), &params)
		if err != nil {
			return nil, "", err
		}
		return res, res.Status, nil
	})
}

// GetTask reports the state of one provider task.
//
//	@Summary		Get task status
//	@Tags			Media
//	@Produce		json
//	@Param			provider	path		string			true	"Provider id"	Enums(fal, kie, ppio, modelscope)
//	@Param			task_id		path		string			true	"Provider task id"
//	@Success		200			{object}	media.TaskStatus
//	@Failure		404			{object}	errorResponse	"Unknown provider"
//	@Failure		502			{object}	errorResponse	"Provider error"
//	@Router			/media/{provider}/tasks/{task_id} [get]
func (h *Handler) GetTask(c *gin.Context) {
	status, err := h.gateway.CheckStatus(c.Request.Context(), provider(c), c.Param("task_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListProviders lists the configured providers.
//
//	@Summary	List providers
//	@Tags		Media
//	@Produce	json
//	@Success	200	{object}	providersResponse
//	@Router		/media/providers [get]
func (h *Handler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, providersResponse{Providers: h.gateway.Providers()})
}

// ListPendingTasks lists stashed jobs awaiting resume or polling.
//
//	@Summary	List pending tasks
//	@Tags		Media
//	@Produce	json
//	@Success	200	{object}	pendingTasksResponse
//	@Failure	500	{object}	errorResponse
//	@Router		/media/tasks [get]
func (h *Handler) ListPendingTasks(c *gin.Context) {
	tasks, err := h.gateway.PendingTasks(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*media.PendingTask{}
	}
	c.JSON(http.StatusOK, pendingTasksResponse{Tasks: tasks})
}

type call func(ctx context.Context, onProgress media.ProgressFunc) (any, media.ResultStatus, error)

// run answers with one JSON document, or with a server-sent event stream when ?stream=true.
// Queued jobs answer 202 in JSON mode.
func (h *Handler) run(c *gin.Context, fn call) {
	ctx := c.Request.Context()
	if stream, _ := strconv.ParseBool(c.Query("stream")); !stream {
		res, status, err := fn(ctx, nil)
		if err != nil {
			handleError(c, err)
			return
		}
		code := http.StatusOK
		if status == media.ResultQueued {
			code = http.StatusAccepted
		}
		c.JSON(code, res)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	res, _, err := fn(ctx, func(p media.ProgressStatus) {
		c.SSEvent("progress", p)
		c.Writer.Flush()
	})
	if err != nil {
		status, body := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("Streamed generation failed", zap.Error(err))
		}
		c.SSEvent("error", body)
		c.Writer.Flush()
		return
	}
	c.SSEvent("result", res)
	c.Writer.Flush()
}

func provider(c *gin.Context) media.ProviderID {
	return media.ProviderID(c.Param("provider"))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{Code: "invalid_request", Message: err.Error()}})
}
