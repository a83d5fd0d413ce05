package media

// ProviderID identifies a generative-media vendor.
type ProviderID string

const (
	ProviderFal        ProviderID = "fal"
	ProviderPPIO       ProviderID = "ppio"
	ProviderKIE        ProviderID = "kie"
	ProviderModelScope ProviderID = "modelscope"
)

// Kind is the media kind produced by a generation call.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ResultStatus tags how a generation call ended.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	// ResultTimeout means polling gave up while the remote job may still be running.
	ResultTimeout ResultStatus = "timeout"
	// ResultQueued means the job was submitted and the caller polls it externally.
	ResultQueued ResultStatus = "queued"
)

// URLDelimiter joins several output URLs into one URL field.
const URLDelimiter = "|||"

// ImageParams is the provider-agnostic image generation input.
type ImageParams struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`

	// Images holds references as URLs, data URIs or raw base64.
	Images []string `json:"images,omitempty"`

	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	NumImages      int    `json:"num_images,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`

	// SyncMode asks providers with a synchronous endpoint to use it.
	SyncMode bool `json:"sync_mode,omitempty"`

	Options    ModelOptions `json:"-"`
	OnProgress ProgressFunc `json:"-"`
}

// VideoParams is the provider-agnostic video generation input.
type VideoParams struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`

	Images []string `json:"images,omitempty"`
	Videos []string `json:"videos,omitempty"`

	// Mode selects a model-specific sub-route such as "start-end-frame".
	Mode           string `json:"mode,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	Resolution     string `json:"resolution,omitempty"`
	Size           string `json:"size,omitempty"`
	Duration       int    `json:"duration,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Seed           *int64 `json:"seed,omitempty"`

	Options    ModelOptions `json:"-"`
	OnProgress ProgressFunc `json:"-"`
}

// AudioParams is the provider-agnostic audio generation input.
type AudioParams struct {
	Model string `json:"model"`
	Text  string `json:"text"`

	OutputFormat string `json:"output_format,omitempty"`

	Options    ModelOptions `json:"-"`
	OnProgress ProgressFunc `json:"-"`
}

// ImageResult is the canonical image output.
type ImageResult struct {
	URL        string       `json:"url"`
	Base64Data string       `json:"base64_data,omitempty"`
	FilePath   string       `json:"file_path,omitempty"`
	Status     ResultStatus `json:"status,omitempty"`
	TaskID     string       `json:"task_id,omitempty"`
	RequestID  string       `json:"request_id,omitempty"`
	ModelID    string       `json:"model_id,omitempty"`
	Message    string       `json:"message,omitempty"`
}

// URLs splits URL on URLDelimiter.
func (r *ImageResult) URLs() []string {
	return SplitURLs(r.URL)
}

// VideoResult is the canonical video output.
type VideoResult struct {
	URL       string       `json:"url"`
	FilePath  string       `json:"file_path,omitempty"`
	Status    ResultStatus `json:"status,omitempty"`
	TaskID    string       `json:"task_id,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	ModelID   string       `json:"model_id,omitempty"`
}

// AudioResult is the canonical audio output.
type AudioResult struct {
	URL        string       `json:"url"`
	Base64Data string       `json:"base64_data,omitempty"`
	FilePath   string       `json:"file_path,omitempty"`
	Status     ResultStatus `json:"status,omitempty"`
	TaskID     string       `json:"task_id,omitempty"`
}

// Phase is the polling phase reported to progress callbacks.
type Phase string

const (
	PhaseQueued     Phase = "queued"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// ProgressStatus is pushed to the caller while a job is polled.
type ProgressStatus struct {
	Phase         Phase  `json:"phase"`
	QueuePosition *int   `json:"queue_position,omitempty"`
	Progress      int    `json:"progress"`
	Message       string `json:"message,omitempty"`
}

// ProgressFunc receives progress updates. It is called from the polling goroutine.
type ProgressFunc func(ProgressStatus)

// TaskState is the closed set of provider task states.
type TaskState string

const (
	TaskQueued     TaskState = "queued"
	TaskProcessing TaskState = "processing"
	TaskSucceeded  TaskState = "succeeded"
	TaskFailed     TaskState = "failed"
)

// IsTerminal reports whether the state is final.
func (s TaskState) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// TaskStatus is the provider-facing status record returned by CheckStatus.
type TaskStatus struct {
	TaskID   string    `json:"task_id"`
	State    TaskState `json:"state"`
	Progress *int      `json:"progress,omitempty"`
	Message  string    `json:"message,omitempty"`

	Image *ImageResult `json:"image,omitempty"`
	Video *VideoResult `json:"video,omitempty"`
	Audio *AudioResult `json:"audio,omitempty"`
}
