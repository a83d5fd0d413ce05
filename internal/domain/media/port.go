package media

import (
	"context"
	"time"
)

// Adapter is the capability contract every provider implements.
type Adapter interface {
	Provider() ProviderID

	GenerateImage(ctx context.Context, params *ImageParams) (*ImageResult, error)
	GenerateVideo(ctx context.Context, params *VideoParams) (*VideoResult, error)
	GenerateAudio(ctx context.Context, params *AudioParams) (*AudioResult, error)

	// CheckStatus probes a task without side effects.
	CheckStatus(ctx context.Context, taskID string) (*TaskStatus, error)
}

// ImageResumer is implemented by adapters whose image polls can time out and be continued.
type ImageResumer interface {
	ResumeImage(ctx context.Context, requestID, modelID string, onProgress ProgressFunc) (*ImageResult, error)
}

// AdapterFactory resolves a provider id and credentials to an adapter.
type AdapterFactory interface {
	Create(id ProviderID, cfg ClientConfig) (Adapter, error)
	Providers() []ProviderID
}

// ClientConfig is the immutable per-adapter client configuration.
type ClientConfig struct {
	APIKey  string
	BaseURL string

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int

	// BreakerFailures trips the circuit after this many consecutive failures; zero disables it.
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	// TransientRetries is the per-probe retry budget while polling.
	TransientRetries int
}

// Reference is one reference media item: a URL, a data URI or raw base64.
type Reference = string

// Uploader stages inline media and returns a remote URL.
type Uploader interface {
	Name() string
	Available() bool
	Upload(ctx context.Context, ref Reference) (string, error)
}

// Persisted is the outcome of saving remote media locally.
type Persisted struct {
	LocalPath  string
	DisplayURL string
}

// Persister saves remote media locally. Callers treat failures as non-fatal.
// remoteURL may also be a data URI.
type Persister interface {
	Persist(ctx context.Context, remoteURL string, kind Kind) (Persisted, error)
}

// Discarder is implemented by persisters that can remove what they saved.
type Discarder interface {
	Discard(ctx context.Context, saved Persisted) error
}

// PendingTask is the state needed to resume a poll after a restart.
type PendingTask struct {
	Provider  ProviderID `json:"provider"`
	Kind      Kind       `json:"kind"`
	TaskID    string     `json:"task_id,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	ModelID   string     `json:"model_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Key identifies the task across providers.
func (t *PendingTask) Key() string {
	if t.TaskID != "" {
		return string(t.Provider) + ":" + t.TaskID
	}
	return string(t.Provider) + ":" + t.RequestID
}

// TaskStore stashes resumable tasks.
type TaskStore interface {
	Save(ctx context.Context, task *PendingTask) error
	Get(ctx context.Context, key string) (*PendingTask, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*PendingTask, error)
}
