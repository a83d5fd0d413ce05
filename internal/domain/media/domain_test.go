package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Mocks ---

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Provider() ProviderID { return ProviderFal }

func (m *MockAdapter) GenerateImage(ctx context.Context, params *ImageParams) (*ImageResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ImageResult), args.Error(1)
}

func (m *MockAdapter) GenerateVideo(ctx context.Context, params *VideoParams) (*VideoResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*VideoResult), args.Error(1)
}

func (m *MockAdapter) GenerateAudio(ctx context.Context, params *AudioParams) (*AudioResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AudioResult), args.Error(1)
}

func (m *MockAdapter) CheckStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TaskStatus), args.Error(1)
}

type MockResumableAdapter struct {
	MockAdapter
}

func (m *MockResumableAdapter) ResumeImage(ctx context.Context, requestID, modelID string, onProgress ProgressFunc) (*ImageResult, error) {
	args := m.Called(ctx, requestID, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ImageResult), args.Error(1)
}

type MockFactory struct {
	mock.Mock
}

func (m *MockFactory) Create(id ProviderID, cfg ClientConfig) (Adapter, error) {
	args := m.Called(id, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Adapter), args.Error(1)
}

func (m *MockFactory) Providers() []ProviderID {
	args := m.Called()
	return args.Get(0).([]ProviderID)
}

type memoryTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*PendingTask
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[string]*PendingTask)}
}

func (s *memoryTaskStore) Save(_ context.Context, task *PendingTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.Key()] = task
	return nil
}

func (s *memoryTaskStore) Get(_ context.Context, key string) (*PendingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

func (s *memoryTaskStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[key]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, key)
	return nil
}

func (s *memoryTaskStore) List(_ context.Context) ([]*PendingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*PendingTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

type recordedGeneration struct {
	provider, kind, status string
}

type fakeRecorder struct {
	mu          sync.Mutex
	generations []recordedGeneration
	pending     int
}

func (r *fakeRecorder) RecordGeneration(provider, kind, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations = append(r.generations, recordedGeneration{provider, kind, status})
}

func (r *fakeRecorder) SetPendingTasks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = n
}

func newTestDomain(t *testing.T, adapter Adapter) (*Domain, *MockFactory, *memoryTaskStore, *fakeRecorder) {
	t.Helper()
	factory := new(MockFactory)
	factory.On("Create", ProviderFal, mock.Anything).Return(adapter, nil).Maybe()
	factory.On("Create", ProviderID("nope"), mock.Anything).Return(nil, ErrUnknownProvider).Maybe()
	factory.On("Providers").Return([]ProviderID{ProviderFal}).Maybe()

	store := newMemoryTaskStore()
	rec := &fakeRecorder{}
	d := NewDomain(factory, store, rec, nil, zap.NewNop())
	return d, factory, store, rec
}

// --- Tests ---

func TestDomain_GenerateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty prompt before resolving an adapter", func(t *testing.T) {
		adapter := new(MockAdapter)
		d, factory, _, _ := newTestDomain(t, adapter)

		_, err := d.GenerateImage(ctx, ProviderFal, &ImageParams{Model: "nano-banana", Prompt: "  "})

		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.ErrorIs(t, err, ErrInvalidInput)
		factory.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("returns completed result and records metrics", func(t *testing.T) {
		adapter := new(MockAdapter)
		d, _, store, rec := newTestDomain(t, adapter)
		params := &ImageParams{Model: "nano-banana", Prompt: "a cat"}
		adapter.On("GenerateImage", mock.Anything, params).
			Return(&ImageResult{URL: "https://cdn/a.png", Status: ResultCompleted}, nil)

		result, err := d.GenerateImage(ctx, ProviderFal, params)

		require.NoError(t, err)
		assert.Equal(t, "https://cdn/a.png", result.URL)
		assert.Empty(t, store.tasks)
		assert.Equal(t, []recordedGeneration{{"fal", "image", "completed"}}, rec.generations)
	})

	t.Run("stashes timed out jobs for resume", func(t *testing.T) {
		adapter := new(MockAdapter)
		d, _, store, _ := newTestDomain(t, adapter)
		params := &ImageParams{Model: "nano-banana", Prompt: "a cat"}
		adapter.On("GenerateImage", mock.Anything, params).
			Return(&ImageResult{Status: ResultTimeout, RequestID: "req-1", ModelID: "fal-ai/nano-banana"}, nil)

		result, err := d.GenerateImage(ctx, ProviderFal, params)

		require.NoError(t, err)
		assert.Equal(t, ResultTimeout, result.Status)
		stashed, err := store.Get(ctx, "fal:req-1")
		require.NoError(t, err)
		assert.Equal(t, "fal-ai/nano-banana", stashed.ModelID)
		assert.Equal(t, KindImage, stashed.Kind)
		assert.False(t, stashed.CreatedAt.IsZero())
	})

	t.Run("propagates adapter errors", func(t *testing.T) {
		adapter := new(MockAdapter)
		d, _, _, rec := newTestDomain(t, adapter)
		params := &ImageParams{Model: "unknown", Prompt: "a cat"}
		adapter.On("GenerateImage", mock.Anything, params).
			Return(nil, NewValidationError(ErrUnsupportedModel, "fal: %s", "unknown"))

		_, err := d.GenerateImage(ctx, ProviderFal, params)

		assert.ErrorIs(t, err, ErrUnsupportedModel)
		assert.Equal(t, "error", rec.generations[0].status)
	})

	t.Run("unknown provider", func(t *testing.T) {
		d, _, _, _ := newTestDomain(t, new(MockAdapter))

		_, err := d.GenerateImage(ctx, "nope", &ImageParams{Prompt: "x"})

		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestDomain_Adapter_CachesInstances(t *testing.T) {
	adapter := new(MockAdapter)
	d, factory, _, _ := newTestDomain(t, adapter)

	a1, err := d.Adapter(ProviderFal)
	require.NoError(t, err)
	a2, err := d.Adapter(ProviderFal)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	factory.AssertNumberOfCalls(t, "Create", 1)
}

func TestDomain_GenerateVideo(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts image-only input", func(t *testing.T) {
		adapter := new(MockAdapter)
		d, _, store, _ := newTestDomain(t, adapter)
		params := &VideoParams{Model: "fal-ai/veo3.1", Images: []string{"https://x/a.png"}}
		adapter.On("GenerateVideo", mock.Anything, params).
			Return(&VideoResult{Status: ResultQueued, TaskID: "fal-ai/veo3.1:req-9", RequestID: "req-9"}, nil)

		result, err := d.GenerateVideo(ctx, ProviderFal, params)

		require.NoError(t, err)
		assert.Equal(t, ResultQueued, result.Status)
		_, err = store.Get(ctx, "fal:fal-ai/veo3.1:req-9")
		assert.NoError(t, err)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		d, _, _, _ := newTestDomain(t, new(MockAdapter))

		_, err := d.GenerateVideo(ctx, ProviderFal, &VideoParams{Model: "fal-ai/veo3.1"})

		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDomain_GenerateAudio(t *testing.T) {
	ctx := context.Background()
	adapter := new(MockAdapter)
	d, _, _, rec := newTestDomain(t, adapter)
	params := &AudioParams{Model: "minimax-speech-2.6-hd", Text: "hello"}
	adapter.On("GenerateAudio", mock.Anything, params).
		Return(&AudioResult{URL: "https://cdn/a.mp3", Status: ResultCompleted}, nil)

	result, err := d.GenerateAudio(ctx, ProviderFal, params)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.mp3", result.URL)
	assert.Equal(t, "audio", rec.generations[0].kind)

	_, err = d.GenerateAudio(ctx, ProviderFal, &AudioParams{Model: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDomain_CheckStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("drops terminal tasks from the stash", func(t *testing.T) {
		adapter := new(MockAdapter)
		d, _, store, _ := newTestDomain(t, adapter)
		require.NoError(t, store.Save(ctx, &PendingTask{Provider: ProviderFal, TaskID: "m:1"}))
		adapter.On("CheckStatus", mock.Anything, "m:1").
			Return(&TaskStatus{TaskID: "m:1", State: TaskSucceeded}, nil)

		status, err := d.CheckStatus(ctx, ProviderFal, "m:1")

		require.NoError(t, err)
		assert.Equal(t, TaskSucceeded, status.State)
		assert.Empty(t, store.tasks)
	})

	t.Run("keeps running tasks", func(t *testing.T) {
		adapter := new(MockAdapter)
		d, _, store, _ := newTestDomain(t, adapter)
		require.NoError(t, store.Save(ctx, &PendingTask{Provider: ProviderFal, TaskID: "m:2"}))
		adapter.On("CheckStatus", mock.Anything, "m:2").
			Return(&TaskStatus{TaskID: "m:2", State: TaskProcessing}, nil)

		_, err := d.CheckStatus(ctx, ProviderFal, "m:2")

		require.NoError(t, err)
		assert.Len(t, store.tasks, 1)
	})

	t.Run("requires a task id", func(t *testing.T) {
		d, _, _, _ := newTestDomain(t, new(MockAdapter))
		_, err := d.CheckStatus(ctx, ProviderFal, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestDomain_ResumeImage(t *testing.T) {
	ctx := context.Background()

	t.Run("resumes and drops the stashed task", func(t *testing.T) {
		adapter := new(MockResumableAdapter)
		d, _, store, _ := newTestDomain(t, adapter)
		require.NoError(t, store.Save(ctx, &PendingTask{Provider: ProviderFal, RequestID: "req-1", ModelID: "fal-ai/nano-banana"}))
		adapter.On("ResumeImage", mock.Anything, "req-1", "fal-ai/nano-banana").
			Return(&ImageResult{URL: "https://cdn/a.png", Status: ResultCompleted}, nil)

		result, err := d.ResumeImage(ctx, ProviderFal, "req-1", "fal-ai/nano-banana", nil)

		require.NoError(t, err)
		assert.Equal(t, ResultCompleted, result.Status)
		assert.Empty(t, store.tasks)
	})

	t.Run("adapter without resume support", func(t *testing.T) {
		d, _, _, _ := newTestDomain(t, new(MockAdapter))

		_, err := d.ResumeImage(ctx, ProviderFal, "req-1", "m", nil)

		assert.ErrorIs(t, err, ErrUnsupportedCapability)
	})
}

func TestDomain_PendingTasks(t *testing.T) {
	ctx := context.Background()
	d, _, store, rec := newTestDomain(t, new(MockAdapter))
	require.NoError(t, store.Save(ctx, &PendingTask{Provider: ProviderKIE, TaskID: "t1"}))
	require.NoError(t, store.Save(ctx, &PendingTask{Provider: ProviderPPIO, TaskID: "t2"}))

	tasks, err := d.PendingTasks(ctx)

	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	assert.Equal(t, 2, rec.pending)
}

func TestDomain_NilStore(t *testing.T) {
	adapter := new(MockAdapter)
	factory := new(MockFactory)
	factory.On("Create", ProviderFal, mock.Anything).Return(adapter, nil)
	d := NewDomain(factory, nil, nil, nil, nil)
	params := &ImageParams{Prompt: "x"}
	adapter.On("GenerateImage", mock.Anything, params).Return(&ImageResult{Status: ResultTimeout, RequestID: "r"}, nil)

	_, err := d.GenerateImage(context.Background(), ProviderFal, params)
	require.NoError(t, err)

	tasks, err := d.PendingTasks(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, tasks)
}

func TestErrors(t *testing.T) {
	t.Run("validation unwraps to sentinel", func(t *testing.T) {
		err := NewValidationError(ErrReferenceCount, "mode %s needs %d", "start-end-frame", 2)
		assert.ErrorIs(t, err, ErrReferenceCount)
		assert.Contains(t, err.Error(), "start-end-frame")
	})

	t.Run("transient classification", func(t *testing.T) {
		assert.True(t, IsTransient(&NetworkError{Provider: ProviderFal, Err: errors.New("reset")}))
		assert.True(t, IsTransient(&ProviderError{Provider: ProviderFal, Status: 429}))
		assert.True(t, IsTransient(&ProviderError{Provider: ProviderFal, Status: 503}))
		assert.False(t, IsTransient(&ProviderError{Provider: ProviderFal, Status: 400}))
		assert.False(t, IsTransient(&ProviderError{Provider: ProviderFal, Err: ErrTaskFailed}))
		assert.False(t, IsTransient(errors.New("boom")))
	})

	t.Run("provider error message", func(t *testing.T) {
		assert.Equal(t, "kie: status 422: bad", (&ProviderError{Provider: ProviderKIE, Status: 422, Message: "bad"}).Error())
		assert.Equal(t, "kie: failed", (&ProviderError{Provider: ProviderKIE, Message: "failed"}).Error())
	})
}

func TestURLs_JoinSplit(t *testing.T) {
	assert.Nil(t, SplitURLs(""))
	assert.Equal(t, "a|||b", JoinURLs([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, SplitURLs("a|||b"))
	assert.Equal(t, []string{"a", "b"}, (&ImageResult{URL: "a|||b"}).URLs())
}

func TestDecodeOptions(t *testing.T) {
	t.Run("empty tag", func(t *testing.T) {
		opts, err := DecodeOptions("", nil)
		assert.NoError(t, err)
		assert.Nil(t, opts)
	})

	t.Run("known tag", func(t *testing.T) {
		opts, err := DecodeOptions("kling", []byte(`{"cfg_scale":0.7,"sound":true}`))
		require.NoError(t, err)
		k := OptionsOf[KlingOptions](opts)
		require.NotNil(t, k.CfgScale)
		assert.Equal(t, 0.7, *k.CfgScale)
		assert.True(t, k.Sound)
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := DecodeOptions("nope", nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := DecodeOptions("sora", []byte(`{"pro":"yes"}`))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("foreign family yields defaults", func(t *testing.T) {
		s := OptionsOf[SoraOptions](&KlingOptions{Sound: true})
		assert.False(t, s.Pro)
	})
}

func TestTaskState_IsTerminal(t *testing.T) {
	assert.False(t, TaskQueued.IsTerminal())
	assert.False(t, TaskProcessing.IsTerminal())
	assert.True(t, TaskSucceeded.IsTerminal())
	assert.True(t, TaskFailed.IsTerminal())
}
