package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniedit/mediagen/internal/domain/media"
)

const (
	defaultKeyPrefix = "mediagen:task:"
	defaultTaskTTL   = 24 * time.Hour
)

// TaskStore implements media.TaskStore. Each task is a JSON string with a TTL;
// an index set tracks the live keys.
type TaskStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewTaskStore creates a task store. Empty prefix and zero ttl use defaults.
func NewTaskStore(client redis.UniversalClient, prefix string, ttl time.Duration) *TaskStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultTaskTTL
	}
	return &TaskStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *TaskStore) taskKey(key string) string { return s.prefix + key }
func (s *TaskStore) indexKey() string          { return s.prefix + "index" }

// Save stores task under task.Key(), replacing any previous entry.
func (s *TaskStore) Save(ctx context.Context, task *media.PendingTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	key := task.Key()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.taskKey(key), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save task %s: %w", key, err)
	}
	return nil
}

// Get returns the task stored under key.
func (s *TaskStore) Get(ctx context.Context, key string) (*media.PendingTask, error) {
	data, err := s.client.Get(ctx, s.taskKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", media.ErrTaskNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", key, err)
	}
	var task media.PendingTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", key, err)
	}
	return &task, nil
}

// Delete removes the task stored under key.
func (s *TaskStore) Delete(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.taskKey(key))
	pipe.SRem(ctx, s.indexKey(), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete task %s: %w", key, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", media.ErrTaskNotFound, key)
	}
	return nil
}

// List returns all live tasks, oldest first. Expired entries are pruned from the index.
func (s *TaskStore) List(ctx context.Context) ([]*media.PendingTask, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list task keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.taskKey(k)
	}
	values, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	tasks := make([]*media.PendingTask, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		var task media.PendingTask
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			stale = append(stale, keys[i])
			continue
		}
		tasks = append(tasks, &task)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune task index: %w", err)
		}
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

var _ media.TaskStore = (*TaskStore)(nil)
