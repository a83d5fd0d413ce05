package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader carries the caller's idempotency key.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a replayed response.
	IdempotencyReplayHeader = "Idempotency-Replayed"

	defaultIdempotencyPrefix = "mediagen:idem:"
	defaultIdempotencyTTL    = 24 * time.Hour
	// generations can run for many minutes
	idempotencyLockTTL = 20 * time.Minute
)

// IdempotencyConfig holds idempotency middleware configuration.
type IdempotencyConfig struct {
	TTL       time.Duration
	KeyPrefix string
	Logger    *zap.Logger
}

type cachedResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a POST whose Idempotency-Key was seen before.
// A nil client disables it. Responses of 500 and above and event streams are not stored.
func Idempotency(redis goredis.UniversalClient, cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultIdempotencyPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if redis == nil || key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyKey(cfg.KeyPrefix, c.Request.Method, c.Request.URL.Path, key)

		if cached, err := loadResponse(ctx, redis, cacheKey); err == nil {
			c.Header(IdempotencyReplayHeader, "true")
			c.Data(cached.StatusCode, cached.ContentType, cached.Body)
			c.Abort()
			return
		}

		lockKey := cacheKey + ":lock"
		locked, err := redis.SetNX(ctx, lockKey, "1", idempotencyLockTTL).Result()
		if err != nil {
			cfg.Logger.Warn("Idempotency lock failed, serving without it", zap.Error(err))
			c.Next()
			return
		}
		if !locked {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": gin.H{
					"code":    "REQUEST_IN_PROGRESS",
					"message": "a request with this idempotency key is already being processed",
				},
			})
			return
		}
		// The request context may be canceled by the time the handler returns.
		defer redis.Del(context.WithoutCancel(ctx), lockKey)

		w := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= 500 || isStream(c) {
			return
		}
		resp := cachedResponse{StatusCode: status, ContentType: w.Header().Get("Content-Type"), Body: w.body.Bytes()}
		if err := storeResponse(context.WithoutCancel(ctx), redis, cacheKey, resp, cfg.TTL); err != nil {
			cfg.Logger.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

func idempotencyKey(prefix, method, path, key string) string {
	hash := sha256.Sum256([]byte(method + ":" + path + ":" + key))
	return prefix + hex.EncodeToString(hash[:])
}

// isStream reports a server-sent event response, which cannot be replayed.
func isStream(c *gin.Context) bool {
	return c.Query("stream") == "true" || strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}

func loadResponse(ctx context.Context, redis goredis.UniversalClient, key string) (*cachedResponse, error) {
	data, err := redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var resp cachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func storeResponse(ctx context.Context, redis goredis.UniversalClient, key string, resp cachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return redis.Set(ctx, key, data, ttl).Err()
}
