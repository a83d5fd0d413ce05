package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uniedit/mediagen/internal/utils/requestctx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			assert.Equal(t, GetRequestID(c), requestctx.RequestID(c.Request.Context()))
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-request-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "existing-request-id-123", w.Body.String())
	})
}

func TestGetRequestID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))

	c.Set(RequestIDKey, "test-id")
	assert.Equal(t, "test-id", GetRequestID(c))
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"success as info", http.StatusOK, zapcore.InfoLevel},
		{"4xx as warning", http.StatusNotFound, zapcore.WarnLevel},
		{"5xx as error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(RequestID(), Logging(zap.New(core)))
			router.GET("/test", func(c *gin.Context) { c.Status(tt.status) })

			req := httptest.NewRequest(http.MethodGet, "/test?foo=bar", nil)
			req.Header.Set("User-Agent", "TestAgent/1.0")
			router.ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, "HTTP Request", entry.Message)
			assert.Equal(t, tt.level, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, "/test", fields["path"])
			assert.Equal(t, "foo=bar", fields["query"])
			assert.Equal(t, "TestAgent/1.0", fields["user_agent"])
			assert.NotEmpty(t, fields["request_id"])
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		router := gin.New()
		router.Use(Recovery(zap.New(core)))
		router.GET("/panic", func(c *gin.Context) { panic("test panic") })

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
		require.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
		assert.Equal(t, "test panic", logs.All()[0].ContextMap()["error"])
	})

	t.Run("nil logger", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/panic", func(c *gin.Context) { panic("test panic") })

		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS(CORSConfig{AllowMethods: []string{"GET", "POST"}, AllowHeaders: []string{"Content-Type"}}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://other.test")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "POST")
	assert.Contains(t, cfg.AllowHeaders, IdempotencyKeyHeader)
	assert.False(t, cfg.AllowCredentials)
}

type recorder struct {
	mu       sync.Mutex
	paths    []string
	inFlight float64
}

func (r *recorder) RecordHTTPRequest(method, path string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, method+" "+path)
}

func (r *recorder) HTTPInFlight(delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight += delta
}

func TestMetrics(t *testing.T) {
	rec := &recorder{}
	router := gin.New()
	router.Use(Metrics(rec))
	router.GET("/v1/tasks/:provider/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/tasks/fal/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []string{"GET /v1/tasks/:provider/:id", "GET unmatched"}, rec.paths)
	assert.Zero(t, rec.inFlight)
}

func TestIdempotency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	router := gin.New()
	router.Use(Idempotency(client, IdempotencyConfig{}))
	router.POST("/v1/images", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"call": calls})
	})

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/images", bytes.NewBufferString(`{}`))
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send("k1")
	second := send("k1")
	assert.Equal(t, 1, calls)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(IdempotencyReplayHeader))

	send("k2")
	send("")
	assert.Equal(t, 3, calls)
}

func TestIdempotency_Conflict(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := gin.New()
	router.Use(Idempotency(client, IdempotencyConfig{KeyPrefix: "idem:"}))
	router.POST("/v1/videos", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/v1/videos", nil)
	req.Header.Set(IdempotencyKeyHeader, "busy")
	require.NoError(t, mr.Set(idempotencyKey("idem:", http.MethodPost, "/v1/videos", "busy")+":lock", "1"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_IN_PROGRESS")
}

func TestIdempotency_ScopedToResolvedPath(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := map[string]int{}
	router := gin.New()
	router.Use(Idempotency(client, IdempotencyConfig{}))
	router.POST("/v1/media/:provider/images", func(c *gin.Context) {
		calls[c.Param("provider")]++
		c.JSON(http.StatusOK, gin.H{"provider": c.Param("provider")})
	})

	send := func(provider string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/media/"+provider+"/images", nil)
		req.Header.Set(IdempotencyKeyHeader, "same-key")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	fal := send("fal")
	kie := send("kie")

	assert.Equal(t, map[string]int{"fal": 1, "kie": 1}, calls)
	assert.JSONEq(t, `{"provider":"fal"}`, fal.Body.String())
	assert.JSONEq(t, `{"provider":"kie"}`, kie.Body.String())
	assert.Empty(t, kie.Header().Get(IdempotencyReplayHeader))
}

func TestIdempotency_StreamNotStored(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	router := gin.New()
	router.Use(Idempotency(client, IdempotencyConfig{}))
	router.POST("/v1/videos", func(c *gin.Context) {
		calls++
		c.SSEvent("result", gin.H{"call": calls})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/videos?stream=true", nil)
		req.Header.Set(IdempotencyKeyHeader, "k")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get(IdempotencyReplayHeader))
	}

	assert.Equal(t, 2, calls)
	assert.False(t, mr.Exists(idempotencyKey(defaultIdempotencyPrefix, http.MethodPost, "/v1/videos", "k")))
}

func TestIdempotency_NilClient(t *testing.T) {
	router := gin.New()
	router.Use(Idempotency(nil, IdempotencyConfig{}))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyKeyHeader, "k")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
}
