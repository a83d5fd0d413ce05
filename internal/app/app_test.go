package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mediahttp "github.com/uniedit/mediagen/internal/adapter/inbound/http/media"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/infra/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Log:     config.LogConfig{Level: "info", Format: "json"},
		Server:  config.ServerConfig{Address: ":0", CORSOrigins: []string{"*"}},
		Metrics: config.MetricsConfig{Namespace: "apptest"},
		Providers: map[string]config.ProviderConfig{
			"fal": {APIKey: "fal-key", BreakerFailures: 3, BreakerTimeout: time.Second},
		},
		Polling: config.PollingConfig{TransientRetries: 4},
		Upload:  config.UploadConfig{Primary: "fal", Fallbacks: []string{"kie", "s3"}},
	}
}

func testRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	reg := ProvideRegistry()
	m := ProvideMetrics(cfg, reg)
	factory := ProvideAdapterFactory(http.DefaultClient, nil, nil, m, zap.NewNop())
	domain := ProvideMediaDomain(factory, nil, m, ProvideMediaConfig(cfg), zap.NewNop())
	return ProvideRouter(cfg, zap.NewNop(), m, reg, nil, mediahttp.NewHandler(domain, nil))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	r := testRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "apptest_http_requests_total")
}

func TestRouter_Providers(t *testing.T) {
	r := testRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/media/providers", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"providers":["fal","kie","modelscope","ppio"]}`, w.Body.String())
}

func TestRouter_SwaggerDoc(t *testing.T) {
	r := testRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "/v1", doc.BasePath)
	for _, path := range []string{
		"/media/providers",
		"/media/tasks",
		"/media/{provider}/images",
		"/media/{provider}/images/resume",
		"/media/{provider}/videos",
		"/media/{provider}/audio",
		"/media/{provider}/tasks/{task_id}",
	} {
		assert.Contains(t, doc.Paths, path)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnconfiguredProvider(t *testing.T) {
	r := testRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/media/kie/tasks/t-1", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "provider_not_configured")
}

func TestProvideMediaConfig(t *testing.T) {
	mc := ProvideMediaConfig(testConfig())

	fal := mc.Providers[media.ProviderFal]
	assert.Equal(t, "fal-key", fal.APIKey)
	assert.Equal(t, uint32(3), fal.BreakerFailures)
	assert.Equal(t, 4, fal.TransientRetries)
	assert.True(t, mc.StashTimedOut)
}

func TestProvideUploader(t *testing.T) {
	cfg := testConfig()
	reg := ProvideRegistry()

	up := ProvideUploader(cfg, http.DefaultClient, ProvideMetrics(cfg, reg), zap.NewNop())
	assert.True(t, up.Available())

	cfg.Providers = nil
	assert.False(t, ProvideUploader(cfg, http.DefaultClient, ProvideMetrics(cfg, ProvideRegistry()), zap.NewNop()).Available())
}

func TestProvideTaskStore(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, ProvideTaskStore(cfg, nil))

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	assert.NotNil(t, ProvideTaskStore(cfg, client))
}

func TestProvidePersister(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, ProvidePersister(cfg, http.DefaultClient, zap.NewNop()))

	cfg.Persist = config.PersistConfig{Enabled: true, Dir: t.TempDir()}
	assert.NotNil(t, ProvidePersister(cfg, http.DefaultClient, zap.NewNop()))
}

func TestProvideRedisClient_Disabled(t *testing.T) {
	client, cleanup := ProvideRedisClient(testConfig(), zap.NewNop())
	defer cleanup()
	assert.Nil(t, client)
}

func TestInitializeApp(t *testing.T) {
	app, cleanup, err := InitializeApp(testConfig())
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, app.Router())
}
