package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	// Domain
	"github.com/uniedit/mediagen/internal/domain/media"

	// Inbound adapters
	mediahttp "github.com/uniedit/mediagen/internal/adapter/inbound/http/media"

	// Outbound adapters
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider"
	"github.com/uniedit/mediagen/internal/adapter/outbound/mediaprovider/providerkit"
	redisadapter "github.com/uniedit/mediagen/internal/adapter/outbound/redis"
	s3adapter "github.com/uniedit/mediagen/internal/adapter/outbound/s3"

	// Gateway plumbing
	"github.com/uniedit/mediagen/internal/module/gateway/persist"
	"github.com/uniedit/mediagen/internal/module/gateway/transport"
	"github.com/uniedit/mediagen/internal/module/gateway/upload"

	// Infrastructure
	"github.com/uniedit/mediagen/internal/infra/config"
	"github.com/uniedit/mediagen/internal/infra/httpclient"

	// Utils
	"github.com/uniedit/mediagen/internal/shared/logger"
	"github.com/uniedit/mediagen/internal/utils/metrics"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideHTTPClient,
	ProvideRegistry,
	ProvideMetrics,
	ProvideRedisClient,
)

// ProvideLogger creates the zap logger. The cleanup flushes buffered entries.
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}

// ProvideHTTPClient creates a shared HTTP client with connection pooling.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.New(cfg.HTTPClient)
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the application metrics on reg.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) *metrics.Metrics {
	return metrics.NewWithRegisterer(cfg.Metrics.Namespace, reg)
}

// ProvideRedisClient connects to Redis when enabled. Failures degrade to running without a task store.
func ProvideRedisClient(cfg *config.Config, zapLog *zap.Logger) (goredis.UniversalClient, func()) {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil, func() {}
	}
	client, err := redisadapter.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		zapLog.Warn("Redis connection failed, continuing without task store", zap.Error(err))
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}

// ===== Gateway Providers =====

// GatewaySet provides the media gateway and its collaborators.
var GatewaySet = wire.NewSet(
	ProvideTaskStore,
	ProvideUploader,
	ProvidePersister,
	ProvideAdapterFactory,
	ProvideMediaConfig,
	ProvideMediaDomain,
)

// ProvideTaskStore creates the resumable task store, or nil without Redis.
func ProvideTaskStore(cfg *config.Config, client goredis.UniversalClient) media.TaskStore {
	if client == nil {
		return nil
	}
	return redisadapter.NewTaskStore(client, cfg.Redis.KeyPrefix, cfg.Redis.TaskTTL)
}

// ProvideUploader builds the upload chain from the configured primary and fallbacks.
func ProvideUploader(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics, zapLog *zap.Logger) media.Uploader {
	build := func(name string) media.Uploader {
		switch strings.ToLower(name) {
		case "fal":
			return upload.NewFalStorage(transport.New(transport.Config{
				Name:       "fal_storage",
				BaseURL:    upload.FalStorageBaseURL,
				APIKey:     cfg.Providers["fal"].APIKey,
				Auth:       transport.KeyAuth,
				HTTPClient: httpClient,
				Logger:     zapLog,
			}), zapLog)
		case "kie":
			return upload.NewKIEStream(transport.New(transport.Config{
				Name:       "kie_upload",
				BaseURL:    upload.KIEUploadBaseURL,
				APIKey:     cfg.Providers["kie"].APIKey,
				Auth:       transport.Bearer,
				HTTPClient: httpClient,
				Logger:     zapLog,
			}), zapLog)
		case "s3":
			if cfg.Storage.Bucket == "" {
				return nil
			}
			up, err := s3adapter.NewFromConfig(context.Background(), cfg.Storage, zapLog)
			if err != nil {
				zapLog.Warn("Object storage uploader disabled", zap.Error(err))
				return nil
			}
			return up
		case "":
			return nil
		default:
			zapLog.Warn("Unknown uploader in config", zap.String("uploader", name))
			return nil
		}
	}

	fallbacks := make([]media.Uploader, 0, len(cfg.Upload.Fallbacks))
	for _, name := range cfg.Upload.Fallbacks {
		fallbacks = append(fallbacks, build(name))
	}
	return upload.NewChain(zapLog, m, build(cfg.Upload.Primary), fallbacks...)
}

// ProvidePersister creates the local file persister when enabled.
func ProvidePersister(cfg *config.Config, httpClient *http.Client, zapLog *zap.Logger) media.Persister {
	if !cfg.Persist.Enabled {
		return nil
	}
	return persist.NewFilePersister(cfg.Persist.Dir, httpClient, zapLog)
}

// ProvideAdapterFactory registers the built-in provider adapters.
func ProvideAdapterFactory(
	httpClient *http.Client,
	uploader media.Uploader,
	persister media.Persister,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) media.AdapterFactory {
	return mediaprovider.NewDefaultRegistry(providerkit.Deps{
		HTTPClient:      httpClient,
		Logger:          zapLog,
		Uploader:        uploader,
		Persister:       persister,
		OnBreakerChange: m.SetBreakerOpen,
		OnPollAttempt:   m.RecordPollAttempt,
	})
}

// ProvideMediaConfig maps provider settings to client configs.
func ProvideMediaConfig(cfg *config.Config) *media.Config {
	mc := media.DefaultConfig()
	for id, p := range cfg.Providers {
		mc.Providers[media.ProviderID(id)] = media.ClientConfig{
			APIKey:           p.APIKey,
			BaseURL:          p.BaseURL,
			RateLimit:        p.RateLimit,
			Burst:            p.Burst,
			BreakerFailures:  p.BreakerFailures,
			BreakerTimeout:   p.BreakerTimeout,
			TransientRetries: cfg.Polling.TransientRetries,
		}
	}
	return mc
}

// ProvideMediaDomain creates the gateway domain.
func ProvideMediaDomain(
	factory media.AdapterFactory,
	tasks media.TaskStore,
	m *metrics.Metrics,
	mc *media.Config,
	zapLog *zap.Logger,
) *media.Domain {
	return media.NewDomain(factory, tasks, m, mc, zapLog)
}

// ===== HTTP Providers =====

// HTTPSet provides the HTTP surface.
var HTTPSet = wire.NewSet(
	wire.Bind(new(mediahttp.Gateway), new(*media.Domain)),
	ProvideMediaHandler,
	ProvideRouter,
	ProvideServer,
)

// ProvideMediaHandler creates the media HTTP handler.
func ProvideMediaHandler(gateway mediahttp.Gateway, zapLog *zap.Logger) *mediahttp.Handler {
	return mediahttp.NewHandler(gateway, zapLog)
}

// ProvideRouter creates the gin router.
func ProvideRouter(
	cfg *config.Config,
	zapLog *zap.Logger,
	m *metrics.Metrics,
	reg *prometheus.Registry,
	redis goredis.UniversalClient,
	handler *mediahttp.Handler,
) *gin.Engine {
	return NewRouter(RouterDeps{
		Config:   cfg,
		Logger:   zapLog,
		Metrics:  m,
		Gatherer: reg,
		Redis:    redis,
		Media:    handler,
	})
}

// ProvideServer creates the HTTP server.
func ProvideServer(cfg *config.Config, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

// AppSet is the full application graph.
var AppSet = wire.NewSet(
	InfraSet,
	GatewaySet,
	HTTPSet,
	NewApp,
)
