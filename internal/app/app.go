// Package app assembles the media gateway service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/uniedit/mediagen/cmd/server/docs" // swagger docs

	mediahttp "github.com/uniedit/mediagen/internal/adapter/inbound/http/media"
	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/infra/config"
	"github.com/uniedit/mediagen/internal/utils/metrics"
	"github.com/uniedit/mediagen/internal/utils/middleware"
)

const shutdownTimeout = 30 * time.Second

// App represents the application.
type App struct {
	config *config.Config
	server *http.Server
	domain *media.Domain
	logger *zap.Logger
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, server *http.Server, domain *media.Domain, logger *zap.Logger) *App {
	return &App{config: cfg, server: server, domain: domain, logger: logger}
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.server.Handler }

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if tasks, err := a.domain.PendingTasks(ctx); err != nil {
		a.logger.Warn("Failed to load pending tasks", zap.Error(err))
	} else if len(tasks) > 0 {
		a.logger.Info("Pending tasks awaiting resume", zap.Int("count", len(tasks)))
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server",
			zap.String("address", a.server.Addr),
			zap.Any("providers", a.domain.Providers()),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// RouterDeps are the collaborators of the HTTP router. Redis and Metrics may be nil.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Redis    goredis.UniversalClient
	Media    *mediahttp.Handler
}

// NewRouter creates and configures the gin router.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = deps.Config.Server.CORSOrigins

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(deps.Logger))
	r.Use(middleware.CORS(corsCfg))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	v1 := r.Group("/v1")
	v1.Use(middleware.Idempotency(deps.Redis, middleware.IdempotencyConfig{Logger: deps.Logger}))
	deps.Media.RegisterRoutes(v1)

	return r
}
