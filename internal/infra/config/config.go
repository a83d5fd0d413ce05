package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Log        LogConfig                 `mapstructure:"log"`
	HTTPClient HTTPClientConfig          `mapstructure:"http_client"`
	Redis      RedisConfig               `mapstructure:"redis"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Providers  map[string]ProviderConfig `mapstructure:"providers"`
	Polling    PollingConfig             `mapstructure:"polling"`
	Upload     UploadConfig              `mapstructure:"upload"`
	Persist    PersistConfig             `mapstructure:"persist"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPClientConfig holds HTTP client configuration for connection pooling.
type HTTPClientConfig struct {
	// Connection pool settings
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`

	// Timeout settings
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`

	// Keep-alive settings
	KeepAlive time.Duration `mapstructure:"keep_alive"`

	// UserAgent is sent on every upstream request.
	UserAgent string `mapstructure:"user_agent"`
}

// RedisConfig holds Redis configuration for the pending task store.
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TaskTTL   time.Duration `mapstructure:"task_ttl"`
}

// StorageConfig holds S3-compatible object storage configuration.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	// PublicBaseURL prefixes object keys to form public URLs.
	PublicBaseURL string `mapstructure:"public_base_url"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// ProviderConfig holds per-provider client configuration.
type ProviderConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	Burst           int           `mapstructure:"burst"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

// PollingConfig holds async job polling configuration.
type PollingConfig struct {
	TransientRetries int `mapstructure:"transient_retries"`
}

// UploadConfig selects reference media uploaders.
type UploadConfig struct {
	// Primary is tried first: fal, kie or s3.
	Primary   string   `mapstructure:"primary"`
	Fallbacks []string `mapstructure:"fallbacks"`
}

// PersistConfig holds local persistence configuration.
type PersistConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// ProviderIDs lists the providers the gateway knows about.
var ProviderIDs = []string{"fal", "ppio", "kie", "modelscope"}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/mediagen")

	return load(v)
}

// LoadFile loads configuration from an explicit file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	// Read from environment variables
	v.SetEnvPrefix("MEDIAGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	// Override with environment variables for sensitive values
	for _, id := range ProviderIDs {
		if key := os.Getenv("MEDIAGEN_" + strings.ToUpper(id) + "_API_KEY"); key != "" {
			p := cfg.Providers[id]
			p.APIKey = key
			cfg.Providers[id] = p
		}
	}
	if password := os.Getenv("MEDIAGEN_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("MEDIAGEN_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Minute)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 20)
	v.SetDefault("http_client.max_conns_per_host", 50)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 30*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 300*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)
	v.SetDefault("http_client.user_agent", "mediagen/1.0")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "mediagen:task:")
	v.SetDefault("redis.task_ttl", 24*time.Hour)

	// Storage defaults
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.key_prefix", "uploads/")

	// Provider defaults
	v.SetDefault("providers.fal.base_url", "https://queue.fal.run")
	v.SetDefault("providers.ppio.base_url", "https://api.ppinfra.com/v3")
	v.SetDefault("providers.kie.base_url", "https://api.kie.ai")
	v.SetDefault("providers.modelscope.base_url", "https://api-inference.modelscope.cn")
	for _, id := range ProviderIDs {
		v.SetDefault("providers."+id+".breaker_failures", 5)
		v.SetDefault("providers."+id+".breaker_timeout", 30*time.Second)
	}

	// Polling defaults
	v.SetDefault("polling.transient_retries", 2)

	// Upload defaults
	v.SetDefault("upload.primary", "fal")
	v.SetDefault("upload.fallbacks", []string{"kie", "s3"})

	// Persist defaults
	v.SetDefault("persist.enabled", false)
	v.SetDefault("persist.dir", "./media")

	// Metrics defaults
	v.SetDefault("metrics.namespace", "mediagen")
}
