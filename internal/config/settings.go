package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

var (
	ServiceVersion string
	CommitSHA      string
)

const (
	Development = 1 << iota
	Sandbox
	Staging
	Production
)

const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreKeyDB  = "keydb"
)

type (
	ServiceConfig struct {
		App            App            `json:"app"`
		SecretsStorage SecretsStorage `json:"secrets_storage"`
		HTTPServer     HTTPServer     `json:"http_server"`
		GRPCServer     GRPCServer     `json:"grpc_server"`
		Database       Database       `json:"database"`
		Pagination     Pagination     `json:"pagination"`
		RateLimiting   RateLimiting   `json:"rate_limiting"`
		Idempotency    Idempotency    `json:"idempotency"`
		Compression    Compression    `json:"compression"`
		Cache          Cache          `json:"cache"`
		CacheBreaker   CacheBreaker   `json:"cache_breaker"`
		Logging        Logging        `json:"logging"`
		Telemetry      Telemetry      `json:"telemetry"`
	}

	App struct {
		ServiceName    string      `envconfig:"APP_SERVICE_NAME" default:"devicely" json:"service_name"`
		ServiceVersion string      `envconfig:"APP_SERVICE_VERSION" default:"dev" json:"service_version"`
		CommitSHA      string      `envconfig:"APP_COMMIT_SHA" default:"" json:"commit_sha,omitempty"`
		Env            Environment `json:"environment"`
	}

	Environment struct {
		Name string `envconfig:"APP_ENVIRONMENT" default:"development" json:"env"`
	}

	SecretsStorage struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"" json:"-"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"-"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"-"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"devicely" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    uint          `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
	}

	HTTPServer struct {
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port            uint          `envconfig:"HTTP_SERVER_PORT" default:"8080" json:"port"`
		ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
		// TrustProxyHeaders takes the client address from X-Forwarded-For or
		// X-Real-IP. Enable only behind a proxy that overwrites them.
		TrustProxyHeaders bool `envconfig:"HTTP_TRUST_PROXY_HEADERS" default:"false" json:"trust_proxy_headers"`
	}

	GRPCServer struct {
		Enabled         bool          `envconfig:"GRPC_SERVER_ENABLED" default:"true" json:"enabled"`
		Host            string        `envconfig:"GRPC_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port            uint          `envconfig:"GRPC_SERVER_PORT" default:"9090" json:"port"`
		ShutdownTimeout time.Duration `envconfig:"GRPC_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
		HealthInterval  time.Duration `envconfig:"GRPC_HEALTH_INTERVAL" default:"10s" json:"health_interval"`
		Reflection      bool          `envconfig:"GRPC_REFLECTION_ENABLED" default:"true" json:"reflection"`
	}

	Database struct {
		Host            string        `envconfig:"POSTGRES_HOST" default:"postgres" json:"host"`
		Port            uint          `envconfig:"POSTGRES_PORT" default:"5432" json:"port"`
		Database        string        `envconfig:"POSTGRES_DATABASE" default:"devices" json:"database"`
		Username        string        `envconfig:"POSTGRES_USERNAME" default:"postgres" json:"username"`
		Password        string        `envconfig:"POSTGRES_PASSWORD" default:"" json:"-"`
		SSLMode         string        `envconfig:"POSTGRES_SSL_MODE" default:"disable" json:"ssl_mode"`
		MaxConnections  int32         `envconfig:"POSTGRES_MAX_CONNECTIONS" default:"25" json:"max_connections"`
		MinConnections  int32         `envconfig:"POSTGRES_MIN_CONNECTIONS" default:"5" json:"min_connections"`
		ConnectTimeout  time.Duration `envconfig:"POSTGRES_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		ConnectRetries  uint          `envconfig:"POSTGRES_CONNECT_RETRIES" default:"5" json:"connect_retries"`
		MaxConnLifetime time.Duration `envconfig:"POSTGRES_MAX_CONN_LIFETIME" default:"1h" json:"max_conn_lifetime"`
		MaxConnIdleTime time.Duration `envconfig:"POSTGRES_MAX_CONN_IDLE_TIME" default:"30m" json:"max_conn_idle_time"`
		AutoMigrate     bool          `envconfig:"POSTGRES_AUTO_MIGRATE" default:"true" json:"auto_migrate"`
	}

	Pagination struct {
		DefaultPageSize   uint `envconfig:"PAGINATION_DEFAULT_PAGE_SIZE" default:"10" json:"default_page_size"`
		DefaultPageNumber uint `envconfig:"PAGINATION_DEFAULT_PAGE_NUMBER" default:"1" json:"default_page_number"`
		MaxPageSize       uint `envconfig:"PAGINATION_MAX_PAGE_SIZE" default:"100" json:"max_page_size"`
	}

	RateLimiting struct {
		Enabled           bool     `envconfig:"RATE_LIMITING_ENABLED" default:"true" json:"enabled"`
		RequestsPerMinute uint     `envconfig:"RATE_LIMITING_REQUESTS_PER_MINUTE" default:"600" json:"requests_per_minute"`
		BurstSize         uint     `envconfig:"RATE_LIMITING_BURST_SIZE" default:"20" json:"burst_size"`
		Store             string   `envconfig:"RATE_LIMITING_STORE" default:"memory" json:"store"`
		MaxKeys           int      `envconfig:"RATE_LIMITING_MAX_KEYS" default:"65536" json:"max_keys"`
		KeyPrefix         string   `envconfig:"RATE_LIMITING_KEY_PREFIX" default:"devicely:ratelimit:" json:"key_prefix"`
		SkipPaths         []string `envconfig:"RATE_LIMITING_SKIP_PATHS" default:"/health,/liveness,/readiness,/metrics" json:"skip_paths"`
	}

	// Idempotency replays responses of retried requests carrying HeaderName.
	// It needs KeyDB.
	Idempotency struct {
		Enabled          bool          `envconfig:"IDEMPOTENCY_ENABLED" default:"false" json:"enabled"`
		Methods          []string      `envconfig:"IDEMPOTENCY_METHODS" default:"POST" json:"methods"`
		HeaderName       string        `envconfig:"IDEMPOTENCY_HEADER" default:"Idempotency-Key" json:"header_name"`
		ReplayedHeader   string        `envconfig:"IDEMPOTENCY_REPLAYED_HEADER" default:"Idempotent-Replayed" json:"replayed_header"`
		KeyPrefix        string        `envconfig:"IDEMPOTENCY_KEY_PREFIX" default:"devicely:idempotency:" json:"key_prefix"`
		CacheTTL         time.Duration `envconfig:"IDEMPOTENCY_CACHE_TTL" default:"24h" json:"cache_ttl"`
		LockTTL          time.Duration `envconfig:"IDEMPOTENCY_LOCK_TTL" default:"30s" json:"lock_ttl"`
		GracefulDegraded bool          `envconfig:"IDEMPOTENCY_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	Compression struct {
		Enabled bool `envconfig:"COMPRESSION_ENABLED" default:"true" json:"enabled"`
		// Level is shared by gzip, deflate and brotli; 1-9.
		Level int `envconfig:"COMPRESSION_LEVEL" default:"5" json:"level"`
	}

	Cache struct {
		Address      string        `envconfig:"CACHE_ADDRESS" default:"keydb:6379" json:"address"`
		Password     string        `envconfig:"CACHE_PASSWORD" default:"" json:"-"`
		DB           int           `envconfig:"CACHE_DB" default:"0" json:"db"`
		PoolSize     int           `envconfig:"CACHE_POOL_SIZE" default:"10" json:"pool_size"`
		DialTimeout  time.Duration `envconfig:"CACHE_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
		ReadTimeout  time.Duration `envconfig:"CACHE_READ_TIMEOUT" default:"3s" json:"read_timeout"`
		WriteTimeout time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"3s" json:"write_timeout"`
	}

	// CacheBreaker guards KeyDB calls so an outage fails fast instead of
	// costing a timeout on every request.
	CacheBreaker struct {
		Enabled          bool          `envconfig:"CACHE_BREAKER_ENABLED" default:"true" json:"enabled"`
		MaxRequests      uint          `envconfig:"CACHE_BREAKER_MAX_REQUESTS" default:"1" json:"max_requests"`
		Interval         time.Duration `envconfig:"CACHE_BREAKER_INTERVAL" default:"60s" json:"interval"`
		Timeout          time.Duration `envconfig:"CACHE_BREAKER_TIMEOUT" default:"30s" json:"timeout"`
		FailureThreshold uint          `envconfig:"CACHE_BREAKER_FAILURE_THRESHOLD" default:"5" json:"failure_threshold"`
	}

	Logging struct {
		Level     string    `envconfig:"LOG_LEVEL" default:"info" json:"level"`
		Format    string    `envconfig:"LOG_FORMAT" default:"json" json:"format"`
		AccessLog AccessLog `json:"access_log"`
	}

	AccessLog struct {
		Enabled            bool `envconfig:"ACCESS_LOG_ENABLED" default:"true" json:"enabled"`
		LogHealthChecks    bool `envconfig:"ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
		IncludeQueryParams bool `envconfig:"ACCESS_LOG_INCLUDE_QUERY_PARAMS" default:"true" json:"include_query_params"`
	}

	Telemetry struct {
		Enabled      bool    `envconfig:"OTEL_ENABLED" default:"false" json:"enabled"`
		ExporterType string  `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`
		OTLPEndpoint string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"" json:"otlp_endpoint"`
		Metrics      Metrics `json:"metrics"`
		Traces       Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled   bool   `envconfig:"METRICS_ENABLED" default:"true" json:"enabled"`
		Namespace string `envconfig:"METRICS_NAMESPACE" default:"devicely" json:"namespace"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1.0" json:"sampler_ratio"`
	}
)

func (c *ServiceConfig) GetEnvironment() int {
	switch c.App.Env.Name {
	case "production", "prod":
		return Production
	case "staging", "stg":
		return Staging
	case "sandbox", "sbx":
		return Sandbox
	default:
		return Development
	}
}

func (c *ServiceConfig) IsProduction() bool {
	return c.GetEnvironment() == Production
}

func (s HTTPServer) Address() string {
	return net.JoinHostPort(s.Host, strconv.FormatUint(uint64(s.Port), 10))
}

func (s GRPCServer) Address() string {
	return net.JoinHostPort(s.Host, strconv.FormatUint(uint64(s.Port), 10))
}

// DSN renders the connection string understood by pgxpool.ParseConfig.
func (d Database) DSN() string {
	query := url.Values{}
	query.Set("sslmode", d.SSLMode)
	query.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Seconds())))

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.FormatUint(uint64(d.Port), 10)),
		Path:     "/" + d.Database,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}
