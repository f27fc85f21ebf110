package common

import (
	"time"

	"github.com/alwitt/goutils"
	"github.com/spf13/viper"
)

// ===============================================================================
// Common Submodule Config

// HTTPServerTimeoutConfig defines the timeout settings for HTTP server
type HTTPServerTimeoutConfig struct {
	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body in seconds. A zero or negative
	// value means there will be no timeout.
	ReadTimeout int `mapstructure:"read" json:"read" validate:"gte=0"`
	// WriteTimeout is the maximum duration before timing out
	// writes of the response in seconds. A zero or negative value
	// means there will be no timeout.
	WriteTimeout int `mapstructure:"write" json:"write" validate:"gte=0"`
	// IdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled in seconds. If
	// IdleTimeout is zero, the value of ReadTimeout is used. If
	// both are zero, there is no timeout.
	IdleTimeout int `mapstructure:"idle" json:"idle" validate:"gte=0"`
}

// HTTPServerConfig defines the HTTP server parameters
type HTTPServerConfig struct {
	// ListenOn is the interface the HTTP server will listen on
	ListenOn string `mapstructure:"listenOn" json:"listenOn" validate:"required,ip"`
	// Port is the port the HTTP server will listen on
	Port uint16 `mapstructure:"appPort" json:"appPort" validate:"required,gt=0,lt=65536"`
	// Timeouts sets the HTTP timeout settings
	Timeouts HTTPServerTimeoutConfig `mapstructure:"timeoutSecs" json:"timeoutSecs" validate:"required,dive"`
}

// HTTPRequestLogging defines HTTP request logging parameters
type HTTPRequestLogging struct {
	// LogLevel output request logs at this level
	LogLevel goutils.HTTPRequestLogLevel `mapstructure:"logLevel" json:"logLevel" validate:"oneof=warn info debug"`
	// HealthLogLevel output health check logs at this level
	HealthLogLevel goutils.HTTPRequestLogLevel `mapstructure:"healthLogLevel" json:"healthLogLevel" validate:"oneof=warn info debug"`
	// RequestIDHeader is the HTTP header containing the API request ID
	RequestIDHeader string `mapstructure:"requestIDHeader" json:"requestIDHeader"`
	// DoNotLogHeaders is the list of headers to not include in logging metadata
	DoNotLogHeaders []string `mapstructure:"skipHeaders" json:"skipHeaders"`
}

// EndpointConfig defines API endpoint config
type EndpointConfig struct {
	// PathPrefix is the end-point path prefix for the APIs
	PathPrefix string `mapstructure:"pathPrefix" json:"pathPrefix" validate:"required"`
}

// APIConfig defines API settings for a submodule
type APIConfig struct {
	// Endpoint sets API endpoint related parameters
	Endpoint EndpointConfig `mapstructure:"endPoint" json:"endPoint" validate:"required,dive"`
	// RequestLogging sets API request logging parameters
	RequestLogging HTTPRequestLogging `mapstructure:"requestLogging" json:"requestLogging" validate:"required,dive"`
}

// APIServerConfig defines HTTP API / server parameters
type APIServerConfig struct {
	// Enabled whether this API is enabled
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"service" json:"service" validate:"required_with=Enabled,dive"`
	// APIs defines API settings for a submodule
	APIs APIConfig `mapstructure:"apis" json:"apis" validate:"required_with=Enabled,dive"`
}

// HTTPClientRetryConfig HTTP client config retry configuration
type HTTPClientRetryConfig struct {
	// MaxAttempts max number of retry attempts
	MaxAttempts int `mapstructure:"maxAttempts" json:"maxAttempts" validate:"gte=0"`
	// InitWaitTimeInSec wait time before the first wait retry
	InitWaitTimeInSec uint32 `mapstructure:"initialWaitTimeInSec" json:"initialWaitTimeInSec" validate:"gte=1"`
	// MaxWaitTimeInSec max wait time
	MaxWaitTimeInSec uint32 `mapstructure:"maxWaitTimeInSec" json:"maxWaitTimeInSec" validate:"gte=1"`
}

// InitWaitTime convert InitWaitTimeInSec to time.Duration
func (c HTTPClientRetryConfig) InitWaitTime() time.Duration {
	return time.Second * time.Duration(c.InitWaitTimeInSec)
}

// MaxWaitTime convert MaxWaitTimeInSec to time.Duration
func (c HTTPClientRetryConfig) MaxWaitTime() time.Duration {
	return time.Second * time.Duration(c.MaxWaitTimeInSec)
}

// HTTPClientConfig HTTP client config targeting `go-resty`
type HTTPClientConfig struct {
	// Retry client retry configuration. See https://github.com/go-resty/resty#retries for details
	Retry HTTPClientRetryConfig `mapstructure:"retry" json:"retry" validate:"required,dive"`
}

// MetricsConfig application metrics config
type MetricsConfig struct {
	// Enabled whether to expose Prometheus metrics
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Server defines HTTP server parameters
	Server HTTPServerConfig `mapstructure:"service" json:"service" validate:"required_with=Enabled,dive"`
	// MetricsEndpoint path to host the Prometheus metrics endpoint
	MetricsEndpoint string `mapstructure:"metricsEndpoint" json:"metricsEndpoint" validate:"required"`
	// MaxRequests max number of metrics requests in parallel to support
	MaxRequests int `mapstructure:"maxRequests" json:"maxRequests" validate:"gte=1"`
}

// ===============================================================================
// Persistence Configuration Structures

// PostgresSSLConfig Postgres connection SSL config
type PostgresSSLConfig struct {
	// Enabled whether to enable SSL when connecting to Postgres
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// CAFile the CA cert file to challenge remote with
	CAFile *string `mapstructure:"caFile" json:"caFile,omitempty" validate:"omitempty,file"`
}

// PostgresConfig Postgres connection config
type PostgresConfig struct {
	// Host Postgres server host
	Host string `mapstructure:"host" json:"host" validate:"required"`
	// Port Postgres server port
	Port uint16 `mapstructure:"port" json:"port" validate:"lte=65535,gte=0"`
	// Database the specific database to use
	Database string `mapstructure:"db" json:"db" validate:"required"`
	// User the user to connect with
	User string `mapstructure:"user" json:"user" validate:"required"`
	// SSL the connection SSL settings
	SSL PostgresSSLConfig `mapstructure:"ssl" json:"ssl" validate:"required,dive"`
}

// SqliteConfig sqlite config
type SqliteConfig struct {
	// DBFile the sqlite DB file path
	DBFile string `mapstructure:"db" json:"db" validate:"required"`
}

// DatabaseConfig persistence backend selection. Exactly one backend is used;
// `sqlite` takes precedence when both are given.
type DatabaseConfig struct {
	// Sqlite sqlite backend config
	Sqlite *SqliteConfig `mapstructure:"sqlite,omitempty" json:"sqlite,omitempty" validate:"omitempty,dive"`
	// Postgres postgres backend config
	Postgres *PostgresConfig `mapstructure:"postgres,omitempty" json:"postgres,omitempty" validate:"omitempty,dive"`
}

// S3Credentials S3 credentials
type S3Credentials struct {
	// AccessKey user access key
	AccessKey string
	// SecretAccessKey user secret access key
	SecretAccessKey string
}

// S3Config S3 object store config
type S3Config struct {
	// ServerEndpoint S3 server endpoint
	ServerEndpoint string `mapstructure:"endpoint" json:"endpoint" validate:"required"`
	// UseTLS whether to TLS when connecting
	UseTLS bool `mapstructure:"useTLS" json:"useTLS"`
	// Creds S3 credentials
	Creds *S3Credentials `mapstructure:"creds" json:"creds,omitempty" validate:"omitempty,dive"`
}

// ===============================================================================
// Housekeeping Configuration Structures

// HousekeepingConfig periodic reconciliation job scheduling config
type HousekeepingConfig struct {
	// HistoryTrimIntInSec interval in secs between history / queue trim runs
	HistoryTrimIntInSec uint32 `mapstructure:"historyTrimIntInSec" json:"historyTrimIntInSec" validate:"gte=60"`
	// StorageGCIntInSec interval in secs between storage garbage collection runs
	StorageGCIntInSec uint32 `mapstructure:"storageGCIntInSec" json:"storageGCIntInSec" validate:"gte=60"`
	// ReactivationIntInSec interval in secs between streamer reactivation runs
	ReactivationIntInSec uint32 `mapstructure:"reactivationIntInSec" json:"reactivationIntInSec" validate:"gte=60"`
}

// HistoryTrimInt convert HistoryTrimIntInSec to time.Duration
func (c HousekeepingConfig) HistoryTrimInt() time.Duration {
	return time.Second * time.Duration(c.HistoryTrimIntInSec)
}

// StorageGCInt convert StorageGCIntInSec to time.Duration
func (c HousekeepingConfig) StorageGCInt() time.Duration {
	return time.Second * time.Duration(c.StorageGCIntInSec)
}

// ReactivationInt convert ReactivationIntInSec to time.Duration
func (c HousekeepingConfig) ReactivationInt() time.Duration {
	return time.Second * time.Duration(c.ReactivationIntInSec)
}

// ===============================================================================
// Event Webhook Configuration Structures

// WebhookConfig session event webhook dispatch config
type WebhookConfig struct {
	// TargetURL URL to send session events to
	TargetURL string `mapstructure:"targetURL" json:"targetURL" validate:"required,url"`
	// RequestIDHeader request ID header name to set when dispatching
	RequestIDHeader string `mapstructure:"requestIDHeader" json:"requestIDHeader" validate:"required"`
	// Client HTTP client config. This is designed to support `go-resty`
	Client HTTPClientConfig `mapstructure:"client" json:"client" validate:"required,dive"`
}

// ===============================================================================
// Complete Configuration Structures

// ServiceNodeConfig define service node settings and behavior
type ServiceNodeConfig struct {
	// Metrics metrics framework configuration
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics" validate:"required,dive"`
	// Database persistence backend configuration
	Database DatabaseConfig `mapstructure:"database" json:"database" validate:"required,dive"`
	// IngestAPIServer broadcast ingest callback REST API server config
	IngestAPIServer APIServerConfig `mapstructure:"ingestAPI" json:"ingestAPI" validate:"required,dive"`
	// S3 object store config used by "s3" backed storage locations
	S3 S3Config `mapstructure:"s3" json:"s3" validate:"required,dive"`
	// Housekeeping periodic reconciliation job config
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping" json:"housekeeping" validate:"required,dive"`
	// Webhook optionally, session event webhook dispatch config
	Webhook *WebhookConfig `mapstructure:"webhook,omitempty" json:"webhook,omitempty" validate:"omitempty,dive"`
}

// ===============================================================================
// Default Configuration Setter

// InstallDefaultServiceNodeConfigValues installs default config parameters in
// viper for the service node
func InstallDefaultServiceNodeConfigValues() {
	// Default metrics config
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.metricsEndpoint", "/metrics")
	viper.SetDefault("metrics.maxRequests", 4)
	// Default metrics HTTP server config
	viper.SetDefault("metrics.service.listenOn", "0.0.0.0")
	viper.SetDefault("metrics.service.appPort", 3001)
	viper.SetDefault("metrics.service.timeoutSecs.read", 60)
	viper.SetDefault("metrics.service.timeoutSecs.write", 60)
	viper.SetDefault("metrics.service.timeoutSecs.idle", 60)

	// Default ingest callback API server config
	viper.SetDefault("ingestAPI.enabled", true)
	viper.SetDefault("ingestAPI.service.listenOn", "0.0.0.0")
	viper.SetDefault("ingestAPI.service.appPort", 8080)
	viper.SetDefault("ingestAPI.service.timeoutSecs.read", 60)
	viper.SetDefault("ingestAPI.service.timeoutSecs.write", 60)
	viper.SetDefault("ingestAPI.service.timeoutSecs.idle", 60)
	viper.SetDefault("ingestAPI.apis.endPoint.pathPrefix", "/")
	viper.SetDefault("ingestAPI.apis.requestLogging.logLevel", "warn")
	viper.SetDefault("ingestAPI.apis.requestLogging.healthLogLevel", "debug")
	viper.SetDefault("ingestAPI.apis.requestLogging.requestIDHeader", "X-Request-ID")
	viper.SetDefault("ingestAPI.apis.requestLogging.skipHeaders", []string{
		"WWW-Authenticate", "Authorization", "Proxy-Authenticate", "Proxy-Authorization",
	})

	// Default Postgres config
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.ssl.enabled", false)

	// Default housekeeping config
	viper.SetDefault("housekeeping.historyTrimIntInSec", 3600)
	viper.SetDefault("housekeeping.storageGCIntInSec", 3600)
	viper.SetDefault("housekeeping.reactivationIntInSec", 300)

	// Default webhook dispatch client config
	viper.SetDefault("webhook.requestIDHeader", "X-Request-ID")
	viper.SetDefault("webhook.client.retry.maxAttempts", 5)
	viper.SetDefault("webhook.client.retry.initialWaitTimeInSec", 2)
	viper.SetDefault("webhook.client.retry.maxWaitTimeInSec", 30)
}
