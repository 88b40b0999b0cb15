package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, the operational HTTP server,
// database connection, background workers, verification scheduling, mail
// delivery and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains settings of the operational HTTP server (metrics, pprof, health)
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Database contains all database connection related configurations
	Database struct {
		// Username for database authentication
		Username string `env:"DATABASE_USERNAME" env-default:"myuser" yaml:"username"`
		// Password for database authentication
		Password string `env:"DATABASE_PASSWORD" env-default:"mypassword" yaml:"password"`
		// Host is the database server hostname or IP address
		Host string `env:"DATABASE_HOST" env-default:"localhost" yaml:"host"`
		// Port is the database server port number
		Port int `env:"DATABASE_PORT" env-default:"5432" yaml:"port"`
		// SslMode defines the SSL mode for the database connection
		SslMode string `env:"DATABASE_SSL_MODE" env-default:"disable" yaml:"sslMode"`
		// DatabaseName is the name of the database to connect to
		DatabaseName string `env:"DATABASE_NAME" env-default:"domainstack" yaml:"name"`
		// MaxOpenConnections limits the number of open connections to the database
		MaxOpenConnections int `env:"DATABASE_MAX_OPEN_CONNECTIONS" env-default:"10" yaml:"maxOpenConnections"`
		// MaxIdleConnections limits the number of connections in the idle connection pool
		MaxIdleConnections int `env:"DATABASE_MAX_IDLE_CONNECTIONS" env-default:"8" yaml:"maxIdleConnections"`
		// ConnMaxLifetime is the maximum amount of time a connection may be reused
		ConnMaxLifetime time.Duration `env:"DATABASE_CONNECTION_MAX_LIFETIME" env-default:"3m" yaml:"connMaxLifetime"`
		// ConnMaxIdleTime is the maximum amount of time a connection may be idle
		ConnMaxIdleTime time.Duration `env:"DATABASE_CONNECTION_MAX_IDLE_TIME" env-default:"3m" yaml:"connMaxIdleTime"`
	} `yaml:"database"`

	// Verification controls the ownership verification schedule and grace period
	Verification struct {
		// ScheduleBase is the snooze after the first failed automatic attempt
		ScheduleBase time.Duration `env:"VERIFICATION_SCHEDULE_BASE" env-default:"30m" yaml:"scheduleBase"`
		// ScheduleCap bounds the growth of the snooze interval
		ScheduleCap time.Duration `env:"VERIFICATION_SCHEDULE_CAP" env-default:"24h" yaml:"scheduleCap"`
		// ScheduleWindow is how long after creation automatic attempts keep running
		ScheduleWindow time.Duration `env:"VERIFICATION_SCHEDULE_WINDOW" env-default:"720h" yaml:"scheduleWindow"`
		// GracePeriod is how long a verified domain keeps its status after its proof disappears
		GracePeriod time.Duration `env:"VERIFICATION_GRACE_PERIOD" env-default:"168h" yaml:"gracePeriod"`
		// ManualMinInterval rate-limits user-triggered verification checks per domain
		ManualMinInterval time.Duration `env:"VERIFICATION_MANUAL_MIN_INTERVAL" env-default:"1m" yaml:"manualMinInterval"` //nolint: lll
	} `yaml:"verification"`

	// Worker controls the background job runtime
	Worker struct {
		// MaxWorkers caps concurrent jobs in the default queue
		MaxWorkers int `env:"WORKER_MAX_WORKERS" env-default:"100" yaml:"maxWorkers"`
		// MonitorInterval is how often change-detection runs are scheduled over all verified domains
		MonitorInterval time.Duration `env:"WORKER_MONITOR_INTERVAL" env-default:"1h" yaml:"monitorInterval"`
		// GraceSweepInterval is how often verified domains are re-validated
		GraceSweepInterval time.Duration `env:"WORKER_GRACE_SWEEP_INTERVAL" env-default:"12h" yaml:"graceSweepInterval"`
	} `yaml:"worker"`

	// Probe controls timeouts of outbound lookups performed during runs
	Probe struct {
		// DNSTimeout bounds each DNS lookup
		DNSTimeout time.Duration `env:"PROBE_DNS_TIMEOUT" env-default:"5s" yaml:"dnsTimeout"`
		// HTTPTimeout bounds each HTTP fetch including redirects
		HTTPTimeout time.Duration `env:"PROBE_HTTP_TIMEOUT" env-default:"10s" yaml:"httpTimeout"`
		// TLSTimeout bounds the TLS handshake used to read certificate chains
		TLSTimeout time.Duration `env:"PROBE_TLS_TIMEOUT" env-default:"10s" yaml:"tlsTimeout"`
	} `yaml:"probe"`

	// SMTP configures outbound notification mail. Leaving Addr empty disables
	// the email transport (notifications still get in-app records).
	SMTP struct {
		// Addr is the relay address as host:port
		Addr string `env:"SMTP_ADDR" env-default:"" yaml:"addr"`
		// From is the sender address on outgoing notifications
		From string `env:"SMTP_FROM" env-default:"notifications@domainstack.local" yaml:"from"`
		// Username for relay authentication; empty skips auth
		Username string `env:"SMTP_USERNAME" env-default:"" yaml:"username"`
		// Password for relay authentication
		Password string `env:"SMTP_PASSWORD" env-default:"" yaml:"password"`
		// RecipientEmail is where notification mail is delivered
		RecipientEmail string `env:"SMTP_RECIPIENT_EMAIL" env-default:"" yaml:"recipientEmail"`
	} `yaml:"smtp"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing work to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
