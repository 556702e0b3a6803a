package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, the upstream
// VirusTotal API, the scan orchestration and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`
	// LogLevel overrides the environment's default log level when set
	LogLevel string `env:"LOG_LEVEL" yaml:"logLevel"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Host is the interface the HTTP server binds to; empty means all interfaces
		Host string `env:"HTTP_HOST" env-default:"" yaml:"host"`
		// Port is the TCP port the HTTP server listens on
		Port int `env:"PORT" env-default:"3000" yaml:"port"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"30s" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout bounds a single request, including every upstream call and poll wait
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"1m" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MaxBodyBytes limits the size of an inbound scan request body
		MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" env-default:"65536" yaml:"maxBodyBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// VirusTotal contains the upstream API settings
	VirusTotal struct {
		// APIKey is the secret sent in the x-apikey header; scans fail per request when empty
		APIKey string `env:"VIRUSTOTAL_API_KEY" yaml:"apiKey"`
		// BaseURL is the scheme and host of the API
		BaseURL string `env:"VIRUSTOTAL_BASE_URL" env-default:"https://www.virustotal.com" yaml:"baseUrl"`
		// Timeout bounds each individual upstream HTTP call
		Timeout time.Duration `env:"VIRUSTOTAL_TIMEOUT" env-default:"15s" yaml:"timeout"`
	} `yaml:"virustotal"`

	// Scanner contains the poll loop settings
	Scanner struct {
		// PollAttempts is the maximum number of analysis reads before falling back
		PollAttempts int `env:"SCANNER_POLL_ATTEMPTS" env-default:"5" yaml:"pollAttempts"`
		// PollInterval is the fixed wait between two analysis reads
		PollInterval time.Duration `env:"SCANNER_POLL_INTERVAL" env-default:"2s" yaml:"pollInterval"`
	} `yaml:"scanner"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"30s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

// Load receives the path for a yaml or .env config file and returns a filled
// Config struct. Environment variables override file values. When the file
// does not exist, configuration is read from the environment only.
func Load(configPath string) (*Config, error) {
	var cfg Config

	_, err := os.Stat(configPath)
	switch {
	case err == nil:
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("could not read config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("could not stat config file: %w", err)
	}

	if cfg.Scanner.PollAttempts < 1 {
		return nil, fmt.Errorf("scanner poll attempts must be positive, got %d", cfg.Scanner.PollAttempts)
	}

	return &cfg, nil
}
