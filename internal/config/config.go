package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/prop/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "propctl.yaml"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log format.
	DefaultLogFormat = "text"

	// DefaultWatchFormat is the default format of the watched stream.
	DefaultWatchFormat = "json"

	// DefaultAddr is the default listen address of propctl serve.
	DefaultAddr = ":8080"

	// DefaultWSPath is the default WebSocket route.
	DefaultWSPath = "/ws"

	// DefaultWriteTimeout bounds WebSocket frame writes.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "prop"

	// DefaultMetricsPath is the default metrics route.
	DefaultMetricsPath = "/metrics"

	// DefaultServiceName is the default OpenTelemetry service name.
	DefaultServiceName = "propctl"
)

var (
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"text", "json"}
	watchFormats = []string{"json", "yaml"}
)

// Config represents the complete propctl configuration.
type Config struct {
	// Log contains logging configuration.
	Log LogConfig `yaml:"log"`

	// Watch contains propctl watch configuration.
	Watch WatchConfig `yaml:"watch"`

	// Serve contains propctl serve configuration.
	Serve ServeConfig `yaml:"serve"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Trace contains OpenTelemetry configuration.
	Trace TraceConfig `yaml:"trace"`

	// Redis contains the optional Redis channel bridged by propctl serve.
	Redis RedisConfig `yaml:"redis"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"PROPCTL_LOG_LEVEL"`

	// Format is text or json.
	Format string `yaml:"format" env:"PROPCTL_LOG_FORMAT"`
}

// WatchConfig contains propctl watch settings.
type WatchConfig struct {
	// File is the document stream to read. Empty or "-" reads stdin.
	File string `yaml:"file" env:"PROPCTL_WATCH_FILE"`

	// Format is the stream format, json or yaml.
	Format string `yaml:"format" env:"PROPCTL_WATCH_FORMAT"`

	// Paths are the dot-separated paths to print.
	Paths []string `yaml:"paths,omitempty" env:"PROPCTL_WATCH_PATHS" envSeparator:","`
}

// ServeConfig contains propctl serve settings.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr" env:"PROPCTL_SERVE_ADDR"`

	// Path is the WebSocket route.
	Path string `yaml:"path" env:"PROPCTL_SERVE_PATH"`

	// ReadOnly makes the hub ignore client writes.
	ReadOnly bool `yaml:"readOnly" env:"PROPCTL_SERVE_READ_ONLY"`

	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"PROPCTL_SERVE_WRITE_TIMEOUT"`

	// AllowedOrigins lists the origins allowed to connect. Empty allows
	// same-origin requests only; "*" allows any.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty" env:"PROPCTL_SERVE_ALLOWED_ORIGINS" envSeparator:","`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes the metrics route.
	Enabled bool `yaml:"enabled" env:"PROPCTL_METRICS_ENABLED"`

	// Namespace is the metrics namespace.
	Namespace string `yaml:"namespace" env:"PROPCTL_METRICS_NAMESPACE"`

	// Path is the metrics route.
	Path string `yaml:"path" env:"PROPCTL_METRICS_PATH"`
}

// TraceConfig contains OpenTelemetry settings.
type TraceConfig struct {
	// Enabled turns on span export.
	Enabled bool `yaml:"enabled" env:"PROPCTL_TRACE_ENABLED"`

	// Endpoint is the OTLP/HTTP collector URL.
	Endpoint string `yaml:"endpoint" env:"PROPCTL_TRACE_ENDPOINT"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"serviceName" env:"PROPCTL_TRACE_SERVICE_NAME"`
}

// EndpointURL parses Endpoint as an absolute http or https collector URL.
func (t TraceConfig) EndpointURL() (*url.URL, error) {
	if t.Endpoint == "" {
		return nil, errors.New("E102").
			WithDetail("trace.enabled is set but trace.endpoint is empty.").
			WithSuggestion(traceEndpointHint)
	}
	u, err := url.Parse(t.Endpoint)
	if err != nil {
		return nil, errors.New("E102").
			WithDetail("trace.endpoint " + t.Endpoint + " is not a URL.").
			WithSuggestion(traceEndpointHint).
			Wrap(err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("E102").
			WithDetail("trace.endpoint " + t.Endpoint + " needs an http or https scheme and a host.").
			WithSuggestion(traceEndpointHint)
	}
	return u, nil
}

const traceEndpointHint = "Set trace.endpoint to an OTLP/HTTP collector, e.g. http://localhost:4318"

// RedisConfig contains the Redis bridge settings. Empty Addr disables it.
type RedisConfig struct {
	// Addr is the Redis server address.
	Addr string `yaml:"addr" env:"PROPCTL_REDIS_ADDR"`

	// Channel is the pub/sub channel mirrored into the served prop.
	Channel string `yaml:"channel" env:"PROPCTL_REDIS_CHANNEL"`
}

// New creates a new Config with default values.
func New() *Config {
	c := &Config{Metrics: MetricsConfig{Enabled: true}}
	c.applyDefaults()
	return c
}

// Load loads the configuration from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads the configuration from a specific file path. Unknown keys
// are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("E100").
				WithDetail("No configuration file at " + path + ".").
				WithSuggestion("Create " + ConfigFileName + " or pass --config").
				Wrap(err)
		}
		return nil, errors.New("E100").Wrap(err)
	}

	c := &Config{Metrics: MetricsConfig{Enabled: true}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.New("E100").
			WithLocationFromError(path, err).
			Wrap(err)
	}

	c.configPath = path
	c.applyDefaults()
	return c, nil
}

// Resolve builds the effective configuration: the file at path, or
// propctl.yaml in the working directory when path is empty and that file
// exists, or the defaults; then environment overrides, then validation.
func Resolve(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	switch {
	case path != "":
		c, err = LoadFile(path)
	case fileExists(ConfigFileName):
		c, err = LoadFile(ConfigFileName)
	default:
		c = New()
	}
	if err != nil {
		return nil, err
	}

	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides fields from PROPCTL_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return errors.New("E101").Wrap(err)
	}
	return nil
}

// Path returns the path where the config was loaded from, or "".
func (c *Config) Path() string {
	return c.configPath
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Watch.Format == "" {
		c.Watch.Format = DefaultWatchFormat
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultAddr
	}
	if c.Serve.Path == "" {
		c.Serve.Path = DefaultWSPath
	}
	if c.Serve.WriteTimeout == 0 {
		c.Serve.WriteTimeout = DefaultWriteTimeout
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Trace.ServiceName == "" {
		c.Trace.ServiceName = DefaultServiceName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(logLevels, c.Log.Level) {
		return invalid("log.level", c.Log.Level, logLevels)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return invalid("log.format", c.Log.Format, logFormats)
	}
	if !slices.Contains(watchFormats, c.Watch.Format) {
		return invalid("watch.format", c.Watch.Format, watchFormats)
	}
	for _, p := range c.Watch.Paths {
		if _, err := SplitPath(p); err != nil {
			return err
		}
	}
	if _, _, err := net.SplitHostPort(c.Serve.Addr); err != nil {
		return errors.New("E102").
			WithDetail("serve.addr " + c.Serve.Addr + " is not a host:port address.").
			WithSuggestion("Use a value such as :8080 or 127.0.0.1:8080").
			Wrap(err)
	}
	for _, route := range []string{c.Serve.Path, c.Metrics.Path} {
		if !strings.HasPrefix(route, "/") {
			return errors.New("E102").
				WithDetail("Route " + route + " must start with /.")
		}
	}
	if c.Serve.WriteTimeout < 0 {
		return errors.New("E102").WithDetail("serve.writeTimeout must not be negative.")
	}
	if c.Trace.Enabled {
		if _, err := c.Trace.EndpointURL(); err != nil {
			return err
		}
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		return errors.New("E102").
			WithDetail("redis.addr is set but redis.channel is empty.")
	}
	return nil
}

// SplitPath splits a dot-separated watch path into keys. Empty segments are
// rejected; "." alone addresses the document root.
func SplitPath(path string) ([]string, error) {
	if path == "." {
		return nil, nil
	}
	keys := strings.Split(path, ".")
	if slices.Contains(keys, "") {
		return nil, errors.New("E202").
			WithDetail("Watch path " + `"` + path + `"` + " has an empty segment.").
			WithExample("propctl watch --path server.port")
	}
	return keys, nil
}

func invalid(field, value string, allowed []string) error {
	return errors.New("E102").
		WithDetail(field + " is " + `"` + value + `"` + ".").
		WithSuggestion(field + " must be one of " + strings.Join(allowed, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
