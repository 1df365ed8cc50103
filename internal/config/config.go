package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/pkg/publish"
)

const (
	// DefaultAddr is the default listen address of pulse serve.
	DefaultAddr = ":8080"

	// DefaultPublishKey is the object key rendered output is written to.
	DefaultPublishKey = "index.html"

	// DefaultNamespace prefixes every exported metric.
	DefaultNamespace = "pulse"

	DefaultSendBuffer      = 64
	DefaultWriteTimeout    = "10s"
	DefaultShutdownTimeout = "5s"
)

// FileNames are the configuration file names searched, in order.
var FileNames = []string{"pulse.json", "pulse.yaml", "pulse.yml", "pulse.toml"}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	exporters  = []string{"none", "stdout", "otlp"}
)

// Config is the complete pulse configuration.
type Config struct {
	// Title heads the rendered board.
	Title string `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`

	// Items is a JSON file with the initial items, relative to the config.
	Items string `json:"items,omitempty" yaml:"items,omitempty" toml:"items,omitempty"`

	Serve   ServeConfig   `json:"serve" yaml:"serve" toml:"serve"`
	Publish PublishConfig `json:"publish" yaml:"publish" toml:"publish"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing" toml:"tracing"`
	Log     LogConfig     `json:"log" yaml:"log" toml:"log"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServeConfig configures the live server.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr,omitempty"`

	// SendBuffer is the number of patches queued per client before it is
	// dropped.
	SendBuffer int `json:"sendBuffer,omitempty" yaml:"sendBuffer,omitempty" toml:"sendBuffer,omitempty"`

	// WriteTimeout bounds each WebSocket write (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty" toml:"writeTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "5s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty" toml:"shutdownTimeout,omitempty"`

	// AllowedOrigins lists extra WebSocket origins. Same-origin is always
	// allowed.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty" toml:"allowedOrigins,omitempty"`

	// AccessLog logs every request.
	AccessLog bool `json:"accessLog,omitempty" yaml:"accessLog,omitempty" toml:"accessLog,omitempty"`

	// MutationRate limits API changes per second. Zero means unlimited.
	MutationRate float64 `json:"mutationRate,omitempty" yaml:"mutationRate,omitempty" toml:"mutationRate,omitempty"`

	// MutationBurst is the number of changes allowed at once.
	MutationBurst int `json:"mutationBurst,omitempty" yaml:"mutationBurst,omitempty" toml:"mutationBurst,omitempty"`
}

// PublishConfig configures where rendered output goes.
type PublishConfig struct {
	// Target is a directory, an s3:// or gs://bucket/prefix URL, or a
	// redis:// server URL. Empty disables publishing.
	Target string `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`

	// Key is the file or object name under Target.
	Key string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`

	// Region, Endpoint and PathStyle configure the S3 client.
	Region    string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty" toml:"pathStyle,omitempty"`

	// CredentialsFile is a service account key for gs:// targets. Empty
	// uses Application Default Credentials.
	CredentialsFile string `json:"credentialsFile,omitempty" yaml:"credentialsFile,omitempty" toml:"credentialsFile,omitempty"`

	// RedisPrefix is prepended to keys stored on a redis:// target.
	RedisPrefix string `json:"redisPrefix,omitempty" yaml:"redisPrefix,omitempty" toml:"redisPrefix,omitempty"`

	// MaxSize limits a directory publish in bytes (0 = no limit).
	MaxSize int64 `json:"maxSize,omitempty" yaml:"maxSize,omitempty" toml:"maxSize,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty" toml:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Exporter is "none", "stdout" or "otlp".
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty" toml:"exporter,omitempty"`

	// Endpoint and Insecure configure the OTLP gRPC collector.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	Insecure bool   `json:"insecure,omitempty" yaml:"insecure,omitempty" toml:"insecure,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the first configuration file found in dir.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("P100").
		WithDetail("No pulse.json, pulse.yaml, pulse.yml or pulse.toml found in " + dir).
		WithSuggestion("Run 'pulse init' to write a default pulse.yaml")
}

// LoadFile reads configuration from path. The extension selects the format.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("P100").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("P101").Wrap(err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			perr := errors.New("P101").Wrap(err).
				WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
			if line, col, ok := jsonPosition(data, err); ok {
				perr.WithLocation(path, line, col)
			}
			return nil, perr
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			perr := errors.New("P101").Wrap(err).
				WithSuggestion("Check indentation and quoting in " + filepath.Base(path))
			if line, ok := yamlLine(err); ok {
				perr.WithLocation(path, line, 0)
			}
			return nil, perr
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			perr := errors.New("P101").Wrap(err).
				WithSuggestion("Check quoting and table headers in " + filepath.Base(path))
			if pe, ok := err.(toml.ParseError); ok {
				perr.WithLocation(path, pe.Position.Line, 0)
			}
			return nil, perr
		}
	default:
		return nil, errors.New("P103").WithDetail("Unsupported extension " + strconv.Quote(ext))
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// jsonPosition converts a decoder offset into a line and column.
func jsonPosition(data []byte, err error) (line, col int, ok bool) {
	var offset int64
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = e.Offset
	case *json.UnmarshalTypeError:
		offset = e.Offset
	default:
		return 0, 0, false
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte("\n")) + 1
	col = int(offset) - bytes.LastIndexByte(before, '\n') - 1
	if col < 1 {
		col = 1
	}
	return line, col, true
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// yamlLine extracts the first line number from a yaml.v3 error.
func yamlLine(err error) (int, bool) {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	n, convErr := strconv.Atoi(m[1])
	return n, convErr == nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as YAML, JSON or TOML by
// extension.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	default:
		return errors.New("P103").WithDetail("Cannot write " + path)
	}
	if err != nil {
		return errors.New("P101").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("P101").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = "pulse"
	}

	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultAddr
	}
	if c.Serve.SendBuffer == 0 {
		c.Serve.SendBuffer = DefaultSendBuffer
	}
	if c.Serve.WriteTimeout == "" {
		c.Serve.WriteTimeout = DefaultWriteTimeout
	}
	if c.Serve.ShutdownTimeout == "" {
		c.Serve.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Publish.Key == "" {
		c.Publish.Key = DefaultPublishKey
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}

	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "none"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the configuration for values pulse cannot use.
func (c *Config) Validate() error {
	if c.Serve.SendBuffer < 0 {
		return invalid("serve.sendBuffer must not be negative")
	}
	for field, value := range map[string]string{
		"serve.writeTimeout":    c.Serve.WriteTimeout,
		"serve.shutdownTimeout": c.Serve.ShutdownTimeout,
	} {
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return invalid(fmt.Sprintf("%s %q is not a positive duration", field, value)).
				WithSuggestion("Use a Go duration such as 10s or 500ms")
		}
	}
	if c.Serve.MutationRate < 0 || c.Serve.MutationBurst < 0 {
		return invalid("serve.mutationRate and serve.mutationBurst must not be negative")
	}
	if c.Publish.MaxSize < 0 {
		return invalid("publish.maxSize must not be negative")
	}
	if target := c.Publish.Target; strings.HasPrefix(target, "s3://") || strings.HasPrefix(target, "gs://") {
		_, _, okS3 := publish.ParseS3URL(target)
		_, _, okGCS := publish.ParseGCSURL(target)
		if !okS3 && !okGCS {
			return errors.New("P300").WithDetail(fmt.Sprintf("%q has no bucket", target))
		}
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		return invalid(fmt.Sprintf("log.level %q", c.Log.Level)).
			WithSuggestion("Use one of: " + strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return invalid(fmt.Sprintf("log.format %q", c.Log.Format)).
			WithSuggestion("Use one of: " + strings.Join(logFormats, ", "))
	}
	if !slices.Contains(exporters, c.Tracing.Exporter) {
		return invalid(fmt.Sprintf("tracing.exporter %q", c.Tracing.Exporter)).
			WithSuggestion("Use one of: " + strings.Join(exporters, ", "))
	}
	return nil
}

func invalid(detail string) *errors.PulseError {
	return errors.New("P102").WithDetail(detail)
}

// WriteTimeout returns Serve.WriteTimeout, or zero if it does not parse.
func (c *Config) WriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Serve.WriteTimeout)
	return d
}

// ShutdownTimeout returns Serve.ShutdownTimeout, or zero if it does not parse.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Serve.ShutdownTimeout)
	return d
}

// LogLevel maps Log.Level to a slog level.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ItemsPath returns the absolute path of the items file, or "" if none.
func (c *Config) ItemsPath() string {
	if c.Items == "" || filepath.IsAbs(c.Items) {
		return c.Items
	}
	return filepath.Join(c.Dir(), c.Items)
}

// PublishTarget resolves a directory target against the config directory.
// S3 URLs are returned unchanged.
func (c *Config) PublishTarget() string {
	t := c.Publish.Target
	if t == "" || strings.Contains(t, "://") || filepath.IsAbs(t) {
		return t
	}
	return filepath.Join(c.Dir(), t)
}

// Exists reports whether dir contains a configuration file.
func Exists(dir string) bool {
	for _, name := range FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up from start to the first directory holding a
// configuration file.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("P100").
				WithDetail("No pulse configuration found in " + start + " or any parent directory")
		}
		dir = parent
	}
}
