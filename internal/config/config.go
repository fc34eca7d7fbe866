package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAddr            = ":8080"
	DefaultUpstreamURL     = "http://localhost:11434"
	DefaultModel           = "llama3.2"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultReadBufferBytes = 32 << 10
	DefaultMaxLineBytes    = 1 << 20
)

// Line modes control how the relay treats NDJSON lines split across upstream reads.
const (
	// LineModeCarry buffers a trailing partial line and joins it with the next read.
	LineModeCarry = "carry"
	// LineModeChunk treats every read as a set of complete lines.
	LineModeChunk = "chunk"
)

// CORS holds opt-in cross-origin settings for browser clients.
type CORS struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; Default fills them in.
type Config struct {
	Addr              string `json:"addr" yaml:"addr" toml:"addr"`
	UpstreamURL       string `json:"upstream_url" yaml:"upstream_url" toml:"upstream_url"`
	DefaultModel      string `json:"default_model" yaml:"default_model" toml:"default_model"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec" toml:"request_timeout_sec"`
	ConnectTimeoutSec int    `json:"connect_timeout_sec" yaml:"connect_timeout_sec" toml:"connect_timeout_sec"`
	ReadyTimeoutSec   int    `json:"ready_timeout_sec" yaml:"ready_timeout_sec" toml:"ready_timeout_sec"`
	MaxBodyBytes      int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	ReadBufferBytes   int    `json:"read_buffer_bytes" yaml:"read_buffer_bytes" toml:"read_buffer_bytes"`
	MaxLineBytes      int    `json:"max_line_bytes" yaml:"max_line_bytes" toml:"max_line_bytes"`
	LineMode          string `json:"line_mode" yaml:"line_mode" toml:"line_mode"`
	LogLevel          string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat         string `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORS              CORS   `json:"cors" yaml:"cors" toml:"cors"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:              DefaultAddr,
		UpstreamURL:       DefaultUpstreamURL,
		DefaultModel:      DefaultModel,
		RequestTimeoutSec: 300,
		ConnectTimeoutSec: 5,
		ReadyTimeoutSec:   2,
		MaxBodyBytes:      DefaultMaxBodyBytes,
		ReadBufferBytes:   DefaultReadBufferBytes,
		MaxLineBytes:      DefaultMaxLineBytes,
		LineMode:          LineModeCarry,
		LogLevel:          "info",
		LogFormat:         "auto",
	}
}

// FromEnv overlays environment variables onto base.
// OLLAMA_URL and MODEL_NAME are honored for compatibility with existing deployments.
func FromEnv(base Config, getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("OLLAMA_URL"); v != "" {
		base.UpstreamURL = v
	}
	if v := getenv("MODEL_NAME"); v != "" {
		base.DefaultModel = v
	}
	if v := getenv("RELAYD_ADDR"); v != "" {
		base.Addr = v
	}
	if v := getenv("RELAYD_LOG_LEVEL"); v != "" {
		base.LogLevel = v
	}
	if v := getenv("RELAYD_LINE_MODE"); v != "" {
		base.LineMode = v
	}
	if v := getenv("RELAYD_REQUEST_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			base.RequestTimeoutSec = n
		}
	}
	return base
}

// Overlay returns base with every non-zero field of o applied on top.
func Overlay(base, o Config) Config {
	if o.Addr != "" {
		base.Addr = o.Addr
	}
	if o.UpstreamURL != "" {
		base.UpstreamURL = o.UpstreamURL
	}
	if o.DefaultModel != "" {
		base.DefaultModel = o.DefaultModel
	}
	if o.RequestTimeoutSec != 0 {
		base.RequestTimeoutSec = o.RequestTimeoutSec
	}
	if o.ConnectTimeoutSec != 0 {
		base.ConnectTimeoutSec = o.ConnectTimeoutSec
	}
	if o.ReadyTimeoutSec != 0 {
		base.ReadyTimeoutSec = o.ReadyTimeoutSec
	}
	if o.MaxBodyBytes != 0 {
		base.MaxBodyBytes = o.MaxBodyBytes
	}
	if o.ReadBufferBytes != 0 {
		base.ReadBufferBytes = o.ReadBufferBytes
	}
	if o.MaxLineBytes != 0 {
		base.MaxLineBytes = o.MaxLineBytes
	}
	if o.LineMode != "" {
		base.LineMode = o.LineMode
	}
	if o.LogLevel != "" {
		base.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		base.LogFormat = o.LogFormat
	}
	if o.CORS.Enabled {
		base.CORS = o.CORS
	}
	return base
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.UpstreamURL)
	if err != nil {
		return fmt.Errorf("upstream_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("upstream_url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("upstream_url: missing host")
	}
	if strings.TrimSpace(c.DefaultModel) == "" {
		return fmt.Errorf("default_model must not be empty")
	}
	switch c.LineMode {
	case LineModeCarry, LineModeChunk:
	default:
		return fmt.Errorf("line_mode: unknown mode %q (want %s or %s)", c.LineMode, LineModeCarry, LineModeChunk)
	}
	if c.RequestTimeoutSec < 0 || c.ConnectTimeoutSec < 0 || c.ReadyTimeoutSec < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxBodyBytes < 0 || c.ReadBufferBytes < 0 || c.MaxLineBytes < 0 {
		return fmt.Errorf("sizes must not be negative")
	}
	return nil
}

// UpstreamBase returns the upstream URL without trailing slashes.
func (c Config) UpstreamBase() string { return strings.TrimRight(c.UpstreamURL, "/") }

// RequestTimeout is the bound on a single upstream exchange; zero disables it.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// ConnectTimeout is the dial timeout for upstream connections.
func (c Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

// ReadyTimeout bounds the upstream ping made by /readyz.
func (c Config) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutSec) * time.Second
}
