package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version string        `yaml:"version" json:"version"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Session SessionConfig `yaml:"session" json:"session"`
	Polling PollingConfig `yaml:"polling" json:"polling"`
	Upload  UploadConfig  `yaml:"upload" json:"upload"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Output  OutputConfig  `yaml:"output" json:"output"`
}

// ServerConfig configures the connection to the contracts API
type ServerConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`                       // API root, e.g. http://localhost:8000
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`                         // per-request timeout
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`                 // retries for idempotent requests
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"` // client-side rate limit
	Burst             int           `yaml:"burst" json:"burst"`
}

// SessionConfig configures where the bearer token is kept
type SessionConfig struct {
	File         string `yaml:"file" json:"file"`
	HistoryLimit int    `yaml:"history_limit" json:"history_limit"`
}

// PollingConfig configures analysis status polling
type PollingConfig struct {
	Interval time.Duration `yaml:"interval" json:"interval"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"` // 0 = poll until terminal
}

// UploadConfig configures contract uploads
type UploadConfig struct {
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
	MaxFileSize       int64    `yaml:"max_file_size" json:"max_file_size"` // bytes, 0 = unlimited
}

// WatchConfig configures drop-folder mode
type WatchConfig struct {
	Debounce  time.Duration `yaml:"debounce" json:"debounce"`
	Recursive bool          `yaml:"recursive" json:"recursive"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat   string `yaml:"default_format" json:"default_format"`     // text|json|markdown|csv|xlsx
	ColorMode       string `yaml:"color_mode" json:"color_mode"`             // auto|always|never
	Verbose         bool   `yaml:"verbose" json:"verbose"`                   // default verbosity
	Theme           string `yaml:"theme" json:"theme"`                       // TUI theme
	TimestampFormat string `yaml:"timestamp_format" json:"timestamp_format"` // time format string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Server: ServerConfig{
			BaseURL:           "http://localhost:8000",
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Session: SessionConfig{
			File:         "~/.config/contractsum/session.yaml",
			HistoryLimit: 20,
		},
		Polling: PollingConfig{
			Interval: 3 * time.Second,
			Timeout:  0,
		},
		Upload: UploadConfig{
			AllowedExtensions: []string{".pdf", ".docx"},
			MaxFileSize:       25 * 1024 * 1024, // 25MB
		},
		Watch: WatchConfig{
			Debounce:  500 * time.Millisecond,
			Recursive: false,
		},
		Output: OutputConfig{
			DefaultFormat:   "text",
			ColorMode:       "auto",
			Verbose:         false,
			Theme:           "default",
			TimestampFormat: "2006-01-02 15:04:05",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateServerConfig(); err != nil {
		return err
	}
	if err := c.validatePollingConfig(); err != nil {
		return err
	}
	if err := c.validateUploadConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	return nil
}

// validateServerConfig validates server-related configuration
func (c *Config) validateServerConfig() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid server base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server base_url: scheme must be http or https")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive")
	}
	if c.Server.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	return nil
}

func (c *Config) validatePollingConfig() error {
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling interval must be positive")
	}
	if c.Polling.Timeout < 0 {
		return fmt.Errorf("polling timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateUploadConfig() error {
	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("invalid upload extension %q: must start with a dot", ext)
		}
	}
	if c.Upload.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be non-negative")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
			"xlsx":     true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: text, json, markdown, csv, xlsx)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}
