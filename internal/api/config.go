package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultTimeout        = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultUserAgent      = "contractsum/dev"

	apiPrefix = "api/v1"
)

// Config configures the backend client
type Config struct {
	BaseURL           string        `json:"base_url"`
	Timeout           time.Duration `json:"timeout"`
	MaxRetries        int           `json:"max_retries"`
	RetryBaseDelay    time.Duration `json:"retry_base_delay"`
	RequestsPerSecond float64       `json:"requests_per_second"` // 0 disables rate limiting
	Burst             int           `json:"burst"`
	AllowedExtensions []string      `json:"allowed_extensions"` // empty allows any file
	MaxFileSize       int64         `json:"max_file_size"`      // bytes, 0 = unlimited
	UserAgent         string        `json:"user_agent"`
}

// DefaultConfig returns the client defaults
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		RequestsPerSecond: 5,
		Burst:             10,
		AllowedExtensions: []string{".pdf", ".docx"},
		UserAgent:         DefaultUserAgent,
	}
}

// Validate checks the client configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return NewAPIError(ErrTypeConfiguration, "config", "base URL is required")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return NewAPIErrorWithCause(ErrTypeConfiguration, "config", "invalid base URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewAPIError(ErrTypeConfiguration, "config", fmt.Sprintf("unsupported base URL scheme %q", u.Scheme))
	}

	if c.Timeout <= 0 {
		return NewAPIError(ErrTypeConfiguration, "config", "timeout must be positive")
	}

	if c.MaxRetries < 0 {
		return NewAPIError(ErrTypeConfiguration, "config", "max retries must be non-negative")
	}

	if c.RequestsPerSecond < 0 {
		return NewAPIError(ErrTypeConfiguration, "config", "requests per second must be non-negative")
	}

	for _, ext := range c.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return NewAPIError(ErrTypeConfiguration, "config", fmt.Sprintf("extension %q must start with a dot", ext))
		}
	}

	return nil
}
