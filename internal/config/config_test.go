package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}

	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected base URL http://localhost:8000, got %s", cfg.Server.BaseURL)
	}

	if cfg.Polling.Interval != 3*time.Second {
		t.Errorf("Expected poll interval 3s, got %v", cfg.Polling.Interval)
	}

	if cfg.Polling.Timeout != 0 {
		t.Errorf("Expected no poll timeout by default, got %v", cfg.Polling.Timeout)
	}

	if cfg.Output.DefaultFormat != "text" {
		t.Errorf("Expected output format text, got %s", cfg.Output.DefaultFormat)
	}

	if len(cfg.Upload.AllowedExtensions) != 2 {
		t.Errorf("Expected 2 allowed extensions, got %d", len(cfg.Upload.AllowedExtensions))
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	withDefaults := func(mutate func(*Config)) *Config {
		cfg := DefaultConfig()
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "missing base url",
			config:  withDefaults(func(c *Config) { c.Server.BaseURL = "" }),
			wantErr: true,
			errMsg:  "server base_url is required",
		},
		{
			name:    "unsupported scheme",
			config:  withDefaults(func(c *Config) { c.Server.BaseURL = "ftp://contracts.local" }),
			wantErr: true,
			errMsg:  "invalid server base_url: scheme must be http or https",
		},
		{
			name:    "zero timeout",
			config:  withDefaults(func(c *Config) { c.Server.Timeout = 0 }),
			wantErr: true,
			errMsg:  "server timeout must be positive",
		},
		{
			name:    "negative max retries",
			config:  withDefaults(func(c *Config) { c.Server.MaxRetries = -1 }),
			wantErr: true,
			errMsg:  "max_retries must be non-negative",
		},
		{
			name:    "zero poll interval",
			config:  withDefaults(func(c *Config) { c.Polling.Interval = 0 }),
			wantErr: true,
			errMsg:  "polling interval must be positive",
		},
		{
			name:    "extension without dot",
			config:  withDefaults(func(c *Config) { c.Upload.AllowedExtensions = []string{"pdf"} }),
			wantErr: true,
			errMsg:  `invalid upload extension "pdf": must start with a dot`,
		},
		{
			name:    "invalid output format",
			config:  withDefaults(func(c *Config) { c.Output.DefaultFormat = "invalid" }),
			wantErr: true,
			errMsg:  "invalid output format: invalid (must be one of: text, json, markdown, csv, xlsx)",
		},
		{
			name:    "invalid color mode",
			config:  withDefaults(func(c *Config) { c.Output.ColorMode = "invalid" }),
			wantErr: true,
			errMsg:  "invalid color mode: invalid (must be one of: auto, always, never)",
		},
		{
			name:    "xlsx output",
			config:  withDefaults(func(c *Config) { c.Output.DefaultFormat = "xlsx" }),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("Expected error message '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func TestConfigMerging(t *testing.T) {
	dst := DefaultConfig()

	src := &Config{
		Server: ServerConfig{
			BaseURL: "https://contracts.example.com/",
		},
		Polling: PollingConfig{
			Interval: 5 * time.Second,
		},
		Output: OutputConfig{
			DefaultFormat: "json",
			Verbose:       true,
		},
	}

	mergeConfigs(dst, src)

	if dst.Server.BaseURL != "https://contracts.example.com" {
		t.Errorf("Expected trailing slash trimmed, got %s", dst.Server.BaseURL)
	}
	if dst.Polling.Interval != 5*time.Second {
		t.Errorf("Expected poll interval 5s, got %v", dst.Polling.Interval)
	}
	if dst.Output.DefaultFormat != "json" {
		t.Errorf("Expected output format json, got %s", dst.Output.DefaultFormat)
	}
	if !dst.Output.Verbose {
		t.Errorf("Expected verbose to be true")
	}

	// Unset values in source don't override destination
	if dst.Server.Timeout != 30*time.Second {
		t.Errorf("Expected server timeout to remain 30s, got %v", dst.Server.Timeout)
	}
	if dst.Session.HistoryLimit != 20 {
		t.Errorf("Expected history limit to remain 20, got %d", dst.Session.HistoryLimit)
	}
}

func TestExpandPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "relative path",
			input:    "./config.yaml",
			expected: "./config.yaml",
		},
		{
			name:     "absolute path",
			input:    "/etc/contractsum/config.yaml",
			expected: "/etc/contractsum/config.yaml",
		},
		{
			name:  "home directory path",
			input: "~/.config/contractsum/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandPath(tt.input)
			if tt.expected == "" {
				if result == tt.input {
					t.Errorf("Expected path to be expanded, but got same path")
				}
				return
			}
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := GetConfigPaths()
	if len(paths) != 3 {
		t.Fatalf("Expected 3 config paths, got %d", len(paths))
	}

	if paths[0] != "./.contractsum.yaml" {
		t.Errorf("Expected project config first, got %s", paths[0])
	}
	if paths[1] == "~/.config/contractsum/config.yaml" {
		t.Errorf("Expected user config path to be expanded")
	}
	if paths[2] != "/etc/contractsum/config.yaml" {
		t.Errorf("Expected system config last, got %s", paths[2])
	}
}
