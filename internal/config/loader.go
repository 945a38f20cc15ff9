package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.contractsum.yaml",               // Project-specific config (highest priority)
	"~/.config/contractsum/config.yaml", // User config
	"/etc/contractsum/config.yaml",      // System config (lowest priority)
}

// EnvFiles are dotenv files read before environment overrides are applied.
// Variables already present in the process environment always win.
var EnvFiles = []string{".env"}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	envFiles    []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		envFiles:    EnvFiles,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables (including .env files)
// 3. ./.contractsum.yaml
// 4. ~/.config/contractsum/config.yaml
// 5. /etc/contractsum/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := ExpandPath(l.configPaths[i])
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	l.loadEnvFiles()

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	// Booleans are merged separately so an explicit false still applies
	var flags fileBools
	if err := yaml.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	flags.apply(config)

	return nil
}

// fileBools records which boolean keys a file actually sets
type fileBools struct {
	Watch struct {
		Recursive *bool `yaml:"recursive"`
	} `yaml:"watch"`
	Output struct {
		Verbose *bool `yaml:"verbose"`
	} `yaml:"output"`
}

func (f *fileBools) apply(config *Config) {
	if f.Watch.Recursive != nil {
		config.Watch.Recursive = *f.Watch.Recursive
	}
	if f.Output.Verbose != nil {
		config.Output.Verbose = *f.Output.Verbose
	}
}

// loadEnvFiles populates the process environment from dotenv files.
// Missing files are ignored.
func (l *Loader) loadEnvFiles() {
	for _, path := range l.envFiles {
		if !fileExists(path) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to load env file %s: %v\n", path, err)
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Server Config
		"CONTRACTSUM_SERVER_BASE_URL":            func(v string) error { config.Server.BaseURL = v; return nil },
		"CONTRACTSUM_SERVER_TIMEOUT":             func(v string) error { return parseDuration(v, &config.Server.Timeout) },
		"CONTRACTSUM_SERVER_MAX_RETRIES":         func(v string) error { return parseInt(v, &config.Server.MaxRetries) },
		"CONTRACTSUM_SERVER_REQUESTS_PER_SECOND": func(v string) error { return parseFloat(v, &config.Server.RequestsPerSecond) },
		"CONTRACTSUM_SERVER_BURST":               func(v string) error { return parseInt(v, &config.Server.Burst) },

		// Session Config
		"CONTRACTSUM_SESSION_FILE":          func(v string) error { config.Session.File = v; return nil },
		"CONTRACTSUM_SESSION_HISTORY_LIMIT": func(v string) error { return parseInt(v, &config.Session.HistoryLimit) },

		// Polling Config
		"CONTRACTSUM_POLLING_INTERVAL": func(v string) error { return parseDuration(v, &config.Polling.Interval) },
		"CONTRACTSUM_POLLING_TIMEOUT":  func(v string) error { return parseDuration(v, &config.Polling.Timeout) },

		// Upload Config
		"CONTRACTSUM_UPLOAD_MAX_FILE_SIZE": func(v string) error { return parseInt64(v, &config.Upload.MaxFileSize) },

		// Watch Config
		"CONTRACTSUM_WATCH_DEBOUNCE":  func(v string) error { return parseDuration(v, &config.Watch.Debounce) },
		"CONTRACTSUM_WATCH_RECURSIVE": func(v string) error { return parseBool(v, &config.Watch.Recursive) },

		// Output Config
		"CONTRACTSUM_OUTPUT_DEFAULT_FORMAT":   func(v string) error { config.Output.DefaultFormat = v; return nil },
		"CONTRACTSUM_OUTPUT_COLOR_MODE":       func(v string) error { config.Output.ColorMode = v; return nil },
		"CONTRACTSUM_OUTPUT_VERBOSE":          func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"CONTRACTSUM_OUTPUT_THEME":            func(v string) error { config.Output.Theme = v; return nil },
		"CONTRACTSUM_OUTPUT_TIMESTAMP_FORMAT": func(v string) error { config.Output.TimestampFormat = v; return nil },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// Comma-separated list
	if exts := os.Getenv("CONTRACTSUM_UPLOAD_ALLOWED_EXTENSIONS"); exts != "" {
		config.Upload.AllowedExtensions = splitList(exts)
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, ExpandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := ExpandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config
// Only non-zero values from source overwrite destination
func mergeConfigs(dst, src *Config) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	mergeServerConfig(&dst.Server, &src.Server)
	mergeSessionConfig(&dst.Session, &src.Session)
	mergePollingConfig(&dst.Polling, &src.Polling)
	mergeUploadConfig(&dst.Upload, &src.Upload)
	mergeWatchConfig(&dst.Watch, &src.Watch)
	mergeOutputConfig(&dst.Output, &src.Output)
}

func mergeServerConfig(dst, src *ServerConfig) {
	if src.BaseURL != "" {
		dst.BaseURL = strings.TrimRight(src.BaseURL, "/")
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.MaxRetries != 0 {
		dst.MaxRetries = src.MaxRetries
	}
	if src.RequestsPerSecond != 0 {
		dst.RequestsPerSecond = src.RequestsPerSecond
	}
	if src.Burst != 0 {
		dst.Burst = src.Burst
	}
}

func mergeSessionConfig(dst, src *SessionConfig) {
	if src.File != "" {
		dst.File = src.File
	}
	if src.HistoryLimit != 0 {
		dst.HistoryLimit = src.HistoryLimit
	}
}

func mergePollingConfig(dst, src *PollingConfig) {
	if src.Interval != 0 {
		dst.Interval = src.Interval
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
}

func mergeUploadConfig(dst, src *UploadConfig) {
	if len(src.AllowedExtensions) > 0 {
		dst.AllowedExtensions = src.AllowedExtensions
	}
	if src.MaxFileSize != 0 {
		dst.MaxFileSize = src.MaxFileSize
	}
}

func mergeWatchConfig(dst, src *WatchConfig) {
	if src.Debounce != 0 {
		dst.Debounce = src.Debounce
	}
}

// mergeOutputConfig merges output configuration
func mergeOutputConfig(dst, src *OutputConfig) {
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.ColorMode != "" {
		dst.ColorMode = src.ColorMode
	}
	if src.Theme != "" {
		dst.Theme = src.Theme
	}
	if src.TimestampFormat != "" {
		dst.TimestampFormat = src.TimestampFormat
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseInt64(s string, dst *int64) error {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFloat(s string, dst *float64) error {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
