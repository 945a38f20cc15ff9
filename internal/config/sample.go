package config

// SampleConfig returns a fully documented configuration file
func SampleConfig() string {
	return `# ContractSum configuration
version: "1.0"

server:
  # Root URL of the contracts API (without /api/v1)
  base_url: "http://localhost:8000"
  # Timeout for a single HTTP request
  timeout: 30s
  # Retries for idempotent requests (GET) on network errors, 429 and 5xx
  max_retries: 3
  # Client-side rate limit; 0 disables it
  requests_per_second: 5
  burst: 10

session:
  # Where the bearer token and recent analyses are stored (mode 0600)
  file: "~/.config/contractsum/session.yaml"
  history_limit: 20

polling:
  # How often a pending analysis is refreshed
  interval: 3s
  # Give up after this long; 0 polls until the analysis completes or fails
  timeout: 0s

upload:
  allowed_extensions: [".pdf", ".docx"]
  # Bytes; 0 disables the check
  max_file_size: 26214400

watch:
  # Quiet period before a dropped file is uploaded
  debounce: 500ms
  recursive: false

output:
  # text, json, markdown, csv or xlsx
  default_format: "text"
  # auto, always or never
  color_mode: "auto"
  verbose: false
  # default, high-contrast or minimal
  theme: "default"
  timestamp_format: "2006-01-02 15:04:05"
`
}

// MinimalSampleConfig returns a compact configuration with essential settings
func MinimalSampleConfig() string {
	return `version: "1.0"
server:
  base_url: "http://localhost:8000"
polling:
  interval: 3s
output:
  default_format: "text"
`
}
