package config

import "time"

// LLMConfig holds the settings for the LLM and embedding endpoints used by
// the Selector Resolver (C3), Failure Analyser (C4), and Impact Analyser (C8).
type LLMConfig struct {
	APIKeyEnv         string `yaml:"api_key_env,omitempty"`
	BaseURL           string `yaml:"base_url,omitempty"`
	Model             string `yaml:"model,omitempty"`
	EmbeddingEndpoint string `yaml:"embedding_endpoint" validate:"required"`
	EmbeddingModel    string `yaml:"embedding_model,omitempty"`
	EmbeddingDims     int    `yaml:"embedding_dims,omitempty" validate:"omitempty,min=1"`

	// APIKey is resolved from the environment variable named by APIKeyEnv
	// (default "LLM_API_KEY") once loading completes; never read from YAML.
	APIKey string `yaml:"-"`
}

// ExecutionConfig bounds the Plan Executor and Suite Orchestrator.
type ExecutionConfig struct {
	MaxConcurrentBrowsers int           `yaml:"max_concurrent_browsers,omitempty" validate:"omitempty,min=1"`
	RunTimeout            time.Duration `yaml:"-"`
	RunTimeoutRaw         string        `yaml:"run_timeout,omitempty"`
}

// ServerConfig holds the HTTP surface's listen settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
}

// StorageConfig selects and configures the persistence backend (§6.3).
// Suites, triggers and runs are always kept by an FSStore rooted at Root.
// When PostgresDSNEnv names a set environment variable, the Knowledge Store
// is Postgres-backed (opened through pkg/storage); otherwise it is in memory.
type StorageConfig struct {
	Root           string `yaml:"root,omitempty"`
	PostgresDSNEnv string `yaml:"postgres_dsn_env,omitempty"`

	// PostgresDSN is resolved from the environment variable named by
	// PostgresDSNEnv once loading completes; never read from YAML.
	PostgresDSN string `yaml:"-"`
}

// TriggerConfig bounds the Trigger Dispatcher's dispatch queue (C9).
type TriggerConfig struct {
	HighWaterMark int `yaml:"high_water_mark,omitempty" validate:"omitempty,min=1"`
	Workers       int `yaml:"workers,omitempty" validate:"omitempty,min=1"`
}
