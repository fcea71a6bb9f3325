package config

import "time"

// Built-in defaults applied to any field the user's YAML and environment
// leave unset. These mirror the orchestrator/executor/dispatcher package
// defaults (DefaultMaxConcurrent, DefaultRunTimeout, DefaultHighWaterMark,
// DefaultWorkers) so a bare autoheal.yaml with only the two required LLM
// fields still produces a runnable system.
const (
	DefaultAPIKeyEnv             = "LLM_API_KEY"
	DefaultEmbeddingDims         = 1536
	DefaultMaxConcurrentBrowsers = 3
	DefaultRunTimeout            = 5 * time.Minute
	DefaultPort                  = 8080
	DefaultStorageRoot           = "./data"
	DefaultTriggerHighWaterMark  = 100
	DefaultTriggerWorkers        = 4
)

// DefaultConfig returns the built-in baseline that the loaded YAML is
// merged on top of.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			APIKeyEnv:     DefaultAPIKeyEnv,
			EmbeddingDims: DefaultEmbeddingDims,
		},
		Execution: ExecutionConfig{
			MaxConcurrentBrowsers: DefaultMaxConcurrentBrowsers,
			RunTimeout:            DefaultRunTimeout,
		},
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Storage: StorageConfig{
			Root: DefaultStorageRoot,
		},
		Trigger: TriggerConfig{
			HighWaterMark: DefaultTriggerHighWaterMark,
			Workers:       DefaultTriggerWorkers,
		},
	}
}
