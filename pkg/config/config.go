package config

// Config is the single configuration object threaded through cmd/autoheal's
// wiring: one YAML file plus environment overrides, merged against
// DefaultConfig() and validated at startup, per Initialize's pipeline in
// loader.go.
type Config struct {
	configDir string

	LLM       LLMConfig
	Execution ExecutionConfig
	Server    ServerConfig
	Storage   StorageConfig
	Trigger   TriggerConfig
}

// ConfigDir returns the directory Initialize loaded autoheal.yaml from.
func (c *Config) ConfigDir() string {
	return c.configDir
}
