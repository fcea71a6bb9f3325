package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors autoheal.yaml's on-disk shape. Only fields the user
// sets are non-zero, so mergo.Merge with WithOverride layers it onto
// DefaultConfig() without clobbering defaults the file omits.
type yamlConfig struct {
	LLM       *yamlLLMConfig       `yaml:"llm"`
	Execution *yamlExecutionConfig `yaml:"execution"`
	Server    *ServerConfig        `yaml:"server"`
	Storage   *StorageConfig       `yaml:"storage"`
	Trigger   *TriggerConfig       `yaml:"trigger"`
}

type yamlLLMConfig struct {
	APIKeyEnv         string `yaml:"api_key_env"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	EmbeddingEndpoint string `yaml:"embedding_endpoint"`
	EmbeddingModel    string `yaml:"embedding_model"`
	EmbeddingDims     int    `yaml:"embedding_dims"`
}

type yamlExecutionConfig struct {
	MaxConcurrentBrowsers int    `yaml:"max_concurrent_browsers"`
	RunTimeout            string `yaml:"run_timeout"`
}

// Initialize loads, merges, resolves, and validates configuration. It is
// the sole entry point cmd/autoheal calls at startup.
//
// Steps:
//  1. Read configDir/autoheal.yaml, expanding ${VAR}/$VAR references.
//  2. Merge onto DefaultConfig() (user values override, unset fields keep
//     their default).
//  3. Resolve the LLM API key from its named environment variable.
//  4. Validate the result.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"port", cfg.Server.Port,
		"max_concurrent_browsers", cfg.Execution.MaxConcurrentBrowsers,
		"storage_root", cfg.Storage.Root)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	raw, err := loadYAML(configDir, "autoheal.yaml")
	if err != nil {
		return nil, NewLoadError("autoheal.yaml", err)
	}

	cfg := DefaultConfig()
	cfg.configDir = configDir

	if raw.LLM != nil {
		user := LLMConfig{
			APIKeyEnv:         raw.LLM.APIKeyEnv,
			BaseURL:           raw.LLM.BaseURL,
			Model:             raw.LLM.Model,
			EmbeddingEndpoint: raw.LLM.EmbeddingEndpoint,
			EmbeddingModel:    raw.LLM.EmbeddingModel,
			EmbeddingDims:     raw.LLM.EmbeddingDims,
		}
		if err := mergo.Merge(&cfg.LLM, user, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge llm config: %w", err)
		}
	}

	if raw.Execution != nil {
		if raw.Execution.MaxConcurrentBrowsers > 0 {
			cfg.Execution.MaxConcurrentBrowsers = raw.Execution.MaxConcurrentBrowsers
		}
		if raw.Execution.RunTimeout != "" {
			d, err := time.ParseDuration(raw.Execution.RunTimeout)
			if err != nil {
				return nil, fmt.Errorf("execution.run_timeout: %w", err)
			}
			cfg.Execution.RunTimeout = d
		}
	}

	if raw.Server != nil {
		if err := mergo.Merge(&cfg.Server, *raw.Server, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge server config: %w", err)
		}
	}
	if raw.Storage != nil {
		if err := mergo.Merge(&cfg.Storage, *raw.Storage, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge storage config: %w", err)
		}
	}
	if raw.Trigger != nil {
		if err := mergo.Merge(&cfg.Trigger, *raw.Trigger, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge trigger config: %w", err)
		}
	}

	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)

	if cfg.Storage.PostgresDSNEnv != "" {
		cfg.Storage.PostgresDSN = os.Getenv(cfg.Storage.PostgresDSNEnv)
	}

	return cfg, nil
}

func loadYAML(configDir, filename string) (*yamlConfig, error) {
	path := filepath.Join(configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var cfg yamlConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	return NewValidator(cfg).ValidateAll()
}
