package config

import "fmt"

// Validator checks a loaded Config against the required-field and
// range constraints the ambient stack depends on. Mirrors the teacher's
// NewValidator(cfg).ValidateAll() shape, trimmed to this domain's much
// smaller surface (no agent/chain/mcp/provider registries to cross-check).
type Validator struct {
	cfg *Config
}

func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every check, fail-fast on the first error, matching the
// teacher's startup behavior.
func (v *Validator) ValidateAll() error {
	if err := v.validateLLM(); err != nil {
		return err
	}
	if err := v.validateExecution(); err != nil {
		return err
	}
	if err := v.validateServer(); err != nil {
		return err
	}
	if err := v.validateStorage(); err != nil {
		return err
	}
	if err := v.validateTrigger(); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validateLLM() error {
	llm := v.cfg.LLM
	if llm.EmbeddingEndpoint == "" {
		return NewValidationError("llm.embedding_endpoint", ErrMissingRequiredField)
	}
	if llm.APIKey == "" {
		return NewValidationError("llm.api_key_env", fmt.Errorf("%w: environment variable %q is unset", ErrMissingRequiredField, llm.APIKeyEnv))
	}
	return nil
}

func (v *Validator) validateExecution() error {
	exec := v.cfg.Execution
	if exec.MaxConcurrentBrowsers < 1 {
		return NewValidationError("execution.max_concurrent_browsers", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if exec.RunTimeout <= 0 {
		return NewValidationError("execution.run_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateServer() error {
	if v.cfg.Server.Port < 1 || v.cfg.Server.Port > 65535 {
		return NewValidationError("server.port", fmt.Errorf("%w: must be between 1 and 65535", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateStorage() error {
	if v.cfg.Storage.Root == "" {
		return NewValidationError("storage.root", ErrMissingRequiredField)
	}
	return nil
}

func (v *Validator) validateTrigger() error {
	trg := v.cfg.Trigger
	if trg.HighWaterMark < 1 {
		return NewValidationError("trigger.high_water_mark", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	if trg.Workers < 1 {
		return NewValidationError("trigger.workers", fmt.Errorf("%w: must be >= 1", ErrInvalidValue))
	}
	return nil
}
