package llmclient

import "errors"

var (
	// ErrTransient signals a retryable provider failure (rate limit, 5xx).
	// Recovery: bounded retry with backoff (spec.md §7 llm.transient).
	ErrTransient = errors.New("llmclient: transient provider error")

	// ErrSchema signals the provider's response failed JSON schema
	// validation. Recovery: one re-prompt, then fall back to the
	// deterministic stage (spec.md §7 llm.schema).
	ErrSchema = errors.New("llmclient: response failed schema validation")
)

// IsTransient reports whether err is (or wraps) ErrTransient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsSchema reports whether err is (or wraps) ErrSchema.
func IsSchema(err error) bool { return errors.Is(err, ErrSchema) }
