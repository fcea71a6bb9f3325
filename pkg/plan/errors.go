package plan

// ErrorKind classifies the error taxonomy from spec.md §7. Every per-step
// error surfaced on a StepResult carries one of these — raw driver/LLM/store
// errors never leak past the Plan Executor boundary.
type ErrorKind string

const (
	ErrorLocatorUnresolvable ErrorKind = "locator_unresolvable"
	ErrorTimeout             ErrorKind = "driver.timeout"
	ErrorNetwork             ErrorKind = "driver.network"
	ErrorAssertion           ErrorKind = "driver.assertion"
	ErrorLLMTransient        ErrorKind = "llm.transient"
	ErrorLLMSchema           ErrorKind = "llm.schema"
	ErrorStoreTransient      ErrorKind = "store.transient"
	ErrorCancelled           ErrorKind = "cancelled"
	ErrorInternal            ErrorKind = "internal"
)
