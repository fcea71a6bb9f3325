package llmclient

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidateJSON checks raw against a compiled JSON Schema document, returning
// ErrSchema (wrapped) on any violation. Implementations of Client.CompleteJSON
// use this before returning a provider response to the caller.
func ValidateJSON(raw []byte, schema []byte) error {
	var schemaDoc any
	if err := json.Unmarshal(schema, &schemaDoc); err != nil {
		return fmt.Errorf("%w: unmarshal schema: %v", ErrSchema, err)
	}
	var payloadDoc any
	if err := json.Unmarshal(raw, &payloadDoc); err != nil {
		return fmt.Errorf("%w: response is not valid JSON: %v", ErrSchema, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.json", schemaDoc); err != nil {
		return fmt.Errorf("%w: add schema resource: %v", ErrSchema, err)
	}
	compiled, err := c.Compile("response.json")
	if err != nil {
		return fmt.Errorf("%w: compile schema: %v", ErrSchema, err)
	}
	if err := compiled.Validate(payloadDoc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}
