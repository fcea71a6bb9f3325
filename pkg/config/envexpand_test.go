package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("AUTOHEAL_TEST_KEY", "secret123")
	t.Setenv("AUTOHEAL_TEST_HOST", "example.com")

	got := ExpandEnv([]byte("api_key: ${AUTOHEAL_TEST_KEY}\nhost: $AUTOHEAL_TEST_HOST"))
	assert.Equal(t, "api_key: secret123\nhost: example.com", string(got))
}

func TestExpandEnv_MissingVariableExpandsEmpty(t *testing.T) {
	got := ExpandEnv([]byte("token: ${AUTOHEAL_DOES_NOT_EXIST}"))
	assert.Equal(t, "token: ", string(got))
}
