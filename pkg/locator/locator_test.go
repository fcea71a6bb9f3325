package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllVariants(t *testing.T) {
	cases := []struct {
		in   string
		kind Kind
	}{
		{"text=Learn more", KindText},
		{"text=/^Submit$/i", KindTextRegex},
		{"role=button[name=Submit]", KindRole},
		{"role=button", KindRole},
		{"[data-testid=submit]", KindAttribute},
		{"css:#submit-btn", KindCSS},
		{"xpath://button[@id='submit']", KindXPath},
	}
	for _, tc := range cases {
		loc, err := Parse(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.kind, loc.Kind, tc.in)
		assert.Equal(t, tc.in, loc.String(), tc.in)
	}
}

func TestParse_AttributeEqualsSuffix(t *testing.T) {
	loc, err := Parse("css:#link::href")
	require.NoError(t, err)
	assert.Equal(t, KindCSS, loc.Kind)
	assert.Equal(t, "#link", loc.Expr)
	assert.Equal(t, "href", loc.Attribute)
	assert.Equal(t, "css:#link::href", loc.String())
}

func TestParse_RejectsUnknownGrammar(t *testing.T) {
	_, err := Parse("a:contains('More information')")
	require.Error(t, err)
}

func TestParse_RejectsMalformed(t *testing.T) {
	for _, in := range []string{"text=", "css:", "[bad]", "role="} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}
