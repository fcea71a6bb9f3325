package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() *Plan {
	return &Plan{
		ID:   "p1",
		Name: "happy path",
		Steps: []Step{
			{Ordinal: 1, Kind: KindNavigate, Target: "https://example.com", Description: "go to example"},
			{Ordinal: 2, Kind: KindAssert, Target: "h1", Expected: &Assertion{Kind: AssertVisible}, Description: "verify heading"},
		},
	}
}

func TestPlan_Validate_HappyPath(t *testing.T) {
	p := validPlan()
	require.NoError(t, p.Validate())
	assert.Equal(t, "https://example.com", p.FirstNavigateURL())
}

func TestPlan_Validate_RejectsGapInOrdinals(t *testing.T) {
	p := validPlan()
	p.Steps[1].Ordinal = 3
	err := p.Validate()
	require.Error(t, err)
}

func TestPlan_Validate_RejectsDuplicateOrdinals(t *testing.T) {
	p := validPlan()
	p.Steps[1].Ordinal = 1
	err := p.Validate()
	require.Error(t, err)
}

func TestStep_Validate_TypeRequiresData(t *testing.T) {
	s := Step{Ordinal: 1, Kind: KindType, Target: "css:#x", Description: "type"}
	require.Error(t, s.Validate())
	s.Data = "hello"
	require.NoError(t, s.Validate())
}

func TestStep_Validate_AssertRequiresExpected(t *testing.T) {
	s := Step{Ordinal: 1, Kind: KindAssert, Target: "css:#x", Description: "check"}
	require.Error(t, s.Validate())
}

func TestStep_Validate_NavigateRequiresAbsoluteURL(t *testing.T) {
	s := Step{Ordinal: 1, Kind: KindNavigate, Target: "/relative/path", Description: "go"}
	require.Error(t, s.Validate())
	s.Target = "https://example.com/page"
	require.NoError(t, s.Validate())
}

func TestRun_Counts(t *testing.T) {
	r := &Run{Steps: []StepResult{
		{Status: StepPassed}, {Status: StepFailed}, {Status: StepSkipped}, {Status: StepPassed},
	}}
	passed, failed, skipped := r.Counts()
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, skipped)
}
