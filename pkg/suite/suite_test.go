package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForest_DetectsSharedPlanOwnership(t *testing.T) {
	suites := []*Suite{
		{ID: "a", PlanIDs: []string{"p1"}},
		{ID: "b", PlanIDs: []string{"p1"}},
	}
	err := Forest(suites)
	require.Error(t, err)
}

func TestForest_DetectsCycle(t *testing.T) {
	suites := []*Suite{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
	}
	err := Forest(suites)
	require.Error(t, err)
}

func TestForest_AcceptsValidTree(t *testing.T) {
	suites := []*Suite{
		{ID: "root", PlanIDs: []string{"p1"}},
		{ID: "child", ParentID: "root", PlanIDs: []string{"p2"}},
	}
	require.NoError(t, Forest(suites))
}

func TestExpandDepthFirst_ParentTestsBeforeChildren(t *testing.T) {
	suites := []*Suite{
		{ID: "root", PlanIDs: []string{"p1"}},
		{ID: "child", ParentID: "root", PlanIDs: []string{"p2", "p3"}},
	}
	got := ExpandDepthFirst(suites, "root", nil)
	assert.Equal(t, []string{"p1", "p2", "p3"}, got)
}

func TestExpandDepthFirst_ExcludesDisabled(t *testing.T) {
	suites := []*Suite{
		{ID: "root", PlanIDs: []string{"p1", "p2"}},
	}
	got := ExpandDepthFirst(suites, "root", map[string]bool{"p2": true})
	assert.Equal(t, []string{"p1"}, got)
}
