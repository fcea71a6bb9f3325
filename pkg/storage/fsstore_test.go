package storage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/storage"
	"github.com/webqa/autoheal/pkg/suite"
)

func TestFSStore_SuiteRoundTrip(t *testing.T) {
	s := storage.NewFSStore(t.TempDir())
	in := &suite.Suite{ID: "s1", Name: "checkout", PlanIDs: []string{"p1", "p2"}}
	require.NoError(t, s.SaveSuite(in))

	out, err := s.LoadSuite("s1")
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.PlanIDs, out.PlanIDs)

	all, err := s.ListSuites()
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, s.DeleteSuite("s1"))
	_, err = s.LoadSuite("s1")
	assert.Error(t, err)
}

func TestFSStore_TriggerRoundTripAndTypeFilter(t *testing.T) {
	s := storage.NewFSStore(t.TempDir())
	require.NoError(t, s.SaveTrigger(&suite.Trigger{ID: "t1", TriggerType: suite.TriggerPush}))
	require.NoError(t, s.SaveTrigger(&suite.Trigger{ID: "t2", TriggerType: suite.TriggerSchedule}))

	push, err := s.ListTriggers(suite.TriggerPush)
	require.NoError(t, err)
	require.Len(t, push, 1)
	assert.Equal(t, "t1", push[0].ID)

	all, err := s.ListTriggers("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFSStore_RunReportAndScreenshot(t *testing.T) {
	s := storage.NewFSStore(t.TempDir())
	run := &plan.Run{RunID: "r1", PlanID: "p1", Outcome: plan.OutcomePassed}
	require.NoError(t, s.SaveRunReport(run))

	loaded, err := s.LoadRunReport("r1")
	require.NoError(t, err)
	assert.Equal(t, plan.OutcomePassed, loaded.Outcome)

	ref, err := s.SaveScreenshot("r1", 2, []byte("fake-png"), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, ref, "step_2_failure_20260102T030405Z.png")
}
