package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webqa/autoheal/pkg/api"
	"github.com/webqa/autoheal/pkg/config"
	"github.com/webqa/autoheal/pkg/driver"
	"github.com/webqa/autoheal/pkg/executor"
	"github.com/webqa/autoheal/pkg/impact"
	"github.com/webqa/autoheal/pkg/knowledge"
	"github.com/webqa/autoheal/pkg/livestatus"
	"github.com/webqa/autoheal/pkg/llmclient"
	"github.com/webqa/autoheal/pkg/orchestrator"
	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/suite"
	"github.com/webqa/autoheal/pkg/trigger"
)

// fakeStore is a minimal in-memory api.Store for HTTP-layer tests — the
// real persistence backend (pkg/storage.FSStore) has its own tests.
type fakeStore struct {
	mu       sync.Mutex
	suites   map[string]*suite.Suite
	triggers map[string]*suite.Trigger
	plans    map[string]*plan.Plan
	runs     map[string]*plan.Run
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		suites:   make(map[string]*suite.Suite),
		triggers: make(map[string]*suite.Trigger),
		plans:    make(map[string]*plan.Plan),
		runs:     make(map[string]*plan.Run),
	}
}

func (f *fakeStore) SaveSuite(s *suite.Suite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suites[s.ID] = s
	return nil
}

func (f *fakeStore) LoadSuite(id string) (*suite.Suite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.suites[id]
	if !ok {
		return nil, fmt.Errorf("suite %q: %w", id, os.ErrNotExist)
	}
	return s, nil
}

func (f *fakeStore) ListSuites() ([]*suite.Suite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*suite.Suite, 0, len(f.suites))
	for _, s := range f.suites {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) DeleteSuite(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.suites, id)
	return nil
}

func (f *fakeStore) SaveTrigger(t *suite.Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers[t.ID] = t
	return nil
}

func (f *fakeStore) LoadTrigger(id string) (*suite.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.triggers[id]
	if !ok {
		return nil, fmt.Errorf("trigger %q: %w", id, os.ErrNotExist)
	}
	return t, nil
}

func (f *fakeStore) ListTriggers(typ suite.TriggerType) ([]*suite.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*suite.Trigger
	for _, t := range f.triggers {
		if typ == "" || t.TriggerType == typ {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteTrigger(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.triggers, id)
	return nil
}

func (f *fakeStore) SavePlan(p *plan.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans[p.ID] = p
	return nil
}

func (f *fakeStore) LoadPlan(id string) (*plan.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %q: %w", id, os.ErrNotExist)
	}
	return p, nil
}

func (f *fakeStore) SaveRunReport(run *plan.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.RunID] = run
	return nil
}

func (f *fakeStore) LoadRunReport(id string) (*plan.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", id, os.ErrNotExist)
	}
	return r, nil
}

// SaveScreenshot satisfies executor.Artifacts; fakeStore has no on-disk
// layout of its own, so it just returns a deterministic reference string.
func (f *fakeStore) SaveScreenshot(runID string, ordinal int, data []byte, at time.Time) (string, error) {
	return fmt.Sprintf("%s/step_%d_failure_%d.png", runID, ordinal, len(data)), nil
}

// testServer wires a Server over in-memory collaborators and starts it on a
// loopback port, returning the base URL and the trigger dispatcher; shutdown
// is registered with t.Cleanup.
func testServer(t *testing.T, store *fakeStore) (baseURL string, dispatcher *trigger.Dispatcher) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	knowledgeStore := knowledge.NewMemory(8)
	llm := llmclient.NewFake(`{}`)
	tracker := livestatus.New()
	feed := livestatus.NewChangeFeed(tracker)
	impactAnalyser := impact.New(knowledgeStore, llm, llm)

	newExecutor := func(suiteID, planID string) *executor.Executor {
		return &executor.Executor{
			Drivers:   &driver.FakeFactory{},
			Store:     knowledgeStore,
			Embed:     llm,
			Sink:      tracker.PlanSink(suiteID, planID),
			Artifacts: store,
		}
	}
	planSource := func(_ context.Context, id string) (*plan.Plan, error) { return store.LoadPlan(id) }
	orch := orchestrator.New(newExecutor, planSource)
	orch.Sink = tracker

	triggerStore := trigger.NewMemoryStore()
	dispatch := func(_ context.Context, _ string, _ suite.ExecutionOptions) error { return nil }
	dispatcher = trigger.New(triggerStore, dispatch, 10, 1)
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)

	server := api.NewServer(&config.Config{}, store, newExecutor, orch, tracker, feed, knowledgeStore, llm, impactAnalyser, dispatcher)

	go server.StartWithListener(ln)
	t.Cleanup(func() {
		cancel()
		dispatcher.Stop()
		_ = server.Shutdown(context.Background())
	})

	return "http://" + ln.Addr().String(), dispatcher
}

func TestServer_Health(t *testing.T) {
	base, _ := testServer(t, newFakeStore())

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp = r
		return true
	}, time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
}

func TestServer_CreateRun_ExecutesPlanAndPersists(t *testing.T) {
	store := newFakeStore()
	base, _ := testServer(t, store)

	p := plan.Plan{
		ID:   "p1",
		Name: "smoke",
		Steps: []plan.Step{
			{Ordinal: 1, Kind: plan.KindNavigate, Target: "https://example.test", Description: "open"},
		},
	}
	payload, err := json.Marshal(map[string]any{"plan": p})
	require.NoError(t, err)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Post(base+"/runs", "application/json", bytes.NewReader(payload))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Run *plan.Run `json:"run"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Run)
	assert.NotEmpty(t, body.Run.RunID)

	_, err = store.LoadRunReport(body.Run.RunID)
	assert.NoError(t, err)
}

func TestServer_CreateRun_RejectsInvalidPlan(t *testing.T) {
	base, _ := testServer(t, newFakeStore())

	payload := []byte(`{"plan": {"id": "bad", "name": "bad", "steps": []}}`)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Post(base+"/runs", "application/json", bytes.NewReader(payload))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body api.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "validation_failed", body.Code)
}

func TestServer_Triggers_CreateGetFire(t *testing.T) {
	base, _ := testServer(t, newFakeStore())

	create := map[string]any{
		"enabled":        true,
		"triggerType":    suite.TriggerManual,
		"targetSuiteIds": []string{"suite-a"},
	}
	payload, err := json.Marshal(create)
	require.NoError(t, err)

	var resp *http.Response
	require.Eventually(t, func() bool {
		r, err := http.Post(base+"/triggers", "application/json", bytes.NewReader(payload))
		if err != nil {
			return false
		}
		resp = r
		return true
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var trg suite.Trigger
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trg))
	resp.Body.Close()
	require.NotEmpty(t, trg.ID)

	getResp, err := http.Get(base + "/triggers/" + trg.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestServer_KnowledgeStoreAndQuery(t *testing.T) {
	base, _ := testServer(t, newFakeStore())

	storeReq := map[string]any{
		"id":        "run-1",
		"document":  "login flow failed on step 3",
		"embedding": []float64{1, 0, 0, 0, 0, 0, 0, 0},
		"metadata":  map[string]any{"outcome": "failed"},
	}
	payload, err := json.Marshal(storeReq)
	require.NoError(t, err)

	storeResp, err := http.Post(base+"/knowledge/store", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	storeResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, storeResp.StatusCode)

	queryReq := map[string]any{
		"embedding": []float64{1, 0, 0, 0, 0, 0, 0, 0},
		"k":         5,
	}
	qPayload, err := json.Marshal(queryReq)
	require.NoError(t, err)

	queryResp, err := http.Post(base+"/knowledge/query", "application/json", bytes.NewReader(qPayload))
	require.NoError(t, err)
	defer queryResp.Body.Close()
	require.Equal(t, http.StatusOK, queryResp.StatusCode)

	var body struct {
		Hits []knowledge.Hit `json:"hits"`
	}
	require.NoError(t, json.NewDecoder(queryResp.Body).Decode(&body))
	require.Len(t, body.Hits, 1)
	assert.Equal(t, "run-1", body.Hits[0].ID)
}
