package storage

// FSStore implements spec.md §6.3's filesystem persistence layout, separate
// from the Postgres path in postgres.go: it keeps suites, triggers and runs
// whether or not a database is configured.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/webqa/autoheal/pkg/plan"
	"github.com/webqa/autoheal/pkg/suite"
)

// FSStore persists Suites, Trigger definitions, and per-Run artifacts to
// plain JSON files under a root directory, matching spec.md §6.3's layout
// exactly: `<suiteId>.json` per suite, `<triggerId>.json` per trigger, and a
// per-run directory holding `report.json` plus any failure screenshots.
type FSStore struct {
	root string
}

func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

func (s *FSStore) suitesDir() string   { return filepath.Join(s.root, "suites") }
func (s *FSStore) triggersDir() string { return filepath.Join(s.root, "triggers") }
func (s *FSStore) runsDir() string     { return filepath.Join(s.root, "runs") }
func (s *FSStore) plansDir() string    { return filepath.Join(s.root, "plans") }

// SavePlan writes plans/<planId>.json. Plans are not named in spec.md §6.3's
// layout, but a Suite's PlanIDs must resolve to something for the Suite
// Orchestrator's PlanSource — POST /runs upserts the Plan it is given here,
// and suite execution resolves against the same store.
func (s *FSStore) SavePlan(p *plan.Plan) error {
	return writeJSON(filepath.Join(s.plansDir(), p.ID+".json"), p)
}

// LoadPlan reads plans/<planId>.json.
func (s *FSStore) LoadPlan(planID string) (*plan.Plan, error) {
	var out plan.Plan
	if err := readJSON(filepath.Join(s.plansDir(), planID+".json"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveSuite writes suites/<suiteId>.json.
func (s *FSStore) SaveSuite(sui *suite.Suite) error {
	return writeJSON(filepath.Join(s.suitesDir(), sui.ID+".json"), sui)
}

// LoadSuite reads suites/<suiteId>.json.
func (s *FSStore) LoadSuite(suiteID string) (*suite.Suite, error) {
	var out suite.Suite
	if err := readJSON(filepath.Join(s.suitesDir(), suiteID+".json"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSuites reads every suite file under the suites directory.
func (s *FSStore) ListSuites() ([]*suite.Suite, error) {
	names, err := listJSONFiles(s.suitesDir())
	if err != nil {
		return nil, err
	}
	out := make([]*suite.Suite, 0, len(names))
	for _, name := range names {
		var sui suite.Suite
		if err := readJSON(filepath.Join(s.suitesDir(), name), &sui); err != nil {
			return nil, err
		}
		out = append(out, &sui)
	}
	return out, nil
}

// DeleteSuite removes suites/<suiteId>.json.
func (s *FSStore) DeleteSuite(suiteID string) error {
	err := os.Remove(filepath.Join(s.suitesDir(), suiteID+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete suite %s: %w", suiteID, err)
	}
	return nil
}

// SaveTrigger writes triggers/<triggerId>.json.
func (s *FSStore) SaveTrigger(trg *suite.Trigger) error {
	return writeJSON(filepath.Join(s.triggersDir(), trg.ID+".json"), trg)
}

// LoadTrigger reads triggers/<triggerId>.json.
func (s *FSStore) LoadTrigger(triggerID string) (*suite.Trigger, error) {
	var out suite.Trigger
	if err := readJSON(filepath.Join(s.triggersDir(), triggerID+".json"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTriggers reads every trigger file, optionally narrowed to one type.
func (s *FSStore) ListTriggers(typ suite.TriggerType) ([]*suite.Trigger, error) {
	names, err := listJSONFiles(s.triggersDir())
	if err != nil {
		return nil, err
	}
	out := make([]*suite.Trigger, 0, len(names))
	for _, name := range names {
		var trg suite.Trigger
		if err := readJSON(filepath.Join(s.triggersDir(), name), &trg); err != nil {
			return nil, err
		}
		if typ == "" || trg.TriggerType == typ {
			out = append(out, &trg)
		}
	}
	return out, nil
}

// DeleteTrigger removes triggers/<triggerId>.json.
func (s *FSStore) DeleteTrigger(triggerID string) error {
	err := os.Remove(filepath.Join(s.triggersDir(), triggerID+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete trigger %s: %w", triggerID, err)
	}
	return nil
}

// RunDir returns runs/<runId>, creating it if absent.
func (s *FSStore) RunDir(runID string) (string, error) {
	dir := filepath.Join(s.runsDir(), runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create run dir %s: %w", runID, err)
	}
	return dir, nil
}

// SaveRunReport writes runs/<runId>/report.json.
func (s *FSStore) SaveRunReport(run *plan.Run) error {
	dir, err := s.RunDir(run.RunID)
	if err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "report.json"), run)
}

// LoadRunReport reads runs/<runId>/report.json.
func (s *FSStore) LoadRunReport(runID string) (*plan.Run, error) {
	var out plan.Run
	if err := readJSON(filepath.Join(s.runsDir(), runID, "report.json"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveScreenshot writes runs/<runId>/step_<ordinal>_failure_<timestamp>.png
// and returns the artifact reference to store on the StepResult.
func (s *FSStore) SaveScreenshot(runID string, ordinal int, data []byte, at time.Time) (string, error) {
	dir, err := s.RunDir(runID)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("step_%d_failure_%s.png", ordinal, at.UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write screenshot %s: %w", path, err)
	}
	return filepath.Join(runID, name), nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: create dir for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: rename %s: %w", tmp, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("storage: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: unmarshal %s: %w", path, err)
	}
	return nil
}

func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
