// Package suite holds the Suite and Trigger data model (spec.md §3).
package suite

import "fmt"

// Suite is a named node in a tree of tests. The parentId graph is a forest:
// a Suite's direct Tests (Plan IDs) belong to exactly one Suite — nesting is
// expressed through sub-suites, never shared ownership of the same Plan ID.
type Suite struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ParentID    string   `json:"parentId,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PlanIDs     []string `json:"planIds"`
	Schedule    string   `json:"schedule,omitempty"`
	Stats       Stats    `json:"stats"`
}

// Stats are running aggregate counters maintained as runs complete.
type Stats struct {
	TotalRuns  int `json:"totalRuns"`
	PassedRuns int `json:"passedRuns"`
	FailedRuns int `json:"failedRuns"`
}

// Forest validates the no-cycles invariant and the exactly-one-owner
// invariant for a collection of Suites (spec.md §3).
func Forest(suites []*Suite) error {
	byID := make(map[string]*Suite, len(suites))
	for _, s := range suites {
		byID[s.ID] = s
	}
	planOwner := make(map[string]string)
	for _, s := range suites {
		for _, pid := range s.PlanIDs {
			if owner, ok := planOwner[pid]; ok {
				return fmt.Errorf("plan %q is owned by both suite %q and %q", pid, owner, s.ID)
			}
			planOwner[pid] = s.ID
		}
	}
	for _, s := range suites {
		visited := map[string]bool{s.ID: true}
		cur := s
		for cur.ParentID != "" {
			parent, ok := byID[cur.ParentID]
			if !ok {
				break // parent outside this set — not our cycle to detect
			}
			if visited[parent.ID] {
				return fmt.Errorf("suite %q: parentId graph has a cycle", s.ID)
			}
			visited[parent.ID] = true
			cur = parent
		}
	}
	return nil
}

// Children returns the direct sub-suites of parentID, in stored order.
func Children(suites []*Suite, parentID string) []*Suite {
	var out []*Suite
	for _, s := range suites {
		if s.ParentID == parentID {
			out = append(out, s)
		}
	}
	return out
}

// ExpandDepthFirst flattens a suite tree into an ordered list of Plan IDs:
// a node's own tests first, then its children's tests in stored order
// (spec.md §4.6). disabled names Plan IDs to exclude.
func ExpandDepthFirst(all []*Suite, rootID string, disabled map[string]bool) []string {
	byID := make(map[string]*Suite, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}
	root, ok := byID[rootID]
	if !ok {
		return nil
	}
	var out []string
	var walk func(s *Suite)
	walk = func(s *Suite) {
		for _, pid := range s.PlanIDs {
			if !disabled[pid] {
				out = append(out, pid)
			}
		}
		for _, child := range Children(all, s.ID) {
			walk(child)
		}
	}
	walk(root)
	return out
}
