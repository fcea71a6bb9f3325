package plan

import "fmt"

// Options holds per-plan execution overrides (spec.md §3 Plan).
type Options struct {
	Headless       *bool `json:"headless,omitempty"`
	DefaultTimeout int   `json:"defaultTimeoutMs,omitempty"`
}

// Plan is an immutable, ordered sequence of Steps ready for execution —
// the output of upstream natural-language synthesis, the input to this core.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Steps       []Step   `json:"steps"`
	Options     Options  `json:"options,omitempty"`
}

// Validate checks every step individually and enforces the Plan invariant
// that ordinals form 1..N without gaps.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %s: has no steps", p.ID)
	}
	seen := make(map[int]bool, len(p.Steps))
	for _, s := range p.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("plan %s: %w", p.ID, err)
		}
		if s.Expected != nil {
			if err := s.Expected.Validate(); err != nil {
				return fmt.Errorf("plan %s: step %d: %w", p.ID, s.Ordinal, err)
			}
		}
		seen[s.Ordinal] = true
	}
	for i := 1; i <= len(p.Steps); i++ {
		if !seen[i] {
			return fmt.Errorf("plan %s: ordinals are not 1..%d without gaps (missing %d)", p.ID, len(p.Steps), i)
		}
	}
	return nil
}

// FirstNavigateURL returns the target of the first navigate step, if any.
// Used to populate ExecutionRecord.URL and the §6.2 embedding text.
func (p *Plan) FirstNavigateURL() string {
	for _, s := range p.Steps {
		if s.Kind == KindNavigate {
			return s.Target
		}
	}
	return ""
}
