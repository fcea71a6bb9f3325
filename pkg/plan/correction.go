package plan

// CorrectionSource identifies which Selector Resolver stage produced a
// SelectorCorrection (spec.md §4.3).
type CorrectionSource string

const (
	SourceCache        CorrectionSource = "cache"
	SourceDeterministic CorrectionSource = "deterministic"
	SourceLLM          CorrectionSource = "llm"
)

// SelectorCorrection records a locator replacement the resolver produced.
// By construction every correction reflects exactly one failure followed by
// one success (Attempts is always 2) — it is never persisted speculatively.
type SelectorCorrection struct {
	OriginalTarget  string           `json:"originalTarget"`
	CorrectedTarget string           `json:"correctedTarget"`
	Source          CorrectionSource `json:"source"`
	Confidence      float64          `json:"confidence"`
	Attempts        int              `json:"attempts"`
}
