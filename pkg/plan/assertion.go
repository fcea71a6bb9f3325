package plan

import "fmt"

// AssertionKind is the tagged variant discriminator for Assertion.
type AssertionKind string

const (
	AssertVisible         AssertionKind = "visible"
	AssertHidden          AssertionKind = "hidden"
	AssertTextEquals      AssertionKind = "textEquals"
	AssertTextContains    AssertionKind = "textContains"
	AssertURLEquals       AssertionKind = "urlEquals"
	AssertURLContains     AssertionKind = "urlContains"
	AssertCountEquals     AssertionKind = "countEquals"
	AssertAttributeEquals AssertionKind = "attributeEquals"
)

// Assertion is a tagged variant over the observable checks spec.md §3 names.
// Only the field(s) relevant to Kind are populated; unknown kinds are
// rejected at ingest by Validate.
type Assertion struct {
	Kind AssertionKind `json:"kind"`

	Text      string `json:"text,omitempty"`      // textEquals, textContains
	URL       string `json:"url,omitempty"`        // urlEquals, urlContains
	Count     int    `json:"count,omitempty"`      // countEquals
	Attribute string `json:"attribute,omitempty"`  // attributeEquals: target encodes "selector::attribute"
	Value     string `json:"value,omitempty"`      // attributeEquals expected value
}

// Validate rejects assertion kinds the grammar does not recognize, per the
// design note "reject unknown kinds at ingest".
func (a Assertion) Validate() error {
	switch a.Kind {
	case AssertVisible, AssertHidden, AssertTextEquals, AssertTextContains,
		AssertURLEquals, AssertURLContains, AssertCountEquals, AssertAttributeEquals:
		return nil
	default:
		return fmt.Errorf("assertion: unknown kind %q", a.Kind)
	}
}

// Describe renders a human-readable expectation, used for StepResult's
// ExpectedText and for embedding text (§6.2).
func (a Assertion) Describe() string {
	switch a.Kind {
	case AssertVisible:
		return "element is visible"
	case AssertHidden:
		return "element is hidden"
	case AssertTextEquals:
		return fmt.Sprintf("text equals %q", a.Text)
	case AssertTextContains:
		return fmt.Sprintf("text contains %q", a.Text)
	case AssertURLEquals:
		return fmt.Sprintf("url equals %q", a.URL)
	case AssertURLContains:
		return fmt.Sprintf("url contains %q", a.URL)
	case AssertCountEquals:
		return fmt.Sprintf("count equals %d", a.Count)
	case AssertAttributeEquals:
		return fmt.Sprintf("attribute equals %q", a.Value)
	default:
		return string(a.Kind)
	}
}
