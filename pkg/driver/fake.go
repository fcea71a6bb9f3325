package driver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/webqa/autoheal/pkg/plan"
)

// element is a registered DOM node in the Fake's virtual page.
type element struct {
	dom     DomElement
	visible bool
	text    string
	attrs   map[string]string
}

// Fake is a deterministic, in-memory Driver used by tests and as a scaffold
// for wiring a real backend. Locators are matched by exact string against
// registered elements — a production backend would instead resolve the
// parsed locator.Locator against a live DOM.
type Fake struct {
	mu sync.Mutex

	url   string
	title string

	elements map[string]*element // locatorStr -> element
	typed    map[string]string   // locatorStr -> last typed text

	netHandlers   []NetworkHandler
	consoleHandlers []ConsoleHandler
	errHandlers   []PageErrorHandler

	closed bool
}

// NewFake creates an empty Fake driver.
func NewFake() *Fake {
	return &Fake{
		elements: make(map[string]*element),
		typed:    make(map[string]string),
	}
}

// RegisterElement adds or replaces a visible element reachable by the exact
// locator string loc.
func (f *Fake) RegisterElement(loc string, dom DomElement, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[loc] = &element{dom: dom, visible: true, text: text, attrs: map[string]string{}}
}

// SetAttribute sets an attribute value on a previously-registered element.
func (f *Fake) SetAttribute(loc, name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.elements[loc]; ok {
		e.attrs[name] = value
	}
}

// RemoveElement un-registers a locator so operations against it fail with a
// locator error — used to simulate a brittle selector.
func (f *Fake) RemoveElement(loc string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, loc)
}

func (f *Fake) find(loc string) (*element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.elements[loc]
	return e, ok
}

func (f *Fake) Navigate(_ context.Context, url string, _ WaitUntil) error {
	f.mu.Lock()
	f.url = url
	f.mu.Unlock()
	return nil
}

func (f *Fake) Click(_ context.Context, loc string) error {
	if _, ok := f.find(loc); !ok {
		return NewLocatorError(loc, "no visible element matched")
	}
	return nil
}

func (f *Fake) Hover(_ context.Context, loc string) error {
	if _, ok := f.find(loc); !ok {
		return NewLocatorError(loc, "no visible element matched")
	}
	return nil
}

func (f *Fake) Type(_ context.Context, loc, text string, _ bool) error {
	if _, ok := f.find(loc); !ok {
		return NewLocatorError(loc, "no visible element matched")
	}
	f.mu.Lock()
	f.typed[loc] = text
	f.mu.Unlock()
	return nil
}

func (f *Fake) Select(_ context.Context, loc, value string) error {
	e, ok := f.find(loc)
	if !ok {
		return NewLocatorError(loc, "no visible element matched")
	}
	f.mu.Lock()
	e.attrs["value"] = value
	f.mu.Unlock()
	return nil
}

func (f *Fake) Press(_ context.Context, _ string) error { return nil }

func (f *Fake) Wait(_ context.Context, loc string, state WaitState, _ time.Duration) error {
	e, ok := f.find(loc)
	switch state {
	case StateHidden:
		if !ok || !e.visible {
			return nil
		}
		return NewLocatorError(loc, "element still visible")
	default:
		if ok && e.visible {
			return nil
		}
		return NewLocatorError(loc, "no visible element matched")
	}
}

func (f *Fake) Assert(_ context.Context, a plan.Assertion, loc string) (bool, string, error) {
	switch a.Kind {
	case plan.AssertURLEquals:
		f.mu.Lock()
		u := f.url
		f.mu.Unlock()
		return u == a.URL, u, nil
	case plan.AssertURLContains:
		f.mu.Lock()
		u := f.url
		f.mu.Unlock()
		return strings.Contains(u, a.URL), u, nil
	case plan.AssertCountEquals:
		e, ok := f.find(loc)
		n := 0
		if ok && e.visible {
			n = 1
		}
		return n == a.Count, itoa(n), nil
	}

	e, ok := f.find(loc)
	switch a.Kind {
	case plan.AssertVisible:
		return ok && e.visible, visStr(ok && e.visible), nil
	case plan.AssertHidden:
		return !ok || !e.visible, visStr(ok && e.visible), nil
	case plan.AssertTextEquals:
		if !ok {
			return false, "", NewLocatorError(loc, "no visible element matched")
		}
		return e.text == a.Text, e.text, nil
	case plan.AssertTextContains:
		if !ok {
			return false, "", NewLocatorError(loc, "no visible element matched")
		}
		return strings.Contains(e.text, a.Text), e.text, nil
	case plan.AssertAttributeEquals:
		if !ok {
			return false, "", NewLocatorError(loc, "no visible element matched")
		}
		got := e.attrs[a.Attribute]
		return got == a.Value, got, nil
	}
	return false, "", NewLocatorError(loc, "unsupported assertion kind")
}

func (f *Fake) SnapshotInteractiveElements(_ context.Context, maxElements int) ([]DomElement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DomElement, 0, len(f.elements))
	for _, e := range f.elements {
		if !e.visible {
			continue
		}
		out = append(out, e.dom)
		if len(out) >= maxElements {
			break
		}
	}
	return out, nil
}

func (f *Fake) Screenshot(_ context.Context) ([]byte, error) {
	return []byte("fake-png-bytes"), nil
}

func (f *Fake) CurrentURL(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *Fake) Title(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title, nil
}

func (f *Fake) OnNetwork(h NetworkHandler)     { f.netHandlers = append(f.netHandlers, h) }
func (f *Fake) OnConsole(h ConsoleHandler)     { f.consoleHandlers = append(f.consoleHandlers, h) }
func (f *Fake) OnPageError(h PageErrorHandler) { f.errHandlers = append(f.errHandlers, h) }

// EmitNetwork, EmitConsole and EmitPageError let tests simulate driver
// events within a step's wallclock window.
func (f *Fake) EmitNetwork(e plan.NetworkEvent) {
	for _, h := range f.netHandlers {
		h(e)
	}
}
func (f *Fake) EmitConsole(e plan.ConsoleEvent) {
	for _, h := range f.consoleHandlers {
		h(e)
	}
}
func (f *Fake) EmitPageError(e plan.PageErrorEvent) {
	for _, h := range f.errHandlers {
		h(e)
	}
}

func (f *Fake) Close(_ context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func visStr(v bool) string {
	if v {
		return "visible"
	}
	return "hidden"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// FakeFactory produces fresh Fakes, implementing driver.Factory.
type FakeFactory struct {
	// Seed, when set, configures every newly created Fake (e.g. to share a
	// page model across a test's runs).
	Seed func(*Fake)
}

func (ff *FakeFactory) New(_ context.Context, _ bool) (Driver, error) {
	f := NewFake()
	if ff.Seed != nil {
		ff.Seed(f)
	}
	return f, nil
}
