// Package driver defines the Browser Driver Adapter (C1, spec.md §4.1): the
// neutral interface the core drives any real headless-browser backend
// through. The core ships no concrete backend — only this interface and an
// in-memory Fake used by tests, mirroring how pkg/agent.LLMClient in the
// teacher is a pluggable interface with its own test double.
package driver

import (
	"context"
	"time"

	"github.com/webqa/autoheal/pkg/plan"
)

// WaitUntil gates how long navigate() waits before returning.
type WaitUntil string

const (
	WaitLoad            WaitUntil = "load"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitNetworkIdle     WaitUntil = "networkidle"
)

// WaitState gates what wait() polls for.
type WaitState string

const (
	StateVisible  WaitState = "visible"
	StateHidden   WaitState = "hidden"
	StateAttached WaitState = "attached"
)

// DefaultTimeout is the default per-operation deadline (spec.md §4.1).
const DefaultTimeout = 10 * time.Second

// DomElement is one visible, interactive element from a bounded DOM snapshot
// (spec.md §4.1 snapshotInteractiveElements).
type DomElement struct {
	Role        string   `json:"role,omitempty"`
	Text        string   `json:"text,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	AriaLabel   string   `json:"ariaLabel,omitempty"`
	Tag         string   `json:"tag"`
	Href        string   `json:"href,omitempty"`
	ID          string   `json:"id,omitempty"`
	Class       string   `json:"class,omitempty"`
	BoundingBox *BoundingBox `json:"boundingBox,omitempty"`
}

// BoundingBox is an element's rendered rectangle.
type BoundingBox struct {
	X, Y, Width, Height float64
}

// NetworkHandler, ConsoleHandler and PageErrorHandler are the per-page event
// subscriptions a Driver offers, started on navigate and stopped on teardown.
type NetworkHandler func(plan.NetworkEvent)
type ConsoleHandler func(plan.ConsoleEvent)
type PageErrorHandler func(plan.PageErrorEvent)

// Driver is the neutral browser-automation interface. It is single-tabbed: a
// fresh context is created per Plan run for isolation and predictable
// network listeners (spec.md §4.1). Every operation accepts a context
// deadline and must return promptly on cancellation.
type Driver interface {
	Navigate(ctx context.Context, url string, waitUntil WaitUntil) error
	Click(ctx context.Context, locatorStr string) error
	Hover(ctx context.Context, locatorStr string) error
	Type(ctx context.Context, locatorStr, text string, clearFirst bool) error
	Select(ctx context.Context, locatorStr, value string) error
	Press(ctx context.Context, key string) error
	Wait(ctx context.Context, locatorStr string, state WaitState, timeout time.Duration) error
	Assert(ctx context.Context, a plan.Assertion, locatorStr string) (ok bool, actual string, err error)

	SnapshotInteractiveElements(ctx context.Context, maxElements int) ([]DomElement, error)
	Screenshot(ctx context.Context) ([]byte, error)
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	OnNetwork(h NetworkHandler)
	OnConsole(h ConsoleHandler)
	OnPageError(h PageErrorHandler)

	// Close tears down the browser context. Safe to call more than once.
	Close(ctx context.Context) error
}

// Factory creates a fresh, isolated Driver context for one Plan run.
type Factory interface {
	New(ctx context.Context, headless bool) (Driver, error)
}
