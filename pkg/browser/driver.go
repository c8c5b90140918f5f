// Package browser defines the browser-control collaborator contract. The
// engine composes these primitives; it never implements them against a real
// document. The memdriver subpackage provides an in-memory implementation for
// tests and dry runs.
package browser

import (
	"context"
	"errors"
	"time"
)

// Collaborator failures the engine maps onto its error taxonomy.
var (
	ErrTabNotFound   = errors.New("tab not found")
	ErrFrameNotFound = errors.New("frame not found")
	ErrRefNotFound   = errors.New("element ref not found")
	ErrRefExpired    = errors.New("element ref expired")
	ErrNoCapture     = errors.New("network capture not running")
)

// Ref is an ephemeral, renewable capability handle to a previously located
// page element. It has no meaning outside a live page context and must be
// re-resolved through a Page before use.
type Ref string

// Element is a searchable reference returned by a read-page operation.
type Element struct {
	Ref     Ref               `json:"ref"`
	Tag     string            `json:"tag"`
	Text    string            `json:"text,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Visible bool              `json:"visible"`
}

// Attr returns an attribute value, or "".
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// Page is a read-page snapshot supporting the queries the resolution engine
// needs. Refs resolved through a page stay valid until the document mutates.
type Page interface {
	// URL returns the document URL the snapshot was taken from.
	URL() string
	// QueryCSS returns elements matching a CSS selector.
	QueryCSS(selector string) ([]Element, error)
	// QueryXPath evaluates an XPath expression.
	QueryXPath(expr string) ([]Element, error)
	// Elements returns every element of the snapshot in document order.
	Elements() []Element
	// ResolveRef dereferences a previously issued ref. Fails with
	// ErrRefNotFound or ErrRefExpired.
	ResolveRef(ref Ref) (*Element, error)
}

// TabStatus values reported by Tab.
const (
	TabStatusLoading  = "loading"
	TabStatusComplete = "complete"
)

// TabInfo describes one browser tab.
type TabInfo struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status"`
}

// NetworkSummary is the result of stopping a network capture.
type NetworkSummary struct {
	Requests int `json:"requests"`
	Failed   int `json:"failed"`
}

// ClickOptions modify a click dispatch.
type ClickOptions struct {
	// Count is the number of clicks; 2 dispatches a double click.
	Count int
	// Button is "left", "middle" or "right"; empty means left.
	Button string
}

// Driver is the full browser-control collaborator surface. All blocking
// operations take a context; wait operations are additionally bounded by an
// explicit timeout so the orchestrator can subdivide its deadline.
type Driver interface {
	// Navigation.
	Navigate(ctx context.Context, tabID, url string) error
	Reload(ctx context.Context, tabID string) error
	WaitForNavigation(ctx context.Context, tabID, fromURL string, timeout time.Duration) error
	WaitForNetworkIdle(ctx context.Context, tabID string, idleWindow, timeout time.Duration) error

	// Tabs.
	Tab(ctx context.Context, tabID string) (*TabInfo, error)
	Tabs(ctx context.Context) ([]*TabInfo, error)
	OpenTab(ctx context.Context, url string) (*TabInfo, error)
	SwitchTab(ctx context.Context, tabID string) error
	CloseTab(ctx context.Context, tabID string) error

	// Reading.
	ReadPage(ctx context.Context, tabID, frameID string) (Page, error)
	Screenshot(ctx context.Context, tabID string) ([]byte, error)

	// Interaction.
	Click(ctx context.Context, tabID, frameID string, ref Ref, opts ClickOptions) error
	TypeText(ctx context.Context, tabID, frameID string, ref Ref, text string, clear bool) error
	PressKey(ctx context.Context, tabID, frameID, key string) error
	Scroll(ctx context.Context, tabID, frameID string, ref Ref, deltaX, deltaY int) error
	Drag(ctx context.Context, tabID, frameID string, from, to Ref) error
	DispatchEvent(ctx context.Context, tabID, frameID string, ref Ref, event string) error
	SetAttribute(ctx context.Context, tabID, frameID string, ref Ref, name, value string) error

	// Scripting and downloads.
	Evaluate(ctx context.Context, tabID, frameID, script string) (any, error)
	WaitForDownload(ctx context.Context, tabID string, timeout time.Duration) (string, error)

	// Network capture.
	StartNetworkCapture(ctx context.Context, tabID string) error
	StopNetworkCapture(ctx context.Context, tabID string) (*NetworkSummary, error)
}
