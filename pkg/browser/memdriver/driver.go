// Package memdriver provides an in-memory browser-control collaborator. It
// backs tests and CLI dry runs: pages are seeded element lists keyed by URL,
// navigation and element state are simulated, and behavior knobs let tests
// script failures, delayed loads and click-triggered navigations.
package memdriver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/retrace-dev/retrace/pkg/browser"
)

const pollInterval = 10 * time.Millisecond

// Driver is an in-memory implementation of browser.Driver.
type Driver struct {
	mu      sync.Mutex
	tabs    map[string]*tab
	active  string
	nextTab int
	nextRef int
	pages   map[string][]browser.Element

	// NavDelay keeps a tab in "loading" for the given duration after a
	// navigation before it reaches "complete".
	NavDelay time.Duration
	// ClickNavigations maps a ref to a URL the tab navigates to when the
	// ref is clicked, simulating link and submit behavior.
	ClickNavigations map[browser.Ref]string
	// ScriptResults maps a script source to its canned Evaluate result.
	ScriptResults map[string]any
	// FailReads makes the next N ReadPage calls return an empty page,
	// simulating a document that has not rendered its elements yet.
	FailReads int
}

type tab struct {
	info      browser.TabInfo
	frames    map[string][]browser.Element
	gen       int
	events    []string
	downloads []string
	capture   *browser.NetworkSummary
}

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		tabs:             make(map[string]*tab),
		pages:            make(map[string][]browser.Element),
		ClickNavigations: make(map[browser.Ref]string),
		ScriptResults:    make(map[string]any),
	}
}

// DefinePage seeds the element list served for a URL. Elements without a ref
// are assigned one.
func (d *Driver) DefinePage(url string, elements ...browser.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range elements {
		if elements[i].Ref == "" {
			d.nextRef++
			elements[i].Ref = browser.Ref(fmt.Sprintf("el-%d", d.nextRef))
		}
	}

	d.pages[url] = elements
}

// DefineFrame seeds a child frame's element list on an existing tab.
func (d *Driver) DefineFrame(tabID, frameID string, elements ...browser.Element) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tabs[tabID]
	if !ok {
		return browser.ErrTabNotFound
	}

	t.frames[frameID] = elements

	return nil
}

// ExpireRefs invalidates every ref previously issued for the tab, simulating
// a document mutation.
func (d *Driver) ExpireRefs(tabID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.tabs[tabID]; ok {
		t.gen++
	}
}

// TriggerDownload records a finished download on the tab.
func (d *Driver) TriggerDownload(tabID, filename string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.tabs[tabID]; ok {
		t.downloads = append(t.downloads, filename)
	}
}

// RecordRequest counts a captured network request.
func (d *Driver) RecordRequest(tabID string, failed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tabs[tabID]
	if !ok || t.capture == nil {
		return
	}

	t.capture.Requests++
	if failed {
		t.capture.Failed++
	}
}

// DispatchedEvents returns the events dispatched on the tab, oldest first.
func (d *Driver) DispatchedEvents(tabID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.tabs[tabID]; ok {
		return append([]string(nil), t.events...)
	}

	return nil
}

func (d *Driver) tabLocked(tabID string) (*tab, error) {
	if tabID == "" {
		tabID = d.active
	}

	t, ok := d.tabs[tabID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", browser.ErrTabNotFound, tabID)
	}

	return t, nil
}

// Navigate points the tab at url. The tab stays "loading" for NavDelay.
func (d *Driver) Navigate(_ context.Context, tabID, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.navigateLocked(tabID, url)
}

func (d *Driver) navigateLocked(tabID, url string) error {
	t, err := d.tabLocked(tabID)
	if err != nil {
		return err
	}

	t.info.URL = url
	t.gen++

	if d.NavDelay > 0 {
		t.info.Status = browser.TabStatusLoading
		id := t.info.ID

		time.AfterFunc(d.NavDelay, func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			if t, ok := d.tabs[id]; ok {
				t.info.Status = browser.TabStatusComplete
			}
		})
	} else {
		t.info.Status = browser.TabStatusComplete
	}

	return nil
}

// Reload re-navigates the tab to its current URL.
func (d *Driver) Reload(ctx context.Context, tabID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tabLocked(tabID)
	if err != nil {
		return err
	}

	return d.navigateLocked(tabID, t.info.URL)
}

// WaitForNavigation blocks until the tab's URL differs from fromURL and its
// status is "complete", or the timeout elapses.
func (d *Driver) WaitForNavigation(ctx context.Context, tabID, fromURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		d.mu.Lock()
		t, err := d.tabLocked(tabID)

		var url, status string
		if err == nil {
			url, status = t.info.URL, t.info.Status
		}
		d.mu.Unlock()

		if err != nil {
			return err
		}

		if url != fromURL && status == browser.TabStatusComplete {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: still at %s", context.DeadlineExceeded, url)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// WaitForNetworkIdle blocks for the idle window; the in-memory driver has no
// spontaneous network activity, so an idle window always elapses cleanly
// unless the timeout or context cuts it short.
func (d *Driver) WaitForNetworkIdle(ctx context.Context, tabID string, idleWindow, timeout time.Duration) error {
	d.mu.Lock()
	_, err := d.tabLocked(tabID)
	d.mu.Unlock()

	if err != nil {
		return err
	}

	wait := idleWindow
	if timeout < wait {
		wait = timeout
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Tab returns a copy of the tab's info.
func (d *Driver) Tab(_ context.Context, tabID string) (*browser.TabInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tabLocked(tabID)
	if err != nil {
		return nil, err
	}

	info := t.info

	return &info, nil
}

// Tabs returns info for every open tab, ordered by tab id.
func (d *Driver) Tabs(_ context.Context) ([]*browser.TabInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	infos := make([]*browser.TabInfo, 0, len(d.tabs))
	for _, t := range d.tabs {
		info := t.info
		infos = append(infos, &info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	return infos, nil
}

// OpenTab creates a new tab, optionally navigated to url, and activates it.
func (d *Driver) OpenTab(_ context.Context, url string) (*browser.TabInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextTab++
	id := fmt.Sprintf("tab-%d", d.nextTab)
	t := &tab{
		info:   browser.TabInfo{ID: id, Status: browser.TabStatusComplete},
		frames: make(map[string][]browser.Element),
	}
	d.tabs[id] = t
	d.active = id

	if url != "" {
		if err := d.navigateLocked(id, url); err != nil {
			return nil, err
		}
	}

	info := t.info

	return &info, nil
}

// SwitchTab activates the tab.
func (d *Driver) SwitchTab(_ context.Context, tabID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tabs[tabID]; !ok {
		return fmt.Errorf("%w: %s", browser.ErrTabNotFound, tabID)
	}

	d.active = tabID

	return nil
}

// CloseTab removes the tab.
func (d *Driver) CloseTab(_ context.Context, tabID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tabs[tabID]; !ok {
		return fmt.Errorf("%w: %s", browser.ErrTabNotFound, tabID)
	}

	delete(d.tabs, tabID)

	if d.active == tabID {
		d.active = ""
		for id := range d.tabs {
			d.active = id

			break
		}
	}

	return nil
}

// ReadPage snapshots the tab's (or frame's) current elements.
func (d *Driver) ReadPage(_ context.Context, tabID, frameID string) (browser.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tabLocked(tabID)
	if err != nil {
		return nil, err
	}

	var elements []browser.Element

	if frameID != "" {
		frame, ok := t.frames[frameID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", browser.ErrFrameNotFound, frameID)
		}

		elements = frame
	} else {
		elements = d.pages[t.info.URL]
	}

	if d.FailReads > 0 {
		d.FailReads--
		elements = nil
	}

	return &page{
		url:      t.info.URL,
		elements: append([]browser.Element(nil), elements...),
		gen:      t.gen,
		driver:   d,
		tabID:    t.info.ID,
	}, nil
}

// Screenshot returns a minimal valid PNG.
func (d *Driver) Screenshot(_ context.Context, tabID string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.tabLocked(tabID); err != nil {
		return nil, err
	}

	// 1x1 transparent pixel
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}, nil
}

func (d *Driver) withElement(tabID, frameID string, ref browser.Ref, mutate func(*browser.Element)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tabLocked(tabID)
	if err != nil {
		return err
	}

	var elements []browser.Element

	if frameID != "" {
		var ok bool
		if elements, ok = t.frames[frameID]; !ok {
			return fmt.Errorf("%w: %s", browser.ErrFrameNotFound, frameID)
		}
	} else {
		elements = d.pages[t.info.URL]
	}

	for i := range elements {
		if elements[i].Ref == ref {
			if mutate != nil {
				mutate(&elements[i])
			}

			return nil
		}
	}

	return fmt.Errorf("%w: %s", browser.ErrRefNotFound, ref)
}

// Click dispatches a click on the element; a registered click navigation
// moves the tab afterward.
func (d *Driver) Click(_ context.Context, tabID, frameID string, ref browser.Ref, _ browser.ClickOptions) error {
	if err := d.withElement(tabID, frameID, ref, nil); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if url, ok := d.ClickNavigations[ref]; ok {
		return d.navigateLocked(tabID, url)
	}

	return nil
}

// TypeText sets the element's value attribute, appending unless clear is set.
func (d *Driver) TypeText(_ context.Context, tabID, frameID string, ref browser.Ref, text string, clear bool) error {
	return d.withElement(tabID, frameID, ref, func(el *browser.Element) {
		if el.Attrs == nil {
			el.Attrs = make(map[string]string)
		}

		if clear {
			el.Attrs["value"] = text
		} else {
			el.Attrs["value"] += text
		}
	})
}

// PressKey is a no-op beyond tab validation.
func (d *Driver) PressKey(_ context.Context, tabID, _, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.tabLocked(tabID)

	return err
}

// Scroll is a no-op beyond target validation.
func (d *Driver) Scroll(_ context.Context, tabID, frameID string, ref browser.Ref, _, _ int) error {
	if ref == "" {
		d.mu.Lock()
		defer d.mu.Unlock()

		_, err := d.tabLocked(tabID)

		return err
	}

	return d.withElement(tabID, frameID, ref, nil)
}

// Drag is a no-op beyond source validation.
func (d *Driver) Drag(_ context.Context, tabID, frameID string, from, to browser.Ref) error {
	if err := d.withElement(tabID, frameID, from, nil); err != nil {
		return err
	}

	return d.withElement(tabID, frameID, to, nil)
}

// DispatchEvent records the event name against the tab.
func (d *Driver) DispatchEvent(_ context.Context, tabID, frameID string, ref browser.Ref, event string) error {
	if err := d.withElement(tabID, frameID, ref, nil); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tabLocked(tabID)
	if err != nil {
		return err
	}

	t.events = append(t.events, fmt.Sprintf("%s:%s", ref, event))

	return nil
}

// SetAttribute mutates an element attribute in place.
func (d *Driver) SetAttribute(_ context.Context, tabID, frameID string, ref browser.Ref, name, value string) error {
	return d.withElement(tabID, frameID, ref, func(el *browser.Element) {
		if el.Attrs == nil {
			el.Attrs = make(map[string]string)
		}

		el.Attrs[name] = value
	})
}

// Evaluate returns the canned result registered for the script source.
func (d *Driver) Evaluate(_ context.Context, tabID, _, script string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.tabLocked(tabID); err != nil {
		return nil, err
	}

	if result, ok := d.ScriptResults[script]; ok {
		return result, nil
	}

	return nil, nil
}

// WaitForDownload blocks until a download finishes on the tab.
func (d *Driver) WaitForDownload(ctx context.Context, tabID string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)

	for {
		d.mu.Lock()
		t, err := d.tabLocked(tabID)

		var file string
		if err == nil && len(t.downloads) > 0 {
			file = t.downloads[0]
			t.downloads = t.downloads[1:]
		}
		d.mu.Unlock()

		if err != nil {
			return "", err
		}

		if file != "" {
			return file, nil
		}

		if time.Now().After(deadline) {
			return "", context.DeadlineExceeded
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// StartNetworkCapture begins counting recorded requests on the tab.
func (d *Driver) StartNetworkCapture(_ context.Context, tabID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tabLocked(tabID)
	if err != nil {
		return err
	}

	t.capture = &browser.NetworkSummary{}

	return nil
}

// StopNetworkCapture ends the capture and returns its summary.
func (d *Driver) StopNetworkCapture(_ context.Context, tabID string) (*browser.NetworkSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.tabLocked(tabID)
	if err != nil {
		return nil, err
	}

	if t.capture == nil {
		return nil, browser.ErrNoCapture
	}

	summary := *t.capture
	t.capture = nil

	return &summary, nil
}
