// Package portal abstracts the consolidator's web UI.
// The automation only talks to these interfaces; the browser adapter implements them with a
// real browser and test/fakeportal with scripted HTML.
package portal

import (
	"context"
	"time"
)

// Scope is anything elements can be looked up in: the page or an element.
// Lookups never wait; they report what is rendered right now.
type Scope interface {
	Query(css string) ([]Element, error)
	ByText(text string, exact bool) ([]Element, error)
	ByLabel(label string, exact bool) ([]Element, error)
	ByTestID(id string) ([]Element, error)
}

// Element is one rendered node. Actions are bounded by the page's action timeout.
type Element interface {
	Scope
	Click() error
	Fill(value string) error
	// Select chooses an option of a select element by its label, then by its value.
	Select(option string) error
	Text() (string, error)
	Attribute(name string) (string, error)
}

// Page is the single tab a run drives.
type Page interface {
	Scope
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching selector is visible.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// WaitIdle blocks until the network has settled.
	WaitIdle(ctx context.Context, timeout time.Duration) error
	BodyText() (string, error)
	HTML() (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Browser owns a launched browser and its page.
type Browser interface {
	Page() Page
	Close() error
}

// Options configures a browser launch.
type Options struct {
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
}

// Driver launches browsers.
// On a partial failure Open returns a non-nil Browser together with the error, so whatever
// was started can still be closed.
type Driver interface {
	Open(ctx context.Context, opts Options) (Browser, error)
}
